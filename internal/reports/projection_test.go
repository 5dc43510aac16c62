package reports

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schoolrecords/internal/shared"
)

func f(v float64) *float64 { return &v }

func testDB(t *testing.T) (*mongo.Client, *mongo.Database) {
	t.Helper()

	shared.LoadEnv(".env")
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set; skipping integration test")
	}

	cfg := shared.DefaultMongoConfig(uri, shared.GetEnv("MONGO_DB_NAME", "SchoolRecordsTest"))
	client, db, err := shared.ConnectMongoDB(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	t.Cleanup(func() { shared.DisconnectMongoDB(client) })

	return client, db
}

func TestGradeHistory_Integration(t *testing.T) {
	_, db := testDB(t)
	service := NewService(db)
	ctx := context.Background()

	// Test Data Constants
	testStudentID := "student-report-001"
	testTeacherID := "teacher-report-001"
	testSubjectID := "subj-report-math"
	testSemesterID1 := "sem-report-001"
	testSemesterID2 := "sem-report-002"

	// Cleanup Helper
	cleanup := func() {
		db.Collection(shared.ColGradeRecords).DeleteMany(ctx, bson.M{"student_id": testStudentID})
		db.Collection(shared.ColUsers).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": []string{testStudentID, testTeacherID}}})
		db.Collection(shared.ColSubjects).DeleteOne(ctx, bson.M{"_id": testSubjectID})
		db.Collection(shared.ColSemesters).DeleteOne(ctx, bson.M{"_id": testSemesterID1})
	}

	cleanup()
	defer cleanup()

	// Insert Dependencies
	_, err := db.Collection(shared.ColUsers).InsertMany(ctx, []interface{}{
		shared.User{ID: testStudentID, Role: shared.RoleStudent, Name: "Report Student"},
		shared.User{ID: testTeacherID, Role: shared.RoleTeacher, Name: "Report Teacher"},
	})
	if err != nil {
		t.Fatalf("Setup failed (users): %v", err)
	}
	_, err = db.Collection(shared.ColSubjects).InsertOne(ctx, shared.Subject{
		ID: testSubjectID, Name: "General Mathematics",
	})
	if err != nil {
		t.Fatalf("Setup failed (subject): %v", err)
	}
	// Only semester 1 resolves; semester 2 is left dangling on purpose
	_, err = db.Collection(shared.ColSemesters).InsertOne(ctx, shared.Semester{
		ID: testSemesterID1, Name: shared.SemesterFirst,
		StartDate: time.Now().AddDate(0, -10, 0), EndDate: time.Now().AddDate(0, -6, 0),
		Status: shared.StatusPending,
	})
	if err != nil {
		t.Fatalf("Setup failed (semester): %v", err)
	}

	_, err = db.Collection(shared.ColGradeRecords).InsertMany(ctx, []interface{}{
		shared.GradeRecord{
			ID: "rec-report-001", StudentID: testStudentID, SemesterID: testSemesterID1,
			SchoolYear: "2024-2025",
			Subjects: []shared.SubjectGrade{
				{SubjectID: testSubjectID, Midterm: f(80), Finals: f(90), FinalRating: f(86), Action: shared.ActionPassed},
			},
		},
		shared.GradeRecord{
			ID: "rec-report-002", StudentID: testStudentID, SemesterID: testSemesterID2,
			SchoolYear: "2025-2026",
			Subjects: []shared.SubjectGrade{
				{SubjectID: "subj-report-gone", Midterm: f(60), Finals: f(65), FinalRating: f(63), Action: shared.ActionFailed},
			},
		},
	})
	if err != nil {
		t.Fatalf("Setup failed (grade records): %v", err)
	}

	t.Run("Full History", func(t *testing.T) {
		history, err := service.GradeHistory(ctx, testStudentID)
		if err != nil {
			t.Fatalf("GradeHistory failed: %v", err)
		}

		if history.StudentName != "Report Student" {
			t.Errorf("Unexpected student name: %s", history.StudentName)
		}
		if len(history.PerSemester) != 2 {
			t.Fatalf("Expected 2 semesters, got %d", len(history.PerSemester))
		}

		// Oldest school year first
		first := history.PerSemester[0]
		if first.SchoolYear != "2024-2025" {
			t.Errorf("Expected 2024-2025 first, got %s", first.SchoolYear)
		}
		if first.SemesterName != shared.SemesterFirst {
			t.Errorf("Expected resolved semester name, got %s", first.SemesterName)
		}
		if len(first.Subjects) != 1 || first.Subjects[0].SubjectName != "General Mathematics" {
			t.Errorf("Expected resolved subject name, got %+v", first.Subjects)
		}

		// Dangling references degrade to placeholders
		second := history.PerSemester[1]
		if second.SemesterName != unknownSemesterName {
			t.Errorf("Expected semester placeholder, got %s", second.SemesterName)
		}
		if len(second.Subjects) != 1 || second.Subjects[0].SubjectName != unknownSubjectName {
			t.Errorf("Expected subject placeholder, got %+v", second.Subjects)
		}
	})

	t.Run("Unknown Student", func(t *testing.T) {
		_, err := service.GradeHistory(ctx, "student-report-missing")
		if status.Code(err) != codes.NotFound {
			t.Errorf("Expected NotFound, got %v", err)
		}
	})

	t.Run("Non-Student User", func(t *testing.T) {
		_, err := service.GradeHistory(ctx, testTeacherID)
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("Expected InvalidArgument, got %v", err)
		}
	})
}

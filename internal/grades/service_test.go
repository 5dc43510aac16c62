package grades

import (
	"context"
	"os"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schoolrecords/internal/shared"
)

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

func TestGradeService_Integration(t *testing.T) {
	_, db := testDB(t)
	service := NewService(db)
	ctx := context.Background()

	// Test Data Constants
	testStudentID1 := "student-grades-001"
	testStudentID2 := "student-grades-002"
	testTeacherID := "teacher-grades-001"
	testSectionID := "section-grades-001"
	testYearLevelID := "yl-grades-001"
	testStrandID := "strand-grades-001"
	testSemesterID := "sem-grades-001"
	testSubjectID1 := "subj-grades-math"
	testSubjectID2 := "subj-grades-sci"
	testSchoolYear := "2025-2026"

	// Cleanup Helper
	cleanup := func() {
		db.Collection(shared.ColGradeRecords).DeleteMany(ctx, bson.M{"semester_id": testSemesterID})
		db.Collection(shared.ColSections).DeleteOne(ctx, bson.M{"_id": testSectionID})
		db.Collection(shared.ColYearLevels).DeleteOne(ctx, bson.M{"_id": testYearLevelID})
		db.Collection(shared.ColSubjects).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": []string{testSubjectID1, testSubjectID2}}})
	}

	cleanup()
	defer cleanup()

	// Insert Dependencies (UpsertGrade validates existence of these entities)
	_, err := db.Collection(shared.ColSections).InsertOne(ctx, shared.Section{
		ID: testSectionID, Name: "Test Section A", AdviserID: testTeacherID,
		YearLevelID: testYearLevelID, StrandID: testStrandID,
	})
	if err != nil {
		t.Fatalf("Setup failed (section): %v", err)
	}

	_, err = db.Collection(shared.ColYearLevels).InsertOne(ctx, shared.YearLevel{
		ID: testYearLevelID, Name: "Grade 11",
	})
	if err != nil {
		t.Fatalf("Setup failed (year level): %v", err)
	}

	_, err = db.Collection(shared.ColSubjects).InsertMany(ctx, []interface{}{
		shared.Subject{ID: testSubjectID1, Name: "General Mathematics"},
		shared.Subject{ID: testSubjectID2, Name: "Earth Science"},
	})
	if err != nil {
		t.Fatalf("Setup failed (subjects): %v", err)
	}

	baseInput := func(studentID, subjectID string) UpsertGradeInput {
		return UpsertGradeInput{
			StudentID:   studentID,
			SubjectID:   subjectID,
			SemesterID:  testSemesterID,
			SectionID:   testSectionID,
			YearLevelID: testYearLevelID,
			StrandID:    testStrandID,
			SchoolYear:  testSchoolYear,
		}
	}

	// ========================================================================
	// Test 1: Upsert creates a record on first entry
	// ========================================================================
	t.Run("Upsert Creates Record", func(t *testing.T) {
		in := baseInput(testStudentID1, testSubjectID1)
		in.Midterm = f(80)
		in.Finals = f(90)

		record, err := service.UpsertGrade(ctx, in)
		if err != nil {
			t.Fatalf("UpsertGrade failed: %v", err)
		}

		entry := record.SubjectEntry(testSubjectID1)
		if entry == nil {
			t.Fatal("Expected a subject entry after upsert")
		}
		if entry.FinalRating == nil || *entry.FinalRating != 86.00 {
			t.Errorf("Expected final rating 86.00, got %v", entry.FinalRating)
		}
		if entry.Action != shared.ActionPassed {
			t.Errorf("Expected action PASSED, got %s", entry.Action)
		}
	})

	// ========================================================================
	// Test 2: Upserting again updates in place without duplicating
	// ========================================================================
	t.Run("Upsert Twice Keeps One Entry", func(t *testing.T) {
		in := baseInput(testStudentID1, testSubjectID1)
		in.Finals = f(60)

		record, err := service.UpsertGrade(ctx, in)
		if err != nil {
			t.Fatalf("Second UpsertGrade failed: %v", err)
		}

		count := 0
		for _, sg := range record.Subjects {
			if sg.SubjectID == testSubjectID1 {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("Expected 1 entry for subject, got %d", count)
		}

		// Midterm 80 kept, finals replaced: 80*0.4 + 60*0.6 = 68.00
		entry := record.SubjectEntry(testSubjectID1)
		if entry.Midterm == nil || *entry.Midterm != 80 {
			t.Errorf("Expected midterm 80 to be preserved, got %v", entry.Midterm)
		}
		if entry.FinalRating == nil || *entry.FinalRating != 68.00 {
			t.Errorf("Expected final rating 68.00, got %v", entry.FinalRating)
		}
		if entry.Action != shared.ActionFailed {
			t.Errorf("Expected action FAILED, got %s", entry.Action)
		}

		// Exactly one record document for the compound key
		n, err := db.Collection(shared.ColGradeRecords).CountDocuments(ctx, bson.M{
			"student_id": testStudentID1, "semester_id": testSemesterID,
		})
		if err != nil {
			t.Fatalf("CountDocuments failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 grade record, got %d", n)
		}
	})

	// ========================================================================
	// Test 3: Out-of-range scores are rejected
	// ========================================================================
	t.Run("Rejects Out Of Range Scores", func(t *testing.T) {
		in := baseInput(testStudentID1, testSubjectID1)
		in.Midterm = f(101)

		_, err := service.UpsertGrade(ctx, in)
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("Expected InvalidArgument, got %v", err)
		}
	})

	// ========================================================================
	// Test 4: Bulk upsert skips bad items without aborting the batch
	// ========================================================================
	t.Run("Bulk Upsert Skips And Reports", func(t *testing.T) {
		good1 := baseInput(testStudentID2, testSubjectID1)
		good1.Midterm = f(85)
		good1.Finals = f(88)

		good2 := baseInput(testStudentID2, testSubjectID2)
		good2.Midterm = f(70)
		good2.Finals = f(72)

		bad := baseInput(testStudentID2, "") // missing subject_id

		result, err := service.BulkUpsertGrades(ctx, []UpsertGradeInput{good1, bad, good2})
		if err != nil {
			t.Fatalf("BulkUpsertGrades failed: %v", err)
		}

		if result.UpdatedCount != 2 {
			t.Errorf("Expected 2 updates, got %d", result.UpdatedCount)
		}
		if len(result.SkippedItems) != 1 {
			t.Fatalf("Expected 1 skipped item, got %d", len(result.SkippedItems))
		}
		if result.SkippedItems[0].Index != 1 {
			t.Errorf("Expected skipped index 1, got %d", result.SkippedItems[0].Index)
		}
		if result.SkippedItems[0].Reason != "missing subject_id" {
			t.Errorf("Unexpected skip reason: %s", result.SkippedItems[0].Reason)
		}
	})

	// ========================================================================
	// Test 5: Single-field edit defers rating until both components exist
	// ========================================================================
	t.Run("Set Field Defers Rating", func(t *testing.T) {
		fieldStudentID := "student-grades-field"
		defer db.Collection(shared.ColGradeRecords).DeleteMany(ctx, bson.M{"student_id": fieldStudentID})

		record, err := service.SetSubjectGradeField(ctx, fieldStudentID, testSemesterID, testSubjectID1, "midterm", 75)
		if err != nil {
			t.Fatalf("SetSubjectGradeField (midterm) failed: %v", err)
		}
		entry := record.SubjectEntry(testSubjectID1)
		if entry.FinalRating != nil {
			t.Errorf("Expected no rating with only midterm set, got %v", *entry.FinalRating)
		}

		record, err = service.SetSubjectGradeField(ctx, fieldStudentID, testSemesterID, testSubjectID1, "finals", 85)
		if err != nil {
			t.Fatalf("SetSubjectGradeField (finals) failed: %v", err)
		}
		entry = record.SubjectEntry(testSubjectID1)
		// 75*0.4 + 85*0.6 = 81.00
		if entry.FinalRating == nil || *entry.FinalRating != 81.00 {
			t.Errorf("Expected final rating 81.00, got %v", entry.FinalRating)
		}
	})

	// ========================================================================
	// Test 6: Section averages over the adviser's sections
	// ========================================================================
	t.Run("Section Averages", func(t *testing.T) {
		// A midterm-only entry has no rating yet; it lands in student 1's
		// existing section record and must contribute to neither the sum
		// nor the count.
		if _, err := service.SetSubjectGradeField(ctx, testStudentID1, testSemesterID, testSubjectID2, "midterm", 50); err != nil {
			t.Fatalf("SetSubjectGradeField failed: %v", err)
		}

		averages, err := service.SectionAverages(ctx, testTeacherID, testSemesterID)
		if err != nil {
			t.Fatalf("SectionAverages failed: %v", err)
		}
		if len(averages) != 1 {
			t.Fatalf("Expected 1 section row, got %d", len(averages))
		}

		row := averages[0]
		if row.SectionName != "Test Section A" {
			t.Errorf("Unexpected section name: %s", row.SectionName)
		}
		if row.StudentCount != 2 {
			t.Errorf("Expected 2 students, got %d", row.StudentCount)
		}
		// Ratings present: 68.00 (student 1), 86.80 and 71.20 (student 2);
		// the unrated entry is excluded.
		want := 75.33
		if row.Average != want {
			t.Errorf("Expected average %.2f, got %.2f", want, row.Average)
		}
	})

	// ========================================================================
	// Test 7: Subject performance resolves subject names
	// ========================================================================
	t.Run("Subject Performance", func(t *testing.T) {
		performance, err := service.SubjectPerformance(ctx, []string{testSectionID}, testSemesterID)
		if err != nil {
			t.Fatalf("SubjectPerformance failed: %v", err)
		}
		if len(performance) != 2 {
			t.Fatalf("Expected 2 subject rows, got %d", len(performance))
		}

		// Sorted descending by average: math (68.00 + 86.80)/2 = 77.40 first
		if performance[0].SubjectName != "General Mathematics" {
			t.Errorf("Expected General Mathematics first, got %s", performance[0].SubjectName)
		}
		if performance[0].Average != 77.40 {
			t.Errorf("Expected math average 77.40, got %.2f", performance[0].Average)
		}
		if performance[1].SubjectName != "Earth Science" {
			t.Errorf("Expected Earth Science second, got %s", performance[1].SubjectName)
		}
		if performance[1].Average != 71.20 {
			t.Errorf("Expected science average 71.20, got %.2f", performance[1].Average)
		}
	})

	// ========================================================================
	// Test 8: Grades grouped by student for one subject
	// ========================================================================
	t.Run("Grades For Subject In Semester", func(t *testing.T) {
		grades, err := service.GradesForSubjectInSemester(ctx, testSubjectID1, testSemesterID)
		if err != nil {
			t.Fatalf("GradesForSubjectInSemester failed: %v", err)
		}
		if len(grades) != 2 {
			t.Fatalf("Expected entries for 2 students, got %d", len(grades))
		}
		if entry, ok := grades[testStudentID2]; !ok || entry.FinalRating == nil || *entry.FinalRating != 86.80 {
			t.Errorf("Unexpected entry for student 2: %+v", entry)
		}
	})
}

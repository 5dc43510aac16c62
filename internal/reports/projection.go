// Package reports builds the flat grade-history projection consumed by
// the Form 137 renderer. The renderer's cell-by-cell layout lives
// elsewhere; this package only assembles the data.
package reports

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schoolrecords/internal/shared"
)

const (
	unknownSubjectName  = "Unknown Subject"
	unknownSemesterName = "Unknown Semester"
)

// Service assembles grade-history projections.
type Service struct {
	db           *mongo.Database
	recordsCol   *mongo.Collection
	usersCol     *mongo.Collection
	subjectsCol  *mongo.Collection
	semestersCol *mongo.Collection
}

// NewService creates a new reports Service instance
func NewService(db *mongo.Database) *Service {
	return &Service{
		db:           db,
		recordsCol:   db.Collection(shared.ColGradeRecords),
		usersCol:     db.Collection(shared.ColUsers),
		subjectsCol:  db.Collection(shared.ColSubjects),
		semestersCol: db.Collection(shared.ColSemesters),
	}
}

// SubjectLine is one subject row of the projection.
type SubjectLine struct {
	SubjectName string   `json:"subject_name"`
	Midterm     *float64 `json:"midterm,omitempty"`
	Finals      *float64 `json:"finals,omitempty"`
	FinalRating *float64 `json:"final_rating,omitempty"`
	Action      string   `json:"action,omitempty"`
}

// SemesterHistory groups one semester's subject lines.
type SemesterHistory struct {
	SemesterID   string        `json:"semester_id"`
	SemesterName string        `json:"semester_name"`
	SchoolYear   string        `json:"school_year"`
	Subjects     []SubjectLine `json:"subjects"`
}

// GradeHistory is the full projection for one student.
type GradeHistory struct {
	StudentID   string            `json:"student_id"`
	StudentName string            `json:"student_name"`
	PerSemester []SemesterHistory `json:"per_semester"`
}

// GradeHistory resolves a student's complete grade history with subject
// and semester names joined in. Unresolvable references render as
// placeholder strings rather than failing the whole report.
func (s *Service) GradeHistory(ctx context.Context, studentID string) (*GradeHistory, error) {
	if studentID == "" {
		return nil, status.Error(codes.InvalidArgument, "student_id is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var student shared.User
	if err := s.usersCol.FindOne(queryCtx, bson.M{"_id": studentID}).Decode(&student); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, status.Error(codes.NotFound, "student not found")
		}
		log.Printf("Error finding student %s: %v", studentID, err)
		return nil, status.Error(codes.Internal, "failed to retrieve student")
	}
	if student.Role != shared.RoleStudent {
		return nil, status.Error(codes.InvalidArgument, "user is not a student")
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "school_year", Value: 1}, {Key: "semester_id", Value: 1}})
	cursor, err := s.recordsCol.Find(queryCtx, bson.M{"student_id": studentID}, findOptions)
	if err != nil {
		log.Printf("Error querying grade records: %v", err)
		return nil, status.Error(codes.Internal, "failed to retrieve grade records")
	}
	defer cursor.Close(queryCtx)

	history := &GradeHistory{
		StudentID:   studentID,
		StudentName: student.Name,
		PerSemester: []SemesterHistory{},
	}

	for cursor.Next(queryCtx) {
		var record shared.GradeRecord
		if err := cursor.Decode(&record); err != nil {
			continue
		}

		sem := SemesterHistory{
			SemesterID:   record.SemesterID,
			SemesterName: s.semesterName(queryCtx, record.SemesterID),
			SchoolYear:   record.SchoolYear,
			Subjects:     make([]SubjectLine, 0, len(record.Subjects)),
		}

		for _, entry := range record.Subjects {
			sem.Subjects = append(sem.Subjects, SubjectLine{
				SubjectName: s.subjectName(queryCtx, entry.SubjectID),
				Midterm:     entry.Midterm,
				Finals:      entry.Finals,
				FinalRating: entry.FinalRating,
				Action:      entry.Action,
			})
		}

		history.PerSemester = append(history.PerSemester, sem)
	}

	return history, nil
}

func (s *Service) subjectName(ctx context.Context, subjectID string) string {
	var subject shared.Subject
	if err := s.subjectsCol.FindOne(ctx, bson.M{"_id": subjectID}).Decode(&subject); err != nil || subject.Name == "" {
		return unknownSubjectName
	}
	return subject.Name
}

func (s *Service) semesterName(ctx context.Context, semesterID string) string {
	var semester shared.Semester
	if err := s.semestersCol.FindOne(ctx, bson.M{"_id": semesterID}).Decode(&semester); err != nil || semester.Name == "" {
		return unknownSemesterName
	}
	return semester.Name
}

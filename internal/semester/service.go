package semester

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schoolrecords/internal/shared"
)

// Service owns the semester lifecycle: creation, listing, and the
// end-of-term transition with its cascading student-status update.
type Service struct {
	client        *mongo.Client
	db            *mongo.Database
	semestersCol  *mongo.Collection
	usersCol      *mongo.Collection
	strandsCol    *mongo.Collection
	yearLevelsCol *mongo.Collection
}

// NewService creates a new semester Service instance. The client is kept
// so EndSemester can run its two writes in one transaction.
func NewService(client *mongo.Client, db *mongo.Database) *Service {
	return &Service{
		client:        client,
		db:            db,
		semestersCol:  db.Collection(shared.ColSemesters),
		usersCol:      db.Collection(shared.ColUsers),
		strandsCol:    db.Collection(shared.ColStrands),
		yearLevelsCol: db.Collection(shared.ColYearLevels),
	}
}

// CreateSemesterInput carries the fields required to open a semester.
type CreateSemesterInput struct {
	Name        string    `json:"name"`
	StrandID    string    `json:"strand_id"`
	YearLevelID string    `json:"year_level_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// EndSemesterResult reports the outcome of an end-of-term transition.
type EndSemesterResult struct {
	SemesterStatus       string `json:"semester_status"`
	AffectedStudentCount int64  `json:"affected_student_count"`
}

// CreateSemester opens a new semester in the active state.
func (s *Service) CreateSemester(ctx context.Context, in CreateSemesterInput) (*shared.Semester, error) {
	if !shared.IsValidSemesterName(in.Name) {
		return nil, status.Errorf(codes.InvalidArgument, "invalid semester name: %s", in.Name)
	}
	if in.StrandID == "" {
		return nil, status.Error(codes.InvalidArgument, "strand_id is required")
	}
	if in.YearLevelID == "" {
		return nil, status.Error(codes.InvalidArgument, "year_level_id is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "start_date and end_date are required")
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, status.Error(codes.InvalidArgument, "end_date must be after start_date")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var strand shared.Strand
	if err := s.strandsCol.FindOne(queryCtx, bson.M{"_id": in.StrandID}).Decode(&strand); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, status.Error(codes.NotFound, "strand not found")
		}
		log.Printf("Error finding strand %s: %v", in.StrandID, err)
		return nil, status.Error(codes.Internal, "failed to retrieve strand")
	}

	var yearLevel shared.YearLevel
	if err := s.yearLevelsCol.FindOne(queryCtx, bson.M{"_id": in.YearLevelID}).Decode(&yearLevel); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, status.Error(codes.NotFound, "year level not found")
		}
		log.Printf("Error finding year level %s: %v", in.YearLevelID, err)
		return nil, status.Error(codes.Internal, "failed to retrieve year level")
	}

	now := time.Now()
	semester := shared.Semester{
		ID:          uuid.NewString(),
		Name:        in.Name,
		StrandID:    in.StrandID,
		YearLevelID: in.YearLevelID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      shared.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.semestersCol.InsertOne(queryCtx, semester); err != nil {
		log.Printf("Error inserting semester: %v", err)
		return nil, status.Error(codes.Internal, "failed to create semester")
	}

	return &semester, nil
}

// ListSemesters returns semesters, newest start date first, optionally
// filtered by strand, year level, or status.
func (s *Service) ListSemesters(ctx context.Context, strandID, yearLevelID, semStatus string) ([]shared.Semester, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if strandID != "" {
		filter["strand_id"] = strandID
	}
	if yearLevelID != "" {
		filter["year_level_id"] = yearLevelID
	}
	if semStatus != "" {
		filter["status"] = semStatus
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}})
	cursor, err := s.semestersCol.Find(queryCtx, filter, findOptions)
	if err != nil {
		log.Printf("Error querying semesters: %v", err)
		return nil, status.Error(codes.Internal, "failed to retrieve semesters")
	}
	defer cursor.Close(queryCtx)

	semesters := []shared.Semester{}
	if err := cursor.All(queryCtx, &semesters); err != nil {
		return nil, status.Error(codes.Internal, "failed to decode semesters")
	}

	return semesters, nil
}

// EndSemester moves a semester from active to pending once its end date
// has passed, and in the same transaction flips every matching active
// student to pending. There is no reverse transition; re-activation
// belongs to a separate re-enrollment workflow.
func (s *Service) EndSemester(ctx context.Context, semesterID string) (*EndSemesterResult, error) {
	if semesterID == "" {
		return nil, status.Error(codes.InvalidArgument, "semester_id is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var semester shared.Semester
	if err := s.semestersCol.FindOne(queryCtx, bson.M{"_id": semesterID}).Decode(&semester); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, status.Error(codes.NotFound, "semester not found")
		}
		log.Printf("Error finding semester %s: %v", semesterID, err)
		return nil, status.Error(codes.Internal, "failed to retrieve semester")
	}

	if !time.Now().After(semester.EndDate) {
		return nil, status.Error(codes.FailedPrecondition, "semester has not yet ended")
	}

	var affected int64
	err := shared.WithTransaction(queryCtx, s.client, func(sessCtx mongo.SessionContext) error {
		studentFilter := bson.M{
			"role":          shared.RoleStudent,
			"year_level_id": semester.YearLevelID,
			"status":        shared.StatusActive,
		}
		studentUpdate := bson.M{"$set": bson.M{"status": shared.StatusPending, "updated_at": time.Now()}}

		result, err := s.usersCol.UpdateMany(sessCtx, studentFilter, studentUpdate)
		if err != nil {
			return err
		}
		affected = result.ModifiedCount

		semesterUpdate := bson.M{"$set": bson.M{"status": shared.StatusPending, "updated_at": time.Now()}}
		_, err = s.semestersCol.UpdateOne(sessCtx, bson.M{"_id": semesterID}, semesterUpdate)
		return err
	})
	if err != nil {
		log.Printf("Error ending semester %s: %v", semesterID, err)
		return nil, status.Error(codes.Internal, "failed to end semester")
	}

	return &EndSemesterResult{
		SemesterStatus:       shared.StatusPending,
		AffectedStudentCount: affected,
	}, nil
}

package grades

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schoolrecords/internal/shared"
)

// unknownSubjectName is the placeholder rendered when a subject reference
// no longer resolves. Aggregation reads degrade instead of failing.
const unknownSubjectName = "Unknown Subject"

// Service owns per-student, per-semester grade record aggregates.
type Service struct {
	db            *mongo.Database
	recordsCol    *mongo.Collection
	sectionsCol   *mongo.Collection
	subjectsCol   *mongo.Collection
	yearLevelsCol *mongo.Collection
}

// NewService creates a new grade record Service instance
func NewService(db *mongo.Database) *Service {
	return &Service{
		db:            db,
		recordsCol:    db.Collection(shared.ColGradeRecords),
		sectionsCol:   db.Collection(shared.ColSections),
		subjectsCol:   db.Collection(shared.ColSubjects),
		yearLevelsCol: db.Collection(shared.ColYearLevels),
	}
}

// UpsertGradeInput carries one grade entry plus the compound-key context
// that locates the student's record for the semester.
type UpsertGradeInput struct {
	StudentID   string   `json:"student_id"`
	SubjectID   string   `json:"subject_id"`
	SemesterID  string   `json:"semester_id"`
	SectionID   string   `json:"section_id"`
	YearLevelID string   `json:"year_level_id"`
	StrandID    string   `json:"strand_id"`
	SchoolYear  string   `json:"school_year"`
	Midterm     *float64 `json:"midterm,omitempty"`
	Finals      *float64 `json:"finals,omitempty"`
}

// SkippedItem describes a bulk item that was not applied.
type SkippedItem struct {
	Index     int    `json:"index"`
	StudentID string `json:"student_id,omitempty"`
	SubjectID string `json:"subject_id,omitempty"`
	Reason    string `json:"reason"`
}

// BulkResult reports the outcome of a bulk grade upsert.
type BulkResult struct {
	UpdatedCount int                   `json:"updated_count"`
	UpdatedItems []*shared.GradeRecord `json:"updated_items"`
	SkippedItems []SkippedItem         `json:"skipped_items"`
}

// SectionAverage is one row of the per-section average report.
type SectionAverage struct {
	SectionName  string  `json:"section_name"`
	Average      float64 `json:"average"`
	StudentCount int     `json:"student_count"`
}

// SubjectAverage is one row of the per-subject performance report.
type SubjectAverage struct {
	SubjectName string  `json:"subject_name"`
	Average     float64 `json:"average"`
}

// UpsertGrade records a midterm/finals entry for one student and subject.
// It locates the grade record by its compound key, creating it on first
// entry, then updates or appends the subject's entry and recomputes the
// final rating and pass/fail action.
func (s *Service) UpsertGrade(ctx context.Context, in UpsertGradeInput) (*shared.GradeRecord, error) {
	if in.StudentID == "" {
		return nil, status.Error(codes.InvalidArgument, "student_id is required")
	}
	if in.SubjectID == "" {
		return nil, status.Error(codes.InvalidArgument, "subject_id is required")
	}
	if in.SemesterID == "" {
		return nil, status.Error(codes.InvalidArgument, "semester_id is required")
	}
	if !InScoreRange(in.Midterm) {
		return nil, status.Error(codes.InvalidArgument, "midterm must be between 0 and 100")
	}
	if !InScoreRange(in.Finals) {
		return nil, status.Error(codes.InvalidArgument, "finals must be between 0 and 100")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Section and year level must resolve before anything is written.
	var section shared.Section
	if err := s.sectionsCol.FindOne(queryCtx, bson.M{"_id": in.SectionID}).Decode(&section); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, status.Error(codes.NotFound, "section not found")
		}
		log.Printf("Error finding section %s: %v", in.SectionID, err)
		return nil, status.Error(codes.Internal, "failed to retrieve section")
	}

	var yearLevel shared.YearLevel
	if err := s.yearLevelsCol.FindOne(queryCtx, bson.M{"_id": in.YearLevelID}).Decode(&yearLevel); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, status.Error(codes.NotFound, "year level not found")
		}
		log.Printf("Error finding year level %s: %v", in.YearLevelID, err)
		return nil, status.Error(codes.Internal, "failed to retrieve year level")
	}

	filter := recordKeyFilter(in)
	now := time.Now()

	var record shared.GradeRecord
	err := s.recordsCol.FindOne(queryCtx, filter).Decode(&record)
	if err == mongo.ErrNoDocuments {
		record = shared.GradeRecord{
			ID:          uuid.NewString(),
			StudentID:   in.StudentID,
			SemesterID:  in.SemesterID,
			SectionID:   in.SectionID,
			YearLevelID: in.YearLevelID,
			StrandID:    in.StrandID,
			SchoolYear:  in.SchoolYear,
			Subjects:    []shared.SubjectGrade{newSubjectGrade(in)},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := s.recordsCol.InsertOne(queryCtx, record); err != nil {
			log.Printf("Error inserting grade record for student %s: %v", in.StudentID, err)
			return nil, status.Error(codes.Internal, "failed to create grade record")
		}
		return &record, nil
	}
	if err != nil {
		log.Printf("Error finding grade record for student %s: %v", in.StudentID, err)
		return nil, status.Error(codes.Internal, "failed to retrieve grade record")
	}

	entry := record.SubjectEntry(in.SubjectID)
	if entry == nil {
		record.Subjects = append(record.Subjects, newSubjectGrade(in))
	} else {
		// Only explicitly provided components change.
		if in.Midterm != nil {
			entry.Midterm = in.Midterm
		}
		if in.Finals != nil {
			entry.Finals = in.Finals
		}
		rating := FinalRating(entry.Midterm, entry.Finals)
		entry.FinalRating = &rating
		entry.Action = Classify(rating)
	}
	record.UpdatedAt = now

	update := bson.M{"$set": bson.M{"subjects": record.Subjects, "updated_at": record.UpdatedAt}}
	if _, err := s.recordsCol.UpdateOne(queryCtx, bson.M{"_id": record.ID}, update); err != nil {
		log.Printf("Error updating grade record %s: %v", record.ID, err)
		return nil, status.Error(codes.Internal, "failed to update grade record")
	}

	return &record, nil
}

// BulkUpsertGrades applies UpsertGrade per item. Items missing a required
// identifier are skipped and reported; one item's failure does not abort
// the batch. The batch as a whole is not atomic.
func (s *Service) BulkUpsertGrades(ctx context.Context, items []UpsertGradeInput) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, status.Error(codes.InvalidArgument, "at least one grade item is required")
	}

	result := &BulkResult{
		UpdatedItems: []*shared.GradeRecord{},
		SkippedItems: []SkippedItem{},
	}

	for i, item := range items {
		if reason := missingIdentifier(item); reason != "" {
			result.SkippedItems = append(result.SkippedItems, SkippedItem{
				Index: i, StudentID: item.StudentID, SubjectID: item.SubjectID, Reason: reason,
			})
			continue
		}

		record, err := s.UpsertGrade(ctx, item)
		if err != nil {
			result.SkippedItems = append(result.SkippedItems, SkippedItem{
				Index: i, StudentID: item.StudentID, SubjectID: item.SubjectID,
				Reason: status.Convert(err).Message(),
			})
			continue
		}

		result.UpdatedCount++
		result.UpdatedItems = append(result.UpdatedItems, record)
	}

	return result, nil
}

// SetSubjectGradeField is the narrow single-field edit path. It creates
// the grade record and subject entry if absent, sets the named component,
// and recomputes the rating only once both components are present.
func (s *Service) SetSubjectGradeField(ctx context.Context, studentID, semesterID, subjectID, field string, value float64) (*shared.GradeRecord, error) {
	if studentID == "" {
		return nil, status.Error(codes.InvalidArgument, "student_id is required")
	}
	if semesterID == "" {
		return nil, status.Error(codes.InvalidArgument, "semester_id is required")
	}
	if subjectID == "" {
		return nil, status.Error(codes.InvalidArgument, "subject_id is required")
	}
	if field != "midterm" && field != "finals" {
		return nil, status.Errorf(codes.InvalidArgument, "unknown grade field: %s", field)
	}
	if !InScoreRange(&value) {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be between 0 and 100", field)
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()

	var record shared.GradeRecord
	err := s.recordsCol.FindOne(queryCtx, bson.M{"student_id": studentID, "semester_id": semesterID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		record = shared.GradeRecord{
			ID:         uuid.NewString(),
			StudentID:  studentID,
			SemesterID: semesterID,
			Subjects:   []shared.SubjectGrade{},
			CreatedAt:  now,
		}
		if _, err := s.recordsCol.InsertOne(queryCtx, record); err != nil {
			log.Printf("Error inserting grade record for student %s: %v", studentID, err)
			return nil, status.Error(codes.Internal, "failed to create grade record")
		}
	} else if err != nil {
		log.Printf("Error finding grade record for student %s: %v", studentID, err)
		return nil, status.Error(codes.Internal, "failed to retrieve grade record")
	}

	entry := record.SubjectEntry(subjectID)
	if entry == nil {
		record.Subjects = append(record.Subjects, shared.SubjectGrade{SubjectID: subjectID})
		entry = &record.Subjects[len(record.Subjects)-1]
	}

	if field == "midterm" {
		entry.Midterm = &value
	} else {
		entry.Finals = &value
	}

	if entry.Midterm != nil && entry.Finals != nil {
		rating := FinalRating(entry.Midterm, entry.Finals)
		entry.FinalRating = &rating
		entry.Action = Classify(rating)
	}
	record.UpdatedAt = now

	update := bson.M{"$set": bson.M{"subjects": record.Subjects, "updated_at": record.UpdatedAt}}
	if _, err := s.recordsCol.UpdateOne(queryCtx, bson.M{"_id": record.ID}, update); err != nil {
		log.Printf("Error updating grade record %s: %v", record.ID, err)
		return nil, status.Error(codes.Internal, "failed to update grade record")
	}

	return &record, nil
}

// GradesForStudent retrieves all grade records for a student, oldest
// school year first.
func (s *Service) GradesForStudent(ctx context.Context, studentID string) ([]shared.GradeRecord, error) {
	if studentID == "" {
		return nil, status.Error(codes.InvalidArgument, "student_id is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "school_year", Value: 1}, {Key: "semester_id", Value: 1}})
	cursor, err := s.recordsCol.Find(queryCtx, bson.M{"student_id": studentID}, findOptions)
	if err != nil {
		log.Printf("Error querying grade records: %v", err)
		return nil, status.Error(codes.Internal, "failed to retrieve grade records")
	}
	defer cursor.Close(queryCtx)

	records := []shared.GradeRecord{}
	if err := cursor.All(queryCtx, &records); err != nil {
		log.Printf("Error decoding grade records: %v", err)
		return nil, status.Error(codes.Internal, "failed to decode grade records")
	}

	return records, nil
}

// GradesForSubjectInSemester groups a subject's entries by student across
// one semester, keeping only the matching subject's entry per record.
func (s *Service) GradesForSubjectInSemester(ctx context.Context, subjectID, semesterID string) (map[string]shared.SubjectGrade, error) {
	if subjectID == "" {
		return nil, status.Error(codes.InvalidArgument, "subject_id is required")
	}
	if semesterID == "" {
		return nil, status.Error(codes.InvalidArgument, "semester_id is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := s.recordsCol.Find(queryCtx, bson.M{"semester_id": semesterID, "subjects.subject_id": subjectID})
	if err != nil {
		log.Printf("Error querying grade records: %v", err)
		return nil, status.Error(codes.Internal, "failed to retrieve grade records")
	}
	defer cursor.Close(queryCtx)

	grades := make(map[string]shared.SubjectGrade)
	for cursor.Next(queryCtx) {
		var record shared.GradeRecord
		if err := cursor.Decode(&record); err != nil {
			continue
		}
		if entry := record.SubjectEntry(subjectID); entry != nil {
			grades[record.StudentID] = *entry
		}
	}

	return grades, nil
}

// AdvisedSectionIDs returns the IDs of every section advised by a teacher.
func (s *Service) AdvisedSectionIDs(ctx context.Context, teacherID string) ([]string, error) {
	sections, err := s.advisedSections(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(sections))
	for _, sec := range sections {
		ids = append(ids, sec.ID)
	}
	return ids, nil
}

// SectionAverages computes, for each section advised by the teacher, the
// mean final rating across every subject entry that has one. Entries
// without a rating are excluded from both the sum and the count.
func (s *Service) SectionAverages(ctx context.Context, teacherID, semesterID string) ([]SectionAverage, error) {
	if teacherID == "" {
		return nil, status.Error(codes.InvalidArgument, "teacher_id is required")
	}
	if semesterID == "" {
		return nil, status.Error(codes.InvalidArgument, "semester_id is required")
	}

	sections, err := s.advisedSections(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	averages := []SectionAverage{}
	for _, section := range sections {
		cursor, err := s.recordsCol.Find(queryCtx, bson.M{"section_id": section.ID, "semester_id": semesterID})
		if err != nil {
			log.Printf("Error querying grade records for section %s: %v", section.ID, err)
			return nil, status.Error(codes.Internal, "failed to retrieve grade records")
		}

		var ratings []float64
		studentCount := 0
		for cursor.Next(queryCtx) {
			var record shared.GradeRecord
			if err := cursor.Decode(&record); err != nil {
				continue
			}
			studentCount++
			for _, entry := range record.Subjects {
				if entry.FinalRating != nil {
					ratings = append(ratings, *entry.FinalRating)
				}
			}
		}
		cursor.Close(queryCtx)

		average := 0.0
		if len(ratings) > 0 {
			if average, err = stats.Mean(ratings); err != nil {
				return nil, status.Error(codes.Internal, "failed to compute section average")
			}
			average = round2(average)
		}

		averages = append(averages, SectionAverage{
			SectionName:  section.Name,
			Average:      average,
			StudentCount: studentCount,
		})
	}

	sort.Slice(averages, func(i, j int) bool { return averages[i].Average > averages[j].Average })
	return averages, nil
}

// SubjectPerformance averages final ratings per subject across the given
// sections for one semester. Subjects with no contributing entries are
// excluded; unresolved subject references render as a placeholder name.
func (s *Service) SubjectPerformance(ctx context.Context, sectionIDs []string, semesterID string) ([]SubjectAverage, error) {
	if semesterID == "" {
		return nil, status.Error(codes.InvalidArgument, "semester_id is required")
	}
	if len(sectionIDs) == 0 {
		return []SubjectAverage{}, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := s.recordsCol.Find(queryCtx, bson.M{
		"section_id":  bson.M{"$in": sectionIDs},
		"semester_id": semesterID,
	})
	if err != nil {
		log.Printf("Error querying grade records: %v", err)
		return nil, status.Error(codes.Internal, "failed to retrieve grade records")
	}
	defer cursor.Close(queryCtx)

	ratingsBySubject := make(map[string][]float64)
	for cursor.Next(queryCtx) {
		var record shared.GradeRecord
		if err := cursor.Decode(&record); err != nil {
			continue
		}
		for _, entry := range record.Subjects {
			if entry.FinalRating != nil {
				ratingsBySubject[entry.SubjectID] = append(ratingsBySubject[entry.SubjectID], *entry.FinalRating)
			}
		}
	}

	performance := []SubjectAverage{}
	for subjectID, ratings := range ratingsBySubject {
		average, err := stats.Mean(ratings)
		if err != nil {
			continue
		}
		performance = append(performance, SubjectAverage{
			SubjectName: s.subjectName(queryCtx, subjectID),
			Average:     round2(average),
		})
	}

	sort.Slice(performance, func(i, j int) bool { return performance[i].Average > performance[j].Average })
	return performance, nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func recordKeyFilter(in UpsertGradeInput) bson.M {
	return bson.M{
		"student_id":    in.StudentID,
		"semester_id":   in.SemesterID,
		"school_year":   in.SchoolYear,
		"year_level_id": in.YearLevelID,
		"section_id":    in.SectionID,
		"strand_id":     in.StrandID,
	}
}

func newSubjectGrade(in UpsertGradeInput) shared.SubjectGrade {
	rating := FinalRating(in.Midterm, in.Finals)
	return shared.SubjectGrade{
		SubjectID:   in.SubjectID,
		Midterm:     in.Midterm,
		Finals:      in.Finals,
		FinalRating: &rating,
		Action:      Classify(rating),
	}
}

func missingIdentifier(in UpsertGradeInput) string {
	switch {
	case in.StudentID == "":
		return "missing student_id"
	case in.SubjectID == "":
		return "missing subject_id"
	case in.SemesterID == "":
		return "missing semester_id"
	}
	return ""
}

func (s *Service) advisedSections(ctx context.Context, teacherID string) ([]shared.Section, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := s.sectionsCol.Find(queryCtx, bson.M{"adviser_id": teacherID})
	if err != nil {
		log.Printf("Error querying sections for teacher %s: %v", teacherID, err)
		return nil, status.Error(codes.Internal, "failed to retrieve sections")
	}
	defer cursor.Close(queryCtx)

	sections := []shared.Section{}
	if err := cursor.All(queryCtx, &sections); err != nil {
		return nil, status.Error(codes.Internal, "failed to decode sections")
	}
	return sections, nil
}

func (s *Service) subjectName(ctx context.Context, subjectID string) string {
	var subject shared.Subject
	if err := s.subjectsCol.FindOne(ctx, bson.M{"_id": subjectID}).Decode(&subject); err != nil {
		return unknownSubjectName
	}
	if subject.Name == "" {
		return unknownSubjectName
	}
	return subject.Name
}

package attendance

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schoolrecords/internal/shared"
)

// Service owns per-section, per-month attendance sheets and the weekly
// summaries derived from them.
type Service struct {
	db           *mongo.Database
	sheetsCol    *mongo.Collection
	usersCol     *mongo.Collection
	semestersCol *mongo.Collection
}

// NewService creates a new attendance Service instance
func NewService(db *mongo.Database) *Service {
	return &Service{
		db:           db,
		sheetsCol:    db.Collection(shared.ColAttendanceSheets),
		usersCol:     db.Collection(shared.ColUsers),
		semestersCol: db.Collection(shared.ColSemesters),
	}
}

// StudentRecordInput is one student's row of a submitted monthly sheet.
type StudentRecordInput struct {
	StudentID string            `json:"student_id"`
	Week1     map[string]string `json:"week1,omitempty"`
	Week2     map[string]string `json:"week2,omitempty"`
	Week3     map[string]string `json:"week3,omitempty"`
	Week4     map[string]string `json:"week4,omitempty"`
	Week5     map[string]string `json:"week5,omitempty"`
	Remarks   string            `json:"remarks,omitempty"`
}

// SaveSheetInput carries a full monthly attendance submission.
type SaveSheetInput struct {
	SectionID  string               `json:"section_id"`
	Month      string               `json:"month"` // YYYY-MM
	SchoolYear string               `json:"school_year"`
	SemesterID string               `json:"semester_id"`
	TeacherID  string               `json:"teacher_id"`
	Records    []StudentRecordInput `json:"records"`
}

// DayTally is one weekday bucket of a weekly summary.
type DayTally struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// WeekSummary is the per-weekday attendance report for one week window.
type WeekSummary struct {
	Days          map[string]DayTally `json:"days"`
	DateRange     string              `json:"date_range"`
	TotalStudents int64               `json:"total_students"`
}

// SaveSheet saves a section's monthly attendance. If a sheet already
// exists for the (section, month, semester) tuple its records list is
// replaced wholesale; there is no per-student merge. Absent/tardy totals
// are recomputed by full rescan before persisting.
func (s *Service) SaveSheet(ctx context.Context, in SaveSheetInput) (*shared.AttendanceSheet, error) {
	if in.SectionID == "" {
		return nil, status.Error(codes.InvalidArgument, "section_id is required")
	}
	if in.Month == "" {
		return nil, status.Error(codes.InvalidArgument, "month is required")
	}
	if _, err := time.Parse("2006-01", in.Month); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "month must be in YYYY-MM format: %s", in.Month)
	}
	if in.SchoolYear == "" {
		return nil, status.Error(codes.InvalidArgument, "school_year is required")
	}
	if in.SemesterID == "" {
		return nil, status.Error(codes.InvalidArgument, "semester_id is required")
	}
	if in.TeacherID == "" {
		return nil, status.Error(codes.InvalidArgument, "teacher_id is required")
	}

	records := make([]shared.StudentWeekAttendance, 0, len(in.Records))
	for i, rec := range in.Records {
		if rec.StudentID == "" {
			return nil, status.Errorf(codes.InvalidArgument, "records[%d]: student_id is required", i)
		}

		swa := shared.StudentWeekAttendance{
			StudentID: rec.StudentID,
			Remarks:   rec.Remarks,
		}

		weeks := []map[string]string{rec.Week1, rec.Week2, rec.Week3, rec.Week4, rec.Week5}
		normalized := [5]shared.WeekAttendance{}
		for w, week := range weeks {
			nw, err := normalizeWeek(week)
			if err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "records[%d].week%d: %v", i, w+1, err)
			}
			normalized[w] = nw
		}
		swa.Week1, swa.Week2, swa.Week3, swa.Week4, swa.Week5 =
			normalized[0], normalized[1], normalized[2], normalized[3], normalized[4]

		Recount(&swa)
		records = append(records, swa)
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	key := bson.M{
		"section_id":  in.SectionID,
		"month":       in.Month,
		"semester_id": in.SemesterID,
	}
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"records":     records,
			"school_year": in.SchoolYear,
			"teacher_id":  in.TeacherID,
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.sheetsCol.UpdateOne(queryCtx, key, update, opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Unique-index backstop for a racing first save on the tuple.
			return nil, status.Error(codes.FailedPrecondition, "attendance sheet already exists for this section, month, and semester")
		}
		log.Printf("Error saving attendance sheet for section %s: %v", in.SectionID, err)
		return nil, status.Error(codes.Internal, "failed to save attendance sheet")
	}

	var sheet shared.AttendanceSheet
	if err := s.sheetsCol.FindOne(queryCtx, key).Decode(&sheet); err != nil {
		log.Printf("Error reloading attendance sheet for section %s: %v", in.SectionID, err)
		return nil, status.Error(codes.Internal, "failed to load attendance sheet")
	}

	return &sheet, nil
}

// GetSheet returns the sheet for the tuple, or an empty-records shape when
// none exists yet. A missing sheet is a valid state, not an error.
func (s *Service) GetSheet(ctx context.Context, sectionID, month, semesterID, teacherID string) (*shared.AttendanceSheet, error) {
	if sectionID == "" {
		return nil, status.Error(codes.InvalidArgument, "section_id is required")
	}
	if month == "" {
		return nil, status.Error(codes.InvalidArgument, "month is required")
	}
	if semesterID == "" {
		return nil, status.Error(codes.InvalidArgument, "semester_id is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var sheet shared.AttendanceSheet
	err := s.sheetsCol.FindOne(queryCtx, bson.M{
		"section_id":  sectionID,
		"month":       month,
		"semester_id": semesterID,
	}).Decode(&sheet)
	if err == mongo.ErrNoDocuments {
		return &shared.AttendanceSheet{
			SectionID:  sectionID,
			Month:      month,
			SemesterID: semesterID,
			TeacherID:  teacherID,
			Records:    []shared.StudentWeekAttendance{},
		}, nil
	}
	if err != nil {
		log.Printf("Error finding attendance sheet: %v", err)
		return nil, status.Error(codes.Internal, "failed to retrieve attendance sheet")
	}

	return &sheet, nil
}

// SummarizeWeek tallies per-weekday present/absent counts for the week
// window named by the selector. Tardies are not counted here. The student
// total comes from the section roster, independent of whether anyone has
// attendance entries.
func (s *Service) SummarizeWeek(ctx context.Context, sectionID, semesterID, teacherID string, selector WeekSelector) (*WeekSummary, error) {
	if sectionID == "" {
		return nil, status.Error(codes.InvalidArgument, "section_id is required")
	}
	if semesterID == "" {
		return nil, status.Error(codes.InvalidArgument, "semester_id is required")
	}
	if !selector.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown week selector: %s", selector)
	}

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start, end := WeekWindow(time.Now(), selector)
	month := start.Format("2006-01")

	summary := &WeekSummary{
		Days:      emptyDays(),
		DateRange: fmt.Sprintf("%s - %s", start.Format("2006-01-02"), end.Format("2006-01-02")),
	}

	total, err := s.usersCol.CountDocuments(queryCtx, bson.M{
		"role":       shared.RoleStudent,
		"section_id": sectionID,
	})
	if err != nil {
		log.Printf("Error counting section roster for %s: %v", sectionID, err)
		return nil, status.Error(codes.Internal, "failed to count section roster")
	}
	summary.TotalStudents = total

	var sheet shared.AttendanceSheet
	err = s.sheetsCol.FindOne(queryCtx, bson.M{
		"section_id":  sectionID,
		"month":       month,
		"semester_id": semesterID,
	}).Decode(&sheet)
	if err == mongo.ErrNoDocuments {
		return summary, nil
	}
	if err != nil {
		log.Printf("Error finding attendance sheet: %v", err)
		return nil, status.Error(codes.Internal, "failed to retrieve attendance sheet")
	}

	weekNumber := WeekNumberInMonth(start)
	if weekNumber < 1 || weekNumber > 5 {
		return summary, nil
	}

	for i := range sheet.Records {
		week := sheet.Records[i].Weeks()[weekNumber-1]
		for code, dayStatus := range week {
			bucket, ok := dayBuckets[code]
			if !ok {
				continue
			}
			tally := summary.Days[bucket]
			switch {
			case strings.EqualFold(dayStatus, shared.AttendancePresent):
				tally.Present++
			case strings.EqualFold(dayStatus, shared.AttendanceAbsent):
				tally.Absent++
			}
			summary.Days[bucket] = tally
		}
	}

	return summary, nil
}

// ============================================================================
// Helper Functions
// ============================================================================

// normalizeWeek validates day codes and statuses against their enums and
// canonicalizes status casing. Unrecognized codes are rejected rather than
// silently ignored. A nil week defaults to empty.
func normalizeWeek(week map[string]string) (shared.WeekAttendance, error) {
	normalized := shared.WeekAttendance{}
	for code, dayStatus := range week {
		upperCode := strings.ToUpper(code)
		if !shared.IsValidDayCode(upperCode) {
			return nil, fmt.Errorf("unrecognized day code: %s", code)
		}
		canonical := canonicalStatus(dayStatus)
		if canonical == "" {
			return nil, fmt.Errorf("unrecognized attendance status: %s", dayStatus)
		}
		normalized[upperCode] = canonical
	}
	return normalized, nil
}

func canonicalStatus(dayStatus string) string {
	if dayStatus == "" {
		return ""
	}
	canonical := strings.ToUpper(dayStatus[:1]) + strings.ToLower(dayStatus[1:])
	if !shared.IsValidAttendanceStatus(canonical) {
		return ""
	}
	return canonical
}

func emptyDays() map[string]DayTally {
	days := make(map[string]DayTally, len(dayBuckets))
	for _, bucket := range dayBuckets {
		days[bucket] = DayTally{}
	}
	return days
}

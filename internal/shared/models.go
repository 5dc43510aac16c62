// ============================================================================
// internal/shared/models.go
// Shared data models and structs for MongoDB documents
// ============================================================================

package shared

import (
	"time"
)

// ============================================================================
// User Models
// ============================================================================

// User represents a user account (student, teacher, or admin)
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"` // Never expose in JSON
	Role         string    `bson:"role" json:"role"`       // student, teacher, admin
	Name         string    `bson:"name" json:"name"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`

	// Student-specific fields
	StudentNumber string `bson:"student_number,omitempty" json:"student_number,omitempty"`
	YearLevelID   string `bson:"year_level_id,omitempty" json:"year_level_id,omitempty"`
	SectionID     string `bson:"section_id,omitempty" json:"section_id,omitempty"`
	StrandID      string `bson:"strand_id,omitempty" json:"strand_id,omitempty"`
	Status        string `bson:"status,omitempty" json:"status,omitempty"` // active, pending
}

// ============================================================================
// Reference Models
// ============================================================================

// Strand represents an academic track within a year level (e.g., STEM, ABM)
type Strand struct {
	ID          string `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

// YearLevel represents a grade level (e.g., Grade 11)
type YearLevel struct {
	ID   string `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Section represents a homeroom section advised by one teacher
type Section struct {
	ID          string `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	AdviserID   string `bson:"adviser_id" json:"adviser_id"`
	YearLevelID string `bson:"year_level_id" json:"year_level_id"`
	StrandID    string `bson:"strand_id" json:"strand_id"`
}

// Subject represents a subject offered under a strand/year level
type Subject struct {
	ID           string `bson:"_id" json:"id"`
	Name         string `bson:"name" json:"name"`
	StrandID     string `bson:"strand_id,omitempty" json:"strand_id,omitempty"`
	YearLevelID  string `bson:"year_level_id,omitempty" json:"year_level_id,omitempty"`
	SemesterName string `bson:"semester_name,omitempty" json:"semester_name,omitempty"`
}

// ============================================================================
// Semester Models
// ============================================================================

// Semester represents an academic term window with a lifecycle status
type Semester struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"` // 1st Semester, 2nd Semester, Summer Term
	StrandID    string    `bson:"strand_id" json:"strand_id"`
	YearLevelID string    `bson:"year_level_id" json:"year_level_id"`
	StartDate   time.Time `bson:"start_date" json:"start_date"`
	EndDate     time.Time `bson:"end_date" json:"end_date"`
	Status      string    `bson:"status" json:"status"` // active, pending
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ============================================================================
// Grade Models
// ============================================================================

// SubjectGrade holds one subject's midterm/finals pair plus the derived
// final rating and pass/fail classification. Midterm and finals are
// pointers so an unentered component is distinguishable from a zero score.
type SubjectGrade struct {
	SubjectID   string   `bson:"subject_id" json:"subject_id"`
	Midterm     *float64 `bson:"midterm,omitempty" json:"midterm,omitempty"`
	Finals      *float64 `bson:"finals,omitempty" json:"finals,omitempty"`
	FinalRating *float64 `bson:"final_rating,omitempty" json:"final_rating,omitempty"`
	Action      string   `bson:"action,omitempty" json:"action,omitempty"` // PASSED, FAILED
}

// GradeRecord aggregates one student's subject grades for one semester.
// There is at most one record per (student, semester, school year,
// year level, section, strand) tuple.
type GradeRecord struct {
	ID          string         `bson:"_id" json:"id"`
	StudentID   string         `bson:"student_id" json:"student_id"`
	SemesterID  string         `bson:"semester_id" json:"semester_id"`
	SectionID   string         `bson:"section_id" json:"section_id"`
	YearLevelID string         `bson:"year_level_id" json:"year_level_id"`
	StrandID    string         `bson:"strand_id" json:"strand_id"`
	SchoolYear  string         `bson:"school_year" json:"school_year"` // e.g. "2024-2025"
	Subjects    []SubjectGrade `bson:"subjects" json:"subjects"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// SubjectEntry returns the grade entry for a subject, or nil if the
// student has no entry for it yet.
func (r *GradeRecord) SubjectEntry(subjectID string) *SubjectGrade {
	for i := range r.Subjects {
		if r.Subjects[i].SubjectID == subjectID {
			return &r.Subjects[i]
		}
	}
	return nil
}

// ============================================================================
// Attendance Models
// ============================================================================

// WeekAttendance maps a weekday code (M, T, W, TH, F, S) to an attendance
// status (Present, Absent, Tardy) for one week.
type WeekAttendance map[string]string

// StudentWeekAttendance holds one student's day-by-day attendance for a
// month, bucketed into up to five weeks, plus recomputed totals.
type StudentWeekAttendance struct {
	StudentID string         `bson:"student_id" json:"student_id"`
	Week1     WeekAttendance `bson:"week1" json:"week1"`
	Week2     WeekAttendance `bson:"week2" json:"week2"`
	Week3     WeekAttendance `bson:"week3" json:"week3"`
	Week4     WeekAttendance `bson:"week4" json:"week4"`
	Week5     WeekAttendance `bson:"week5" json:"week5"`
	Absent    int            `bson:"absent" json:"absent"`
	Tardy     int            `bson:"tardy" json:"tardy"`
	Remarks   string         `bson:"remarks,omitempty" json:"remarks,omitempty"`
}

// Weeks returns the five week maps in order, for callers that index by
// week number.
func (a *StudentWeekAttendance) Weeks() [5]WeekAttendance {
	return [5]WeekAttendance{a.Week1, a.Week2, a.Week3, a.Week4, a.Week5}
}

// AttendanceSheet is the monthly attendance document for one section.
// There is exactly one sheet per (section, month, semester) tuple; saving
// again replaces the whole records list.
type AttendanceSheet struct {
	ID         string                  `bson:"_id" json:"id"`
	SectionID  string                  `bson:"section_id" json:"section_id"`
	Month      string                  `bson:"month" json:"month"` // YYYY-MM
	SchoolYear string                  `bson:"school_year" json:"school_year"`
	SemesterID string                  `bson:"semester_id" json:"semester_id"`
	TeacherID  string                  `bson:"teacher_id" json:"teacher_id"`
	Records    []StudentWeekAttendance `bson:"records" json:"records"`
	CreatedAt  time.Time               `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time               `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ============================================================================
// Validation Constants
// ============================================================================

const (
	// User roles
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"

	// Lifecycle statuses (semesters and student enrollment)
	StatusActive  = "active"
	StatusPending = "pending"

	// Semester names
	SemesterFirst  = "1st Semester"
	SemesterSecond = "2nd Semester"
	SemesterSummer = "Summer Term"

	// Grade actions
	ActionPassed = "PASSED"
	ActionFailed = "FAILED"

	// Attendance statuses
	AttendancePresent = "Present"
	AttendanceAbsent  = "Absent"
	AttendanceTardy   = "Tardy"
)

// DayCodes lists the recognized weekday codes in school-week order.
var DayCodes = []string{"M", "T", "W", "TH", "F", "S"}

// IsValidRole checks if a user role is valid
func IsValidRole(role string) bool {
	validRoles := map[string]bool{
		RoleStudent: true, RoleTeacher: true, RoleAdmin: true,
	}
	return validRoles[role]
}

// IsValidSemesterName checks if a semester name is one of the fixed terms
func IsValidSemesterName(name string) bool {
	validNames := map[string]bool{
		SemesterFirst: true, SemesterSecond: true, SemesterSummer: true,
	}
	return validNames[name]
}

// IsValidDayCode checks if a weekday code is recognized
func IsValidDayCode(code string) bool {
	for _, c := range DayCodes {
		if c == code {
			return true
		}
	}
	return false
}

// IsValidAttendanceStatus checks if an attendance status is recognized
func IsValidAttendanceStatus(status string) bool {
	validStatuses := map[string]bool{
		AttendancePresent: true, AttendanceAbsent: true, AttendanceTardy: true,
	}
	return validStatuses[status]
}

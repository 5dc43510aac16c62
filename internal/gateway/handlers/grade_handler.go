package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"schoolrecords/internal/gateway/util"
	"schoolrecords/internal/grades"
	"schoolrecords/internal/shared"
)

// GradeHandler exposes the grade record store over HTTP.
type GradeHandler struct {
	Grades   *grades.Service
	Validate *validator.Validate
}

// UpsertGradeRequest mirrors the JSON input for POST /grades
type UpsertGradeRequest struct {
	StudentID   string   `json:"student_id" validate:"required"`
	SubjectID   string   `json:"subject_id" validate:"required"`
	SemesterID  string   `json:"semester_id" validate:"required"`
	SectionID   string   `json:"section_id" validate:"required"`
	YearLevelID string   `json:"year_level_id" validate:"required"`
	StrandID    string   `json:"strand_id"`
	SchoolYear  string   `json:"school_year"`
	Midterm     *float64 `json:"midterm,omitempty" validate:"omitempty,gte=0,lte=100"`
	Finals      *float64 `json:"finals,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// BulkUpsertRequest mirrors the JSON input for POST /grades/bulk
type BulkUpsertRequest struct {
	Items []UpsertGradeRequest `json:"items"`
}

// SetGradeFieldRequest mirrors the JSON input for PATCH /grades/field
type SetGradeFieldRequest struct {
	StudentID  string  `json:"student_id" validate:"required"`
	SemesterID string  `json:"semester_id" validate:"required"`
	SubjectID  string  `json:"subject_id" validate:"required"`
	Field      string  `json:"field" validate:"required,oneof=midterm finals"`
	Value      float64 `json:"value" validate:"gte=0,lte=100"`
}

// UpsertGrade handles POST /grades
// Records one midterm/finals entry (teacher only).
func (h *GradeHandler) UpsertGrade(w http.ResponseWriter, r *http.Request) {
	// 1. Authorization: Verify user is a teacher
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleTeacher {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only teachers can enter grades")
		return
	}

	// 2. Decode and Validate Body
	var req UpsertGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 3. Call Service
	record, err := h.Grades.UpsertGrade(r.Context(), upsertInput(req))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	// 4. Respond
	util.WriteJSON(w, http.StatusOK, record)
}

// BulkUpsertGrades handles POST /grades/bulk
// Applies a batch of grade entries with per-item failure isolation.
func (h *GradeHandler) BulkUpsertGrades(w http.ResponseWriter, r *http.Request) {
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleTeacher {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only teachers can enter grades")
		return
	}

	var req BulkUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Items) == 0 {
		util.WriteJSONError(w, http.StatusBadRequest, "No grade items provided")
		return
	}

	items := make([]grades.UpsertGradeInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, upsertInput(item))
	}

	result, err := h.Grades.BulkUpsertGrades(r.Context(), items)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"success":       true,
		"updated_count": result.UpdatedCount,
		"updated_items": result.UpdatedItems,
		"skipped_items": result.SkippedItems,
	}

	util.WriteJSON(w, http.StatusOK, response)
}

// SetGradeField handles PATCH /grades/field
// The narrow single-field edit path for one subject grade.
func (h *GradeHandler) SetGradeField(w http.ResponseWriter, r *http.Request) {
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleTeacher {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only teachers can edit grades")
		return
	}

	var req SetGradeFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.Grades.SetSubjectGradeField(r.Context(), req.StudentID, req.SemesterID, req.SubjectID, req.Field, req.Value)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, record)
}

// GetStudentGrades handles GET /grades/student/{student_id}
// Students may only read their own records.
func (h *GradeHandler) GetStudentGrades(w http.ResponseWriter, r *http.Request) {
	user := util.UserFromContext(r.Context())
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	studentID := chi.URLParam(r, "student_id")
	if studentID == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "student_id is required")
		return
	}
	if user.Role == shared.RoleStudent && user.ID != studentID {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Students can only view their own grades")
		return
	}

	records, err := h.Grades.GradesForStudent(r.Context(), studentID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, records)
}

// GetSubjectGrades handles GET /grades/subject/{subject_id}?semester_id=
// Returns the subject's entries grouped by student (teacher only).
func (h *GradeHandler) GetSubjectGrades(w http.ResponseWriter, r *http.Request) {
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleTeacher {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only teachers can view subject grades")
		return
	}

	subjectID := chi.URLParam(r, "subject_id")
	semesterID := r.URL.Query().Get("semester_id")

	gradesByStudent, err := h.Grades.GradesForSubjectInSemester(r.Context(), subjectID, semesterID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, gradesByStudent)
}

// GetSectionAverages handles GET /grades/section-averages?semester_id=
// Per-section mean final ratings for the teacher's advisory sections.
func (h *GradeHandler) GetSectionAverages(w http.ResponseWriter, r *http.Request) {
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleTeacher {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only teachers can view section averages")
		return
	}

	semesterID := r.URL.Query().Get("semester_id")

	averages, err := h.Grades.SectionAverages(r.Context(), user.ID, semesterID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, averages)
}

// GetSubjectPerformance handles GET /grades/subject-performance?semester_id=
// Per-subject mean final ratings across the teacher's advisory sections.
func (h *GradeHandler) GetSubjectPerformance(w http.ResponseWriter, r *http.Request) {
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleTeacher {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only teachers can view subject performance")
		return
	}

	semesterID := r.URL.Query().Get("semester_id")

	sectionIDs, err := h.Grades.AdvisedSectionIDs(r.Context(), user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	performance, err := h.Grades.SubjectPerformance(r.Context(), sectionIDs, semesterID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, performance)
}

func upsertInput(req UpsertGradeRequest) grades.UpsertGradeInput {
	return grades.UpsertGradeInput{
		StudentID:   req.StudentID,
		SubjectID:   req.SubjectID,
		SemesterID:  req.SemesterID,
		SectionID:   req.SectionID,
		YearLevelID: req.YearLevelID,
		StrandID:    req.StrandID,
		SchoolYear:  req.SchoolYear,
		Midterm:     req.Midterm,
		Finals:      req.Finals,
	}
}

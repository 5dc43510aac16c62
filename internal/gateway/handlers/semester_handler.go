package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"schoolrecords/internal/gateway/util"
	"schoolrecords/internal/semester"
	"schoolrecords/internal/shared"
)

// SemesterHandler exposes the semester lifecycle over HTTP (admin only).
type SemesterHandler struct {
	Semesters *semester.Service
	Validate  *validator.Validate
}

// CreateSemesterRequest mirrors the JSON input for POST /semesters
type CreateSemesterRequest struct {
	Name        string `json:"name" validate:"required"`
	StrandID    string `json:"strand_id" validate:"required"`
	YearLevelID string `json:"year_level_id" validate:"required"`
	StartDate   string `json:"start_date" validate:"required"` // YYYY-MM-DD
	EndDate     string `json:"end_date" validate:"required"`   // YYYY-MM-DD
}

// CreateSemester handles POST /semesters
func (h *SemesterHandler) CreateSemester(w http.ResponseWriter, r *http.Request) {
	// 1. Authorization: Verify user is an admin
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleAdmin {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only admins can create semesters")
		return
	}

	// 2. Decode and Validate Body
	var req CreateSemesterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "start_date must be in YYYY-MM-DD format")
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "end_date must be in YYYY-MM-DD format")
		return
	}

	// 3. Call Service
	created, err := h.Semesters.CreateSemester(r.Context(), semester.CreateSemesterInput{
		Name:        req.Name,
		StrandID:    req.StrandID,
		YearLevelID: req.YearLevelID,
		StartDate:   startDate,
		EndDate:     endDate,
	})
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	// 4. Respond
	util.WriteJSON(w, http.StatusCreated, created)
}

// ListSemesters handles GET /semesters
// Query Params: strand_id, year_level_id, status (all optional)
func (h *SemesterHandler) ListSemesters(w http.ResponseWriter, r *http.Request) {
	user := util.UserFromContext(r.Context())
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	semesters, err := h.Semesters.ListSemesters(r.Context(),
		r.URL.Query().Get("strand_id"),
		r.URL.Query().Get("year_level_id"),
		r.URL.Query().Get("status"),
	)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, semesters)
}

// EndSemester handles POST /semesters/{id}/end
// Moves the semester to pending and cascades the student-status flip.
func (h *SemesterHandler) EndSemester(w http.ResponseWriter, r *http.Request) {
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleAdmin {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only admins can end semesters")
		return
	}

	semesterID := chi.URLParam(r, "id")
	if semesterID == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "semester id is required")
		return
	}

	result, err := h.Semesters.EndSemester(r.Context(), semesterID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"success":                true,
		"semester_status":        result.SemesterStatus,
		"affected_student_count": result.AffectedStudentCount,
	}

	util.WriteJSON(w, http.StatusOK, response)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"schoolrecords/internal/attendance"
	"schoolrecords/internal/gateway/util"
	"schoolrecords/internal/shared"
)

// AttendanceHandler exposes monthly attendance sheets and weekly
// summaries over HTTP (teacher only).
type AttendanceHandler struct {
	Attendance *attendance.Service
	Validate   *validator.Validate
}

// SaveAttendanceRequest mirrors the JSON input for POST /attendance
type SaveAttendanceRequest struct {
	SectionID  string                          `json:"section_id" validate:"required"`
	Month      string                          `json:"month" validate:"required"`
	SchoolYear string                          `json:"school_year" validate:"required"`
	SemesterID string                          `json:"semester_id" validate:"required"`
	Records    []attendance.StudentRecordInput `json:"records"`
}

// SaveAttendance handles POST /attendance
// Saves (or wholly replaces) a section's monthly attendance sheet.
func (h *AttendanceHandler) SaveAttendance(w http.ResponseWriter, r *http.Request) {
	// 1. Authorization: Verify user is a teacher
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleTeacher {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only teachers can record attendance")
		return
	}

	// 2. Decode and Validate Body
	var req SaveAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 3. Call Service (the author is the authenticated teacher)
	sheet, err := h.Attendance.SaveSheet(r.Context(), attendance.SaveSheetInput{
		SectionID:  req.SectionID,
		Month:      req.Month,
		SchoolYear: req.SchoolYear,
		SemesterID: req.SemesterID,
		TeacherID:  user.ID,
		Records:    req.Records,
	})
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	// 4. Respond
	util.WriteJSON(w, http.StatusOK, sheet)
}

// GetAttendance handles GET /attendance?section_id=&month=&semester_id=
// A missing sheet returns an empty-records shape, not an error.
func (h *AttendanceHandler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleTeacher {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only teachers can view attendance")
		return
	}

	sheet, err := h.Attendance.GetSheet(r.Context(),
		r.URL.Query().Get("section_id"),
		r.URL.Query().Get("month"),
		r.URL.Query().Get("semester_id"),
		user.ID,
	)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, sheet)
}

// GetWeeklySummary handles GET /attendance/weekly-summary?section_id=&semester_id=&week=
// Week selector defaults to the current week.
func (h *AttendanceHandler) GetWeeklySummary(w http.ResponseWriter, r *http.Request) {
	user := util.UserFromContext(r.Context())
	if user == nil || user.Role != shared.RoleTeacher {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only teachers can view attendance summaries")
		return
	}

	selector := attendance.WeekSelector(r.URL.Query().Get("week"))
	if selector == "" {
		selector = attendance.WeekCurrent
	}

	summary, err := h.Attendance.SummarizeWeek(r.Context(),
		r.URL.Query().Get("section_id"),
		r.URL.Query().Get("semester_id"),
		user.ID,
		selector,
	)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, summary)
}

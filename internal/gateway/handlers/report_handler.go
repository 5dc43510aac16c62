package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"schoolrecords/internal/gateway/util"
	"schoolrecords/internal/reports"
	"schoolrecords/internal/shared"
)

// ReportHandler exposes the grade-history projection consumed by the
// Form 137 renderer.
type ReportHandler struct {
	Reports *reports.Service
}

// GetGradeHistory handles GET /reports/form137/{student_id}
// Teachers and admins may pull any student; students only their own.
func (h *ReportHandler) GetGradeHistory(w http.ResponseWriter, r *http.Request) {
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
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Students can only view their own records")
		return
	}

	history, err := h.Reports.GradeHistory(r.Context(), studentID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, history)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SkCo-Dali/dali-crm/internal/identity"
	"github.com/SkCo-Dali/dali-crm/internal/reports"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// ReportsHandler serves report visibility and access administration.
type ReportsHandler struct {
	service *reports.Service
	logger  *logging.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(service *reports.Service, logger *logging.Logger) *ReportsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReportsHandler{service: service, logger: logger}
}

// ListVisible returns the reports the authenticated user can open, with the
// effective role on each.
// GET /api/reports
func (h *ReportsHandler) ListVisible(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	visible, err := h.service.VisibleReports(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, "list visible reports", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": visible})
}

// GrantRequest is the request body for granting direct report access.
type GrantRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Grant gives a user a direct role on a report. Admin only.
// POST /admin/reports/{reportID}/grants
func (h *ReportsHandler) Grant(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	grantedBy := ""
	if user, ok := identity.UserFromContext(r.Context()); ok {
		grantedBy = user.ID
	}

	grant, err := h.service.Grant(r.Context(), req.UserID, reportID, req.Role, grantedBy)
	if err != nil {
		h.respondError(w, "grant report access", err)
		return
	}
	writeJSON(w, http.StatusCreated, grant)
}

// Revoke removes a user's direct grant on a report. Admin only.
// DELETE /admin/reports/{reportID}/grants/{userID}
func (h *ReportsHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")
	userID := chi.URLParam(r, "userID")

	if err := h.service.Revoke(r.Context(), userID, reportID); err != nil {
		h.respondError(w, "revoke report access", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EffectiveAccess resolves one user's access on one report, for audit.
// GET /admin/reports/{reportID}/access/{userID}
func (h *ReportsHandler) EffectiveAccess(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")
	userID := chi.URLParam(r, "userID")

	access, err := h.service.Resolve(r.Context(), userID, reportID)
	if err != nil {
		h.respondError(w, "resolve report access", err)
		return
	}
	writeJSON(w, http.StatusOK, access)
}

func (h *ReportsHandler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, reports.ErrReportNotFound),
		errors.Is(err, reports.ErrGrantNotFound),
		errors.Is(err, reports.ErrWorkspaceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, reports.ErrInvalidRole), errors.Is(err, reports.ErrMissingUser):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("reports request failed", "op", op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

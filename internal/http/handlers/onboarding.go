package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SkCo-Dali/dali-crm/internal/identity"
	"github.com/SkCo-Dali/dali-crm/internal/onboarding"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// OnboardingHandler serves the onboarding wizard and form-draft endpoints.
type OnboardingHandler struct {
	wizard *onboarding.Wizard
	drafts *onboarding.DraftStore
	logger *logging.Logger
}

// NewOnboardingHandler creates a new onboarding handler.
func NewOnboardingHandler(wizard *onboarding.Wizard, drafts *onboarding.DraftStore, logger *logging.Logger) *OnboardingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &OnboardingHandler{
		wizard: wizard,
		drafts: drafts,
		logger: logger,
	}
}

// Progress returns the caller's wizard state.
// GET /api/onboarding
func (h *OnboardingHandler) Progress(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, h.wizard.Get(r.Context(), user.ID))
}

// Advance completes one wizard step.
// POST /api/onboarding/steps/{step}
func (h *OnboardingHandler) Advance(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	progress, err := h.wizard.Advance(r.Context(), user.ID, chi.URLParam(r, "step"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// Complete finishes the wizard.
// POST /api/onboarding/complete
func (h *OnboardingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	progress, err := h.wizard.Complete(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// SaveDraftRequest is the request body for backing up a form draft.
type SaveDraftRequest struct {
	Fields map[string]any `json:"fields"`
}

// SaveDraft backs up in-progress form state.
// PUT /api/drafts/{formID}
func (h *OnboardingHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var req SaveDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.drafts.Save(r.Context(), onboarding.Draft{
		UserID: user.ID,
		FormID: chi.URLParam(r, "formID"),
		Fields: req.Fields,
	})
	if err != nil {
		h.logger.Error("save draft failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDraft returns the caller's saved draft for one form.
// GET /api/drafts/{formID}
func (h *OnboardingHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	draft, err := h.drafts.Get(r.Context(), user.ID, chi.URLParam(r, "formID"))
	if errors.Is(err, onboarding.ErrDraftNotFound) {
		http.Error(w, "draft not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get draft failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// DeleteDraft discards the caller's draft after a successful submit.
// DELETE /api/drafts/{formID}
func (h *OnboardingHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	if err := h.drafts.Delete(r.Context(), user.ID, chi.URLParam(r, "formID")); err != nil {
		h.logger.Error("delete draft failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OnboardingHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, onboarding.ErrUnknownStep):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, onboarding.ErrStepOutOfOrder),
		errors.Is(err, onboarding.ErrStepsRemaining),
		errors.Is(err, onboarding.ErrAlreadyCompleted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("onboarding request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

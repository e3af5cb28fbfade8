package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SkCo-Dali/dali-crm/internal/identity"
	"github.com/SkCo-Dali/dali-crm/internal/leads"
	"github.com/SkCo-Dali/dali-crm/internal/outreach"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// OutreachHandler serves WhatsApp campaign endpoints.
type OutreachHandler struct {
	publisher *outreach.Publisher
	store     outreach.Store
	logger    *logging.Logger
}

// NewOutreachHandler creates a new outreach handler.
func NewOutreachHandler(publisher *outreach.Publisher, store outreach.Store, logger *logging.Logger) *OutreachHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &OutreachHandler{
		publisher: publisher,
		store:     store,
		logger:    logger,
	}
}

// CreateCampaign creates a draft campaign with rendered per-lead messages.
// POST /api/campaigns
func (h *OutreachHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req outreach.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if user, ok := identity.UserFromContext(r.Context()); ok {
		req.CreatedBy = user.ID
	}

	campaign, err := h.publisher.CreateCampaign(r.Context(), &req)
	if err != nil {
		h.respondError(w, "create campaign", err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

// ListCampaigns returns all campaigns, newest first.
// GET /api/campaigns
func (h *OutreachHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.store.ListCampaigns(r.Context())
	if err != nil {
		h.respondError(w, "list campaigns", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

// GetCampaign returns one campaign with its messages.
// GET /api/campaigns/{campaignID}
func (h *OutreachHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	campaign, err := h.store.GetCampaign(r.Context(), campaignID)
	if err != nil {
		h.respondError(w, "get campaign", err)
		return
	}
	messages, err := h.store.ListMessages(r.Context(), campaignID)
	if err != nil {
		h.respondError(w, "get campaign", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"campaign": campaign,
		"messages": messages,
	})
}

// PublishCampaign enqueues the campaign's messages for delivery.
// POST /api/campaigns/{campaignID}/publish
func (h *OutreachHandler) PublishCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	enqueued, err := h.publisher.Publish(r.Context(), campaignID)
	if err != nil {
		h.respondError(w, "publish campaign", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"enqueued": enqueued})
}

func (h *OutreachHandler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, outreach.ErrCampaignNotFound):
		http.Error(w, "campaign not found", http.StatusNotFound)
	case errors.Is(err, outreach.ErrAlreadyPublished):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, outreach.ErrInvalidCampaignName),
		errors.Is(err, outreach.ErrEmptyTemplate),
		errors.Is(err, outreach.ErrNoRecipients),
		errors.Is(err, leads.ErrLeadNotFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("outreach request failed", "op", op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SkCo-Dali/dali-crm/internal/identity"
	"github.com/SkCo-Dali/dali-crm/internal/leads"
	"github.com/SkCo-Dali/dali-crm/internal/observability/metrics"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// LeadsHandler serves the lead query and CRUD endpoints.
type LeadsHandler struct {
	repo    leads.Repository
	logger  *logging.Logger
	metrics *metrics.LeadQueryMetrics

	defaultPageSize int
	maxPageSize     int
}

// NewLeadsHandler creates a new leads handler.
func NewLeadsHandler(repo leads.Repository, logger *logging.Logger, m *metrics.LeadQueryMetrics, defaultPageSize, maxPageSize int) *LeadsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if defaultPageSize < 1 {
		defaultPageSize = 25
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &LeadsHandler{
		repo:            repo,
		logger:          logger,
		metrics:         m,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// LeadsListResponse is a paginated list of leads in the flat wire shape.
type LeadsListResponse struct {
	Items      []leads.RawLead `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}

// List returns a filtered, sorted page of leads.
// GET /api/leads
func (h *LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "leads", h.repo.List)
}

// ListDuplicates returns only leads flagged as duplicates.
// GET /api/leads/duplicates
func (h *LeadsHandler) ListDuplicates(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "duplicates", h.repo.ListDuplicates)
}

func (h *LeadsHandler) list(w http.ResponseWriter, r *http.Request, endpoint string, fetch func(ctx context.Context, q leads.ListQuery) (*leads.Page, error)) {
	start := time.Now()
	defer func() { h.metrics.ObserveQuery(endpoint, time.Since(start).Seconds()) }()

	q, err := h.parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := fetch(r.Context(), q)
	if err != nil {
		h.respondError(w, endpoint, err)
		return
	}

	items := make([]leads.RawLead, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, page.Items[i].Wire())
	}

	writeJSON(w, http.StatusOK, LeadsListResponse{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

// DuplicateIDs returns the IDs of every lead flagged as a duplicate.
// GET /api/leads/duplicate-ids
func (h *LeadsHandler) DuplicateIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.repo.DuplicateIDs(r.Context())
	if err != nil {
		h.respondError(w, "duplicate-ids", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

// UniqueValues returns the distinct values of one field under the given
// filters, for filter dropdowns.
// GET /api/leads/unique-values
func (h *LeadsHandler) UniqueValues(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		http.Error(w, "missing field", http.StatusBadRequest)
		return
	}
	search := r.URL.Query().Get("search")

	filters, err := parseFilters(r.URL.Query().Get("filters"))
	if err != nil {
		http.Error(w, "invalid filters", http.StatusBadRequest)
		return
	}

	values, err := h.repo.UniqueValues(r.Context(), field, search, filters)
	if err != nil {
		h.respondError(w, "unique-values", err)
		return
	}
	if values == nil {
		values = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"values": values})
}

// Create creates a new lead owned by the authenticated user.
// POST /api/leads
func (h *LeadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req leads.CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if user, ok := identity.UserFromContext(r.Context()); ok {
		req.CreatedBy = user.ID
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lead, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.respondError(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

// Get returns one lead by ID.
// GET /api/leads/{leadID}
func (h *LeadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	if leadID == "" {
		http.Error(w, "missing leadID", http.StatusBadRequest)
		return
	}

	lead, err := h.repo.GetByID(r.Context(), leadID)
	if err != nil {
		h.respondError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Update applies a partial update to a lead.
// PATCH /api/leads/{leadID}
func (h *LeadsHandler) Update(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	if leadID == "" {
		http.Error(w, "missing leadID", http.StatusBadRequest)
		return
	}

	var req leads.UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Empty() {
		http.Error(w, "no fields to update", http.StatusBadRequest)
		return
	}

	lead, err := h.repo.Update(r.Context(), leadID, &req)
	if err != nil {
		h.respondError(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Delete removes a lead.
// DELETE /api/leads/{leadID}
func (h *LeadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	if leadID == "" {
		http.Error(w, "missing leadID", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), leadID); err != nil {
		h.respondError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LeadsHandler) parseListQuery(r *http.Request) (leads.ListQuery, error) {
	params := r.URL.Query()

	page, _ := strconv.Atoi(params.Get("page"))
	pageSize, _ := strconv.Atoi(params.Get("page_size"))

	filters, err := parseFilters(params.Get("filters"))
	if err != nil {
		return leads.ListQuery{}, errors.New("invalid filters")
	}

	q := leads.ListQuery{
		Page:     page,
		PageSize: pageSize,
		SortBy:   params.Get("sort_by"),
		SortDir:  params.Get("sort_dir"),
		Search:   params.Get("search"),
		Filters:  filters,
	}
	q.Sanitize(h.defaultPageSize, h.maxPageSize)
	return q, nil
}

func parseFilters(raw string) (leads.Filters, error) {
	if raw == "" {
		return nil, nil
	}
	var f leads.Filters
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, err
	}
	return f, nil
}

func (h *LeadsHandler) respondError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, leads.ErrLeadNotFound):
		http.Error(w, "lead not found", http.StatusNotFound)
	case errors.Is(err, leads.ErrUnknownField), errors.Is(err, leads.ErrUnknownOperator):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, leads.ErrInvalidName), errors.Is(err, leads.ErrMissingContact),
		errors.Is(err, leads.ErrMissingCreator), errors.Is(err, leads.ErrEmptyUpdate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("lead request failed", "endpoint", endpoint, "error", err)
		h.metrics.ObserveQueryError(endpoint)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

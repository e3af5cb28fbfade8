package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkCo-Dali/dali-crm/internal/identity"
	"github.com/SkCo-Dali/dali-crm/internal/leads"
	"github.com/SkCo-Dali/dali-crm/internal/outreach"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

type outreachFixture struct {
	router  http.Handler
	store   *outreach.MemoryStore
	queue   *outreach.MemoryQueue
	leadIDs []string
}

func newOutreachFixture(t *testing.T) *outreachFixture {
	t.Helper()

	repo := leads.NewInMemoryRepository()
	ctx := context.Background()
	var leadIDs []string
	for _, req := range []*leads.CreateLeadRequest{
		{Name: "Ana Torres", Email: "ana@example.com", Phone: "3001", CreatedBy: "u1"},
		{Name: "Bruno Silva", Email: "bruno@example.com", Phone: "3002", CreatedBy: "u1"},
	} {
		lead, err := repo.Create(ctx, req)
		require.NoError(t, err)
		leadIDs = append(leadIDs, lead.ID)
	}

	store := outreach.NewMemoryStore()
	queue := outreach.NewMemoryQueue(16)
	publisher := outreach.NewPublisher(store, queue, repo, logging.Default(), nil, 0)
	h := NewOutreachHandler(publisher, store, logging.Default())

	r := chi.NewRouter()
	r.Post("/api/campaigns", h.CreateCampaign)
	r.Get("/api/campaigns", h.ListCampaigns)
	r.Get("/api/campaigns/{campaignID}", h.GetCampaign)
	r.Post("/api/campaigns/{campaignID}/publish", h.PublishCampaign)

	return &outreachFixture{router: r, store: store, queue: queue, leadIDs: leadIDs}
}

func (f *outreachFixture) do(req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(identity.WithUser(req.Context(), identity.User{ID: "gestor-1"}))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *outreachFixture) createCampaign(t *testing.T) outreach.Campaign {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"name":         "Agosto renovaciones",
		"templateBody": "Hola {name}, tu asesor te contacta.",
		"leadIds":      f.leadIDs,
	})
	require.NoError(t, err)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(string(body))))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var campaign outreach.Campaign
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&campaign))
	return campaign
}

func TestCreateCampaign(t *testing.T) {
	f := newOutreachFixture(t)

	campaign := f.createCampaign(t)
	assert.NotEmpty(t, campaign.ID)
	assert.Equal(t, outreach.CampaignDraft, campaign.Status)
	assert.Equal(t, "gestor-1", campaign.CreatedBy)

	messages, err := f.store.ListMessages(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0].Body, "Hola ")
}

func TestCreateCampaign_EmptyTemplateRejected(t *testing.T) {
	f := newOutreachFixture(t)

	body := `{"name":"x","templateBody":"","leadIds":["` + f.leadIDs[0] + `"]}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCampaign_UnknownLeadRejected(t *testing.T) {
	f := newOutreachFixture(t)

	body := `{"name":"x","templateBody":"Hola {name}","leadIds":["missing"]}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCampaign_WithMessages(t *testing.T) {
	f := newOutreachFixture(t)
	campaign := f.createCampaign(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/campaigns/"+campaign.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Campaign outreach.Campaign  `json:"campaign"`
		Messages []outreach.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, campaign.ID, resp.Campaign.ID)
	assert.Len(t, resp.Messages, 2)
}

func TestGetCampaign_NotFound(t *testing.T) {
	f := newOutreachFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/campaigns/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublishCampaign(t *testing.T) {
	f := newOutreachFixture(t)
	campaign := f.createCampaign(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/campaigns/"+campaign.ID+"/publish", nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp struct {
		Enqueued int `json:"enqueued"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Enqueued)

	// Publishing again conflicts.
	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/campaigns/"+campaign.ID+"/publish", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListCampaigns(t *testing.T) {
	f := newOutreachFixture(t)
	f.createCampaign(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/campaigns", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Campaigns []outreach.Campaign `json:"campaigns"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Campaigns, 1)
}

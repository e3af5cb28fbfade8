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
	"github.com/SkCo-Dali/dali-crm/internal/reports"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

func newReportsRouter(t *testing.T) http.Handler {
	t.Helper()

	repo := reports.NewInMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateWorkspace(ctx, &reports.Workspace{ID: "ws1", Name: "Comercial"}))
	require.NoError(t, repo.CreateReport(ctx, &reports.Report{ID: "r1", WorkspaceID: "ws1", Name: "Pipeline"}))
	require.NoError(t, repo.CreateReport(ctx, &reports.Report{ID: "r2", WorkspaceID: "ws1", Name: "Conversiones"}))

	h := NewReportsHandler(reports.NewService(repo, logging.Default()), logging.Default())

	r := chi.NewRouter()
	r.Get("/api/reports", h.ListVisible)
	r.Post("/admin/reports/{reportID}/grants", h.Grant)
	r.Delete("/admin/reports/{reportID}/grants/{userID}", h.Revoke)
	r.Get("/admin/reports/{reportID}/access/{userID}", h.EffectiveAccess)
	return r
}

func doAs(router http.Handler, userID string, req *http.Request) *httptest.ResponseRecorder {
	if userID != "" {
		req = req.WithContext(identity.WithUser(req.Context(), identity.User{ID: userID}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGrantAndListVisible(t *testing.T) {
	router := newReportsRouter(t)

	body := strings.NewReader(`{"userId":"u7","role":"viewer"}`)
	rec := doAs(router, "admin-1", httptest.NewRequest(http.MethodPost, "/admin/reports/r1/grants", body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var grant reports.Grant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&grant))
	assert.Equal(t, "admin-1", grant.GrantedBy)

	rec = doAs(router, "u7", httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reports []reports.VisibleReport `json:"reports"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Reports, 1)
	assert.Equal(t, "r1", resp.Reports[0].ID)
	assert.Equal(t, reports.RoleViewer, resp.Reports[0].Role)
}

func TestListVisible_Unauthenticated(t *testing.T) {
	router := newReportsRouter(t)

	rec := doAs(router, "", httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGrant_InvalidRole(t *testing.T) {
	router := newReportsRouter(t)

	body := strings.NewReader(`{"userId":"u7","role":"owner"}`)
	rec := doAs(router, "admin-1", httptest.NewRequest(http.MethodPost, "/admin/reports/r1/grants", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrant_UnknownReport(t *testing.T) {
	router := newReportsRouter(t)

	body := strings.NewReader(`{"userId":"u7","role":"viewer"}`)
	rec := doAs(router, "admin-1", httptest.NewRequest(http.MethodPost, "/admin/reports/missing/grants", body))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRevokeGrant(t *testing.T) {
	router := newReportsRouter(t)

	body := strings.NewReader(`{"userId":"u7","role":"editor"}`)
	rec := doAs(router, "admin-1", httptest.NewRequest(http.MethodPost, "/admin/reports/r1/grants", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doAs(router, "admin-1", httptest.NewRequest(http.MethodDelete, "/admin/reports/r1/grants/u7", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doAs(router, "u7", httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Reports []reports.VisibleReport `json:"reports"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Reports)
}

func TestEffectiveAccess(t *testing.T) {
	router := newReportsRouter(t)

	body := strings.NewReader(`{"userId":"u7","role":"editor"}`)
	rec := doAs(router, "admin-1", httptest.NewRequest(http.MethodPost, "/admin/reports/r2/grants", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doAs(router, "admin-1", httptest.NewRequest(http.MethodGet, "/admin/reports/r2/access/u7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var access reports.EffectiveAccess
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&access))
	assert.Equal(t, reports.RoleEditor, access.Role)
	assert.True(t, access.HasAccess())
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkCo-Dali/dali-crm/internal/onboarding"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

func newOnboardingRouter(t *testing.T) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	h := NewOnboardingHandler(
		onboarding.NewWizard(),
		onboarding.NewDraftStore(client, time.Hour),
		logging.Default(),
	)

	r := chi.NewRouter()
	r.Get("/api/onboarding", h.Progress)
	r.Post("/api/onboarding/steps/{step}", h.Advance)
	r.Post("/api/onboarding/complete", h.Complete)
	r.Put("/api/drafts/{formID}", h.SaveDraft)
	r.Get("/api/drafts/{formID}", h.GetDraft)
	r.Delete("/api/drafts/{formID}", h.DeleteDraft)
	return r
}

func TestOnboardingProgress_StartsOnFirstGet(t *testing.T) {
	router := newOnboardingRouter(t)

	rec := doAs(router, "u1", httptest.NewRequest(http.MethodGet, "/api/onboarding", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var p onboarding.Progress
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "u1", p.UserID)
	assert.Empty(t, p.CompletedSteps)
	assert.False(t, p.Completed)
}

func TestOnboarding_Unauthenticated(t *testing.T) {
	router := newOnboardingRouter(t)

	rec := doAs(router, "", httptest.NewRequest(http.MethodGet, "/api/onboarding", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOnboardingAdvance_InOrder(t *testing.T) {
	router := newOnboardingRouter(t)

	for i, step := range onboarding.StepOrder {
		rec := doAs(router, "u1", httptest.NewRequest(http.MethodPost, "/api/onboarding/steps/"+step, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var p onboarding.Progress
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
		assert.Len(t, p.CompletedSteps, i+1)
	}

	rec := doAs(router, "u1", httptest.NewRequest(http.MethodPost, "/api/onboarding/complete", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var p onboarding.Progress
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.True(t, p.Completed)
}

func TestOnboardingAdvance_OutOfOrder(t *testing.T) {
	router := newOnboardingRouter(t)

	rec := doAs(router, "u1", httptest.NewRequest(http.MethodPost, "/api/onboarding/steps/"+onboarding.StepConfirmation, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOnboardingAdvance_UnknownStep(t *testing.T) {
	router := newOnboardingRouter(t)

	rec := doAs(router, "u1", httptest.NewRequest(http.MethodPost, "/api/onboarding/steps/billing", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOnboardingComplete_StepsRemaining(t *testing.T) {
	router := newOnboardingRouter(t)

	rec := doAs(router, "u1", httptest.NewRequest(http.MethodPost, "/api/onboarding/complete", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDraftRoundTrip(t *testing.T) {
	router := newOnboardingRouter(t)

	body := strings.NewReader(`{"fields":{"nombre":"Ana","ciudad":"Bogotá"}}`)
	rec := doAs(router, "u1", httptest.NewRequest(http.MethodPut, "/api/drafts/profile-form", body))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doAs(router, "u1", httptest.NewRequest(http.MethodGet, "/api/drafts/profile-form", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var draft onboarding.Draft
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&draft))
	assert.Equal(t, "u1", draft.UserID)
	assert.Equal(t, "Ana", draft.Fields["nombre"])

	rec = doAs(router, "u1", httptest.NewRequest(http.MethodDelete, "/api/drafts/profile-form", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doAs(router, "u1", httptest.NewRequest(http.MethodGet, "/api/drafts/profile-form", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraft_ScopedPerUser(t *testing.T) {
	router := newOnboardingRouter(t)

	body := strings.NewReader(`{"fields":{"nombre":"Ana"}}`)
	rec := doAs(router, "u1", httptest.NewRequest(http.MethodPut, "/api/drafts/profile-form", body))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doAs(router, "u2", httptest.NewRequest(http.MethodGet, "/api/drafts/profile-form", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

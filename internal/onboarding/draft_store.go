package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDraftNotFound is returned when no draft exists (or it expired).
var ErrDraftNotFound = errors.New("onboarding: draft not found")

// Draft is a saved in-progress form, keyed per user and form.
type Draft struct {
	UserID  string         `json:"userId"`
	FormID  string         `json:"formId"`
	Fields  map[string]any `json:"fields"`
	SavedAt time.Time      `json:"savedAt"`
}

// DraftStore backs up in-progress form state in Redis. Drafts are opt-in and
// time-boxed: they expire after the configured TTL.
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDraftStore creates a draft store with the given TTL (24h when zero).
func NewDraftStore(client *redis.Client, ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DraftStore{client: client, ttl: ttl}
}

// Save persists the draft and resets its TTL.
func (s *DraftStore) Save(ctx context.Context, draft Draft) error {
	draft.SavedAt = time.Now().UTC()
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("onboarding: encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(draft.UserID, draft.FormID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("onboarding: save draft: %w", err)
	}
	return nil
}

// Get returns the user's draft for one form.
func (s *DraftStore) Get(ctx context.Context, userID, formID string) (*Draft, error) {
	data, err := s.client.Get(ctx, draftKey(userID, formID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("onboarding: get draft: %w", err)
	}
	var draft Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("onboarding: decode draft: %w", err)
	}
	return &draft, nil
}

// Delete discards the draft, typically after the form is submitted.
func (s *DraftStore) Delete(ctx context.Context, userID, formID string) error {
	if err := s.client.Del(ctx, draftKey(userID, formID)).Err(); err != nil {
		return fmt.Errorf("onboarding: delete draft: %w", err)
	}
	return nil
}

func draftKey(userID, formID string) string {
	return "onboarding:draft:" + userID + ":" + formID
}

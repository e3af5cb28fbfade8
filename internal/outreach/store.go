package outreach

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists campaigns and their per-lead messages.
type Store interface {
	CreateCampaign(ctx context.Context, c *Campaign) error
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id, status string) error

	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, campaignID string) ([]Message, error)
	MarkSent(ctx context.Context, id, providerID string) error
	ScheduleRetry(ctx context.Context, id string, nextRetry time.Time, lastError string) error
	MarkFailed(ctx context.Context, id, lastError string) error
	ListRetryCandidates(ctx context.Context, limit, maxAttempts int) ([]Message, error)
}

// MemoryStore is an in-memory Store used in tests and local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	campaigns map[string]*Campaign
	messages  map[string]*Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[string]*Campaign),
		messages:  make(map[string]*Message),
	}
}

func (s *MemoryStore) CreateCampaign(_ context.Context, c *Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *c
	s.campaigns[c.ID] = &clone
	return nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, id string) (*Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *MemoryStore) ListCampaigns(_ context.Context) ([]Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateCampaignStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return ErrCampaignNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *m
	s.messages[m.ID] = &clone
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, campaignID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, 0)
	for _, m := range s.messages {
		if m.CampaignID == campaignID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) MarkSent(_ context.Context, id, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return ErrMessageNotFound
	}
	now := time.Now().UTC()
	m.Status = MessageSent
	m.ProviderID = providerID
	m.SentAt = &now
	m.NextRetryAt = nil
	m.LastError = ""
	m.UpdatedAt = now
	return nil
}

func (s *MemoryStore) ScheduleRetry(_ context.Context, id string, nextRetry time.Time, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return ErrMessageNotFound
	}
	m.Status = MessageRetryPending
	m.Attempts++
	m.NextRetryAt = &nextRetry
	m.LastError = lastError
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, id, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return ErrMessageNotFound
	}
	m.Status = MessageFailed
	m.LastError = lastError
	m.NextRetryAt = nil
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListRetryCandidates(_ context.Context, limit, maxAttempts int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	out := make([]Message, 0)
	for _, m := range s.messages {
		if m.Status != MessageRetryPending || m.Attempts >= maxAttempts {
			continue
		}
		if m.NextRetryAt != nil && m.NextRetryAt.After(now) {
			continue
		}
		out = append(out, *m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

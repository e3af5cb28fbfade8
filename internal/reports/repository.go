package reports

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists workspaces, reports, and grants.
type Repository interface {
	CreateWorkspace(ctx context.Context, w *Workspace) error
	CreateReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context) ([]Report, error)

	GrantDirect(ctx context.Context, userID, reportID, role, grantedBy string) (*Grant, error)
	GrantWorkspace(ctx context.Context, userID, workspaceID, role, grantedBy string) (*Grant, error)
	RevokeDirect(ctx context.Context, userID, reportID string) error
	DirectRole(ctx context.Context, userID, reportID string) (string, error)
	WorkspaceRole(ctx context.Context, userID, workspaceID string) (string, error)
	GrantsForUser(ctx context.Context, userID string) ([]Grant, error)
}

// InMemoryRepository is a Repository used in tests and local runs.
type InMemoryRepository struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace
	reports    map[string]*Report
	grants     map[string]*Grant
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		workspaces: make(map[string]*Workspace),
		reports:    make(map[string]*Report),
		grants:     make(map[string]*Grant),
	}
}

func (r *InMemoryRepository) CreateWorkspace(_ context.Context, w *Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *w
	r.workspaces[w.ID] = &clone
	return nil
}

func (r *InMemoryRepository) CreateReport(_ context.Context, rep *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workspaces[rep.WorkspaceID]; !ok {
		return ErrWorkspaceNotFound
	}
	clone := *rep
	r.reports[rep.ID] = &clone
	return nil
}

func (r *InMemoryRepository) GetReport(_ context.Context, id string) (*Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	clone := *rep
	return &clone, nil
}

func (r *InMemoryRepository) ListReports(_ context.Context) ([]Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Report, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, *rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) GrantDirect(_ context.Context, userID, reportID, role, grantedBy string) (*Grant, error) {
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reports[reportID]; !ok {
		return nil, ErrReportNotFound
	}
	// One direct grant per user and report; a re-grant replaces the role.
	for _, g := range r.grants {
		if g.UserID == userID && g.ReportID == reportID {
			g.Role = role
			g.GrantedBy = grantedBy
			clone := *g
			return &clone, nil
		}
	}
	grant := &Grant{
		ID:        uuid.NewString(),
		UserID:    userID,
		ReportID:  reportID,
		Role:      role,
		GrantedBy: grantedBy,
		CreatedAt: time.Now().UTC(),
	}
	r.grants[grant.ID] = grant
	clone := *grant
	return &clone, nil
}

func (r *InMemoryRepository) GrantWorkspace(_ context.Context, userID, workspaceID, role, grantedBy string) (*Grant, error) {
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workspaces[workspaceID]; !ok {
		return nil, ErrWorkspaceNotFound
	}
	for _, g := range r.grants {
		if g.UserID == userID && g.WorkspaceID == workspaceID {
			g.Role = role
			g.GrantedBy = grantedBy
			clone := *g
			return &clone, nil
		}
	}
	grant := &Grant{
		ID:          uuid.NewString(),
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        role,
		GrantedBy:   grantedBy,
		CreatedAt:   time.Now().UTC(),
	}
	r.grants[grant.ID] = grant
	clone := *grant
	return &clone, nil
}

func (r *InMemoryRepository) RevokeDirect(_ context.Context, userID, reportID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, g := range r.grants {
		if g.UserID == userID && g.ReportID == reportID {
			delete(r.grants, id)
			return nil
		}
	}
	return ErrGrantNotFound
}

func (r *InMemoryRepository) DirectRole(_ context.Context, userID, reportID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.grants {
		if g.UserID == userID && g.ReportID == reportID {
			return g.Role, nil
		}
	}
	return "", nil
}

func (r *InMemoryRepository) WorkspaceRole(_ context.Context, userID, workspaceID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.grants {
		if g.UserID == userID && g.WorkspaceID == workspaceID {
			return g.Role, nil
		}
	}
	return "", nil
}

func (r *InMemoryRepository) GrantsForUser(_ context.Context, userID string) ([]Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Grant, 0)
	for _, g := range r.grants {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

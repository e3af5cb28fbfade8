package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores workspaces, reports, and grants in the relational
// database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("reports: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateWorkspace(ctx context.Context, w *Workspace) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO report_workspaces (id, name, created_at) VALUES ($1, $2, $3)`,
		w.ID, w.Name, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("reports: insert workspace failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateReport(ctx context.Context, rep *Report) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reports (id, workspace_id, name, description, embed_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rep.ID, rep.WorkspaceID, rep.Name, rep.Description, rep.EmbedURL, rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("reports: insert report failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetReport(ctx context.Context, id string) (*Report, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, workspace_id, name, description, embed_url, created_at
		FROM reports WHERE id = $1
	`, id)

	var rep Report
	err := row.Scan(&rep.ID, &rep.WorkspaceID, &rep.Name, &rep.Description, &rep.EmbedURL, &rep.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reports: get report failed: %w", err)
	}
	return &rep, nil
}

func (r *PostgresRepository) ListReports(ctx context.Context) ([]Report, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, workspace_id, name, description, embed_url, created_at
		FROM reports ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("reports: list reports failed: %w", err)
	}
	defer rows.Close()

	out := make([]Report, 0)
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.WorkspaceID, &rep.Name, &rep.Description, &rep.EmbedURL, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("reports: scan report failed: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GrantDirect(ctx context.Context, userID, reportID, role, grantedBy string) (*Grant, error) {
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}
	grant := &Grant{
		ID:        uuid.NewString(),
		UserID:    userID,
		ReportID:  reportID,
		Role:      role,
		GrantedBy: grantedBy,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO report_grants (id, user_id, report_id, role, granted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, report_id) WHERE report_id IS NOT NULL
		DO UPDATE SET role = EXCLUDED.role, granted_by = EXCLUDED.granted_by
	`, grant.ID, userID, reportID, role, grantedBy, grant.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reports: grant direct failed: %w", err)
	}
	return grant, nil
}

func (r *PostgresRepository) GrantWorkspace(ctx context.Context, userID, workspaceID, role, grantedBy string) (*Grant, error) {
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}
	grant := &Grant{
		ID:          uuid.NewString(),
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        role,
		GrantedBy:   grantedBy,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO report_grants (id, user_id, workspace_id, role, granted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, workspace_id) WHERE workspace_id IS NOT NULL
		DO UPDATE SET role = EXCLUDED.role, granted_by = EXCLUDED.granted_by
	`, grant.ID, userID, workspaceID, role, grantedBy, grant.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reports: grant workspace failed: %w", err)
	}
	return grant, nil
}

func (r *PostgresRepository) RevokeDirect(ctx context.Context, userID, reportID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM report_grants WHERE user_id = $1 AND report_id = $2`,
		userID, reportID,
	)
	if err != nil {
		return fmt.Errorf("reports: revoke direct failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGrantNotFound
	}
	return nil
}

func (r *PostgresRepository) DirectRole(ctx context.Context, userID, reportID string) (string, error) {
	row := r.db.QueryRow(ctx,
		`SELECT role FROM report_grants WHERE user_id = $1 AND report_id = $2`,
		userID, reportID,
	)
	var role string
	err := row.Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reports: direct role failed: %w", err)
	}
	return role, nil
}

func (r *PostgresRepository) WorkspaceRole(ctx context.Context, userID, workspaceID string) (string, error) {
	row := r.db.QueryRow(ctx,
		`SELECT role FROM report_grants WHERE user_id = $1 AND workspace_id = $2`,
		userID, workspaceID,
	)
	var role string
	err := row.Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reports: workspace role failed: %w", err)
	}
	return role, nil
}

func (r *PostgresRepository) GrantsForUser(ctx context.Context, userID string) ([]Grant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, COALESCE(report_id::text, ''), COALESCE(workspace_id::text, ''), role, granted_by, created_at
		FROM report_grants WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("reports: grants for user failed: %w", err)
	}
	defer rows.Close()

	out := make([]Grant, 0)
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.UserID, &g.ReportID, &g.WorkspaceID, &g.Role, &g.GrantedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("reports: scan grant failed: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

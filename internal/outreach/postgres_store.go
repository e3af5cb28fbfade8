package outreach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by the store. pgxmock satisfies it in
// tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists campaigns and messages in the relational database.
type PostgresStore struct {
	db DB
}

// NewPostgresStore initializes a store backed by pgx.
func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("outreach: pgx pool required")
	}
	return &PostgresStore{db: db}
}

const campaignColumns = `id, name, template_body, created_by, status, dry_run, created_at, updated_at`

const messageColumns = `id, campaign_id, lead_id, phone, body, status, attempts,
	provider_id, last_error, next_retry_at, sent_at, created_at, updated_at`

func (s *PostgresStore) CreateCampaign(ctx context.Context, c *Campaign) error {
	query := `
		INSERT INTO outreach_campaigns (id, name, template_body, created_by, status, dry_run, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := s.db.Exec(ctx, query,
		c.ID, c.Name, c.TemplateBody, c.CreatedBy, c.Status, c.DryRun, c.CreatedAt, c.UpdatedAt,
	); err != nil {
		return fmt.Errorf("outreach: insert campaign failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	row := s.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM outreach_campaigns WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("outreach: get campaign failed: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	rows, err := s.db.Query(ctx, `SELECT `+campaignColumns+` FROM outreach_campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("outreach: list campaigns failed: %w", err)
	}
	defer rows.Close()

	campaigns := make([]Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("outreach: scan campaign failed: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

func (s *PostgresStore) UpdateCampaignStatus(ctx context.Context, id, status string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE outreach_campaigns SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("outreach: update campaign status failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO outreach_messages (id, campaign_id, lead_id, phone, body, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := s.db.Exec(ctx, query,
		m.ID, m.CampaignID, m.LeadID, m.Phone, m.Body, m.Status, m.Attempts, m.CreatedAt, m.UpdatedAt,
	); err != nil {
		return fmt.Errorf("outreach: insert message failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, campaignID string) ([]Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+messageColumns+` FROM outreach_messages WHERE campaign_id = $1 ORDER BY created_at, id`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("outreach: list messages failed: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("outreach: scan message failed: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) MarkSent(ctx context.Context, id, providerID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE outreach_messages
		SET status = $1, provider_id = $2, sent_at = now(), next_retry_at = NULL,
			last_error = '', updated_at = now()
		WHERE id = $3
	`, MessageSent, providerID, id)
	if err != nil {
		return fmt.Errorf("outreach: mark sent failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *PostgresStore) ScheduleRetry(ctx context.Context, id string, nextRetry time.Time, lastError string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE outreach_messages
		SET status = $1, attempts = attempts + 1, next_retry_at = $2, last_error = $3, updated_at = now()
		WHERE id = $4
	`, MessageRetryPending, nextRetry, lastError, id)
	if err != nil {
		return fmt.Errorf("outreach: schedule retry failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id, lastError string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE outreach_messages
		SET status = $1, last_error = $2, next_retry_at = NULL, updated_at = now()
		WHERE id = $3
	`, MessageFailed, lastError, id)
	if err != nil {
		return fmt.Errorf("outreach: mark failed failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *PostgresStore) ListRetryCandidates(ctx context.Context, limit, maxAttempts int) ([]Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM outreach_messages
		WHERE status = $1 AND attempts < $2 AND (next_retry_at IS NULL OR next_retry_at <= now())
		ORDER BY next_retry_at NULLS FIRST
		LIMIT $3
	`, MessageRetryPending, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("outreach: list retry candidates failed: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("outreach: scan message failed: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func scanCampaign(row pgx.Row) (*Campaign, error) {
	var c Campaign
	err := row.Scan(&c.ID, &c.Name, &c.TemplateBody, &c.CreatedBy, &c.Status, &c.DryRun, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(
		&m.ID, &m.CampaignID, &m.LeadID, &m.Phone, &m.Body, &m.Status, &m.Attempts,
		&m.ProviderID, &m.LastError, &m.NextRetryAt, &m.SentAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by the repository. pgxmock satisfies
// it in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores leads in the relational database. Duplicate
// detection flags come from the leads_with_dups view, which derives them from
// shared email / phone / document number values.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const leadColumns = `id, name, first_name, email, alternate_email, phone, company, occupation,
	document_type, document_number, source, campaign, product, stage, priority,
	value, age, tags, portfolios, additional_info, assigned_to, assigned_to_name,
	created_by, notes, created_at, updated_at, last_interaction_at, next_follow_up,
	is_duplicate, is_dup_by_email, is_dup_by_document_number, is_dup_by_phone,
	duplicate_email_key, duplicate_document_number_key, duplicate_phone_key`

// Create inserts a new row and re-reads it through the duplicates view.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	tags, _ := json.Marshal(sliceOrEmpty(req.Tags))
	portfolios, _ := json.Marshal(sliceOrEmpty(req.Portfolios))

	query := `
		INSERT INTO leads (id, name, first_name, email, alternate_email, phone, company,
			occupation, document_type, document_number, source, campaign, product, stage,
			priority, value, age, tags, portfolios, assigned_to, assigned_to_name,
			created_by, notes, next_follow_up)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, NULLIF($24, '')::timestamptz)
	`
	if _, err := r.db.Exec(ctx, query,
		id, req.Name, req.FirstName, req.Email, req.AlternateEmail, req.Phone,
		req.Company, req.Occupation, req.DocumentType, req.DocumentNumber,
		req.Source, req.Campaign, req.Product, req.Stage, req.Priority,
		req.Value, req.Age, string(tags), string(portfolios),
		req.AssignedTo, req.AssignedToName, req.CreatedBy, req.Notes, req.NextFollowUp,
	); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	return r.GetByID(ctx, id.String())
}

// GetByID fetches a lead with its duplicate flags.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	row := r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads_with_dups WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// Update patches the provided fields and returns the updated lead.
func (r *PostgresRepository) Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error) {
	if req.Empty() {
		return nil, ErrEmptyUpdate
	}

	updates := []string{}
	args := []any{}
	argNum := 1

	add := func(col string, val any) {
		updates = append(updates, col+" = $"+strconv.Itoa(argNum))
		args = append(args, val)
		argNum++
	}

	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.FirstName != nil {
		add("first_name", *req.FirstName)
	}
	if req.Email != nil {
		add("email", *req.Email)
	}
	if req.AlternateEmail != nil {
		add("alternate_email", *req.AlternateEmail)
	}
	if req.Phone != nil {
		add("phone", *req.Phone)
	}
	if req.Stage != nil {
		add("stage", *req.Stage)
	}
	if req.Priority != nil {
		add("priority", *req.Priority)
	}
	if req.Product != nil {
		add("product", *req.Product)
	}
	if req.Value != nil {
		add("value", *req.Value)
	}
	if req.AssignedTo != nil {
		add("assigned_to", *req.AssignedTo)
	}
	if req.AssignedToName != nil {
		add("assigned_to_name", *req.AssignedToName)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}
	if req.NextFollowUp != nil {
		updates = append(updates, "next_follow_up = NULLIF($"+strconv.Itoa(argNum)+", '')::timestamptz")
		args = append(args, *req.NextFollowUp)
		argNum++
	}
	if req.Tags != nil {
		tags, _ := json.Marshal(req.Tags)
		add("tags", string(tags))
	}
	if req.Portfolios != nil {
		portfolios, _ := json.Marshal(req.Portfolios)
		add("portfolios", string(portfolios))
	}

	updates = append(updates, "updated_at = now()")
	args = append(args, id)

	query := "UPDATE leads SET " + strings.Join(updates, ", ") +
		" WHERE id = $" + strconv.Itoa(argNum)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrLeadNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes a lead.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("leads: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// List returns a filtered, sorted, paginated page of leads.
func (r *PostgresRepository) List(ctx context.Context, q ListQuery) (*Page, error) {
	return r.list(ctx, q, "")
}

// ListDuplicates restricts the listing to flagged duplicates.
func (r *PostgresRepository) ListDuplicates(ctx context.Context, q ListQuery) (*Page, error) {
	return r.list(ctx, q, " AND is_duplicate")
}

func (r *PostgresRepository) list(ctx context.Context, q ListQuery, extraWhere string) (*Page, error) {
	q.Sanitize(25, 0)

	filterSQL, args, err := CompileFilters(q.Filters, 1)
	if err != nil {
		return nil, err
	}
	searchSQL, searchArgs := CompileSearch(q.Search, len(args)+1)
	args = append(args, searchArgs...)

	where := " WHERE 1=1" + extraWhere + filterSQL + searchSQL

	var total int
	countQuery := `SELECT COUNT(*) FROM leads_with_dups` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("leads: count failed: %w", err)
	}

	argNum := len(args) + 1
	query := `SELECT ` + leadColumns + ` FROM leads_with_dups` + where +
		CompileSort(q.SortBy, q.SortDir) +
		" LIMIT $" + strconv.Itoa(argNum) + " OFFSET $" + strconv.Itoa(argNum+1)
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: query failed: %w", err)
	}
	defer rows.Close()

	items := make([]Lead, 0, q.PageSize)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		items = append(items, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: rows failed: %w", err)
	}

	return &Page{
		Items:      items,
		Page:       q.Page,
		PageSize:   q.PageSize,
		Total:      total,
		TotalPages: TotalPagesFor(total, q.PageSize),
	}, nil
}

// DuplicateIDs returns the full duplicate ID set, for the unique view's
// set-exclusion filter.
func (r *PostgresRepository) DuplicateIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM leads_with_dups WHERE is_duplicate ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("leads: duplicate ids failed: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("leads: duplicate ids scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: duplicate ids rows failed: %w", err)
	}
	return ids, nil
}

// UniqueValues fetches the distinct values of one field under the current
// filter context, for filter-value pickers.
func (r *PostgresRepository) UniqueValues(ctx context.Context, field, search string, f Filters) ([]string, error) {
	col, err := ColumnFor(field)
	if err != nil {
		return nil, err
	}

	filterSQL, args, err := CompileFilters(f, 1)
	if err != nil {
		return nil, err
	}

	valueExpr := col + "::text"
	if jsonArrayColumns[col] {
		valueExpr = "jsonb_array_elements_text(" + col + ")"
	}

	query := `SELECT DISTINCT ` + valueExpr + ` AS v FROM leads_with_dups WHERE 1=1` + filterSQL
	if strings.TrimSpace(search) != "" {
		query = `SELECT v FROM (` + query + `) sub WHERE v ILIKE $` + strconv.Itoa(len(args)+1)
		args = append(args, "%"+strings.TrimSpace(search)+"%")
	}
	query += " ORDER BY v LIMIT 500"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: unique values failed: %w", err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v *string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("leads: unique values scan failed: %w", err)
		}
		if v != nil && *v != "" {
			values = append(values, *v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: unique values rows failed: %w", err)
	}
	return values, nil
}

// scanLead reads one row from the leads_with_dups column list.
func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead                                  Lead
		tags, portfolios, additionalInfo      []byte
		createdAt, updatedAt                  time.Time
		lastInteractionAt, nextFollowUp       *time.Time
		dupEmailKey, dupDocKey, dupPhoneKey   *string
		isDup, dupEmail, dupDoc, dupPhone     bool
		name, firstName, email, altEmail      string
		phone, company, occupation, docType   string
		source, campaign, product, stage      string
		priority, assignedTo, assignedToName  string
		createdBy, notes                      string
	)

	err := row.Scan(
		&lead.ID, &name, &firstName, &email, &altEmail, &phone, &company, &occupation,
		&docType, &lead.DocumentNumber, &source, &campaign, &product, &stage, &priority,
		&lead.Value, &lead.Age, &tags, &portfolios, &additionalInfo,
		&assignedTo, &assignedToName, &createdBy, &notes,
		&createdAt, &updatedAt, &lastInteractionAt, &nextFollowUp,
		&isDup, &dupEmail, &dupDoc, &dupPhone,
		&dupEmailKey, &dupDocKey, &dupPhoneKey,
	)
	if err != nil {
		return nil, err
	}

	lead.Name = name
	lead.FirstName = firstName
	lead.Email = email
	lead.AlternateEmail = altEmail
	lead.Phone = phone
	lead.Company = company
	lead.Occupation = occupation
	lead.DocumentType = docType
	lead.Source = source
	lead.Campaign = campaign
	lead.Product = product
	lead.Stage = stage
	lead.Priority = priority
	lead.AssignedTo = assignedTo
	lead.AssignedToName = assignedToName
	lead.CreatedBy = createdBy
	lead.Notes = notes

	lead.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	lead.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	if lastInteractionAt != nil {
		lead.LastInteractionAt = lastInteractionAt.UTC().Format(time.RFC3339)
	}
	if nextFollowUp != nil {
		lead.NextFollowUp = nextFollowUp.UTC().Format(time.RFC3339)
	}

	lead.Tags = decodeStringArray(tags)
	lead.Portfolios = decodeStringArray(portfolios)
	if len(additionalInfo) > 0 {
		_ = json.Unmarshal(additionalInfo, &lead.AdditionalInfo)
	}

	lead.IsDuplicate = isDup
	lead.IsDupByEmail = dupEmail
	lead.IsDupByDocumentNumber = dupDoc
	lead.IsDupByPhone = dupPhone
	lead.DuplicateEmailKey = dupEmailKey
	lead.DuplicateDocumentNumberKey = dupDocKey
	lead.DuplicatePhoneKey = dupPhoneKey

	lead.DuplicateBy = []string{}
	if dupEmail {
		lead.DuplicateBy = append(lead.DuplicateBy, "email")
	}
	if dupDoc {
		lead.DuplicateBy = append(lead.DuplicateBy, "documentNumber")
	}
	if dupPhone {
		lead.DuplicateBy = append(lead.DuplicateBy, "phone")
	}

	return &lead, nil
}

func decodeStringArray(b []byte) []string {
	out := []string{}
	if len(b) > 0 {
		_ = json.Unmarshal(b, &out)
	}
	return out
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

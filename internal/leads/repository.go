package leads

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q ListQuery) (*Page, error)
	ListDuplicates(ctx context.Context, q ListQuery) (*Page, error)
	DuplicateIDs(ctx context.Context) ([]string, error)
	UniqueValues(ctx context.Context, field, search string, f Filters) ([]string, error)
}

// InMemoryRepository is an in-memory Repository used in tests and local runs.
// It evaluates the same filter contract the Postgres repository compiles to SQL.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Create creates a new lead in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	lead := &Lead{
		ID:             uuid.New().String(),
		Name:           req.Name,
		FirstName:      req.FirstName,
		Email:          req.Email,
		AlternateEmail: req.AlternateEmail,
		Phone:          req.Phone,
		Company:        req.Company,
		Occupation:     req.Occupation,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		Source:         req.Source,
		Campaign:       req.Campaign,
		Product:        req.Product,
		Stage:          req.Stage,
		Priority:       req.Priority,
		Value:          req.Value,
		Age:            req.Age,
		Tags:           append([]string{}, req.Tags...),
		Portfolios:     append([]string{}, req.Portfolios...),
		AssignedTo:     req.AssignedTo,
		AssignedToName: req.AssignedToName,
		CreatedBy:      req.CreatedBy,
		Notes:          req.Notes,
		NextFollowUp:   req.NextFollowUp,
		CreatedAt:      now,
		UpdatedAt:      now,
		DuplicateBy:    []string{},
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.recomputeDuplicatesLocked()
	r.mu.Unlock()

	return cloneLead(lead), nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return cloneLead(lead), nil
}

// Update patches a lead.
func (r *InMemoryRepository) Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error) {
	if req.Empty() {
		return nil, ErrEmptyUpdate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyString(&lead.Name, req.Name)
	applyString(&lead.FirstName, req.FirstName)
	applyString(&lead.Email, req.Email)
	applyString(&lead.AlternateEmail, req.AlternateEmail)
	applyString(&lead.Phone, req.Phone)
	applyString(&lead.Stage, req.Stage)
	applyString(&lead.Priority, req.Priority)
	applyString(&lead.Product, req.Product)
	applyString(&lead.AssignedTo, req.AssignedTo)
	applyString(&lead.AssignedToName, req.AssignedToName)
	applyString(&lead.Notes, req.Notes)
	applyString(&lead.NextFollowUp, req.NextFollowUp)
	if req.Value != nil {
		lead.Value = *req.Value
	}
	if req.Tags != nil {
		lead.Tags = append([]string{}, req.Tags...)
	}
	if req.Portfolios != nil {
		lead.Portfolios = append([]string{}, req.Portfolios...)
	}
	lead.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	r.recomputeDuplicatesLocked()
	return cloneLead(lead), nil
}

// Delete removes a lead.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[id]; !ok {
		return ErrLeadNotFound
	}
	delete(r.leads, id)
	r.recomputeDuplicatesLocked()
	return nil
}

// List returns a filtered, sorted, paginated page of leads.
func (r *InMemoryRepository) List(ctx context.Context, q ListQuery) (*Page, error) {
	return r.list(ctx, q, false)
}

// ListDuplicates returns only leads flagged as duplicates.
func (r *InMemoryRepository) ListDuplicates(ctx context.Context, q ListQuery) (*Page, error) {
	return r.list(ctx, q, true)
}

func (r *InMemoryRepository) list(_ context.Context, q ListQuery, duplicatesOnly bool) (*Page, error) {
	q.Sanitize(25, 0)

	r.mu.RLock()
	matched := make([]*Lead, 0, len(r.leads))
	var filterErr error
	for _, lead := range r.leads {
		if duplicatesOnly && !lead.IsDuplicate {
			continue
		}
		ok, err := matchesFilters(lead, q.Filters)
		if err != nil {
			filterErr = err
			break
		}
		if ok && matchesSearch(lead, q.Search) {
			matched = append(matched, lead)
		}
	}
	r.mu.RUnlock()

	if filterErr != nil {
		return nil, filterErr
	}

	sortLeads(matched, q.SortBy, q.SortDir)

	total := len(matched)
	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	items := make([]Lead, 0, end-start)
	for _, lead := range matched[start:end] {
		items = append(items, *cloneLead(lead))
	}

	return &Page{
		Items:      items,
		Page:       q.Page,
		PageSize:   q.PageSize,
		Total:      total,
		TotalPages: TotalPagesFor(total, q.PageSize),
	}, nil
}

// DuplicateIDs returns the IDs of all leads flagged as duplicates.
func (r *InMemoryRepository) DuplicateIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0)
	for id, lead := range r.leads {
		if lead.IsDuplicate {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// UniqueValues returns the distinct values of one field under a filter context.
func (r *InMemoryRepository) UniqueValues(_ context.Context, field, search string, f Filters) ([]string, error) {
	if _, err := ColumnFor(field); err != nil {
		return nil, err
	}

	r.mu.RLock()
	seen := make(map[string]struct{})
	var filterErr error
	for _, lead := range r.leads {
		ok, err := matchesFilters(lead, f)
		if err != nil {
			filterErr = err
			break
		}
		if !ok {
			continue
		}
		for _, v := range fieldValues(lead, field) {
			if v == "" {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(v), strings.ToLower(search)) {
				continue
			}
			seen[v] = struct{}{}
		}
	}
	r.mu.RUnlock()

	if filterErr != nil {
		return nil, filterErr
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

// recomputeDuplicatesLocked rebuilds duplicate flags, keys, and duplicateBy
// after any mutation. Caller holds the write lock.
func (r *InMemoryRepository) recomputeDuplicatesLocked() {
	byEmail := make(map[string]int)
	byDoc := make(map[string]int)
	byPhone := make(map[string]int)

	for _, lead := range r.leads {
		if k := strings.ToLower(strings.TrimSpace(lead.Email)); k != "" {
			byEmail[k]++
		}
		if lead.DocumentNumber != 0 {
			byDoc[strconv.FormatInt(lead.DocumentNumber, 10)]++
		}
		if k := strings.TrimSpace(lead.Phone); k != "" {
			byPhone[k]++
		}
	}

	for _, lead := range r.leads {
		lead.IsDupByEmail = false
		lead.IsDupByDocumentNumber = false
		lead.IsDupByPhone = false
		lead.DuplicateEmailKey = nil
		lead.DuplicateDocumentNumberKey = nil
		lead.DuplicatePhoneKey = nil
		lead.DuplicateBy = []string{}

		if k := strings.ToLower(strings.TrimSpace(lead.Email)); k != "" && byEmail[k] > 1 {
			lead.IsDupByEmail = true
			key := k
			lead.DuplicateEmailKey = &key
			lead.DuplicateBy = append(lead.DuplicateBy, "email")
		}
		if lead.DocumentNumber != 0 {
			k := strconv.FormatInt(lead.DocumentNumber, 10)
			if byDoc[k] > 1 {
				lead.IsDupByDocumentNumber = true
				key := k
				lead.DuplicateDocumentNumberKey = &key
				lead.DuplicateBy = append(lead.DuplicateBy, "documentNumber")
			}
		}
		if k := strings.TrimSpace(lead.Phone); k != "" && byPhone[k] > 1 {
			lead.IsDupByPhone = true
			key := k
			lead.DuplicatePhoneKey = &key
			lead.DuplicateBy = append(lead.DuplicateBy, "phone")
		}

		lead.IsDuplicate = lead.IsDupByEmail || lead.IsDupByDocumentNumber || lead.IsDupByPhone
	}
}

func cloneLead(l *Lead) *Lead {
	c := *l
	c.Tags = append([]string{}, l.Tags...)
	c.Portfolios = append([]string{}, l.Portfolios...)
	c.DuplicateBy = append([]string{}, l.DuplicateBy...)
	return &c
}

// matchesFilters evaluates the filter contract against a lead in Go. The
// semantics mirror CompileFilters so the in-memory repository can stand in
// for Postgres in tests.
func matchesFilters(lead *Lead, f Filters) (bool, error) {
	for field, cond := range f {
		if _, err := ColumnFor(field); err != nil {
			return false, err
		}
		ok, err := matchesCondition(lead, field, cond)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchesCondition(lead *Lead, field string, cond Condition) (bool, error) {
	values := fieldValues(lead, field)

	switch cond.Op {
	case OpEq:
		return containsValue(values, cond.Value), nil
	case OpIn:
		for _, want := range cond.Values {
			if containsValue(values, want) {
				return true, nil
			}
		}
		return len(cond.Values) == 0, nil
	case OpNin:
		for _, want := range cond.Values {
			if containsValue(values, want) {
				return false, nil
			}
		}
		return true, nil
	case OpBetween:
		v := firstValue(values)
		return compareValues(v, cond.From) >= 0 && compareValues(v, cond.To) <= 0, nil
	case OpGte:
		return compareValues(firstValue(values), cond.Value) >= 0, nil
	case OpLte:
		return compareValues(firstValue(values), cond.Value) <= 0, nil
	case OpGt:
		return compareValues(firstValue(values), cond.Value) > 0, nil
	case OpLt:
		return compareValues(firstValue(values), cond.Value) < 0, nil
	case OpContains:
		return strings.Contains(strings.ToLower(firstValue(values)), strings.ToLower(cond.Value)), nil
	case OpNContains:
		return !strings.Contains(strings.ToLower(firstValue(values)), strings.ToLower(cond.Value)), nil
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(firstValue(values)), strings.ToLower(cond.Value)), nil
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(firstValue(values)), strings.ToLower(cond.Value)), nil
	case OpIsNull:
		return firstValue(values) == "", nil
	case OpNotNull:
		return firstValue(values) != "", nil
	default:
		return false, ErrUnknownOperator
	}
}

func containsValue(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// compareValues compares numerically when both sides parse as numbers,
// lexically otherwise (ISO-8601 timestamps compare correctly as strings).
func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// fieldValues extracts the comparable values of a contract field. Array
// fields yield one value per element.
func fieldValues(lead *Lead, field string) []string {
	switch field {
	case "Id":
		return []string{lead.ID}
	case "Name":
		return []string{lead.Name}
	case "FirstName":
		return []string{lead.FirstName}
	case "Email":
		return []string{lead.Email}
	case "AlternateEmail":
		return []string{lead.AlternateEmail}
	case "Phone":
		return []string{lead.Phone}
	case "Company":
		return []string{lead.Company}
	case "Occupation":
		return []string{lead.Occupation}
	case "DocumentType":
		return []string{lead.DocumentType}
	case "DocumentNumber":
		if lead.DocumentNumber == 0 {
			return []string{""}
		}
		return []string{strconv.FormatInt(lead.DocumentNumber, 10)}
	case "Source":
		return []string{lead.Source}
	case "Campaign":
		return []string{lead.Campaign}
	case "Product":
		return []string{lead.Product}
	case "Stage":
		return []string{lead.Stage}
	case "Priority":
		return []string{lead.Priority}
	case "Value":
		return []string{strconv.FormatFloat(lead.Value, 'f', -1, 64)}
	case "Age":
		if lead.Age == nil {
			return []string{""}
		}
		return []string{strconv.Itoa(*lead.Age)}
	case "Tags":
		return lead.Tags
	case "SelectedPortfolios":
		return lead.Portfolios
	case "AssignedTo":
		return []string{lead.AssignedTo}
	case "AssignedToName":
		return []string{lead.AssignedToName}
	case "CreatedBy":
		return []string{lead.CreatedBy}
	case "Notes":
		return []string{lead.Notes}
	case "CreatedAt":
		return []string{lead.CreatedAt}
	case "UpdatedAt":
		return []string{lead.UpdatedAt}
	case "LastInteractionAt", "LastGestorInteractionAt":
		return []string{lead.LastInteractionAt}
	case "NextFollowUp":
		return []string{lead.NextFollowUp}
	case "IsDuplicate":
		return []string{strconv.FormatBool(lead.IsDuplicate)}
	case "IsDupByEmail":
		return []string{strconv.FormatBool(lead.IsDupByEmail)}
	case "IsDupByDocumentNumber":
		return []string{strconv.FormatBool(lead.IsDupByDocumentNumber)}
	case "IsDupByPhone":
		return []string{strconv.FormatBool(lead.IsDupByPhone)}
	case "DuplicateEmailKey":
		return []string{derefOrEmpty(lead.DuplicateEmailKey)}
	case "DuplicateDocumentNumberKey":
		return []string{derefOrEmpty(lead.DuplicateDocumentNumberKey)}
	case "DuplicatePhoneKey":
		return []string{derefOrEmpty(lead.DuplicatePhoneKey)}
	default:
		return nil
	}
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func matchesSearch(lead *Lead, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, v := range []string{lead.Name, lead.FirstName, lead.Email, lead.Phone} {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

func sortLeads(leads []*Lead, sortBy, sortDir string) {
	desc := sortDir != "asc"
	sort.SliceStable(leads, func(i, j int) bool {
		a := firstValue(fieldValues(leads[i], sortBy))
		b := firstValue(fieldValues(leads[j], sortBy))
		cmp := compareValues(a, b)
		if cmp == 0 {
			cmp = strings.Compare(leads[i].ID, leads[j].ID)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

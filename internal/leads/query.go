package leads

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Condition operators accepted by the list endpoints.
const (
	OpEq         = "eq"
	OpIn         = "in"
	OpNin        = "nin"
	OpBetween    = "between"
	OpGte        = "gte"
	OpLte        = "lte"
	OpGt         = "gt"
	OpLt         = "lt"
	OpContains   = "contains"
	OpNContains  = "ncontains"
	OpStartsWith = "startswith"
	OpEndsWith   = "endswith"
	OpIsNull     = "isnull"
	OpNotNull    = "notnull"
)

// Condition is a single filter condition in the query contract.
type Condition struct {
	Op     string   `json:"op"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
	From   string   `json:"from,omitempty"`
	To     string   `json:"to,omitempty"`
}

// Filters maps a backend field name to its condition.
type Filters map[string]Condition

// ListQuery is the parsed query for list endpoints.
type ListQuery struct {
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
	Search   string
	Filters  Filters
}

// Sanitize clamps pagination and normalizes sorting to the contract defaults:
// page 1, most-recently-updated first.
func (q *ListQuery) Sanitize(defaultPageSize, maxPageSize int) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if maxPageSize > 0 && q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if q.SortBy == "" {
		q.SortBy = "UpdatedAt"
	}
	if q.SortDir != "asc" {
		q.SortDir = "desc"
	}
}

// fieldColumns maps contract field names to database columns. Fields outside
// this table cannot be filtered or sorted on.
var fieldColumns = map[string]string{
	"Id":                         "id",
	"Name":                       "name",
	"FirstName":                  "first_name",
	"Email":                      "email",
	"AlternateEmail":             "alternate_email",
	"Phone":                      "phone",
	"Company":                    "company",
	"Occupation":                 "occupation",
	"DocumentType":               "document_type",
	"DocumentNumber":             "document_number",
	"Source":                     "source",
	"Campaign":                   "campaign",
	"Product":                    "product",
	"Stage":                      "stage",
	"Priority":                   "priority",
	"Value":                      "value",
	"Age":                        "age",
	"Tags":                       "tags",
	"SelectedPortfolios":         "portfolios",
	"AssignedTo":                 "assigned_to",
	"AssignedToName":             "assigned_to_name",
	"CreatedBy":                  "created_by",
	"Notes":                      "notes",
	"CreatedAt":                  "created_at",
	"UpdatedAt":                  "updated_at",
	"LastInteractionAt":          "last_interaction_at",
	"LastGestorInteractionAt":    "last_gestor_interaction_at",
	"NextFollowUp":               "next_follow_up",
	"IsDuplicate":                "is_duplicate",
	"IsDupByEmail":               "is_dup_by_email",
	"IsDupByDocumentNumber":      "is_dup_by_document_number",
	"IsDupByPhone":               "is_dup_by_phone",
	"DuplicateEmailKey":          "duplicate_email_key",
	"DuplicateDocumentNumberKey": "duplicate_document_number_key",
	"DuplicatePhoneKey":          "duplicate_phone_key",
}

// jsonArrayColumns are stored as jsonb arrays and need containment operators.
var jsonArrayColumns = map[string]bool{
	"tags":       true,
	"portfolios": true,
}

// ColumnFor resolves a contract field name to its database column.
func ColumnFor(field string) (string, error) {
	col, ok := fieldColumns[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return col, nil
}

// CompileFilters renders the filter map as SQL predicates. Placeholders are
// numbered starting at startArg. The returned fragment is either empty or a
// sequence of " AND (...)" clauses.
func CompileFilters(f Filters, startArg int) (string, []any, error) {
	if len(f) == 0 {
		return "", nil, nil
	}

	// Deterministic clause order keeps queries cache-friendly and testable.
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var sb strings.Builder
	args := make([]any, 0, len(f))
	argNum := startArg

	for _, field := range fields {
		cond := f[field]
		col, err := ColumnFor(field)
		if err != nil {
			return "", nil, err
		}

		clause, clauseArgs, err := compileCondition(col, cond, argNum)
		if err != nil {
			return "", nil, err
		}
		if clause == "" {
			continue
		}
		sb.WriteString(" AND (")
		sb.WriteString(clause)
		sb.WriteString(")")
		args = append(args, clauseArgs...)
		argNum += len(clauseArgs)
	}

	return sb.String(), args, nil
}

func compileCondition(col string, cond Condition, argNum int) (string, []any, error) {
	if jsonArrayColumns[col] {
		return compileJSONArrayCondition(col, cond, argNum)
	}

	ph := func(offset int) string { return "$" + strconv.Itoa(argNum+offset) }

	switch cond.Op {
	case OpEq:
		return col + " = " + ph(0), []any{cond.Value}, nil
	case OpIn, OpNin:
		if len(cond.Values) == 0 {
			return "", nil, nil
		}
		phs := make([]string, len(cond.Values))
		args := make([]any, len(cond.Values))
		for i, v := range cond.Values {
			phs[i] = ph(i)
			args[i] = v
		}
		expr := col + " IN (" + strings.Join(phs, ", ") + ")"
		if cond.Op == OpNin {
			expr = col + " NOT IN (" + strings.Join(phs, ", ") + ")"
		}
		return expr, args, nil
	case OpBetween:
		return col + " BETWEEN " + ph(0) + " AND " + ph(1), []any{cond.From, cond.To}, nil
	case OpGte:
		return col + " >= " + ph(0), []any{cond.Value}, nil
	case OpLte:
		return col + " <= " + ph(0), []any{cond.Value}, nil
	case OpGt:
		return col + " > " + ph(0), []any{cond.Value}, nil
	case OpLt:
		return col + " < " + ph(0), []any{cond.Value}, nil
	case OpContains:
		return col + "::text ILIKE " + ph(0), []any{"%" + cond.Value + "%"}, nil
	case OpNContains:
		return col + "::text NOT ILIKE " + ph(0), []any{"%" + cond.Value + "%"}, nil
	case OpStartsWith:
		return col + "::text ILIKE " + ph(0), []any{cond.Value + "%"}, nil
	case OpEndsWith:
		return col + "::text ILIKE " + ph(0), []any{"%" + cond.Value}, nil
	case OpIsNull:
		return col + " IS NULL OR " + col + "::text = ''", nil, nil
	case OpNotNull:
		return col + " IS NOT NULL AND " + col + "::text <> ''", nil, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownOperator, cond.Op)
	}
}

// compileJSONArrayCondition handles jsonb array columns (tags, portfolios).
func compileJSONArrayCondition(col string, cond Condition, argNum int) (string, []any, error) {
	ph := func(offset int) string { return "$" + strconv.Itoa(argNum+offset) }

	switch cond.Op {
	case OpEq:
		arg, _ := json.Marshal([]string{cond.Value})
		return col + " @> " + ph(0) + "::jsonb", []any{string(arg)}, nil
	case OpIn:
		if len(cond.Values) == 0 {
			return "", nil, nil
		}
		exprs := make([]string, len(cond.Values))
		args := make([]any, len(cond.Values))
		for i, v := range cond.Values {
			arg, _ := json.Marshal([]string{v})
			exprs[i] = col + " @> " + ph(i) + "::jsonb"
			args[i] = string(arg)
		}
		return strings.Join(exprs, " OR "), args, nil
	case OpContains:
		return col + "::text ILIKE " + ph(0), []any{"%" + cond.Value + "%"}, nil
	case OpIsNull:
		return col + " IS NULL OR " + col + " = '[]'::jsonb", nil, nil
	case OpNotNull:
		return col + " IS NOT NULL AND " + col + " <> '[]'::jsonb", nil, nil
	default:
		return "", nil, fmt.Errorf("%w: %s on json array column %s", ErrUnknownOperator, cond.Op, col)
	}
}

// CompileSearch renders the free-text search predicate across contact fields.
func CompileSearch(search string, argNum int) (string, []any) {
	if strings.TrimSpace(search) == "" {
		return "", nil
	}
	ph := "$" + strconv.Itoa(argNum)
	clause := " AND (name ILIKE " + ph + " OR first_name ILIKE " + ph +
		" OR email ILIKE " + ph + " OR phone ILIKE " + ph + ")"
	return clause, []any{"%" + strings.TrimSpace(search) + "%"}
}

// CompileSort renders the ORDER BY clause from an allowlisted field.
func CompileSort(sortBy, sortDir string) string {
	col, err := ColumnFor(sortBy)
	if err != nil {
		col = "updated_at"
	}
	dir := "DESC"
	if sortDir == "asc" {
		dir = "ASC"
	}
	return " ORDER BY " + col + " " + dir + ", id " + dir
}

package leadquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SkCo-Dali/dali-crm/internal/leads"
	"github.com/SkCo-Dali/dali-crm/internal/observability/metrics"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// Duplicate view modes.
const (
	ViewAll        = "all"
	ViewDuplicates = "duplicates"
	ViewUnique     = "unique"
)

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource with a fixed value.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Pagination tracks the current page window. Counters only change after a
// successful response.
type Pagination struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// State is the orchestrator's externally visible state. Views render Leads,
// show Loading while a fetch is outstanding, and render Err when set; retry
// is re-invoking the same operation.
type State struct {
	Leads      []leads.Lead
	Pagination Pagination
	Filters    FilterState
	SortBy     string
	SortDir    string
	Search     string
	View       string
	Loading    bool
	Err        string
}

// Client is the lead query orchestrator. It owns filter and pagination state
// exclusively; in-flight requests are not cancelled on supersession, so rapid
// distinct queries can land out of order (last update wins).
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     *logging.Logger
	metrics    *metrics.LeadQueryMetrics
	dedup      Deduplicator

	exportPageSize int
	defaultSize    int

	mu    sync.Mutex
	state State
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics attaches lead query metrics.
func WithMetrics(m *metrics.LeadQueryMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithExportPageSize overrides the bulk page size used by LoadAllFilteredLeads.
func WithExportPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.exportPageSize = n
		}
	}
}

// WithDefaultPageSize overrides the initial page size.
func WithDefaultPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.defaultSize = n
		}
	}
}

// NewClient creates a lead query orchestrator against baseURL.
func NewClient(baseURL string, tokens TokenSource, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		baseURL:        strings.TrimRight(baseURL, "/"),
		tokens:         tokens,
		logger:         logger,
		exportPageSize: 10000,
		defaultSize:    25,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{
		Pagination: Pagination{Page: 1, PageSize: c.defaultSize},
		SortBy:     "updatedAt",
		SortDir:    "desc",
		View:       ViewAll,
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.state
	snap.Leads = append([]leads.Lead{}, c.state.Leads...)
	snap.Filters = c.state.Filters.Clone()
	return snap
}

// LoadOptions customizes one LoadLeads call.
type LoadOptions struct {
	Page        int
	PageSize    int
	FilterPatch *FilterState

	// Source names the interaction that triggered the load ("pagination",
	// "filters", ...) and is attached to failure diagnostics.
	Source string
}

// LoadLeads merges any filter patch, then fetches one page. All failures are
// captured into State.Err; a deduplicated call is a silent no-op.
func (c *Client) LoadLeads(ctx context.Context, opts LoadOptions) {
	c.mu.Lock()
	if opts.FilterPatch != nil {
		c.state.Filters.Merge(*opts.FilterPatch)
	}
	if opts.Page > 0 {
		c.state.Pagination.Page = opts.Page
	}
	if opts.PageSize > 0 {
		c.state.Pagination.PageSize = opts.PageSize
	}
	page := c.state.Pagination.Page
	size := c.state.Pagination.PageSize
	sortBy, sortDir := c.state.SortBy, c.state.SortDir
	search, view := c.state.Search, c.state.View
	filters := c.state.Filters.Clone()
	c.mu.Unlock()

	apiFilters := Translate(filters)
	key := RequestKey(page, size, sortBy, sortDir, search, view, apiFilters)

	if !c.dedup.Begin(key) {
		c.metrics.ObserveDedupSuppressed()
		return
	}

	c.setLoading(true)

	endpoint := "/api/leads"
	if view == ViewDuplicates {
		endpoint = "/api/leads/duplicates"
	}

	if view == ViewUnique {
		ids, err := c.fetchDuplicateIDs(ctx)
		if err != nil {
			c.fail("duplicate-ids", opts.Source, err)
			return
		}
		if len(ids) > 0 {
			apiFilters["Id"] = leads.Condition{Op: leads.OpNin, Values: ids}
		}
	}

	data, err := c.fetchPage(ctx, endpoint, page, size, sortBy, sortDir, search, apiFilters)
	if err != nil {
		c.fail(endpoint, opts.Source, err)
		return
	}

	normalized, warns := leads.NormalizeAll(data.Raws)
	c.reportWarnings(warns)

	c.mu.Lock()
	c.state.Leads = normalized
	c.state.Pagination = Pagination{
		Page:       data.Page,
		PageSize:   data.PageSize,
		Total:      data.Total,
		TotalPages: data.TotalPages,
	}
	c.state.Loading = false
	c.state.Err = ""
	c.mu.Unlock()

	c.dedup.Finish()
}

// SetPage moves to page n with the current filters and sort.
func (c *Client) SetPage(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	c.LoadLeads(ctx, LoadOptions{Page: n, Source: "pagination"})
}

// SetPageSize changes the page size and always resets to page 1.
func (c *Client) SetPageSize(ctx context.Context, n int) {
	if n < 1 {
		return
	}
	c.LoadLeads(ctx, LoadOptions{Page: 1, PageSize: n, Source: "page-size"})
}

// UpdateFilters merges a partial filter state and reloads from page 1.
func (c *Client) UpdateFilters(ctx context.Context, patch FilterState) {
	c.LoadLeads(ctx, LoadOptions{Page: 1, FilterPatch: &patch, Source: "filters"})
}

// SetSearch replaces the free-text search term and reloads from page 1.
func (c *Client) SetSearch(ctx context.Context, search string) {
	c.mu.Lock()
	c.state.Search = search
	c.mu.Unlock()
	c.LoadLeads(ctx, LoadOptions{Page: 1, Source: "search"})
}

// SetSort replaces the sort column and direction and reloads from page 1.
func (c *Client) SetSort(ctx context.Context, sortBy, sortDir string) {
	c.mu.Lock()
	c.state.SortBy = sortBy
	if sortDir == "asc" {
		c.state.SortDir = "asc"
	} else {
		c.state.SortDir = "desc"
	}
	c.mu.Unlock()
	c.LoadLeads(ctx, LoadOptions{Page: 1, Source: "sort"})
}

// SetView switches the duplicate view mode and reloads from page 1.
func (c *Client) SetView(ctx context.Context, view string) {
	switch view {
	case ViewAll, ViewDuplicates, ViewUnique:
	default:
		view = ViewAll
	}
	c.mu.Lock()
	c.state.View = view
	c.mu.Unlock()
	c.LoadLeads(ctx, LoadOptions{Page: 1, Source: "view"})
}

// RefreshLeads re-runs the current query even if its key matches the last
// successful fetch.
func (c *Client) RefreshLeads(ctx context.Context) {
	c.dedup.Invalidate()
	c.LoadLeads(ctx, LoadOptions{Source: "refresh"})
}

// GetUniqueValues fetches the distinct values of one field under the current
// filter context. No caching; callers are expected to debounce.
func (c *Client) GetUniqueValues(ctx context.Context, field, search string) ([]string, error) {
	c.mu.Lock()
	filters := c.state.Filters.Clone()
	c.mu.Unlock()

	apiFilters := Translate(filters)
	filtersJSON, err := json.Marshal(apiFilters)
	if err != nil {
		return nil, fmt.Errorf("leadquery: encode filters: %w", err)
	}

	params := url.Values{}
	params.Set("field", MapField(field))
	if search != "" {
		params.Set("search", search)
	}
	if len(apiFilters) > 0 {
		params.Set("filters", string(filtersJSON))
	}

	start := time.Now()
	body, err := c.get(ctx, "/api/leads/unique-values", params)
	c.metrics.ObserveQuery("unique-values", time.Since(start).Seconds())
	if err != nil {
		c.metrics.ObserveQueryError("unique-values")
		return nil, err
	}
	defer body.Close()

	var out struct {
		Values []string `json:"values"`
	}
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil, fmt.Errorf("leadquery: decode unique values: %w", err)
	}
	return out.Values, nil
}

// LoadAllFilteredLeads fetches every lead matching the current filters in a
// single oversized page, for bulk and export flows. Intended for moderate
// result sets; there is no streaming or cursor.
func (c *Client) LoadAllFilteredLeads(ctx context.Context) ([]leads.Lead, error) {
	c.mu.Lock()
	sortBy, sortDir := c.state.SortBy, c.state.SortDir
	search, view := c.state.Search, c.state.View
	filters := c.state.Filters.Clone()
	c.mu.Unlock()

	apiFilters := Translate(filters)

	endpoint := "/api/leads"
	if view == ViewDuplicates {
		endpoint = "/api/leads/duplicates"
	}
	if view == ViewUnique {
		ids, err := c.fetchDuplicateIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			apiFilters["Id"] = leads.Condition{Op: leads.OpNin, Values: ids}
		}
	}

	data, err := c.fetchPage(ctx, endpoint, 1, c.exportPageSize, sortBy, sortDir, search, apiFilters)
	if err != nil {
		return nil, err
	}

	normalized, warns := leads.NormalizeAll(data.Raws)
	c.reportWarnings(warns)
	return normalized, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, page, size int, sortBy, sortDir, search string, f leads.Filters) (pageData, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(size))
	params.Set("sort_by", MapField(sortBy))
	params.Set("sort_dir", sortDir)
	if search != "" {
		params.Set("search", search)
	}
	if len(f) > 0 {
		filtersJSON, err := json.Marshal(f)
		if err != nil {
			return pageData{}, fmt.Errorf("leadquery: encode filters: %w", err)
		}
		params.Set("filters", string(filtersJSON))
	}

	start := time.Now()
	body, err := c.get(ctx, endpoint, params)
	c.metrics.ObserveQuery(endpoint, time.Since(start).Seconds())
	if err != nil {
		return pageData{}, err
	}
	defer body.Close()

	return decodePage(body, page, size)
}

func (c *Client) fetchDuplicateIDs(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/api/leads/duplicate-ids", nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var out struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil, fmt.Errorf("leadquery: decode duplicate ids: %w", err)
	}
	return out.IDs, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (io.ReadCloser, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("leadquery: build request: %w", err)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("leadquery: token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leadquery: request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		resp.Body.Close()
		return nil, fmt.Errorf("leadquery: %s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return resp.Body, nil
}

func (c *Client) setLoading(v bool) {
	c.mu.Lock()
	c.state.Loading = v
	c.mu.Unlock()
}

func (c *Client) fail(endpoint, source string, err error) {
	if source == "" {
		source = "unspecified"
	}
	c.logger.Error("lead query failed", "endpoint", endpoint, "source", source, "error", err)
	c.metrics.ObserveQueryError(endpoint)

	c.mu.Lock()
	c.state.Err = err.Error()
	c.state.Loading = false
	c.mu.Unlock()

	c.dedup.Fail()
}

func (c *Client) reportWarnings(warns []leads.FieldWarning) {
	for _, w := range warns {
		c.logger.Warn("lead field defaulted",
			"lead_id", w.LeadID,
			"field", w.Field,
			"reason", w.Reason,
		)
		c.metrics.ObserveFieldWarning(w.Field)
	}
}

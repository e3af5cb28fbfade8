package leadquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SkCo-Dali/dali-crm/internal/leads"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// fakeBackend is a minimal lead store speaking the list contract.
type fakeBackend struct {
	mu        sync.Mutex
	listCalls int32
	lastQuery url.Values

	failList bool
	blockCh  chan struct{} // when set, list requests block until closed

	items        []leads.RawLead
	total        int
	duplicateIDs []string
	uniqueValues []string
}

func (b *fakeBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	list := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.listCalls, 1)
		b.mu.Lock()
		b.lastQuery = r.URL.Query()
		block := b.blockCh
		fail := b.failList
		items := b.items
		total := b.total
		b.mu.Unlock()

		if block != nil {
			<-block
		}
		if fail {
			http.Error(w, "backend exploded", http.StatusInternalServerError)
			return
		}

		page := 1
		pageSize := 25
		fmt.Sscan(r.URL.Query().Get("page"), &page)
		fmt.Sscan(r.URL.Query().Get("page_size"), &pageSize)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items":     items,
			"page":      page,
			"page_size": pageSize,
			"total":     total,
		})
	}

	mux.HandleFunc("/api/leads", list)
	mux.HandleFunc("/api/leads/duplicates", list)
	mux.HandleFunc("/api/leads/duplicate-ids", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		ids := b.duplicateIDs
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"ids": ids})
	})
	mux.HandleFunc("/api/leads/unique-values", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.lastQuery = r.URL.Query()
		values := b.uniqueValues
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"values": values})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (b *fakeBackend) query() url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastQuery
}

func newTestClient(t *testing.T, b *fakeBackend, opts ...Option) *Client {
	t.Helper()
	srv := b.server(t)
	return NewClient(srv.URL, StaticToken("test-token"), logging.New("error"), opts...)
}

func TestLoadLeadsPopulatesState(t *testing.T) {
	backend := &fakeBackend{
		items: []leads.RawLead{
			{ID: "a", Name: "Ana", Tags: `["vip"]`, Value: "99.5"},
			{ID: "b", Name: "Bruno", Tags: "broken"},
		},
		total: 2,
	}
	client := newTestClient(t, backend)

	client.LoadLeads(context.Background(), LoadOptions{})

	state := client.State()
	if state.Err != "" {
		t.Fatalf("unexpected error: %s", state.Err)
	}
	if state.Loading {
		t.Error("loading must be false after completion")
	}
	if len(state.Leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(state.Leads))
	}
	if state.Leads[0].Value != 99.5 {
		t.Errorf("normalization should coerce Value, got %f", state.Leads[0].Value)
	}
	if len(state.Leads[1].Tags) != 0 {
		t.Errorf("bad tags should default empty, got %v", state.Leads[1].Tags)
	}
	if state.Pagination.Total != 2 || state.Pagination.TotalPages != 1 {
		t.Errorf("unexpected pagination: %+v", state.Pagination)
	}

	q := backend.query()
	if q.Get("sort_by") != "UpdatedAt" || q.Get("sort_dir") != "desc" {
		t.Errorf("expected default sort, got %v", q)
	}
}

func TestLoadLeadsInFlightIsSuppressed(t *testing.T) {
	block := make(chan struct{})
	backend := &fakeBackend{total: 0, blockCh: block}
	client := newTestClient(t, backend)

	done := make(chan struct{})
	go func() {
		client.LoadLeads(context.Background(), LoadOptions{})
		close(done)
	}()

	// Wait for the first request to reach the backend.
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&backend.listCalls) == 0 {
		select {
		case <-deadline:
			t.Fatal("first request never arrived")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Identical call while the first is pending: must be a silent no-op.
	client.LoadLeads(context.Background(), LoadOptions{})

	close(block)
	<-done

	if calls := atomic.LoadInt32(&backend.listCalls); calls != 1 {
		t.Errorf("expected exactly one network call, got %d", calls)
	}
}

func TestLoadLeadsRepeatedKeySuppressed(t *testing.T) {
	backend := &fakeBackend{total: 1, items: []leads.RawLead{{ID: "a"}}}
	client := newTestClient(t, backend)

	client.LoadLeads(context.Background(), LoadOptions{})
	client.LoadLeads(context.Background(), LoadOptions{})

	if calls := atomic.LoadInt32(&backend.listCalls); calls != 1 {
		t.Errorf("identical repeated query should be deduplicated, got %d calls", calls)
	}

	client.RefreshLeads(context.Background())
	if calls := atomic.LoadInt32(&backend.listCalls); calls != 2 {
		t.Errorf("refresh should bypass the dedup key, got %d calls", calls)
	}
}

func TestSetPageSizeResetsPage(t *testing.T) {
	backend := &fakeBackend{total: 100}
	client := newTestClient(t, backend)

	client.SetPage(context.Background(), 3)
	if got := client.State().Pagination.Page; got != 3 {
		t.Fatalf("expected page 3, got %d", got)
	}

	client.SetPageSize(context.Background(), 50)

	state := client.State()
	if state.Pagination.Page != 1 {
		t.Errorf("SetPageSize must reset to page 1, got %d", state.Pagination.Page)
	}
	if state.Pagination.PageSize != 50 {
		t.Errorf("expected page size 50, got %d", state.Pagination.PageSize)
	}
	if q := backend.query(); q.Get("page") != "1" || q.Get("page_size") != "50" {
		t.Errorf("unexpected request params: %v", q)
	}
}

func TestFailedLoadKeepsCountersAndSetsError(t *testing.T) {
	backend := &fakeBackend{total: 7, items: []leads.RawLead{{ID: "a"}}}
	client := newTestClient(t, backend)

	client.LoadLeads(context.Background(), LoadOptions{})
	if total := client.State().Pagination.Total; total != 7 {
		t.Fatalf("expected total 7, got %d", total)
	}

	backend.mu.Lock()
	backend.failList = true
	backend.mu.Unlock()

	client.SetPage(context.Background(), 2)

	state := client.State()
	if state.Err == "" {
		t.Error("expected error message after failed fetch")
	}
	if state.Pagination.Total != 7 {
		t.Errorf("failed load must leave prior counters intact, got %d", state.Pagination.Total)
	}
	if len(state.Leads) != 1 {
		t.Errorf("failed load must leave prior data in place, got %d leads", len(state.Leads))
	}

	// The dedup key was cleared on failure: the identical retry goes out.
	backend.mu.Lock()
	backend.failList = false
	backend.mu.Unlock()

	before := atomic.LoadInt32(&backend.listCalls)
	client.SetPage(context.Background(), 2)
	if atomic.LoadInt32(&backend.listCalls) != before+1 {
		t.Error("retry after failure must not be suppressed")
	}
	if err := client.State().Err; err != "" {
		t.Errorf("error should clear on success, got %q", err)
	}
}

func TestFailedLoadLogsSource(t *testing.T) {
	backend := &fakeBackend{failList: true}
	srv := backend.server(t)

	var buf bytes.Buffer
	logger := &logging.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	client := NewClient(srv.URL, StaticToken("test-token"), logger)

	client.LoadLeads(context.Background(), LoadOptions{Source: "filters"})
	if !strings.Contains(buf.String(), `"source":"filters"`) {
		t.Errorf("failure log should carry the caller's source tag, got %s", buf.String())
	}

	buf.Reset()
	client.SetPage(context.Background(), 2)
	if !strings.Contains(buf.String(), `"source":"pagination"`) {
		t.Errorf("pagination failures should be tagged, got %s", buf.String())
	}
}

func TestUniqueViewExcludesDuplicateIDs(t *testing.T) {
	backend := &fakeBackend{total: 1, duplicateIDs: []string{"a", "b"}}
	client := newTestClient(t, backend)

	client.SetView(context.Background(), ViewUnique)

	q := backend.query()
	var filters leads.Filters
	if err := json.Unmarshal([]byte(q.Get("filters")), &filters); err != nil {
		t.Fatalf("filters param should be JSON: %v", err)
	}
	cond, ok := filters["Id"]
	if !ok || cond.Op != leads.OpNin {
		t.Fatalf("expected Id nin condition, got %v", filters)
	}
	if len(cond.Values) != 2 || cond.Values[0] != "a" || cond.Values[1] != "b" {
		t.Errorf("unexpected excluded ids: %v", cond.Values)
	}
}

func TestUniqueViewMergesWithActiveFilters(t *testing.T) {
	backend := &fakeBackend{total: 1, duplicateIDs: []string{"a"}}
	client := newTestClient(t, backend)

	client.UpdateFilters(context.Background(), FilterState{
		Columns: map[string][]string{"stage": {"won"}},
	})
	client.SetView(context.Background(), ViewUnique)

	var filters leads.Filters
	if err := json.Unmarshal([]byte(backend.query().Get("filters")), &filters); err != nil {
		t.Fatalf("filters param should be JSON: %v", err)
	}
	if _, ok := filters["Id"]; !ok {
		t.Error("expected Id exclusion in filters")
	}
	if cond := filters["Stage"]; cond.Op != leads.OpEq || cond.Value != "won" {
		t.Errorf("active filters must be preserved, got %v", filters)
	}
}

func TestGetUniqueValues(t *testing.T) {
	backend := &fakeBackend{uniqueValues: []string{"web", "referral"}}
	client := newTestClient(t, backend)

	values, err := client.GetUniqueValues(context.Background(), "lastInteraction", "re")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 2 {
		t.Errorf("unexpected values: %v", values)
	}

	q := backend.query()
	if q.Get("field") != "LastInteractionAt" {
		t.Errorf("field name must be mapped, got %q", q.Get("field"))
	}
	if q.Get("search") != "re" {
		t.Errorf("search must pass through, got %q", q.Get("search"))
	}
}

func TestLoadAllFilteredLeads(t *testing.T) {
	backend := &fakeBackend{total: 2, items: []leads.RawLead{{ID: "a"}, {ID: "b"}}}
	client := newTestClient(t, backend, WithExportPageSize(5000))

	all, err := client.LoadAllFilteredLeads(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 leads, got %d", len(all))
	}
	if q := backend.query(); q.Get("page_size") != "5000" || q.Get("page") != "1" {
		t.Errorf("expected oversized single page, got %v", q)
	}
}

package leadquery

import (
	"encoding/json"
	"sync"

	"github.com/SkCo-Dali/dali-crm/internal/leads"
)

// Deduplicator is the request admission guard: a fetch is suppressed while an
// identical or different fetch is in flight, or when its key matches the most
// recently completed fetch. This is an optimization, not a correctness
// mechanism; suppressed callers must tolerate the no-op.
type Deduplicator struct {
	mu         sync.Mutex
	inFlight   bool
	currentKey string
	lastKey    string
}

// Begin attempts the Idle -> InFlight transition for key. It reports false
// when the fetch must be suppressed.
func (d *Deduplicator) Begin(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inFlight {
		return false
	}
	if key != "" && key == d.lastKey {
		return false
	}
	d.inFlight = true
	d.currentKey = key
	return true
}

// Finish records a successful fetch and returns to Idle. Repeating the same
// key is suppressed until the key changes or a failure clears it.
func (d *Deduplicator) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastKey = d.currentKey
	d.currentKey = ""
	d.inFlight = false
}

// Fail returns to Idle and clears the last-success key so a retry with
// identical parameters is not permanently suppressed.
func (d *Deduplicator) Fail() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastKey = ""
	d.currentKey = ""
	d.inFlight = false
}

// Invalidate clears the last-success key so the next identical request is
// admitted (used by explicit refresh).
func (d *Deduplicator) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastKey = ""
}

// requestKey is the stable serialization of everything that identifies one
// logical query. encoding/json orders map keys, so equal filter maps always
// produce equal keys.
type requestKey struct {
	Page          int           `json:"page"`
	PageSize      int           `json:"page_size"`
	SortBy        string        `json:"sort_by"`
	SortDir       string        `json:"sort_dir"`
	Search        string        `json:"search"`
	DuplicateView string        `json:"duplicate_view"`
	Filters       leads.Filters `json:"filters"`
}

// RequestKey computes the dedup key for one logical query.
func RequestKey(page, pageSize int, sortBy, sortDir, search, duplicateView string, filters leads.Filters) string {
	b, err := json.Marshal(requestKey{
		Page:          page,
		PageSize:      pageSize,
		SortBy:        sortBy,
		SortDir:       sortDir,
		Search:        search,
		DuplicateView: duplicateView,
		Filters:       filters,
	})
	if err != nil {
		return ""
	}
	return string(b)
}

package leadquery

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/SkCo-Dali/dali-crm/internal/leads"
)

// pageData is the canonical decoded list response.
type pageData struct {
	Raws       []leads.RawLead
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// envelope tolerates every known wire variant of the list response. New
// variants get one field here rather than optional handling at call sites.
type envelope struct {
	Items []leads.RawLead `json:"items"`
	Data  []leads.RawLead `json:"data"`

	Page       int `json:"page"`
	PageNumber int `json:"page_number"`

	PageSize    int `json:"page_size"`
	PageSizeAlt int `json:"pageSize"`

	Total int `json:"total"`
	Count int `json:"count"`

	TotalPages    int `json:"total_pages"`
	TotalPagesAlt int `json:"totalPages"`
}

// decodePage reads a list response body, normalizing key variants and
// deriving total_pages when the store does not supply it.
func decodePage(r io.Reader, fallbackPage, fallbackPageSize int) (pageData, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return pageData{}, fmt.Errorf("leadquery: decode response: %w", err)
	}

	out := pageData{
		Raws:       env.Items,
		Page:       firstNonZero(env.Page, env.PageNumber, fallbackPage),
		PageSize:   firstNonZero(env.PageSize, env.PageSizeAlt, fallbackPageSize),
		Total:      firstNonZero(env.Total, env.Count),
		TotalPages: firstNonZero(env.TotalPages, env.TotalPagesAlt),
	}
	if out.Raws == nil {
		out.Raws = env.Data
	}
	if out.TotalPages == 0 {
		out.TotalPages = leads.TotalPagesFor(out.Total, out.PageSize)
	}
	return out, nil
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// AdminStatsHandler serves aggregate lead and outreach statistics for the
// admin dashboard.
type AdminStatsHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewAdminStatsHandler creates a new admin stats handler.
func NewAdminStatsHandler(db *sql.DB, logger *logging.Logger) *AdminStatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminStatsHandler{
		db:     db,
		logger: logger,
	}
}

// LeadStatsResponse contains the dashboard aggregates.
type LeadStatsResponse struct {
	Total        int           `json:"total"`
	NewThisWeek  int           `json:"new_this_week"`
	NewThisMonth int           `json:"new_this_month"`
	Duplicates   int           `json:"duplicates"`
	ByStage      []StageCount  `json:"by_stage"`
	TopSources   []SourceCount `json:"top_sources,omitempty"`
	Outreach     OutreachStats `json:"outreach"`
}

// StageCount is the number of leads in one pipeline stage.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// SourceCount is the number of leads from one acquisition source.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// OutreachStats summarizes WhatsApp campaign delivery.
type OutreachStats struct {
	PublishedCampaigns int `json:"published_campaigns"`
	MessagesSent       int `json:"messages_sent"`
	MessagesFailed     int `json:"messages_failed"`
}

// GetLeadStats returns aggregate lead statistics.
// GET /admin/stats
func (h *AdminStatsHandler) GetLeadStats(w http.ResponseWriter, r *http.Request) {
	stats := LeadStatsResponse{
		ByStage: []StageCount{},
	}

	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, -1, 0)

	// Counters are best effort: a failed scan leaves the zero value.
	h.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM leads`,
	).Scan(&stats.Total)

	h.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM leads WHERE created_at >= $1`, weekAgo,
	).Scan(&stats.NewThisWeek)

	h.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM leads WHERE created_at >= $1`, monthAgo,
	).Scan(&stats.NewThisMonth)

	h.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM leads_with_dups WHERE is_duplicate`,
	).Scan(&stats.Duplicates)

	rows, err := h.db.QueryContext(r.Context(),
		`SELECT stage, COUNT(*) FROM leads GROUP BY stage ORDER BY COUNT(*) DESC`,
	)
	if err != nil {
		h.logger.Error("query stage breakdown failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()
	for rows.Next() {
		var sc StageCount
		if err := rows.Scan(&sc.Stage, &sc.Count); err != nil {
			h.logger.Error("scan stage breakdown failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		stats.ByStage = append(stats.ByStage, sc)
	}

	srcRows, err := h.db.QueryContext(r.Context(),
		`SELECT source, COUNT(*) FROM leads WHERE source <> '' GROUP BY source ORDER BY COUNT(*) DESC LIMIT 5`,
	)
	if err == nil {
		defer srcRows.Close()
		for srcRows.Next() {
			var sc SourceCount
			if err := srcRows.Scan(&sc.Source, &sc.Count); err != nil {
				break
			}
			stats.TopSources = append(stats.TopSources, sc)
		}
	} else {
		h.logger.Warn("query top sources failed", "error", err)
	}

	h.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM outreach_campaigns WHERE status = 'published'`,
	).Scan(&stats.Outreach.PublishedCampaigns)

	h.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM outreach_messages WHERE status = 'sent'`,
	).Scan(&stats.Outreach.MessagesSent)

	h.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM outreach_messages WHERE status = 'failed'`,
	).Scan(&stats.Outreach.MessagesFailed)

	writeJSON(w, http.StatusOK, stats)
}

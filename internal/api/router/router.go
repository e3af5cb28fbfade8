// Package router wires the HTTP surface: public health and metrics, the
// authenticated /api tree, and the admin-only /admin tree.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SkCo-Dali/dali-crm/internal/http/handlers"
	httpmiddleware "github.com/SkCo-Dali/dali-crm/internal/http/middleware"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger            *logging.Logger
	LeadsHandler      *handlers.LeadsHandler
	OutreachHandler   *handlers.OutreachHandler
	ReportsHandler    *handlers.ReportsHandler
	OnboardingHandler *handlers.OnboardingHandler
	AdminStatsHandler *handlers.AdminStatsHandler
	MetricsHandler    http.Handler

	// AuthSecret signs and verifies user JWTs. Required for the /api and
	// /admin trees.
	AuthSecret string

	CORSAllowedOrigins []string

	// RateLimit is requests per second per client IP; zero disables limiting.
	RateLimit      float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit)
		}
		r.Use(httpmiddleware.RateLimit(cfg.RateLimit, burst))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated API
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.UserJWT(cfg.AuthSecret))

		if cfg.LeadsHandler != nil {
			api.Route("/leads", func(r chi.Router) {
				r.Get("/", cfg.LeadsHandler.List)
				r.Post("/", cfg.LeadsHandler.Create)
				r.Get("/duplicates", cfg.LeadsHandler.ListDuplicates)
				r.Get("/duplicate-ids", cfg.LeadsHandler.DuplicateIDs)
				r.Get("/unique-values", cfg.LeadsHandler.UniqueValues)
				r.Get("/{leadID}", cfg.LeadsHandler.Get)
				r.Patch("/{leadID}", cfg.LeadsHandler.Update)
				r.Delete("/{leadID}", cfg.LeadsHandler.Delete)
			})
		}

		if cfg.OutreachHandler != nil {
			api.Route("/campaigns", func(r chi.Router) {
				r.Get("/", cfg.OutreachHandler.ListCampaigns)
				r.Post("/", cfg.OutreachHandler.CreateCampaign)
				r.Get("/{campaignID}", cfg.OutreachHandler.GetCampaign)
				r.Post("/{campaignID}/publish", cfg.OutreachHandler.PublishCampaign)
			})
		}

		if cfg.ReportsHandler != nil {
			api.Get("/reports", cfg.ReportsHandler.ListVisible)
		}

		if cfg.OnboardingHandler != nil {
			api.Route("/onboarding", func(r chi.Router) {
				r.Get("/", cfg.OnboardingHandler.Progress)
				r.Post("/steps/{step}", cfg.OnboardingHandler.Advance)
				r.Post("/complete", cfg.OnboardingHandler.Complete)
			})
			api.Route("/drafts/{formID}", func(r chi.Router) {
				r.Put("/", cfg.OnboardingHandler.SaveDraft)
				r.Get("/", cfg.OnboardingHandler.GetDraft)
				r.Delete("/", cfg.OnboardingHandler.DeleteDraft)
			})
		}
	})

	// Admin API
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.UserJWT(cfg.AuthSecret))
		admin.Use(httpmiddleware.RequireRole("admin"))

		if cfg.AdminStatsHandler != nil {
			admin.Get("/stats", cfg.AdminStatsHandler.GetLeadStats)
		}

		if cfg.ReportsHandler != nil {
			admin.Route("/reports/{reportID}", func(r chi.Router) {
				r.Post("/grants", cfg.ReportsHandler.Grant)
				r.Delete("/grants/{userID}", cfg.ReportsHandler.Revoke)
				r.Get("/access/{userID}", cfg.ReportsHandler.EffectiveAccess)
			})
		}
	})

	return r
}

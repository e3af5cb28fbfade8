package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/SkCo-Dali/dali-crm/cmd/mainconfig"
	"github.com/SkCo-Dali/dali-crm/internal/api/router"
	appconfig "github.com/SkCo-Dali/dali-crm/internal/config"
	"github.com/SkCo-Dali/dali-crm/internal/http/handlers"
	"github.com/SkCo-Dali/dali-crm/internal/leads"
	"github.com/SkCo-Dali/dali-crm/internal/observability/metrics"
	"github.com/SkCo-Dali/dali-crm/internal/onboarding"
	"github.com/SkCo-Dali/dali-crm/internal/outreach"
	"github.com/SkCo-Dali/dali-crm/internal/reports"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dali-crm API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	reg := prometheus.NewRegistry()
	leadMetrics := metrics.NewLeadQueryMetrics(reg)
	outreachMetrics := metrics.NewOutreachMetrics(reg)

	// Storage. Without DATABASE_URL everything runs in memory, which is
	// enough for local development.
	var (
		leadsRepo     leads.Repository
		outreachStore outreach.Store
		reportsRepo   reports.Repository
		statsDB       *sql.DB
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect to postgres failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		leadsRepo = leads.NewPostgresRepository(pool)
		outreachStore = outreach.NewPostgresStore(pool)
		reportsRepo = reports.NewPostgresRepository(pool)

		statsDB, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("open stats db failed", "error", err)
			os.Exit(1)
		}
		defer statsDB.Close()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		leadsRepo = leads.NewInMemoryRepository()
		outreachStore = outreach.NewMemoryStore()
		reportsRepo = reports.NewInMemoryRepository()
	}

	redisClient := newRedisClient(cfg)
	defer redisClient.Close()

	// Outreach queue
	var queue outreach.Queue
	if cfg.UseMemoryQueue || cfg.OutreachQueueURL == "" {
		logger.Warn("using in-memory outreach queue")
		queue = outreach.NewMemoryQueue(64)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("load AWS config failed", "error", err)
			os.Exit(1)
		}
		queue = outreach.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.OutreachQueueURL)
	}

	publisher := outreach.NewPublisher(outreachStore, queue, leadsRepo, logger, outreachMetrics, cfg.OutreachDrySampleSize)
	reportsService := reports.NewService(reportsRepo, logger)
	wizard := onboarding.NewWizard()
	draftStore := onboarding.NewDraftStore(redisClient, cfg.DraftTTL)

	routerCfg := &router.Config{
		Logger:             logger,
		LeadsHandler:       handlers.NewLeadsHandler(leadsRepo, logger, leadMetrics, cfg.DefaultPageSize, cfg.MaxPageSize),
		OutreachHandler:    handlers.NewOutreachHandler(publisher, outreachStore, logger),
		ReportsHandler:     handlers.NewReportsHandler(reportsService, logger),
		OnboardingHandler:  handlers.NewOnboardingHandler(wizard, draftStore, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AuthSecret:         cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          cfg.RateLimit,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	if statsDB != nil {
		routerCfg.AdminStatsHandler = handlers.NewAdminStatsHandler(statsDB, logger)
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

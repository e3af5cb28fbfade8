package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/SkCo-Dali/dali-crm/cmd/mainconfig"
	"github.com/SkCo-Dali/dali-crm/internal/config"
	"github.com/SkCo-Dali/dali-crm/internal/observability/metrics"
	"github.com/SkCo-Dali/dali-crm/internal/outreach"
	outreachworker "github.com/SkCo-Dali/dali-crm/internal/worker/outreach"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" || cfg.OutreachQueueURL == "" {
		logger.Error("outreach worker requires DATABASE_URL and OUTREACH_QUEUE_URL")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("load AWS config failed", "error", err)
		os.Exit(1)
	}
	queue := outreach.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.OutreachQueueURL)

	sender, err := outreach.NewWhatsAppClient(outreach.WhatsAppConfig{
		BaseURL:       cfg.WhatsAppBaseURL,
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
	})
	if err != nil {
		logger.Error("failed to create whatsapp client", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	throttle := outreach.NewThrottle(redisClient, cfg.OutreachRatePerMinute)
	store := outreach.NewPostgresStore(pool)
	outreachMetrics := metrics.NewOutreachMetrics(prometheus.DefaultRegisterer)

	worker := outreachworker.New(queue, store, sender, throttle, logger, outreachMetrics).
		WithMaxAttempts(cfg.OutreachRetryMaxAttempts).
		WithBaseDelay(cfg.OutreachRetryBaseDelay)

	for i := 0; i < cfg.WorkerCount; i++ {
		go worker.Run(ctx)
	}
	go worker.RunRetryLoop(ctx)

	logger.Info("outreach worker started", "workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("outreach worker shutting down")
	cancel()
	time.Sleep(2 * time.Second)
}

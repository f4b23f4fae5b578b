package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/config"
	"github.com/boddenberg/expense-claim-bfa/internal/domain"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/cache"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/client"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/imaging"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/observability"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/pdf"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/resilience"
	"github.com/boddenberg/expense-claim-bfa/internal/port"
	"github.com/boddenberg/expense-claim-bfa/internal/service"
)

const serviceName = "expense-claim-bfa"

// app is every long-lived component, built once per process.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	metrics      *observability.Metrics
	claims       *service.ClaimService
	connectivity port.ConnectivityChecker
	bulkhead     *resilience.Bulkhead

	shutdownTracer func(context.Context) error
	outcomes       *cache.InMemory[*domain.SubmissionOutcome]
}

func buildApp(ctx context.Context) (*app, error) {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Float64("max_payload_mb", cfg.MaxPayloadMB),
		zap.Bool("encode_payload_fields", cfg.EncodePayloadFields),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Bool("signed_requests", cfg.WebhookSigningSecret != ""),
		zap.Bool("connectivity_check", cfg.ConnectivityCheck),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to init tracer", zap.Error(err))
		return nil, err
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Chart of accounts ---
	chart, err := config.LoadChartOfAccounts(cfg.AccountsFile)
	if err != nil {
		return nil, err
	}

	// --- PDF ---
	merger := pdf.NewMerger(imaging.NewCompressor(), pdf.MergerConfig{
		ImageMaxDimension:   cfg.ImageMaxDimension,
		ImageQuality:        cfg.ImageQuality,
		ImageBudgetFraction: cfg.ImageBudgetFraction,
	}, logger)
	merger.OnDegraded = metrics.IncrAttachmentIssue
	summary := pdf.NewSummaryRenderer(chart)

	// --- Resilience ---
	retry := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		Retryable:      client.IsRetryable,
	}
	cb := resilience.NewCircuitBreaker("webhook", resilience.BreakerSettings{}, logger)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	poster := client.NewWebhookClient(httpClient, client.WebhookConfig{
		URL:           cfg.WebhookURL,
		SigningSecret: cfg.WebhookSigningSecret,
		TokenTTL:      cfg.WebhookTokenTTL,
		RatePerSec:    cfg.WebhookRatePerSec,
		RateBurst:     cfg.WebhookRateBurst,
	}, cb, retry, logger)

	var connectivity port.ConnectivityChecker = client.AlwaysOnline{}
	if cfg.ConnectivityCheck {
		checker, err := client.NewDNSChecker(cfg.WebhookURL, cfg.ConnectivityTimeout, cfg.ConnectivityCacheTTL, logger)
		if err != nil {
			return nil, err
		}
		connectivity = checker
	} else {
		logger.Warn("connectivity check disabled, offline state is detected only by failed requests")
	}

	// --- Cache ---
	outcomes := cache.New[*domain.SubmissionOutcome](cfg.IdempotencyTTL)

	// --- Services ---
	claims := service.NewClaimService(
		chart,
		connectivity,
		summary,
		merger,
		poster,
		outcomes,
		service.ClaimConfig{
			LimitBytes:   service.LimitBytes(cfg.MaxPayloadMB),
			EncodeFields: cfg.EncodePayloadFields,
		},
		metrics,
		logger,
	)

	return &app{
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics,
		claims:         claims,
		connectivity:   connectivity,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		shutdownTracer: shutdown,
		outcomes:       outcomes,
	}, nil
}

// close flushes traces and logs. It is safe to call once.
func (a *app) close() {
	a.outcomes.Stop()
	if err := a.shutdownTracer(context.Background()); err != nil {
		a.logger.Warn("tracer shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

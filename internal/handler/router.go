package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/observability"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/resilience"
	"github.com/boddenberg/expense-claim-bfa/internal/port"
)

var tracer = otel.Tracer("handler")

// ClaimSubmitter is the claim service as seen by the HTTP layer.
type ClaimSubmitter interface {
	Submit(ctx context.Context, claim *domain.Claim, progress domain.ProgressFunc) (*domain.SubmissionOutcome, error)
	Plan(ctx context.Context, claim *domain.Claim) (*domain.PlanSummary, error)
}

// RouterConfig holds the HTTP-layer limits.
type RouterConfig struct {
	// MaxUploadBytes caps the JSON body of a claim, base64 receipts included.
	MaxUploadBytes int64
}

// NewRouter creates the HTTP router with all routes and middleware.
// connectivity and bulkhead may be nil.
func NewRouter(
	claims ClaimSubmitter,
	connectivity port.ConnectivityChecker,
	bulkhead *resilience.Bulkhead,
	cfg RouterConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(connectivity))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{Registry: metrics.Registry}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/submissions", submissionMetricsHandler(metrics))

		r.Group(func(r chi.Router) {
			if bulkhead != nil {
				r.Use(BulkheadMiddleware(bulkhead, logger))
			}
			r.Post("/claims", submitClaimHandler(claims, cfg, logger))
			r.Post("/claims/plan", planClaimHandler(claims, cfg, logger))
		})
	})

	return r
}

func healthzHandler(connectivity port.ConnectivityChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "claims-api", Status: "healthy", LastChecked: now},
		}

		if connectivity != nil {
			start := time.Now()
			err := connectivity.Check(r.Context())
			sh := domain.ServiceHealth{
				Name:        "webhook",
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				sh.Status = "degraded"
				sh.Detail = err.Error()
			}
			services = append(services, sh)
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func submissionMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSubmissionSnapshot())
	}
}

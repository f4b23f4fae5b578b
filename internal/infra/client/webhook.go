package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// maxErrorBody caps how much of a failed response is kept for the error.
const maxErrorBody = 2048

// WebhookConfig configures the outbound webhook.
type WebhookConfig struct {
	URL string

	// SigningSecret enables an HS256 bearer token per request.
	SigningSecret string
	TokenTTL      time.Duration

	// RatePerSec 0 disables rate limiting.
	RatePerSec float64
	RateBurst  int
}

// WebhookClient posts serialized batches to the webhook endpoint.
type WebhookClient struct {
	httpClient *http.Client
	cfg        WebhookConfig
	cb         *gobreaker.CircuitBreaker
	retry      resilience.Config
	limiter    *rate.Limiter
	logger     *zap.Logger
	now        func() time.Time
}

// NewWebhookClient creates a WebhookClient. Retries, when enabled, only
// repeat transport failures, timeouts, 429 and 5xx responses.
func NewWebhookClient(httpClient *http.Client, cfg WebhookConfig, cb *gobreaker.CircuitBreaker, retry resilience.Config, logger *zap.Logger) *WebhookClient {
	if retry.Retryable == nil {
		retry.Retryable = IsRetryable
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &WebhookClient{
		httpClient: httpClient,
		cfg:        cfg,
		cb:         cb,
		retry:      retry,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
		now:        time.Now,
	}
}

// Post sends one batch with rate limiting, circuit breaker, optional retry
// and tracing. Errors are classified into the domain error taxonomy and
// wrapped in domain.ErrExternalService.
func (c *WebhookClient) Post(ctx context.Context, req *domain.WebhookRequest) error {
	ctx, span := tracer.Start(ctx, "WebhookClient.Post")
	defer span.End()
	span.SetAttributes(
		attribute.String("claim.id", req.ClaimID),
		attribute.Int("batch.index", req.Batch),
		attribute.Int("batch.total", req.Total),
		attribute.String("batch.kind", string(req.Kind)),
		attribute.Int("body.bytes", len(req.Body)),
	)

	err := c.post(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &domain.ErrExternalService{Service: "webhook", Err: err}
	}
	return nil
}

func (c *WebhookClient) post(ctx context.Context, req *domain.WebhookRequest) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return classifyTransport(err)
	}

	attempt := 0
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.retry, func() error {
			attempt++
			if attempt > 1 {
				c.logger.Warn("retrying webhook batch",
					zap.String("claim_id", req.ClaimID),
					zap.Int("batch", req.Batch),
					zap.Int("attempt", attempt),
				)
			}
			return c.send(ctx, req)
		})
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: "webhook"}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: "webhook POST"}
	}
	return err
}

func (c *WebhookClient) send(ctx context.Context, req *domain.WebhookRequest) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(req.Body))
	if err != nil {
		return err
	}
	// text/plain keeps the request "simple" for the automation platform.
	httpReq.Header.Set("Content-Type", "text/plain")
	httpReq.Header.Set("Idempotency-Key", fmt.Sprintf("%s-%d", req.ClaimID, req.Batch))
	httpReq.Header.Set("X-Claim-Id", req.ClaimID)
	httpReq.Header.Set("X-Batch", strconv.Itoa(req.Batch)+"/"+strconv.Itoa(req.Total))

	if c.cfg.SigningSecret != "" {
		token, err := c.sign(req)
		if err != nil {
			return fmt.Errorf("signing request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	c.logger.Debug("webhook responded",
		zap.String("claim_id", req.ClaimID),
		zap.Int("batch", req.Batch),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", c.now().Sub(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.ErrServer{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

// BatchClaims are the JWT claims attached to every signed request.
type BatchClaims struct {
	ClaimID      string `json:"claim_id"`
	Batch        int    `json:"batch"`
	TotalBatches int    `json:"total_batches"`
	BodyHash     string `json:"body_blake2b"`
	jwt.RegisteredClaims
}

func (c *WebhookClient) sign(req *domain.WebhookRequest) (string, error) {
	now := c.now()
	sum := blake2b.Sum256(req.Body)

	claims := BatchClaims{
		ClaimID:      req.ClaimID,
		Batch:        req.Batch,
		TotalBatches: req.Total,
		BodyHash:     hex.EncodeToString(sum[:]),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    "expense-claim-bfa",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.cfg.SigningSecret))
}

// classifyTransport maps a failed round trip onto the domain taxonomy.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.ErrTimeout{Operation: "webhook POST"}
	}
	return &domain.ErrNetwork{Err: err}
}

// IsRetryable reports whether a failed webhook attempt may be repeated.
func IsRetryable(err error) bool {
	var server *domain.ErrServer
	if errors.As(err, &server) {
		return server.StatusCode == http.StatusTooManyRequests || server.StatusCode >= 500
	}
	switch domain.KindOf(err) {
	case domain.KindNetwork, domain.KindTimeout:
		return true
	}
	return false
}

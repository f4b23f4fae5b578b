package client_test

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/client"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/resilience"
)

func newClient(url string, cfg client.WebhookConfig, retry resilience.Config, timeout time.Duration) *client.WebhookClient {
	cfg.URL = url
	cb := resilience.NewCircuitBreaker("webhook-test", resilience.BreakerSettings{MinRequests: 100}, nil)
	return client.NewWebhookClient(&http.Client{Timeout: timeout}, cfg, cb, retry, zap.NewNop())
}

func sampleRequest() *domain.WebhookRequest {
	return &domain.WebhookRequest{
		ClaimID: "claim-7",
		Batch:   2,
		Total:   3,
		Kind:    domain.BatchKindAttachments,
		Body:    []byte(`{"fullName":"A"}`),
	}
}

func TestWebhookClient_PostSuccess(t *testing.T) {
	const secret = "s3cret"
	var gotBody []byte
	var gotHeader http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newClient(srv.URL, client.WebhookConfig{SigningSecret: secret, TokenTTL: time.Minute}, resilience.Config{}, time.Second)
	req := sampleRequest()

	require.NoError(t, c.Post(context.Background(), req))

	assert.Equal(t, req.Body, gotBody)
	assert.Equal(t, "text/plain", gotHeader.Get("Content-Type"))
	assert.Equal(t, "claim-7-2", gotHeader.Get("Idempotency-Key"))
	assert.Equal(t, "claim-7", gotHeader.Get("X-Claim-Id"))

	raw := strings.TrimPrefix(gotHeader.Get("Authorization"), "Bearer ")
	claims := &client.BatchClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, token.Valid)

	sum := blake2b.Sum256(req.Body)
	assert.Equal(t, "claim-7", claims.ClaimID)
	assert.Equal(t, 2, claims.Batch)
	assert.Equal(t, 3, claims.TotalBatches)
	assert.Equal(t, hex.EncodeToString(sum[:]), claims.BodyHash)
	assert.NotEmpty(t, claims.ID)
}

func TestWebhookClient_NoSecretNoAuthorization(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	require.NoError(t, newClient(srv.URL, client.WebhookConfig{}, resilience.Config{}, time.Second).
		Post(context.Background(), sampleRequest()))
	assert.Equal(t, "", auth.Load())
}

func TestWebhookClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	err := newClient(srv.URL, client.WebhookConfig{}, resilience.Config{}, time.Second).
		Post(context.Background(), sampleRequest())

	assert.Equal(t, domain.KindServer, domain.KindOf(err))

	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, "webhook", ext.Service)

	var server *domain.ErrServer
	require.True(t, errors.As(err, &server))
	assert.Equal(t, http.StatusRequestEntityTooLarge, server.StatusCode)
	assert.Equal(t, "payload too large", server.Body)
}

func TestWebhookClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := newClient(srv.URL, client.WebhookConfig{}, resilience.Config{}, 50*time.Millisecond).
		Post(context.Background(), sampleRequest())

	assert.Equal(t, domain.KindTimeout, domain.KindOf(err))
}

func TestWebhookClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := newClient(url, client.WebhookConfig{}, resilience.Config{}, time.Second).
		Post(context.Background(), sampleRequest())

	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
}

func TestWebhookClient_RetriesOnlyTransientFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
		wantErr   bool
	}{
		{"503 then ok", http.StatusServiceUnavailable, 2, false},
		{"400 not retried", http.StatusBadRequest, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(tt.status)
				}
			}))
			defer srv.Close()

			retry := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}
			err := newClient(srv.URL, client.WebhookConfig{}, retry, time.Second).
				Post(context.Background(), sampleRequest())

			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestWebhookClient_CircuitOpen(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cb := resilience.NewCircuitBreaker("webhook-open", resilience.BreakerSettings{MinRequests: 1, Timeout: time.Minute}, nil)
	c := client.NewWebhookClient(&http.Client{Timeout: time.Second}, client.WebhookConfig{URL: srv.URL}, cb, resilience.Config{}, zap.NewNop())

	first := c.Post(context.Background(), sampleRequest())
	assert.Equal(t, domain.KindServer, domain.KindOf(first))

	second := c.Post(context.Background(), sampleRequest())
	var open *domain.ErrCircuitOpen
	assert.True(t, errors.As(second, &open))
	assert.Equal(t, domain.KindNetwork, domain.KindOf(second))
	assert.Equal(t, int32(1), calls.Load())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, client.IsRetryable(&domain.ErrServer{StatusCode: 502}))
	assert.True(t, client.IsRetryable(&domain.ErrServer{StatusCode: 429}))
	assert.False(t, client.IsRetryable(&domain.ErrServer{StatusCode: 422}))
	assert.True(t, client.IsRetryable(&domain.ErrNetwork{Err: errors.New("reset")}))
	assert.True(t, client.IsRetryable(&domain.ErrTimeout{Operation: "x"}))
	assert.False(t, client.IsRetryable(errors.New("bad input")))
}

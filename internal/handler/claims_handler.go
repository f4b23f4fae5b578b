package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// ============================================================
// Claims
// POST /v1/claims
// POST /v1/claims/plan
// ============================================================

func submitClaimHandler(claims ClaimSubmitter, cfg RouterConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/claims")
		defer span.End()

		claim, ok := decodeClaim(w, r, cfg, logger)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("claim.id", claim.ID))

		reqID := middleware.GetReqID(ctx)
		progress := func(ev domain.ProgressEvent) {
			logger.Debug("claim progress",
				zap.String("request_id", reqID),
				zap.String("state", string(ev.State)),
				zap.Int("batch", ev.Batch),
				zap.Int("total", ev.Total),
				zap.String("warning", ev.Warning),
			)
		}

		out, err := claims.Submit(ctx, claim, progress)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		status := http.StatusOK
		if out.State == domain.StateFailed {
			status = out.ErrorKind.HTTPStatus()
		}
		writeJSON(w, status, out)
	}
}

func planClaimHandler(claims ClaimSubmitter, cfg RouterConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/claims/plan")
		defer span.End()

		claim, ok := decodeClaim(w, r, cfg, logger)
		if !ok {
			return
		}

		summary, err := claims.Plan(ctx, claim)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// decodeClaim reads and validates a ClaimRequest. It writes the error
// response itself and reports whether the handler should continue.
func decodeClaim(w http.ResponseWriter, r *http.Request, cfg RouterConfig, logger *zap.Logger) (*domain.Claim, bool) {
	body := r.Body
	if cfg.MaxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
	}

	var req domain.ClaimRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "claim exceeds the upload size limit")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	claim, err := req.ToClaim()
	if err != nil {
		handleServiceError(w, err, logger)
		return nil, false
	}
	return claim, true
}

package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/observability"
	"github.com/boddenberg/expense-claim-bfa/internal/port"
)

// Executor sends a plan's batches one after another.
type Executor struct {
	poster       port.WebhookPoster
	encodeFields bool
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(poster port.WebhookPoster, encodeFields bool, metrics *observability.Metrics, logger *zap.Logger) *Executor {
	return &Executor{
		poster:       poster,
		encodeFields: encodeFields,
		metrics:      metrics,
		logger:       logger,
	}
}

// Execute sends every batch in order. A failed main batch ends the attempt
// as Failed without sending anything else. Failed attachment batches are
// collected and the attempt ends as PartiallyFailed.
func (e *Executor) Execute(ctx context.Context, header domain.ClaimHeader, plan *domain.BatchPlan, progress domain.ProgressFunc) *domain.SubmissionOutcome {
	ctx, span := tracer.Start(ctx, "Executor.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("claim.id", header.ClaimID),
		attribute.Int("batches", len(plan.Batches)),
	)

	out := &domain.SubmissionOutcome{
		ClaimID:      header.ClaimID,
		BatchesTotal: len(plan.Batches),
		Warnings:     append([]string(nil), plan.Warnings...),
	}

	failures := newGroupFailures(plan.Batches)

	for i, b := range plan.Batches {
		emit(progress, domain.ProgressEvent{State: domain.StateSubmitting, Batch: b.Index, Total: b.Total})

		err := e.send(ctx, header, plan.Batched, b)
		if err == nil {
			out.BatchesSent++
			e.metrics.IncrBatch(b.Kind, "sent")
			continue
		}

		kind := domain.KindOf(err)
		e.metrics.IncrBatch(b.Kind, "failed")
		e.metrics.IncrExternalError("webhook", kind)
		e.logger.Warn("batch failed",
			zap.String("claim_id", header.ClaimID),
			zap.Int("batch", b.Index),
			zap.Int("total", b.Total),
			zap.String("kind", string(b.Kind)),
			zap.String("error_kind", string(kind)),
			zap.Error(err),
		)

		if b.Kind == domain.BatchKindMain {
			out.State = domain.StateFailed
			out.ErrorKind = kind
			out.Message = domain.UserMessage(kind)
			return out
		}

		failures.record(b)
		if ctx.Err() != nil {
			for _, rest := range plan.Batches[i+1:] {
				failures.record(rest)
			}
			break
		}
	}

	if failures.empty() {
		out.State = domain.StateSucceeded
		out.Success = true
		return out
	}

	out.State = domain.StatePartiallyFailed
	out.Success = true
	out.FailedGroups = failures.names()
	warning := failures.warning()
	out.Warnings = append(out.Warnings, warning)
	emit(progress, domain.ProgressEvent{State: domain.StatePartiallyFailed, Warning: warning})
	return out
}

func (e *Executor) send(ctx context.Context, header domain.ClaimHeader, batched bool, b domain.Batch) error {
	body, err := BuildPayload(header, b, batched, e.encodeFields)
	if err != nil {
		return err
	}
	e.metrics.ObservePayload(b.Kind, len(body))

	return e.poster.Post(ctx, &domain.WebhookRequest{
		ClaimID: header.ClaimID,
		Batch:   b.Index,
		Total:   b.Total,
		Kind:    b.Kind,
		Body:    body,
	})
}

// groupFailures tracks failed batches per group display name, in plan order.
type groupFailures struct {
	order  []string
	failed map[string]int
	total  map[string]int
}

func newGroupFailures(batches []domain.Batch) *groupFailures {
	g := &groupFailures{failed: map[string]int{}, total: map[string]int{}}
	for _, b := range batches {
		if b.Kind != domain.BatchKindMain {
			g.total[b.DisplayName]++
		}
	}
	return g
}

func (g *groupFailures) record(b domain.Batch) {
	if g.failed[b.DisplayName] == 0 {
		g.order = append(g.order, b.DisplayName)
	}
	g.failed[b.DisplayName]++
}

func (g *groupFailures) empty() bool { return len(g.order) == 0 }

func (g *groupFailures) names() []string {
	return append([]string(nil), g.order...)
}

// warning reads e.g. "Receipts for 2 categories were not sent: Flights (1 of 1 batches), Meals (2 of 3 batches)".
func (g *groupFailures) warning() string {
	parts := make([]string, 0, len(g.order))
	for _, name := range g.order {
		parts = append(parts, fmt.Sprintf("%s (%d of %d batches)", name, g.failed[name], g.total[name]))
	}
	noun := "categories"
	if len(parts) == 1 {
		noun = "category"
	}
	return fmt.Sprintf("Receipts for %d %s were not sent: %s", len(parts), noun, strings.Join(parts, ", "))
}

func emit(progress domain.ProgressFunc, ev domain.ProgressEvent) {
	if progress != nil {
		progress(ev)
	}
}

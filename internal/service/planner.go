package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/observability"
	"github.com/boddenberg/expense-claim-bfa/internal/port"
)

// Planner splits one claim into requests that each fit the payload ceiling.
type Planner struct {
	merger       port.AttachmentMerger
	doubleEncode bool
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewPlanner creates a Planner. doubleEncode must match how payloads are
// serialized (see BuildPayload).
func NewPlanner(merger port.AttachmentMerger, doubleEncode bool, metrics *observability.Metrics, logger *zap.Logger) *Planner {
	return &Planner{
		merger:       merger,
		doubleEncode: doubleEncode,
		metrics:      metrics,
		logger:       logger,
	}
}

// batchNumberCeiling stands in for batch numbers when a batch is measured
// before the plan is numbered, so the measurement is never short.
const batchNumberCeiling = 9999

// Plan builds the ordered batch list:
//
//  1. everything in one batch when it fits limitBytes;
//  2. otherwise a main batch (line items + summary) followed by one batch
//     per group in the given order;
//  3. a group that alone exceeds the limit is replaced by one
//     individual-attachment batch per file that can be brought under budget.
//
// A batch fits when both its estimate and its serialized body are within
// limitBytes. Groups with zero pages are skipped. The main batch is always
// present.
func (p *Planner) Plan(ctx context.Context, header domain.ClaimHeader, lineItems []domain.LineItem, summary domain.Attachment, groups []domain.AttachmentGroup, limitBytes int64) (*domain.BatchPlan, error) {
	ctx, span := tracer.Start(ctx, "Planner.Plan")
	defer span.End()

	plan := &domain.BatchPlan{LimitBytes: limitBytes}

	live := make([]domain.AttachmentGroup, 0, len(groups))
	for _, g := range groups {
		if g.PageCount <= 0 || len(g.MergedPDF) == 0 {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("%s: no receipt pages could be produced; nothing was attached", g.DisplayName))
			continue
		}
		live = append(live, g)
	}

	all := make([]domain.Attachment, 0, len(live)+1)
	all = append(all, summary)
	for _, g := range live {
		all = append(all, g.Attachment())
	}
	plan.EstimatedBytes = EstimateSize(all, p.doubleEncode)

	single := domain.Batch{
		Kind:           domain.BatchKindMain,
		LineItems:      lineItems,
		Attachments:    all,
		EstimatedBytes: plan.EstimatedBytes,
	}
	ok, err := p.fits(header, &single, false, limitBytes)
	if err != nil {
		return nil, err
	}
	if ok {
		plan.Batches = []domain.Batch{single}
		numberBatches(plan.Batches)
		span.SetAttributes(attribute.Bool("batched", false))
		return plan, nil
	}
	if plan.EstimatedBytes <= limitBytes {
		p.logger.Info("serialized claim exceeds payload limit although the estimate fits, batching",
			zap.Int64("estimated_bytes", plan.EstimatedBytes),
			zap.Int64("payload_bytes", single.PayloadBytes),
			zap.Int64("limit_bytes", limitBytes),
		)
	}

	plan.Batched = true
	main := domain.Batch{
		Kind:           domain.BatchKindMain,
		LineItems:      lineItems,
		Attachments:    all[:1],
		EstimatedBytes: EstimateSize(all[:1], p.doubleEncode),
	}
	if ok, err := p.fits(header, &main, true, limitBytes); err != nil {
		return nil, err
	} else if !ok {
		p.logger.Warn("main batch exceeds payload limit on its own",
			zap.Int64("estimated_bytes", main.EstimatedBytes),
			zap.Int64("payload_bytes", main.PayloadBytes),
			zap.Int64("limit_bytes", limitBytes),
		)
	}
	batches := []domain.Batch{main}

	for i, g := range live {
		att := all[i+1]
		b := domain.Batch{
			Kind:           domain.BatchKindAttachments,
			AccountCode:    g.AccountCode,
			DisplayName:    g.DisplayName,
			Attachments:    []domain.Attachment{att},
			EstimatedBytes: EstimateSize([]domain.Attachment{att}, p.doubleEncode),
		}
		ok, err := p.fits(header, &b, true, limitBytes)
		if err != nil {
			return nil, err
		}
		if ok {
			batches = append(batches, b)
			continue
		}

		individual, warnings, err := p.splitGroup(ctx, header, g, limitBytes)
		if err != nil {
			return nil, err
		}
		batches = append(batches, individual...)
		plan.Warnings = append(plan.Warnings, warnings...)
	}

	numberBatches(batches)
	for i := range batches {
		n, err := p.measure(header, batches[i], true)
		if err != nil {
			return nil, err
		}
		batches[i].PayloadBytes = n
	}
	plan.Batches = batches
	span.SetAttributes(attribute.Bool("batched", true), attribute.Int("batches", len(batches)))
	return plan, nil
}

// splitGroup is the per-file fallback for a group too large to send whole.
// Files that cannot be brought under budget are skipped with a warning.
func (p *Planner) splitGroup(ctx context.Context, header domain.ClaimHeader, g domain.AttachmentGroup, limitBytes int64) ([]domain.Batch, []string, error) {
	budget := AttachmentBudget(limitBytes, p.doubleEncode)
	p.logger.Info("attachment group exceeds payload limit, sending files individually",
		zap.String("account_code", g.AccountCode),
		zap.Int("files", len(g.Files)),
		zap.Int64("per_file_budget", budget),
	)

	var batches []domain.Batch
	var warnings []string
	skip := func(f domain.FileInput, reason string, err error) {
		p.metrics.IncrAttachmentIssue(reason)
		p.logger.Warn("receipt skipped",
			zap.String("file", f.FileName),
			zap.String("account_code", g.AccountCode),
			zap.Error(err),
		)
		warnings = append(warnings,
			fmt.Sprintf("%s: %q could not be attached (%v)", g.DisplayName, f.FileName, err))
	}

	for _, gf := range g.Files {
		att, err := p.merger.MergeIndividualFile(ctx, gf.File, g.DisplayName, budget)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			reason := "over_budget"
			if errors.Is(err, domain.ErrUnsupportedFile) {
				reason = "unsupported"
			}
			skip(gf.File, reason, err)
			continue
		}

		b := domain.Batch{
			Kind:           domain.BatchKindIndividualAttachment,
			AccountCode:    g.AccountCode,
			DisplayName:    g.DisplayName,
			Attachments:    []domain.Attachment{*att},
			EstimatedBytes: EstimateSize([]domain.Attachment{*att}, p.doubleEncode),
		}
		ok, err := p.fits(header, &b, true, limitBytes)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			skip(gf.File, "over_budget", fmt.Errorf("%w: request would be %d bytes, limit %d",
				domain.ErrOverBudget, max(b.PayloadBytes, b.EstimatedBytes), limitBytes))
			continue
		}
		batches = append(batches, b)
	}
	return batches, warnings, nil
}

// fits reports whether b is within limitBytes by estimate and by measured
// body. The measured size is stored on b.
func (p *Planner) fits(header domain.ClaimHeader, b *domain.Batch, batched bool, limitBytes int64) (bool, error) {
	n, err := p.measure(header, *b, batched)
	if err != nil {
		return false, err
	}
	b.PayloadBytes = n
	return b.EstimatedBytes <= limitBytes && n <= limitBytes, nil
}

// measure serializes b exactly as the executor will send it.
func (p *Planner) measure(header domain.ClaimHeader, b domain.Batch, batched bool) (int64, error) {
	if batched && b.Index == 0 {
		b.Index, b.Total = batchNumberCeiling, batchNumberCeiling
	}
	body, err := BuildPayload(header, b, batched, p.doubleEncode)
	if err != nil {
		return 0, fmt.Errorf("measuring batch: %w", err)
	}
	return int64(len(body)), nil
}

func numberBatches(batches []domain.Batch) {
	for i := range batches {
		batches[i].Index = i + 1
		batches[i].Total = len(batches)
	}
}

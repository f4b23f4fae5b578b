package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/observability"
	"github.com/boddenberg/expense-claim-bfa/internal/port"
)

var tracer = otel.Tracer("service/claims")

// claimNamespace derives stable claim IDs for claims submitted without one.
var claimNamespace = uuid.MustParse("6f1c2b9e-4d0a-4f53-9a8e-3c7b1f0d2e55")

// ClaimConfig holds the submission settings.
type ClaimConfig struct {
	LimitBytes   int64
	EncodeFields bool
}

// ClaimService is the "submit this claim" entry point.
type ClaimService struct {
	chart        *domain.ChartOfAccounts
	connectivity port.ConnectivityChecker
	summary      port.SummaryRenderer
	merger       port.AttachmentMerger
	planner      *Planner
	executor     *Executor
	outcomes     port.Cache[*domain.SubmissionOutcome]
	inflight     singleflight.Group
	runs         flights
	cfg          ClaimConfig
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewClaimService creates the claim service with all dependencies injected.
func NewClaimService(
	chart *domain.ChartOfAccounts,
	connectivity port.ConnectivityChecker,
	summary port.SummaryRenderer,
	merger port.AttachmentMerger,
	poster port.WebhookPoster,
	outcomes port.Cache[*domain.SubmissionOutcome],
	cfg ClaimConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ClaimService {
	return &ClaimService{
		chart:        chart,
		connectivity: connectivity,
		summary:      summary,
		merger:       merger,
		planner:      NewPlanner(merger, cfg.EncodeFields, metrics, logger),
		executor:     NewExecutor(poster, cfg.EncodeFields, metrics, logger),
		outcomes:     outcomes,
		cfg:          cfg,
		metrics:      metrics,
		logger:       logger,
	}
}

// Submit delivers one claim and returns its outcome. Delivery failures are
// reported in the outcome; the error is reserved for invalid input.
//
// A claim whose core data was already delivered is not sent again while its
// outcome is cached: the cached outcome is returned with Replayed set.
// Concurrent submissions of the same claim share one attempt, which keeps
// running while at least one caller waits for it and reports progress to
// all of them.
func (s *ClaimService) Submit(ctx context.Context, claim *domain.Claim, progress domain.ProgressFunc) (*domain.SubmissionOutcome, error) {
	if claim == nil {
		return nil, &domain.ErrValidation{Field: "claim", Message: "is required"}
	}
	claim = s.withClaimID(claim)

	if out, ok := s.replay(claim.ID); ok {
		return out, nil
	}

	f, waiter := s.runs.join(ctx, claim.ID, progress)
	defer func() {
		if s.runs.leave(claim.ID, f, waiter) {
			s.inflight.Forget(claim.ID)
		}
	}()

	results := s.inflight.DoChan(claim.ID, func() (any, error) {
		defer s.runs.finish(claim.ID, f)
		if out, ok := s.replay(claim.ID); ok {
			return out, nil
		}
		out := s.submit(f.ctx, claim, s.runs.emitter(f))
		if out.Delivered() {
			s.outcomes.Set(claim.ID, out)
		}
		return out, nil
	})

	select {
	case res := <-results:
		out := *res.Val.(*domain.SubmissionOutcome)
		return &out, nil
	case <-ctx.Done():
		s.logger.Info("caller left before the claim submission finished",
			zap.String("claim_id", claim.ID),
			zap.Error(ctx.Err()),
		)
		kind := domain.KindOf(ctx.Err())
		return &domain.SubmissionOutcome{
			ClaimID:   claim.ID,
			State:     domain.StateFailed,
			ErrorKind: kind,
			Message:   domain.UserMessage(kind),
		}, nil
	}
}

// Plan runs everything up to, but not including, sending.
func (s *ClaimService) Plan(ctx context.Context, claim *domain.Claim) (*domain.PlanSummary, error) {
	if claim == nil {
		return nil, &domain.ErrValidation{Field: "claim", Message: "is required"}
	}
	claim = s.withClaimID(claim)

	ctx, span := tracer.Start(ctx, "ClaimService.Plan")
	defer span.End()

	lineItems := BuildLineItems(claim, s.chart)
	plan, err := s.buildPlan(ctx, claim, lineItems)
	if err != nil {
		return nil, err
	}
	return plan.Summarize(lineItems), nil
}

func (s *ClaimService) submit(ctx context.Context, claim *domain.Claim, progress domain.ProgressFunc) *domain.SubmissionOutcome {
	ctx, span := tracer.Start(ctx, "ClaimService.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("claim.id", claim.ID))

	start := time.Now()
	defer func() {
		s.metrics.RecordDuration("submit", time.Since(start))
	}()

	emit(progress, domain.ProgressEvent{State: domain.StatePlanning})

	if err := s.connectivity.Check(ctx); err != nil {
		return s.fail(ctx, claim, err)
	}

	lineItems := BuildLineItems(claim, s.chart)
	planStart := time.Now()
	plan, err := s.buildPlan(ctx, claim, lineItems)
	s.metrics.RecordDuration("plan", time.Since(planStart))
	if err != nil {
		return s.fail(ctx, claim, err)
	}

	s.logger.Info("submitting claim",
		zap.String("claim_id", claim.ID),
		zap.Int("line_items", len(lineItems)),
		zap.Bool("batched", plan.Batched),
		zap.Int("batches", len(plan.Batches)),
		zap.Int64("estimated_bytes", plan.EstimatedBytes),
		zap.Int64("limit_bytes", plan.LimitBytes),
	)
	for _, w := range plan.Warnings {
		emit(progress, domain.ProgressEvent{State: domain.StatePlanning, Warning: w})
	}

	out := s.executor.Execute(ctx, claim.Header(), plan, progress)
	s.metrics.IncrSubmission(out.State)
	emit(progress, domain.ProgressEvent{State: out.State, Total: out.BatchesTotal})

	s.logger.Info("claim submission finished",
		zap.String("claim_id", claim.ID),
		zap.String("state", string(out.State)),
		zap.Int("batches_sent", out.BatchesSent),
		zap.Int("batches_total", out.BatchesTotal),
		zap.Strings("failed_groups", out.FailedGroups),
	)
	return out
}

// buildPlan renders the summary, merges each group and plans the batches.
// Any rendering failure aborts before a request is sent.
func (s *ClaimService) buildPlan(ctx context.Context, claim *domain.Claim, lineItems []domain.LineItem) (*domain.BatchPlan, error) {
	summaryPDF, err := s.summary.RenderSummary(ctx, claim, lineItems)
	if err != nil {
		return nil, &domain.ErrRender{Stage: "summary", Err: err}
	}
	summary := domain.NewAttachment(summaryFileName(claim), "application/pdf", summaryPDF)

	var groups []domain.AttachmentGroup
	for _, g := range GroupByAccountCode(claim, s.chart) {
		doc, err := s.merger.MergeGroup(ctx, g.Files)
		if err != nil {
			return nil, &domain.ErrRender{Stage: "receipts " + g.AccountCode, Err: err}
		}
		ag := domain.AttachmentGroup{
			AccountCode: g.AccountCode,
			DisplayName: g.DisplayName,
			Filename:    groupFileName(claim, g.DisplayName),
			Files:       g.Files,
		}
		if doc != nil {
			ag.MergedPDF = doc.PDF
			ag.PageCount = doc.PageCount
			ag.SizeBytes = int64(len(doc.PDF))
		}
		groups = append(groups, ag)
	}

	return s.planner.Plan(ctx, claim.Header(), lineItems, summary, groups, s.cfg.LimitBytes)
}

func (s *ClaimService) fail(ctx context.Context, claim *domain.Claim, err error) *domain.SubmissionOutcome {
	kind := domain.KindOf(err)
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))

	s.logger.Error("claim submission aborted",
		zap.String("claim_id", claim.ID),
		zap.String("error_kind", string(kind)),
		zap.Error(err),
	)
	s.metrics.IncrSubmission(domain.StateFailed)
	return &domain.SubmissionOutcome{
		ClaimID:   claim.ID,
		State:     domain.StateFailed,
		ErrorKind: kind,
		Message:   domain.UserMessage(kind),
	}
}

func (s *ClaimService) replay(claimID string) (*domain.SubmissionOutcome, bool) {
	cached, ok := s.outcomes.Get(claimID)
	if !ok {
		return nil, false
	}
	s.metrics.IncrReplay()
	s.logger.Info("claim already delivered, replaying outcome", zap.String("claim_id", claimID))

	out := *cached
	out.Replayed = true
	return &out, true
}

// withClaimID returns the claim with an ID, deriving a stable one from the
// claim's content when none was supplied. The caller's claim is not modified.
func (s *ClaimService) withClaimID(claim *domain.Claim) *domain.Claim {
	if claim.ID != "" {
		return claim
	}
	c := *claim
	c.ID = uuid.NewSHA1(claimNamespace, Fingerprint(claim)).String()
	return &c
}

// Fingerprint is a BLAKE2b-256 digest over every field and file of a claim.
func Fingerprint(claim *domain.Claim) []byte {
	h, _ := blake2b.New256(nil)
	field := func(s string) { writeField(h, []byte(s)) }

	field(claim.FullName)
	field(claim.EmployeeID)
	field(claim.ExpenseDate)
	for _, item := range claim.Items {
		field(item.Type)
		field(item.Amount.String())
		field(item.Description)
		writeFiles(h, item.Files)
	}
	if v := claim.Vehicle; v != nil {
		field("vehicle")
		field(v.Kilometres.String())
		field(v.Rate.String())
		field(v.Amount.String())
		field(v.Comment)
		writeFiles(h, v.Files)
	}
	return h.Sum(nil)
}

func writeFiles(h hash.Hash, files []domain.FileInput) {
	for _, f := range files {
		writeField(h, []byte(f.FileName))
		writeField(h, []byte(f.MimeType))
		writeField(h, f.Content)
	}
}

// writeField length-prefixes b so adjacent fields cannot collide.
func writeField(h hash.Hash, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}

var fileNameReplacer = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\"", "", "\n", " ")

func summaryFileName(claim *domain.Claim) string {
	return fileNameReplacer.Replace(fmt.Sprintf("Expense Claim - %s - %s.pdf", claim.FullName, claim.ExpenseDate))
}

func groupFileName(claim *domain.Claim, displayName string) string {
	return fileNameReplacer.Replace(fmt.Sprintf("Receipts - %s - %s.pdf", displayName, claim.ExpenseDate))
}

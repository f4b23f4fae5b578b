package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// Metrics holds all Prometheus metrics for the claims service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	submissions       *prometheus.CounterVec
	batches           *prometheus.CounterVec
	payloadBytes      *prometheus.HistogramVec
	externalErrors    *prometheus.CounterVec
	attachmentIssues  *prometheus.CounterVec
	replays           prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "claims_operation_duration_seconds",
				Help:    "Duration of submission pipeline stages.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claims_submissions_total",
				Help: "Submission attempts by terminal state.",
			},
			[]string{"state"},
		),
		batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claims_batches_total",
				Help: "Webhook batches by kind and result.",
			},
			[]string{"kind", "result"},
		),
		payloadBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "claims_batch_payload_bytes",
				Help:    "Serialized size of webhook request bodies.",
				Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
			},
			[]string{"kind"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claims_external_errors_total",
				Help: "Errors from external services by kind.",
			},
			[]string{"service", "kind"},
		),
		attachmentIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claims_attachment_issues_total",
				Help: "Receipt files that were skipped or replaced by a placeholder.",
			},
			[]string{"reason"},
		),
		replays: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "claims_idempotent_replays_total",
				Help: "Submissions answered from the idempotency cache.",
			},
		),
	}
}

// RecordDuration records the duration of a pipeline stage.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrSubmission counts one terminal submission state.
func (m *Metrics) IncrSubmission(state domain.SubmissionState) {
	m.submissions.WithLabelValues(string(state)).Inc()
}

// IncrBatch counts one webhook batch with its result ("sent" or "failed").
func (m *Metrics) IncrBatch(kind domain.BatchKind, result string) {
	m.batches.WithLabelValues(string(kind), result).Inc()
}

// ObservePayload records the size of one request body.
func (m *Metrics) ObservePayload(kind domain.BatchKind, bytes int) {
	m.payloadBytes.WithLabelValues(string(kind)).Observe(float64(bytes))
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string, kind domain.ErrorKind) {
	m.externalErrors.WithLabelValues(service, string(kind)).Inc()
}

// IncrAttachmentIssue counts a degraded receipt ("over_budget", "placeholder", "unsupported").
func (m *Metrics) IncrAttachmentIssue(reason string) {
	m.attachmentIssues.WithLabelValues(reason).Inc()
}

// IncrReplay counts a submission served from the idempotency cache.
func (m *Metrics) IncrReplay() {
	m.replays.Inc()
}

// GetSubmissionSnapshot returns the counters behind GET /v1/metrics/submissions.
func (m *Metrics) GetSubmissionSnapshot() *domain.SubmissionMetrics {
	succeeded := getCounterValue(m.submissions, string(domain.StateSucceeded))
	partial := getCounterValue(m.submissions, string(domain.StatePartiallyFailed))
	failed := getCounterValue(m.submissions, string(domain.StateFailed))
	total := succeeded + partial + failed

	var sent, batchFailed float64
	for _, kind := range []domain.BatchKind{
		domain.BatchKindMain,
		domain.BatchKindAttachments,
		domain.BatchKindIndividualAttachment,
	} {
		sent += getCounterValue(m.batches, string(kind), "sent")
		batchFailed += getCounterValue(m.batches, string(kind), "failed")
	}

	failureRate := float64(0)
	partialRate := float64(0)
	if total > 0 {
		failureRate = failed / total
		partialRate = partial / total
	}

	return &domain.SubmissionMetrics{
		TotalSubmissions:   int64(total),
		Succeeded:          int64(succeeded),
		PartiallyFailed:    int64(partial),
		Failed:             int64(failed),
		BatchesSent:        int64(sent),
		BatchesFailed:      int64(batchFailed),
		IdempotentReplays:  int64(counterValue(m.replays)),
		ImagesOverBudget:   int64(getCounterValue(m.attachmentIssues, "over_budget")),
		FailureRate:        failureRate,
		PartialFailureRate: partialRate,
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	return counterValue(cv.WithLabelValues(labels...))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

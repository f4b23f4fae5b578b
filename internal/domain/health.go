package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Detail      string `json:"detail,omitempty"`
}

// SubmissionMetrics is returned by GET /v1/metrics/submissions.
type SubmissionMetrics struct {
	TotalSubmissions   int64   `json:"totalSubmissions"`
	Succeeded          int64   `json:"succeeded"`
	PartiallyFailed    int64   `json:"partiallyFailed"`
	Failed             int64   `json:"failed"`
	BatchesSent        int64   `json:"batchesSent"`
	BatchesFailed      int64   `json:"batchesFailed"`
	IdempotentReplays  int64   `json:"idempotentReplays"`
	ImagesOverBudget   int64   `json:"imagesOverBudget"`
	FailureRate        float64 `json:"failureRate"`
	PartialFailureRate float64 `json:"partialFailureRate"`
	Period             string  `json:"period"`
}

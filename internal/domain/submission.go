package domain

// ============================================================
// Grouping & merging
// ============================================================

// GroupedFile is a receipt file together with the expense type it was attached to.
type GroupedFile struct {
	File        FileInput
	ExpenseType string
}

// FileGroup is every receipt attached under one account code, in form order.
type FileGroup struct {
	AccountCode string
	DisplayName string
	Files       []GroupedFile
}

// MergedDocument is the output of merging one group's files into a single PDF.
type MergedDocument struct {
	PDF       []byte
	PageCount int
}

// AttachmentGroup is a merged receipts PDF for one account code.
type AttachmentGroup struct {
	AccountCode string
	DisplayName string
	MergedPDF   []byte
	Filename    string
	SizeBytes   int64
	PageCount   int
	Files       []GroupedFile
}

// Attachment converts the merged PDF into its wire representation.
func (g AttachmentGroup) Attachment() Attachment {
	return NewAttachment(g.Filename, "application/pdf", g.MergedPDF)
}

// ============================================================
// Batch planning
// ============================================================

// BatchKind tells the endpoint what a request carries.
type BatchKind string

const (
	BatchKindMain                 BatchKind = "main"
	BatchKindAttachments          BatchKind = "attachments"
	BatchKindIndividualAttachment BatchKind = "individual-attachment"
)

// Batch is one HTTP request's worth of claim data.
type Batch struct {
	Index          int
	Total          int
	Kind           BatchKind
	AccountCode    string
	DisplayName    string
	LineItems      []LineItem
	Attachments    []Attachment
	EstimatedBytes int64

	// PayloadBytes is the measured size of the serialized request body.
	PayloadBytes int64
}

// BatchPlan is the ordered list of requests for one submission attempt.
// Batched is false when everything fits in a single request.
type BatchPlan struct {
	Batched        bool
	Batches        []Batch
	EstimatedBytes int64
	LimitBytes     int64
	Warnings       []string
}

// BatchInfo is the attribution block sent with every request of a batched plan.
type BatchInfo struct {
	Batch        int       `json:"batch"`
	TotalBatches int       `json:"totalBatches"`
	Type         BatchKind `json:"type"`
	AccountCode  string    `json:"accountCode,omitempty"`
	DisplayName  string    `json:"displayName,omitempty"`
}

// WebhookPayload is the JSON body posted to the webhook. LineItems and
// Attachments hold either arrays or base64-of-JSON strings.
type WebhookPayload struct {
	ClaimID     string     `json:"claimId,omitempty"`
	FullName    string     `json:"fullName"`
	EmployeeID  string     `json:"employeeId"`
	ExpenseDate string     `json:"expenseDate"`
	LineItems   any        `json:"lineItems"`
	Attachments any        `json:"attachments"`
	BatchInfo   *BatchInfo `json:"batchInfo,omitempty"`
}

// WebhookRequest is one serialized batch ready to be posted.
type WebhookRequest struct {
	ClaimID string
	Batch   int
	Total   int
	Kind    BatchKind
	Body    []byte
}

// ============================================================
// Outcome
// ============================================================

// SubmissionState tracks one submission attempt.
type SubmissionState string

const (
	StateIdle            SubmissionState = "idle"
	StatePlanning        SubmissionState = "planning"
	StateSubmitting      SubmissionState = "submitting"
	StateSucceeded       SubmissionState = "succeeded"
	StatePartiallyFailed SubmissionState = "partially_failed"
	StateFailed          SubmissionState = "failed"
)

// SubmissionOutcome is the terminal result of one submission attempt.
type SubmissionOutcome struct {
	ClaimID      string          `json:"claimId"`
	Success      bool            `json:"success"`
	State        SubmissionState `json:"state"`
	ErrorKind    ErrorKind       `json:"errorKind,omitempty"`
	Message      string          `json:"message,omitempty"`
	FailedGroups []string        `json:"failedGroups,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
	BatchesSent  int             `json:"batchesSent"`
	BatchesTotal int             `json:"batchesTotal"`
	Replayed     bool            `json:"replayed,omitempty"`
}

// Delivered reports whether the claim's core data reached the endpoint.
func (o *SubmissionOutcome) Delivered() bool {
	return o != nil && (o.State == StateSucceeded || o.State == StatePartiallyFailed)
}

// ProgressEvent is emitted to an optional observer while a claim is processed.
type ProgressEvent struct {
	State   SubmissionState
	Batch   int
	Total   int
	Warning string
}

// ProgressFunc receives progress events. It must not block.
type ProgressFunc func(ProgressEvent)

// PlanSummary describes a plan without file contents (dry-run output).
type PlanSummary struct {
	Batched        bool           `json:"batched"`
	EstimatedBytes int64          `json:"estimatedBytes"`
	LimitBytes     int64          `json:"limitBytes"`
	LineItems      []LineItem     `json:"lineItems"`
	Batches        []BatchSummary `json:"batches"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// BatchSummary describes one planned batch.
type BatchSummary struct {
	Batch          int       `json:"batch"`
	Type           BatchKind `json:"type"`
	AccountCode    string    `json:"accountCode,omitempty"`
	DisplayName    string    `json:"displayName,omitempty"`
	Files          []string  `json:"files"`
	EstimatedBytes int64     `json:"estimatedBytes"`
	PayloadBytes   int64     `json:"payloadBytes"`
}

// Summarize strips file contents from a plan.
func (p *BatchPlan) Summarize(lineItems []LineItem) *PlanSummary {
	s := &PlanSummary{
		Batched:        p.Batched,
		EstimatedBytes: p.EstimatedBytes,
		LimitBytes:     p.LimitBytes,
		LineItems:      lineItems,
		Warnings:       p.Warnings,
	}
	for _, b := range p.Batches {
		files := make([]string, 0, len(b.Attachments))
		for _, a := range b.Attachments {
			files = append(files, a.FileName)
		}
		s.Batches = append(s.Batches, BatchSummary{
			Batch:          b.Index,
			Type:           b.Kind,
			AccountCode:    b.AccountCode,
			DisplayName:    b.DisplayName,
			Files:          files,
			EstimatedBytes: b.EstimatedBytes,
			PayloadBytes:   b.PayloadBytes,
		})
	}
	return s
}

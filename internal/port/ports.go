// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the submission
// core from the PDF libraries, the network and the webhook endpoint.
package port

import (
	"context"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_ports.go -package=mocks -source=ports.go

// ConnectivityChecker detects an offline state before any work begins.
type ConnectivityChecker interface {
	Check(ctx context.Context) error
}

// SummaryRenderer produces the claim summary PDF.
type SummaryRenderer interface {
	RenderSummary(ctx context.Context, claim *domain.Claim, lineItems []domain.LineItem) ([]byte, error)
}

// AttachmentMerger turns receipt files into PDFs.
type AttachmentMerger interface {
	// MergeGroup merges one group into a single PDF. It returns nil for an empty list.
	MergeGroup(ctx context.Context, files []domain.GroupedFile) (*domain.MergedDocument, error)

	// MergeIndividualFile brings one file under maxSizeBytes or fails for that file only.
	MergeIndividualFile(ctx context.Context, file domain.FileInput, category string, maxSizeBytes int64) (*domain.Attachment, error)
}

// WebhookPoster sends one serialized batch to the webhook endpoint.
type WebhookPoster interface {
	Post(ctx context.Context, req *domain.WebhookRequest) error
}

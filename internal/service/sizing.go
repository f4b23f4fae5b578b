package service

import (
	"math"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// Payload size model. Estimates err on the high side so the remote ceiling
// is never hit by surprise.
const (
	// PerAttachmentOverhead covers the JSON structure around one attachment.
	PerAttachmentOverhead = 100
	// BaseOverhead covers the non-attachment fields: names, dates, line items.
	BaseOverhead = 2000
	// DoubleEncodeFactor is the expansion of a second base64 pass.
	DoubleEncodeFactor = 1.34
)

// EstimateSize predicts the serialized size of a request carrying atts.
func EstimateSize(atts []domain.Attachment, doubleEncode bool) int64 {
	total := int64(BaseOverhead)
	for _, a := range atts {
		total += a.SizeBytes() + PerAttachmentOverhead
	}
	if doubleEncode {
		total = int64(math.Ceil(float64(total) * DoubleEncodeFactor))
	}
	return total
}

// LimitBytes converts a megabyte ceiling to bytes.
func LimitBytes(limitMB float64) int64 {
	return int64(limitMB * 1024 * 1024)
}

// ExceedsLimit reports whether sizeBytes is above limitMB megabytes.
func ExceedsLimit(sizeBytes int64, limitMB float64) bool {
	return float64(sizeBytes) > limitMB*1024*1024
}

// AttachmentBudget is the largest decoded attachment size that keeps a
// one-attachment request within limitBytes. The content is base64 inside the
// request, and base64 once more when fields are double-encoded.
func AttachmentBudget(limitBytes int64, doubleEncode bool) int64 {
	budget := limitBytes - BaseOverhead - PerAttachmentOverhead
	if budget <= 0 {
		return 0
	}
	budget = budget * 3 / 4
	if doubleEncode {
		budget = budget * 3 / 4
	}
	return budget
}

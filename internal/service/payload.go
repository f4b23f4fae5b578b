package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// BuildPayload serializes one batch. With encodeFields, lineItems and
// attachments are sent as base64 of their JSON so the automation platform
// does not auto-parse them. batchInfo is present only in batched plans.
func BuildPayload(header domain.ClaimHeader, batch domain.Batch, batched, encodeFields bool) ([]byte, error) {
	lineItems := batch.LineItems
	if lineItems == nil {
		lineItems = []domain.LineItem{}
	}
	attachments := batch.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}

	p := domain.WebhookPayload{
		ClaimID:     header.ClaimID,
		FullName:    header.FullName,
		EmployeeID:  header.EmployeeID,
		ExpenseDate: header.ExpenseDate,
		LineItems:   lineItems,
		Attachments: attachments,
	}

	if encodeFields {
		li, err := encodeField(lineItems)
		if err != nil {
			return nil, fmt.Errorf("encoding line items: %w", err)
		}
		att, err := encodeField(attachments)
		if err != nil {
			return nil, fmt.Errorf("encoding attachments: %w", err)
		}
		p.LineItems, p.Attachments = li, att
	}

	if batched {
		info := &domain.BatchInfo{
			Batch:        batch.Index,
			TotalBatches: batch.Total,
			Type:         batch.Kind,
		}
		if batch.Kind != domain.BatchKindMain {
			info.AccountCode = batch.AccountCode
			info.DisplayName = batch.DisplayName
		}
		p.BatchInfo = info
	}

	return json.Marshal(p)
}

func encodeField(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

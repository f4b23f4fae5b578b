package domain

import (
	"encoding/base64"
	"strings"

	"github.com/shopspring/decimal"
)

// ============================================================
// Claim is the data extracted from the expense form at submit time
// ============================================================

// ExpenseTypeOther marks a free-text row: the user types the description
// instead of picking a category.
const ExpenseTypeOther = "Other"

// FileInput is one receipt file as uploaded by the user (raw bytes).
type FileInput struct {
	FileName string
	MimeType string
	Content  []byte
}

// IsPDF reports whether the file is a PDF, by declared type or by magic bytes.
func (f FileInput) IsPDF() bool {
	if strings.EqualFold(f.MimeType, "application/pdf") {
		return true
	}
	return len(f.Content) >= 5 && string(f.Content[:5]) == "%PDF-"
}

// IsImage reports whether the declared MIME type is an image.
func (f FileInput) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(f.MimeType), "image/")
}

// ExpenseItem is one expense row of the claim.
type ExpenseItem struct {
	Type        string
	Amount      decimal.Decimal
	Description string
	Files       []FileInput
	AccountCode string
}

// IsOther reports whether the row is a free-text "other expense" row.
func (e ExpenseItem) IsOther() bool {
	return strings.EqualFold(strings.TrimSpace(e.Type), ExpenseTypeOther)
}

// VehicleExpense is the private-vehicle mileage row.
type VehicleExpense struct {
	Kilometres decimal.Decimal
	Rate       decimal.Decimal
	Amount     decimal.Decimal
	Comment    string
	Files      []FileInput
}

// Claim is a complete expense claim ready to be submitted.
type Claim struct {
	ID          string
	FullName    string
	EmployeeID  string
	ExpenseDate string
	Items       []ExpenseItem
	Vehicle     *VehicleExpense
}

// Header returns the non-itemized fields that travel with every batch.
func (c *Claim) Header() ClaimHeader {
	return ClaimHeader{
		ClaimID:     c.ID,
		FullName:    c.FullName,
		EmployeeID:  c.EmployeeID,
		ExpenseDate: c.ExpenseDate,
	}
}

// ClaimHeader carries the claimant fields repeated in every webhook request.
type ClaimHeader struct {
	ClaimID     string
	FullName    string
	EmployeeID  string
	ExpenseDate string
}

// LineItem is one billable row in the payload sent to the accounting integration.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Amount      float64 `json:"amount"`
	AccountCode string  `json:"accountCode"`
	TaxType     string  `json:"taxType"`
}

// Attachment is a file as it travels on the wire: content is base64.
type Attachment struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}

// NewAttachment base64-encodes raw bytes into an Attachment.
func NewAttachment(fileName, mimeType string, data []byte) Attachment {
	return Attachment{
		FileName: fileName,
		MimeType: mimeType,
		Content:  base64.StdEncoding.EncodeToString(data),
	}
}

// SizeBytes is the decoded size of the content, derived from the encoded length.
func (a Attachment) SizeBytes() int64 {
	return DecodedLen(a.Content)
}

// DecodedLen computes floor(len*3/4) - padding for a standard base64 string.
func DecodedLen(encoded string) int64 {
	n := int64(len(encoded))
	if n == 0 {
		return 0
	}
	padding := int64(0)
	if strings.HasSuffix(encoded, "==") {
		padding = 2
	} else if strings.HasSuffix(encoded, "=") {
		padding = 1
	}
	return n*3/4 - padding
}

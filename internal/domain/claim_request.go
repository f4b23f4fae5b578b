package domain

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Claims API: request body for POST /v1/claims
// ============================================================

// ClaimRequest is the JSON body posted by the expense form (or read by the CLI).
type ClaimRequest struct {
	ClaimID     string              `json:"claimId,omitempty"`
	FullName    string              `json:"fullName"`
	EmployeeID  string              `json:"employeeId"`
	ExpenseDate string              `json:"expenseDate"`
	Expenses    []ExpenseRowRequest `json:"expenses"`
	Vehicle     *VehicleRequest     `json:"vehicle,omitempty"`
}

// ExpenseRowRequest is one expense row. Type is the category label, or "Other"
// for free-text rows whose Description is entered by the user.
type ExpenseRowRequest struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Files       []FileUpload    `json:"files,omitempty"`
}

// VehicleRequest is the private-vehicle row.
type VehicleRequest struct {
	Kilometres decimal.Decimal `json:"kilometres"`
	Rate       decimal.Decimal `json:"rate"`
	Amount     decimal.Decimal `json:"amount"`
	Comment    string          `json:"comment,omitempty"`
	Files      []FileUpload    `json:"files,omitempty"`
}

// FileUpload is a receipt with base64 content (a data: URL prefix is tolerated).
type FileUpload struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType,omitempty"`
	Content  string `json:"content"`
}

// ToClaim validates the request and decodes every file.
func (r *ClaimRequest) ToClaim() (*Claim, error) {
	if strings.TrimSpace(r.FullName) == "" {
		return nil, &ErrValidation{Field: "fullName", Message: "is required"}
	}
	if strings.TrimSpace(r.EmployeeID) == "" {
		return nil, &ErrValidation{Field: "employeeId", Message: "is required"}
	}
	if _, err := time.Parse("2006-01-02", r.ExpenseDate); err != nil {
		return nil, &ErrValidation{Field: "expenseDate", Message: "must be YYYY-MM-DD"}
	}

	claim := &Claim{
		ID:          strings.TrimSpace(r.ClaimID),
		FullName:    strings.TrimSpace(r.FullName),
		EmployeeID:  strings.TrimSpace(r.EmployeeID),
		ExpenseDate: r.ExpenseDate,
	}

	for i, row := range r.Expenses {
		field := fmt.Sprintf("expenses[%d]", i)
		if strings.TrimSpace(row.Type) == "" {
			return nil, &ErrValidation{Field: field + ".type", Message: "is required"}
		}
		if row.Amount.IsNegative() {
			return nil, &ErrValidation{Field: field + ".amount", Message: "must not be negative"}
		}
		if !wholeCents(row.Amount) {
			return nil, &ErrValidation{Field: field + ".amount", Message: "must not have more than 2 decimal places"}
		}
		files, err := decodeUploads(field, row.Files)
		if err != nil {
			return nil, err
		}
		claim.Items = append(claim.Items, ExpenseItem{
			Type:        strings.TrimSpace(row.Type),
			Amount:      row.Amount,
			Description: strings.TrimSpace(row.Description),
			Files:       files,
		})
	}

	if v := r.Vehicle; v != nil {
		if v.Kilometres.IsNegative() || v.Amount.IsNegative() || v.Rate.IsNegative() {
			return nil, &ErrValidation{Field: "vehicle", Message: "values must not be negative"}
		}
		if !wholeCents(v.Amount) {
			return nil, &ErrValidation{Field: "vehicle.amount", Message: "must not have more than 2 decimal places"}
		}
		files, err := decodeUploads("vehicle", v.Files)
		if err != nil {
			return nil, err
		}
		claim.Vehicle = &VehicleExpense{
			Kilometres: v.Kilometres,
			Rate:       v.Rate,
			Amount:     v.Amount,
			Comment:    strings.TrimSpace(v.Comment),
			Files:      files,
		}
	}

	return claim, nil
}

// wholeCents reports whether amount has no fraction of a cent.
func wholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(2))
}

func decodeUploads(field string, uploads []FileUpload) ([]FileInput, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	files := make([]FileInput, 0, len(uploads))
	for i, u := range uploads {
		content := u.Content
		if idx := strings.Index(content, ";base64,"); strings.HasPrefix(content, "data:") && idx > 0 {
			content = content[idx+len(";base64,"):]
		}
		data, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, &ErrValidation{
				Field:   fmt.Sprintf("%s.files[%d].content", field, i),
				Message: "is not valid base64",
			}
		}
		if len(data) == 0 {
			return nil, &ErrValidation{
				Field:   fmt.Sprintf("%s.files[%d].content", field, i),
				Message: "is empty",
			}
		}

		name := strings.TrimSpace(u.FileName)
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}
		files = append(files, FileInput{
			FileName: name,
			MimeType: sniffMimeType(u.MimeType, data),
			Content:  data,
		})
	}
	return files, nil
}

// sniffMimeType trusts a specific declared type and falls back to magic bytes
// when the browser sent nothing useful.
func sniffMimeType(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	n := len(data)
	if n > 512 {
		n = 512
	}
	detected := http.DetectContentType(data[:n])
	return strings.ToLower(strings.Split(detected, ";")[0])
}

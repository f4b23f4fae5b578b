package pdf

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// SummaryRenderer draws the one-document overview of a claim: claimant,
// line items with total, vehicle detail and the list of receipts.
type SummaryRenderer struct {
	chart *domain.ChartOfAccounts
	now   func() time.Time
}

// NewSummaryRenderer creates a SummaryRenderer.
func NewSummaryRenderer(chart *domain.ChartOfAccounts) *SummaryRenderer {
	return &SummaryRenderer{chart: chart, now: time.Now}
}

// RenderSummary returns the summary PDF bytes.
func (r *SummaryRenderer) RenderSummary(ctx context.Context, claim *domain.Claim, lineItems []domain.LineItem) ([]byte, error) {
	_, span := tracer.Start(ctx, "SummaryRenderer.RenderSummary")
	defer span.End()
	span.SetAttributes(attribute.Int("line_items", len(lineItems)))

	if claim == nil {
		return nil, &domain.ErrRender{Stage: "summary", Err: fmt.Errorf("claim is nil")}
	}

	doc := newDocument()
	doc.SetAutoPageBreak(true, pageMargin)
	doc.SetTitle("Expense Claim", true)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, "Expense Claim", "", 1, "L", false, 0, "")
	doc.Ln(2)

	doc.SetFont("Helvetica", "", 11)
	header := [][2]string{
		{"Name", claim.FullName},
		{"Employee ID", claim.EmployeeID},
		{"Expense date", claim.ExpenseDate},
	}
	if claim.ID != "" {
		header = append(header, [2]string{"Claim ID", claim.ID})
	}
	header = append(header, [2]string{"Prepared", r.now().UTC().Format("2006-01-02 15:04 MST")})
	for _, row := range header {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(40, 7, tr(row[0]), "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(0, 7, tr(row[1]), "", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	r.lineItemTable(doc, tr, lineItems)

	if v := claim.Vehicle; v != nil && v.Kilometres.IsPositive() {
		doc.Ln(6)
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(0, 8, "Private vehicle", "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		detail := fmt.Sprintf("%s km at %s per km = %s",
			v.Kilometres.String(), v.Rate.StringFixed(2), v.Amount.StringFixed(2))
		if v.Comment != "" {
			detail += " (" + v.Comment + ")"
		}
		doc.MultiCell(0, 6, tr(detail), "", "L", false)
	}

	r.receiptList(doc, tr, claim)

	if err := doc.Error(); err != nil {
		return nil, &domain.ErrRender{Stage: "summary", Err: err}
	}
	out, err := output(doc)
	if err != nil {
		return nil, &domain.ErrRender{Stage: "summary", Err: err}
	}
	span.SetAttributes(attribute.Int("bytes", len(out)))
	return out, nil
}

func (r *SummaryRenderer) lineItemTable(doc *fpdf.Fpdf, tr func(string) string, items []domain.LineItem) {
	widths := []float64{95, 25, 30, 30}
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(235, 235, 235)
	for i, h := range []string{"Description", "Account", "Quantity", "Amount"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		doc.CellFormat(widths[i], 8, h, "B", 0, align, true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	total := decimal.Zero
	if len(items) == 0 {
		doc.CellFormat(0, 7, "No billable items", "", 1, "L", false, 0, "")
	}
	for _, li := range items {
		amount := decimal.NewFromFloat(li.Amount)
		total = total.Add(amount.Mul(decimal.NewFromInt(int64(li.Quantity))))

		doc.CellFormat(widths[0], 7, tr(li.Description), "", 0, "L", false, 0, "")
		doc.CellFormat(widths[1], 7, li.AccountCode, "", 0, "L", false, 0, "")
		doc.CellFormat(widths[2], 7, strconv.Itoa(li.Quantity), "", 0, "R", false, 0, "")
		doc.CellFormat(widths[3], 7, amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total", "T", 0, "R", false, 0, "")
	doc.CellFormat(widths[3], 8, total.StringFixed(2), "T", 1, "R", false, 0, "")
}

func (r *SummaryRenderer) receiptList(doc *fpdf.Fpdf, tr func(string) string, claim *domain.Claim) {
	type row struct{ category, file string }
	var rows []row
	for _, item := range claim.Items {
		category := item.Type
		if item.IsOther() && item.Description != "" {
			category = "Other: " + item.Description
		}
		for _, f := range item.Files {
			rows = append(rows, row{category, f.FileName})
		}
	}
	if claim.Vehicle != nil {
		for _, f := range claim.Vehicle.Files {
			rows = append(rows, row{r.chart.DisplayName(domain.AccountCodeVehicle), f.FileName})
		}
	}
	if len(rows) == 0 {
		return
	}

	doc.Ln(6)
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, fmt.Sprintf("Receipts (%d)", len(rows)), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	for _, rw := range rows {
		doc.CellFormat(60, 6, tr(rw.category), "", 0, "L", false, 0, "")
		doc.CellFormat(0, 6, tr(rw.file), "", 1, "L", false, 0, "")
	}
}

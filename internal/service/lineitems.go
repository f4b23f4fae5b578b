package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

const (
	otherDescriptionPrefix = "Other Expenses - "
	vehicleDescription     = "Private Vehicle"
)

// BuildLineItems derives the billable rows of a claim: standard rows first,
// then the private vehicle, then free-text "other" rows. Only strictly
// positive amounts produce a line item.
func BuildLineItems(claim *domain.Claim, chart *domain.ChartOfAccounts) []domain.LineItem {
	var standard, other []domain.LineItem
	otherCode := otherAccountCode(chart)

	for _, item := range claim.Items {
		amount, ok := billable(item.Amount)
		if !ok {
			continue
		}

		if item.IsOther() {
			desc := strings.TrimSpace(item.Description)
			label := "Other Expenses"
			if desc != "" {
				label = otherDescriptionPrefix + desc
			}
			other = append(other, newLineItem(label, amount, otherCode))
			continue
		}

		code := item.AccountCode
		if code == "" {
			if a, found := chart.Lookup(item.Type); found {
				code = a.Code
			} else {
				code = otherCode
			}
		}
		standard = append(standard, newLineItem(item.Type, amount, code))
	}

	items := make([]domain.LineItem, 0, len(standard)+len(other)+1)
	items = append(items, standard...)
	if li, ok := vehicleLineItem(claim.Vehicle, chart); ok {
		items = append(items, li)
	}
	return append(items, other...)
}

// vehicleLineItem is present iff both kilometres and amount are positive.
func vehicleLineItem(v *domain.VehicleExpense, chart *domain.ChartOfAccounts) (domain.LineItem, bool) {
	if v == nil || !v.Kilometres.IsPositive() {
		return domain.LineItem{}, false
	}
	amount, ok := billable(v.Amount)
	if !ok {
		return domain.LineItem{}, false
	}

	desc := vehicleDescription
	if c := strings.TrimSpace(v.Comment); c != "" {
		desc += " - " + c
	}
	return newLineItem(desc, amount, vehicleAccountCode(chart)), true
}

var oneCent = decimal.New(1, -2)

// billable reports whether amount is strictly positive and returns it
// rounded to cents. A positive amount below half a cent bills one cent.
func billable(amount decimal.Decimal) (float64, bool) {
	if !amount.IsPositive() {
		return 0, false
	}
	rounded := amount.Round(2)
	if rounded.LessThan(oneCent) {
		rounded = oneCent
	}
	return rounded.InexactFloat64(), true
}

func newLineItem(desc string, amount float64, code string) domain.LineItem {
	return domain.LineItem{
		Description: desc,
		Quantity:    1,
		Amount:      amount,
		AccountCode: code,
		TaxType:     "",
	}
}

func otherAccountCode(chart *domain.ChartOfAccounts) string {
	if a, ok := chart.Lookup(domain.ExpenseTypeOther); ok {
		return a.Code
	}
	return domain.AccountCodeOther
}

func vehicleAccountCode(chart *domain.ChartOfAccounts) string {
	if a, ok := chart.Lookup(vehicleDescription); ok {
		return a.Code
	}
	return domain.AccountCodeVehicle
}

package service

import (
	"strings"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// GroupByAccountCode partitions every receipt by the account code of the row
// it was attached to. Groups appear in first-encounter order: standard rows,
// then the vehicle row, then free-text rows under domain.AccountCodeOther.
// Unrecognised categories land in domain.AccountCodeUnknown.
func GroupByAccountCode(claim *domain.Claim, chart *domain.ChartOfAccounts) []domain.FileGroup {
	var groups []domain.FileGroup
	index := make(map[string]int)

	add := func(code, expenseType string, files []domain.FileInput) {
		if len(files) == 0 {
			return
		}
		i, ok := index[code]
		if !ok {
			i = len(groups)
			index[code] = i
			groups = append(groups, domain.FileGroup{
				AccountCode: code,
				DisplayName: chart.DisplayName(code),
			})
		}
		for _, f := range files {
			groups[i].Files = append(groups[i].Files, domain.GroupedFile{File: f, ExpenseType: expenseType})
		}
	}

	for _, item := range claim.Items {
		if item.IsOther() {
			continue
		}
		code := item.AccountCode
		if code == "" {
			code = domain.AccountCodeUnknown
			if a, ok := chart.Lookup(item.Type); ok {
				code = a.Code
			}
		}
		add(code, item.Type, item.Files)
	}

	if claim.Vehicle != nil {
		add(vehicleAccountCode(chart), vehicleDescription, claim.Vehicle.Files)
	}

	for _, item := range claim.Items {
		if !item.IsOther() {
			continue
		}
		label := strings.TrimSpace(item.Description)
		if label == "" {
			label = domain.ExpenseTypeOther
		}
		add(domain.AccountCodeOther, label, item.Files)
	}

	return groups
}

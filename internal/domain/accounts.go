package domain

import "strings"

// Sentinel account codes used when grouping receipts.
const (
	AccountCodeOther   = "OTHER"
	AccountCodeUnknown = "UNKNOWN"

	// AccountCodeVehicle is the private-vehicle mileage account.
	AccountCodeVehicle = "481"
)

// Account is one accounting category that expense rows map to.
type Account struct {
	Label string `yaml:"label"`
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
}

// ChartOfAccounts maps the stable category labels of the expense form
// to the account codes used by the accounting integration.
type ChartOfAccounts struct {
	accounts []Account
	byLabel  map[string]Account
	byCode   map[string]Account
}

// NewChartOfAccounts builds a lookup table. Later entries win on duplicate labels.
func NewChartOfAccounts(accounts []Account) *ChartOfAccounts {
	c := &ChartOfAccounts{
		accounts: make([]Account, 0, len(accounts)),
		byLabel:  make(map[string]Account, len(accounts)),
		byCode:   make(map[string]Account, len(accounts)),
	}
	for _, a := range accounts {
		if a.Name == "" {
			a.Name = a.Label
		}
		c.accounts = append(c.accounts, a)
		c.byLabel[normalizeLabel(a.Label)] = a
		if _, ok := c.byCode[a.Code]; !ok {
			c.byCode[a.Code] = a
		}
	}
	return c
}

// DefaultChartOfAccounts is the chart shipped with the service.
func DefaultChartOfAccounts() *ChartOfAccounts {
	return NewChartOfAccounts([]Account{
		{Label: "Flights", Code: "480", Name: "Flights"},
		{Label: "Private Vehicle", Code: AccountCodeVehicle, Name: "Private Vehicle"},
		{Label: "Accommodation", Code: "482", Name: "Accommodation"},
		{Label: "Meals", Code: "483", Name: "Meals & Entertainment"},
		{Label: "Taxi & Rideshare", Code: "484", Name: "Taxi & Rideshare"},
		{Label: "Car Rental", Code: "485", Name: "Car Rental"},
		{Label: "Parking & Tolls", Code: "486", Name: "Parking & Tolls"},
		{Label: "Phone & Internet", Code: "487", Name: "Phone & Internet"},
		{Label: "Conferences & Training", Code: "488", Name: "Conferences & Training"},
		{Label: ExpenseTypeOther, Code: "489", Name: "Other Expenses"},
	})
}

// Lookup finds the account for a category label (case-insensitive).
func (c *ChartOfAccounts) Lookup(label string) (Account, bool) {
	a, ok := c.byLabel[normalizeLabel(label)]
	return a, ok
}

// DisplayName returns a human name for an account code, including the sentinels.
func (c *ChartOfAccounts) DisplayName(code string) string {
	switch code {
	case AccountCodeOther:
		return "Other Expenses"
	case AccountCodeUnknown:
		return "Uncategorised"
	}
	if a, ok := c.byCode[code]; ok {
		return a.Name
	}
	return code
}

// Accounts returns the accounts in declaration order.
func (c *ChartOfAccounts) Accounts() []Account {
	out := make([]Account, len(c.accounts))
	copy(out, c.accounts)
	return out
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

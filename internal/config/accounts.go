package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// accountsFile is the on-disk shape of a chart of accounts:
//
//	accounts:
//	  - label: Flights
//	    code: "480"
//	    name: Flights
type accountsFile struct {
	Accounts []domain.Account `yaml:"accounts"`
}

// LoadChartOfAccounts returns the built-in chart when path is empty,
// otherwise the chart read from the YAML file at path.
func LoadChartOfAccounts(path string) (*domain.ChartOfAccounts, error) {
	if path == "" {
		return domain.DefaultChartOfAccounts(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading accounts file: %w", err)
	}
	return ParseChartOfAccounts(data)
}

// ParseChartOfAccounts decodes and validates a YAML chart of accounts.
func ParseChartOfAccounts(data []byte) (*domain.ChartOfAccounts, error) {
	var f accountsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &domain.ErrConfig{Key: "ACCOUNTS_FILE", Message: err.Error()}
	}
	if len(f.Accounts) == 0 {
		return nil, &domain.ErrConfig{Key: "ACCOUNTS_FILE", Message: "no accounts defined"}
	}

	seen := make(map[string]bool, len(f.Accounts))
	for i, a := range f.Accounts {
		label := strings.ToLower(strings.TrimSpace(a.Label))
		if label == "" || strings.TrimSpace(a.Code) == "" {
			return nil, &domain.ErrConfig{
				Key:     "ACCOUNTS_FILE",
				Message: fmt.Sprintf("account %d: label and code are required", i),
			}
		}
		if seen[label] {
			return nil, &domain.ErrConfig{
				Key:     "ACCOUNTS_FILE",
				Message: fmt.Sprintf("duplicate label %q", a.Label),
			}
		}
		seen[label] = true
	}
	return domain.NewChartOfAccounts(f.Accounts), nil
}

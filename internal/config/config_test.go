package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/expense-claim-bfa/internal/config"
	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/claims")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4.5, cfg.MaxPayloadMB)
	assert.True(t, cfg.EncodePayloadFields)
	assert.Equal(t, 1200, cfg.ImageMaxDimension)
	assert.Equal(t, 0.7, cfg.ImageQuality)
	assert.Equal(t, 0.7, cfg.ImageBudgetFraction)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, int64(60*1024*1024), cfg.MaxUploadBytes())
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_MissingWebhookURL(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "")

	_, err := config.Load()

	var cfgErr *domain.ErrConfig
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "WEBHOOK_URL", cfgErr.Key)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "http://localhost:5678/webhook")
	t.Setenv("MAX_PAYLOAD_MB", "2.5")
	t.Setenv("ENCODE_PAYLOAD_FIELDS", "false")
	t.Setenv("IMAGE_BUDGET_FRACTION", "0.5")
	t.Setenv("HTTP_TIMEOUT", "5s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.MaxPayloadMB)
	assert.False(t, cfg.EncodePayloadFields)
	assert.Equal(t, 0.5, cfg.ImageBudgetFraction)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestValidate_Ranges(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Port:                8080,
			WebhookURL:          "https://hooks.example.com/x",
			MaxUploadMB:         60,
			MaxPayloadMB:        4.5,
			ImageMaxDimension:   1200,
			ImageQuality:        0.7,
			ImageBudgetFraction: 0.7,
			MaxConcurrency:      8,
			HTTPTimeout:         time.Second,
			WebhookRateBurst:    1,
			IdempotencyTTL:      time.Minute,
		}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
		key    string
	}{
		{"relative url", func(c *config.Config) { c.WebhookURL = "/claims" }, "WEBHOOK_URL"},
		{"zero payload", func(c *config.Config) { c.MaxPayloadMB = 0 }, "MAX_PAYLOAD_MB"},
		{"quality above one", func(c *config.Config) { c.ImageQuality = 1.5 }, "IMAGE_QUALITY"},
		{"zero fraction", func(c *config.Config) { c.ImageBudgetFraction = 0 }, "IMAGE_BUDGET_FRACTION"},
		{"negative retries", func(c *config.Config) { c.MaxRetries = -1 }, "MAX_RETRIES"},
		{"retries without backoff", func(c *config.Config) { c.MaxRetries = 2 }, "INITIAL_BACKOFF"},
		{"signing without ttl", func(c *config.Config) { c.WebhookSigningSecret = "s" }, "WEBHOOK_TOKEN_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			var cfgErr *domain.ErrConfig
			require.True(t, errors.As(c.Validate(), &cfgErr))
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CLAIMS_TEST_A=from-file\nCLAIMS_TEST_B=\"quoted\"\n"), 0o600))

	t.Setenv("CLAIMS_TEST_A", "from-env")
	t.Setenv("CLAIMS_TEST_B", "")
	os.Unsetenv("CLAIMS_TEST_B")

	require.NoError(t, config.LoadDotEnv(path))
	t.Cleanup(func() { os.Unsetenv("CLAIMS_TEST_B") })

	assert.Equal(t, "from-env", os.Getenv("CLAIMS_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("CLAIMS_TEST_B"))
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestParseChartOfAccounts(t *testing.T) {
	chart, err := config.ParseChartOfAccounts([]byte(`
accounts:
  - label: Flights
    code: "480"
  - label: Meals
    code: "483"
    name: Meals & Entertainment
`))
	require.NoError(t, err)

	a, ok := chart.Lookup("  meals ")
	require.True(t, ok)
	assert.Equal(t, "483", a.Code)
	assert.Equal(t, "Flights", chart.DisplayName("480"))
	assert.Equal(t, "Meals & Entertainment", chart.DisplayName("483"))
}

func TestParseChartOfAccounts_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":     "accounts: []",
		"no code":   "accounts:\n  - label: Flights\n",
		"duplicate": "accounts:\n  - {label: A, code: '1'}\n  - {label: a, code: '2'}\n",
		"malformed": "accounts: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.ParseChartOfAccounts([]byte(doc))
			var cfgErr *domain.ErrConfig
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestLoadChartOfAccounts_DefaultWhenEmpty(t *testing.T) {
	chart, err := config.LoadChartOfAccounts("")
	require.NoError(t, err)

	a, ok := chart.Lookup("Flights")
	require.True(t, ok)
	assert.Equal(t, "480", a.Code)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/bher20/slotariff/internal/tariff"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Listen)
	assert.Equal(t, "Europe/Ljubljana", cfg.Timezone)
	assert.Equal(t, "60", cfg.Refresh.Interval)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "goose", cfg.Storage.Schema)
	assert.Equal(t, "other", cfg.Supplier)
	assert.Equal(t, "info", cfg.Logging.Level)

	table := cfg.Prices.Table()
	assert.Equal(t, "0.1199", table.EnergyPeak.String())
	assert.Equal(t, "0.01873", table.NetworkBlock[5].String())
	assert.Equal(t, "Europe/Ljubljana", cfg.Location().String())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SLOTARIFF_LISTEN", ":9090")
	t.Setenv("SLOTARIFF_DB_DRIVER", "sqlite")
	t.Setenv("SLOTARIFF_DB_DSN", "file:test.db")
	t.Setenv("SLOTARIFF_BLOCK_3_PRICE", "0.02")
	t.Setenv("SLOTARIFF_REFRESH_INTERVAL", "*/5 * * * *")
	t.Setenv("SLOTARIFF_EMAIL_PROVIDER", "resend")
	t.Setenv("SLOTARIFF_EMAIL_FROM", "tariff@example.org")
	t.Setenv("SLOTARIFF_EMAIL_TO", "a@example.org,b@example.org")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "file:test.db", cfg.Storage.DSN)
	assert.Equal(t, "0.02", cfg.Prices.Table().NetworkBlock[3].String())
	assert.Equal(t, "*/5 * * * *", cfg.Refresh.Interval)
	assert.Equal(t, []string{"a@example.org", "b@example.org"}, cfg.Email.To)
}

func TestDefaultPrices_MatchTariffDefaults(t *testing.T) {
	got := DefaultPrices().Table()
	want := tariff.DefaultPrices()
	assert.True(t, want.EnergyPeak.Equal(got.EnergyPeak))
	assert.True(t, want.EnergyOffPeak.Equal(got.EnergyOffPeak))
	assert.True(t, want.Contributions.Equal(got.Contributions))
	assert.True(t, want.ExciseTax.Equal(got.ExciseTax))
	for _, b := range tariff.Blocks() {
		assert.True(t, want.NetworkBlock[b].Equal(got.NetworkBlock[b]), "block %d", b)
	}

	// An environment override wins over the default.
	t.Setenv("SLOTARIFF_EXCISE_TAX_PRICE", "0.002")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "0.002", cfg.Prices.Table().ExciseTax.String())
	assert.Equal(t, "0.01809", cfg.Prices.Table().NetworkBlock[3].String())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  listen: ":8123"
supplier: gen_i
prices:
  energy_peak: 0.15
auth:
  tokens:
    - name: ops
      role: operator
      hash: "$2a$10$abcdefghijklmnopqrstuv"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8123", cfg.Server.Listen)
	assert.Equal(t, "gen_i", cfg.Supplier)
	assert.Equal(t, "0.15", cfg.Prices.Table().EnergyPeak.String())
	// Unset fields keep their defaults.
	assert.Equal(t, "0.0979", cfg.Prices.Table().EnergyOffPeak.String())
	require.Len(t, cfg.Auth.Tokens, 1)
	assert.Equal(t, "operator", cfg.Auth.Tokens[0].Role)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	cfg.Timezone = "Mars/Olympus"
	cfg.Refresh.Interval = "sometimes"
	cfg.Storage.Driver = "mongo"
	cfg.Prices.ExciseTax = 2
	cfg.Webhook.Type = "teams"
	cfg.Storage.Schema = "manual"
	cfg.Email.Provider = "sendgrid"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 7)
}

func TestAllTokens_AddsEnvAdmin(t *testing.T) {
	a := Auth{
		Tokens:         []Token{{Name: "viewer", Role: "viewer", Hash: "h1"}},
		AdminTokenHash: "h2",
	}
	tokens := a.AllTokens()
	require.Len(t, tokens, 2)
	assert.Equal(t, "admin", tokens[1].Role)
	assert.Len(t, a.Tokens, 1)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "environment: development\n"))
	require.NoError(t, err)

	assert.Equal(t, 5, c.Run.LookbackYears)
	assert.Equal(t, 500, c.SQL.BatchSize)
	assert.Equal(t, 10*time.Second, c.Phases.Timeout)
	assert.Equal(t, []string{"SPY", "QQQ", "DIA", "IWM"}, c.SymbolList())
	assert.Equal(t, "S&P 500", c.Run.Symbols[0].Name)
	assert.False(t, c.Phases.GapFill)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, `
environment: production
run:
  lookback_years: 2
  symbols:
    - symbol: VTI
      name: Total Market
phases:
  gap_fill: true
  timeout: 3s
metrics:
  enabled: false
`))
	require.NoError(t, err)

	assert.Equal(t, 2, c.Run.LookbackYears)
	assert.Equal(t, []string{"VTI"}, c.SymbolList())
	assert.True(t, c.Phases.GapFill)
	assert.Equal(t, 3*time.Second, c.Phases.Timeout)
	assert.False(t, c.Metrics.Enabled)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "run:\n  price_source: bloomberg\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "sql:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "sql.dsn")

	_, err = Load(writeConfig(t, "run:\n  price_source: warehouse\n"))
	assert.ErrorContains(t, err, "clickhouse.enabled")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "qqq, iwm")
	t.Setenv("SQL_CONNECTION_STRING", "sqlserver://sa:pw@localhost?database=lunar")
	t.Setenv("AZURE_BLOB_CONTAINER_LUNAR", "moon")
	t.Setenv("LOG_LEVEL", "DEBUG")

	c, err := LoadWithEnv(writeConfig(t, "environment: staging\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"QQQ", "IWM"}, c.SymbolList())
	assert.Equal(t, "Russell 2000", c.Run.Symbols[1].Name)
	assert.True(t, c.SQL.Enabled)
	assert.Equal(t, "moon", c.Blob.LunarContainer)
	assert.Equal(t, "stock-prices", c.Blob.StockContainer)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestRange(t *testing.T) {
	c, err := Parse([]byte("run:\n  lookback_years: 1\n"))
	require.NoError(t, err)

	start, end, err := c.Range(time.Date(2025, 6, 15, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), end)

	c.Run.StartDate, c.Run.EndDate = "2020-01-01", "2020-12-31"
	start, end, err = c.Range(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2020, start.Year())
	assert.Equal(t, time.December, end.Month())
}

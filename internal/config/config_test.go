package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(EnvMap{"GOOGLE_SHEET_ID": "sheet-123"})
	require.NoError(t, err)

	assert.Equal(t, "https://apilist.tronscan.org/api", cfg.TronscanURL)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5*time.Second, cfg.PriceTimeout)
	assert.Equal(t, "0.07", cfg.PriceFallback.String())
	assert.Equal(t, "tron", cfg.PriceCoinID)
	assert.Equal(t, LedgerBackendSheets, cfg.LedgerBackend)
	assert.Equal(t, "service_account.json", cfg.SheetsCredFile)
	assert.Equal(t, "Transactions", cfg.Worksheet)
	assert.Equal(t, 2*time.Second, cfg.ImportDelay)
	assert.Equal(t, "BULK_IMPORT", cfg.ImportCallerID)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/sheet-123", cfg.SheetURL())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(EnvMap{
		"LEDGER_BACKEND":     "MySQL",
		"LEDGER_DB_DSN":      "user:pw@tcp(db:3306)/ledger",
		"PRICE_FALLBACK_USD": "0.12",
		"FETCH_TIMEOUT":      "3s",
		"KAFKA_BROKERS":      "k1:9092, k2:9092",
		"BOT_USER_ID":        "U0BOT",
	})
	require.NoError(t, err)

	assert.Equal(t, LedgerBackendMySQL, cfg.LedgerBackend)
	assert.Equal(t, "0.12", cfg.PriceFallback.String())
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "U0BOT", cfg.BotUserID)
	assert.Empty(t, cfg.SheetURL())
}

func TestLoad_SQLiteDefaultPath(t *testing.T) {
	cfg, err := Load(EnvMap{"LEDGER_BACKEND": "sqlite"})
	require.NoError(t, err)
	assert.Equal(t, LedgerBackendSQLite, cfg.LedgerBackend)
	assert.Equal(t, "txledger.db", cfg.LedgerDSN)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  EnvMap
	}{
		{name: "sheets without id", env: EnvMap{}},
		{name: "mysql without dsn", env: EnvMap{"LEDGER_BACKEND": "mysql"}},
		{name: "unknown backend", env: EnvMap{"LEDGER_BACKEND": "postgres"}},
		{name: "bad duration", env: EnvMap{"LEDGER_BACKEND": "memory", "PRICE_TIMEOUT": "soon"}},
		{name: "bad fallback", env: EnvMap{"LEDGER_BACKEND": "memory", "PRICE_FALLBACK_USD": "-1"}},
		{name: "bad log size", env: EnvMap{"LEDGER_BACKEND": "memory", "LOG_MAX_SIZE_MB": "big"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.env)
			assert.Error(t, err)
		})
	}

	_, err := Load(nil)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TXLEDGER_TEST_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TXLEDGER_TEST_KEY") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("TXLEDGER_TEST_KEY"))

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"PAPER_DESK_PORT", "PAPER_DESK_DB", "PREDICTION_THRESHOLD", "LOG_LEVEL", "LLM_API_KEY", "TINKOFF_TOKEN", "DATABASE_URL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 0.5, cfg.Signal.Threshold)
	assert.Equal(t, "1.0.0", cfg.Signal.ModelVersion)
	assert.Equal(t, 14, cfg.Indicators.RSIPeriod)
	assert.Equal(t, 26, cfg.Indicators.MACDSlow)
	assert.Equal(t, 2.0, cfg.Indicators.BollingerMult)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Scheduler.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
signal:
  threshold: 0.65
indicators:
  rsi_period: 21
scheduler:
  enabled: true
  cron: "0 0 * * * *"
  watchlist: [AAPL, BTC_USD]
telegram:
  enabled: true
  chat_id: 12345
`)
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token-from-env")
	t.Setenv("PAPER_DESK_DB", "/tmp/override.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 0.65, cfg.Signal.Threshold)
	assert.Equal(t, 21, cfg.Indicators.RSIPeriod)
	assert.Equal(t, 12, cfg.Indicators.MACDFast)
	assert.Equal(t, []string{"AAPL", "BTC_USD"}, cfg.Scheduler.Watchlist)
	assert.Equal(t, "token-from-env", cfg.Telegram.BotToken)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"bad driver":         "database:\n  driver: mysql\n",
		"postgres no dsn":    "database:\n  driver: postgres\n",
		"threshold":          "signal:\n  threshold: 1.5\n",
		"telegram no token":  "telegram:\n  enabled: true\n  chat_id: 1\n",
		"scheduler bad cron": "scheduler:\n  enabled: true\n  cron: \"every minute\"\n  watchlist: [AAPL]\n",
		"chat without key":   "inference:\n  chat:\n    enabled: true\n",
		"macd windows":       "indicators:\n  macd_fast: 30\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("TELEGRAM_BOT_TOKEN", "")
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestPostgresDSNFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://desk:secret@db:5432/desk?sslmode=disable")
	cfg, err := Load(writeConfig(t, "database:\n  driver: postgres\nscheduler:\n  enabled: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://desk:secret@db:5432/desk?sslmode=disable", cfg.Database.DSN)
	assert.Empty(t, cfg.Scheduler.Watchlist, "an empty watchlist falls back to model symbols")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated"))
	assert.Error(t, err)
}

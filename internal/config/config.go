package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/camuig/paper-desk/internal/indicator"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Signal     SignalConfig     `yaml:"signal"`
	Indicators indicator.Params `yaml:"indicators"`
	Inference  InferenceConfig  `yaml:"inference"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Tinkoff    TinkoffConfig    `yaml:"tinkoff"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port                int `yaml:"port"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	// Driver is "sqlite", "postgres" or "memory".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	// DSN is the postgres connection string.
	DSN    string `yaml:"dsn"`
}

type SignalConfig struct {
	Threshold    float64 `yaml:"threshold"`
	ModelVersion string  `yaml:"model_version"`
	// Seed fixes the degraded-mode random source. Zero seeds from the clock.
	Seed         int64   `yaml:"seed"`
}

type InferenceConfig struct {
	ModelDir       string     `yaml:"model_dir"`
	ModelPattern   string     `yaml:"model_pattern"`
	ONNXLibrary    string     `yaml:"onnx_library"`
	InputName      string     `yaml:"input_name"`
	OutputName     string     `yaml:"output_name"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	Chat           ChatConfig `yaml:"chat"`
}

// ChatConfig configures an OpenAI-compatible model used when no ONNX file
// exists for a symbol.
type ChatConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type MarketDataConfig struct {
	YahooBaseURL   string `yaml:"yahoo_base_url"`
	BinanceBaseURL string `yaml:"binance_base_url"`
	MoexBaseURL    string `yaml:"moex_base_url"`
	Interval       string `yaml:"interval"`
	Lookback       int    `yaml:"lookback"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Proxy          string `yaml:"proxy"`
}

type TinkoffConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	Sandbox   bool   `yaml:"sandbox"`
	AccountID string `yaml:"account_id"`
}

type SchedulerConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Cron        string   `yaml:"cron"`
	Watchlist   []string `yaml:"watchlist"`
	Concurrency int      `yaml:"concurrency"`
	RunOnStart  bool     `yaml:"run_on_start"`
}

type TelegramConfig struct {
	Enabled       bool    `yaml:"enabled"`
	BotToken      string  `yaml:"bot_token"`
	ChatID        int64   `yaml:"chat_id"`
	// MinConfidence filters which signals are pushed. HOLD is never pushed.
	MinConfidence float64 `yaml:"min_confidence"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path if it exists, applies environment overrides, fills in
// defaults and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PAPER_DESK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PAPER_DESK_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		cfg.Inference.ModelDir = v
	}
	if v := os.Getenv("ONNXRUNTIME_LIB"); v != "" {
		cfg.Inference.ONNXLibrary = v
	}
	if v := os.Getenv("PREDICTION_THRESHOLD"); v != "" {
		if th, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Signal.Threshold = th
		}
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.Inference.Chat.APIKey = v
	}
	if v := os.Getenv("TINKOFF_TOKEN"); v != "" {
		cfg.Tinkoff.Token = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" && cfg.MarketData.Proxy == "" {
		cfg.MarketData.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 10
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/paper-desk.db"
	}
	if cfg.Signal.Threshold == 0 {
		cfg.Signal.Threshold = 0.5
	}
	if cfg.Signal.ModelVersion == "" {
		cfg.Signal.ModelVersion = "1.0.0"
	}
	setIndicatorDefaults(&cfg.Indicators)
	if cfg.Inference.ModelDir == "" {
		cfg.Inference.ModelDir = "models"
	}
	if cfg.Inference.ModelPattern == "" {
		cfg.Inference.ModelPattern = "**/*.onnx"
	}
	if cfg.Inference.InputName == "" {
		cfg.Inference.InputName = "input"
	}
	if cfg.Inference.OutputName == "" {
		cfg.Inference.OutputName = "probabilities"
	}
	if cfg.Inference.TimeoutSeconds == 0 {
		cfg.Inference.TimeoutSeconds = 30
	}
	if cfg.Inference.Chat.BaseURL == "" {
		cfg.Inference.Chat.BaseURL = "https://api.deepseek.com/v1"
	}
	if cfg.Inference.Chat.Model == "" {
		cfg.Inference.Chat.Model = "deepseek-chat"
	}
	if cfg.MarketData.YahooBaseURL == "" {
		cfg.MarketData.YahooBaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.MarketData.BinanceBaseURL == "" {
		cfg.MarketData.BinanceBaseURL = "https://api.binance.com"
	}
	if cfg.MarketData.MoexBaseURL == "" {
		cfg.MarketData.MoexBaseURL = "https://iss.moex.com"
	}
	if cfg.MarketData.Interval == "" {
		cfg.MarketData.Interval = "1h"
	}
	if cfg.MarketData.Lookback == 0 {
		cfg.MarketData.Lookback = 200
	}
	if cfg.MarketData.TimeoutSeconds == 0 {
		cfg.MarketData.TimeoutSeconds = 15
	}
	if cfg.Scheduler.Cron == "" {
		cfg.Scheduler.Cron = "0 */15 * * * *"
	}
	if cfg.Scheduler.Concurrency == 0 {
		cfg.Scheduler.Concurrency = 4
	}
	if cfg.Telegram.MinConfidence == 0 {
		cfg.Telegram.MinConfidence = 0.7
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func setIndicatorDefaults(p *indicator.Params) {
	d := indicator.DefaultParams()
	if p.RSIPeriod == 0 {
		p.RSIPeriod = d.RSIPeriod
	}
	if p.MACDFast == 0 {
		p.MACDFast = d.MACDFast
	}
	if p.MACDSlow == 0 {
		p.MACDSlow = d.MACDSlow
	}
	if p.MACDSignal == 0 {
		p.MACDSignal = d.MACDSignal
	}
	if p.BollingerPeriod == 0 {
		p.BollingerPeriod = d.BollingerPeriod
	}
	if p.BollingerMult == 0 {
		p.BollingerMult = d.BollingerMult
	}
	if p.VolumePeriod == 0 {
		p.VolumePeriod = d.VolumePeriod
	}
	if p.VolatilityPeriod == 0 {
		p.VolatilityPeriod = d.VolatilityPeriod
	}
	if p.MomentumPeriod == 0 {
		p.MomentumPeriod = d.MomentumPeriod
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres or memory, got %q", c.Database.Driver)
	}
	if c.Signal.Threshold < 0 || c.Signal.Threshold > 1 {
		return fmt.Errorf("signal.threshold must be within [0, 1], got %v", c.Signal.Threshold)
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return fmt.Errorf("indicators.macd_fast must be below macd_slow")
	}
	if c.Inference.Chat.Enabled && c.Inference.Chat.APIKey == "" {
		return fmt.Errorf("inference.chat.api_key is required when chat inference is enabled")
	}
	if c.Tinkoff.Enabled && c.Tinkoff.Token == "" {
		return fmt.Errorf("tinkoff.token is required when tinkoff is enabled")
	}
	if c.Scheduler.Enabled {
		if _, err := cron.NewParser(cronFields).Parse(c.Scheduler.Cron); err != nil {
			return fmt.Errorf("invalid scheduler.cron %q: %w", c.Scheduler.Cron, err)
		}
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// cronFields matches cron.WithSeconds.
const cronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

func (c *Config) IsSandbox() bool {
	return c.Tinkoff.Sandbox
}

func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

func (c *Config) MarketDataTimeout() time.Duration {
	return time.Duration(c.MarketData.TimeoutSeconds) * time.Second
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

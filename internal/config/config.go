package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	SourceBrowser = "browser"
	SourceAPI     = "api"

	defaultWalletAddress = "0x744cf47e88d9d0847544f0ac2fa7575cf5925f79"
	explorerAddressURL   = "https://hypurrscan.io/address/"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Source    SourceConfig    `yaml:"source"`
	Poll      PollConfig      `yaml:"poll"`
	History   HistoryConfig   `yaml:"history"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	State     StateConfig     `yaml:"state"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type WalletConfig struct {
	Address string `yaml:"address"`
	// URL is the explorer page the browser source renders. It is also the
	// link appended to order alerts.
	URL string `yaml:"url"`
}

type SourceConfig struct {
	Kind              string        `yaml:"kind"`
	ReadyTimeout      time.Duration `yaml:"ready_timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	OrdersTabXPath    string        `yaml:"orders_tab_xpath"`
	PositionsTabXPath string        `yaml:"positions_tab_xpath"`
	UserAgent         string        `yaml:"user_agent"`
	ChromePath        string        `yaml:"chrome_path"`
	APIBaseURL        string        `yaml:"api_base_url"`
	APITimeout        time.Duration `yaml:"api_timeout"`
}

type PollConfig struct {
	OrderInterval     time.Duration `yaml:"order_interval"`
	PositionsInterval time.Duration `yaml:"positions_interval"`
}

type HistoryConfig struct {
	Size int `yaml:"size"`
}

type AlertsConfig struct {
	NotifyNoNewOrder *bool `yaml:"notify_no_new_order"`
}

func (a AlertsConfig) NotifyNoNewOrderValue() bool {
	return a.NotifyNoNewOrder == nil || *a.NotifyNoNewOrder
}

type TelegramConfig struct {
	Enabled bool          `yaml:"enabled"`
	Token   string        `yaml:"token"`
	ChatID  string        `yaml:"chat_id"`
	Timeout time.Duration `yaml:"timeout"`
}

type StateConfig struct {
	// SQLitePath persists the order history and last snapshot across
	// restarts. Empty keeps state in memory only.
	SQLitePath string `yaml:"sqlite_path"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

func (m MetricsConfig) EnabledValue() bool {
	return m.Enabled != nil && *m.Enabled
}

// Load reads the YAML file at path, if any, then applies defaults and
// environment overrides. An empty path configures from the environment only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = "json"
	}
	cfg.Wallet.Address = strings.TrimSpace(cfg.Wallet.Address)
	cfg.Wallet.URL = strings.TrimSpace(cfg.Wallet.URL)
	if cfg.Wallet.Address == "" {
		cfg.Wallet.Address = addressFromURL(cfg.Wallet.URL)
	}
	if cfg.Wallet.Address == "" && cfg.Wallet.URL == "" {
		cfg.Wallet.Address = defaultWalletAddress
	}
	if cfg.Wallet.URL == "" && cfg.Wallet.Address != "" {
		cfg.Wallet.URL = explorerAddressURL + cfg.Wallet.Address
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = SourceBrowser
	}
	cfg.Source.Kind = strings.ToLower(strings.TrimSpace(cfg.Source.Kind))
	if cfg.Source.ReadyTimeout == 0 {
		cfg.Source.ReadyTimeout = 20 * time.Second
	}
	if cfg.Source.SettleDelay == 0 {
		cfg.Source.SettleDelay = time.Second
	}
	if cfg.Source.OrdersTabXPath == "" {
		cfg.Source.OrdersTabXPath = "//button[4]/span[3]"
	}
	if cfg.Source.PositionsTabXPath == "" {
		cfg.Source.PositionsTabXPath = "//button[3]/span[3]"
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124"
	}
	if cfg.Source.APIBaseURL == "" {
		cfg.Source.APIBaseURL = "https://api.hyperliquid.xyz"
	}
	if cfg.Source.APITimeout == 0 {
		cfg.Source.APITimeout = 10 * time.Second
	}
	if cfg.Poll.OrderInterval == 0 {
		cfg.Poll.OrderInterval = 5 * time.Second
	}
	if cfg.Poll.PositionsInterval == 0 {
		cfg.Poll.PositionsInterval = 60 * time.Second
	}
	if cfg.History.Size == 0 {
		cfg.History.Size = 5
	}
	if cfg.Telegram.Timeout == 0 {
		cfg.Telegram.Timeout = 10 * time.Second
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
	if cfg.Timescale.QueueSize == 0 {
		cfg.Timescale.QueueSize = 256
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9101"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// applyEnvOverrides reads the deployment variables. Intervals are whole seconds.
func applyEnvOverrides(cfg *Config) error {
	if v := envValue("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := envValue("WALLET_URL"); v != "" {
		cfg.Wallet.URL = v
	}
	if v := envValue("WALLET_ADDRESS"); v != "" {
		cfg.Wallet.Address = v
	}
	if v := envValue("SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}
	if ok, err := secondsEnv("CHECK_INTERVAL", &cfg.Poll.OrderInterval); err != nil {
		return err
	} else if ok && cfg.Poll.OrderInterval <= 0 {
		return errors.New("CHECK_INTERVAL must be > 0")
	}
	if ok, err := secondsEnv("POSITIONS_CHECK_INTERVAL", &cfg.Poll.PositionsInterval); err != nil {
		return err
	} else if ok && cfg.Poll.PositionsInterval <= 0 {
		return errors.New("POSITIONS_CHECK_INTERVAL must be > 0")
	}
	if v := envValue("ORDER_HISTORY_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ORDER_HISTORY_SIZE: %w", err)
		}
		if n <= 0 {
			return errors.New("ORDER_HISTORY_SIZE must be > 0")
		}
		cfg.History.Size = n
	}
	token := envValue("TELEGRAM_BOT_TOKEN")
	chatID := envValue("TELEGRAM_CHAT_ID")
	if token != "" {
		cfg.Telegram.Token = token
	}
	if chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
	if token != "" && chatID != "" {
		cfg.Telegram.Enabled = true
	}
	if v := envValue("STATE_SQLITE_PATH"); v != "" {
		cfg.State.SQLitePath = v
	}
	if v := envValue("TIMESCALE_DSN"); v != "" {
		cfg.Timescale.DSN = v
		cfg.Timescale.Enabled = true
	}
	return nil
}

func validate(cfg *Config) error {
	switch cfg.Source.Kind {
	case SourceBrowser:
		if cfg.Wallet.URL == "" {
			return errors.New("wallet.url is required for the browser source")
		}
	case SourceAPI:
		if !common.IsHexAddress(cfg.Wallet.Address) {
			return fmt.Errorf("wallet.address %q is not a valid address", cfg.Wallet.Address)
		}
	default:
		return fmt.Errorf("source.kind must be %q or %q, got %q", SourceBrowser, SourceAPI, cfg.Source.Kind)
	}
	if cfg.Wallet.Address != "" && !common.IsHexAddress(cfg.Wallet.Address) {
		return fmt.Errorf("wallet.address %q is not a valid address", cfg.Wallet.Address)
	}
	if cfg.Source.ReadyTimeout < 0 || cfg.Source.SettleDelay < 0 || cfg.Source.APITimeout < 0 {
		return errors.New("source timeouts must be >= 0")
	}
	if cfg.Poll.OrderInterval <= 0 {
		return errors.New("poll.order_interval must be > 0")
	}
	if cfg.Poll.PositionsInterval <= 0 {
		return errors.New("poll.positions_interval must be > 0")
	}
	if cfg.History.Size <= 0 {
		return errors.New("history.size must be > 0")
	}
	if cfg.Telegram.Enabled && (strings.TrimSpace(cfg.Telegram.Token) == "" || strings.TrimSpace(cfg.Telegram.ChatID) == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if cfg.Telegram.Timeout < 0 {
		return errors.New("telegram.timeout must be >= 0")
	}
	if cfg.Timescale.Enabled && strings.TrimSpace(cfg.Timescale.DSN) == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}

// addressFromURL returns the trailing address segment of an explorer URL.
func addressFromURL(raw string) string {
	raw = strings.TrimRight(raw, "/")
	idx := strings.LastIndex(raw, "/")
	if idx < 0 {
		return ""
	}
	candidate := raw[idx+1:]
	if !common.IsHexAddress(candidate) {
		return ""
	}
	return candidate
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func secondsEnv(key string, dst *time.Duration) (bool, error) {
	v := envValue(key)
	if v == "" {
		return false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	*dst = time.Duration(n) * time.Second
	return true, nil
}

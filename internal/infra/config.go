package infra

import (
	"fmt"
	"os"
	"strconv"

	"lighter_go/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds every application setting. Sensitive values can be
// overridden through environment variables after LoadConfig.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Lighter struct {
			WSURL   string `yaml:"ws_url"`
			RestURL string `yaml:"rest_url"`
			// Markets maps numeric market ids on the wire to display
			// symbols, e.g. "0" -> "ETH-USDC".
			Markets      map[string]string `yaml:"markets"`
			AccountIndex int64             `yaml:"account_index"`
			APIKeyIndex  int64             `yaml:"api_key_index"`
		} `yaml:"lighter"`
	} `yaml:"api"`

	Attribution struct {
		CaptureTTLMS  int `yaml:"capture_ttl_ms"`
		MergeWindowMS int `yaml:"merge_window_ms"`
	} `yaml:"attribution"`

	Monitor struct {
		Enabled     bool              `yaml:"enabled"`
		IntervalSec int               `yaml:"interval_sec"`
		USDSizes    []decimal.Decimal `yaml:"usd_sizes"`
	} `yaml:"monitor"`

	Notify struct {
		WebhookURL    string          `yaml:"webhook_url"`
		CostThreshold decimal.Decimal `yaml:"cost_threshold"`
	} `yaml:"notify"`

	Storage struct {
		HistoryDays int `yaml:"history_days"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
		// Zero means the built-in rotation defaults.
		MaxSizeMB  int `yaml:"max_size_mb"`
		MaxBackups int `yaml:"max_backups"`
		MaxAgeDays int `yaml:"max_age_days"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies
// environment overrides, then validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.API.Lighter.WSURL == "" || (!hasPrefix(c.API.Lighter.WSURL, "ws://") && !hasPrefix(c.API.Lighter.WSURL, "wss://")) {
		return fmt.Errorf("invalid Lighter WS URL: %s", c.API.Lighter.WSURL)
	}
	if len(c.API.Lighter.Markets) == 0 {
		return fmt.Errorf("at least one market is required")
	}
	for id := range c.API.Lighter.Markets {
		if !isNumericID(id) {
			return fmt.Errorf("%w: %q", domain.ErrInvalidMarket, id)
		}
	}
	if c.Attribution.CaptureTTLMS < 0 {
		return fmt.Errorf("capture TTL must not be negative")
	}
	if c.Attribution.MergeWindowMS < 0 {
		return fmt.Errorf("merge window must not be negative")
	}
	if c.Monitor.Enabled && c.Monitor.IntervalSec <= 0 {
		return fmt.Errorf("monitor interval must be positive")
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// isNumericID reports whether a market key is a decimal wire id.
func isNumericID(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// overrideWithEnv replaces config values when environment variables exist.
func overrideWithEnv(cfg *Config) {
	if idx := os.Getenv("LIGHTER_ACCOUNT_INDEX"); idx != "" {
		if v, err := strconv.ParseInt(idx, 10, 64); err == nil {
			cfg.API.Lighter.AccountIndex = v
		}
	}
	if hook := os.Getenv("LIGHTER_WEBHOOK_URL"); hook != "" {
		cfg.Notify.WebhookURL = hook
	}
}

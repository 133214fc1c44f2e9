// Package infra holds the operational plumbing: configuration, logging,
// websocket transport, backoff, circuit breaking, and the clock.
package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration. Secrets can be
// overridden through environment variables after the file is parsed.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode    string  `yaml:"mode"` // live | paper
		Symbol  string  `yaml:"symbol"`
		Deposit float64 `yaml:"deposit"` // quote asset
	} `yaml:"trading"`

	API struct {
		MEXC struct {
			RestURL   string `yaml:"rest_url"`
			WSURL     string `yaml:"ws_url"`
			APIKey    string `yaml:"api_key"`
			SecretKey string `yaml:"secret_key"`
		} `yaml:"mexc"`
	} `yaml:"api"`

	Engine struct {
		InboxSize int `yaml:"inbox_size"`

		Detector struct {
			ATRPeriod    int   `yaml:"atr_period"`
			ZScorePeriod int   `yaml:"zscore_period"`
			VWAPWindowMs int64 `yaml:"vwap_window_ms"`
			TFIWindowMs  int64 `yaml:"tfi_window_ms"`
			OBILevels    int   `yaml:"obi_levels"`
			MinCandles   int   `yaml:"min_candles"`
		} `yaml:"detector"`

		Lifecycle struct {
			TTLSec               int     `yaml:"ttl_sec"`
			RefreshSec           int     `yaml:"refresh_sec"`
			DeltaTicksForReplace int     `yaml:"delta_ticks_for_replace"`
			RecenteringTrigger   float64 `yaml:"recentering_trigger"`
			NoFillWatchdogMin    int     `yaml:"no_fill_watchdog_min"`
			MinSpreadTicks       int     `yaml:"min_spread_ticks"`
			StalenessMs          int64   `yaml:"staleness_ms"`
			CancelRatePerMin     int     `yaml:"cancel_rate_per_min"`
		} `yaml:"lifecycle"`

		Strategy struct {
			Policy          string  `yaml:"policy"`
			OffsetCoeff     float64 `yaml:"offset_coeff"`
			StepCoeff       float64 `yaml:"step_coeff"`
			Levels          int     `yaml:"levels"`
			BaseSize        float64 `yaml:"base_size"`
			SizeRatio       float64 `yaml:"size_ratio"`
			SkewAlpha       float64 `yaml:"skew_alpha"`
			MaxInventoryPct float64 `yaml:"max_inventory_pct"`
		} `yaml:"strategy"`
	} `yaml:"engine"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text | json
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
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

// Validate checks the top-level configuration. Engine component configs are
// additionally validated by their own constructors.
func (c *Config) Validate() error {
	switch c.Trading.Mode {
	case "live", "paper":
	default:
		return fmt.Errorf("trading mode must be live or paper, got %q", c.Trading.Mode)
	}
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading symbol is required")
	}
	if c.Trading.Deposit <= 0 {
		return fmt.Errorf("deposit must be positive, got %v", c.Trading.Deposit)
	}
	if c.API.MEXC.WSURL != "" && !strings.HasPrefix(c.API.MEXC.WSURL, "ws://") && !strings.HasPrefix(c.API.MEXC.WSURL, "wss://") {
		return fmt.Errorf("invalid MEXC WS URL: %s", c.API.MEXC.WSURL)
	}
	if c.Trading.Mode == "live" && (c.API.MEXC.APIKey == "" || c.API.MEXC.SecretKey == "") {
		return fmt.Errorf("live mode requires MEXC API credentials")
	}
	if c.Engine.InboxSize <= 0 {
		return fmt.Errorf("inbox size must be positive, got %d", c.Engine.InboxSize)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// overrideWithEnv lets environment variables take precedence over file
// values for credentials.
func overrideWithEnv(cfg *Config) {
	if cfg.API.MEXC.SecretKey != "" {
		fmt.Fprintln(os.Stderr, "warning: API secret found in config file; prefer MEXC_API_KEY / MEXC_SECRET_KEY env vars")
	}
	if key := os.Getenv("MEXC_API_KEY"); key != "" {
		cfg.API.MEXC.APIKey = key
	}
	if secret := os.Getenv("MEXC_SECRET_KEY"); secret != "" {
		cfg.API.MEXC.SecretKey = secret
	}
}

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/stockscope/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `toml:"environment" yaml:"environment" validate:"oneof=development production test"`
	Logging      LoggingConfig      `toml:"logging" yaml:"logging"`
	Availability AvailabilityConfig `toml:"availability" yaml:"availability"`
	Regions      []RegionConfig     `toml:"regions" yaml:"regions" validate:"required,min=1,unique=Code,dive"`
	Crawler      CrawlerConfig      `toml:"crawler" yaml:"crawler"`
	Storage      StorageConfig      `toml:"storage" yaml:"storage"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output" yaml:"output" validate:"dive,oneof=stdout console file"` // "stdout", "file"
	TimeFormat string   `toml:"time_format" yaml:"time_format"`
	File       string   `toml:"file" yaml:"file"` // log file name, relative to the executable's logs dir
}

// AvailabilityConfig controls report caching and timeouts. Durations use
// Go duration syntax ("30m", "45s").
type AvailabilityConfig struct {
	CacheTTL      string           `toml:"cache_ttl" yaml:"cache_ttl" validate:"required"`
	ReportTimeout string           `toml:"report_timeout" yaml:"report_timeout"` // "0" or empty disables the timeout
	MaxCacheItems int              `toml:"max_cache_items" yaml:"max_cache_items" validate:"min=0"`
	PruneSchedule string           `toml:"prune_schedule" yaml:"prune_schedule"` // seconds-enabled cron, empty disables background prune
	HomeMarket    HomeMarketConfig `toml:"home_market" yaml:"home_market"`
}

// HomeMarketConfig is the market without its own storefront, always shown as unavailable.
type HomeMarketConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Code    string `toml:"code" yaml:"code" validate:"required_if=Enabled true"`
	Label   string `toml:"label" yaml:"label"`
	Flag    string `toml:"flag" yaml:"flag"`
}

type RegionConfig struct {
	Code     string `toml:"code" yaml:"code" validate:"required"`
	BaseURL  string `toml:"base_url" yaml:"base_url" validate:"required,url"`
	Currency string `toml:"currency" yaml:"currency"`
	Label    string `toml:"label" yaml:"label"`
	Flag     string `toml:"flag" yaml:"flag"`
}

// CrawlerConfig configures the storefront page fetcher
type CrawlerConfig struct {
	UserAgent          string  `toml:"user_agent" yaml:"user_agent"`
	RequestTimeout     string  `toml:"request_timeout" yaml:"request_timeout"`
	RequestsPerSecond  float64 `toml:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"` // per host, 0 disables limiting
	Burst              int     `toml:"burst" yaml:"burst" validate:"min=0"`
	MaxBodySize        int64   `toml:"max_body_size" yaml:"max_body_size" validate:"min=0"`
	MaxAttempts        int     `toml:"max_attempts" yaml:"max_attempts" validate:"min=1"`
	EnableJavaScript   bool    `toml:"enable_javascript" yaml:"enable_javascript"` // render pages with headless Chrome
	JavaScriptWaitTime string  `toml:"javascript_wait_time" yaml:"javascript_wait_time"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger" yaml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`                                // persist reports across restarts
	Path           string `toml:"path" yaml:"path" validate:"required_without=InMemory"` // Database directory path
	InMemory       bool   `toml:"in_memory" yaml:"in_memory"`                            // keep the database in RAM only
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"`              // Delete database on startup for clean test runs
}

func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
			File:       "stockscope.log",
		},
		Availability: AvailabilityConfig{
			CacheTTL:      "30m",
			ReportTimeout: "45s",
			MaxCacheItems: 500,
			PruneSchedule: "0 */10 * * * *",
			HomeMarket: HomeMarketConfig{
				Enabled: true,
				Code:    "ua",
				Label:   "Ukraine",
				Flag:    "🇺🇦",
			},
		},
		Regions: []RegionConfig{
			{Code: "us", BaseURL: "https://www.youngla.com", Currency: "USD", Label: "US", Flag: "🇺🇸"},
			{Code: "eu", BaseURL: "https://eu.youngla.com", Currency: "EUR", Label: "EU", Flag: "🇪🇺"},
			{Code: "uk", BaseURL: "https://uk.youngla.com", Currency: "GBP", Label: "UK", Flag: "🇬🇧"},
		},
		Crawler: CrawlerConfig{
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout:     "20s",
			RequestsPerSecond:  2,
			Burst:              2,
			MaxBodySize:        10 * 1024 * 1024,
			MaxAttempts:        3,
			EnableJavaScript:   false,
			JavaScriptWaitTime: "3s",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled: false,
				Path:    "./data/reports",
			},
		},
	}
}

// LoadFromFiles loads configuration with priority default -> files -> env.
// Later files override earlier ones. Files ending in .yaml or .yml are read as
// YAML, everything else as TOML. A file that declares regions replaces the
// region list instead of merging into it.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		regions := config.Regions
		config.Regions = nil

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}

		if len(config.Regions) == 0 {
			config.Regions = regions
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKSCOPE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Logging configuration
	if level := os.Getenv("STOCKSCOPE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("STOCKSCOPE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Availability configuration
	if ttl := os.Getenv("STOCKSCOPE_CACHE_TTL"); ttl != "" {
		config.Availability.CacheTTL = ttl
	}
	if timeout := os.Getenv("STOCKSCOPE_REPORT_TIMEOUT"); timeout != "" {
		config.Availability.ReportTimeout = timeout
	}
	if maxItems := os.Getenv("STOCKSCOPE_MAX_CACHE_ITEMS"); maxItems != "" {
		if n, err := strconv.Atoi(maxItems); err == nil {
			config.Availability.MaxCacheItems = n
		}
	}
	if schedule, ok := os.LookupEnv("STOCKSCOPE_PRUNE_SCHEDULE"); ok {
		config.Availability.PruneSchedule = schedule
	}

	// Crawler configuration
	if ua := os.Getenv("STOCKSCOPE_USER_AGENT"); ua != "" {
		config.Crawler.UserAgent = ua
	}
	if timeout := os.Getenv("STOCKSCOPE_REQUEST_TIMEOUT"); timeout != "" {
		config.Crawler.RequestTimeout = timeout
	}
	if rps := os.Getenv("STOCKSCOPE_REQUESTS_PER_SECOND"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			config.Crawler.RequestsPerSecond = v
		}
	}
	if js := os.Getenv("STOCKSCOPE_ENABLE_JAVASCRIPT"); js != "" {
		if v, err := strconv.ParseBool(js); err == nil {
			config.Crawler.EnableJavaScript = v
		}
	}

	// Storage configuration
	if enabled := os.Getenv("STOCKSCOPE_BADGER_ENABLED"); enabled != "" {
		if v, err := strconv.ParseBool(enabled); err == nil {
			config.Storage.Badger.Enabled = v
		}
	}
	if badgerPath := os.Getenv("STOCKSCOPE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
}

// ApplyFlagOverrides applies command-line flags, which have highest priority.
func ApplyFlagOverrides(config *Config, logLevel string, javascript bool) {
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	if javascript {
		config.Crawler.EnableJavaScript = true
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints, then duration and cron fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	durations := map[string]string{
		"availability.cache_ttl":       c.Availability.CacheTTL,
		"availability.report_timeout":  c.Availability.ReportTimeout,
		"crawler.request_timeout":      c.Crawler.RequestTimeout,
		"crawler.javascript_wait_time": c.Crawler.JavaScriptWaitTime,
	}
	for name, value := range durations {
		if _, err := ParseDuration(value); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}

	if schedule := c.Availability.PruneSchedule; schedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(schedule); err != nil {
			return fmt.Errorf("invalid config: availability.prune_schedule: %w", err)
		}
	}

	if _, err := models.NewRegionSet(c.RegionModels()); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseDuration parses Go duration syntax. Empty and "0" mean zero.
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	return d, nil
}

func mustDuration(value string) time.Duration {
	d, _ := ParseDuration(value)
	return d
}

func (a AvailabilityConfig) CacheTTLDuration() time.Duration      { return mustDuration(a.CacheTTL) }
func (a AvailabilityConfig) ReportTimeoutDuration() time.Duration { return mustDuration(a.ReportTimeout) }
func (c CrawlerConfig) RequestTimeoutDuration() time.Duration     { return mustDuration(c.RequestTimeout) }
func (c CrawlerConfig) JavaScriptWaitDuration() time.Duration     { return mustDuration(c.JavaScriptWaitTime) }

// RegionModels converts the configured regions in declaration order.
func (c *Config) RegionModels() []models.Region {
	regions := make([]models.Region, len(c.Regions))
	for i, r := range c.Regions {
		regions[i] = models.Region{
			Code:     r.Code,
			BaseURL:  r.BaseURL,
			Currency: r.Currency,
			Label:    r.Label,
			Flag:     r.Flag,
		}
	}
	return regions
}

func (c *Config) HomeMarketModel() models.HomeMarket {
	h := c.Availability.HomeMarket
	return models.HomeMarket{Code: h.Code, Label: h.Label, Flag: h.Flag, Enabled: h.Enabled}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Preflight PreflightConfig `mapstructure:"preflight"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                 int     `mapstructure:"port"`
	RateLimitRPS         float64 `mapstructure:"rate_limit_rps"`
	RateBurst            int     `mapstructure:"rate_burst"`
	MaxConcurrentScrapes int     `mapstructure:"max_concurrent_scrapes"`
	CaptchaTripThreshold int     `mapstructure:"captcha_trip_threshold"`
	CaptchaCooldownSec   int     `mapstructure:"captcha_cooldown_seconds"`
	RequestTimeoutSec    int     `mapstructure:"request_timeout_seconds"`
}

// ScraperConfig governs browser sessions and the scrape pipeline.
type ScraperConfig struct {
	UserAgent           string `mapstructure:"user_agent"`
	Headless            bool   `mapstructure:"headless"`
	Sandbox             bool   `mapstructure:"sandbox"`
	NavTimeoutSec       int    `mapstructure:"nav_timeout_seconds"`
	StabilizeTimeoutSec int    `mapstructure:"stabilize_timeout_seconds"`
	DelayMinMs          int    `mapstructure:"delay_min_ms"`
	DelayMaxMs          int    `mapstructure:"delay_max_ms"`
	ProfilePath         string `mapstructure:"profile_path"`
	TakeScreenshot      bool   `mapstructure:"take_screenshot"`
}

// PreflightConfig toggles pre-browser target checks.
type PreflightConfig struct {
	RespectRobots  bool `mapstructure:"respect_robots"`
	Probe          bool `mapstructure:"probe"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// ArtifactsConfig selects where screenshots are persisted.
type ArtifactsConfig struct {
	// Provider is one of "local", "gcs", or "noop".
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// DBConfig controls access to the relational database. An empty DSN
// disables persistence entirely.
type DBConfig struct {
	DSN            string `mapstructure:"dsn"`
	ScrapesTable   string `mapstructure:"scrapes_table"`
	ListingsTable  string `mapstructure:"listings_table"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MinConns       int32  `mapstructure:"min_conns"`
	MaxConnLifeSec int    `mapstructure:"max_conn_life_seconds"`
}

// PubSubConfig holds metadata for publish-subscribe notifications. An
// empty project disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 1.0)
	v.SetDefault("server.rate_burst", 3)
	v.SetDefault("server.max_concurrent_scrapes", 2)
	v.SetDefault("server.captcha_trip_threshold", 3)
	v.SetDefault("server.captcha_cooldown_seconds", 600)
	v.SetDefault("server.request_timeout_seconds", 90)
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.sandbox", false)
	v.SetDefault("scraper.nav_timeout_seconds", 30)
	v.SetDefault("scraper.stabilize_timeout_seconds", 8)
	v.SetDefault("scraper.delay_min_ms", 400)
	v.SetDefault("scraper.delay_max_ms", 900)
	v.SetDefault("scraper.take_screenshot", false)
	v.SetDefault("preflight.respect_robots", true)
	v.SetDefault("preflight.probe", false)
	v.SetDefault("preflight.timeout_seconds", 10)
	v.SetDefault("artifacts.provider", "local")
	v.SetDefault("artifacts.base_dir", "screenshots")
	v.SetDefault("artifacts.gcs_prefix", "screenshots/")
	v.SetDefault("db.scrapes_table", "scrapes")
	v.SetDefault("db.listings_table", "listings")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.MaxConcurrentScrapes <= 0 {
		return fmt.Errorf("server.max_concurrent_scrapes must be > 0")
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("server.rate_limit_rps must be > 0")
	}
	if c.Scraper.NavTimeoutSec <= 0 {
		return fmt.Errorf("scraper.nav_timeout_seconds must be > 0")
	}
	if c.Scraper.DelayMinMs > c.Scraper.DelayMaxMs {
		return fmt.Errorf("scraper.delay_min_ms must be <= scraper.delay_max_ms")
	}
	switch c.Artifacts.Provider {
	case "local", "gcs", "noop":
	default:
		return fmt.Errorf("artifacts.provider must be local, gcs, or noop")
	}
	if c.Artifacts.Provider == "gcs" && c.Artifacts.GCSBucket == "" {
		return fmt.Errorf("artifacts.gcs_bucket must be set for the gcs provider")
	}
	if c.PubSub.ProjectID != "" && c.PubSub.Topic == "" {
		return fmt.Errorf("pubsub.topic must be set when pubsub.project_id is set")
	}
	return nil
}

// NavTimeout converts the configured seconds into a duration.
func (c ScraperConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// StabilizeTimeout converts the configured seconds into a duration.
func (c ScraperConfig) StabilizeTimeout() time.Duration {
	return time.Duration(c.StabilizeTimeoutSec) * time.Second
}

// DelayBounds returns the politeness delay window.
func (c ScraperConfig) DelayBounds() (time.Duration, time.Duration) {
	return time.Duration(c.DelayMinMs) * time.Millisecond,
		time.Duration(c.DelayMaxMs) * time.Millisecond
}

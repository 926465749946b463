// Package config loads and validates link-check configuration via Viper.
package config

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LINKCHECK_CRAWLER_CONCURRENCY.
const EnvPrefix = "LINKCHECK"

// DefaultConcurrency is the global fetch ceiling when none is configured.
const DefaultConcurrency = 32

// Config captures every configuration knob.
type Config struct {
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// CrawlerConfig governs fetch fan-out.
type CrawlerConfig struct {
	Concurrency  int    `mapstructure:"concurrency"`
	UserAgent    string `mapstructure:"user_agent"`
	MaxBodyBytes int    `mapstructure:"max_body_bytes"`
}

// HTTPConfig configures the HTTP client.
type HTTPConfig struct {
	// TimeoutSeconds bounds each request; 0 disables the timeout.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the optional rendered-title fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// LoggingConfig toggles zap development features. Level defaults to "error"
// so stderr carries only diagnostics unless asked otherwise.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ServerConfig controls the optional status server. An empty address
// disables it.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// MetricsConfig controls batch metric export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// StorageConfig sets where finished reports are archived. GCSBucket takes
// precedence over LocalDir; with neither set nothing is archived.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls result persistence to Postgres. An empty DSN disables it.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	RunsTable    string `mapstructure:"runs_table"`
	ResultsTable string `mapstructure:"results_table"`
	MaxConns     int    `mapstructure:"max_conns"`
}

// PubSubConfig holds the run-completion notification target.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from defaults, the optional file at path, environment
// variables, and finally overrides (keyed like "crawler.concurrency").
func Load(path string, overrides map[string]any) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	for key, value := range overrides {
		v.Set(key, value)
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
	v.SetDefault("crawler.concurrency", DefaultConcurrency)
	v.SetDefault("crawler.user_agent", "linkcheck/1.0 (+https://github.com/JakeFAU/linkcheck)")
	v.SetDefault("crawler.max_body_bytes", 10*1024*1024)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 20)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "error")
	v.SetDefault("server.listen_addr", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.prefix", "reports")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.runs_table", "link_runs")
	v.SetDefault("db.results_table", "link_results")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.MaxBodyBytes < 0 {
		return fmt.Errorf("crawler.max_body_bytes must be >= 0")
	}
	if c.HTTP.TimeoutSeconds < 0 {
		return fmt.Errorf("http.timeout_seconds must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.DB.DSN != "" {
		if !identPattern.MatchString(c.DB.RunsTable) {
			return fmt.Errorf("db.runs_table %q is not a valid identifier", c.DB.RunsTable)
		}
		if !identPattern.MatchString(c.DB.ResultsTable) {
			return fmt.Errorf("db.results_table %q is not a valid identifier", c.DB.ResultsTable)
		}
		if c.DB.MaxConns <= 0 || c.DB.MaxConns > math.MaxInt32 {
			return fmt.Errorf("db.max_conns must be between 1 and %d", math.MaxInt32)
		}
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}

// RequestTimeout converts http.timeout_seconds to a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// PoolMaxConns returns db.max_conns as the pgx pool size, clamped to the
// int32 range.
func (c Config) PoolMaxConns() int32 {
	return int32(max(0, min(c.DB.MaxConns, math.MaxInt32))) //nolint:gosec // bounded by min/max
}

// NavTimeout converts headless.nav_timeout_seconds to a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// Package config loads and validates the engine configuration.
//
// DESIGN: Configuration comes from a YAML file with ${VAR:-default}
// environment expansion, then a small set of environment overrides for the
// knobs operators flip in deployment (webhook URL, log path, maintenance
// mode). Everything is validated before the engine starts consuming the log:
// an invalid configuration is fatal at startup, never mid-run.
//
// FILES:
//   - config.go: Config struct, Load(), Validate(), env expansion
//   - reload.go: live re-reading of mutable settings (maintenance mode)
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for poolwatch.
type Config struct {
	Log        LogConfig        `yaml:"log"`        // tailed log source
	Alerts     AlertsConfig     `yaml:"alerts"`     // thresholds, window, cooldown
	Webhook    WebhookConfig    `yaml:"webhook"`    // outbound notification endpoint
	History    HistoryConfig    `yaml:"history"`    // alert audit database
	Ops        OpsConfig        `yaml:"ops"`        // health/status/metrics server
	Monitoring MonitoringConfig `yaml:"monitoring"` // the engine's own logging
	Source     SourceConfig     `yaml:"source"`     // source failure budget
}

// LogConfig describes the tailed access log.
type LogConfig struct {
	Path         string   `yaml:"path"`
	FromStart    bool     `yaml:"from_start"`    // read existing content instead of seeking to the end
	PollInterval Duration `yaml:"poll_interval"` // how often to look for new lines
	SkipRequests []string `yaml:"skip_requests"` // request substrings to ignore (health checks)
}

// AlertsConfig holds alerting thresholds and dedup settings.
type AlertsConfig struct {
	ErrorRateThreshold float64  `yaml:"error_rate_threshold"` // percent; strictly greater fires
	WindowSize         int      `yaml:"window_size"`
	MinSamples         int      `yaml:"min_samples"` // records required before the rate is meaningful
	Cooldown           Duration `yaml:"cooldown"`    // minimum spacing between repeats of one kind
	MaintenanceMode    bool     `yaml:"maintenance_mode"`
}

// WebhookConfig describes the notification endpoint.
type WebhookConfig struct {
	URL         string   `yaml:"url"`
	Timeout     Duration `yaml:"timeout"`
	MaxAttempts int      `yaml:"max_attempts"`
	DryRun      bool     `yaml:"dry_run"` // log alerts instead of POSTing them
}

// HistoryConfig configures the alert audit database. Empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// OpsConfig configures the operational HTTP server.
type OpsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// MonitoringConfig configures the engine's own logging.
type MonitoringConfig struct {
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // json, console
	LogOutput string `yaml:"log_output"` // stdout, stderr, or a file path
}

// SourceConfig bounds how long the engine tolerates an unreadable source.
type SourceConfig struct {
	MaxFailures int `yaml:"max_failures"` // consecutive failures before fatal exit
}

// Duration is a time.Duration that unmarshals from strings like "5m" or "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Pattern matches ${VAR:-default} or ${VAR}.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults expands environment variables with support for
// ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) > 2 {
			return parts[2]
		}
		return ""
	})
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes, applies env
// expansion, overrides and defaults, and validates the result.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides lets deployment environment variables win over the file
// for the settings the original deployment configures purely by env.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		c.Webhook.URL = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Log.Path = v
	}
	if v := os.Getenv("MAINTENANCE_MODE"); v != "" {
		c.Alerts.MaintenanceMode = strings.EqualFold(v, "true")
	}
}

func (c *Config) applyDefaults() {
	if c.Alerts.ErrorRateThreshold == 0 {
		c.Alerts.ErrorRateThreshold = 2.0
	}
	if c.Alerts.WindowSize == 0 {
		c.Alerts.WindowSize = 200
	}
	if c.Alerts.MinSamples == 0 {
		c.Alerts.MinSamples = 10
	}
	if c.Alerts.Cooldown == 0 {
		c.Alerts.Cooldown = Duration(5 * time.Minute)
	}
	if c.Log.PollInterval == 0 {
		c.Log.PollInterval = Duration(250 * time.Millisecond)
	}
	if c.Log.SkipRequests == nil {
		c.Log.SkipRequests = []string{"nginx-health", "healthz"}
	}
	if c.Webhook.Timeout == 0 {
		c.Webhook.Timeout = Duration(5 * time.Second)
	}
	if c.Webhook.MaxAttempts == 0 {
		c.Webhook.MaxAttempts = 3
	}
	if c.Source.MaxFailures == 0 {
		c.Source.MaxFailures = 30
	}
	if c.Ops.Port == 0 {
		c.Ops.Port = 9190
	}
	if c.Monitoring.LogLevel == "" {
		c.Monitoring.LogLevel = "info"
	}
	if c.Monitoring.LogFormat == "" {
		c.Monitoring.LogFormat = "console"
	}
}

// Validate checks that the configuration can actually drive the engine.
func (c *Config) Validate() error {
	if c.Log.Path == "" {
		return fmt.Errorf("log.path is required")
	}
	if c.Webhook.URL == "" && !c.Webhook.DryRun {
		return fmt.Errorf("webhook.url is required unless webhook.dry_run is set")
	}
	if c.Alerts.WindowSize < 1 {
		return fmt.Errorf("alerts.window_size must be at least 1, got %d", c.Alerts.WindowSize)
	}
	if c.Alerts.ErrorRateThreshold < 0 || c.Alerts.ErrorRateThreshold > 100 {
		return fmt.Errorf("alerts.error_rate_threshold must be within [0, 100], got %g", c.Alerts.ErrorRateThreshold)
	}
	if c.Alerts.MinSamples < 0 {
		return fmt.Errorf("alerts.min_samples must not be negative, got %d", c.Alerts.MinSamples)
	}
	if c.Alerts.Cooldown < 0 {
		return fmt.Errorf("alerts.cooldown must not be negative")
	}
	if c.Webhook.MaxAttempts < 1 {
		return fmt.Errorf("webhook.max_attempts must be at least 1, got %d", c.Webhook.MaxAttempts)
	}
	if c.Ops.Enabled && (c.Ops.Port < 1 || c.Ops.Port > 65535) {
		return fmt.Errorf("ops.port must be a valid port, got %d", c.Ops.Port)
	}
	return nil
}

// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	App         AppConfig         `yaml:"app"`
	Bridge      BridgeConfig      `yaml:"bridge"`
	Listener    ListenerConfig    `yaml:"listener"`
	SLTP        SLTPConfig        `yaml:"sltp"`
	Journal     JournalConfig     `yaml:"journal"`
	Alerting    AlertingConfig    `yaml:"alerting"`
	System      SystemConfig      `yaml:"system"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name           string  `yaml:"name"`            // Used in the ping liveness response
	InitialBalance float64 `yaml:"initial_balance"` // Session starting balance reported to the relay
}

// BridgeConfig contains settings for the HTTP relay between venues
type BridgeConfig struct {
	URL                  string `yaml:"url"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	HealthTimeoutSeconds int    `yaml:"health_timeout_seconds"`
}

// Timeout returns the request timeout for best-effort pushes.
func (b BridgeConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// HealthTimeout returns the timeout for connectivity probes.
func (b BridgeConfig) HealthTimeout() time.Duration {
	return time.Duration(b.HealthTimeoutSeconds) * time.Second
}

// ListenerConfig contains settings for the inbound notification listener
type ListenerConfig struct {
	Host      string  `yaml:"host"`
	Port      int     `yaml:"port"`
	RateLimit float64 `yaml:"rate_limit"` // Notifications per second, 0 disables limiting
	RateBurst int     `yaml:"rate_burst"`
}

// Addr returns the listen address in host:port form.
func (l ListenerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// SLTPConfig contains settings for protective-order removal after entry fills
type SLTPConfig struct {
	Enabled bool `yaml:"enabled"`
	DelayMs int  `yaml:"delay_ms"`
}

// Delay returns the removal delay as a duration.
func (s SLTPConfig) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

// JournalConfig contains settings for the SQLite trade-event journal
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AlertingConfig contains settings for operational alert delivery
type AlertingConfig struct {
	Enabled              bool   `yaml:"enabled"`
	WebhookURL           string `yaml:"webhook_url"`
	HealthIntervalSecond int    `yaml:"health_interval_seconds"`
}

// HealthInterval returns how often component health is re-evaluated.
func (a AlertingConfig) HealthInterval() time.Duration {
	return time.Duration(a.HealthIntervalSecond) * time.Second
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`
}

// ConcurrencyConfig contains worker pool settings
type ConcurrencyConfig struct {
	NotifyPoolSize   int `yaml:"notify_pool_size"`
	NotifyPoolBuffer int `yaml:"notify_pool_buffer"`
	ExecQueueSize    int `yaml:"exec_queue_size"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandedData), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errs []string

	if err := c.validateAppConfig(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateBridgeConfig(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateListenerConfig(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateSLTPConfig(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateJournalConfig(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateAlertingConfig(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateSystemConfig(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

func (c *Config) validateAppConfig() error {
	if c.App.Name == "" {
		return ValidationError{
			Field:   "app.name",
			Message: "application name is required",
		}
	}
	if strings.ContainsAny(c.App.Name, " \t") {
		return ValidationError{
			Field:   "app.name",
			Value:   c.App.Name,
			Message: "name must not contain whitespace (it is embedded in the ping status)",
		}
	}
	return nil
}

func (c *Config) validateBridgeConfig() error {
	if c.Bridge.URL == "" {
		return ValidationError{
			Field:   "bridge.url",
			Message: "bridge URL is required",
		}
	}
	if !strings.HasPrefix(c.Bridge.URL, "http://") && !strings.HasPrefix(c.Bridge.URL, "https://") {
		return ValidationError{
			Field:   "bridge.url",
			Value:   c.Bridge.URL,
			Message: "bridge URL must start with http:// or https://",
		}
	}
	if c.Bridge.TimeoutSeconds <= 0 {
		return ValidationError{
			Field:   "bridge.timeout_seconds",
			Value:   c.Bridge.TimeoutSeconds,
			Message: "timeout must be positive",
		}
	}
	if c.Bridge.HealthTimeoutSeconds <= 0 {
		return ValidationError{
			Field:   "bridge.health_timeout_seconds",
			Value:   c.Bridge.HealthTimeoutSeconds,
			Message: "health timeout must be positive",
		}
	}
	return nil
}

func (c *Config) validateListenerConfig() error {
	if c.Listener.Port < 1 || c.Listener.Port > 65535 {
		return ValidationError{
			Field:   "listener.port",
			Value:   c.Listener.Port,
			Message: "port must be between 1 and 65535",
		}
	}
	if c.Listener.RateLimit < 0 {
		return ValidationError{
			Field:   "listener.rate_limit",
			Value:   c.Listener.RateLimit,
			Message: "rate limit must not be negative",
		}
	}
	return nil
}

func (c *Config) validateSLTPConfig() error {
	if c.SLTP.DelayMs < 0 || c.SLTP.DelayMs > 600000 {
		return ValidationError{
			Field:   "sltp.delay_ms",
			Value:   c.SLTP.DelayMs,
			Message: "delay must be between 0 and 600000 milliseconds",
		}
	}
	return nil
}

func (c *Config) validateJournalConfig() error {
	if c.Journal.Enabled && c.Journal.Path == "" {
		return ValidationError{
			Field:   "journal.path",
			Message: "journal path is required when the journal is enabled",
		}
	}
	return nil
}

func (c *Config) validateAlertingConfig() error {
	if c.Alerting.Enabled && c.Alerting.WebhookURL == "" {
		return ValidationError{
			Field:   "alerting.webhook_url",
			Message: "webhook URL is required when alerting is enabled",
		}
	}
	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

// Helper functions

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns a configuration with sane defaults; file values
// overwrite the fields they set.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:           "hedgesync",
			InitialBalance: 0,
		},
		Bridge: BridgeConfig{
			URL:                  "http://127.0.0.1:5000",
			TimeoutSeconds:       10,
			HealthTimeoutSeconds: 5,
		},
		Listener: ListenerConfig{
			Host:      "127.0.0.1",
			Port:      8081,
			RateLimit: 50,
			RateBurst: 25,
		},
		SLTP: SLTPConfig{
			Enabled: true,
			DelayMs: 3000,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    "hedgesync.db",
		},
		Alerting: AlertingConfig{
			Enabled:              false,
			HealthIntervalSecond: 30,
		},
		System: SystemConfig{
			LogLevel: "INFO",
		},
		Concurrency: ConcurrencyConfig{
			NotifyPoolSize:   4,
			NotifyPoolBuffer: 256,
			ExecQueueSize:    128,
		},
		Telemetry: TelemetryConfig{
			MetricsPort:   9091,
			EnableMetrics: true,
		},
	}
}

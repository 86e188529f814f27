// Package main provides the V-Momentum-Pro alerting server CLI.
package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Database DatabaseConfig `yaml:"database"`
	GA4      GA4Config      `yaml:"ga4"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Slack    SlackConfig    `yaml:"slack"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address    string `yaml:"address"`     // HTTP listen address (default: :8080)
	CronSecret string `yaml:"cron_secret"` // shared secret for the scheduled run endpoint
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // default: :9090
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // default: data/momentum.db
}

// GA4Config contains Google Analytics Data API settings.
type GA4Config struct {
	CredentialsFile string            `yaml:"credentials_file"` // service-account key path
	Properties      map[string]string `yaml:"properties"`       // site id -> GA4 property id
	Timeout         time.Duration     `yaml:"timeout"`
}

// SMTPConfig contains email delivery settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// AlertsConfig contains alert pipeline settings.
type AlertsConfig struct {
	Sites          []string            `yaml:"sites"`           // defaults to the GA4 property keys
	Recipients     []string            `yaml:"recipients"`      // default notification list
	SiteRecipients map[string][]string `yaml:"site_recipients"` // per-site overrides
	Schedule       string              `yaml:"schedule"`        // cron expression, default hourly
	RunTimeout     time.Duration       `yaml:"run_timeout"`
	RateLimit      RateLimitConfig     `yaml:"rate_limit"`
}

// RateLimitConfig caps notification volume per window.
type RateLimitConfig struct {
	MaxPerWindow int           `yaml:"max_per_window"`
	Window       time.Duration `yaml:"window"`
	Disabled     bool          `yaml:"disabled"`
}

// SlackConfig contains the optional Slack channel settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// LoadConfig loads configuration from a YAML file, then applies
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values and
// environment overrides applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.setDefaults()
	return cfg
}

// applyEnv overrides config fields from the environment. Secrets
// normally arrive this way rather than through the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("MOMENTUM_CRON_SECRET"); v != "" {
		c.Server.CronSecret = v
	}
	if v := os.Getenv("MOMENTUM_GA4_CREDENTIALS_FILE"); v != "" {
		c.GA4.CredentialsFile = v
	}
	if v := os.Getenv("MOMENTUM_SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("MOMENTUM_SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
	if v := os.Getenv("MOMENTUM_SMTP_USER"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("MOMENTUM_SMTP_PASS"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("MOMENTUM_SMTP_FROM"); v != "" {
		c.SMTP.From = v
	}
	if v := os.Getenv("MOMENTUM_ALERT_RECIPIENTS"); v != "" {
		c.Alerts.Recipients = splitList(v)
	}
	if v := os.Getenv("MOMENTUM_SLACK_WEBHOOK"); v != "" {
		c.Slack.WebhookURL = v
	}
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/momentum.db"
	}
	if c.GA4.Timeout == 0 {
		c.GA4.Timeout = 30 * time.Second
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if len(c.Alerts.Sites) == 0 {
		for site := range c.GA4.Properties {
			c.Alerts.Sites = append(c.Alerts.Sites, site)
		}
		sort.Strings(c.Alerts.Sites)
	}
	if c.Alerts.Schedule == "" {
		c.Alerts.Schedule = "0 * * * *"
	}
	if c.Alerts.RunTimeout == 0 {
		c.Alerts.RunTimeout = 5 * time.Minute
	}
	if c.Alerts.RateLimit.MaxPerWindow == 0 {
		c.Alerts.RateLimit.MaxPerWindow = 10
	}
	if c.Alerts.RateLimit.Window == 0 {
		c.Alerts.RateLimit.Window = time.Minute
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if len(c.GA4.Properties) == 0 {
		return fmt.Errorf("ga4.properties is required: map at least one site to a property id")
	}
	for site, property := range c.GA4.Properties {
		if property == "" {
			return fmt.Errorf("ga4.properties[%s] is empty", site)
		}
	}
	for _, site := range c.Alerts.Sites {
		if _, ok := c.GA4.Properties[site]; !ok {
			return fmt.Errorf("alerts.sites contains %q with no ga4.properties entry", site)
		}
	}
	if c.Slack.WebhookURL != "" && !strings.HasPrefix(c.Slack.WebhookURL, "https://") {
		return fmt.Errorf("slack.webhook_url must use HTTPS")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

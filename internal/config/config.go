package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orrn/rawspool/internal/escpos"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Printing PrintingConfig `yaml:"printing"`
	Auth     AuthConfig     `yaml:"auth"`
	Webhooks WebhookConfig  `yaml:"webhooks"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type PrintingConfig struct {
	DefaultPrinter  string `yaml:"default_printer"`
	DocumentLabel   string `yaml:"document_label"`
	CodePage        string `yaml:"code_page"`
	MaxPayloadBytes int64  `yaml:"max_payload_bytes"`
}

type AuthConfig struct {
	Enabled       bool          `yaml:"enabled"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

type WebhookConfig struct {
	URLs        []string      `yaml:"urls"`
	Secret      string        `yaml:"secret"`
	RetryCount  int           `yaml:"retry_count"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout"`
	WorkerCount int           `yaml:"worker_count"`
	QueueSize   int           `yaml:"queue_size"`
}

type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	RetentionDays int           `yaml:"retention_days"`
	Interval      time.Duration `yaml:"interval"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxBodyBytes:    8 << 20,
		},
		Database: DatabaseConfig{
			Path: "./data/rawspool.db",
		},
		Printing: PrintingConfig{
			DefaultPrinter: "POS-80C",
			DocumentLabel:  "Raw Print Job",
			CodePage:       escpos.CodePageUTF8,
		},
		Auth: AuthConfig{
			Enabled:       false,
			TokenDuration: 24 * time.Hour,
		},
		Webhooks: WebhookConfig{
			RetryCount:  3,
			RetryDelay:  5 * time.Second,
			Timeout:     10 * time.Second,
			WorkerCount: 2,
			QueueSize:   100,
		},
		Archive: ArchiveConfig{
			Enabled:       true,
			Path:          "./data/archives",
			RetentionDays: 30,
			Interval:      24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads configPath over the defaults. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func LoadFromEnv() *Config {
	cfg := defaults()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides fields from RAWSPOOL_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("RAWSPOOL_HOST"); v != "" {
		c.Server.Host = v
	}

	if v := os.Getenv("RAWSPOOL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if v := os.Getenv("RAWSPOOL_DB_PATH"); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv("RAWSPOOL_PRINTER"); v != "" {
		c.Printing.DefaultPrinter = v
	}

	if v := os.Getenv("RAWSPOOL_CODE_PAGE"); v != "" {
		c.Printing.CodePage = v
	}

	if v := os.Getenv("RAWSPOOL_AUTH_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Auth.Enabled = enabled
		}
	}

	if v := os.Getenv("RAWSPOOL_WEBHOOK_URLS"); v != "" {
		c.Webhooks.URLs = strings.Split(v, ",")
	}

	if v := os.Getenv("RAWSPOOL_WEBHOOK_SECRET"); v != "" {
		c.Webhooks.Secret = v
	}

	if v := os.Getenv("RAWSPOOL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("RAWSPOOL_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 0 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server shutdown timeout must be non-negative")
	}

	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server max body bytes must be non-negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if strings.TrimSpace(c.Printing.DocumentLabel) == "" {
		return fmt.Errorf("printing document label is required")
	}

	if !escpos.ValidCodePage(c.Printing.CodePage) {
		return fmt.Errorf("invalid code page: %s (valid: utf8, cp437, cp850, cp858, cp866, cp1252)", c.Printing.CodePage)
	}

	if c.Printing.MaxPayloadBytes < 0 {
		return fmt.Errorf("max payload bytes must be non-negative")
	}

	if c.Auth.TokenDuration < 0 {
		return fmt.Errorf("auth token duration must be non-negative")
	}

	for _, u := range c.Webhooks.URLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("invalid webhook url: %q", u)
		}
	}

	if c.Webhooks.RetryCount < 0 {
		return fmt.Errorf("webhook retry count must be non-negative")
	}

	if c.Webhooks.RetryDelay < 0 {
		return fmt.Errorf("webhook retry delay must be non-negative")
	}

	if c.Archive.Enabled && c.Archive.RetentionDays <= 0 {
		return fmt.Errorf("archive retention days must be positive")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
		"text":    true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, console, text)", c.Logging.Format)
	}

	return nil
}

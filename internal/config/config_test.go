package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "POS-80C", cfg.Printing.DefaultPrinter)
	assert.Equal(t, "Raw Print Job", cfg.Printing.DocumentLabel)
	require.NoError(t, cfg.Validate())
}

func TestLoad_OverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rawspool.yaml")
	err := os.WriteFile(path, []byte(`
server:
  port: 9090
  shutdown_timeout: 2s
printing:
  default_printer: "EPSON TM-T20"
  code_page: cp858
webhooks:
  urls: ["http://localhost:9999/hook"]
logging:
  level: debug
  format: console
`), 0o644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "EPSON TM-T20", cfg.Printing.DefaultPrinter)
	assert.Equal(t, "cp858", cfg.Printing.CodePage)
	assert.Equal(t, []string{"http://localhost:9999/hook"}, cfg.Webhooks.URLs)
	assert.Equal(t, "Raw Print Job", cfg.Printing.DocumentLabel)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RAWSPOOL_PORT", "7070")
	t.Setenv("RAWSPOOL_PRINTER", "Kitchen")
	t.Setenv("RAWSPOOL_AUTH_ENABLED", "true")
	t.Setenv("RAWSPOOL_WEBHOOK_URLS", "http://a/hook,https://b/hook")
	t.Setenv("RAWSPOOL_LOG_LEVEL", "warn")

	cfg := LoadFromEnv()
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "Kitchen", cfg.Printing.DefaultPrinter)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, []string{"http://a/hook", "https://b/hook"}, cfg.Webhooks.URLs)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:7070", cfg.Address())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server port"},
		{name: "no db path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database path"},
		{name: "blank label", mutate: func(c *Config) { c.Printing.DocumentLabel = " " }, wantErr: "document label"},
		{name: "bad code page", mutate: func(c *Config) { c.Printing.CodePage = "koi8" }, wantErr: "invalid code page"},
		{name: "negative payload", mutate: func(c *Config) { c.Printing.MaxPayloadBytes = -1 }, wantErr: "max payload"},
		{name: "bad webhook", mutate: func(c *Config) { c.Webhooks.URLs = []string{"ftp://x"} }, wantErr: "invalid webhook url"},
		{name: "bad retention", mutate: func(c *Config) { c.Archive.RetentionDays = 0 }, wantErr: "archive retention days"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "invalid log level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

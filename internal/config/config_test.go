package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	lo, hi := cfg.DelayRange()
	assert.Equal(t, 100*time.Millisecond, lo)
	assert.Equal(t, 2*time.Second, hi)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())
	assert.True(t, cfg.Pipeline.DelayEnabled)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxContentLength)
	assert.ElementsMatch(t, []string{"png", "jpg", "jpeg", "gif"}, cfg.Server.AllowedExtensions)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
pipeline:
  delay_enabled: false
  workers: 4
output:
  dir: out
  write_json: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.Pipeline.DelayEnabled)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.True(t, cfg.Output.WriteJSON)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, "processed_boxes.csv", cfg.Output.CSVFile)
	assert.Equal(t, "2s", cfg.Pipeline.DelayMax)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline: [unclosed"), 0o600))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"BOXPIPE_LOG_LEVEL":     "warn",
		"BOXPIPE_OUTPUT_DIR":    "/tmp/out",
		"BOXPIPE_KAFKA_BROKERS": "a:9092, b:9092,",
		"BOXPIPE_NO_DELAY":      "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Notify.Brokers)
	assert.False(t, cfg.Pipeline.DelayEnabled)

	env["BOXPIPE_NO_DELAY"] = "sometimes"
	assert.Error(t, Default().ApplyEnv(lookup))
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boxpipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  workers: 2\nfetch:\n  timeout: 3s\n"), 0o600))

	env := map[string]string{"BOXPIPE_ADDR": ":8081"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg, err := LoadWithEnv(path, lookup)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout())
	assert.Equal(t, ":8081", cfg.Server.Addr)

	cfg, err = LoadWithEnv("", lookup)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Pipeline.Workers)

	env["BOXPIPE_NO_DELAY"] = "maybe"
	_, err = LoadWithEnv("", lookup)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad duration", func(c *Config) { c.Pipeline.DelayMin = "soon" }, "pipeline.delay_min"},
		{"inverted delay", func(c *Config) { c.Pipeline.DelayMin = "3s" }, "delay_max"},
		{"no workers", func(c *Config) { c.Pipeline.Workers = 0 }, "pipeline.workers"},
		{"zero timeout", func(c *Config) { c.Fetch.Timeout = "0s" }, "fetch.timeout"},
		{"negative thumbnail", func(c *Config) { c.Fetch.ThumbnailWidth = -1 }, "thumbnail_width"},
		{"no csv file", func(c *Config) { c.Output.CSVFile = "" }, "output.csv_file"},
		{"no upload limit", func(c *Config) { c.Server.MaxContentLength = 0 }, "max_content_length"},
		{"no extensions", func(c *Config) { c.Server.AllowedExtensions = nil }, "allowed_extensions"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "boxpipe.log")

	logger, closeFn, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", File: logFile})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger.Info().Msg("hello")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)

	fallback, _, err := NewLogger(LoggingConfig{Level: "loud"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, fallback.GetLevel())
}

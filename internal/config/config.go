// Package config holds the application configuration: defaults, YAML file
// loading, environment overrides and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-box-pipeline/pkg/utils"
)

// Config holds the application configuration
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PipelineConfig controls per-record processing.
type PipelineConfig struct {
	DelayEnabled bool   `yaml:"delay_enabled"`
	DelayMin     string `yaml:"delay_min"` // e.g. "100ms"
	DelayMax     string `yaml:"delay_max"` // e.g. "2s"
	Workers      int    `yaml:"workers"`
}

// FetchConfig controls image fetching.
type FetchConfig struct {
	Timeout        string `yaml:"timeout"`
	ThumbnailWidth int    `yaml:"thumbnail_width"` // 0 keeps the original bytes
	UserAgent      string `yaml:"user_agent"`
}

// OutputConfig names the generated files.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	CSVFile      string `yaml:"csv_file"`
	MarkdownFile string `yaml:"markdown_file"`
	JSONFile     string `yaml:"json_file"`
	WriteJSON    bool   `yaml:"write_json"`
}

// ServerConfig is the state of the interactive front end.
type ServerConfig struct {
	Addr              string   `yaml:"addr"`
	UploadDir         string   `yaml:"upload_dir"`
	MaxContentLength  int64    `yaml:"max_content_length"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// StoreConfig selects the job registry database.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// NotifyConfig enables job completion events. Empty Brokers disables them.
type NotifyConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	File   string `yaml:"file"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DelayEnabled: true,
			DelayMin:     "100ms",
			DelayMax:     "2s",
			Workers:      1,
		},
		Fetch: FetchConfig{
			Timeout:   "10s",
			UserAgent: "go-box-pipeline/1.0",
		},
		Output: OutputConfig{
			Dir:          "output",
			CSVFile:      "processed_boxes.csv",
			MarkdownFile: "box_processing_report.md",
			JSONFile:     "results.json",
		},
		Server: ServerConfig{
			Addr:              ":5000",
			UploadDir:         "uploads",
			MaxContentLength:  16 << 20,
			AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
		},
		Store: StoreConfig{
			DSN: "file::memory:?cache=shared",
		},
		Notify: NotifyConfig{
			Topic: "box-pipeline.jobs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadWithEnv builds the configuration: defaults, then the YAML file at path
// (if path is non-empty), then overrides from lookupEnv. A .env file in the
// working directory is loaded into the process environment first when present.
func LoadWithEnv(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from BOXPIPE_* environment variables.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv("BOXPIPE_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv("BOXPIPE_LOG_FORMAT"); ok && v != "" {
		c.Logging.Format = v
	}
	if v, ok := lookupEnv("BOXPIPE_OUTPUT_DIR"); ok && v != "" {
		c.Output.Dir = v
	}
	if v, ok := lookupEnv("BOXPIPE_UPLOAD_DIR"); ok && v != "" {
		c.Server.UploadDir = v
	}
	if v, ok := lookupEnv("BOXPIPE_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookupEnv("BOXPIPE_DB"); ok && v != "" {
		c.Store.DSN = v
	}
	if v, ok := lookupEnv("BOXPIPE_KAFKA_BROKERS"); ok && v != "" {
		c.Notify.Brokers = splitList(v)
	}
	if v, ok := lookupEnv("BOXPIPE_KAFKA_TOPIC"); ok && v != "" {
		c.Notify.Topic = v
	}
	if v, ok := lookupEnv("BOXPIPE_NO_DELAY"); ok && v != "" {
		noDelay, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BOXPIPE_NO_DELAY %q: %w", v, err)
		}
		c.Pipeline.DelayEnabled = !noDelay
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	minDelay, err := parseDuration("pipeline.delay_min", c.Pipeline.DelayMin)
	if err != nil {
		return err
	}
	maxDelay, err := parseDuration("pipeline.delay_max", c.Pipeline.DelayMax)
	if err != nil {
		return err
	}
	if minDelay < 0 || maxDelay < minDelay {
		return errors.New("pipeline.delay_min must be >= 0 and <= pipeline.delay_max")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}

	timeout, err := parseDuration("fetch.timeout", c.Fetch.Timeout)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		return errors.New("fetch.timeout must be positive")
	}

	if c.Fetch.ThumbnailWidth < 0 {
		return errors.New("fetch.thumbnail_width cannot be negative")
	}

	if c.Output.CSVFile == "" || c.Output.MarkdownFile == "" {
		return errors.New("output.csv_file and output.markdown_file are required")
	}

	if c.Server.MaxContentLength <= 0 {
		return errors.New("server.max_content_length must be positive")
	}

	if len(c.Server.AllowedExtensions) == 0 {
		return errors.New("server.allowed_extensions cannot be empty")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	return nil
}

// DelayRange returns the parsed artificial delay bounds. Call Validate first.
func (c *Config) DelayRange() (time.Duration, time.Duration) {
	lo, _ := time.ParseDuration(c.Pipeline.DelayMin)
	hi, _ := time.ParseDuration(c.Pipeline.DelayMax)
	return lo, hi
}

// FetchTimeout returns the parsed per-fetch timeout, defaulting to 10s.
func (c *Config) FetchTimeout() time.Duration {
	d := utils.ParseDuration(c.Fetch.Timeout, 10*time.Second)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

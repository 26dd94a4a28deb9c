package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/termsheet-validator/constants"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	OCR      OCRConfig      `yaml:"ocr" toml:"ocr"`
	Pipeline PipelineConfig `yaml:"pipeline" toml:"pipeline"`
	Rules    RulesConfig    `yaml:"rules" toml:"rules"`
	Log      LogConfig      `yaml:"log" toml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Watch    WatchConfig    `yaml:"watch" toml:"watch"`
}

// ServerConfig holds HTTP/gRPC settings
type ServerConfig struct {
	HTTPAddr          string   `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr          string   `yaml:"grpc_addr" toml:"grpc_addr"`
	UploadDir         string   `yaml:"upload_dir" toml:"upload_dir"`
	MaxUploadBytes    int64    `yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions" toml:"allowed_extensions"`
	RateLimitRPS      float64  `yaml:"rate_limit_rps" toml:"rate_limit_rps"`
	RateLimitBurst    int      `yaml:"rate_limit_burst" toml:"rate_limit_burst"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// OCRConfig holds external tool settings
type OCRConfig struct {
	Tesseract           string `yaml:"tesseract" toml:"tesseract"`
	Pdftoppm            string `yaml:"pdftoppm" toml:"pdftoppm"`
	TessdataDir         string `yaml:"tessdata_dir" toml:"tessdata_dir"`
	Lang                string `yaml:"lang" toml:"lang"`
	DPI                 int    `yaml:"dpi" toml:"dpi"`
	MaxPages            int    `yaml:"max_pages" toml:"max_pages"`
	PageWorkers         int    `yaml:"page_workers" toml:"page_workers"`
	EnableTSVConfidence bool   `yaml:"tsv_confidence" toml:"tsv_confidence"`
}

// PipelineConfig bounds concurrency and stage time
type PipelineConfig struct {
	Workers      int      `yaml:"workers" toml:"workers"`
	QueueSize    int      `yaml:"queue_size" toml:"queue_size"`
	StageTimeout Duration `yaml:"stage_timeout" toml:"stage_timeout"`
	TaskTimeout  Duration `yaml:"task_timeout" toml:"task_timeout"`
}

// RulesConfig overrides the approved reference data; empty lists keep the built-in ones.
type RulesConfig struct {
	Counterparties []string `yaml:"counterparties" toml:"counterparties"`
	Issuers        []string `yaml:"issuers" toml:"issuers"`
	Products       []string `yaml:"products" toml:"products"`
	GoverningLaws  []string `yaml:"governing_laws" toml:"governing_laws"`
	PrincipalMin   float64  `yaml:"principal_min" toml:"principal_min"`
	PrincipalMax   float64  `yaml:"principal_max" toml:"principal_max"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, text
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

type WatchConfig struct {
	Debounce   Duration `yaml:"debounce" toml:"debounce"`
	SkipHidden bool     `yaml:"skip_hidden" toml:"skip_hidden"`
}

// Duration decodes "60s"-style strings from YAML, TOML and env.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:          ":2000",
			GRPCAddr:          ":2001",
			UploadDir:         "uploads",
			MaxUploadBytes:    constants.MaxUploadBytes,
			AllowedExtensions: []string{"pdf", "docx", "xlsx", "jpg", "png", "txt"},
			RateLimitRPS:      10,
			RateLimitBurst:    20,
			ShutdownTimeout:   Duration{5 * time.Second},
		},
		OCR: OCRConfig{
			Tesseract:   "tesseract",
			Pdftoppm:    "pdftoppm",
			Lang:        "eng",
			DPI:         300,
			PageWorkers: 4,
		},
		Pipeline: PipelineConfig{
			Workers:      4,
			QueueSize:    64,
			StageTimeout: Duration{60 * time.Second},
			TaskTimeout:  Duration{3 * time.Minute},
		},
		Rules: RulesConfig{
			PrincipalMin: 1_000,
			PrincipalMax: 50_000_000,
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Watch:   WatchConfig{Debounce: Duration{500 * time.Millisecond}, SkipHidden: true},
	}
}

// LoadConfig builds the configuration: defaults, then the optional file at path
// (.yaml/.yml or .toml), then environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, NewAppError(CodeConfig, "failed to load config file", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, NewAppError(CodeConfig, "invalid environment override", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, c)
	case ".toml":
		return toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

func (c *Config) applyEnv() error {
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.UploadDir = getEnv("UPLOAD_DIR", c.Server.UploadDir)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	var err error
	if c.Server.MaxUploadBytes, err = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes); err != nil {
		return err
	}
	if c.OCR.DPI, err = getEnvAsInt("OCR_DPI", c.OCR.DPI); err != nil {
		return err
	}
	if c.Pipeline.Workers, err = getEnvAsInt("PIPELINE_WORKERS", c.Pipeline.Workers); err != nil {
		return err
	}
	if c.Pipeline.QueueSize, err = getEnvAsInt("PIPELINE_QUEUE_SIZE", c.Pipeline.QueueSize); err != nil {
		return err
	}
	if c.Pipeline.StageTimeout.Duration, err = getEnvAsDuration("STAGE_TIMEOUT", c.Pipeline.StageTimeout.Duration); err != nil {
		return err
	}
	if c.Metrics.Enabled, err = getEnvAsBool("METRICS_ENABLED", c.Metrics.Enabled); err != nil {
		return err
	}
	if c.Server.RateLimitRPS, err = getEnvAsFloat("RATE_LIMIT_RPS", c.Server.RateLimitRPS); err != nil {
		return err
	}
	if c.Server.RateLimitBurst, err = getEnvAsInt("RATE_LIMIT_BURST", c.Server.RateLimitBurst); err != nil {
		return err
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvAsInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("server.http_addr", c.Server.HTTPAddr, Required).
		Field("server.upload_dir", c.Server.UploadDir, Required).
		Field("server.max_upload_bytes", c.Server.MaxUploadBytes, Positive).
		Field("server.allowed_extensions", len(c.Server.AllowedExtensions), Positive).
		Field("ocr.dpi", c.OCR.DPI, Positive).
		Field("pipeline.workers", c.Pipeline.Workers, Positive).
		Field("pipeline.queue_size", c.Pipeline.QueueSize, Positive).
		Field("pipeline.stage_timeout", c.Pipeline.StageTimeout.Duration, Positive).
		Field("rules.principal_min", c.Rules.PrincipalMin, Positive).
		Field("rules.principal_max", c.Rules.PrincipalMax, AtLeast(c.Rules.PrincipalMin))
	if c.Server.RateLimitRPS > 0 {
		v.Field("server.rate_limit_burst", c.Server.RateLimitBurst, Positive)
	}
	v.Field("log.format", c.Log.Format, OneOf("json", "text"))
	v.Field("log.level", c.Log.Level, OneOf("debug", "info", "warn", "error"))
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

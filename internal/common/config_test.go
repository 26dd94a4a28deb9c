package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":2000", cfg.Server.HTTPAddr)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.StageTimeout.Duration)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_addr: ":9000"
  allowed_extensions: [pdf, txt]
pipeline:
  stage_timeout: 5s
rules:
  counterparties: ["Shady LLC"]
  principal_max: 2000000
log:
  level: debug
  format: json
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, ":2001", cfg.Server.GRPCAddr, "defaults survive partial files")
	assert.Equal(t, []string{"pdf", "txt"}, cfg.Server.AllowedExtensions)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.StageTimeout.Duration)
	assert.Equal(t, []string{"Shady LLC"}, cfg.Rules.Counterparties)
	assert.Equal(t, 2_000_000.0, cfg.Rules.PrincipalMax)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
grpc_addr = ":7001"
max_upload_bytes = 1024

[ocr]
lang = "deu"
dpi = 200

[watch]
debounce = "2s"
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.Server.GRPCAddr)
	assert.Equal(t, int64(1024), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "deu", cfg.OCR.Lang)
	assert.Equal(t, 200, cfg.OCR.DPI)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce.Duration)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8088")
	t.Setenv("PIPELINE_WORKERS", "9")
	t.Setenv("STAGE_TIMEOUT", "90s")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8088", cfg.Server.HTTPAddr)
	assert.Equal(t, 9, cfg.Pipeline.Workers)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.StageTimeout.Duration)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("bad env", func(t *testing.T) {
		t.Setenv("OCR_DPI", "lots")
		_, err := LoadConfig("")
		var ae *AppError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, CodeConfig, ae.Code)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
	t.Run("unknown extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.ini")
		require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o600))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.HTTPAddr = ""
	cfg.Pipeline.Workers = 0
	cfg.Rules.PrincipalMax = 10
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.http_addr")
	assert.Contains(t, err.Error(), "pipeline.workers")
	assert.Contains(t, err.Error(), "rules.principal_max")
	assert.Contains(t, err.Error(), "log.format")
}

func TestLoadConfig_ExampleFileMatchesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	def := DefaultConfig()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Pipeline, cfg.Pipeline)
	assert.Equal(t, def.Watch, cfg.Watch)
	assert.Equal(t, def.Rules.PrincipalMax, cfg.Rules.PrincipalMax)
	assert.Empty(t, cfg.Rules.Counterparties)
}

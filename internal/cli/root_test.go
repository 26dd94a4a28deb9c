package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// execute runs rootCmd with flag state reset and returns what it printed.
func execute(ctx context.Context, args ...string) (string, error) {
	configPath = ""
	logLevel = ""
	validateJSON = false
	extractQuiet = false
	batchOut = ""
	batchSkipHidden = true
	batchWorkers = 0
	watchInitial = false
	watchLimit = 0
	rulesJSON = false
	clock = func() time.Time { return fixedNow }
	for _, c := range rootCmd.Commands() {
		c.SetContext(nil)
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "termsheet", rootCmd.Use)
	assert.Contains(t, rootCmd.Long, "risk score")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"validate", "extract", "batch", "watch", "rules", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCmd_HasConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestRootCmd_BadConfigFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "pipeline:\n  workers: 0\n")

	_, err := execute(context.Background(), "--config", path, "rules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.workers")
}

func TestRootCmd_TeardownReleasesApp(t *testing.T) {
	_, err := execute(context.Background(), "rules")
	require.NoError(t, err)
	assert.Nil(t, application)
}

func TestRequireApp_NotInitialised(t *testing.T) {
	application = nil
	_, err := requireApp()
	assert.EqualError(t, err, "application not initialised")
}

func sampleFile(t *testing.T) string {
	return writeFile(t, t.TempDir(), "deal.txt", extract.SampleText)
}

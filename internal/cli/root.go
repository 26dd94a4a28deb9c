// Package cli implements the termsheet command-line tool.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/termsheet-validator/internal/app"
	"github.com/joseph-ayodele/termsheet-validator/internal/common"
	"github.com/joseph-ayodele/termsheet-validator/internal/logger"
)

var (
	configPath string
	logLevel   string

	// clock drives the date rules; tests pin it.
	clock = time.Now

	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "termsheet",
	Short: "Validate financial term sheets",
	Long: `termsheet extracts text from term sheet documents (PDF, DOCX, XLSX,
images and plain text), parses the standard fields and checks them against
the approved reference data, producing a risk score and a list of issues.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("TERMSHEET_CONFIG"), "path to a .yaml or .toml config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})

	a, err := app.New(cfg, log, app.WithClock(clock))
	if err != nil {
		return err
	}
	application = a
	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	if application == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), application.Config.Server.ShutdownTimeout.Duration)
	defer cancel()
	application.Close(ctx)
	application = nil
}

func requireApp() (*app.App, error) {
	if application == nil {
		return nil, errors.New("application not initialised")
	}
	return application, nil
}

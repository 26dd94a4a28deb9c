package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/termsheet-validator/internal/app"
	"github.com/joseph-ayodele/termsheet-validator/internal/common"
	"github.com/joseph-ayodele/termsheet-validator/internal/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("TERMSHEET_CONFIG"), "path to a .yaml or .toml config file")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Init(logger.Config{}).Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stdout})

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("build app", "error", err)
		os.Exit(1)
	}
	srv, err := a.Server()
	if err != nil {
		log.Error("build server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		a.Close(context.Background())
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	a.Close(shutdownCtx)
	log.Info("stopped")
}

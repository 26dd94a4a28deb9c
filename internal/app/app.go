// Package app wires configuration into the pipeline and its collaborators.
// The daemon and the CLI both start from New.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/termsheet-validator/internal/common"
	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
	"github.com/joseph-ayodele/termsheet-validator/internal/fields"
	"github.com/joseph-ayodele/termsheet-validator/internal/history"
	"github.com/joseph-ayodele/termsheet-validator/internal/metrics"
	"github.com/joseph-ayodele/termsheet-validator/internal/pipeline"
	"github.com/joseph-ayodele/termsheet-validator/internal/rules"
	"github.com/joseph-ayodele/termsheet-validator/internal/server"
	"github.com/joseph-ayodele/termsheet-validator/internal/workpool"
)

type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Extractor *extract.Extractor
	Engine    *rules.Engine
	Pipeline  *pipeline.Pipeline
	History   *history.Store
	Metrics   *metrics.Collector
	Pool      *workpool.Pool
}

type options struct {
	now    func() time.Time
	runner extract.Runner
}

type Option func(*options)

// WithClock fixes "now" for the date rules and result timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRunner replaces the external tool runner used for OCR.
func WithRunner(r extract.Runner) Option {
	return func(o *options) { o.runner = r }
}

// New validates cfg and builds every component from it.
func New(cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	set, err := RuleSetFromConfig(cfg.Rules)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "invalid rules configuration", err)
	}

	var exOpts []extract.Option
	if o.runner != nil {
		exOpts = append(exOpts, extract.WithRunner(o.runner))
	}
	ex := extract.NewExtractor(ExtractConfig(cfg), logger.With("component", "extract"), exOpts...)
	engine := rules.NewEngine(set, rules.WithClock(o.now), rules.WithLogger(logger.With("component", "rules")))
	hist := history.NewStore()
	m := metrics.NewCollector()

	p := pipeline.New(ex, fields.NewParser(logger.With("component", "fields")), engine,
		pipeline.WithLogger(logger.With("component", "pipeline")),
		pipeline.WithStageTimeout(cfg.Pipeline.StageTimeout.Duration),
		pipeline.WithObserver(m),
		pipeline.WithRecorder(hist),
		pipeline.WithClock(o.now),
	)

	pool := workpool.New(logger.With("component", "workpool"),
		workpool.WithWorkers(cfg.Pipeline.Workers),
		workpool.WithQueueSize(cfg.Pipeline.QueueSize),
		workpool.WithTaskTimeout(cfg.Pipeline.TaskTimeout.Duration),
	)

	logger.Info("app ready",
		"rules", engine.RuleCount(),
		"workers", cfg.Pipeline.Workers,
		"stage_timeout", cfg.Pipeline.StageTimeout.Duration.String(),
	)
	return &App{
		Config:    cfg,
		Logger:    logger,
		Extractor: ex,
		Engine:    engine,
		Pipeline:  p,
		History:   hist,
		Metrics:   m,
		Pool:      pool,
	}, nil
}

// Server builds the HTTP server over the app's components.
func (a *App) Server() (*server.Server, error) {
	return server.New(server.Deps{
		Config:    a.Config,
		Validator: a.Pipeline,
		Rules:     a.Engine,
		Pool:      a.Pool,
		History:   a.History,
		Metrics:   a.Metrics,
		Logger:    a.Logger.With("component", "server"),
	})
}

// Close drains the worker pool.
func (a *App) Close(ctx context.Context) {
	a.Pool.Shutdown(ctx)
}

// RuleSetFromConfig overlays configured lists on the built-in ones; an empty
// list keeps the default.
func RuleSetFromConfig(c common.RulesConfig) (*rules.RuleSet, error) {
	lists := rules.DefaultLists()
	if len(c.Counterparties) > 0 {
		lists.Counterparties = c.Counterparties
	}
	if len(c.Issuers) > 0 {
		lists.Issuers = c.Issuers
	}
	if len(c.Products) > 0 {
		lists.Products = c.Products
	}
	if len(c.GoverningLaws) > 0 {
		lists.GoverningLaws = c.GoverningLaws
	}
	set, err := rules.NewRuleSet(lists, decimal.NewFromFloat(c.PrincipalMin), decimal.NewFromFloat(c.PrincipalMax))
	if err != nil {
		return nil, fmt.Errorf("rule set: %w", err)
	}
	return set, nil
}

// ExtractConfig maps the OCR section onto the extractor configuration.
func ExtractConfig(cfg *common.Config) extract.Config {
	return extract.Config{
		Pdftoppm:            cfg.OCR.Pdftoppm,
		Tesseract:           cfg.OCR.Tesseract,
		TesseractLang:       cfg.OCR.Lang,
		TessdataDir:         cfg.OCR.TessdataDir,
		DPI:                 cfg.OCR.DPI,
		MaxPages:            cfg.OCR.MaxPages,
		PageWorkers:         cfg.OCR.PageWorkers,
		EnableTSVConfidence: cfg.OCR.EnableTSVConfidence,
		Timeout:             cfg.Pipeline.StageTimeout.Duration,
	}
}

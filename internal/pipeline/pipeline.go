package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
	"github.com/joseph-ayodele/termsheet-validator/internal/fallback"
	"github.com/joseph-ayodele/termsheet-validator/internal/fields"
	"github.com/joseph-ayodele/termsheet-validator/internal/risk"
	"github.com/joseph-ayodele/termsheet-validator/internal/rules"
)

// Stage names used in logs and metrics.
const (
	StageExtract  = "extract"
	StageParse    = "parse"
	StageValidate = "validate"
)

const DefaultStageTimeout = 60 * time.Second

// TextExtractor is stage 1: document -> text.
type TextExtractor interface {
	Extract(ctx context.Context, doc extract.Document) (extract.Result, error)
}

// FieldParser is stage 2: text -> fields, already carrying its fallback.
type FieldParser interface {
	Parse(text string) fallback.Result[fields.FieldMap]
}

// RuleEvaluator is stage 3: fields -> issues.
type RuleEvaluator interface {
	Evaluate(m fields.FieldMap) (bool, []rules.Issue)
	RuleCount() int
}

// Observer receives per-stage timings and final outcomes.
type Observer interface {
	ObserveStage(stage string, d time.Duration, fellBack bool)
	ObserveValidation(status string, riskScore float64, issues int)
}

// Recorder keeps a log of completed validations.
type Recorder interface {
	Record(filename string, res ValidationResult)
}

// RuleEvaluationError means the rule stage panicked. Rules are total over any
// FieldMap, so this indicates a bug.
type RuleEvaluationError struct {
	Cause error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("rule evaluation: %v", e.Cause)
}

func (e *RuleEvaluationError) Unwrap() error { return e.Cause }

// Pipeline runs extract -> parse -> validate -> score.
type Pipeline struct {
	extractor TextExtractor
	parser    FieldParser
	engine    RuleEvaluator
	scorer    *risk.Scorer

	stageTimeout time.Duration
	observer     Observer
	recorder     Recorder
	now          func() time.Time
	logger       *slog.Logger
}

type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStageTimeout bounds the extraction stage; on expiry the sample text is used.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.stageTimeout = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithClock sets the clock used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func New(ex TextExtractor, parser FieldParser, engine RuleEvaluator, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:    ex,
		parser:       parser,
		engine:       engine,
		scorer:       risk.NewScorer(engine.RuleCount()),
		stageTimeout: DefaultStageTimeout,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Validate runs the full pipeline over doc. The only error returned for a
// supported document is a *RuleEvaluationError; an unsupported format returns
// *extract.UnsupportedFormatError before any stage runs.
func (p *Pipeline) Validate(ctx context.Context, doc extract.Document) (ValidationResult, error) {
	text, summary, err := p.extractStage(ctx, doc)
	if err != nil {
		return ValidationResult{}, err
	}

	start := time.Now()
	parsed := p.parser.Parse(text)
	p.observeStage(StageParse, time.Since(start), parsed.FellBack)
	if parsed.FellBack {
		p.logger.Warn("parse stage fell back to sample fields", "name", doc.Name, "error", parsed.Err)
	}

	res, err := p.evaluate(parsed.Value)
	if err != nil {
		p.logger.Error("validate stage failed", "name", doc.Name, "error", err)
		return ValidationResult{}, err
	}
	res.FieldsFallback = parsed.FellBack
	res.Extraction = summary

	p.finish(doc.Name, res)
	return res, nil
}

// Evaluate validates and scores an already structured FieldMap. It is not
// recorded in history.
func (p *Pipeline) Evaluate(m fields.FieldMap) (ValidationResult, error) {
	res, err := p.evaluate(m)
	if err != nil {
		return ValidationResult{}, err
	}
	p.finish("", res)
	return res, nil
}

// RuleCount is the number of rules the scorer normalises against.
func (p *Pipeline) RuleCount() int { return p.engine.RuleCount() }

func (p *Pipeline) extractStage(ctx context.Context, doc extract.Document) (string, *ExtractionSummary, error) {
	start := time.Now()
	sctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	r, err := p.extractor.Extract(sctx, doc)
	if err != nil {
		var ufe *extract.UnsupportedFormatError
		if errors.As(err, &ufe) {
			return "", nil, err
		}
		// extractors are expected to recover themselves; keep the guarantee anyway
		p.logger.Warn("extract stage returned error, using sample text", "name", doc.Name, "error", err)
		r = extract.Result{
			Text:     extract.SampleText,
			Format:   doc.Format,
			Method:   "sample",
			Fallback: true,
			Warnings: []string{err.Error()},
		}
	}
	d := time.Since(start)
	p.observeStage(StageExtract, d, r.Fallback)
	p.logger.Info("extract stage done",
		"stage", StageExtract,
		"name", doc.Name,
		"format", r.Format,
		"method", r.Method,
		"fallback", r.Fallback,
		"duration_ms", d.Milliseconds(),
	)
	return r.Text, &ExtractionSummary{
		Format:     r.Format,
		Method:     r.Method,
		Pages:      r.Pages,
		Confidence: r.Confidence,
		Fallback:   r.Fallback,
		Warnings:   r.Warnings,
		DurationMS: r.Duration.Milliseconds(),
	}, nil
}

func (p *Pipeline) evaluate(m fields.FieldMap) (ValidationResult, error) {
	start := time.Now()
	res, err := fallback.Recover(func() (ValidationResult, error) {
		valid, issues := p.engine.Evaluate(m)
		score, status := p.scorer.Score(issues)
		return ValidationResult{
			IsValid:   valid,
			RiskScore: score,
			Status:    status,
			Issues:    issues,
			Fields:    m,
		}, nil
	})
	p.observeStage(StageValidate, time.Since(start), false)
	if err != nil {
		return ValidationResult{}, &RuleEvaluationError{Cause: err}
	}
	res.Timestamp = p.now()
	p.logger.Info("validation done",
		"stage", StageValidate,
		"issues", len(res.Issues),
		"risk_score", res.RiskScore,
		"status", res.Status,
	)
	return res, nil
}

func (p *Pipeline) finish(name string, res ValidationResult) {
	if p.observer != nil {
		p.observer.ObserveValidation(string(res.Status), res.RiskScore, len(res.Issues))
	}
	if p.recorder != nil && name != "" {
		p.recorder.Record(name, res)
	}
}

func (p *Pipeline) observeStage(stage string, d time.Duration, fellBack bool) {
	if p.observer != nil {
		p.observer.ObserveStage(stage, d, fellBack)
	}
}

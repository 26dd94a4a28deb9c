package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes the external OCR tools (pdftoppm, tesseract). Tests stub it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ToolError is a failed pdftoppm or tesseract invocation.
type ToolError struct {
	Tool     string
	Stage    string // rasterize, ocr, ocr-tsv
	Document string
	Page     int
	Stderr   string
	Cause    error
}

func (e *ToolError) Error() string {
	where := e.Stage
	if e.Page > 0 {
		where = fmt.Sprintf("%s page %d", e.Stage, e.Page)
	}
	msg := fmt.Sprintf("%s (%s): %v", e.Tool, where, e.Cause)
	if line := lastLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Cause }

// Missing reports whether the binary is not installed or not on PATH.
func (e *ToolError) Missing() bool { return errors.Is(e.Cause, exec.ErrNotFound) }

// step identifies which document and stage an external call belongs to.
type step struct {
	document string
	stage    string
	page     int
}

type stepKey struct{}

func stepFrom(ctx context.Context) step {
	s, _ := ctx.Value(stepKey{}).(step)
	return s
}

func withDocument(ctx context.Context, name string) context.Context {
	s := stepFrom(ctx)
	s.document = name
	return context.WithValue(ctx, stepKey{}, s)
}

func withPage(ctx context.Context, page int) context.Context {
	s := stepFrom(ctx)
	s.page = page
	return context.WithValue(ctx, stepKey{}, s)
}

// runTool runs one external tool for the given stage and returns its stdout.
// Failures come back as *ToolError whatever Runner is installed.
func (e *Extractor) runTool(ctx context.Context, stage, tool string, args ...string) ([]byte, error) {
	s := stepFrom(ctx)
	s.stage = stage
	ctx = context.WithValue(ctx, stepKey{}, s)

	out, errb, err := e.runner.Run(ctx, tool, args...)
	if err == nil {
		return out, nil
	}
	te := &ToolError{
		Tool:     tool,
		Stage:    stage,
		Document: s.document,
		Page:     s.page,
		Stderr:   truncate(strings.TrimSpace(string(errb)), 512),
		Cause:    err,
	}
	if te.Missing() {
		e.logger.Error("ocr tool not installed; set ocr.tesseract / ocr.pdftoppm or install it",
			"tool", tool, "document", s.document)
	}
	return nil, te
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	s := stepFrom(ctx)
	log := r.logger.With("tool", name, "document", s.document, "stage", s.stage)
	if s.page > 0 {
		log = log.With("page", s.page)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)
	if err != nil {
		log.Error("tool failed",
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
		return out.Bytes(), errb.Bytes(), err
	}
	log.Debug("tool ok",
		"duration_ms", dur.Milliseconds(),
		"stdout_bytes", out.Len(),
	)
	return out.Bytes(), errb.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

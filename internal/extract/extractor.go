package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/termsheet-validator/constants"
	"github.com/joseph-ayodele/termsheet-validator/internal/fallback"
)

// UnsupportedFormatError is returned for documents whose format has no strategy.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %q", e.Ext)
}

// ExtractionError wraps a strategy failure. It is recovered by the extractor and
// only surfaces as a warning on the Result.
type ExtractionError struct {
	Format constants.Format
	Method string
	Cause  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction (%s): %v", e.Format, e.Method, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// ErrEmptyText means a strategy ran but produced nothing usable.
var ErrEmptyText = errors.New("no text extracted")

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for PDFs, default 300
	MaxPages      int // 0 = no limit
	PageWorkers   int // concurrent per-page OCR, default 4

	EnableTSVConfidence bool
	PSM                 int
	OEM                 int

	// Timeout bounds a single Extract call; 0 = only the caller's context.
	Timeout time.Duration
	// DisablePDFTextLayer skips the embedded-text fallback for PDFs.
	DisablePDFTextLayer bool
}

// Document is one input to extraction. Either Path or Data must be set.
type Document struct {
	Name   string
	Path   string
	Format constants.Format
	Data   []byte
}

// Open builds a Document for a file on disk; the format comes from its extension.
func Open(path string) (Document, error) {
	ext := filepath.Ext(path)
	f := constants.MapExtToFormat(ext)
	if f == "" {
		return Document{}, &UnsupportedFormatError{Ext: constants.NormalizeExt(ext)}
	}
	return Document{Name: filepath.Base(path), Path: path, Format: f}, nil
}

func (d Document) ext() string {
	if d.Name != "" {
		return constants.NormalizeExt(filepath.Ext(d.Name))
	}
	return constants.NormalizeExt(filepath.Ext(d.Path))
}

func (d Document) format() constants.Format {
	if d.Format != "" {
		return d.Format
	}
	return constants.MapExtToFormat(d.ext())
}

// bytes returns Data, reading Path when Data is empty.
func (d Document) bytes() ([]byte, error) {
	if d.Data != nil {
		return d.Data, nil
	}
	if d.Path == "" {
		return nil, fmt.Errorf("document has neither data nor path")
	}
	return os.ReadFile(d.Path)
}

// localPath returns a file path for external tools, spilling Data to a temp file if needed.
func (d Document) localPath() (string, func(), error) {
	if d.Path != "" {
		return d.Path, func() {}, nil
	}
	f, err := os.CreateTemp("", "ts-doc-*."+d.ext())
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(d.Data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

type Result struct {
	Text       string
	Pages      int
	Format     constants.Format
	Method     string // "pdf-ocr" | "pdf-text" | "docx-xml" | "xlsx-cells" | "image-ocr" | "text-raw" | "sample"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
	Fallback   bool
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the external command runner (tests stub tesseract/pdftoppm this way).
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 4
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract converts doc to text. Only an unsupported format is returned as an error;
// any failure of a supported strategy (including timeout or empty output)
// yields the canned sample text with Fallback set.
func (e *Extractor) Extract(ctx context.Context, doc Document) (Result, error) {
	start := time.Now()
	format := doc.format()
	e.logger.Debug("starting extraction", "name", doc.Name, "path", doc.Path, "format", format)

	strategy, ok := e.strategyFor(format)
	if !ok {
		err := &UnsupportedFormatError{Ext: doc.ext()}
		e.logger.Error("unsupported format", "extension", err.Ext)
		return Result{}, err
	}
	ctx = withDocument(ctx, doc.Name)

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	res := fallback.OrElse(func() (Result, error) {
		return e.run(ctx, format, strategy, doc)
	}, func() Result {
		return sampleResult(format)
	})

	out := res.Value
	out.Format = format
	out.Duration = time.Since(start)
	if res.FellBack {
		out.Fallback = true
		out.Warnings = append(out.Warnings, res.Err.Error())
		e.logger.Warn("extraction failed, using sample text",
			"format", format, "error", res.Err, "duration_ms", out.Duration.Milliseconds())
		return out, nil
	}
	e.logger.Info("extraction complete",
		"format", format, "method", out.Method, "pages", out.Pages,
		"confidence", out.Confidence, "duration_ms", out.Duration.Milliseconds())
	return out, nil
}

type strategy func(ctx context.Context, doc Document) (Result, error)

func (e *Extractor) strategyFor(f constants.Format) (strategy, bool) {
	switch f {
	case constants.PDF:
		return e.extractPDF, true
	case constants.DOCX:
		return extractDOCX, true
	case constants.XLSX:
		return extractXLSX, true
	case constants.IMAGE:
		return e.extractImage, true
	case constants.TEXT:
		return extractText, true
	default:
		return nil, false
	}
}

// run executes the strategy, abandoning it when ctx ends first.
func (e *Extractor) run(ctx context.Context, format constants.Format, s strategy, doc Document) (Result, error) {
	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := fallback.Recover(func() (Result, error) { return s(ctx, doc) })
		done <- outcome{r, err}
	}()

	select {
	case <-ctx.Done():
		return Result{}, &ExtractionError{Format: format, Method: "timeout", Cause: ctx.Err()}
	case o := <-done:
		if o.err != nil {
			var ee *ExtractionError
			if errors.As(o.err, &ee) {
				return Result{}, o.err
			}
			return Result{}, &ExtractionError{Format: format, Method: o.res.Method, Cause: o.err}
		}
		o.res.Text = Normalize(o.res.Text)
		if strings.TrimSpace(o.res.Text) == "" {
			return Result{}, &ExtractionError{Format: format, Method: o.res.Method, Cause: ErrEmptyText}
		}
		if o.res.Confidence == 0 {
			o.res.Confidence = heuristicConfidence(o.res.Text)
		}
		return o.res, nil
	}
}

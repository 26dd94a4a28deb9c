package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// extractPDF rasterizes and OCRs every page; if that fails it tries the
// embedded text layer before giving up.
func (e *Extractor) extractPDF(ctx context.Context, doc Document) (Result, error) {
	path, cleanup, err := doc.localPath()
	if err != nil {
		return Result{Method: "pdf-ocr"}, err
	}
	defer cleanup()

	txt, pages, warns, ocrErr := e.pdfToOCR(ctx, path)
	if ocrErr == nil && strings.TrimSpace(txt) != "" {
		return Result{
			Text:     txt,
			Pages:    pages,
			Method:   "pdf-ocr",
			Language: e.cfg.TesseractLang,
			Warnings: warns,
		}, nil
	}
	if ocrErr == nil {
		ocrErr = ErrEmptyText
	}
	if e.cfg.DisablePDFTextLayer {
		return Result{Method: "pdf-ocr", Warnings: warns}, ocrErr
	}
	if ctx.Err() != nil {
		return Result{Method: "pdf-ocr", Warnings: warns}, ctx.Err()
	}

	e.logger.Warn("pdf ocr failed, trying embedded text layer", "path", path, "error", ocrErr)
	data, err := doc.bytes()
	if err != nil {
		return Result{Method: "pdf-text"}, errors.Join(ocrErr, err)
	}
	txt, pages, err = pdfTextLayer(data)
	if err != nil {
		return Result{Method: "pdf-text", Warnings: warns}, errors.Join(ocrErr, err)
	}
	return Result{
		Text:     txt,
		Pages:    pages,
		Method:   "pdf-text",
		Warnings: append(warns, "ocr failed: "+ocrErr.Error()),
	}, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "ts-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	if _, err := e.runTool(ctx, "rasterize", e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix); err != nil {
		return "", 0, []string{err.Error()}, err
	}

	// prefix-1.png, prefix-2.png ... (zero padded once there are 10+ pages)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	texts := make([]string, len(matches))
	pageWarns := make([][]string, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.PageWorkers)
	for i, img := range matches {
		g.Go(func() error {
			txt, w, err := e.tesseractOCR(withPage(gctx, i+1), img)
			if err != nil {
				pageWarns[i] = w
				return nil
			}
			texts[i] = strings.TrimSpace(txt)
			pageWarns[i] = w
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return "", 0, nil, ctx.Err()
	}

	var b strings.Builder
	ok := 0
	for i, txt := range texts {
		warnings = append(warnings, pageWarns[i]...)
		if txt == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
		ok++
	}
	if ok == 0 {
		return "", len(matches), warnings, fmt.Errorf("ocr failed on all %d pages", len(matches))
	}
	return b.String(), len(matches), warnings, nil
}

// pdfTextLayer reads the embedded text of every page. The pdf library panics on
// some malformed files; those panics become errors.
func pdfTextLayer(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	pages = reader.NumPage()
	if pages <= 0 {
		return "", 0, fmt.Errorf("pdf has no pages")
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", pages, fmt.Errorf("page %d: %w", i, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s)
	}
	text = strings.TrimSpace(b.String())
	if text == "" {
		return "", pages, ErrEmptyText
	}
	return text, pages, nil
}

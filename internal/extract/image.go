package extract

import (
	"context"
	"strconv"
	"strings"
)

func (e *Extractor) extractImage(ctx context.Context, doc Document) (Result, error) {
	path, cleanup, err := doc.localPath()
	if err != nil {
		return Result{Method: "image-ocr"}, err
	}
	defer cleanup()

	txt, warn, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return Result{Method: "image-ocr", Warnings: warn}, err
	}

	var conf float32
	if e.cfg.EnableTSVConfidence {
		if c, err := e.tesseractTSVConfidence(ctx, path); err == nil && c > 0 {
			// weight OCR higher when present
			conf = 0.7*c + 0.3*heuristicConfidence(Normalize(txt))
		} else if err != nil {
			warn = append(warn, err.Error())
		}
	}

	return Result{
		Text:       txt,
		Pages:      1,
		Method:     "image-ocr",
		Language:   e.cfg.TesseractLang,
		Warnings:   warn,
		Confidence: min(conf, 1.0),
	}, nil
}

func (e *Extractor) tesseractArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang>
	out, err := e.runTool(ctx, "ocr", e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		return "", []string{err.Error()}, err
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	args := append(e.tesseractArgs(path), "tsv")
	out, err := e.runTool(ctx, "ocr-tsv", e.cfg.Tesseract, args...)
	if err != nil {
		return 0, err
	}
	var sum, n float64
	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 || ln == "" {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		c := cols[10] // level page block par line word left top width height conf text
		if c == "" || c == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(c, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float32(sum / n / 100.0), nil
}

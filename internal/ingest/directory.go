// Package ingest finds term sheets on disk: a one-shot directory walk for
// batch runs and an fsnotify watcher for inbox directories.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/termsheet-validator/constants"
	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
	"github.com/joseph-ayodele/termsheet-validator/internal/pipeline"
)

// Validator is the part of the pipeline a batch run needs.
type Validator interface {
	Validate(ctx context.Context, doc extract.Document) (pipeline.ValidationResult, error)
}

type FileResult struct {
	Path   string
	Result pipeline.ValidationResult
	Err    error
}

type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
	FellBack  uint32
}

// DirOptions controls discovery. A nil Exts means the default upload extensions.
type DirOptions struct {
	Exts       map[string]struct{}
	SkipHidden bool
	Workers    int
	Logger     *slog.Logger
}

// Discover walks root and returns matching files in lexical order.
// Unreadable entries are counted as failures and skipped.
func Discover(root string, opts DirOptions) ([]string, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			logger.Warn("walk error", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if path != root && opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !constants.IsAllowedExt(filepath.Ext(path), opts.Exts) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, stats, nil
}

// ValidateDirectory discovers files under root and validates each one.
// Results keep discovery order; per-file failures do not stop the run.
func ValidateDirectory(ctx context.Context, v Validator, root string, opts DirOptions) ([]FileResult, DirStats, error) {
	paths, stats, err := Discover(root, opts)
	if err != nil {
		return nil, stats, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			results[i] = validateFile(gctx, v, p)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			stats.Failed++
			logger.Warn("batch file failed", "path", r.Path, "error", r.Err)
			continue
		}
		stats.Succeeded++
		if r.Result.FellBack() {
			stats.FellBack++
		}
	}
	logger.Info("batch done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"fell_back", stats.FellBack,
	)
	return results, stats, ctx.Err()
}

func validateFile(ctx context.Context, v Validator, path string) FileResult {
	if err := ctx.Err(); err != nil {
		return FileResult{Path: path, Err: err}
	}
	doc, err := extract.Open(path)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}
	res, err := v.Validate(ctx, doc)
	return FileResult{Path: path, Result: res, Err: err}
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

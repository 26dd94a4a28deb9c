package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/termsheet-validator/constants"
	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
	"github.com/joseph-ayodele/termsheet-validator/internal/pipeline"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixtureTree(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "Issuer: X")
	writeFile(t, filepath.Join(root, "b.pdf"), "%PDF")
	writeFile(t, filepath.Join(root, "notes.csv"), "a,b")
	writeFile(t, filepath.Join(root, ".hidden.txt"), "x")
	writeFile(t, filepath.Join(root, ".cache", "c.txt"), "x")
	writeFile(t, filepath.Join(root, "sub", "d.docx"), "x")
	return root
}

func TestDiscover(t *testing.T) {
	root := fixtureTree(t)

	paths, stats, err := Discover(root, DirOptions{SkipHidden: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "d.docx"),
	}, paths)
	assert.Equal(t, uint32(4), stats.Scanned)
	assert.Equal(t, uint32(3), stats.Matched)

	paths, _, err = Discover(root, DirOptions{})
	require.NoError(t, err)
	assert.Len(t, paths, 5)

	paths, _, err = Discover(root, DirOptions{Exts: constants.ExtSet([]string{".csv"}), SkipHidden: true})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "notes.csv")}, paths)
}

func TestDiscover_Errors(t *testing.T) {
	_, _, err := Discover(" ", DirOptions{})
	assert.Error(t, err)

	_, _, err = Discover(filepath.Join(t.TempDir(), "missing"), DirOptions{})
	assert.Error(t, err)
}

type fakeValidator struct {
	calls atomic.Int32
}

func (f *fakeValidator) Validate(_ context.Context, doc extract.Document) (pipeline.ValidationResult, error) {
	f.calls.Add(1)
	if doc.Format == constants.PDF {
		return pipeline.ValidationResult{}, errors.New("rule evaluation: boom")
	}
	res := pipeline.ValidationResult{Status: constants.StatusValid}
	if doc.Format == constants.DOCX {
		res.Extraction = &pipeline.ExtractionSummary{Fallback: true}
	}
	return res, nil
}

func TestValidateDirectory(t *testing.T) {
	root := fixtureTree(t)
	v := &fakeValidator{}

	results, stats, err := ValidateDirectory(context.Background(), v, root, DirOptions{SkipHidden: true, Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int32(3), v.calls.Load())

	assert.Equal(t, filepath.Join(root, "a.txt"), results[0].Path)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.True(t, results[2].Result.FellBack())

	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Equal(t, uint32(1), stats.FellBack)
}

func TestValidateDirectory_Cancelled(t *testing.T) {
	root := fixtureTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := &fakeValidator{}
	results, stats, err := ValidateDirectory(ctx, v, root, DirOptions{SkipHidden: true})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 3)
	assert.Equal(t, int32(0), v.calls.Load())
	assert.Equal(t, uint32(3), stats.Failed)
}

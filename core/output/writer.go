// Package output delivers exported artifacts to disk.
// Files land in the output directory under the artifact's filename; an
// existing file is never overwritten, the new one gets a numbered suffix
// (report.pdf, report (1).pdf, ...).
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/gaurav-prasanna/markify/core"
)

const maxSuffix = 1000

// Writer writes artifacts into OutputDir. It implements core.Trigger.
type Writer struct {
	OutputDir string
	fs        afero.Fs
}

// New creates a Writer targeting the given output directory on the OS
// filesystem. If outputDir is empty, it defaults to the current working
// directory.
func New(outputDir string) (*Writer, error) {
	return NewFs(afero.NewOsFs(), outputDir)
}

// NewFs creates a Writer on an arbitrary filesystem.
func NewFs(fs afero.Fs, outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	// Ensure the output directory exists.
	if err := fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir, fs: fs}, nil
}

// Deliver writes a and returns the path it was written to.
func (w *Writer) Deliver(ctx context.Context, a *core.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(a.Filename)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename %q", a.Filename)
	}

	tmp, err := afero.TempFile(w.fs, w.OutputDir, ".markify-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		w.fs.Remove(tmpName)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		w.fs.Remove(tmpName)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}

	path, err := w.freePath(name)
	if err != nil {
		w.fs.Remove(tmpName)
		return "", err
	}
	if err := w.fs.Rename(tmpName, path); err != nil {
		w.fs.Remove(tmpName)
		return "", fmt.Errorf("moving %s into place: %w", name, err)
	}
	return path, nil
}

// freePath returns the first path for name that does not exist yet.
func (w *Writer) freePath(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < maxSuffix; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(w.OutputDir, candidate)
		exists, err := afero.Exists(w.fs, path)
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}
		if !exists {
			return path, nil
		}
	}
	return "", fmt.Errorf("too many files named %s in %s", name, w.OutputDir)
}

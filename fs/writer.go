// Package fs provides file-based output for extracted datasets.
package fs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fwojciec/raftspec"
)

// Ensure Writer implements raftspec.DatasetWriter at compile time.
var _ raftspec.DatasetWriter = (*Writer)(nil)

// Writer writes a dataset as a JSON file with atomic update semantics.
// The dataset is saved to path.tmp, then moved to path on Commit.
type Writer struct {
	path    string
	encoder raftspec.Encoder
}

// NewWriter creates a new Writer for the given path. Quantities are rounded
// to decimals places.
func NewWriter(path string, decimals int) *Writer {
	return &Writer{
		path:    path,
		encoder: raftspec.Encoder{Decimals: decimals},
	}
}

func (w *Writer) tempPath() string {
	return w.path + ".tmp"
}

// Path returns the final path of the dataset.
func (w *Writer) Path() string {
	return w.path
}

// Save encodes the dataset to the temporary file, replacing any earlier save.
func (w *Writer) Save(ctx context.Context, d *raftspec.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := w.encoder.Dataset(d)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(w.tempPath(), append(b, '\n'), 0644)
}

// Commit moves the temporary file to its final path.
func (w *Writer) Commit() error {
	if _, err := os.Stat(w.tempPath()); err != nil {
		if os.IsNotExist(err) {
			return raftspec.Errorf(raftspec.EINVALID, "nothing to commit for %s", w.path)
		}
		return err
	}
	return os.Rename(w.tempPath(), w.path)
}

// Abort removes the temporary file.
func (w *Writer) Abort() error {
	if err := os.Remove(w.tempPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Package snapshot reads and writes the four CSV files that make up one
// collector cycle. Files are replaced wholesale on every write.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

// Writer overwrites the output files in a fixed directory
type Writer struct {
	dir string
}

// NewWriter creates a writer for dir. The directory is created on first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns the file path for a category
func (w *Writer) Path(c models.Category) string {
	return filepath.Join(w.dir, c.FileName())
}

// Write replaces every category file, header included even when a category
// has no rows. Each file is written to a temporary name and renamed into
// place, so a reader sees either the previous or the new contents.
func (w *Writer) Write(snap *models.Snapshot) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, c := range models.Categories {
		if err := w.replace(c, snap.Rows[c]); err != nil {
			return fmt.Errorf("writing %s: %w", c.FileName(), err)
		}
	}
	return nil
}

func (w *Writer) replace(c models.Category, rows []models.Row) error {
	tmp, err := os.CreateTemp(w.dir, "."+c.FileName()+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := WriteRows(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, w.Path(c)); err != nil {
		return fmt.Errorf("replacing file: %w", err)
	}
	return nil
}

// Package cloudwriter mirrors the diagram CSV files to object storage.
package cloudwriter

import (
	"context"
	"fmt"
	"path"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/snapshot"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

// CloudWriter buffers one object; Close stores it
type CloudWriter interface {
	Write(data []byte) (int, error)
	Close() error
}

// CloudWriterFactory opens a writer for bucket/objectPath. The writer uses
// ctx for the upload done on Close.
type CloudWriterFactory interface {
	NewWriter(ctx context.Context, bucket, objectPath string) (CloudWriter, error)
}

// Mirror copies every snapshot file to the same name under a bucket prefix,
// replacing the previous objects
type Mirror struct {
	factory CloudWriterFactory
	bucket  string
	prefix  string
}

// NewMirror returns a Mirror writing under prefix in bucket
func NewMirror(factory CloudWriterFactory, bucket, prefix string) *Mirror {
	return &Mirror{factory: factory, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a category
func (m *Mirror) Key(c models.Category) string {
	return path.Join(m.prefix, c.FileName())
}

// Upload writes the four CSV files of the snapshot, stopping at the first
// failure
func (m *Mirror) Upload(ctx context.Context, snap *models.Snapshot) error {
	for _, c := range models.Categories {
		data, err := snapshot.Render(snap.Rows[c])
		if err != nil {
			return fmt.Errorf("rendering %s: %w", c.FileName(), err)
		}

		key := m.Key(c)
		w, err := m.factory.NewWriter(ctx, m.bucket, key)
		if err != nil {
			return fmt.Errorf("creating writer for %s: %w", key, err)
		}
		if _, err := w.Write(data); err != nil {
			w.Close()
			return fmt.Errorf("writing %s: %w", key, err)
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

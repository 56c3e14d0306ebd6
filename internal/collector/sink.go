package collector

import (
	"context"

	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

// Sink receives every snapshot after its files are in place
type Sink interface {
	Name() string
	Deliver(ctx context.Context, snap *models.Snapshot, sum models.SnapshotSummary) error
}

type sinkFunc struct {
	name string
	fn   func(context.Context, *models.Snapshot, models.SnapshotSummary) error
}

func (s sinkFunc) Name() string { return s.name }

func (s sinkFunc) Deliver(ctx context.Context, snap *models.Snapshot, sum models.SnapshotSummary) error {
	return s.fn(ctx, snap, sum)
}

// NewSink adapts a function to a named Sink
func NewSink(name string, fn func(context.Context, *models.Snapshot, models.SnapshotSummary) error) Sink {
	return sinkFunc{name: name, fn: fn}
}

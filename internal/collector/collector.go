// Package collector runs the minute loop: fetch one minute of VISTA data,
// update the diagram history, replace the CSV files, then hand the snapshot
// to the configured sinks.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/diagram"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/metrics"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/snapshot"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

// Source provides one minute of cycle and detector data
type Source interface {
	FetchCycles(ctx context.Context, minute time.Time) (models.CycleData, error)
	FetchEvents(ctx context.Context, minute time.Time) (models.EventData, error)
}

// Options tune the loop. Zero values fall back to a one hour lag, a one
// minute interval and the wall clock.
type Options struct {
	HourLag  int
	Interval time.Duration
	Now      func() time.Time
	After    func(time.Duration) <-chan time.Time
	NewID    func() string
}

// Collector owns the diagram history; it is driven from a single goroutine
type Collector struct {
	source Source
	writer *snapshot.Writer
	state  *diagram.State
	sinks  []Sink
	log    zerolog.Logger

	lag      time.Duration
	interval time.Duration
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
	newID    func() string
}

// New creates a collector writing to w. Sinks run in the order given.
func New(source Source, w *snapshot.Writer, log zerolog.Logger, opts Options, sinks ...Sink) *Collector {
	c := &Collector{
		source:   source,
		writer:   w,
		state:    diagram.NewState(),
		sinks:    sinks,
		log:      log,
		lag:      time.Duration(opts.HourLag) * time.Hour,
		interval: opts.Interval,
		now:      opts.Now,
		after:    opts.After,
		newID:    opts.NewID,
	}
	if opts.HourLag < 0 {
		c.lag = 0
	}
	if c.interval <= 0 {
		c.interval = time.Minute
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.after == nil {
		c.after = time.After
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// State exposes the diagram history
func (c *Collector) State() *diagram.State {
	return c.state
}

// TargetMinute returns the API minute to request at now: UTC truncated to
// the minute, shifted back by the configured lag
func (c *Collector) TargetMinute(now time.Time) time.Time {
	return now.UTC().Truncate(time.Minute).Add(-c.lag)
}

// Run polls until ctx is cancelled. Each distinct target minute is collected
// once; between cycles the loop sleeps until the next interval boundary.
func (c *Collector) Run(ctx context.Context) error {
	var prev time.Time
	for {
		now := c.now()
		minute := c.TargetMinute(now)
		if !minute.Equal(prev) {
			if _, err := c.RunOnce(ctx, minute); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.log.Error().Err(err).Time("minute", minute).Msg("cycle failed")
			}
			prev = minute
			now = c.now()
		}

		wait := now.Truncate(c.interval).Add(c.interval).Sub(now)
		select {
		case <-ctx.Done():
			return nil
		case <-c.after(wait):
		}
	}
}

// RunOnce collects a single minute and replaces the CSV files. A failed
// fetch leaves that source empty for the cycle; sink failures are logged.
func (c *Collector) RunOnce(ctx context.Context, minute time.Time) (*models.Snapshot, error) {
	start := time.Now()

	var (
		cycles models.CycleData
		events models.EventData
		g      errgroup.Group
	)
	g.Go(func() error {
		data, err := c.source.FetchCycles(ctx, minute)
		if err != nil {
			metrics.FetchErrors.WithLabelValues("cycles").Inc()
			c.log.Warn().Err(err).Time("minute", minute).Msg("fetching cycles")
			return nil
		}
		cycles = data
		return nil
	})
	g.Go(func() error {
		data, err := c.source.FetchEvents(ctx, minute)
		if err != nil {
			metrics.FetchErrors.WithLabelValues("traffic").Inc()
			c.log.Warn().Err(err).Time("minute", minute).Msg("fetching traffic")
			return nil
		}
		events = data
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.state.UpdateCycles(cycles)
	c.state.UpdateEvents(events)

	snap := c.state.Snapshot(c.newID(), minute)
	if err := c.writer.Write(snap); err != nil {
		metrics.CycleErrors.Inc()
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}

	sum := snap.Summary(c.now().UTC())
	metrics.Cycles.Inc()
	metrics.LastSnapshot.Set(float64(sum.CreatedAt.Unix()))
	for _, cat := range models.Categories {
		metrics.Rows.WithLabelValues(cat.String()).Set(float64(snap.Count(cat)))
	}
	metrics.ObserveCycleLatency(start)

	c.log.Info().
		Str("id", snap.ID).
		Time("minute", minute).
		Int("cycle_locations", len(cycles)).
		Int("event_locations", len(events)).
		Int("green", sum.Green).
		Int("yellow", sum.Yellow).
		Int("red", sum.Red).
		Int("dots", sum.Dots).
		Msg("snapshot written")

	for _, s := range c.sinks {
		if err := s.Deliver(ctx, snap, sum); err != nil {
			metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			c.log.Warn().Err(err).Str("sink", s.Name()).Str("id", snap.ID).Msg("delivering snapshot")
		}
	}

	return snap, nil
}

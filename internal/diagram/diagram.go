// Package diagram builds Purdue coordination diagram points from cycle and
// detector data.
//
// Each location keeps a short history: the last three points per light color
// and the last three minutes of detector events. Lines are drawn between the
// two newest points of a color; dots are the detector events from two minutes
// ago plotted against the red start that precedes them most closely.
package diagram

import (
	"math"
	"sort"
	"time"

	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

const (
	// MaxCyclePoints is how many points are kept per location and color
	MaxCyclePoints = 3
	// MaxEventBatches is how many minutes of detector events are kept per location
	MaxEventBatches = 3
)

// State is the in-memory history the diagram is computed from. It is not
// safe for concurrent use.
type State struct {
	points map[models.Location]*[3][]models.Point
	events map[models.Location][][]float64
}

// NewState returns an empty history
func NewState() *State {
	return &State{
		points: make(map[models.Location]*[3][]models.Point),
		events: make(map[models.Location][][]float64),
	}
}

// UnixSeconds converts t to fractional unix seconds at microsecond precision
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func (s *State) stored(loc models.Location) *[3][]models.Point {
	p, ok := s.points[loc]
	if !ok {
		p = &[3][]models.Point{}
		s.points[loc] = p
	}
	return p
}

func last(points []models.Point) *models.Point {
	if len(points) == 0 {
		return nil
	}
	p := points[len(points)-1]
	return &p
}

func appendTrim[T any](s []T, v T, max int) []T {
	s = append(s, v)
	if len(s) > max {
		s = append(s[:0:0], s[len(s)-max:]...)
	}
	return s
}

// UpdateCycles adds one minute of cycle data. Colors are handled in G, Y, R
// order so a cycle's yellow and red can be positioned relative to its green.
func (s *State) UpdateCycles(data models.CycleData) {
	for loc, cycles := range data {
		stored := s.stored(loc)
		for _, times := range cycles {
			var current [3]*models.Point

			for _, color := range models.Colors {
				t := times[color]
				prev := last(stored[color])
				prevRed := last(stored[models.Red])

				var p models.Point
				switch {
				case t.IsZero() && prev == nil:
					continue
				case t.IsZero():
					// Nothing new for this color, carry the previous point forward
					p = *prev
				case prev == nil:
					p = secondsPoint(t)
				case color == models.Green && prevRed != nil:
					x := UnixSeconds(t)
					p = models.Point{X: x, Y: x - prevRed.X}
				case color == models.Yellow && current[models.Green] != nil:
					p = relativePoint(t, *current[models.Green])
				case color == models.Red && current[models.Yellow] != nil:
					p = relativePoint(t, *current[models.Yellow])
				case color == models.Red && current[models.Green] != nil:
					p = relativePoint(t, *current[models.Green])
				default:
					p = secondsPoint(t)
				}

				current[color] = &p
				stored[color] = appendTrim(stored[color], p, MaxCyclePoints)
			}
		}
	}
}

// secondsPoint places t at its second-of-minute
func secondsPoint(t time.Time) models.Point {
	return models.Point{X: UnixSeconds(t), Y: float64(t.Second())}
}

// relativePoint places t after base by the elapsed time since base
func relativePoint(t time.Time, base models.Point) models.Point {
	x := UnixSeconds(t)
	return models.Point{X: x, Y: base.Y + x - base.X}
}

// UpdateEvents adds one minute of detector events
func (s *State) UpdateEvents(data models.EventData) {
	for loc, events := range data {
		batch := make([]float64, 0, len(events))
		for _, e := range events {
			batch = append(batch, UnixSeconds(e))
		}
		s.events[loc] = appendTrim(s.events[loc], batch, MaxEventBatches)
	}
}

// Points returns a copy of the stored points for a location and color
func (s *State) Points(loc models.Location, color models.Color) []models.Point {
	p, ok := s.points[loc]
	if !ok {
		return nil
	}
	return append([]models.Point(nil), p[color]...)
}

// EventBatches returns how many minutes of events are stored for a location
func (s *State) EventBatches(loc models.Location) int {
	return len(s.events[loc])
}

func sortedLocations[V any](m map[models.Location]V) []models.Location {
	locs := make([]models.Location, 0, len(m))
	for loc := range m {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].Less(locs[j]) })
	return locs
}

// Lines returns the segment between the two newest points of the color for
// every location that has at least two
func (s *State) Lines(color models.Color) []models.Row {
	var rows []models.Row
	for _, loc := range sortedLocations(s.points) {
		points := s.points[loc][color]
		if len(points) < 2 {
			continue
		}
		for _, p := range points[len(points)-2:] {
			rows = append(rows, models.Row{Location: loc, Point: p})
		}
	}
	return rows
}

// Dots returns the detector events of the oldest stored minute, each placed
// at its offset from the closest preceding red start. Locations without a
// full event history or three red points are skipped, as are events that
// precede every stored red.
func (s *State) Dots() []models.Row {
	var rows []models.Row
	for _, loc := range sortedLocations(s.events) {
		batches := s.events[loc]
		var reds []models.Point
		if p, ok := s.points[loc]; ok {
			reds = p[models.Red]
		}
		if len(batches) < MaxEventBatches || len(reds) < MaxCyclePoints {
			continue
		}

		oldest := append([]float64(nil), batches[0]...)
		sort.Float64s(oldest)
		for _, event := range oldest {
			diff := math.Inf(1)
			for _, red := range reds {
				if d := event - red.X; d >= 0 && d < diff {
					diff = d
				}
			}
			if math.IsInf(diff, 1) {
				continue
			}
			rows = append(rows, models.Row{Location: loc, Point: models.Point{X: event, Y: diff}})
		}
	}
	return rows
}

// Snapshot renders every output bucket for the given minute
func (s *State) Snapshot(id string, minute time.Time) *models.Snapshot {
	snap := &models.Snapshot{
		ID:     id,
		Minute: minute,
		Rows:   make(map[models.Category][]models.Row, len(models.Categories)),
	}
	for _, color := range models.Colors {
		snap.Rows[models.LineCategory(color)] = s.Lines(color)
	}
	snap.Rows[models.Dots] = s.Dots()
	return snap
}

package models

import (
	"fmt"
	"time"
)

// CycleTimes holds the start time of each indication within one cycle,
// indexed by Color. A zero time means the API did not report that color.
type CycleTimes [3]time.Time

// Has reports whether the given color has a start time
func (c CycleTimes) Has(color Color) bool {
	return !c[color].IsZero()
}

// Any reports whether at least one color has a start time
func (c CycleTimes) Any() bool {
	for _, color := range Colors {
		if c.Has(color) {
			return true
		}
	}
	return false
}

// CycleData is the decoded cycles API message for one minute
type CycleData map[Location][]CycleTimes

// EventData is the decoded traffic API message for one minute: detector
// trigger times per location
type EventData map[Location][]time.Time

// Category is one of the four output buckets
type Category int

const (
	GreenLines Category = iota
	YellowLines
	RedLines
	Dots
)

// Categories lists every output bucket in file-writing order
var Categories = []Category{GreenLines, YellowLines, RedLines, Dots}

// LineCategory returns the line bucket for a light color
func LineCategory(c Color) Category {
	switch c {
	case Green:
		return GreenLines
	case Yellow:
		return YellowLines
	default:
		return RedLines
	}
}

// FileName returns the fixed CSV file name for the bucket
func (c Category) FileName() string {
	switch c {
	case GreenLines:
		return "green_lines.csv"
	case YellowLines:
		return "yellow_lines.csv"
	case RedLines:
		return "red_lines.csv"
	case Dots:
		return "dots.csv"
	default:
		return fmt.Sprintf("category_%d.csv", int(c))
	}
}

func (c Category) String() string {
	switch c {
	case GreenLines:
		return "green"
	case YellowLines:
		return "yellow"
	case RedLines:
		return "red"
	case Dots:
		return "dots"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory parses the String form of a category
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category: %s (available: green, yellow, red, dots)", s)
}

// Snapshot is everything written in one cycle of the collector
type Snapshot struct {
	ID     string             `json:"id"`
	Minute time.Time          `json:"minute"` // the API minute the data was requested for
	Rows   map[Category][]Row `json:"-"`
}

// Count returns the number of rows in a bucket
func (s *Snapshot) Count(c Category) int {
	return len(s.Rows[c])
}

// SnapshotSummary describes an archived snapshot without its rows
type SnapshotSummary struct {
	ID        string    `json:"id"`
	Minute    time.Time `json:"minute"`
	CreatedAt time.Time `json:"created_at"`
	Green     int       `json:"green"`
	Yellow    int       `json:"yellow"`
	Red       int       `json:"red"`
	Dots      int       `json:"dots"`
	Published bool      `json:"published"`
}

// Summary returns the row counts of the snapshot
func (s *Snapshot) Summary(createdAt time.Time) SnapshotSummary {
	return SnapshotSummary{
		ID:        s.ID,
		Minute:    s.Minute,
		CreatedAt: createdAt,
		Green:     s.Count(GreenLines),
		Yellow:    s.Count(YellowLines),
		Red:       s.Count(RedLines),
		Dots:      s.Count(Dots),
	}
}

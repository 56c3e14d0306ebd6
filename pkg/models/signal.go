package models

import "fmt"

// Color is a traffic light indication
type Color int

const (
	Green Color = iota
	Yellow
	Red
)

// Colors lists the indications in the order a cycle is processed (G, Y, R)
var Colors = []Color{Green, Yellow, Red}

// String returns the key used for the color in the cycles API
func (c Color) String() string {
	switch c {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// Location identifies one approach at one intersection (RSU + Bound + Movement)
type Location struct {
	RSU      int    `json:"rsu"`
	Bound    string `json:"bound"`
	Movement string `json:"movement"`
}

func (l Location) String() string {
	return fmt.Sprintf("RSU%d %s%s", l.RSU, l.Bound, l.Movement)
}

// Less orders locations by RSU, then Bound, then Movement
func (l Location) Less(o Location) bool {
	if l.RSU != o.RSU {
		return l.RSU < o.RSU
	}
	if l.Bound != o.Bound {
		return l.Bound < o.Bound
	}
	return l.Movement < o.Movement
}

// Point is a single diagram point. X is a unix timestamp in seconds with
// microsecond precision, Y is the position within the cycle in seconds.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Row is one CSV data row
type Row struct {
	Location
	Point
}

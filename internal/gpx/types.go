// Package gpx reads and writes GPX 1.1 documents.
package gpx

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedInput is wrapped by every Parse/Load failure. Callers treat it as a
// client error.
var ErrMalformedInput = errors.New("malformed gpx input")

const (
	Namespace = "http://www.topografix.com/GPX/1/1"
	Version   = "1.1"
)

// Kind tells which element a point is written as.
type Kind int

const (
	TrackPoint Kind = iota + 1
	RoutePoint
	Waypoint
)

// Element returns the GPX element name for the kind.
func (k Kind) Element() string {
	switch k {
	case TrackPoint:
		return "trkpt"
	case RoutePoint:
		return "rtept"
	case Waypoint:
		return "wpt"
	}
	return ""
}

func (k Kind) String() string {
	switch k {
	case TrackPoint:
		return "track-point"
	case RoutePoint:
		return "route-point"
	case Waypoint:
		return "waypoint"
	}
	return "unknown"
}

type Point struct {
	Kind        Kind
	Latitude    decimal.Decimal
	Longitude   decimal.Decimal
	Elevation   decimal.NullDecimal
	Time        *time.Time
	Name        string
	Description string
}

// Segment is one continuous run of track points.
type Segment struct {
	Points []Point
}

type Track struct {
	Name        string
	Description string
	Segments    []Segment
}

// Points returns the points of all segments in document order.
func (t Track) Points() []Point {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Points)
	}
	points := make([]Point, 0, n)
	for _, s := range t.Segments {
		points = append(points, s.Points...)
	}
	return points
}

type Route struct {
	Name        string
	Description string
	Points      []Point
}

type Metadata struct {
	Name        string
	Description string
	Author      string
	Keywords    string
	Time        *time.Time
}

func (m Metadata) IsZero() bool {
	return m.Name == "" && m.Description == "" && m.Author == "" && m.Keywords == "" && m.Time == nil
}

// Map flattens the metadata into string pairs, skipping empty values.
func (m Metadata) Map() map[string]string {
	out := map[string]string{}
	if m.Name != "" {
		out["name"] = m.Name
	}
	if m.Description != "" {
		out["desc"] = m.Description
	}
	if m.Author != "" {
		out["author"] = m.Author
	}
	if m.Keywords != "" {
		out["keywords"] = m.Keywords
	}
	if m.Time != nil {
		out["time"] = m.Time.UTC().Format(time.RFC3339)
	}
	return out
}

// Document is the in-memory form of a GPX file.
type Document struct {
	Creator   string
	Metadata  Metadata
	Tracks    []Track
	Routes    []Route
	Waypoints []Point
}

// NewDocument returns a document with empty, non-nil collections.
func NewDocument(creator string) Document {
	return Document{
		Creator:   creator,
		Tracks:    []Track{},
		Routes:    []Route{},
		Waypoints: []Point{},
	}
}

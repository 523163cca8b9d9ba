package trip

import (
	"time"

	"github.com/shopspring/decimal"

	"backend-mapssaver/internal/gpx"
)

// PointRecord is one parsed point, detached from any parent.
type PointRecord struct {
	Latitude    decimal.Decimal
	Longitude   decimal.Decimal
	Elevation   decimal.NullDecimal
	Time        *time.Time
	Name        string
	Description string
}

type TrackRecord struct {
	Name        string
	Description string
	Points      []PointRecord
}

type RouteRecord struct {
	Name        string
	Description string
	Points      []PointRecord
}

// Records is the flat result of reading a GPX document.
type Records struct {
	Tracks    []TrackRecord
	Routes    []RouteRecord
	Waypoints []PointRecord
}

// Decompose flattens doc into records. The segments of a track are joined
// into one ordered point list.
func Decompose(doc gpx.Document) Records {
	rec := Records{
		Tracks:    make([]TrackRecord, 0, len(doc.Tracks)),
		Routes:    make([]RouteRecord, 0, len(doc.Routes)),
		Waypoints: pointRecords(doc.Waypoints),
	}
	for _, t := range doc.Tracks {
		rec.Tracks = append(rec.Tracks, TrackRecord{
			Name:        t.Name,
			Description: t.Description,
			Points:      pointRecords(t.Points()),
		})
	}
	for _, r := range doc.Routes {
		rec.Routes = append(rec.Routes, RouteRecord{
			Name:        r.Name,
			Description: r.Description,
			Points:      pointRecords(r.Points),
		})
	}
	return rec
}

func pointRecords(points []gpx.Point) []PointRecord {
	out := make([]PointRecord, 0, len(points))
	for _, p := range points {
		out = append(out, PointRecord{
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			Elevation:   p.Elevation,
			Time:        p.Time,
			Name:        p.Name,
			Description: p.Description,
		})
	}
	return out
}

// maxNameLen is the width of the name columns of tracks, routes and points.
const maxNameLen = 255

// Hydrate turns records into tracks, routes and waypoints of t. A point is
// attached to its parent before the parent is attached to the trip. Names
// are cut to maxNameLen characters. Nothing is persisted here.
func Hydrate(rec Records, t *Trip) {
	for _, tr := range rec.Tracks {
		track := NewTrack(truncate(tr.Name, maxNameLen), tr.Description)
		for _, pr := range tr.Points {
			track.AddPoint(newPointFromRecord(pr))
		}
		t.AddTrack(track)
	}
	for _, rr := range rec.Routes {
		route := NewRoute(truncate(rr.Name, maxNameLen), rr.Description)
		for _, pr := range rr.Points {
			route.AddPoint(newPointFromRecord(pr))
		}
		t.AddRoute(route)
	}
	for _, pr := range rec.Waypoints {
		t.AddWaypoint(newPointFromRecord(pr))
	}
}

func newPointFromRecord(pr PointRecord) *Point {
	p := NewPoint(pr.Latitude, pr.Longitude)
	p.Elevation = pr.Elevation
	p.Time = pr.Time
	p.Name = truncate(pr.Name, maxNameLen)
	p.Description = pr.Description
	return p
}

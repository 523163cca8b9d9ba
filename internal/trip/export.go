package trip

import (
	"github.com/samber/lo"

	"backend-mapssaver/internal/gpx"
)

// Compose builds the GPX form of a loaded trip. Every track becomes one gpx
// track with a single segment, routes map one to one and trip level points
// become waypoints. It only reads t.
func Compose(t *Trip) gpx.Document {
	doc := gpx.NewDocument(t.Creator)
	doc.Metadata = composeMetadata(t)

	doc.Tracks = lo.Map(t.Tracks, func(track *Track, _ int) gpx.Track {
		return gpx.Track{
			Name:        track.Name,
			Description: track.Description,
			Segments: []gpx.Segment{
				{Points: composePoints(track.Points, gpx.TrackPoint)},
			},
		}
	})
	doc.Routes = lo.Map(t.Routes, func(route *Route, _ int) gpx.Route {
		return gpx.Route{
			Name:        route.Name,
			Description: route.Description,
			Points:      composePoints(route.Points, gpx.RoutePoint),
		}
	})
	doc.Waypoints = composePoints(t.Points, gpx.Waypoint)
	return doc
}

// composeMetadata is intentionally empty: which trip fields belong in the
// exported <metadata> block is not decided yet.
func composeMetadata(_ *Trip) gpx.Metadata {
	return gpx.Metadata{}
}

func composePoints(points []*Point, kind gpx.Kind) []gpx.Point {
	return lo.Map(points, func(p *Point, _ int) gpx.Point {
		return gpx.Point{
			Kind:        kind,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			Elevation:   p.Elevation,
			Time:        p.Time,
			Name:        p.Name,
			Description: p.Description,
		}
	})
}

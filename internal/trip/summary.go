package trip

import "backend-mapssaver/internal/shared/geo"

type Summary struct {
	Tracks    int     `json:"tracks"`
	Routes    int     `json:"routes"`
	Waypoints int     `json:"waypoints"`
	Points    int     `json:"points"`
	TrackKm   float64 `json:"track_km"`
	RouteKm   float64 `json:"route_km"`
}

// Summarize counts the parts of a loaded trip and measures its tracks and
// routes along the great circle.
func Summarize(t *Trip) Summary {
	s := Summary{
		Tracks:    len(t.Tracks),
		Routes:    len(t.Routes),
		Waypoints: len(t.Points),
		Points:    len(t.Points),
	}
	for _, track := range t.Tracks {
		s.Points += len(track.Points)
		s.TrackKm += geo.PathKm(coords(track.Points))
	}
	for _, route := range t.Routes {
		s.Points += len(route.Points)
		s.RouteKm += geo.PathKm(coords(route.Points))
	}
	return s
}

func coords(points []*Point) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p.Latitude.InexactFloat64(), p.Longitude.InexactFloat64()}
	}
	return out
}

package trip

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-mapssaver/internal/gpx"
)

func pt(lat, lon string) *Point {
	return NewPoint(decimal.RequireFromString(lat), decimal.RequireFromString(lon))
}

func sampleTrip() *Trip {
	t := NewTrip("user-1", "Velebit")
	t.Creator = "Garmin Connect"

	day1 := NewTrack("Day 1", "Morning")
	start := pt("45.0", "15.0")
	start.Elevation = decimal.NewNullDecimal(decimal.RequireFromString("100"))
	ts := time.Date(2019, 8, 1, 7, 0, 0, 0, time.UTC)
	start.Time = &ts
	day1.AddPoint(start)
	day1.AddPoint(pt("45.1", "15.1"))
	t.AddTrack(day1)
	t.AddTrack(NewTrack("Day 2", ""))

	plan := NewRoute("Plan", "Planned line")
	plan.AddPoint(pt("44.1", "15.1"))
	plan.AddPoint(pt("44.2", "15.2"))
	plan.AddPoint(pt("44.3", "15.3"))
	t.AddRoute(plan)

	hut := pt("44.7", "15.0")
	hut.Name = "Hut"
	t.AddWaypoint(hut)
	return t
}

type shape struct {
	Kind   OwnerKind
	Parent int
	Lat    string
	Lon    string
	Ele    string
}

// shapes lists every point with its owner kind and the position of its parent.
func shapes(t *Trip) []shape {
	var out []shape
	add := func(kind OwnerKind, parent int, p *Point) {
		ele := ""
		if p.Elevation.Valid {
			ele = p.Elevation.Decimal.String()
		}
		out = append(out, shape{kind, parent, p.Latitude.String(), p.Longitude.String(), ele})
	}
	for i, track := range t.Tracks {
		for _, p := range track.Points {
			add(OwnerTrack, i, p)
		}
	}
	for i, route := range t.Routes {
		for _, p := range route.Points {
			add(OwnerRoute, i, p)
		}
	}
	for _, p := range t.Points {
		add(OwnerTrip, 0, p)
	}
	return out
}

func TestComposeHydrateRoundTrip(t *testing.T) {
	src := sampleTrip()

	dst := NewTrip("user-1", "copy")
	Hydrate(Decompose(Compose(src)), dst)

	if diff := cmp.Diff(shapes(src), shapes(dst)); diff != "" {
		t.Fatalf("graph mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, dst.Tracks, 2)
	assert.Equal(t, "Day 1", dst.Tracks[0].Name)
	assert.Equal(t, "Morning", dst.Tracks[0].Description)
	assert.Equal(t, "Hut", dst.Points[0].Name)
	assert.Equal(t, src.Tracks[0].Points[0].Time, dst.Tracks[0].Points[0].Time)
}

func TestComposeThroughXMLRoundTrip(t *testing.T) {
	src := sampleTrip()
	out, err := gpx.Serialize(Compose(src))
	require.NoError(t, err)

	doc, err := gpx.Parse(out)
	require.NoError(t, err)

	dst := NewTrip("user-1", "copy")
	Hydrate(Decompose(doc), dst)
	if diff := cmp.Diff(shapes(src), shapes(dst)); diff != "" {
		t.Fatalf("graph mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeKindTagging(t *testing.T) {
	doc := Compose(sampleTrip())

	for _, track := range doc.Tracks {
		require.Len(t, track.Segments, 1)
		for _, p := range track.Points() {
			assert.Equal(t, gpx.TrackPoint, p.Kind)
		}
	}
	for _, route := range doc.Routes {
		for _, p := range route.Points {
			assert.Equal(t, gpx.RoutePoint, p.Kind)
		}
	}
	require.Len(t, doc.Waypoints, 1)
	assert.Equal(t, gpx.Waypoint, doc.Waypoints[0].Kind)
}

func TestComposeEmptyTrip(t *testing.T) {
	doc := Compose(NewTrip("user-1", "empty"))

	assert.NotNil(t, doc.Tracks)
	assert.NotNil(t, doc.Routes)
	assert.NotNil(t, doc.Waypoints)
	assert.Empty(t, doc.Tracks)
	assert.Empty(t, doc.Routes)
	assert.Empty(t, doc.Waypoints)
	assert.Equal(t, "", doc.Creator)
	assert.True(t, doc.Metadata.IsZero())

	withCreator := NewTrip("user-1", "empty")
	withCreator.Creator = "Strava"
	assert.Equal(t, "Strava", Compose(withCreator).Creator)
}

func TestComposeMetadataIsEmpty(t *testing.T) {
	src := sampleTrip()
	src.Metadata = map[string]string{"name": "Velebit", "author": "Ana"}
	assert.True(t, Compose(src).Metadata.IsZero())
}

func TestDecomposeSimpleTrack(t *testing.T) {
	doc, err := gpx.Parse([]byte(`<gpx><trk><trkseg><trkpt lat="45.0" lon="15.0"><ele>100</ele></trkpt></trkseg></trk></gpx>`))
	require.NoError(t, err)

	rec := Decompose(doc)
	require.Len(t, rec.Tracks, 1)
	require.Len(t, rec.Tracks[0].Points, 1)
	assert.Empty(t, rec.Routes)
	assert.Empty(t, rec.Waypoints)

	p := rec.Tracks[0].Points[0]
	assert.True(t, p.Latitude.Equal(decimal.RequireFromString("45.0")))
	assert.True(t, p.Longitude.Equal(decimal.RequireFromString("15.0")))
	require.True(t, p.Elevation.Valid)
	assert.True(t, p.Elevation.Decimal.Equal(decimal.NewFromInt(100)))
}

func TestDecomposeJoinsSegments(t *testing.T) {
	doc := gpx.NewDocument("")
	doc.Tracks = []gpx.Track{{Segments: []gpx.Segment{
		{Points: []gpx.Point{{Kind: gpx.TrackPoint, Latitude: decimal.NewFromInt(1), Longitude: decimal.NewFromInt(2)}}},
		{Points: []gpx.Point{{Kind: gpx.TrackPoint, Latitude: decimal.NewFromInt(3), Longitude: decimal.NewFromInt(4)}}},
	}}}

	rec := Decompose(doc)
	require.Len(t, rec.Tracks, 1)
	require.Len(t, rec.Tracks[0].Points, 2)
	assert.Equal(t, "3", rec.Tracks[0].Points[1].Latitude.String())
}

func TestHydrateSetsOwners(t *testing.T) {
	doc := Compose(sampleTrip())
	dst := NewTrip("user-1", "copy")
	Hydrate(Decompose(doc), dst)

	for _, track := range dst.Tracks {
		assert.Equal(t, dst.ID, track.TripID)
		for _, p := range track.Points {
			assert.Equal(t, Owner{Kind: OwnerTrack, ID: track.ID}, p.Owner())
		}
	}
	for _, route := range dst.Routes {
		assert.Equal(t, dst.ID, route.TripID)
		for _, p := range route.Points {
			assert.Equal(t, Owner{Kind: OwnerRoute, ID: route.ID}, p.Owner())
		}
	}
	for _, p := range dst.Points {
		assert.Equal(t, Owner{Kind: OwnerTrip, ID: dst.ID}, p.Owner())
	}
}

func TestOwnerKindNames(t *testing.T) {
	for _, k := range []OwnerKind{OwnerTrack, OwnerRoute, OwnerTrip} {
		got, ok := parseOwnerKind(k.String())
		if !ok || got != k {
			t.Fatalf("parseOwnerKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := parseOwnerKind("segment"); ok {
		t.Fatalf("unknown kind accepted")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTrip())

	assert.Equal(t, 2, s.Tracks)
	assert.Equal(t, 1, s.Routes)
	assert.Equal(t, 1, s.Waypoints)
	assert.Equal(t, 6, s.Points)
	// 0.1 degree steps along a diagonal near 45N are roughly 13.6 km each.
	assert.InDelta(t, 13.6, s.TrackKm, 0.5)
	assert.InDelta(t, 27.4, s.RouteKm, 1.0)

	empty := Summarize(NewTrip("user-1", "empty"))
	assert.Zero(t, empty.TrackKm)
	assert.Zero(t, empty.Points)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "čć", truncate("čćž", 2))
}

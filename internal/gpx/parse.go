package gpx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Load reads r to the end and parses it. Read failures are reported as
// malformed input, the same as a broken document.
func Load(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, malformed(fmt.Errorf("read: %w", err))
	}
	return Parse(data)
}

// Parse decodes a GPX document. The root element must be <gpx>; every
// trkpt, rtept and wpt must carry decimal lat and lon attributes.
func Parse(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, malformed(errors.New("empty document"))
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		doc   Document
		found bool
	)
	for {
		token, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Document{}, malformed(err)
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if found {
			return Document{}, malformed(fmt.Errorf("unexpected element %q after gpx root", se.Name.Local))
		}
		if se.Name.Local != "gpx" {
			return Document{}, malformed(fmt.Errorf("unexpected root element %q", se.Name.Local))
		}
		if doc, err = decodeDocument(dec, se); err != nil {
			return Document{}, malformed(err)
		}
		found = true
	}
	if !found {
		return Document{}, malformed(errors.New("missing gpx root element"))
	}
	return doc, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedInput, err)
}

func decodeDocument(dec *xml.Decoder, se xml.StartElement) (Document, error) {
	doc := NewDocument(attrValue(se, "creator"))

	for {
		token, err := dec.Token()
		if err != nil {
			return Document{}, fmt.Errorf("gpx: %w", err)
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "metadata":
				err = decodeMetadata(dec, elem, &doc.Metadata)
			case "trk":
				var track Track
				if track, err = decodeTrack(dec, elem); err == nil {
					doc.Tracks = append(doc.Tracks, track)
				}
			case "rte":
				var route Route
				if route, err = decodeRoute(dec, elem); err == nil {
					doc.Routes = append(doc.Routes, route)
				}
			case "wpt":
				var point Point
				if point, err = decodePoint(dec, elem, Waypoint); err == nil {
					doc.Waypoints = append(doc.Waypoints, point)
				}
			default:
				err = dec.Skip()
			}
			if err != nil {
				return Document{}, fmt.Errorf("%s: %w", elem.Name.Local, err)
			}

		case xml.EndElement:
			if elem == se.End() {
				return doc, nil
			}
		}
	}
}

func decodeMetadata(dec *xml.Decoder, se xml.StartElement, m *Metadata) error {
	var wire struct {
		Name     string `xml:"name"`
		Desc     string `xml:"desc"`
		Keywords string `xml:"keywords"`
		Time     string `xml:"time"`
		Author   struct {
			Name string `xml:"name"`
		} `xml:"author"`
	}
	if err := dec.DecodeElement(&wire, &se); err != nil {
		return err
	}
	m.Name = wire.Name
	m.Description = wire.Desc
	m.Keywords = wire.Keywords
	m.Author = wire.Author.Name
	m.Time = parseTime(wire.Time)
	return nil
}

func decodeTrack(dec *xml.Decoder, se xml.StartElement) (Track, error) {
	track := Track{Segments: []Segment{}}

	for {
		token, err := dec.Token()
		if err != nil {
			return Track{}, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "name":
				err = dec.DecodeElement(&track.Name, &elem)
			case "desc":
				err = dec.DecodeElement(&track.Description, &elem)
			case "trkseg":
				var segment Segment
				if segment, err = decodeSegment(dec, elem); err == nil {
					track.Segments = append(track.Segments, segment)
				}
			default:
				err = dec.Skip()
			}
			if err != nil {
				return Track{}, fmt.Errorf("%s: %w", elem.Name.Local, err)
			}

		case xml.EndElement:
			if elem == se.End() {
				return track, nil
			}
		}
	}
}

func decodeSegment(dec *xml.Decoder, se xml.StartElement) (Segment, error) {
	segment := Segment{Points: []Point{}}

	for {
		token, err := dec.Token()
		if err != nil {
			return Segment{}, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			if elem.Name.Local != "trkpt" {
				if err := dec.Skip(); err != nil {
					return Segment{}, err
				}
				continue
			}
			point, err := decodePoint(dec, elem, TrackPoint)
			if err != nil {
				return Segment{}, fmt.Errorf("trkpt %d: %w", len(segment.Points), err)
			}
			segment.Points = append(segment.Points, point)

		case xml.EndElement:
			if elem == se.End() {
				return segment, nil
			}
		}
	}
}

func decodeRoute(dec *xml.Decoder, se xml.StartElement) (Route, error) {
	route := Route{Points: []Point{}}

	for {
		token, err := dec.Token()
		if err != nil {
			return Route{}, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "name":
				err = dec.DecodeElement(&route.Name, &elem)
			case "desc":
				err = dec.DecodeElement(&route.Description, &elem)
			case "rtept":
				var point Point
				if point, err = decodePoint(dec, elem, RoutePoint); err == nil {
					route.Points = append(route.Points, point)
				}
			default:
				err = dec.Skip()
			}
			if err != nil {
				return Route{}, fmt.Errorf("%s: %w", elem.Name.Local, err)
			}

		case xml.EndElement:
			if elem == se.End() {
				return route, nil
			}
		}
	}
}

// wirePoint mirrors wptType; pointers tell a missing value from an empty one.
type wirePoint struct {
	Lat  *string `xml:"lat,attr"`
	Lon  *string `xml:"lon,attr"`
	Ele  *string `xml:"ele"`
	Time string  `xml:"time"`
	Name string  `xml:"name"`
	Desc string  `xml:"desc"`
}

func decodePoint(dec *xml.Decoder, se xml.StartElement, kind Kind) (Point, error) {
	var wire wirePoint
	if err := dec.DecodeElement(&wire, &se); err != nil {
		return Point{}, err
	}

	lat, err := requiredDecimal("lat", wire.Lat, maxLatitude)
	if err != nil {
		return Point{}, err
	}
	lon, err := requiredDecimal("lon", wire.Lon, maxLongitude)
	if err != nil {
		return Point{}, err
	}

	point := Point{
		Kind:        kind,
		Latitude:    lat,
		Longitude:   lon,
		Time:        parseTime(wire.Time),
		Name:        wire.Name,
		Description: wire.Desc,
	}
	if wire.Ele != nil && strings.TrimSpace(*wire.Ele) != "" {
		ele, err := boundedDecimal("ele", *wire.Ele, maxElevation)
		if err != nil {
			return Point{}, err
		}
		point.Elevation = decimal.NewNullDecimal(ele)
	}
	return point, nil
}

// Limits on point values. Exponents are checked before any comparison so a
// short "1e-50000000" never expands into a huge coefficient.
const (
	minExponent = -20
	maxExponent = 10
)

var (
	maxLatitude  = decimal.NewFromInt(90)
	maxLongitude = decimal.NewFromInt(180)
	maxElevation = decimal.NewFromInt(1_000_000)
)

func requiredDecimal(name string, value *string, limit decimal.Decimal) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Decimal{}, fmt.Errorf("missing %s attribute", name)
	}
	return boundedDecimal(name, *value, limit)
}

// boundedDecimal parses value and checks it lies within [-limit, limit].
func boundedDecimal(name, value string, limit decimal.Decimal) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", name, err)
	}
	if exp := d.Exponent(); exp < minExponent || exp > maxExponent {
		return decimal.Decimal{}, fmt.Errorf("%s: exponent %d out of range", name, exp)
	}
	if d.Abs().GreaterThan(limit) {
		return decimal.Decimal{}, fmt.Errorf("%s: %s outside [-%s, %s]", name, d, limit, limit)
	}
	return d, nil
}

// parseTime returns nil for empty or unparseable values.
func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}

func attrValue(se xml.StartElement, name string) string {
	for _, attr := range se.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

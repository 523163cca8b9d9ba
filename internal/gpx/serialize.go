package gpx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"
)

// Serialize renders doc as an indented GPX 1.1 document. Element order is
// metadata, tracks, routes, waypoints; optional point children are left out
// when empty. The output only depends on doc.
func Serialize(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	w := &writer{enc: enc}

	root := xml.StartElement{
		Name: xml.Name{Space: Namespace, Local: "gpx"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "version"}, Value: Version},
			{Name: xml.Name{Local: "creator"}, Value: doc.Creator},
		},
	}
	w.start(root)
	if !doc.Metadata.IsZero() {
		w.metadata(doc.Metadata)
	}
	for _, track := range doc.Tracks {
		w.track(track)
	}
	for _, route := range doc.Routes {
		w.route(route)
	}
	for _, point := range doc.Waypoints {
		w.point(point, Waypoint)
	}
	w.end(root)

	if w.err == nil {
		w.err = enc.Flush()
	}
	if w.err != nil {
		return nil, fmt.Errorf("serialize gpx: %w", w.err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// writer keeps the first encoder error so the tree walk stays linear.
type writer struct {
	enc *xml.Encoder
	err error
}

func (w *writer) start(se xml.StartElement) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(se)
	}
}

func (w *writer) end(se xml.StartElement) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(se.End())
	}
}

func (w *writer) text(name, value string) {
	if w.err != nil || value == "" {
		return
	}
	w.err = w.enc.EncodeElement(value, xml.StartElement{Name: xml.Name{Local: name}})
}

func (w *writer) timestamp(name string, t *time.Time) {
	if t == nil {
		return
	}
	w.text(name, t.UTC().Format(time.RFC3339Nano))
}

func (w *writer) metadata(m Metadata) {
	se := element("metadata")
	w.start(se)
	w.text("name", m.Name)
	w.text("desc", m.Description)
	if m.Author != "" {
		author := element("author")
		w.start(author)
		w.text("name", m.Author)
		w.end(author)
	}
	w.timestamp("time", m.Time)
	w.text("keywords", m.Keywords)
	w.end(se)
}

func (w *writer) track(t Track) {
	se := element("trk")
	w.start(se)
	w.text("name", t.Name)
	w.text("desc", t.Description)
	for _, segment := range t.Segments {
		seg := element("trkseg")
		w.start(seg)
		for _, point := range segment.Points {
			w.point(point, TrackPoint)
		}
		w.end(seg)
	}
	w.end(se)
}

func (w *writer) route(r Route) {
	se := element("rte")
	w.start(se)
	w.text("name", r.Name)
	w.text("desc", r.Description)
	for _, point := range r.Points {
		w.point(point, RoutePoint)
	}
	w.end(se)
}

// point writes p as the element its position requires. p.Kind is ignored:
// in XML the kind is implied by the enclosing element.
func (w *writer) point(p Point, kind Kind) {
	se := xml.StartElement{
		Name: xml.Name{Local: kind.Element()},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "lat"}, Value: p.Latitude.String()},
			{Name: xml.Name{Local: "lon"}, Value: p.Longitude.String()},
		},
	}
	w.start(se)
	if p.Elevation.Valid {
		w.text("ele", p.Elevation.Decimal.String())
	}
	w.timestamp("time", p.Time)
	w.text("name", p.Name)
	w.text("desc", p.Description)
	w.end(se)
}

func element(name string) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: name}}
}

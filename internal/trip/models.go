package trip

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Trip struct {
	ID        string            `json:"id"`
	Name      string            `json:"name" validate:"required,notblank,min=3,max=255"`
	Creator   string            `json:"creator"`
	Metadata  map[string]string `json:"metadata"`
	UserID    string            `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	Tracks []*Track `json:"-"`
	Routes []*Route `json:"-"`
	Points []*Point `json:"-"`
}

func NewTrip(userID, name string) *Trip {
	return &Trip{
		ID:       uuid.NewString(),
		Name:     name,
		UserID:   userID,
		Metadata: map[string]string{},
		Tracks:   []*Track{},
		Routes:   []*Route{},
		Points:   []*Point{},
	}
}

func (t *Trip) AddTrack(track *Track) {
	track.TripID = t.ID
	t.Tracks = append(t.Tracks, track)
}

func (t *Trip) AddRoute(route *Route) {
	route.TripID = t.ID
	t.Routes = append(t.Routes, route)
}

// AddWaypoint makes p a trip level point.
func (t *Trip) AddWaypoint(p *Point) {
	p.owner = Owner{Kind: OwnerTrip, ID: t.ID}
	t.Points = append(t.Points, p)
}

type Track struct {
	ID          string   `json:"id"`
	TripID      string   `json:"trip_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Points      []*Point `json:"points"`
}

func NewTrack(name, description string) *Track {
	return &Track{ID: uuid.NewString(), Name: name, Description: description, Points: []*Point{}}
}

func (t *Track) AddPoint(p *Point) {
	p.owner = Owner{Kind: OwnerTrack, ID: t.ID}
	t.Points = append(t.Points, p)
}

type Route struct {
	ID          string   `json:"id"`
	TripID      string   `json:"trip_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Points      []*Point `json:"points"`
}

func NewRoute(name, description string) *Route {
	return &Route{ID: uuid.NewString(), Name: name, Description: description, Points: []*Point{}}
}

func (r *Route) AddPoint(p *Point) {
	p.owner = Owner{Kind: OwnerRoute, ID: r.ID}
	r.Points = append(r.Points, p)
}

// OwnerKind tells which parent a point belongs to.
type OwnerKind int

const (
	OwnerTrack OwnerKind = iota + 1
	OwnerRoute
	OwnerTrip
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerTrack:
		return "track"
	case OwnerRoute:
		return "route"
	case OwnerTrip:
		return "trip"
	}
	return ""
}

func parseOwnerKind(s string) (OwnerKind, bool) {
	switch s {
	case "track":
		return OwnerTrack, true
	case "route":
		return OwnerRoute, true
	case "trip":
		return OwnerTrip, true
	}
	return 0, false
}

// Owner is the single parent reference of a point. It is only set through
// Track.AddPoint, Route.AddPoint and Trip.AddWaypoint.
type Owner struct {
	Kind OwnerKind
	ID   string
}

type Point struct {
	ID          string              `json:"id"`
	Latitude    decimal.Decimal     `json:"latitude"`
	Longitude   decimal.Decimal     `json:"longitude"`
	Elevation   decimal.NullDecimal `json:"elevation"`
	Time        *time.Time          `json:"time,omitempty"`
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`

	owner Owner
}

func NewPoint(lat, lon decimal.Decimal) *Point {
	return &Point{ID: uuid.NewString(), Latitude: lat, Longitude: lon}
}

func (p *Point) Owner() Owner {
	return p.owner
}

package trip

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"backend-mapssaver/internal/db"
	"backend-mapssaver/internal/gpx"
	"backend-mapssaver/internal/validation"
)

const (
	// creator column width
	maxCreatorLen = 100

	uniqueViolation = "23505"
)

var ErrNotFound = errors.New("trip not found")

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Import validates the name, parses gpxData and stores the resulting trip
// for userID. Malformed GPX is reported as gpx.ErrMalformedInput.
func (s *Service) Import(ctx context.Context, userID, name string, gpxData []byte) (*Trip, error) {
	if err := s.ValidateName(ctx, userID, name, ""); err != nil {
		return nil, err
	}

	doc, err := gpx.Parse(gpxData)
	if err != nil {
		return nil, err
	}

	t := NewTrip(userID, name)
	t.Creator = truncate(doc.Creator, maxCreatorLen)
	t.Metadata = doc.Metadata.Map()
	Hydrate(Decompose(doc), t)

	if err := s.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ValidateName checks name against the field rules and the names of the
// other trips of userID. excludeID is the trip being renamed, if any.
func (s *Service) ValidateName(ctx context.Context, userID, name, excludeID string) error {
	errs := validation.Struct(Trip{Name: name})
	if len(errs) > 0 {
		return errs
	}

	taken, err := s.NameTaken(ctx, userID, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return nameTakenError(name)
	}
	return nil
}

func nameTakenError(name string) validation.Errors {
	errs := validation.Errors{}
	errs.Add("name", fmt.Sprintf("The trip name: %q is already used.", name))
	return errs
}

func (s *Service) NameTaken(ctx context.Context, userID, name, excludeID string) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trips WHERE user_id=$1 AND name=$2 AND id::text <> $3
		)
	`, userID, name, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check trip name: %w", err)
	}
	return taken, nil
}

// Create stores t with all its tracks, routes and points in one transaction.
func (s *Service) Create(ctx context.Context, t *Trip) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO trips (id, user_id, name, creator, metadata)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING created_at, updated_at
		`, t.ID, t.UserID, t.Name, t.Creator, t.Metadata)
		if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return nameTakenError(t.Name)
			}
			return fmt.Errorf("insert trip: %w", err)
		}

		for i, track := range t.Tracks {
			if _, err := tx.Exec(ctx, `
				INSERT INTO tracks (id, trip_id, position, name, description)
				VALUES ($1,$2,$3,$4,$5)
			`, track.ID, t.ID, i, track.Name, track.Description); err != nil {
				return fmt.Errorf("insert track: %w", err)
			}
			if err := insertPoints(ctx, tx, track.Points); err != nil {
				return err
			}
		}
		for i, route := range t.Routes {
			if _, err := tx.Exec(ctx, `
				INSERT INTO routes (id, trip_id, position, name, description)
				VALUES ($1,$2,$3,$4,$5)
			`, route.ID, t.ID, i, route.Name, route.Description); err != nil {
				return fmt.Errorf("insert route: %w", err)
			}
			if err := insertPoints(ctx, tx, route.Points); err != nil {
				return err
			}
		}
		return insertPoints(ctx, tx, t.Points)
	})
}

func insertPoints(ctx context.Context, tx pgx.Tx, points []*Point) error {
	for i, p := range points {
		var trackID, routeID, tripID *string
		owner := p.Owner()
		switch owner.Kind {
		case OwnerTrack:
			trackID = &owner.ID
		case OwnerRoute:
			routeID = &owner.ID
		case OwnerTrip:
			tripID = &owner.ID
		default:
			return fmt.Errorf("point %s has no owner", p.ID)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO points (id, track_id, route_id, trip_id, position, latitude, longitude, elevation, recorded_at, name, description)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, p.ID, trackID, routeID, tripID, i, p.Latitude, p.Longitude, p.Elevation, p.Time, p.Name, p.Description); err != nil {
			return fmt.Errorf("insert point: %w", err)
		}
	}
	return nil
}

const tripColumns = `id, name, COALESCE(creator, ''), metadata, created_at, updated_at`

// List returns the trips of userID, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips WHERE user_id=$1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []*Trip{}
	for rows.Next() {
		t, err := scanTrip(rows, userID)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// Get returns the trip without its tracks, routes and points.
func (s *Service) Get(ctx context.Context, userID, id string) (*Trip, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `
		SELECT `+tripColumns+`
		FROM trips WHERE id=$1 AND user_id=$2
	`, id, userID)
	t, err := scanTrip(row, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanTrip(row pgx.Row, userID string) (*Trip, error) {
	t := NewTrip(userID, "")
	if err := row.Scan(&t.ID, &t.Name, &t.Creator, &t.Metadata, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if t.Metadata == nil {
		t.Metadata = map[string]string{}
	}
	return t, nil
}

// LoadGraph returns the trip with tracks, routes and points in stored order.
func (s *Service) LoadGraph(ctx context.Context, userID, id string) (*Trip, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	tracks := map[string]*Track{}
	err = s.eachChild(ctx, "tracks", t.ID, func(childID, name, desc string) {
		track := NewTrack(name, desc)
		track.ID = childID
		t.AddTrack(track)
		tracks[childID] = track
	})
	if err != nil {
		return nil, err
	}

	routes := map[string]*Route{}
	err = s.eachChild(ctx, "routes", t.ID, func(childID, name, desc string) {
		route := NewRoute(name, desc)
		route.ID = childID
		t.AddRoute(route)
		routes[childID] = route
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT p.id,
			CASE WHEN p.track_id IS NOT NULL THEN 'track'
			     WHEN p.route_id IS NOT NULL THEN 'route'
			     ELSE 'trip' END,
			COALESCE(p.track_id, p.route_id, p.trip_id)::text,
			p.latitude, p.longitude, p.elevation, p.recorded_at,
			COALESCE(p.name, ''), COALESCE(p.description, '')
		FROM points p
		LEFT JOIN tracks t ON t.id = p.track_id
		LEFT JOIN routes r ON r.id = p.route_id
		WHERE p.trip_id=$1 OR t.trip_id=$1 OR r.trip_id=$1
		ORDER BY p.position
	`, t.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pointID, kind, ownerID string
			lat, lon               decimal.Decimal
			ele                    decimal.NullDecimal
			recorded               pgtype.Timestamptz
			name, desc             string
		)
		if err := rows.Scan(&pointID, &kind, &ownerID, &lat, &lon, &ele, &recorded, &name, &desc); err != nil {
			return nil, err
		}

		p := NewPoint(lat, lon)
		p.ID = pointID
		p.Elevation = ele
		p.Name = name
		p.Description = desc
		if recorded.Valid {
			ts := recorded.Time.UTC()
			p.Time = &ts
		}

		ownerKind, _ := parseOwnerKind(kind)
		switch {
		case ownerKind == OwnerTrack && tracks[ownerID] != nil:
			tracks[ownerID].AddPoint(p)
		case ownerKind == OwnerRoute && routes[ownerID] != nil:
			routes[ownerID].AddPoint(p)
		case ownerKind == OwnerTrip && ownerID == t.ID:
			t.AddWaypoint(p)
		default:
			return nil, fmt.Errorf("point %s: unknown owner %s %s", pointID, kind, ownerID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) eachChild(ctx context.Context, table, tripID string, fn func(id, name, desc string)) error {
	rows, err := s.db.Query(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(description, '')
		FROM `+table+` WHERE trip_id=$1
		ORDER BY position
	`, tripID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name, desc string
		if err := rows.Scan(&id, &name, &desc); err != nil {
			return err
		}
		fn(id, name, desc)
	}
	return rows.Err()
}

// Export renders the trip as a GPX 1.1 document.
func (s *Service) Export(ctx context.Context, userID, id string) (string, error) {
	t, err := s.LoadGraph(ctx, userID, id)
	if err != nil {
		return "", err
	}
	out, err := gpx.Serialize(Compose(t))
	if err != nil {
		return "", fmt.Errorf("serialize trip %s: %w", id, err)
	}
	return string(out), nil
}

func (s *Service) Rename(ctx context.Context, userID, id, name string) (*Trip, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateName(ctx, userID, name, t.ID); err != nil {
		return nil, err
	}

	err = s.db.QueryRow(ctx, `
		UPDATE trips SET name=$3, updated_at=now()
		WHERE id=$1 AND user_id=$2
		RETURNING updated_at
	`, t.ID, userID, name).Scan(&t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, nameTakenError(name)
		}
		return nil, err
	}
	t.Name = name
	return t, nil
}

// Delete removes the trip and, through cascading keys, everything it owns.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/stagepass/internal/domain"
	"github.com/kirinyoku/stagepass/internal/repository"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const eventDetailColumns = `
	e.id, e.title, e.artist_id, e.location_id, e.begin_at, e.end_at,
	a.name, l.address
	FROM events e
	JOIN artists a ON a.id = e.artist_id
	JOIN locations l ON l.id = e.location_id`

// FindEventDetail resolves the single event matching every criterion.
//
// Returns:
//   - repository.ErrNotFound when no event matches.
//   - repository.ErrAmbiguous when more than one matches; the criteria are
//     supposed to identify exactly one event, so duplicates are a data
//     integrity violation rather than a valid answer.
func (r *CatalogRepo) FindEventDetail(
	ctx context.Context,
	c domain.EventCriteria,
) (*domain.EventDetail, error) {
	const op = "postgres.CatalogRepo.FindEventDetail"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT`+eventDetailColumns+`
		 WHERE e.title = $1
		   AND a.name = $2
		   AND l.address = $3
		   AND e.begin_at = $4
		   AND e.end_at = $5
		 LIMIT 2`,
		c.Title, c.Artist, c.Location, c.BeginAt, c.EndAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	matches, err := scanEventDetails(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%s:%w", op, repository.ErrAmbiguous)
	}
}

// GetEventDetail retrieves an event with artist and location by ID.
func (r *CatalogRepo) GetEventDetail(ctx context.Context, id int) (*domain.EventDetail, error) {
	const op = "postgres.CatalogRepo.GetEventDetail"

	db := r.handle()

	var d domain.EventDetail
	err := db.QueryRow(ctx,
		`SELECT`+eventDetailColumns+` WHERE e.id = $1`,
		id,
	).Scan(
		&d.ID, &d.Title, &d.ArtistID, &d.LocationID, &d.BeginAt, &d.EndAt,
		&d.ArtistName, &d.LocationAddress,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &d, nil
}

// UpdateEvent patches the given fields of an event; nil fields are left
// untouched.
//
// Returns repository.ErrNotFound when the event does not exist or when a
// new artist ID references no artist.
func (r *CatalogRepo) UpdateEvent(ctx context.Context, id int, title *string, artistID *int) error {
	const op = "postgres.CatalogRepo.UpdateEvent"

	db := r.handle()

	set := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if title != nil {
		args = append(args, *title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if artistID != nil {
		args = append(args, *artistID)
		set = append(set, fmt.Sprintf("artist_id = $%d", len(args)))
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	tag, err := db.Exec(ctx,
		fmt.Sprintf(`UPDATE events SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args)),
		args...,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// ListEvents lists events ordered by begin time, with optional substring
// and time-window filters.
func (r *CatalogRepo) ListEvents(
	ctx context.Context,
	f domain.EventFilter,
	limit, offset int,
) ([]domain.EventDetail, error) {
	const op = "postgres.CatalogRepo.ListEvents"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT`+eventDetailColumns+`
		 WHERE ($1 = '' OR e.title ILIKE '%' || $1 || '%')
		   AND ($2 = '' OR a.name ILIKE '%' || $2 || '%')
		   AND ($3 = '' OR l.address ILIKE '%' || $3 || '%')
		   AND ($4::timestamptz IS NULL OR e.begin_at >= $4)
		   AND ($5::timestamptz IS NULL OR e.begin_at <= $5)
		 ORDER BY e.begin_at
		 LIMIT $6 OFFSET $7`,
		f.Title, f.Artist, f.Location,
		nullableTime(f.From), nullableTime(f.To),
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := scanEventDetails(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// CreateEvent inserts an event and returns its ID.
func (r *CatalogRepo) CreateEvent(ctx context.Context, e domain.Event) (int, error) {
	const op = "postgres.CatalogRepo.CreateEvent"

	db := r.handle()

	var id int
	if err := db.QueryRow(ctx,
		`INSERT INTO events(title, artist_id, location_id, begin_at, end_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		e.Title, e.ArtistID, e.LocationID, e.BeginAt, e.EndAt,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// CreateArtists inserts artists by name, skipping names that already exist.
func (r *CatalogRepo) CreateArtists(ctx context.Context, names []string) error {
	const op = "postgres.CatalogRepo.CreateArtists"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, name := range names {
		batch.Queue(
			`INSERT INTO artists(name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			name,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// CreateLocations inserts locations by address, skipping existing ones.
func (r *CatalogRepo) CreateLocations(ctx context.Context, addresses []string) error {
	const op = "postgres.CatalogRepo.CreateLocations"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, addr := range addresses {
		batch.Queue(
			`INSERT INTO locations(address) VALUES ($1) ON CONFLICT (address) DO NOTHING`,
			addr,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) ListArtists(ctx context.Context) ([]domain.Artist, error) {
	const op = "postgres.CatalogRepo.ListArtists"

	db := r.handle()

	rows, err := db.Query(ctx, `SELECT id, name FROM artists ORDER BY id`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Artist
	for rows.Next() {
		var a domain.Artist
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) ListLocations(ctx context.Context) ([]domain.Location, error) {
	const op = "postgres.CatalogRepo.ListLocations"

	db := r.handle()

	rows, err := db.Query(ctx, `SELECT id, address FROM locations ORDER BY id`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Location
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.ID, &l.Address); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanEventDetails(rows pgx.Rows) ([]domain.EventDetail, error) {
	defer rows.Close()

	var out []domain.EventDetail
	for rows.Next() {
		var d domain.EventDetail
		if err := rows.Scan(
			&d.ID, &d.Title, &d.ArtistID, &d.LocationID, &d.BeginAt, &d.EndAt,
			&d.ArtistName, &d.LocationAddress,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

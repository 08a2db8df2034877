package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/eventhub/internal/domain/entity"
	"github.com/oksasatya/eventhub/internal/domain/repository"
)

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

const eventColumns = `e.id::text, e.name, e.description, e.date, e.location, e.created_by::text, e.attendees::text[], e.created_at`

func (r *EventRepository) Create(ctx context.Context, e *entity.Event) error {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO events (name, description, date, location, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, attendees::text[], created_at
	`, e.Name, e.Description, e.Date, e.Location, e.CreatedBy)

	if err := row.Scan(&e.ID, &e.Attendees, &e.CreatedAt); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id)
	ev, err := scanEvent(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return ev, nil
}

func (r *EventRepository) List(ctx context.Context) ([]entity.EventListing, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+eventColumns+`, u.id::text, u.username
		FROM events e
		JOIN users u ON u.id = e.created_by
	`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectListings(rows)
}

func (r *EventRepository) ListByIDs(ctx context.Context, ids []string) ([]entity.EventListing, error) {
	if len(ids) == 0 {
		return []entity.EventListing{}, nil
	}
	// Keep the order of ids, which is the search relevance order.
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+eventColumns+`, u.id::text, u.username
		FROM unnest($1::uuid[]) WITH ORDINALITY AS wanted(id, pos)
		JOIN events e ON e.id = wanted.id
		JOIN users u ON u.id = e.created_by
		ORDER BY wanted.pos
	`, ids)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return collectListings(rows)
}

func (r *EventRepository) ListByCreator(ctx context.Context, userID string) ([]entity.Event, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.created_by = $1`, userID)
	if err != nil {
		if mapNotFound(err) == repository.ErrNotFound {
			return []entity.Event{}, nil
		}
		return nil, fmt.Errorf("list events by creator: %w", err)
	}
	defer rows.Close()

	out := []entity.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func (r *EventRepository) AddAttendee(ctx context.Context, eventID, userID string) error {
	res, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE events
		SET attendees = CASE
			WHEN $2::uuid = ANY(attendees) THEN attendees
			ELSE array_append(attendees, $2::uuid)
		END
		WHERE id = $1
	`, eventID, userID)
	if err != nil {
		return mapNotFound(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *EventRepository) ListAttendees(ctx context.Context, eventID, ownerID string) ([]entity.UserRef, error) {
	q := conn(ctx, r.pool)

	var found bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1 AND created_by = $2)`, eventID, ownerID).Scan(&found)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !found {
		return nil, repository.ErrNotFound
	}

	rows, err := q.Query(ctx, `
		SELECT u.id::text, u.username, u.email
		FROM events e
		CROSS JOIN LATERAL unnest(e.attendees) WITH ORDINALITY AS a(user_id, pos)
		JOIN users u ON u.id = a.user_id
		WHERE e.id = $1
		ORDER BY a.pos
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	out := []entity.UserRef{}
	for rows.Next() {
		var u entity.UserRef
		if err := rows.Scan(&u.ID, &u.Username, &u.Email); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *EventRepository) RebuildAttendees(ctx context.Context) (int64, error) {
	res, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE events e
		SET attendees = rebuilt.ids
		FROM (
			SELECT ev.id,
				COALESCE(array_agg(r.user_id ORDER BY r.created_at) FILTER (WHERE r.user_id IS NOT NULL), '{}') AS ids
			FROM events ev
			LEFT JOIN registrations r ON r.event_id = ev.id
			GROUP BY ev.id
		) AS rebuilt
		WHERE e.id = rebuilt.id AND e.attendees IS DISTINCT FROM rebuilt.ids
	`)
	if err != nil {
		return 0, fmt.Errorf("rebuild attendees: %w", err)
	}
	return res.RowsAffected(), nil
}

func scanEvent(row pgx.Row) (*entity.Event, error) {
	ev := &entity.Event{}
	if err := row.Scan(&ev.ID, &ev.Name, &ev.Description, &ev.Date, &ev.Location, &ev.CreatedBy, &ev.Attendees, &ev.CreatedAt); err != nil {
		return nil, err
	}
	return ev, nil
}

func collectListings(rows pgx.Rows) ([]entity.EventListing, error) {
	defer rows.Close()

	out := []entity.EventListing{}
	for rows.Next() {
		var l entity.EventListing
		ev := &l.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Description, &ev.Date, &ev.Location, &ev.CreatedBy, &ev.Attendees, &ev.CreatedAt,
			&l.Creator.ID, &l.Creator.Username); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

var _ repository.EventRepository = (*EventRepository)(nil)

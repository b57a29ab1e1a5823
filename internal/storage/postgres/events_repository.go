package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetgrid/server/internal/api/pagination"
	"github.com/meetgrid/server/internal/domain/events"
)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const eventColumns = `
e.id, e.ulid, e.title, e.description, e.starts_at, e.location, e.capacity,
e.organizer_id, u.username, e.created_at, e.updated_at`

// List returns events ordered by (starts_at, ulid) with keyset pagination.
func (r *EventRepository) List(ctx context.Context, filters events.Filters, page events.Pagination) (events.ListResult, error) {
	var conditions []string
	var args []any

	appendArg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Organizer != "" {
		conditions = append(conditions, fmt.Sprintf("u.username = %s", appendArg(filters.Organizer)))
	}
	if filters.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("e.starts_at >= %s", appendArg(*filters.DateFrom)))
	}
	if filters.DateTo != nil {
		// date_to is an inclusive calendar date
		conditions = append(conditions, fmt.Sprintf("e.starts_at < %s", appendArg(filters.DateTo.Add(24*time.Hour))))
	}
	if filters.Location != "" {
		placeholder := appendArg("%" + escapeLike(filters.Location) + "%")
		conditions = append(conditions, fmt.Sprintf(`e.location ILIKE %s ESCAPE '\'`, placeholder))
	}
	if filters.Query != "" {
		placeholder := appendArg("%" + escapeLike(filters.Query) + "%")
		conditions = append(conditions, fmt.Sprintf(`(e.title ILIKE %s ESCAPE '\' OR e.description ILIKE %s ESCAPE '\')`, placeholder, placeholder))
	}

	if page.After != "" {
		cursor, err := pagination.DecodeEventCursor(page.After)
		if err != nil {
			return events.ListResult{}, err
		}
		tsArg := appendArg(cursor.Timestamp)
		ulidArg := appendArg(cursor.ULID)
		conditions = append(conditions, fmt.Sprintf("(e.starts_at, e.ulid) > (%s, %s)", tsArg, ulidArg))
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
SELECT %s
  FROM events e
  JOIN users u ON u.id = e.organizer_id`, eventColumns)
	if len(conditions) > 0 {
		query += "\n WHERE " + strings.Join(conditions, "\n   AND ")
	}
	query += fmt.Sprintf("\n ORDER BY e.starts_at, e.ulid\n LIMIT %s", appendArg(limit+1))

	rows, err := r.queryer().Query(ctx, query, args...)
	if err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var items []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return events.ListResult{}, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	if err := rows.Err(); err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}

	result := events.ListResult{Events: items}
	if len(items) > limit {
		result.Events = items[:limit]
		last := result.Events[limit-1]
		result.NextCursor = pagination.EncodeEventCursor(last.Date, last.ULID)
	}
	return result, nil
}

func (r *EventRepository) GetByULID(ctx context.Context, ulid string) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, fmt.Sprintf(`
SELECT %s
  FROM events e
  JOIN users u ON u.id = e.organizer_id
 WHERE e.ulid = $1
 LIMIT 1`, eventColumns), ulid)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.CreateParams) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO events (ulid, title, description, starts_at, location, capacity, organizer_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, updated_at
`, params.ULID, params.Title, params.Description, params.Date, params.Location, params.Capacity, params.OrganizerID)

	event := events.Event{
		ULID:        params.ULID,
		Title:       params.Title,
		Description: params.Description,
		Date:        params.Date,
		Location:    params.Location,
		Capacity:    params.Capacity,
		OrganizerID: params.OrganizerID,
	}
	if err := row.Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if err := r.queryer().QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, params.OrganizerID).
		Scan(&event.OrganizerUsername); err != nil {
		return nil, fmt.Errorf("resolve organizer: %w", err)
	}
	return &event, nil
}

func (r *EventRepository) Update(ctx context.Context, id string, params events.UpdateParams) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
UPDATE events e
   SET title = $2, description = $3, starts_at = $4, location = $5, capacity = $6, updated_at = now()
  FROM users u
 WHERE e.id = $1 AND u.id = e.organizer_id
RETURNING `+eventColumns, id, params.Title, params.Description, params.Date, params.Location, params.Capacity)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

// Delete removes the event; registrations cascade at the database level.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var event events.Event
	if err := row.Scan(
		&event.ID,
		&event.ULID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Location,
		&event.Capacity,
		&event.OrganizerID,
		&event.OrganizerUsername,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &event, nil
}

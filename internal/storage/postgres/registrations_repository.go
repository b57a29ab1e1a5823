package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetgrid/server/internal/domain/events"
	"github.com/meetgrid/server/internal/domain/registrations"
)

type RegistrationRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
	repo *Repository
}

func (r *RegistrationRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

// Create inserts a ledger row inside a WithTx transaction. The event row is
// locked for the duration so the capacity check and the insert are atomic;
// duplicate attempts fall through to the (event_id, user_id) unique
// constraint.
func (r *RegistrationRepository) Create(ctx context.Context, params registrations.CreateParams) (*registrations.Registration, error) {
	if r.tx != nil {
		return r.createIn(ctx, r.tx, params)
	}

	var created *registrations.Registration
	err := r.repo.WithTx(ctx, func(ctx context.Context, txRepo *Repository) error {
		var err error
		created, err = txRepo.registrations.createIn(ctx, txRepo.tx, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *RegistrationRepository) createIn(ctx context.Context, tx pgx.Tx, params registrations.CreateParams) (*registrations.Registration, error) {
	var capacity *int
	err := tx.QueryRow(ctx, `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, params.EventID).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}

	if capacity != nil {
		var count int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM registrations WHERE event_id = $1`, params.EventID).Scan(&count); err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if count >= *capacity {
			return nil, registrations.ErrEventFull
		}
	}

	registration := registrations.Registration{
		EventID: params.EventID,
		UserID:  params.UserID,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO registrations (event_id, user_id)
VALUES ($1, $2)
RETURNING id, registered_at
`, params.EventID, params.UserID).Scan(&registration.ID, &registration.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err, "registrations_event_id_user_id_key") {
			return nil, registrations.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}
	return &registration, nil
}

func (r *RegistrationRepository) Delete(ctx context.Context, eventID, userID string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registrations.ErrNotFound
	}
	return nil
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]registrations.Registration, error) {
	return r.list(ctx, `r.event_id = $1`, eventID)
}

func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]registrations.Registration, error) {
	return r.list(ctx, `r.user_id = $1`, userID)
}

func (r *RegistrationRepository) list(ctx context.Context, condition string, arg any) ([]registrations.Registration, error) {
	rows, err := r.queryer().Query(ctx, fmt.Sprintf(`
SELECT r.id, r.event_id, e.ulid, e.title, r.user_id, u.username, r.registered_at
  FROM registrations r
  JOIN events e ON e.id = r.event_id
  JOIN users u ON u.id = r.user_id
 WHERE %s
 ORDER BY r.registered_at, r.id`, condition), arg)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var items []registrations.Registration
	for rows.Next() {
		var registration registrations.Registration
		if err := rows.Scan(
			&registration.ID,
			&registration.EventID,
			&registration.EventULID,
			&registration.EventTitle,
			&registration.UserID,
			&registration.Username,
			&registration.RegisteredAt,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		items = append(items, registration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return items, nil
}

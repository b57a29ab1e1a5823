// Package postgres implements the storage interfaces on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetgrid/server/internal/auth"
	"github.com/meetgrid/server/internal/domain/events"
	"github.com/meetgrid/server/internal/domain/registrations"
	"github.com/meetgrid/server/internal/domain/users"
)

// Repository bundles the per-aggregate repositories behind one pool.
type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	users         *UserRepository
	sessions      *SessionRepository
	events        *EventRepository
	registrations *RegistrationRepository
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}

	repo := &Repository{
		pool:     pool,
		users:    &UserRepository{pool: pool},
		sessions: &SessionRepository{pool: pool},
		events:   &EventRepository{pool: pool},
	}
	// Registration creation opens its own transaction through WithTx.
	repo.registrations = &RegistrationRepository{pool: pool, repo: repo}
	return repo, nil
}

func (r *Repository) Users() users.Repository {
	if r.tx != nil {
		return &UserRepository{pool: r.pool, tx: r.tx}
	}
	return r.users
}

func (r *Repository) Sessions() auth.SessionStore {
	if r.tx != nil {
		return &SessionRepository{pool: r.pool, tx: r.tx}
	}
	return r.sessions
}

func (r *Repository) Events() events.Repository {
	if r.tx != nil {
		return &EventRepository{pool: r.pool, tx: r.tx}
	}
	return r.events
}

func (r *Repository) Registrations() registrations.Repository {
	if r.tx != nil {
		return &RegistrationRepository{pool: r.pool, tx: r.tx}
	}
	return r.registrations
}

// WithTx executes fn within a database transaction. The repository passed to
// fn routes every query through that transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, *Repository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &Repository{
		pool:          r.pool,
		tx:            tx,
		users:         &UserRepository{pool: r.pool, tx: tx},
		sessions:      &SessionRepository{pool: r.pool, tx: tx},
		events:        &EventRepository{pool: r.pool, tx: tx},
		registrations: &RegistrationRepository{pool: r.pool, tx: tx},
	}

	if err := fn(ctx, txRepo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/meetgrid/server/internal/domain/registrations"
)

// Enqueuer inserts confirmation email jobs into the queue. It satisfies
// registrations.ConfirmationEnqueuer.
type Enqueuer struct {
	client      *river.Client[pgx.Tx]
	maxAttempts int
}

func NewEnqueuer(client *river.Client[pgx.Tx], maxAttempts int) *Enqueuer {
	if maxAttempts <= 0 {
		maxAttempts = ConfirmationEmailMaxAttempts
	}
	return &Enqueuer{client: client, maxAttempts: maxAttempts}
}

func (e *Enqueuer) EnqueueConfirmation(ctx context.Context, confirmation registrations.Confirmation) error {
	if e.client == nil {
		return fmt.Errorf("river client not configured")
	}
	_, err := e.client.Insert(ctx, ConfirmationEmailArgs{Confirmation: confirmation}, &river.InsertOpts{
		MaxAttempts: e.maxAttempts,
	})
	if err != nil {
		return fmt.Errorf("insert confirmation email job: %w", err)
	}
	return nil
}

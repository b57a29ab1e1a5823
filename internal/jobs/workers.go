package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/meetgrid/server/internal/auth"
	"github.com/meetgrid/server/internal/domain/registrations"
	"github.com/meetgrid/server/internal/email"
	"github.com/meetgrid/server/internal/metrics"
)

// ConfirmationEmailArgs carries a registration confirmation to the worker.
type ConfirmationEmailArgs struct {
	registrations.Confirmation
}

func (ConfirmationEmailArgs) Kind() string { return JobKindConfirmationEmail }

// ConfirmationSender is the slice of the email service the worker needs.
type ConfirmationSender interface {
	SendRegistrationConfirmation(ctx context.Context, to string, data email.ConfirmationData) error
}

// ConfirmationEmailWorker delivers the registration confirmation email.
type ConfirmationEmailWorker struct {
	river.WorkerDefaults[ConfirmationEmailArgs]
	Sender ConfirmationSender
	Logger zerolog.Logger
}

func (ConfirmationEmailWorker) Kind() string { return JobKindConfirmationEmail }

func (w ConfirmationEmailWorker) Work(ctx context.Context, job *river.Job[ConfirmationEmailArgs]) error {
	if w.Sender == nil {
		return fmt.Errorf("email sender not configured")
	}

	args := job.Args
	data := email.ConfirmationData{
		Username:      args.Username,
		EventTitle:    args.EventTitle,
		EventDate:     args.EventDate.Format("Monday, January 2, 2006 at 3:04 PM MST"),
		EventLocation: args.EventLocation,
	}
	if err := w.Sender.SendRegistrationConfirmation(ctx, args.Email, data); err != nil {
		metrics.ConfirmationEmailsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("confirmation email for registration %d: %w", args.RegistrationID, err)
	}
	metrics.ConfirmationEmailsTotal.WithLabelValues("sent").Inc()

	w.Logger.Info().
		Int64("registration_id", args.RegistrationID).
		Str("event", args.EventTitle).
		Msg("confirmation email delivered")
	return nil
}

// SessionCleanupArgs defines the periodic expired-session sweep.
type SessionCleanupArgs struct{}

func (SessionCleanupArgs) Kind() string { return JobKindSessionCleanup }

// SessionCleanupWorker removes sessions past their expiry.
type SessionCleanupWorker struct {
	river.WorkerDefaults[SessionCleanupArgs]
	Sessions auth.SessionStore
	Logger   zerolog.Logger
}

func (SessionCleanupWorker) Kind() string { return JobKindSessionCleanup }

func (w SessionCleanupWorker) Work(ctx context.Context, job *river.Job[SessionCleanupArgs]) error {
	if w.Sessions == nil {
		return fmt.Errorf("session store not configured")
	}

	removed, err := w.Sessions.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	metrics.SessionsCleanedTotal.Add(float64(removed))
	if removed > 0 {
		w.Logger.Info().Int64("removed", removed).Msg("expired sessions cleaned up")
	}
	return nil
}

// NewWorkers registers every worker the server runs.
func NewWorkers(sender ConfirmationSender, sessions auth.SessionStore, logger zerolog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[ConfirmationEmailArgs](workers, ConfirmationEmailWorker{Sender: sender, Logger: logger})
	river.AddWorker[SessionCleanupArgs](workers, SessionCleanupWorker{Sessions: sessions, Logger: logger})
	return workers
}

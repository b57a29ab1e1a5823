package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// sendViaResend delivers through the Resend API. A rate-limit response keeps
// its reset window in the returned error so the job retrying this send backs
// off instead of hammering the API.
func (s *Service) sendViaResend(ctx context.Context, to, subject, htmlBody string) error {
	if s.resendClient == nil {
		return fmt.Errorf("resend provider selected but client not configured")
	}

	sent, err := s.resendClient.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	})

	var rateLimited *resend.RateLimitError
	switch {
	case errors.As(err, &rateLimited):
		s.logger.Warn().
			Str("remaining", rateLimited.Remaining).
			Str("reset", rateLimited.Reset).
			Str("to", to).
			Msg("resend rate limited")
		return fmt.Errorf("resend rate limited, resets in %ss: %w", rateLimited.Reset, err)
	case err != nil:
		return fmt.Errorf("resend send: %w", err)
	}

	s.logger.Info().
		Str("email_id", sent.Id).
		Str("to", to).
		Msg("confirmation email sent via resend")
	return nil
}

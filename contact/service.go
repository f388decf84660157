package contact

import (
	"context"
	"fmt"

	"github.com/qolzam/telar/apps/recaptcha/internal/pkg/log"
	"github.com/qolzam/telar/apps/recaptcha/internal/platform/email"
)

// Service receives accepted submissions.
type Service interface {
	Submit(ctx context.Context, msg ContactModel) error
}

// LogService records submissions in the application log.
type LogService struct{}

func (LogService) Submit(ctx context.Context, msg ContactModel) error {
	log.InfoWithContext(ctx, "[Contact] message from %s <%s> (%d chars)", msg.Name, msg.Email, len(msg.Message))
	return nil
}

// EmailService forwards submissions to a fixed set of recipients. The
// submitter's address becomes Reply-To.
type EmailService struct {
	sender     email.Sender
	from       string
	recipients []string
}

func NewEmailService(sender email.Sender, from string, recipients []string) *EmailService {
	return &EmailService{sender: sender, from: from, recipients: recipients}
}

func (s *EmailService) Submit(ctx context.Context, msg ContactModel) error {
	err := s.sender.Send(ctx, email.Message{
		From:    s.from,
		To:      s.recipients,
		ReplyTo: msg.Email,
		Subject: fmt.Sprintf("Contact form: %s", msg.Name),
		Body:    fmt.Sprintf("From: %s <%s>\n\n%s\n", msg.Name, msg.Email, msg.Message),
	})
	if err != nil {
		return fmt.Errorf("forward contact message: %w", err)
	}
	log.InfoWithContext(ctx, "[Contact] forwarded message from <%s> to %d recipient(s)", msg.Email, len(s.recipients))
	return nil
}

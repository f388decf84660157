package contact

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/recaptcha/internal/platform/email"
)

type fakeSender struct {
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestEmailService_Submit(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	svc := NewEmailService(sender, "noreply@example.com", []string{"inbox@example.com"})

	err := svc.Submit(context.Background(), ContactModel{Name: "Ada", Email: "ada@example.com", Message: "Hello"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	require.Equal(t, "noreply@example.com", msg.From)
	require.Equal(t, []string{"inbox@example.com"}, msg.To)
	require.Equal(t, "ada@example.com", msg.ReplyTo)
	require.Equal(t, "Contact form: Ada", msg.Subject)
	require.Contains(t, msg.Body, "Hello")
}

func TestEmailService_SubmitError(t *testing.T) {
	t.Parallel()

	boom := errors.New("relay down")
	svc := NewEmailService(&fakeSender{err: boom}, "noreply@example.com", []string{"inbox@example.com"})

	err := svc.Submit(context.Background(), ContactModel{Name: "Ada", Email: "ada@example.com"})
	require.ErrorIs(t, err, boom)
}

func TestLogService_Submit(t *testing.T) {
	t.Parallel()
	require.NoError(t, LogService{}.Submit(context.Background(), ContactModel{Name: "Ada"}))
}

package email

import "context"

// Message represents a plain-text email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Body    string
}

// Sender abstracts email sending for DI and testing.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

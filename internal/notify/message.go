// Package notify implements the outbound delivery providers: an SMTP
// relay, a hosted template-email HTTP API, and a bulk-SMS HTTP gateway.
package notify

import (
	"context"
	"errors"
)

// ErrNotConfigured marks a channel whose credentials are absent. It is a
// configuration error, not a delivery error: no network I/O was attempted.
var ErrNotConfigured = errors.New("channel not configured")

// Message is one rendered notification addressed to a single recipient.
type Message struct {
	RecipientName  string
	RecipientEmail string
	RecipientPhone string
	Subject        string
	Text           string
	HTML           string
}

// EmailProvider is one strategy in the email delivery chain.
type EmailProvider interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, msg Message) error
}

package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// EmailChain tries an ordered list of email providers until one succeeds.
// Unconfigured providers are skipped without an attempt; a provider error
// moves straight on to the next provider. If no provider is configured at
// all the chain short-circuits to ErrNotConfigured.
type EmailChain struct {
	providers []EmailProvider
	logger    *zap.Logger
}

func NewEmailChain(logger *zap.Logger, providers ...EmailProvider) *EmailChain {
	return &EmailChain{
		providers: providers,
		logger:    logger,
	}
}

// Configured reports whether at least one provider can attempt delivery.
func (c *EmailChain) Configured() bool {
	for _, p := range c.providers {
		if p.Configured() {
			return true
		}
	}
	return false
}

// Send attempts each configured provider in order. It returns the name of
// the provider that delivered the message, or the last attempt's error.
func (c *EmailChain) Send(ctx context.Context, msg Message) (string, error) {
	var lastErr error
	attempted := false

	for _, p := range c.providers {
		if !p.Configured() {
			continue
		}
		attempted = true

		if err := p.Send(ctx, msg); err != nil {
			c.logger.Warn("email provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.String("to", msg.RecipientEmail),
				zap.Error(err),
			)
			lastErr = fmt.Errorf("%s: %w", p.Name(), err)
			continue
		}

		return p.Name(), nil
	}

	if !attempted {
		return "", ErrNotConfigured
	}

	return "", lastErr
}

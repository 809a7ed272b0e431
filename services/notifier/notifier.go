package notifier

import (
	"context"

	"sjsage522/akiyawatch/logger"
)

// Notifier delivers a plain-text message to the configured recipient
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Noop is used when push credentials are missing. Every message is logged
// as a warning and dropped.
type Noop struct {
	log *logger.Logger
}

// NewNoop creates a notifier that never sends anything
func NewNoop(log *logger.Logger) *Noop {
	return &Noop{log: log}
}

// Notify logs the skipped message
func (n *Noop) Notify(ctx context.Context, message string) error {
	n.log.Warn().
		Str("message", message).
		Msg("LINE credentials are not configured, skipping notification")
	return nil
}

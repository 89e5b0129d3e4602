// Package notify delivers SLA notifications and renders their content.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla-service/internal/config"
)

// Sender delivers one message to one or more addresses. Each call is a single attempt.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// NewSender picks the SMTP sender when a host is configured and the log sender otherwise.
func NewSender(cfg config.NotificationConfig, logger *zap.Logger) Sender {
	if cfg.SMTPHost == "" {
		logger.Warn("NOTIFY_SMTP_HOST not provided; notifications will only be logged")
		return NewLogSender(logger)
	}
	return NewSMTPSender(cfg, logger)
}

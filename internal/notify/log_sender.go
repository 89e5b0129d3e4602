package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender records notifications in the log instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender returns a sender suitable for development.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	s.logger.Info("notification",
		zap.Strings("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

package notify

import (
	"context"
	"crypto/tls"
	"errors"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/ticket-sla-service/internal/config"
)

// ErrNoRecipients is returned when a send has nobody to deliver to.
var ErrNoRecipients = errors.New("no recipients")

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends plain-text mail through a gomail dialer.
type SMTPSender struct {
	dialer        mailDialer
	senderAddress string
	senderName    string
	logger        *zap.Logger
}

// NewSMTPSender builds a sender for the configured SMTP relay.
func NewSMTPSender(cfg config.NotificationConfig, logger *zap.Logger) *SMTPSender {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	if cfg.InsecureSkipVerify {
		logger.Warn("smtp TLS verification disabled", zap.String("host", cfg.SMTPHost))
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	logger.Info("smtp sender configured", zap.String("host", cfg.SMTPHost), zap.Int("port", cfg.SMTPPort))
	return &SMTPSender{
		dialer:        d,
		senderAddress: cfg.EmailFrom,
		senderName:    cfg.SenderName,
		logger:        logger,
	}
}

// Send delivers the message. Multiple recipients are addressed via Bcc.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.senderAddress, s.senderName)
	if len(to) == 1 {
		msg.SetHeader("To", to[0])
	} else {
		msg.SetHeader("To", s.senderAddress)
		msg.SetHeader("Bcc", to...)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return err
	}
	s.logger.Debug("mail sent", zap.Int("recipients", len(to)), zap.String("subject", subject))
	return nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla-service/internal/config"
	"github.com/spec-kit/ticket-sla-service/internal/domain"
	"github.com/spec-kit/ticket-sla-service/internal/events"
	"github.com/spec-kit/ticket-sla-service/internal/notify"
	"github.com/spec-kit/ticket-sla-service/internal/observability"
	"github.com/spec-kit/ticket-sla-service/internal/sla"
)

// TimerNotice is everything needed to notify about one classified timer.
type TimerNotice struct {
	RunID          string
	Ticket         *domain.Ticket
	Timer          domain.TimerKind
	Window         sla.Window
	Classification sla.Classification
	Now            time.Time
}

// NotificationService composes SLA messages, sends them and announces what was sent.
type NotificationService struct {
	sender     notify.Sender
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(sender notify.Sender, dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		sender:     sender,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// SendWarning notifies the ticket owner that a deadline is approaching.
func (n *NotificationService) SendWarning(ctx context.Context, notice TimerNotice) error {
	recipient := notice.Ticket.DirectRecipient()
	msg := n.message(notice, recipient.Name)
	body, err := notify.RenderWarning(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	subject := notify.WarningSubject(notice.Ticket.Number, notice.Timer.Label())
	if err := n.send(ctx, addresses(recipient.Email), subject, body); err != nil {
		return err
	}
	n.announce(ctx, events.EventSLAWarning, notice, 1)
	return nil
}

// SendBreach notifies the ticket owner that a deadline was missed.
func (n *NotificationService) SendBreach(ctx context.Context, notice TimerNotice) error {
	recipient := notice.Ticket.DirectRecipient()
	msg := n.message(notice, recipient.Name)
	body, err := notify.RenderBreach(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	subject := notify.BreachSubject(notice.Ticket.Number, notice.Timer.Label())
	if err := n.send(ctx, addresses(recipient.Email), subject, body); err != nil {
		return err
	}
	n.announce(ctx, events.EventSLABreach, notice, 1)
	return nil
}

// SendEscalation notifies the whole escalation roster in a single message.
func (n *NotificationService) SendEscalation(ctx context.Context, notice TimerNotice, roster []string) error {
	owner := notice.Ticket.DirectRecipient()
	ownerName := owner.Name
	if notice.Ticket.Assignee == nil {
		ownerName = ""
	}
	body, err := notify.RenderEscalation(n.message(notice, ownerName))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	subject := notify.EscalationSubject(notice.Ticket.Number, notice.Timer.Label())
	if err := n.send(ctx, roster, subject, body); err != nil {
		return err
	}
	n.announce(ctx, events.EventSLAEscalation, notice, len(roster))
	return nil
}

func (n *NotificationService) send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return fmt.Errorf("%w: %w", ErrSendFailed, notify.ErrNoRecipients)
	}
	if err := n.sender.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

func (n *NotificationService) message(notice TimerNotice, recipientName string) notify.TimerMessage {
	t := notice.Ticket
	priority := ""
	if t.Priority != nil {
		priority = t.Priority.Name
	}
	return notify.TimerMessage{
		TicketID:      t.ID,
		TicketNumber:  t.Number,
		Title:         t.Title,
		Priority:      priority,
		Timer:         notice.Timer.Label(),
		RecipientName: recipientName,
		Deadline:      notice.Window.Deadline,
		Now:           notice.Now,
		Remaining:     notice.Classification.RoundedRemaining(),
		Overdue:       notice.Classification.RoundedOverdue(),
		TicketURL:     notify.TicketURL(n.cfg.TicketURLTemplate, t.ID, t.Number),
	}
}

func (n *NotificationService) announce(ctx context.Context, eventType events.EventType, notice TimerNotice, recipients int) {
	kind := notificationKind(eventType)
	n.metrics.RecordNotification(kind, string(notice.Timer))
	n.logger.Info("sla notification sent",
		zap.String("run_id", notice.RunID),
		zap.String("type", kind),
		zap.String("ticket_id", notice.Ticket.ID),
		zap.Int64("ticket_number", notice.Ticket.Number),
		zap.String("timer", string(notice.Timer)),
		zap.Int("recipients", recipients))

	if n.dispatcher == nil {
		return
	}
	priority := ""
	if notice.Ticket.Priority != nil {
		priority = notice.Ticket.Priority.Name
	}
	_ = n.dispatcher.Publish(ctx, events.Event{
		Type:      eventType,
		RunID:     notice.RunID,
		TicketID:  notice.Ticket.ID,
		Timestamp: notice.Now,
		Payload: events.TimerNotificationPayload{
			TicketNumber:   notice.Ticket.Number,
			Timer:          notice.Timer,
			Priority:       priority,
			Deadline:       notice.Window.Deadline,
			RemainingSecs:  int64(notice.Classification.Remaining / time.Second),
			OverdueSecs:    int64(notice.Classification.Overdue / time.Second),
			RecipientCount: recipients,
		},
	})
}

func notificationKind(eventType events.EventType) string {
	switch eventType {
	case events.EventSLAWarning:
		return "warning"
	case events.EventSLABreach:
		return "breach"
	case events.EventSLAEscalation:
		return "escalation"
	}
	return string(eventType)
}

func addresses(email string) []string {
	if email == "" {
		return nil
	}
	return []string{email}
}

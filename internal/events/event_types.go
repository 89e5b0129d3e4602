package events

import (
	"time"

	"github.com/spec-kit/ticket-sla-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSLAWarning      EventType = "sla.warning"
	EventSLABreach       EventType = "sla.breach"
	EventSLAEscalation   EventType = "sla.escalation"
	EventSLARunCompleted EventType = "sla.run_completed"
)

// Event represents a domain event emitted by the monitor.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TimerNotificationPayload describes a sent warning, breach or escalation.
type TimerNotificationPayload struct {
	TicketNumber   int64            `json:"ticket_number"`
	Timer          domain.TimerKind `json:"timer"`
	Priority       string           `json:"priority"`
	Deadline       time.Time        `json:"deadline"`
	RemainingSecs  int64            `json:"remaining_seconds,omitempty"`
	OverdueSecs    int64            `json:"overdue_seconds,omitempty"`
	RecipientCount int              `json:"recipient_count"`
}

// RunCompletedPayload summarizes a finished run.
type RunCompletedPayload struct {
	State           domain.RunState `json:"state"`
	Tickets         int             `json:"tickets_evaluated"`
	WarningsSent    int             `json:"warnings_sent"`
	BreachesSent    int             `json:"breaches_sent"`
	EscalationsSent int             `json:"escalations_sent"`
	Failures        int             `json:"failures"`
}

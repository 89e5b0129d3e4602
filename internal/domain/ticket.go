package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// ActiveTicketStatuses lists the statuses whose SLA timers are still running.
func ActiveTicketStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusPending}
}

// IsActive reports whether SLA timers run for the status.
func (s TicketStatus) IsActive() bool {
	for _, active := range ActiveTicketStatuses() {
		if s == active {
			return true
		}
	}
	return false
}

// Contact is a resolved notification recipient.
type Contact struct {
	ID    string
	Name  string
	Email string
}

// Ticket is the SLA view of a support request, assembled by the ticket source.
type Ticket struct {
	ID                  string
	Number              int64
	Title               string
	Status              TicketStatus
	CreatedAt           time.Time
	FirstResponseAt     *time.Time
	SLABreachResponse   bool
	SLABreachResolution bool
	Priority            *PriorityPolicy
	Requester           Contact
	Assignee            *Contact
}

// DirectRecipient returns the assignee, falling back to the requester when unassigned.
func (t *Ticket) DirectRecipient() Contact {
	if t.Assignee != nil && t.Assignee.Email != "" {
		return *t.Assignee
	}
	return t.Requester
}

// Breached reports the persisted breach flag for a timer.
func (t *Ticket) Breached(kind TimerKind) bool {
	switch kind {
	case TimerResponse:
		return t.SLABreachResponse
	case TimerResolution:
		return t.SLABreachResolution
	}
	return false
}

// ApplicableTimers lists the timers that still need evaluation.
// The response timer closes for good once a first response is recorded.
func (t *Ticket) ApplicableTimers() []TimerKind {
	if t.Priority == nil || !t.Status.IsActive() {
		return nil
	}
	timers := make([]TimerKind, 0, 2)
	if t.FirstResponseAt == nil {
		timers = append(timers, TimerResponse)
	}
	return append(timers, TimerResolution)
}

package sla

import "time"

// Outcome is the classification of a timer at a given instant.
type Outcome int

const (
	NotYetDue Outcome = iota
	Warning
	Breach
	AlreadyHandled
)

func (o Outcome) String() string {
	switch o {
	case NotYetDue:
		return "not_yet_due"
	case Warning:
		return "warning"
	case Breach:
		return "breach"
	case AlreadyHandled:
		return "already_handled"
	}
	return "unknown"
}

// Classification carries the outcome plus the remaining or overdue time.
// Remaining is set only for Warning, Overdue only for Breach.
type Classification struct {
	Outcome   Outcome
	Remaining time.Duration
	Overdue   time.Duration
}

// Classify places a timer into one of the four outcomes.
// A breached flag wins unconditionally; otherwise breach is checked before warning.
func Classify(now time.Time, window Window, alreadyBreached bool) Classification {
	if alreadyBreached {
		return Classification{Outcome: AlreadyHandled}
	}
	if !now.Before(window.Deadline) {
		return Classification{Outcome: Breach, Overdue: now.Sub(window.Deadline)}
	}
	if !now.Before(window.WarningAt) {
		return Classification{Outcome: Warning, Remaining: window.Deadline.Sub(now)}
	}
	return Classification{Outcome: NotYetDue}
}

// RoundedRemaining is Remaining rounded to whole minutes, for display only.
func (c Classification) RoundedRemaining() time.Duration {
	return c.Remaining.Round(time.Minute)
}

// RoundedOverdue is Overdue rounded to whole minutes, for display only.
func (c Classification) RoundedOverdue() time.Duration {
	return c.Overdue.Round(time.Minute)
}

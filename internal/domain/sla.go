package domain

// TimerKind identifies one of the two SLA clocks on a ticket.
type TimerKind string

const (
	TimerResponse   TimerKind = "response"
	TimerResolution TimerKind = "resolution"
)

// Label is the human wording used in notifications.
func (k TimerKind) Label() string {
	switch k {
	case TimerResponse:
		return "first response"
	case TimerResolution:
		return "resolution"
	}
	return string(k)
}

// PriorityPolicy is a named SLA tier.
type PriorityPolicy struct {
	ID                  string
	Name                string
	ResponseTimeHours   float64
	ResolutionTimeHours float64
}

// AllowedHours resolves the allowed duration for a timer.
func (p PriorityPolicy) AllowedHours(kind TimerKind) float64 {
	switch kind {
	case TimerResponse:
		return p.ResponseTimeHours
	case TimerResolution:
		return p.ResolutionTimeHours
	}
	return 0
}

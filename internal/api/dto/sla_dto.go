package dto

import (
	"time"

	"github.com/spec-kit/ticket-sla-service/internal/domain"
)

// TriggerRunRequest is the optional body of POST /admin/sla/runs.
type TriggerRunRequest struct {
	Now string `json:"now,omitempty"`
}

// TimerFailureResponse describes one per-timer failure.
type TimerFailureResponse struct {
	TicketID     string `json:"ticket_id"`
	TicketNumber int64  `json:"ticket_number"`
	Timer        string `json:"timer,omitempty"`
	Stage        string `json:"stage"`
	Reason       string `json:"reason"`
}

// RunSummaryResponse exposes a run summary.
type RunSummaryResponse struct {
	RunID            string                 `json:"run_id"`
	State            string                 `json:"state"`
	Clean            bool                   `json:"clean"`
	Now              time.Time              `json:"now"`
	StartedAt        time.Time              `json:"started_at"`
	FinishedAt       time.Time              `json:"finished_at"`
	DurationMillis   int64                  `json:"duration_ms"`
	TicketsEvaluated int                    `json:"tickets_evaluated"`
	WarningsSent     int                    `json:"warnings_sent"`
	BreachesSent     int                    `json:"breaches_sent"`
	EscalationsSent  int                    `json:"escalations_sent"`
	Failures         []TimerFailureResponse `json:"failures"`
	Error            string                 `json:"error,omitempty"`
}

// NewRunSummaryResponse maps a domain summary.
func NewRunSummaryResponse(s domain.RunSummary) RunSummaryResponse {
	failures := make([]TimerFailureResponse, 0, len(s.Failures))
	for _, f := range s.Failures {
		failures = append(failures, TimerFailureResponse{
			TicketID:     f.TicketID,
			TicketNumber: f.TicketNumber,
			Timer:        string(f.Timer),
			Stage:        string(f.Stage),
			Reason:       f.Reason,
		})
	}
	var duration int64
	if !s.FinishedAt.IsZero() {
		duration = s.FinishedAt.Sub(s.StartedAt).Milliseconds()
	}
	return RunSummaryResponse{
		RunID:            s.RunID,
		State:            string(s.State),
		Clean:            s.Clean(),
		Now:              s.Now,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
		DurationMillis:   duration,
		TicketsEvaluated: s.TicketsEvaluated,
		WarningsSent:     s.WarningsSent,
		BreachesSent:     s.BreachesSent,
		EscalationsSent:  s.EscalationsSent,
		Failures:         failures,
		Error:            s.Error,
	}
}

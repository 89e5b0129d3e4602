package domain

import "time"

// RunState is the lifecycle position of one monitor run.
type RunState string

const (
	RunStateIdle       RunState = "IDLE"
	RunStateLoading    RunState = "LOADING"
	RunStateEvaluating RunState = "EVALUATING"
	RunStateCompleted  RunState = "COMPLETED"
	RunStateFailed     RunState = "FAILED"
)

// FailureStage names where a per-timer failure happened.
type FailureStage string

const (
	StageEvaluate       FailureStage = "evaluate"
	StageSendWarning    FailureStage = "send_warning"
	StageSendDirect     FailureStage = "send_direct"
	StageSendEscalation FailureStage = "send_escalation"
	StagePersist        FailureStage = "persist"
)

// TimerFailure is a recoverable per-ticket failure captured in a run summary.
type TimerFailure struct {
	TicketID     string       `json:"ticket_id"`
	TicketNumber int64        `json:"ticket_number"`
	Timer        TimerKind    `json:"timer,omitempty"`
	Stage        FailureStage `json:"stage"`
	Reason       string       `json:"reason"`
	Err          error        `json:"-"`
}

// RunSummary is the result of a single monitor run.
type RunSummary struct {
	RunID            string         `json:"run_id"`
	State            RunState       `json:"state"`
	Now              time.Time      `json:"now"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
	TicketsEvaluated int            `json:"tickets_evaluated"`
	WarningsSent     int            `json:"warnings_sent"`
	BreachesSent     int            `json:"breaches_sent"`
	EscalationsSent  int            `json:"escalations_sent"`
	Failures         []TimerFailure `json:"failures"`
	Error            string         `json:"error,omitempty"`
}

// Clean reports whether the run completed without any per-ticket failures.
func (s RunSummary) Clean() bool {
	return s.State == RunStateCompleted && len(s.Failures) == 0
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla-service/internal/domain"
	"github.com/spec-kit/ticket-sla-service/internal/observability"
	"github.com/spec-kit/ticket-sla-service/internal/repository"
	"github.com/spec-kit/ticket-sla-service/internal/sla"
)

const defaultPersistTimeout = 10 * time.Second

// Notifier is the subset of NotificationService used by the coordinator.
type Notifier interface {
	SendWarning(ctx context.Context, notice TimerNotice) error
	SendBreach(ctx context.Context, notice TimerNotice) error
	SendEscalation(ctx context.Context, notice TimerNotice, roster []string) error
}

// EscalationResult tallies the effects applied for one timer.
type EscalationResult struct {
	WarningSent    bool
	BreachSent     bool
	EscalationSent bool
	FlagPersisted  bool
	Failures       []domain.TimerFailure
}

// EscalationService turns a timer classification into notifications and the breach flag write.
//
// Warnings are not guarded by any persisted flag and repeat on every run while the
// timer stays in its warning window. Breaches are sent first and recorded second, so a
// crash in between yields a duplicate notification on the next run, never a lost one.
type EscalationService struct {
	notifier       Notifier
	tickets        repository.TicketRepository
	logger         *zap.Logger
	metrics        *observability.Metrics
	persistTimeout time.Duration
}

// EscalationDependencies bundles collaborators for the coordinator.
type EscalationDependencies struct {
	Notifier       Notifier
	TicketRepo     repository.TicketRepository
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	PersistTimeout time.Duration
}

// NewEscalationService creates the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.PersistTimeout
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return &EscalationService{
		notifier:       deps.Notifier,
		tickets:        deps.TicketRepo,
		logger:         logger,
		metrics:        deps.Metrics,
		persistTimeout: timeout,
	}
}

// Handle applies the effects for a classified timer. Every effect is attempted
// independently; failures are returned in the result rather than aborting.
func (s *EscalationService) Handle(ctx context.Context, notice TimerNotice, roster []string) EscalationResult {
	var res EscalationResult
	switch notice.Classification.Outcome {
	case sla.Warning:
		if err := s.notifier.SendWarning(ctx, notice); err != nil {
			res.Failures = append(res.Failures, s.sendFailure(notice, domain.StageSendWarning, "direct", err))
		} else {
			res.WarningSent = true
		}
	case sla.Breach:
		s.handleBreach(ctx, notice, roster, &res)
	}
	return res
}

func (s *EscalationService) handleBreach(ctx context.Context, notice TimerNotice, roster []string, res *EscalationResult) {
	var interrupted bool
	if err := s.notifier.SendBreach(ctx, notice); err != nil {
		interrupted = interrupted || isContextError(err)
		res.Failures = append(res.Failures, s.sendFailure(notice, domain.StageSendDirect, "direct", err))
	} else {
		res.BreachSent = true
	}

	if len(roster) > 0 {
		if err := s.notifier.SendEscalation(ctx, notice, roster); err != nil {
			interrupted = interrupted || isContextError(err)
			res.Failures = append(res.Failures, s.sendFailure(notice, domain.StageSendEscalation, "escalation", err))
		} else {
			res.EscalationSent = true
		}
	}

	// Nothing was delivered because the run was cut short: leave the flag unset
	// so the next run detects the breach again.
	if interrupted && !res.BreachSent && !res.EscalationSent {
		s.logger.Warn("breach left unrecorded after cancelled sends",
			zap.String("run_id", notice.RunID),
			zap.String("ticket_id", notice.Ticket.ID),
			zap.Int64("ticket_number", notice.Ticket.Number),
			zap.String("timer", string(notice.Timer)))
		return
	}

	// Once a send went out, run cancellation must not lose the flag write.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()
	if err := s.tickets.MarkBreached(persistCtx, notice.Ticket.ID, notice.Timer); err != nil {
		err = fmt.Errorf("%w: %w", ErrPersistFailed, err)
		s.metrics.RecordBreachFlagFailure(string(notice.Timer))
		s.logger.Error("breach flag write failed; breach will be re-notified next run",
			zap.String("run_id", notice.RunID),
			zap.String("ticket_id", notice.Ticket.ID),
			zap.Int64("ticket_number", notice.Ticket.Number),
			zap.String("timer", string(notice.Timer)),
			zap.Error(err))
		res.Failures = append(res.Failures, newFailure(notice.Ticket, notice.Timer, domain.StagePersist, err))
		return
	}
	res.FlagPersisted = true
}

func (s *EscalationService) sendFailure(notice TimerNotice, stage domain.FailureStage, recipientClass string, err error) domain.TimerFailure {
	if !errors.Is(err, ErrSendFailed) {
		err = fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	s.metrics.RecordNotificationFailure(recipientClass)
	s.logger.Warn("sla notification failed",
		zap.String("run_id", notice.RunID),
		zap.String("ticket_id", notice.Ticket.ID),
		zap.Int64("ticket_number", notice.Ticket.Number),
		zap.String("timer", string(notice.Timer)),
		zap.String("recipient_class", recipientClass),
		zap.Error(err))
	return newFailure(notice.Ticket, notice.Timer, stage, err)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func newFailure(ticket *domain.Ticket, timer domain.TimerKind, stage domain.FailureStage, err error) domain.TimerFailure {
	return domain.TimerFailure{
		TicketID:     ticket.ID,
		TicketNumber: ticket.Number,
		Timer:        timer,
		Stage:        stage,
		Reason:       err.Error(),
		Err:          err,
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/ticket-sla-service/internal/domain"
	"github.com/spec-kit/ticket-sla-service/internal/events"
	"github.com/spec-kit/ticket-sla-service/internal/observability"
	"github.com/spec-kit/ticket-sla-service/internal/repository"
	"github.com/spec-kit/ticket-sla-service/internal/sla"
)

const historyWriteTimeout = 5 * time.Second

// TimerHandler applies the effects of a classified timer.
type TimerHandler interface {
	Handle(ctx context.Context, notice TimerNotice, roster []string) EscalationResult
}

// RunLocker guards against overlapping runs across processes.
type RunLocker interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// RunOptions tunes a single run.
type RunOptions struct {
	// Now overrides the evaluation instant. Zero means the service clock.
	Now time.Time
}

// SLAMonitorService loads active tickets and drives every applicable timer through
// classification and escalation. It keeps no state between runs.
type SLAMonitorService struct {
	tickets         repository.TicketRepository
	staff           repository.StaffRepository
	handler         TimerHandler
	calculator      sla.Calculator
	dispatcher      events.Dispatcher
	lock            RunLocker
	history         repository.RunSummaryStore
	escalationRoles []domain.StaffRole
	workers         int
	lockTTL         time.Duration
	clock           func() time.Time
	logger          *zap.Logger
	metrics         *observability.Metrics
}

// SLAMonitorDependencies bundles collaborators for the monitor.
type SLAMonitorDependencies struct {
	TicketRepo      repository.TicketRepository
	StaffRepo       repository.StaffRepository
	Handler         TimerHandler
	Calculator      sla.Calculator
	Dispatcher      events.Dispatcher
	Lock            RunLocker
	History         repository.RunSummaryStore
	EscalationRoles []domain.StaffRole
	Workers         int
	LockTTL         time.Duration
	Clock           func() time.Time
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// NewSLAMonitorService constructs the monitor.
func NewSLAMonitorService(deps SLAMonitorDependencies) *SLAMonitorService {
	s := &SLAMonitorService{
		tickets:         deps.TicketRepo,
		staff:           deps.StaffRepo,
		handler:         deps.Handler,
		calculator:      deps.Calculator,
		dispatcher:      deps.Dispatcher,
		lock:            deps.Lock,
		history:         deps.History,
		escalationRoles: deps.EscalationRoles,
		workers:         deps.Workers,
		lockTTL:         deps.LockTTL,
		clock:           deps.Clock,
		logger:          deps.Logger,
		metrics:         deps.Metrics,
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 10 * time.Minute
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if len(s.escalationRoles) == 0 {
		s.escalationRoles = []domain.StaffRole{domain.StaffRoleTeamLead, domain.StaffRoleAdmin}
	}
	return s
}

// ParseStaffRoles converts configured role names, rejecting unknown ones.
func ParseStaffRoles(names []string) ([]domain.StaffRole, error) {
	roles := make([]domain.StaffRole, 0, len(names))
	for _, name := range names {
		role := domain.StaffRole(strings.ToUpper(strings.TrimSpace(name)))
		switch role {
		case domain.StaffRoleAgent, domain.StaffRoleTeamLead, domain.StaffRoleAdmin:
			roles = append(roles, role)
		default:
			return nil, fmt.Errorf("unknown staff role %q", name)
		}
	}
	return roles, nil
}

// Run performs one full pass. Only load failures and a held run lock return an
// error before evaluation; per-ticket problems end up in the summary's Failures.
func (s *SLAMonitorService) Run(ctx context.Context, opts RunOptions) (domain.RunSummary, error) {
	started := s.clock().UTC()
	now := opts.Now
	if now.IsZero() {
		now = started
	}
	summary := domain.RunSummary{
		RunID:     uuid.NewString(),
		State:     domain.RunStateIdle,
		Now:       now.UTC(),
		StartedAt: started,
		Failures:  []domain.TimerFailure{},
	}
	logger := s.logger.With(zap.String("run_id", summary.RunID))

	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx, s.lockTTL)
		switch {
		case err != nil:
			logger.Warn("run lock unavailable; continuing without it", zap.Error(err))
		case !ok:
			logger.Info("another sla run holds the lock; skipping")
			s.metrics.RecordRun("skipped", 0)
			return summary, ErrRunInProgress
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("run lock release failed", zap.Error(err))
				}
			}()
		}
	}

	logger.Info("sla run started", zap.Time("now", summary.Now))
	summary.State = domain.RunStateLoading
	tickets, roster, err := s.load(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrLoadFailure, err)
		summary.State = domain.RunStateFailed
		summary.Error = err.Error()
		logger.Error("sla run failed to load", zap.Error(err))
		s.finish(ctx, logger, &summary)
		return summary, err
	}

	summary.State = domain.RunStateEvaluating
	acc := &accumulator{}
	s.evaluate(ctx, summary.RunID, summary.Now, tickets, roster, acc)
	acc.apply(&summary)

	var runErr error
	if err := ctx.Err(); err != nil {
		runErr = fmt.Errorf("sla run interrupted: %w", err)
		summary.State = domain.RunStateFailed
		summary.Error = runErr.Error()
	} else {
		summary.State = domain.RunStateCompleted
	}
	s.finish(ctx, logger, &summary)
	return summary, runErr
}

func (s *SLAMonitorService) load(ctx context.Context) ([]domain.Ticket, []string, error) {
	tickets, err := s.tickets.ListActiveWithPolicy(ctx, domain.ActiveTicketStatuses())
	if err != nil {
		return nil, nil, fmt.Errorf("list tickets: %w", err)
	}
	staff, err := s.staff.ListActiveByRoles(ctx, s.escalationRoles)
	if err != nil {
		return nil, nil, fmt.Errorf("list escalation roster: %w", err)
	}
	return tickets, rosterAddresses(staff), nil
}

func (s *SLAMonitorService) evaluate(ctx context.Context, runID string, now time.Time, tickets []domain.Ticket, roster []string, acc *accumulator) {
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i := range tickets {
		if ctx.Err() != nil {
			break
		}
		ticket := tickets[i]
		g.Go(func() error {
			s.evaluateTicket(ctx, runID, now, &ticket, roster, acc)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *SLAMonitorService) evaluateTicket(ctx context.Context, runID string, now time.Time, ticket *domain.Ticket, roster []string, acc *accumulator) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic evaluating ticket: %v", r)
			s.logger.Error("ticket evaluation panicked",
				zap.String("run_id", runID),
				zap.String("ticket_id", ticket.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			acc.addFailure(s.metrics, newFailure(ticket, "", domain.StageEvaluate, err))
		}
	}()

	if ticket.Priority == nil {
		return
	}
	acc.ticketEvaluated()
	for _, timer := range ticket.ApplicableTimers() {
		window, err := s.calculator.Compute(ticket.CreatedAt, ticket.Priority.AllowedHours(timer))
		if err != nil {
			s.logger.Warn("sla timer skipped",
				zap.String("run_id", runID),
				zap.String("ticket_id", ticket.ID),
				zap.Int64("ticket_number", ticket.Number),
				zap.String("timer", string(timer)),
				zap.String("priority", ticket.Priority.Name),
				zap.Error(err))
			acc.addFailure(s.metrics, newFailure(ticket, timer, domain.StageEvaluate, err))
			continue
		}

		classification := sla.Classify(now, window, ticket.Breached(timer))
		if classification.Outcome == sla.NotYetDue || classification.Outcome == sla.AlreadyHandled {
			continue
		}
		if ctx.Err() != nil {
			s.logger.Debug("run cancelled; remaining timers left for next run",
				zap.String("run_id", runID),
				zap.String("ticket_id", ticket.ID))
			return
		}
		res := s.handler.Handle(ctx, TimerNotice{
			RunID:          runID,
			Ticket:         ticket,
			Timer:          timer,
			Window:         window,
			Classification: classification,
			Now:            now,
		}, roster)
		acc.addResult(s.metrics, res)
	}
}

func (s *SLAMonitorService) finish(ctx context.Context, logger *zap.Logger, summary *domain.RunSummary) {
	summary.FinishedAt = s.clock().UTC()
	duration := summary.FinishedAt.Sub(summary.StartedAt)
	s.metrics.RecordRun(strings.ToLower(string(summary.State)), duration)

	logger.Info("sla run finished",
		zap.String("state", string(summary.State)),
		zap.Int("tickets", summary.TicketsEvaluated),
		zap.Int("warnings_sent", summary.WarningsSent),
		zap.Int("breaches_sent", summary.BreachesSent),
		zap.Int("escalations_sent", summary.EscalationsSent),
		zap.Int("failures", len(summary.Failures)),
		zap.Duration("duration", duration))

	detached := context.WithoutCancel(ctx)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(detached, events.Event{
			Type:      events.EventSLARunCompleted,
			RunID:     summary.RunID,
			Timestamp: summary.FinishedAt,
			Payload: events.RunCompletedPayload{
				State:           summary.State,
				Tickets:         summary.TicketsEvaluated,
				WarningsSent:    summary.WarningsSent,
				BreachesSent:    summary.BreachesSent,
				EscalationsSent: summary.EscalationsSent,
				Failures:        len(summary.Failures),
			},
		})
	}
	if s.history != nil {
		saveCtx, cancel := context.WithTimeout(detached, historyWriteTimeout)
		defer cancel()
		if err := s.history.Save(saveCtx, *summary); err != nil {
			logger.Warn("failed to store run summary", zap.Error(err))
		}
	}
}

// rosterAddresses returns unique, non-empty addresses, compared case-insensitively.
func rosterAddresses(staff []domain.StaffMember) []string {
	seen := make(map[string]struct{}, len(staff))
	out := make([]string, 0, len(staff))
	for _, member := range staff {
		addr := strings.TrimSpace(member.Email)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// accumulator merges per-ticket results from concurrent workers.
type accumulator struct {
	mu          sync.Mutex
	tickets     int
	warnings    int
	breaches    int
	escalations int
	failures    []domain.TimerFailure
}

func (a *accumulator) ticketEvaluated() {
	a.mu.Lock()
	a.tickets++
	a.mu.Unlock()
}

func (a *accumulator) addResult(metrics *observability.Metrics, res EscalationResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if res.WarningSent {
		a.warnings++
	}
	if res.BreachSent {
		a.breaches++
	}
	if res.EscalationSent {
		a.escalations++
	}
	for _, f := range res.Failures {
		metrics.RecordTimerFailure(string(f.Stage))
		a.failures = append(a.failures, f)
	}
}

func (a *accumulator) addFailure(metrics *observability.Metrics, f domain.TimerFailure) {
	a.addResult(metrics, EscalationResult{Failures: []domain.TimerFailure{f}})
}

func (a *accumulator) apply(summary *domain.RunSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	summary.TicketsEvaluated = a.tickets
	summary.WarningsSent = a.warnings
	summary.BreachesSent = a.breaches
	summary.EscalationsSent = a.escalations
	failures := append([]domain.TimerFailure{}, a.failures...)
	sort.SliceStable(failures, func(i, j int) bool {
		if failures[i].TicketNumber != failures[j].TicketNumber {
			return failures[i].TicketNumber < failures[j].TicketNumber
		}
		return failures[i].Timer < failures[j].Timer
	})
	summary.Failures = failures
}

// IsLoadFailure reports whether err aborted a run before evaluation.
func IsLoadFailure(err error) bool {
	return errors.Is(err, ErrLoadFailure)
}

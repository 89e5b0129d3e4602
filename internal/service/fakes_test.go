package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/ticket-sla-service/internal/config"
	"github.com/spec-kit/ticket-sla-service/internal/domain"
	"github.com/spec-kit/ticket-sla-service/internal/events"
	"github.com/spec-kit/ticket-sla-service/internal/sla"
)

var errBoom = errors.New("boom")

type fakeTicketRepo struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	order    []string
	listErr  error
	markErr  map[string]error
	marks    int
	panicFor string
}

func newFakeTicketRepo(tickets ...domain.Ticket) *fakeTicketRepo {
	r := &fakeTicketRepo{tickets: map[string]*domain.Ticket{}, markErr: map[string]error{}}
	for i := range tickets {
		t := tickets[i]
		r.tickets[t.ID] = &t
		r.order = append(r.order, t.ID)
	}
	return r
}

func (r *fakeTicketRepo) ListActiveWithPolicy(_ context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	allowed := map[domain.TicketStatus]bool{}
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []domain.Ticket
	for _, id := range r.order {
		t := r.tickets[id]
		if t.Priority == nil || !allowed[t.Status] {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTicketRepo) MarkBreached(_ context.Context, ticketID string, kind domain.TimerKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticketID == r.panicFor {
		panic("storage exploded")
	}
	if err := r.markErr[ticketID]; err != nil {
		return err
	}
	t, ok := r.tickets[ticketID]
	if !ok {
		return errors.New("no such ticket")
	}
	r.marks++
	switch kind {
	case domain.TimerResponse:
		t.SLABreachResponse = true
	case domain.TimerResolution:
		t.SLABreachResolution = true
	}
	return nil
}

func (r *fakeTicketRepo) get(id string) domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.tickets[id]
}

type fakeStaffRepo struct {
	staff   []domain.StaffMember
	listErr error
	roles   []domain.StaffRole
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	for i := range r.staff {
		if r.staff[i].ID == id {
			s := r.staff[i]
			return &s, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeStaffRepo) ListActiveByRoles(_ context.Context, roles []domain.StaffRole) ([]domain.StaffMember, error) {
	r.roles = roles
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.StaffMember
	for _, s := range r.staff {
		if !s.Active {
			continue
		}
		for _, role := range roles {
			if s.Role == role {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

type sentMail struct {
	To      []string
	Subject string
	Body    string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]error
	afterFn func()
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: map[string]error{}}
}

func (s *fakeSender) Send(ctx context.Context, to []string, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, addr := range to {
		if err := s.failFor[addr]; err != nil {
			return err
		}
	}
	s.sent = append(s.sent, sentMail{To: append([]string{}, to...), Subject: subject, Body: body})
	if s.afterFn != nil {
		s.afterFn()
	}
	return nil
}

func (s *fakeSender) mails() []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMail{}, s.sent...)
}

type fakeLock struct {
	held     bool
	err      error
	released bool
}

func (l *fakeLock) Acquire(context.Context, time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.released = true
		return nil
	}, true, nil
}

type fakeHistory struct {
	mu    sync.Mutex
	saved []domain.RunSummary
}

func (h *fakeHistory) Save(_ context.Context, summary domain.RunSummary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, summary)
	return nil
}

func (h *fakeHistory) Last(context.Context) (*domain.RunSummary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.saved) == 0 {
		return nil, errors.New("empty")
	}
	s := h.saved[len(h.saved)-1]
	return &s, nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	monitor *SLAMonitorService
	tickets *fakeTicketRepo
	staff   *fakeStaffRepo
	sender  *fakeSender
	events  *recordedEvents
	history *fakeHistory
}

func newHarness(t *testing.T, tickets *fakeTicketRepo, staff *fakeStaffRepo, workers int) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	sender := newFakeSender()
	dispatcher := events.NewInMemoryDispatcher(logger)
	recorded := &recordedEvents{}
	for _, et := range events.AllEventTypes() {
		dispatcher.Subscribe(et, recorded.handler)
	}
	calc, err := sla.NewCalculator(sla.DefaultWarningFraction)
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	notifier := NewNotificationService(sender, dispatcher, logger, nil, config.NotificationConfig{
		TicketURLTemplate: "https://support.example.com/tickets/{number}",
	})
	escalations := NewEscalationService(EscalationDependencies{
		Notifier:   notifier,
		TicketRepo: tickets,
		Logger:     logger,
	})
	history := &fakeHistory{}
	monitor := NewSLAMonitorService(SLAMonitorDependencies{
		TicketRepo: tickets,
		StaffRepo:  staff,
		Handler:    escalations,
		Calculator: calc,
		Dispatcher: dispatcher,
		History:    history,
		Workers:    workers,
		Logger:     logger,
	})
	return &harness{
		monitor: monitor,
		tickets: tickets,
		staff:   staff,
		sender:  sender,
		events:  recorded,
		history: history,
	}
}

var (
	baseNow    = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	highPolicy = &domain.PriorityPolicy{ID: "p-high", Name: "High", ResponseTimeHours: 4, ResolutionTimeHours: 24}
)

func ticketAt(id string, number int64, age time.Duration) domain.Ticket {
	return domain.Ticket{
		ID:        id,
		Number:    number,
		Title:     "Printer on fire",
		Status:    domain.TicketStatusOpen,
		CreatedAt: baseNow.Add(-age),
		Priority:  highPolicy,
		Requester: domain.Contact{ID: "u-" + id, Name: "Requester " + id, Email: id + "@customer.example.com"},
	}
}

func roster() *fakeStaffRepo {
	return &fakeStaffRepo{staff: []domain.StaffMember{
		{ID: "s1", Name: "Lead", Email: "lead@example.com", Role: domain.StaffRoleTeamLead, Active: true},
		{ID: "s2", Name: "Admin", Email: "admin@example.com", Role: domain.StaffRoleAdmin, Active: true},
		{ID: "s3", Name: "Agent", Email: "agent@example.com", Role: domain.StaffRoleAgent, Active: true},
		{ID: "s4", Name: "Former", Email: "former@example.com", Role: domain.StaffRoleAdmin, Active: false},
		{ID: "s5", Name: "Lead Alias", Email: "LEAD@example.com", Role: domain.StaffRoleAdmin, Active: true},
	}}
}

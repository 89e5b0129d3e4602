package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-sla-service/internal/domain"
)

// TicketRepository is the SLA monitor's view of ticket storage: it reads
// active tickets with their policy and contacts and writes breach flags.
type TicketRepository interface {
	ListActiveWithPolicy(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error)
	MarkBreached(ctx context.Context, ticketID string, kind domain.TimerKind) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) ListActiveWithPolicy(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	const query = `
        SELECT t.id, t.ticket_number, t.title, t.status, t.created_at, t.first_response_at,
               t.sla_breach_response, t.sla_breach_resolution,
               p.id, p.name, p.response_time_hours, p.resolution_time_hours,
               u.id, u.name, u.email,
               s.id, s.name, s.email
        FROM tickets t
        JOIN sla_policies p ON p.id = t.priority_id
        JOIN users u ON u.id = t.requester_user_id
        LEFT JOIN staff_members s ON s.id = t.assignee_staff_id
        WHERE t.priority_id IS NOT NULL AND t.status = ANY($1)
        ORDER BY t.created_at ASC`

	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	rows, err := r.pool.Query(ctx, query, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) MarkBreached(ctx context.Context, ticketID string, kind domain.TimerKind) error {
	column, err := breachColumn(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE tickets SET %s = TRUE WHERE id = $1`, column)
	cmd, err := r.pool.Exec(ctx, query, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func breachColumn(kind domain.TimerKind) (string, error) {
	switch kind {
	case domain.TimerResponse:
		return "sla_breach_response", nil
	case domain.TimerResolution:
		return "sla_breach_resolution", nil
	}
	return "", fmt.Errorf("unknown timer kind %q", kind)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		var policy domain.PriorityPolicy
		var assigneeID, assigneeName, assigneeEmail *string
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Number,
			&ticket.Title,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.FirstResponseAt,
			&ticket.SLABreachResponse,
			&ticket.SLABreachResolution,
			&policy.ID,
			&policy.Name,
			&policy.ResponseTimeHours,
			&policy.ResolutionTimeHours,
			&ticket.Requester.ID,
			&ticket.Requester.Name,
			&ticket.Requester.Email,
			&assigneeID,
			&assigneeName,
			&assigneeEmail,
		); err != nil {
			return nil, err
		}
		ticket.Priority = &policy
		if assigneeID != nil {
			ticket.Assignee = &domain.Contact{ID: *assigneeID, Name: deref(assigneeName), Email: deref(assigneeEmail)}
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

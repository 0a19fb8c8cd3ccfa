package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// StatusEventRepository reads the append-only status log. The engine never
// writes it; the surrounding platform records transitions as they happen.
type StatusEventRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChangeEvent, error)
}

type statusEventRepository struct {
	pool *pgxpool.Pool
}

// NewStatusEventRepository builds repository.
func NewStatusEventRepository(pool *pgxpool.Pool) StatusEventRepository {
	return &statusEventRepository{pool: pool}
}

// ListByTicket returns the ticket's status changes ordered by occurrence,
// with the insert sequence breaking timestamp ties.
func (r *statusEventRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChangeEvent, error) {
	const query = `
        SELECT id, ticket_id, status, occurred_at, seq
        FROM ticket_status_events WHERE ticket_id=$1 ORDER BY occurred_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusChangeEvent
	for rows.Next() {
		var event domain.StatusChangeEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.Status,
			&event.OccurredAt,
			&event.Sequence,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

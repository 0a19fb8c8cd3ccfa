package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EvaluationFilter narrows the sweep candidate set by company.
type EvaluationFilter struct {
	CompanyAllowList []string
	CompanyDenyList  []string
}

// TicketRepository encapsulates ticket persistence as seen by the
// compliance engine: candidate enumeration, single-ticket reads for the
// preview endpoint, and the guarded breach-flag write.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListOpenForEvaluation(ctx context.Context, filter EvaluationFilter) ([]domain.Ticket, error)
	MarkBreached(ctx context.Context, id string) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, company_id, department_id, category_id, priority, status,
               created_at, updated_at, first_response_at, resolved_at, sla_breached`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.CompanyID,
		&ticket.DepartmentID,
		&ticket.CategoryID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.SLABreached,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListOpenForEvaluation returns every ticket a sweep must judge: non-terminal
// status, breach flag not yet set, optionally restricted by company.
func (r *ticketRepository) ListOpenForEvaluation(ctx context.Context, filter EvaluationFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"sla_breached = FALSE"}
	args := []any{}

	statuses := domain.OpenStatuses()
	placeholders := make([]string, len(statuses))
	for i, status := range statuses {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))

	if len(filter.CompanyAllowList) > 0 {
		args = append(args, filter.CompanyAllowList)
		clauses = append(clauses, fmt.Sprintf("company_id = ANY($%d)", len(args)))
	}
	if len(filter.CompanyDenyList) > 0 {
		args = append(args, filter.CompanyDenyList)
		clauses = append(clauses, fmt.Sprintf("NOT (company_id = ANY($%d))", len(args)))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY company_id, created_at", base, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// MarkBreached flips the breach flag if it is still unset. The guarded
// update keeps the transition exactly-once across overlapping sweeps;
// false means another writer won the race.
func (r *ticketRepository) MarkBreached(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE tickets SET sla_breached = TRUE, updated_at = NOW()
        WHERE id=$1 AND sla_breached = FALSE`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.CompanyID,
			&ticket.DepartmentID,
			&ticket.CategoryID,
			&ticket.Priority,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.FirstResponseAt,
			&ticket.ResolvedAt,
			&ticket.SLABreached,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// SLARepository loads a company's SLA policy rows. Policy administration
// belongs to the surrounding platform; the engine only reads.
type SLARepository interface {
	ListByCompany(ctx context.Context, companyID string) ([]domain.SLADefinition, error)
}

type slaRepository struct {
	pool *pgxpool.Pool
}

// NewSLARepository builds the repository.
func NewSLARepository(pool *pgxpool.Pool) SLARepository {
	return &slaRepository{pool: pool}
}

// ListByCompany returns the company's definitions ordered by creation time,
// the order resolution uses to break ties between equally specific rows.
func (r *slaRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.SLADefinition, error) {
	const query = `
        SELECT id, company_id, department_id, category_id, priority,
               response_hours, resolution_hours, created_at
        FROM sla_definitions WHERE company_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLADefinition
	for rows.Next() {
		var (
			def             domain.SLADefinition
			responseHours   float64
			resolutionHours float64
		)
		if err := rows.Scan(
			&def.ID,
			&def.CompanyID,
			&def.DepartmentID,
			&def.CategoryID,
			&def.Priority,
			&responseHours,
			&resolutionHours,
			&def.CreatedAt,
		); err != nil {
			return nil, err
		}
		def.Response = durationFromHours(responseHours)
		def.Resolution = durationFromHours(resolutionHours)
		result = append(result, def)
	}
	return result, rows.Err()
}

func durationFromHours(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

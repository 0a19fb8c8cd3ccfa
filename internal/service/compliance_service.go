package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// ComplianceService answers point-in-time SLA questions for a single
// ticket. It never mutates ticket state; breach writes belong to the
// scheduler's sweep.
type ComplianceService struct {
	tickets   repository.TicketRepository
	events    repository.StatusEventRepository
	slas      repository.SLARepository
	calendars repository.CalendarRepository

	// Now is swappable in tests.
	Now func() time.Time
}

// ComplianceDependencies bundles repositories for the compliance service.
type ComplianceDependencies struct {
	TicketRepo   repository.TicketRepository
	EventRepo    repository.StatusEventRepository
	SLARepo      repository.SLARepository
	CalendarRepo repository.CalendarRepository
}

// CompliancePreview is the evaluated clock state of one ticket.
type CompliancePreview struct {
	Ticket      *domain.Ticket
	Result      domain.ComplianceResult
	EvaluatedAt time.Time
}

// NewComplianceService constructs the service.
func NewComplianceService(deps ComplianceDependencies) *ComplianceService {
	return &ComplianceService{
		tickets:   deps.TicketRepo,
		events:    deps.EventRepo,
		slas:      deps.SLARepo,
		calendars: deps.CalendarRepo,
		Now:       time.Now,
	}
}

// PreviewCompliance evaluates the governing SLA clock for a ticket as of
// now, without writing anything back.
func (s *ComplianceService) PreviewCompliance(ctx context.Context, ticketID string) (*CompliancePreview, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	defs, err := s.slas.ListByCompany(ctx, ticket.CompanyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	target, ok := sla.NewResolver(defs).Resolve(ticket.DepartmentID, ticket.Priority, ticket.CategoryID)
	if !ok {
		return nil, apperrors.NewDomainError("SLA_NOT_CONFIGURED",
			"no SLA definition applies to this ticket",
			http.StatusNotFound,
			map[string]any{"ticket_id": ticketID})
	}

	calCfg, err := s.calendars.GetByCompany(ctx, ticket.CompanyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	history, err := s.events.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	periods, err := sla.BuildPeriods(ticket.CreatedAt, domain.TicketStatusInitial, history, ticket.EndOfTimeline(now))
	if err != nil {
		if errors.Is(err, sla.ErrInconsistentHistory) {
			return nil, apperrors.NewDomainError("INCONSISTENT_HISTORY",
				"ticket status history predates ticket creation",
				http.StatusUnprocessableEntity,
				map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	result, err := sla.NewEvaluator(sla.NewCalendar(*calCfg)).Evaluate(ticket, periods, target, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &CompliancePreview{Ticket: ticket, Result: result, EvaluatedAt: now}, nil
}

func (s *ComplianceService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

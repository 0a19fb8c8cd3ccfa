package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ComplianceResponse reports the evaluated SLA clock state for one ticket.
type ComplianceResponse struct {
	TicketID         string                  `json:"ticket_id"`
	CompanyID        string                  `json:"company_id"`
	Status           domain.TicketStatus     `json:"status"`
	Priority         domain.TicketPriority   `json:"priority"`
	Phase            domain.CompliancePhase  `json:"phase"`
	Breached         bool                    `json:"breached"`
	Action           domain.ComplianceAction `json:"action"`
	ElapsedSeconds   int64                   `json:"elapsed_seconds"`
	TargetSeconds    int64                   `json:"target_seconds"`
	RemainingSeconds int64                   `json:"remaining_seconds"`
	ThresholdSeconds int64                   `json:"threshold_seconds"`
	DueAt            *time.Time              `json:"due_at,omitempty"`
	EvaluatedAt      time.Time               `json:"evaluated_at"`
}

// SweepResponse reports the outcome of a manually triggered sweep.
type SweepResponse struct {
	RunID      string    `json:"run_id"`
	Origin     string    `json:"origin"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Checked    int       `json:"checked"`
	DueSoon    int       `json:"due_soon"`
	Breached   int       `json:"breached"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
}

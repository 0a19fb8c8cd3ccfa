package events

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSLADueSoon        EventType = "sla_due_soon"
	EventSLABreached       EventType = "sla_breached"
	EventSLASweepCompleted EventType = "sla_sweep_completed"
)

// Origin identifies what initiated the evaluation that raised an event.
type Origin string

const (
	OriginScheduled Origin = "scheduled"
	OriginManual    Origin = "manual"
)

// Event represents a compliance event emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Origin    Origin      `json:"origin"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SLADueSoonPayload payload.
type SLADueSoonPayload struct {
	CompanyID        string                 `json:"company_id"`
	Phase            domain.CompliancePhase `json:"phase"`
	Priority         domain.TicketPriority  `json:"priority"`
	ElapsedSeconds   int64                  `json:"elapsed_seconds"`
	TargetSeconds    int64                  `json:"target_seconds"`
	RemainingSeconds int64                  `json:"remaining_seconds"`
	DueAt            *time.Time             `json:"due_at,omitempty"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	CompanyID      string                 `json:"company_id"`
	Phase          domain.CompliancePhase `json:"phase"`
	Priority       domain.TicketPriority  `json:"priority"`
	ElapsedSeconds int64                  `json:"elapsed_seconds"`
	TargetSeconds  int64                  `json:"target_seconds"`
	Reason         string                 `json:"reason"`
}

// SLASweepCompletedPayload payload.
type SLASweepCompletedPayload struct {
	RunID      string `json:"run_id"`
	Checked    int    `json:"checked"`
	DueSoon    int    `json:"due_soon"`
	Breached   int    `json:"breached"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
	DurationMS int64  `json:"duration_ms"`
}

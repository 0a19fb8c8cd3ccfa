package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "OPEN"
	TicketStatusInProgress  TicketStatus = "IN_PROGRESS"
	TicketStatusPendingUser TicketStatus = "PENDING_USER"
	TicketStatusOnHold      TicketStatus = "ON_HOLD"
	TicketStatusResolved    TicketStatus = "RESOLVED"
	TicketStatusClosed      TicketStatus = "CLOSED"
	TicketStatusCancelled   TicketStatus = "CANCELLED"
)

// TicketStatusInitial is the status every ticket starts in.
const TicketStatusInitial = TicketStatusOpen

// pausedStatuses are states where the requester (not the support team) owns
// the next move, so SLA clocks stop accruing.
var pausedStatuses = map[TicketStatus]struct{}{
	TicketStatusPendingUser: {},
	TicketStatusOnHold:      {},
}

// terminalStatuses end the ticket timeline at their transition instant.
var terminalStatuses = map[TicketStatus]struct{}{
	TicketStatusResolved:  {},
	TicketStatusClosed:    {},
	TicketStatusCancelled: {},
}

// IsPaused reports whether SLA time accrual is suspended in this status.
func (s TicketStatus) IsPaused() bool {
	_, ok := pausedStatuses[s]
	return ok
}

// IsTerminal reports whether the status ends the ticket lifecycle.
func (s TicketStatus) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// OpenStatuses returns every non-terminal status, the candidate set for
// compliance sweeps.
func OpenStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusOpen,
		TicketStatusInProgress,
		TicketStatusPendingUser,
		TicketStatusOnHold,
	}
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Ticket is the aggregate for support requests as seen by the compliance
// engine. Conversation content and assignment live in the surrounding
// platform; only the fields the SLA clock needs are carried here.
type Ticket struct {
	ID              string
	CompanyID       string
	DepartmentID    string
	CategoryID      *string
	Priority        TicketPriority
	Status          TicketStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	SLABreached     bool
}

// EndOfTimeline returns the instant evaluation should stop accruing time:
// the resolution instant for resolved tickets, otherwise now.
func (t *Ticket) EndOfTimeline(now time.Time) time.Time {
	if t.ResolvedAt != nil && t.ResolvedAt.Before(now) {
		return *t.ResolvedAt
	}
	return now
}

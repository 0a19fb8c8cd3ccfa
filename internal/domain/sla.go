package domain

import "time"

// SLATarget carries the business-time budgets a ticket is judged against.
type SLATarget struct {
	Response   time.Duration
	Resolution time.Duration
}

// SLADefinition is one row of a company's SLA policy. Specificity is
// encoded in which optional columns are set: category rules carry both
// DepartmentID and CategoryID, department rules only DepartmentID, and
// company defaults neither.
type SLADefinition struct {
	ID           string
	CompanyID    string
	DepartmentID *string
	CategoryID   *string
	Priority     TicketPriority
	Response     time.Duration
	Resolution   time.Duration
	CreatedAt    time.Time
}

// Target extracts the duration pair from a definition.
func (d *SLADefinition) Target() SLATarget {
	return SLATarget{Response: d.Response, Resolution: d.Resolution}
}

// CompliancePhase names which SLA clock currently governs a ticket.
type CompliancePhase string

const (
	PhaseAwaitingFirstResponse CompliancePhase = "AWAITING_FIRST_RESPONSE"
	PhaseAwaitingResolution    CompliancePhase = "AWAITING_RESOLUTION"
)

// ComplianceAction is the verdict of a single ticket evaluation.
type ComplianceAction string

const (
	ActionNone          ComplianceAction = "NONE"
	ActionNotifyDueSoon ComplianceAction = "NOTIFY_DUE_SOON"
	ActionMarkBreached  ComplianceAction = "MARK_BREACHED"
)

// ComplianceResult is the full outcome of evaluating one ticket at one
// instant. DueAt is a best-effort projection of the breach instant assuming
// the ticket stays active; it is nil when the ticket is paused or already
// past its target.
type ComplianceResult struct {
	Phase     CompliancePhase
	Elapsed   time.Duration
	Target    time.Duration
	Remaining time.Duration
	Threshold time.Duration
	Action    ComplianceAction
	DueAt     *time.Time
}

package sla

import (
	"errors"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ErrNegativeElapsed guards the accrual invariant; it indicates corrupted
// period data rather than a condition callers can recover from.
var ErrNegativeElapsed = errors.New("sla: negative elapsed business time")

// dueSoonPolicy maps priority to the due-soon window: a fraction of the
// phase target with an absolute floor.
var dueSoonPolicy = map[domain.TicketPriority]struct {
	fraction float64
	floor    time.Duration
}{
	domain.TicketPriorityCritical: {0.25, time.Hour},
	domain.TicketPriorityHigh:     {0.20, 2 * time.Hour},
	domain.TicketPriorityMedium:   {0.15, 3 * time.Hour},
	domain.TicketPriorityLow:      {0.10, 4 * time.Hour},
}

func thresholdFor(p domain.TicketPriority, target time.Duration) time.Duration {
	pol, ok := dueSoonPolicy[p]
	if !ok {
		pol = dueSoonPolicy[domain.TicketPriorityMedium]
	}
	scaled := time.Duration(float64(target) * pol.fraction)
	if scaled < pol.floor {
		return pol.floor
	}
	return scaled
}

// Evaluator judges a single ticket's SLA position against a calendar. It
// holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	cal *Calendar
}

// NewEvaluator binds an evaluator to a company calendar.
func NewEvaluator(cal *Calendar) *Evaluator {
	return &Evaluator{cal: cal}
}

// Evaluate computes the compliance verdict for one ticket at one instant.
//
// The governing phase is first response while the ticket has never been
// answered and still sits in its initial status; afterwards the resolution
// clock applies. Elapsed time is working time summed over the ticket's
// non-paused periods only, so a ticket parked in a paused status freezes
// exactly where it stood. A paused ticket that crossed its target before
// pausing still reports a breach.
func (e *Evaluator) Evaluate(t *domain.Ticket, periods []Period, target domain.SLATarget, now time.Time) (domain.ComplianceResult, error) {
	phase := domain.PhaseAwaitingResolution
	budget := target.Resolution
	if t.FirstResponseAt == nil && t.Status == domain.TicketStatusInitial {
		phase = domain.PhaseAwaitingFirstResponse
		budget = target.Response
	}

	var elapsed time.Duration
	for _, p := range periods {
		if p.Paused() {
			continue
		}
		elapsed += e.cal.ElapsedBusinessTime(p.Start, p.End)
	}
	if elapsed < 0 {
		return domain.ComplianceResult{}, ErrNegativeElapsed
	}

	remaining := budget - elapsed
	if remaining < 0 {
		remaining = 0
	}
	threshold := thresholdFor(t.Priority, budget)

	action := domain.ActionNone
	switch {
	case elapsed >= budget:
		action = domain.ActionMarkBreached
	case remaining > 0 && remaining <= threshold:
		action = domain.ActionNotifyDueSoon
	}

	var dueAt *time.Time
	if action != domain.ActionMarkBreached && !t.Status.IsPaused() && !t.Status.IsTerminal() {
		if at, err := e.cal.AddBusinessTime(now, remaining); err == nil {
			dueAt = &at
		}
	}

	return domain.ComplianceResult{
		Phase:     phase,
		Elapsed:   elapsed,
		Target:    budget,
		Remaining: remaining,
		Threshold: threshold,
		Action:    action,
		DueAt:     dueAt,
	}, nil
}

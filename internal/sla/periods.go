package sla

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ErrInconsistentHistory flags a status log that contradicts the ticket
// timeline, such as an event recorded before the ticket existed. Tickets
// with inconsistent history are skipped, never guessed at.
var ErrInconsistentHistory = errors.New("sla: status history inconsistent with ticket timeline")

// Period is one contiguous stretch of a ticket's life spent in a single
// status. Periods returned by BuildPeriods are gap-free: each End equals
// the next Start.
type Period struct {
	Start  time.Time
	End    time.Time
	Status domain.TicketStatus
}

// Duration is the wall-clock length of the period.
func (p Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Paused reports whether SLA time stood still during this period.
func (p Period) Paused() bool {
	return p.Status.IsPaused()
}

// BuildPeriods folds a ticket's status log into contiguous periods covering
// [createdAt, endOfTimeline]. Events are ordered by timestamp with insert
// sequence as the tiebreaker, so two changes in the same instant yield a
// zero-length period rather than a reordering. Events at or after
// endOfTimeline are outside the evaluation window and ignored.
func BuildPeriods(createdAt time.Time, initial domain.TicketStatus, events []domain.StatusChangeEvent, endOfTimeline time.Time) ([]Period, error) {
	if endOfTimeline.Before(createdAt) {
		return nil, fmt.Errorf("%w: end of timeline %s precedes creation %s",
			ErrInconsistentHistory, endOfTimeline.Format(time.RFC3339), createdAt.Format(time.RFC3339))
	}

	sorted := make([]domain.StatusChangeEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OccurredAt.Equal(sorted[j].OccurredAt) {
			return sorted[i].Sequence < sorted[j].Sequence
		}
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	periods := make([]Period, 0, len(sorted)+1)
	cur := Period{Start: createdAt, Status: initial}
	for _, ev := range sorted {
		if ev.OccurredAt.Before(createdAt) {
			return nil, fmt.Errorf("%w: event %s at %s precedes ticket creation",
				ErrInconsistentHistory, ev.ID, ev.OccurredAt.Format(time.RFC3339))
		}
		if !ev.OccurredAt.Before(endOfTimeline) {
			break
		}
		cur.End = ev.OccurredAt
		periods = append(periods, cur)
		cur = Period{Start: ev.OccurredAt, Status: ev.Status}
	}
	cur.End = endOfTimeline
	periods = append(periods, cur)
	return periods, nil
}

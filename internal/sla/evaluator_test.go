package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func timePtr(at time.Time) *time.Time { return &at }

func TestThresholdPolicy(t *testing.T) {
	cases := []struct {
		name     string
		priority domain.TicketPriority
		target   time.Duration
		want     time.Duration
	}{
		{"critical floor wins on short targets", domain.TicketPriorityCritical, 2 * time.Hour, time.Hour},
		{"critical fraction wins on long targets", domain.TicketPriorityCritical, 40 * time.Hour, 10 * time.Hour},
		{"high floor", domain.TicketPriorityHigh, 8 * time.Hour, 2 * time.Hour},
		{"medium fraction", domain.TicketPriorityMedium, 40 * time.Hour, 6 * time.Hour},
		{"low floor", domain.TicketPriorityLow, 8 * time.Hour, 4 * time.Hour},
		{"unknown priority falls back to medium", domain.TicketPriority("BOGUS"), 40 * time.Hour, 6 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, thresholdFor(tc.priority, tc.target))
		})
	}
}

func TestEvaluateBreachesAfterTargetBusinessHours(t *testing.T) {
	ev := NewEvaluator(testCalendar(t))
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC) // Monday 08:00
	now := created.Add(8 * time.Hour)                      // Monday 16:00
	tk := &domain.Ticket{
		ID:              "t1",
		Priority:        domain.TicketPriorityHigh,
		Status:          domain.TicketStatusOpen,
		CreatedAt:       created,
		FirstResponseAt: timePtr(created.Add(30 * time.Minute)),
	}
	periods, err := BuildPeriods(created, domain.TicketStatusOpen, nil, tk.EndOfTimeline(now))
	require.NoError(t, err)

	res, err := ev.Evaluate(tk, periods, domain.SLATarget{Response: 4 * time.Hour, Resolution: 8 * time.Hour}, now)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseAwaitingResolution, res.Phase)
	require.Equal(t, 8*time.Hour, res.Elapsed)
	require.Zero(t, res.Remaining)
	require.Equal(t, domain.ActionMarkBreached, res.Action)
	require.Nil(t, res.DueAt)
}

func TestEvaluatePausedGapFreezesClock(t *testing.T) {
	ev := NewEvaluator(testCalendar(t))
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC) // Monday 08:00
	events := []domain.StatusChangeEvent{
		{ID: "e1", Status: domain.TicketStatusPendingUser, OccurredAt: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), Sequence: 1},
		{ID: "e2", Status: domain.TicketStatusOpen, OccurredAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), Sequence: 2},
	}
	now := time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC) // Tuesday 11:00
	tk := &domain.Ticket{
		ID:              "t2",
		Priority:        domain.TicketPriorityHigh,
		Status:          domain.TicketStatusOpen,
		CreatedAt:       created,
		FirstResponseAt: timePtr(created.Add(15 * time.Minute)),
	}
	periods, err := BuildPeriods(created, domain.TicketStatusOpen, events, tk.EndOfTimeline(now))
	require.NoError(t, err)

	res, err := ev.Evaluate(tk, periods, domain.SLATarget{Response: 2 * time.Hour, Resolution: 8 * time.Hour}, now)
	require.NoError(t, err)
	// Mon 08:00-10:00 plus Tue 09:00-11:00; the pause contributes nothing.
	require.Equal(t, 4*time.Hour, res.Elapsed)
	require.Equal(t, 4*time.Hour, res.Remaining)
	require.Equal(t, 2*time.Hour, res.Threshold)
	require.Equal(t, domain.ActionNone, res.Action)
}

func TestEvaluatePhaseSelection(t *testing.T) {
	ev := NewEvaluator(testCalendar(t))
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	target := domain.SLATarget{Response: 4 * time.Hour, Resolution: 40 * time.Hour}

	t.Run("unanswered open ticket awaits first response", func(t *testing.T) {
		tk := &domain.Ticket{Priority: domain.TicketPriorityMedium, Status: domain.TicketStatusOpen, CreatedAt: created}
		periods, err := BuildPeriods(created, domain.TicketStatusOpen, nil, now)
		require.NoError(t, err)

		res, err := ev.Evaluate(tk, periods, target, now)
		require.NoError(t, err)
		require.Equal(t, domain.PhaseAwaitingFirstResponse, res.Phase)
		require.Equal(t, 4*time.Hour, res.Target)
	})

	t.Run("first response moves ticket to resolution clock", func(t *testing.T) {
		tk := &domain.Ticket{
			Priority:        domain.TicketPriorityMedium,
			Status:          domain.TicketStatusOpen,
			CreatedAt:       created,
			FirstResponseAt: timePtr(created.Add(10 * time.Minute)),
		}
		periods, err := BuildPeriods(created, domain.TicketStatusOpen, nil, now)
		require.NoError(t, err)

		res, err := ev.Evaluate(tk, periods, target, now)
		require.NoError(t, err)
		require.Equal(t, domain.PhaseAwaitingResolution, res.Phase)
		require.Equal(t, 40*time.Hour, res.Target)
	})

	t.Run("leaving the initial status moves ticket to resolution clock", func(t *testing.T) {
		events := []domain.StatusChangeEvent{
			{ID: "e1", Status: domain.TicketStatusInProgress, OccurredAt: created.Add(30 * time.Minute), Sequence: 1},
		}
		tk := &domain.Ticket{Priority: domain.TicketPriorityMedium, Status: domain.TicketStatusInProgress, CreatedAt: created}
		periods, err := BuildPeriods(created, domain.TicketStatusOpen, events, now)
		require.NoError(t, err)

		res, err := ev.Evaluate(tk, periods, target, now)
		require.NoError(t, err)
		require.Equal(t, domain.PhaseAwaitingResolution, res.Phase)
		require.Equal(t, 40*time.Hour, res.Target)
	})
}

func TestEvaluateNotifiesInsideDueSoonWindow(t *testing.T) {
	ev := NewEvaluator(testCalendar(t))
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	now := created.Add(6*time.Hour + 30*time.Minute) // Monday 14:30, elapsed 6h30m of 8h
	tk := &domain.Ticket{
		ID:              "t3",
		Priority:        domain.TicketPriorityHigh,
		Status:          domain.TicketStatusInProgress,
		CreatedAt:       created,
		FirstResponseAt: timePtr(created.Add(time.Hour)),
	}
	periods, err := BuildPeriods(created, domain.TicketStatusOpen, nil, now)
	require.NoError(t, err)

	res, err := ev.Evaluate(tk, periods, domain.SLATarget{Response: 2 * time.Hour, Resolution: 8 * time.Hour}, now)
	require.NoError(t, err)
	require.Equal(t, domain.ActionNotifyDueSoon, res.Action)
	require.Equal(t, 90*time.Minute, res.Remaining)
	require.NotNil(t, res.DueAt)
	require.Equal(t, time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC), *res.DueAt)
}

func TestEvaluatePausedTicketCannotFreshlyBreach(t *testing.T) {
	ev := NewEvaluator(testCalendar(t))
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	events := []domain.StatusChangeEvent{
		{ID: "e1", Status: domain.TicketStatusPendingUser, OccurredAt: created.Add(4 * time.Hour), Sequence: 1},
	}
	// Days later the clock still shows four hours.
	now := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)
	tk := &domain.Ticket{
		ID:              "t4",
		Priority:        domain.TicketPriorityHigh,
		Status:          domain.TicketStatusPendingUser,
		CreatedAt:       created,
		FirstResponseAt: timePtr(created.Add(time.Hour)),
	}
	periods, err := BuildPeriods(created, domain.TicketStatusOpen, events, now)
	require.NoError(t, err)

	res, err := ev.Evaluate(tk, periods, domain.SLATarget{Response: 2 * time.Hour, Resolution: 8 * time.Hour}, now)
	require.NoError(t, err)
	require.Equal(t, 4*time.Hour, res.Elapsed)
	require.Equal(t, domain.ActionNone, res.Action)
	require.Nil(t, res.DueAt)
}

func TestEvaluatePausedTicketKeepsPreCrossingBreach(t *testing.T) {
	ev := NewEvaluator(testCalendar(t))
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	events := []domain.StatusChangeEvent{
		// Paused Tuesday 09:00 after 11 business hours, past the 8h target.
		{ID: "e1", Status: domain.TicketStatusOnHold, OccurredAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), Sequence: 1},
	}
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	tk := &domain.Ticket{
		ID:              "t5",
		Priority:        domain.TicketPriorityHigh,
		Status:          domain.TicketStatusOnHold,
		CreatedAt:       created,
		FirstResponseAt: timePtr(created.Add(time.Hour)),
	}
	periods, err := BuildPeriods(created, domain.TicketStatusOpen, events, now)
	require.NoError(t, err)

	res, err := ev.Evaluate(tk, periods, domain.SLATarget{Response: 2 * time.Hour, Resolution: 8 * time.Hour}, now)
	require.NoError(t, err)
	require.Equal(t, 11*time.Hour, res.Elapsed)
	require.Equal(t, domain.ActionMarkBreached, res.Action)
}

func TestEvaluateResolvedTicketStopsAccrualAtResolution(t *testing.T) {
	ev := NewEvaluator(testCalendar(t))
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	resolved := created.Add(3 * time.Hour)
	now := created.Add(30 * time.Hour)
	tk := &domain.Ticket{
		ID:              "t6",
		Priority:        domain.TicketPriorityHigh,
		Status:          domain.TicketStatusResolved,
		CreatedAt:       created,
		FirstResponseAt: timePtr(created.Add(time.Hour)),
		ResolvedAt:      &resolved,
	}
	events := []domain.StatusChangeEvent{
		{ID: "e1", Status: domain.TicketStatusResolved, OccurredAt: resolved, Sequence: 1},
	}
	periods, err := BuildPeriods(created, domain.TicketStatusOpen, events, tk.EndOfTimeline(now))
	require.NoError(t, err)

	res, err := ev.Evaluate(tk, periods, domain.SLATarget{Response: 2 * time.Hour, Resolution: 8 * time.Hour}, now)
	require.NoError(t, err)
	require.Equal(t, 3*time.Hour, res.Elapsed)
	require.Equal(t, domain.ActionNone, res.Action)
	require.Nil(t, res.DueAt)
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
)

type fakeTicketRepo struct {
	mu        sync.Mutex
	tickets   []domain.Ticket
	listErr   error
	markErrs  []error
	breached  map[string]bool
	markCalls int
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tickets {
		if f.tickets[i].ID == id {
			ticket := f.tickets[i]
			return &ticket, nil
		}
	}
	return nil, errors.New("ticket not found")
}

func (f *fakeTicketRepo) ListOpenForEvaluation(_ context.Context, _ repository.EvaluationFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Ticket{}, f.tickets...), nil
}

func (f *fakeTicketRepo) MarkBreached(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	if len(f.markErrs) > 0 {
		err := f.markErrs[0]
		f.markErrs = f.markErrs[1:]
		if err != nil {
			return false, err
		}
	}
	if f.breached == nil {
		f.breached = make(map[string]bool)
	}
	if f.breached[id] {
		return false, nil
	}
	f.breached[id] = true
	return true, nil
}

type blockingTicketRepo struct {
	*fakeTicketRepo
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingTicketRepo) ListOpenForEvaluation(ctx context.Context, filter repository.EvaluationFilter) ([]domain.Ticket, error) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.fakeTicketRepo.ListOpenForEvaluation(ctx, filter)
}

type fakeEventRepo struct {
	events map[string][]domain.StatusChangeEvent
	errFor map[string]error
}

func (f *fakeEventRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.StatusChangeEvent, error) {
	if err := f.errFor[ticketID]; err != nil {
		return nil, err
	}
	return f.events[ticketID], nil
}

type fakeSLARepo struct {
	defs []domain.SLADefinition
}

func (f *fakeSLARepo) ListByCompany(_ context.Context, companyID string) ([]domain.SLADefinition, error) {
	matched := []domain.SLADefinition{}
	for _, def := range f.defs {
		if def.CompanyID == companyID {
			matched = append(matched, def)
		}
	}
	return matched, nil
}

type fakeCalendarRepo struct {
	cfg *domain.BusinessCalendarConfig
	err error
}

func (f *fakeCalendarRepo) GetByCompany(_ context.Context, _ string) (*domain.BusinessCalendarConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cfg, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *eventRecorder) byType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []events.Event{}
	for _, event := range r.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// businessCalendar is Monday through Friday, 08:00 to 18:00 UTC.
func businessCalendar() *domain.BusinessCalendarConfig {
	var week [7]domain.DayWindow
	for weekday := time.Monday; weekday <= time.Friday; weekday++ {
		week[int(weekday)] = domain.DayWindow{Open: 8 * 60, Close: 18 * 60}
	}
	return &domain.BusinessCalendarConfig{CompanyID: "co-1", Week: week, Location: time.UTC}
}

func companyDefaults() []domain.SLADefinition {
	return []domain.SLADefinition{{
		ID:         "sla-default",
		CompanyID:  "co-1",
		Priority:   domain.TicketPriorityMedium,
		Response:   4 * time.Hour,
		Resolution: 8 * time.Hour,
	}}
}

// testTicket is answered 30 minutes after creation, so the resolution
// clock governs it.
func testTicket(id string, created time.Time) domain.Ticket {
	first := created.Add(30 * time.Minute)
	return domain.Ticket{
		ID:              id,
		CompanyID:       "co-1",
		DepartmentID:    "dept-1",
		Priority:        domain.TicketPriorityMedium,
		Status:          domain.TicketStatusInProgress,
		CreatedAt:       created,
		UpdatedAt:       created,
		FirstResponseAt: &first,
	}
}

func testHistory(created time.Time, ids ...string) map[string][]domain.StatusChangeEvent {
	history := make(map[string][]domain.StatusChangeEvent)
	for _, id := range ids {
		history[id] = []domain.StatusChangeEvent{{
			ID:         "ev-" + id,
			TicketID:   id,
			Status:     domain.TicketStatusInProgress,
			OccurredAt: created.Add(30 * time.Minute),
			Sequence:   1,
		}}
	}
	return history
}

func newTestScheduler(
	t *testing.T,
	tickets repository.TicketRepository,
	history repository.StatusEventRepository,
	slas repository.SLARepository,
	calendars repository.CalendarRepository,
	now time.Time,
) (*Scheduler, *eventRecorder) {
	t.Helper()

	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	dispatcher.Subscribe(events.EventSLADueSoon, recorder.record)
	dispatcher.Subscribe(events.EventSLABreached, recorder.record)
	dispatcher.Subscribe(events.EventSLASweepCompleted, recorder.record)

	sched, err := NewScheduler(config.SchedulerConfig{
		Enabled:             true,
		IntervalMinutes:     60,
		Workers:             2,
		SweepTimeoutSeconds: 10,
		StoreTimeoutSeconds: 2,
		WriteRetries:        1,
	}, Dependencies{
		Tickets:    tickets,
		Events:     history,
		SLAs:       slas,
		Calendars:  calendars,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	sched.Now = func() time.Time { return now }
	return sched, recorder
}

func TestSweepMarksBreachExactlyOnce(t *testing.T) {
	// 2024-03-04 is a Monday. Created at open, resolution target 8h,
	// evaluated at 17:00: nine business hours elapsed.
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	ticketRepo := &fakeTicketRepo{tickets: []domain.Ticket{testTicket("tick-1", created)}}
	sched, recorder := newTestScheduler(t,
		ticketRepo,
		&fakeEventRepo{events: testHistory(created, "tick-1")},
		&fakeSLARepo{defs: companyDefaults()},
		&fakeCalendarRepo{cfg: businessCalendar()},
		now)

	stats, err := sched.TriggerSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Checked)
	require.Equal(t, 1, stats.Breached)

	breaches := recorder.byType(events.EventSLABreached)
	require.Len(t, breaches, 1)
	payload, ok := breaches[0].Payload.(events.SLABreachedPayload)
	require.True(t, ok)
	require.Equal(t, "co-1", payload.CompanyID)
	require.Equal(t, int64(9*3600), payload.ElapsedSeconds)
	require.Equal(t, int64(8*3600), payload.TargetSeconds)
	require.Equal(t, "resolution_target_exceeded", payload.Reason)

	// The second sweep sees the same ticket but loses the conditional
	// update, so no duplicate event is published.
	stats, err = sched.TriggerSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.Breached)
	require.Len(t, recorder.byType(events.EventSLABreached), 1)
	require.Equal(t, 2, ticketRepo.markCalls)
}

func TestSweepPublishesDueSoonInsideWindow(t *testing.T) {
	// Elapsed 6h30m of the 8h target: 1h30m remaining, inside the 3h
	// medium-priority warning threshold.
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

	sched, recorder := newTestScheduler(t,
		&fakeTicketRepo{tickets: []domain.Ticket{testTicket("tick-1", created)}},
		&fakeEventRepo{events: testHistory(created, "tick-1")},
		&fakeSLARepo{defs: companyDefaults()},
		&fakeCalendarRepo{cfg: businessCalendar()},
		now)

	stats, err := sched.TriggerSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Checked)
	require.Equal(t, 1, stats.DueSoon)
	require.Equal(t, 0, stats.Breached)

	notices := recorder.byType(events.EventSLADueSoon)
	require.Len(t, notices, 1)
	payload, ok := notices[0].Payload.(events.SLADueSoonPayload)
	require.True(t, ok)
	require.Equal(t, int64(90*60), payload.RemainingSeconds)
	require.NotNil(t, payload.DueAt)
	require.Equal(t, time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC), *payload.DueAt)
}

func TestSweepContinuesWhenOneTicketFails(t *testing.T) {
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	history := &fakeEventRepo{
		events: testHistory(created, "tick-1", "tick-2"),
		errFor: map[string]error{"tick-1": errors.New("history store down")},
	}
	sched, recorder := newTestScheduler(t,
		&fakeTicketRepo{tickets: []domain.Ticket{
			testTicket("tick-1", created),
			testTicket("tick-2", created),
		}},
		history,
		&fakeSLARepo{defs: companyDefaults()},
		&fakeCalendarRepo{cfg: businessCalendar()},
		now)

	stats, err := sched.TriggerSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Errors)
	require.Equal(t, 1, stats.Checked)
	require.Equal(t, 1, stats.Breached)

	breaches := recorder.byType(events.EventSLABreached)
	require.Len(t, breaches, 1)
	require.Equal(t, "tick-2", breaches[0].TicketID)
}

func TestSweepSkipsTicketsWithoutSLAMatch(t *testing.T) {
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	unmatched := testTicket("tick-1", created)
	unmatched.Priority = domain.TicketPriorityCritical

	sched, recorder := newTestScheduler(t,
		&fakeTicketRepo{tickets: []domain.Ticket{unmatched}},
		&fakeEventRepo{events: testHistory(created, "tick-1")},
		&fakeSLARepo{defs: companyDefaults()},
		&fakeCalendarRepo{cfg: businessCalendar()},
		now)

	stats, err := sched.TriggerSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.Checked)
	require.Equal(t, 1, stats.Skipped)
	require.Empty(t, recorder.byType(events.EventSLABreached))
	require.Empty(t, recorder.byType(events.EventSLADueSoon))
}

func TestSweepSkipsCompanyWhenDataUnavailable(t *testing.T) {
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	sched, recorder := newTestScheduler(t,
		&fakeTicketRepo{tickets: []domain.Ticket{testTicket("tick-1", created)}},
		&fakeEventRepo{events: testHistory(created, "tick-1")},
		&fakeSLARepo{defs: companyDefaults()},
		&fakeCalendarRepo{err: errors.New("calendar store down")},
		now)

	stats, err := sched.TriggerSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.Checked)
	require.Equal(t, 1, stats.Skipped)
	require.Empty(t, recorder.byType(events.EventSLABreached))
}

func TestSweepRetriesBreachWrite(t *testing.T) {
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	ticketRepo := &fakeTicketRepo{
		tickets:  []domain.Ticket{testTicket("tick-1", created)},
		markErrs: []error{errors.New("transient write failure")},
	}
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	dispatcher.Subscribe(events.EventSLABreached, recorder.record)

	sched, err := NewScheduler(config.SchedulerConfig{
		Enabled:             true,
		IntervalMinutes:     60,
		Workers:             1,
		SweepTimeoutSeconds: 10,
		StoreTimeoutSeconds: 2,
		WriteRetries:        2,
	}, Dependencies{
		Tickets:    ticketRepo,
		Events:     &fakeEventRepo{events: testHistory(created, "tick-1")},
		SLAs:       &fakeSLARepo{defs: companyDefaults()},
		Calendars:  &fakeCalendarRepo{cfg: businessCalendar()},
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	sched.Now = func() time.Time { return now }

	stats, err := sched.TriggerSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Breached)
	require.Equal(t, 2, ticketRepo.markCalls)
	require.Len(t, recorder.byType(events.EventSLABreached), 1)
}

func TestTriggerSweepRejectsOverlappingRun(t *testing.T) {
	created := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	blocking := &blockingTicketRepo{
		fakeTicketRepo: &fakeTicketRepo{tickets: []domain.Ticket{testTicket("tick-1", created)}},
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	sched, _ := newTestScheduler(t,
		blocking,
		&fakeEventRepo{events: testHistory(created, "tick-1")},
		&fakeSLARepo{defs: companyDefaults()},
		&fakeCalendarRepo{cfg: businessCalendar()},
		now)

	var (
		firstStats SweepStats
		firstErr   error
		done       = make(chan struct{})
	)
	go func() {
		firstStats, firstErr = sched.TriggerSweep(context.Background())
		close(done)
	}()

	<-blocking.entered
	_, err := sched.TriggerSweep(context.Background())
	require.ErrorIs(t, err, ErrSweepInProgress)

	close(blocking.release)
	<-done
	require.NoError(t, firstErr)
	require.Equal(t, 1, firstStats.Breached)
}

func TestSweepReportsListFailure(t *testing.T) {
	now := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	sched, recorder := newTestScheduler(t,
		&fakeTicketRepo{listErr: errors.New("tickets store down")},
		&fakeEventRepo{},
		&fakeSLARepo{},
		&fakeCalendarRepo{cfg: businessCalendar()},
		now)

	_, err := sched.TriggerSweep(context.Background())
	require.Error(t, err)
	require.Empty(t, recorder.byType(events.EventSLASweepCompleted))
}

func TestNewSchedulerRejectsBadCronExpression(t *testing.T) {
	_, err := NewScheduler(config.SchedulerConfig{
		Enabled:  true,
		CronExpr: "not a cron expr",
	}, Dependencies{Logger: zap.NewNop()})
	require.Error(t, err)
}

func TestCadencePrefersCronOverInterval(t *testing.T) {
	cad, err := newCadence(config.SchedulerConfig{
		IntervalMinutes: 45,
		CronExpr:        "0 * * * *",
	})
	require.NoError(t, err)

	at := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	require.Equal(t, 30*time.Minute, cad.untilNext(at))

	cad, err = newCadence(config.SchedulerConfig{IntervalMinutes: 45})
	require.NoError(t, err)
	require.Equal(t, 45*time.Minute, cad.untilNext(at))
}

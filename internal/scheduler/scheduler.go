package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
)

const (
	defaultWorkers = 4
	retryBackoff   = 200 * time.Millisecond
)

// ErrSweepInProgress reports that a sweep was requested while another one
// was still running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// Dependencies bundles the collaborators the sweep needs.
type Dependencies struct {
	Tickets    repository.TicketRepository
	Events     repository.StatusEventRepository
	SLAs       repository.SLARepository
	Calendars  repository.CalendarRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// SweepStats summarizes one sweep run.
type SweepStats struct {
	RunID     string
	Origin    events.Origin
	StartedAt time.Time
	Duration  time.Duration
	Checked   int
	DueSoon   int
	Breached  int
	Skipped   int
	Errors    int
}

// Scheduler owns the sweep loop. Only one sweep runs at a time; manual
// triggers go through the same code path and the same overlap guard as
// the timer.
type Scheduler struct {
	cfg     config.SchedulerConfig
	deps    Dependencies
	cadence cadence

	// Now is swappable in tests.
	Now func() time.Time

	started  atomic.Bool
	sweeping atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler constructs the scheduler, validating the sweep cadence.
func NewScheduler(cfg config.SchedulerConfig, deps Dependencies) (*Scheduler, error) {
	cad, err := newCadence(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:     cfg,
		deps:    deps,
		cadence: cad,
		Now:     time.Now,
	}, nil
}

// Start launches the sweep loop and returns immediately. It is a no-op
// when sweeping is disabled or the loop is already running.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.deps.Logger.Info("sweep scheduler disabled")
		return
	}
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx)
}

// Stop halts the loop and waits for any in-flight sweep to finish.
func (s *Scheduler) Stop() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	<-s.done
}

// TriggerSweep runs a sweep immediately on behalf of an operator call.
func (s *Scheduler) TriggerSweep(ctx context.Context) (SweepStats, error) {
	return s.sweep(ctx, events.OriginManual)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	for {
		if err := sleepWithContext(ctx, s.cadence.untilNext(s.now())); err != nil {
			return
		}
		if _, err := s.sweep(ctx, events.OriginScheduled); err != nil && !errors.Is(err, ErrSweepInProgress) {
			s.deps.Logger.Error("scheduled sweep failed", zap.Error(err))
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context, origin events.Origin) (SweepStats, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return SweepStats{}, ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	sweepCtx, cancel := context.WithTimeout(ctx, s.cfg.SweepTimeout())
	defer cancel()

	started := s.now()
	run := &tally{stats: SweepStats{
		RunID:     uuid.NewString(),
		Origin:    origin,
		StartedAt: started,
	}}
	logger := s.deps.Logger.With(
		zap.String("run_id", run.stats.RunID),
		zap.String("origin", string(origin)))
	logger.Info("sweep started")

	tickets, err := s.deps.Tickets.ListOpenForEvaluation(sweepCtx, repository.EvaluationFilter{
		CompanyAllowList: s.cfg.CompanyAllowList,
		CompanyDenyList:  s.cfg.CompanyDenyList,
	})
	if err != nil {
		s.deps.Metrics.RecordSweepFailure()
		return run.snapshot(), fmt.Errorf("list tickets for evaluation: %w", err)
	}

	companies := s.loadCompanyContexts(sweepCtx, logger, tickets)

	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	for _, ticket := range tickets {
		ticket := ticket
		select {
		case <-sweepCtx.Done():
			run.failed()
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.evaluateTicket(sweepCtx, logger, run, ticket, companies[ticket.CompanyID], origin)
		}()
	}
	wg.Wait()

	duration := s.now().Sub(started)
	run.setDuration(duration)
	s.deps.Metrics.RecordSweep(duration)

	stats := run.snapshot()
	s.publish(ctx, events.Event{
		Type:      events.EventSLASweepCompleted,
		Origin:    origin,
		Timestamp: s.now(),
		Payload: events.SLASweepCompletedPayload{
			RunID:      stats.RunID,
			Checked:    stats.Checked,
			DueSoon:    stats.DueSoon,
			Breached:   stats.Breached,
			Skipped:    stats.Skipped,
			Errors:     stats.Errors,
			DurationMS: duration.Milliseconds(),
		},
	})
	logger.Info("sweep completed",
		zap.Int("checked", stats.Checked),
		zap.Int("due_soon", stats.DueSoon),
		zap.Int("breached", stats.Breached),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors),
		zap.Duration("duration", duration))
	return stats, nil
}

// companyContext carries the per-company data one sweep reuses across all
// of that company's tickets. A nil context means the company's SLA or
// calendar data could not be loaded for this run.
type companyContext struct {
	resolver  *sla.Resolver
	evaluator *sla.Evaluator
}

func (s *Scheduler) loadCompanyContexts(ctx context.Context, logger *zap.Logger, tickets []domain.Ticket) map[string]*companyContext {
	contexts := make(map[string]*companyContext)
	for _, ticket := range tickets {
		if _, seen := contexts[ticket.CompanyID]; seen {
			continue
		}
		cc, err := s.loadCompany(ctx, ticket.CompanyID)
		if err != nil {
			logger.Warn("company data unavailable, skipping its tickets",
				zap.String("company_id", ticket.CompanyID), zap.Error(err))
			contexts[ticket.CompanyID] = nil
			continue
		}
		contexts[ticket.CompanyID] = cc
	}
	return contexts
}

func (s *Scheduler) loadCompany(ctx context.Context, companyID string) (*companyContext, error) {
	defs, err := s.deps.SLAs.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load sla definitions: %w", err)
	}
	calCfg, err := s.deps.Calendars.GetByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load business calendar: %w", err)
	}
	return &companyContext{
		resolver:  sla.NewResolver(defs),
		evaluator: sla.NewEvaluator(sla.NewCalendar(*calCfg)),
	}, nil
}

func (s *Scheduler) evaluateTicket(ctx context.Context, logger *zap.Logger, run *tally, ticket domain.Ticket, cc *companyContext, origin events.Origin) {
	defer func() {
		if r := recover(); r != nil {
			s.deps.Metrics.RecordSkip(observability.SkipReasonEvaluationError)
			run.failed()
			logger.Error("ticket evaluation panicked",
				zap.String("ticket_id", ticket.ID), zap.Any("panic", r))
		}
	}()

	if cc == nil {
		s.deps.Metrics.RecordSkip(observability.SkipReasonCompanyData)
		run.skipped()
		return
	}

	target, ok := cc.resolver.Resolve(ticket.DepartmentID, ticket.Priority, ticket.CategoryID)
	if !ok {
		s.deps.Metrics.RecordSkip(observability.SkipReasonNoSLAMatch)
		run.skipped()
		logger.Debug("no sla definition matches ticket", zap.String("ticket_id", ticket.ID))
		return
	}

	history, err := s.deps.Events.ListByTicket(ctx, ticket.ID)
	if err != nil {
		s.deps.Metrics.RecordSkip(observability.SkipReasonEvaluationError)
		run.failed()
		logger.Error("load status history",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}

	now := s.now()
	periods, err := sla.BuildPeriods(ticket.CreatedAt, domain.TicketStatusInitial, history, ticket.EndOfTimeline(now))
	if err != nil {
		s.deps.Metrics.RecordSkip(observability.SkipReasonBadHistory)
		run.skipped()
		logger.Warn("inconsistent status history",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}

	result, err := cc.evaluator.Evaluate(&ticket, periods, target, now)
	if err != nil {
		s.deps.Metrics.RecordSkip(observability.SkipReasonEvaluationError)
		run.failed()
		logger.Error("evaluate ticket",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}

	s.deps.Metrics.RecordEvaluation()
	run.checked()

	switch result.Action {
	case domain.ActionMarkBreached:
		won, err := s.markBreached(ctx, ticket.ID)
		if err != nil {
			run.failed()
			logger.Error("mark breached",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
			return
		}
		if !won {
			// Another sweep already recorded this breach.
			return
		}
		s.deps.Metrics.RecordBreach()
		run.breached()
		s.publish(ctx, breachEvent(ticket, result, origin, now))
	case domain.ActionNotifyDueSoon:
		s.deps.Metrics.RecordDueSoon()
		run.dueSoon()
		s.publish(ctx, dueSoonEvent(ticket, result, origin, now))
	}
}

// markBreached retries transient store failures. The conditional update
// makes retries safe: a repeat after a half-applied write simply loses
// the compare-and-set and reports won=false.
func (s *Scheduler) markBreached(ctx context.Context, ticketID string) (bool, error) {
	attempts := s.cfg.WriteRetries
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout())
		won, err := s.deps.Tickets.MarkBreached(storeCtx, ticketID)
		cancel()
		if err == nil {
			return won, nil
		}
		lastErr = err
		if attempt < attempts {
			if sleepErr := sleepWithContext(ctx, time.Duration(attempt)*retryBackoff); sleepErr != nil {
				break
			}
		}
	}
	return false, lastErr
}

func (s *Scheduler) publish(ctx context.Context, event events.Event) {
	if s.deps.Dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.deps.Dispatcher.Publish(ctx, event)
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func dueSoonEvent(ticket domain.Ticket, result domain.ComplianceResult, origin events.Origin, now time.Time) events.Event {
	return events.Event{
		Type:      events.EventSLADueSoon,
		TicketID:  ticket.ID,
		Origin:    origin,
		Timestamp: now,
		Payload: events.SLADueSoonPayload{
			CompanyID:        ticket.CompanyID,
			Phase:            result.Phase,
			Priority:         ticket.Priority,
			ElapsedSeconds:   int64(result.Elapsed / time.Second),
			TargetSeconds:    int64(result.Target / time.Second),
			RemainingSeconds: int64(result.Remaining / time.Second),
			DueAt:            result.DueAt,
		},
	}
}

func breachEvent(ticket domain.Ticket, result domain.ComplianceResult, origin events.Origin, now time.Time) events.Event {
	return events.Event{
		Type:      events.EventSLABreached,
		TicketID:  ticket.ID,
		Origin:    origin,
		Timestamp: now,
		Payload: events.SLABreachedPayload{
			CompanyID:      ticket.CompanyID,
			Phase:          result.Phase,
			Priority:       ticket.Priority,
			ElapsedSeconds: int64(result.Elapsed / time.Second),
			TargetSeconds:  int64(result.Target / time.Second),
			Reason:         breachReason(result.Phase),
		},
	}
}

func breachReason(phase domain.CompliancePhase) string {
	if phase == domain.PhaseAwaitingFirstResponse {
		return "response_target_exceeded"
	}
	return "resolution_target_exceeded"
}

type tally struct {
	mu    sync.Mutex
	stats SweepStats
}

func (t *tally) checked()  { t.mu.Lock(); t.stats.Checked++; t.mu.Unlock() }
func (t *tally) dueSoon()  { t.mu.Lock(); t.stats.DueSoon++; t.mu.Unlock() }
func (t *tally) breached() { t.mu.Lock(); t.stats.Breached++; t.mu.Unlock() }
func (t *tally) skipped()  { t.mu.Lock(); t.stats.Skipped++; t.mu.Unlock() }
func (t *tally) failed()   { t.mu.Lock(); t.stats.Errors++; t.mu.Unlock() }

func (t *tally) setDuration(d time.Duration) {
	t.mu.Lock()
	t.stats.Duration = d
	t.mu.Unlock()
}

func (t *tally) snapshot() SweepStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

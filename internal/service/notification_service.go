package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
)

// NotificationJob is the queue entry consumed by the platform's delivery
// workers (email, WebSocket push). The engine only enqueues.
type NotificationJob struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	TicketID  string          `json:"ticket_id"`
	Origin    events.Origin   `json:"origin"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// NotificationService forwards compliance events to the Redis notification
// queue and mirrors them on a pub/sub channel for live listeners. Delivery
// is fire-and-forget from the sweep's point of view: after the configured
// attempts the job is logged and dropped, never retried across sweeps.
type NotificationService struct {
	dispatcher events.Dispatcher
	redis      *persistence.Redis
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(
	dispatcher events.Dispatcher,
	redis *persistence.Redis,
	metrics *observability.Metrics,
	logger *zap.Logger,
	cfg config.NotificationConfig,
) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		redis:      redis,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLADueSoon, n.handleComplianceEvent)
	n.dispatcher.Subscribe(events.EventSLABreached, n.handleComplianceEvent)
	n.dispatcher.Subscribe(events.EventSLASweepCompleted, n.handleSweepCompleted)
}

func (n *NotificationService) handleComplianceEvent(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		n.logger.Error("encode notification payload",
			zap.String("ticket_id", event.TicketID), zap.Error(err))
		return err
	}
	job := NotificationJob{
		ID:        event.ID,
		Kind:      string(event.Type),
		TicketID:  event.TicketID,
		Origin:    event.Origin,
		CreatedAt: event.Timestamp,
		Payload:   payload,
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if err := n.enqueue(ctx, body); err != nil {
		n.metrics.RecordNotificationFailure()
		n.logger.Error("notification dropped",
			zap.String("kind", job.Kind),
			zap.String("ticket_id", job.TicketID),
			zap.Error(err))
		return err
	}

	// Live mirror is best effort; the queue is the source of record.
	if err := n.redis.Client.Publish(ctx, n.cfg.EventChannel, body).Err(); err != nil {
		n.logger.Debug("event channel publish failed", zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleSweepCompleted(ctx context.Context, event events.Event) error {
	if p, ok := event.Payload.(events.SLASweepCompletedPayload); ok {
		n.logger.Info("sweep completed",
			zap.String("run_id", p.RunID),
			zap.Int("checked", p.Checked),
			zap.Int("due_soon", p.DueSoon),
			zap.Int("breached", p.Breached),
			zap.Int("skipped", p.Skipped),
			zap.Int("errors", p.Errors),
			zap.Int64("duration_ms", p.DurationMS))
		return nil
	}
	n.logger.Info("sweep completed", zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) enqueue(ctx context.Context, body []byte) error {
	if n.redis == nil || n.redis.Client == nil {
		return errors.New("redis client not configured")
	}
	attempts := n.cfg.MaxEnqueueAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pushCtx, cancel := context.WithTimeout(ctx, n.cfg.DispatchTimeout())
		err := n.redis.Client.RPush(pushCtx, n.cfg.QueueKey, body).Err()
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		n.logger.Warn("notification enqueue failed",
			zap.Int("attempt", attempt), zap.Error(err))
	}
	return fmt.Errorf("enqueue notification after %d attempts: %w", attempts, lastErr)
}

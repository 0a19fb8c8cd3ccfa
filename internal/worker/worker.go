package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/service"
)

// StartNotificationWorker registers notification handlers on the event
// dispatcher so sweep results reach the Redis queue.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartMetricsListener serves the Prometheus scrape endpoint on its own
// port, away from the public API. It returns a shutdown function.
func StartMetricsListener(cfg config.MetricsConfig, metrics *observability.Metrics, logger *zap.Logger) func(context.Context) error {
	if !cfg.Enabled || metrics == nil {
		return func(context.Context) error { return nil }
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", zap.Error(err))
		}
	}()
	logger.Info("metrics listener started", zap.String("addr", cfg.Addr))
	return server.Shutdown
}

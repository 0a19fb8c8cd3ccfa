package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-engine/internal/api/http"
	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/scheduler"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		logger.Fatal("invalid calendar timezone", zap.Error(err))
	}

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	eventRepo := repository.NewStatusEventRepository(pool)
	slaRepo := repository.NewSLARepository(pool)
	calendarRepo := repository.NewCalendarRepository(pool, loc, defaultWeek(cfg.Calendar))

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, redis, metrics, logger, cfg.Notification)
	worker.StartNotificationWorker(notifications)

	complianceService := service.NewComplianceService(service.ComplianceDependencies{
		TicketRepo:   ticketRepo,
		EventRepo:    eventRepo,
		SLARepo:      slaRepo,
		CalendarRepo: calendarRepo,
	})

	sweeper, err := scheduler.NewScheduler(cfg.Scheduler, scheduler.Dependencies{
		Tickets:    ticketRepo,
		Events:     eventRepo,
		SLAs:       slaRepo,
		Calendars:  calendarRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to build sweep scheduler", zap.Error(err))
	}
	sweeper.Start(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, cfg.Auth.APIKeyHash)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Compliance:     handlers.NewComplianceHandler(complianceService),
		Sweep:          handlers.NewSweepHandler(sweeper),
		AuthMiddleware: authMiddleware,
	})

	stopMetrics := worker.StartMetricsListener(cfg.Metrics, metrics, logger)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = stopMetrics(shutdownCtx)
}

// defaultWeek is the Monday through Friday working window applied to
// companies with no persisted business hours.
func defaultWeek(cfg config.CalendarConfig) [7]domain.DayWindow {
	var week [7]domain.DayWindow
	for weekday := time.Monday; weekday <= time.Friday; weekday++ {
		week[int(weekday)] = domain.DayWindow{Open: cfg.DefaultOpenMinute, Close: cfg.DefaultCloseMinute}
	}
	return week
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

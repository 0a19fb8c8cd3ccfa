package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/scheduler"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// SweepHandler exposes the manual sweep trigger for operators.
type SweepHandler struct {
	scheduler *scheduler.Scheduler
}

// NewSweepHandler constructs handler.
func NewSweepHandler(sched *scheduler.Scheduler) *SweepHandler {
	return &SweepHandler{scheduler: sched}
}

// TriggerSweep POST /admin/sla/sweep. The sweep runs synchronously and
// the response carries its final counts.
func (h *SweepHandler) TriggerSweep(c *fiber.Ctx) error {
	stats, err := h.scheduler.TriggerSweep(c.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrSweepInProgress) {
			return apperrors.NewConflict("a sweep is already running", nil)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": sweepResponse(stats)})
}

func sweepResponse(stats scheduler.SweepStats) dto.SweepResponse {
	return dto.SweepResponse{
		RunID:      stats.RunID,
		Origin:     string(stats.Origin),
		StartedAt:  stats.StartedAt,
		DurationMS: stats.Duration.Milliseconds(),
		Checked:    stats.Checked,
		DueSoon:    stats.DueSoon,
		Breached:   stats.Breached,
		Skipped:    stats.Skipped,
		Errors:     stats.Errors,
	}
}

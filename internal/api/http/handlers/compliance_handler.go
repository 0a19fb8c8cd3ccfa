package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// ComplianceHandler serves read-only SLA clock state for tickets.
type ComplianceHandler struct {
	service *service.ComplianceService
}

// NewComplianceHandler constructs handler.
func NewComplianceHandler(complianceService *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{service: complianceService}
}

// GetTicketCompliance GET /tickets/:id/sla.
func (h *ComplianceHandler) GetTicketCompliance(c *fiber.Ctx) error {
	ticketID := strings.TrimSpace(c.Params("id"))
	if ticketID == "" {
		return apperrors.NewValidationError("ticket id required", nil)
	}

	preview, err := h.service.PreviewCompliance(c.Context(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complianceResponse(preview)})
}

func complianceResponse(preview *service.CompliancePreview) dto.ComplianceResponse {
	ticket := preview.Ticket
	result := preview.Result
	return dto.ComplianceResponse{
		TicketID:         ticket.ID,
		CompanyID:        ticket.CompanyID,
		Status:           ticket.Status,
		Priority:         ticket.Priority,
		Phase:            result.Phase,
		Breached:         ticket.SLABreached,
		Action:           result.Action,
		ElapsedSeconds:   int64(result.Elapsed / time.Second),
		TargetSeconds:    int64(result.Target / time.Second),
		RemainingSeconds: int64(result.Remaining / time.Second),
		ThresholdSeconds: int64(result.Threshold / time.Second),
		DueAt:            result.DueAt,
		EvaluatedAt:      preview.EvaluatedAt,
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Rhuthvik-D/Kasparro-Assignment/pkg/logger"
)

type PipelineHandler struct {
	service ReportService
}

func NewPipelineHandler(service ReportService) *PipelineHandler {
	return &PipelineHandler{service: service}
}

// RunPipeline triggers a full synchronous pipeline execution; the
// dashboard's "update report" action.
func (h *PipelineHandler) RunPipeline(c *fiber.Ctx) error {
	result, err := h.service.RunPipeline(c.Context(), nil)
	if err != nil {
		logger.Error("Pipeline run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(result)
}

// GetRuns lists recent pipeline executions.
func (h *PipelineHandler) GetRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	runs, err := h.service.Runs(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to list runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list runs",
		})
	}

	return c.JSON(fiber.Map{
		"runs": runs,
	})
}

package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/report"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/models"
	"github.com/Rhuthvik-D/Kasparro-Assignment/pkg/logger"
)

// ReportService is the slice of the orchestration service the HTTP
// layer depends on.
type ReportService interface {
	RunPipeline(ctx context.Context, progress report.ProgressFunc) (*report.RunResult, error)
	LatestReport(ctx context.Context) (*models.StoredReport, error)
	Narrative(ctx context.Context) (string, error)
	Summary(ctx context.Context) (*models.Summary, error)
	ChannelBreakdown(ctx context.Context, channel string) (*models.ChannelBreakdown, error)
	Runs(ctx context.Context, limit int) ([]models.PipelineRun, error)
}

type ReportHandler struct {
	service ReportService
}

func NewReportHandler(service ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// GetInsights serves the latest insight report in the exact shape the
// dashboard and narrative generator consume.
func (h *ReportHandler) GetInsights(c *fiber.Ctx) error {
	stored, err := h.service.LatestReport(c.Context())
	if err != nil {
		return respondServiceError(c, err, "Failed to load insights")
	}

	return c.JSON(models.Report{
		GeneratedUTC: stored.GeneratedAt,
		Insights:     stored.Insights,
	})
}

// GetReport serves the full stored report including the narrative.
func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	stored, err := h.service.LatestReport(c.Context())
	if err != nil {
		return respondServiceError(c, err, "Failed to load report")
	}

	return c.JSON(stored)
}

// DownloadNarrative serves the executive narrative as markdown.
func (h *ReportHandler) DownloadNarrative(c *fiber.Ctx) error {
	narrative, err := h.service.Narrative(c.Context())
	if err != nil {
		return respondServiceError(c, err, "Failed to load narrative")
	}

	c.Set("Content-Type", "text/markdown; charset=utf-8")
	c.Set("Content-Disposition", `attachment; filename="executive_report.md"`)
	return c.SendString(narrative)
}

func respondServiceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, report.ErrNoReport),
		errors.Is(err, report.ErrNoNarrative),
		errors.Is(err, report.ErrNoChannel):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		logger.Error(fallback, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fallback,
		})
	}
}

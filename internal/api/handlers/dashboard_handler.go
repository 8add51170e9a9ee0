package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service ReportService
}

func NewDashboardHandler(service ReportService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// GetSummary serves the headline KPIs: total spend, total revenue,
// overall ROAS and the channel list for the deep-dive selector.
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.Context())
	if err != nil {
		return respondServiceError(c, err, "Failed to load summary")
	}

	return c.JSON(summary)
}

// GetChannels serves the distinct channels in encounter order.
func (h *DashboardHandler) GetChannels(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.Context())
	if err != nil {
		return respondServiceError(c, err, "Failed to load channels")
	}

	return c.JSON(fiber.Map{
		"channels": summary.Channels,
	})
}

// GetChannelBreakdown serves the per-channel deep dive.
func (h *DashboardHandler) GetChannelBreakdown(c *fiber.Ctx) error {
	channel, err := url.PathUnescape(c.Params("channel"))
	if err != nil {
		channel = c.Params("channel")
	}
	if channel == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Channel is required",
		})
	}

	breakdown, err := h.service.ChannelBreakdown(c.Context(), channel)
	if err != nil {
		return respondServiceError(c, err, "Failed to load channel breakdown")
	}

	return c.JSON(breakdown)
}

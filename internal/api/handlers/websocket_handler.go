package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/Rhuthvik-D/Kasparro-Assignment/pkg/logger"
)

type WebSocketHandler struct {
	service ReportService
}

func NewWebSocketHandler(service ReportService) *WebSocketHandler {
	return &WebSocketHandler{service: service}
}

// HandleConnection runs pipelines on request and streams stage progress
// plus the finished narrative back over the socket.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type string `json:"type"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "run" {
			continue
		}

		if err := h.streamRun(c); err != nil {
			logger.Error("Failed to stream pipeline run", zap.Error(err))
			h.send(c, map[string]interface{}{
				"type":  "error",
				"error": err.Error(),
			})
		}
	}
}

func (h *WebSocketHandler) streamRun(c *websocket.Conn) error {
	progress := func(stage, message string) {
		h.send(c, map[string]interface{}{
			"type":    "progress",
			"stage":   stage,
			"message": message,
		})
	}

	result, err := h.service.RunPipeline(context.Background(), progress)
	if err != nil {
		return err
	}

	for _, word := range splitIntoWords(result.Report.Narrative) {
		if err := h.send(c, map[string]interface{}{
			"type":    "narrative_chunk",
			"content": word,
		}); err != nil {
			return err
		}
	}

	return h.send(c, map[string]interface{}{
		"type":      "complete",
		"run_id":    result.Run.ID,
		"status":    result.Run.Status,
		"rows":      result.Run.RowCount,
		"insights":  result.Report.Insights,
		"report_id": result.Report.ID,
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, msg map[string]interface{}) error {
	return c.WriteJSON(msg)
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}

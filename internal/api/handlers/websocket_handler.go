package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/aidetect"
	"github.com/jasper-ai/backend/internal/plagiarism"
	"github.com/jasper-ai/backend/pkg/logger"
)

type WebSocketHandler struct {
	plagiarism *plagiarism.Detector
	ai         *aidetect.Detector
}

func NewWebSocketHandler(p *plagiarism.Detector, a *aidetect.Detector) *WebSocketHandler {
	return &WebSocketHandler{
		plagiarism: p,
		ai:         a,
	}
}

// HandleConnection runs hybrid detection over a websocket, emitting each
// stage's result as it completes so the client can render progressively.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "detect" {
			continue
		}

		logger.Info("Processing WebSocket detection", zap.Int("text_length", len(msg.Text)))

		err = h.streamDetection(c, msg.Text)
		if err != nil {
			logger.Error("Failed to stream detection", zap.Error(err))
			h.sendError(c, "Failed to run detection")
		}
	}
}

func (h *WebSocketHandler) streamDetection(c *websocket.Conn, text string) error {
	ctx := context.Background()

	if err := h.sendStage(c, "status", "Running plagiarism detection..."); err != nil {
		return err
	}

	plagResult, err := h.plagiarism.Detect(ctx, text)
	if err != nil {
		return err
	}
	if err := h.sendStage(c, "plagiarism", plagResult); err != nil {
		return err
	}

	if err := h.sendStage(c, "status", "Running AI content detection..."); err != nil {
		return err
	}

	aiResult, err := h.ai.Detect(ctx, text)
	if err != nil {
		return err
	}
	if err := h.sendStage(c, "ai_detection", aiResult); err != nil {
		return err
	}

	return c.WriteJSON(map[string]interface{}{
		"type":         "complete",
		"plagiarism":   plagResult,
		"ai_detection": aiResult,
	})
}

func (h *WebSocketHandler) sendStage(c *websocket.Conn, msgType string, payload interface{}) error {
	msg := map[string]interface{}{
		"type":   msgType,
		"result": payload,
	}
	if s, ok := payload.(string); ok {
		msg = map[string]interface{}{
			"type":    msgType,
			"content": s,
		}
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	if err := c.WriteJSON(msg); err != nil {
		logger.Error("Failed to send WebSocket error", zap.Error(err))
	}
}

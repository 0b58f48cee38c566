package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vipplay/content-dispatcher/internal/api/dto"
)

// QueueDiagnostics handles GET /api/v1/diagnostics/queue.
// It reports which queue settings are present by name, never their
// values, and works even when the queue client failed to build.
func (h *GenerationHandler) QueueDiagnostics(c *gin.Context) {
	c.JSON(http.StatusOK, dto.QueueDiagnosticsResponse{
		Configured: h.queueCfg.IsConfigured(),
		Settings:   h.queueCfg.SettingsStatus(),
	})
}

// SendTestMessage handles POST /api/v1/diagnostics/queue/test-message.
// It exercises the real send path end to end and reports the outcome;
// a failed probe is a successful diagnosis, so the endpoint itself
// answers 200 either way.
func (h *GenerationHandler) SendTestMessage(c *gin.Context) {
	if h.producer == nil {
		c.JSON(http.StatusOK, dto.TestMessageResponse{
			Success: false,
			Error:   "queue client is not configured",
		})
		return
	}

	messageID, err := h.producer.SendTestMessage(c.Request.Context())
	if err != nil {
		h.logger.Warn("Diagnostic test message failed",
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusOK, dto.TestMessageResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.TestMessageResponse{
		Success:   true,
		MessageID: messageID,
	})
}

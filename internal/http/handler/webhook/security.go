package webhook

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"caretaker.app/relay/internal/http/dto"
	"caretaker.app/relay/internal/model"
	"caretaker.app/relay/internal/service"
)

// SecurityWebhookHandler receives GitHub Dependabot alerts. It expects to sit
// behind the signature middleware.
type SecurityWebhookHandler struct {
	security service.SecurityService
}

func NewSecurityWebhookHandler(security service.SecurityService) *SecurityWebhookHandler {
	return &SecurityWebhookHandler{security: security}
}

func (h *SecurityWebhookHandler) HandleAdvisory(c *gin.Context) {
	ctx := c.Request.Context()

	var event model.SecurityAdvisoryEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	slog.InfoContext(ctx, "received security advisory webhook",
		"action", event.Action,
		"repo", event.Repository.FullName,
		"github_event", c.GetHeader("X-GitHub-Event"),
		"github_delivery", c.GetHeader("X-GitHub-Delivery"))

	if _, err := h.security.IngestAdvisory(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to ingest security advisory", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process advisory"})
		return
	}

	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

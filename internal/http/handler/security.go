package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"caretaker.app/relay/internal/http/dto"
	"caretaker.app/relay/internal/service"
)

type SecurityHandler struct {
	security service.SecurityService
}

func NewSecurityHandler(security service.SecurityService) *SecurityHandler {
	return &SecurityHandler{security: security}
}

func (h *SecurityHandler) Metrics(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := h.security.Metrics(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list security metrics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list security metrics"})
		return
	}

	c.JSON(http.StatusOK, dto.SecurityMetricsResponse{Items: items})
}

func (h *SecurityHandler) Rotate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RotateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Secret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing secret"})
		return
	}

	if err := h.security.RotateSecret(ctx, req.Secret); err != nil {
		if errors.Is(err, service.ErrMissingSecret) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing secret"})
			return
		}
		slog.ErrorContext(ctx, "failed to rotate webhook secret", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate secret"})
		return
	}

	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

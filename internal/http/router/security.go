package router

import (
	"github.com/gin-gonic/gin"

	"caretaker.app/relay/internal/http/handler"
	"caretaker.app/relay/internal/http/handler/webhook"
)

// SecurityRouter mounts the advisory webhook behind signature verification and
// the rotation endpoint behind the admin key.
func SecurityRouter(rg *gin.RouterGroup, h *handler.SecurityHandler, wh *webhook.SecurityWebhookHandler, requireSignature, requireAdmin gin.HandlerFunc) {
	rg.POST("/webhook", requireSignature, wh.HandleAdvisory)
	rg.GET("/metrics", h.Metrics)
	rg.POST("/rotate", requireAdmin, h.Rotate)
}

package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caretaker.app/relay/internal/http/handler"
	"caretaker.app/relay/internal/http/handler/webhook"
	"caretaker.app/relay/internal/http/middleware"
	"caretaker.app/relay/internal/security"
	"caretaker.app/relay/internal/service"
)

type RouterConfig struct {
	SignatureHeader string
	AdminAPIKey     string
	Gatherer        prometheus.Gatherer
}

func SetupRoutes(router *gin.Engine, services *service.Services, gate *security.Gate, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	requireSignature := middleware.RequireSignature(gate, cfg.SignatureHeader)
	requireAdmin := middleware.RequireAdminAPIKey(cfg.AdminAPIKey)

	agentHandler := handler.NewAgentHandler(services.Agents())
	securityHandler := handler.NewSecurityHandler(services.Security())
	advisoryHandler := webhook.NewSecurityWebhookHandler(services.Security())

	api := router.Group("/api")
	{
		AgentRouter(api.Group("/agents"), agentHandler)
		SecurityRouter(api.Group("/security"), securityHandler, advisoryHandler, requireSignature, requireAdmin)
	}

	// Short paths some senders are configured with.
	router.POST("/webhook", requireSignature, advisoryHandler.HandleAdvisory)
	router.POST("/agents/webhook", agentHandler.Webhook)
	router.POST("/security/rotate", requireAdmin, securityHandler.Rotate)
}

package router

import (
	"github.com/gin-gonic/gin"

	"caretaker.app/relay/internal/http/handler"
)

func AgentRouter(rg *gin.RouterGroup, h *handler.AgentHandler) {
	rg.POST("/register", h.Register)
	rg.POST("/webhook", h.Webhook)
	rg.GET("/reviews", h.Reviews)
	rg.GET("/deadletter", h.DeadLetters)
	rg.GET("/queue", h.QueueDepth)
	rg.GET("/review-schema", h.ReviewSchema)
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"caretaker.app/relay/internal/http/dto"
	"caretaker.app/relay/internal/http/middleware"
	"caretaker.app/relay/internal/review"
	"caretaker.app/relay/internal/service"
)

type AgentHandler struct {
	agents service.AgentService
}

func NewAgentHandler(agents service.AgentService) *AgentHandler {
	return &AgentHandler{agents: agents}
}

func (h *AgentHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fields"})
		return
	}

	_, err := h.agents.Register(ctx, service.RegisterAgentParams{
		Name:        req.Name,
		CallbackURL: req.CallbackURL,
		Token:       req.Token,
	})
	if err != nil {
		if errors.Is(err, service.ErrMissingAgentFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing fields"})
			return
		}
		slog.ErrorContext(ctx, "failed to register agent", "error", err, "agent", req.Name)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register agent"})
		return
	}

	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// Webhook queues the raw event body as-is; nothing beyond "is a JSON object" is
// checked until the dispatcher picks it up.
func (h *AgentHandler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()

	body, ok := middleware.ReadBody(c)
	if !ok {
		return
	}

	res, err := h.agents.Enqueue(ctx, body)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAgentEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		slog.ErrorContext(ctx, "failed to queue agent event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue event"})
		return
	}

	c.JSON(http.StatusOK, dto.QueuedResponse{Queued: true, Priority: res.Priority.String()})
}

func (h *AgentHandler) Reviews(c *gin.Context) {
	ctx := c.Request.Context()

	reviews, err := h.agents.ListReviews(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list reviews", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reviews"})
		return
	}

	c.JSON(http.StatusOK, dto.ReviewsResponse{Items: reviews})
}

func (h *AgentHandler) DeadLetters(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := h.agents.ListDeadLetters(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list dead letters", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list dead letters"})
		return
	}

	c.JSON(http.StatusOK, dto.DeadLettersResponse{Items: items})
}

func (h *AgentHandler) QueueDepth(c *gin.Context) {
	ctx := c.Request.Context()

	depth, err := h.agents.QueueDepth(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read queue depth", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read queue depth"})
		return
	}

	lanes := make(map[string]int64, len(depth))
	for p, n := range depth {
		lanes[p.String()] = n
	}
	c.JSON(http.StatusOK, dto.QueueDepthResponse{Lanes: lanes})
}

func (h *AgentHandler) ReviewSchema(c *gin.Context) {
	c.JSON(http.StatusOK, review.Schema())
}

package handler

import (
	"net/http"

	"matchchat/backend/internal/apperr"
	"matchchat/backend/internal/auth"
	"matchchat/backend/internal/chat"
	"matchchat/backend/internal/chathub"
	"matchchat/backend/internal/logger"
	"matchchat/backend/internal/match"
	"matchchat/backend/internal/metrics"
	"matchchat/backend/internal/moderation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler wires the HTTP and socket surfaces to the services.
type Handler struct {
	Hub        *chathub.ManagerService
	Matches    *match.Service
	Chat       *chat.Service
	Moderation *moderation.Service
	Verifier   auth.Verifier
}

func NewHandler(hub *chathub.ManagerService, matches *match.Service, chatSvc *chat.Service, mod *moderation.Service, verifier auth.Verifier) *Handler {
	return &Handler{Hub: hub, Matches: matches, Chat: chatSvc, Moderation: mod, Verifier: verifier}
}

// RegisterRoutes mounts every route on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws", h.ServeWebSocket)

	matches := r.Group("/matches", h.RequireAuth())
	matches.POST("/interact", h.Interact)
	matches.GET("/suggestions", h.Suggestions)
	matches.GET("/mutual", h.MutualMatches)

	chatGroup := r.Group("/chat", h.RequireAuth())
	chatGroup.POST("/request", h.SendChatRequest)
	chatGroup.POST("/accept", h.AcceptChatRequest)
	chatGroup.GET("/room/:userId", h.GetChatRoom)
	chatGroup.GET("/messages/:roomId", h.GetMessages)
	chatGroup.GET("/request-status/:otherUserId", h.RequestStatus)

	users := r.Group("/users", h.RequireAuth())
	users.POST("/block", h.Block)
	users.POST("/unblock", h.Unblock)
	users.POST("/report", h.Report)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// respondError writes the error body for err. Internal detail is only logged.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": apperr.Code(err)})
}

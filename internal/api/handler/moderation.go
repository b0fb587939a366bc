package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type targetBody struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *Handler) moderate(c *gin.Context, action func(ctx context.Context, userID, targetID string) error) {
	var body targetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "userId is required", "code": "invalid_operation"})
		return
	}
	if err := action(c.Request.Context(), callerID(c), body.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Block(c *gin.Context)   { h.moderate(c, h.Moderation.Block) }
func (h *Handler) Unblock(c *gin.Context) { h.moderate(c, h.Moderation.Unblock) }
func (h *Handler) Report(c *gin.Context)  { h.moderate(c, h.Moderation.Report) }

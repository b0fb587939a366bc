package handler

import (
	"net/http"

	"matchchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type interactRequest struct {
	ToUserID string                   `json:"toUserId" binding:"required"`
	Action   models.InteractionAction `json:"action" binding:"required"`
}

func (h *Handler) Interact(c *gin.Context) {
	var req interactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "toUserId and action are required", "code": "invalid_operation"})
		return
	}

	mutual, err := h.Matches.Interact(c.Request.Context(), callerID(c), req.ToUserID, req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isMutual": mutual})
}

func (h *Handler) Suggestions(c *gin.Context) {
	suggestions, err := h.Matches.GetSuggestions(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (h *Handler) MutualMatches(c *gin.Context) {
	matches, err := h.Matches.GetMutualMatches(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mutualMatches": matches})
}

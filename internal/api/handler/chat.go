package handler

import (
	"net/http"
	"time"

	"matchchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type chatRequestBody struct {
	ReceiverID string `json:"receiverId" binding:"required"`
}

type acceptBody struct {
	SenderID string `json:"senderId" binding:"required"`
}

type roomView struct {
	RoomID    string    `json:"roomId"`
	UserIDs   []string  `json:"userIds"`
	StartDate time.Time `json:"startDate"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newRoomView(r *models.ChatRoom) roomView {
	return roomView{RoomID: r.RoomID, UserIDs: r.UserIDs(), StartDate: r.StartDate, ExpiresAt: r.ExpiresAt}
}

func (h *Handler) SendChatRequest(c *gin.Context) {
	var body chatRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "receiverId is required", "code": "invalid_operation"})
		return
	}

	req, err := h.Chat.SendRequest(c.Request.Context(), callerID(c), body.ReceiverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatRequest": req})
}

func (h *Handler) AcceptChatRequest(c *gin.Context) {
	var body acceptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "senderId is required", "code": "invalid_operation"})
		return
	}

	room, err := h.Chat.AcceptRequest(c.Request.Context(), callerID(c), body.SenderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatRoom": newRoomView(room)})
}

func (h *Handler) GetChatRoom(c *gin.Context) {
	room, expired, err := h.Chat.GetRoom(c.Request.Context(), callerID(c), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatRoom": newRoomView(room), "expired": expired})
}

func (h *Handler) GetMessages(c *gin.Context) {
	msgs, err := h.Chat.Messages(c.Request.Context(), callerID(c), c.Param("roomId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) RequestStatus(c *gin.Context) {
	status, err := h.Chat.RequestStatus(c.Request.Context(), callerID(c), c.Param("otherUserId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

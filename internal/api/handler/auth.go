package handler

import (
	"net/http"

	"matchchat/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// credential reads the bearer token from the Authorization header, falling
// back to the token query parameter for socket clients that cannot set headers.
func credential(c *gin.Context) (string, bool) {
	if token, ok := auth.BearerToken(c.GetHeader("Authorization")); ok {
		return token, true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

func (h *Handler) authenticate(c *gin.Context) (string, bool) {
	token, ok := credential(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing", "code": "unauthorized"})
		return "", false
	}
	userID, err := h.Verifier.Verify(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired", "code": "unauthorized"})
		return "", false
	}
	return userID, true
}

// RequireAuth binds the verified caller identity to the request.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.authenticate(c)
		if !ok {
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func callerID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

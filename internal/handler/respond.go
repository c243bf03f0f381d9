package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sievehub/internal/service"
)

// respondError maps a domain error to its carried status; anything else is
// an internal error.
func respondError(c *gin.Context, err error) {
	var domainErr *service.DomainError
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.Status, gin.H{"error": domainErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// currentUser pulls the authenticated user id set by the auth middleware.
func currentUser(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	return userID.(string), true
}

package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// getCorrelationID gets or generates a correlation ID for request tracing
func getCorrelationID(c *gin.Context) string {
	if id, exists := c.Get("correlation_id"); exists {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	if id := c.GetHeader("X-Correlation-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}

// requestContext returns the request context tagged with the correlation ID
// so downstream clients log it
func requestContext(c *gin.Context) context.Context {
	return context.WithValue(c.Request.Context(), "correlation_id", getCorrelationID(c)) //nolint:staticcheck
}

// currentUserID returns the authenticated user id set by the JWT middleware
func currentUserID(c *gin.Context) string {
	if id, exists := c.Get("user_id"); exists {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}

// writeError writes the standardized error envelope
func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":           code,
			"message":        message,
			"correlation_id": getCorrelationID(c),
		},
	})
}

// contains checks if a string contains a substring (case-insensitive)
func contains(str, substr string) bool {
	return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
}

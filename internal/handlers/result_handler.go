package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"factflow/internal/checker"
	"factflow/internal/logger"
	"factflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ResultHandler serves stored fact-check results
type ResultHandler struct {
	checkService services.CheckServiceInterface
}

// NewResultHandler creates a new result handler
func NewResultHandler(checkService services.CheckServiceInterface) *ResultHandler {
	return &ResultHandler{
		checkService: checkService,
	}
}

// ListResults returns the caller's past fact-check results, newest first
func (h *ResultHandler) ListResults(c *gin.Context) {
	userID := currentUserID(c)

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			writeError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	verdict := strings.ToUpper(strings.TrimSpace(c.Query("verdict")))
	if verdict != "" && !checker.Verdict(verdict).Valid() {
		writeError(c, http.StatusBadRequest, "INVALID_VERDICT",
			"verdict must be one of TRUE, FALSE, UNVERIFIABLE, ERROR")
		return
	}

	results, err := h.checkService.ListResults(userID, limit, verdict)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, getCorrelationID(c), map[string]interface{}{
			"user_id":   userID,
			"operation": "list_results",
		})
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve results")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// DeleteResult removes one fact-check result owned by the caller
func (h *ResultHandler) DeleteResult(c *gin.Context) {
	userID := currentUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_UUID", "Invalid result ID format")
		return
	}

	deleted, err := h.checkService.DeleteResult(id, userID)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, getCorrelationID(c), map[string]interface{}{
			"fact_check_id": id,
			"user_id":       userID,
			"operation":     "delete_result",
		})
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete result")
		return
	}

	if !deleted {
		writeError(c, http.StatusNotFound, "RESULT_NOT_FOUND", "Result not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

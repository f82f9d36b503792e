package handlers

import (
	"net/http"

	"factflow/internal/logger"
	"factflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JobHandler serves the async fact-check job endpoints
type JobHandler struct {
	jobService services.JobServiceInterface
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobService services.JobServiceInterface) *JobHandler {
	return &JobHandler{
		jobService: jobService,
	}
}

// CreateCheckJob queues an async fact-check and returns its job id
func (h *JobHandler) CreateCheckJob(c *gin.Context) {
	correlationID := getCorrelationID(c)
	userID := currentUserID(c)

	var req services.CheckJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "input_type must be text or url")
		return
	}

	response, err := h.jobService.CreateCheckJob(&req, userID, correlationID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorCode := "JOB_CREATION_ERROR"
		if contains(err.Error(), "empty") {
			statusCode = http.StatusBadRequest
			errorCode = "EMPTY_PAYLOAD"
		}

		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"user_id":   userID,
			"operation": "create_check_job",
		})
		writeError(c, statusCode, errorCode, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, response)
}

// GetJobStatus returns the status of an async check job
func (h *JobHandler) GetJobStatus(c *gin.Context) {
	userID := currentUserID(c)

	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_UUID", "Invalid job ID format")
		return
	}

	response, err := h.jobService.GetJobStatus(jobID, userID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorCode := "INTERNAL_ERROR"
		if contains(err.Error(), "not found") {
			statusCode = http.StatusNotFound
			errorCode = "JOB_NOT_FOUND"
		}

		writeError(c, statusCode, errorCode, err.Error())
		return
	}

	c.JSON(http.StatusOK, response)
}

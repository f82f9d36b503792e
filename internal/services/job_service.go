package services

import (
	"context"
	"fmt"
	"time"

	"factflow/internal/logger"
	"factflow/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Async job input types
const (
	InputTypeText = "text"
	InputTypeURL  = "url"
)

// KafkaServiceInterface defines the interface for Kafka operations
type KafkaServiceInterface interface {
	PublishCheckJob(message interface{}) error
	Close() error
}

// JobServiceInterface defines the async check job operations
type JobServiceInterface interface {
	CreateCheckJob(req *CheckJobRequest, userID, correlationID string) (*CheckJobResponse, error)
	GetJobStatus(jobID uuid.UUID, userID string) (*JobStatusResponse, error)
	ProcessCheckJob(ctx context.Context, message CheckJobMessage) error
}

// JobService queues fact-check jobs through Kafka and tracks their status
type JobService struct {
	db           *gorm.DB
	kafkaService KafkaServiceInterface
	checkService CheckServiceInterface
}

// NewJobService creates a new job service
func NewJobService(db *gorm.DB, kafkaService KafkaServiceInterface, checkService CheckServiceInterface) *JobService {
	return &JobService{
		db:           db,
		kafkaService: kafkaService,
		checkService: checkService,
	}
}

// CheckJobRequest represents a request to queue an async fact-check
type CheckJobRequest struct {
	InputType string `json:"input_type" binding:"required,oneof=text url"`
	Text      string `json:"text"`
	URL       string `json:"url"`
}

// CheckJobResponse represents the job creation response
type CheckJobResponse struct {
	JobID   uuid.UUID `json:"job_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// JobStatusResponse represents the job status polling response
type JobStatusResponse struct {
	JobID        uuid.UUID  `json:"job_id"`
	Status       string     `json:"status"` // pending, processing, completed, failed
	ResultID     *uuid.UUID `json:"result_id,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// CheckJobMessage is the Kafka message for one queued check job
type CheckJobMessage struct {
	JobID     string `json:"job_id"`
	UserID    string `json:"user_id"`
	InputType string `json:"input_type"`
	Payload   string `json:"payload"`
}

// CreateCheckJob persists a pending job and publishes it to Kafka
func (s *JobService) CreateCheckJob(req *CheckJobRequest, userID, correlationID string) (*CheckJobResponse, error) {
	log := logger.WithCorrelationID(correlationID)

	payload := req.Text
	if req.InputType == InputTypeURL {
		payload = req.URL
	}
	if payload == "" {
		return nil, fmt.Errorf("empty %s payload", req.InputType)
	}

	job := &models.CheckJob{
		JobID:     uuid.New(),
		UserID:    userID,
		InputType: req.InputType,
		Payload:   payload,
		Status:    "pending",
	}

	if err := s.db.Create(job).Error; err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"user_id":   userID,
			"operation": "create_check_job",
		})
		return nil, fmt.Errorf("failed to create check job: %w", err)
	}

	message := CheckJobMessage{
		JobID:     job.JobID.String(),
		UserID:    userID,
		InputType: req.InputType,
		Payload:   payload,
	}

	if err := s.kafkaService.PublishCheckJob(message); err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"job_id":    job.JobID,
			"operation": "publish_check_job_kafka",
		})
		s.db.Model(job).Update("status", "failed")
		return nil, fmt.Errorf("failed to queue check job: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"job_id":     job.JobID,
		"user_id":    userID,
		"input_type": req.InputType,
	}).Info("Check job created")

	return &CheckJobResponse{
		JobID:   job.JobID,
		Status:  "pending",
		Message: "Fact-check job created and queued for processing",
	}, nil
}

// GetJobStatus returns the status of an async check job, owner-scoped
func (s *JobService) GetJobStatus(jobID uuid.UUID, userID string) (*JobStatusResponse, error) {
	var job models.CheckJob
	if err := s.db.Where("job_id = ? AND user_id = ?", jobID, userID).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("check job %s not found", jobID)
		}
		return nil, fmt.Errorf("failed to get job status: %w", err)
	}

	return &JobStatusResponse{
		JobID:        job.JobID,
		Status:       job.Status,
		ResultID:     job.ResultID,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
	}, nil
}

// ProcessCheckJob runs one queued verification end to end. Called by the
// worker for each consumed Kafka message.
func (s *JobService) ProcessCheckJob(ctx context.Context, message CheckJobMessage) error {
	jobID, err := uuid.Parse(message.JobID)
	if err != nil {
		return fmt.Errorf("invalid job ID format %s: %w", message.JobID, err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"job_id":     jobID,
		"user_id":    message.UserID,
		"input_type": message.InputType,
	}).Info("Worker picked up check job")

	if err := s.updateJobStatus(jobID, "processing", ""); err != nil {
		return fmt.Errorf("failed to update job status to processing: %w", err)
	}

	var response *CheckResponse
	switch message.InputType {
	case InputTypeText:
		response, err = s.checkService.CheckText(ctx, message.UserID, message.Payload)
	case InputTypeURL:
		response, err = s.checkService.CheckURL(ctx, message.UserID, message.Payload)
	default:
		err = fmt.Errorf("unknown input type %q", message.InputType)
	}

	if err != nil {
		if updateErr := s.updateJobStatus(jobID, "failed", err.Error()); updateErr != nil {
			logger.LogErrorWithStack(updateErr, map[string]interface{}{
				"job_id":    jobID,
				"operation": "mark_check_job_failed",
			})
		}
		return fmt.Errorf("check job %s failed: %w", jobID, err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       "completed",
		"result_id":    response.ID,
		"completed_at": &now,
	}
	if err := s.db.Model(&models.CheckJob{}).Where("job_id = ?", jobID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"job_id":  jobID,
		"verdict": response.Verdict,
	}).Info("Check job completed")

	return nil
}

// updateJobStatus updates a job's status and error message
func (s *JobService) updateJobStatus(jobID uuid.UUID, status, errorMessage string) error {
	updates := map[string]interface{}{"status": status}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}
	if status == "failed" {
		now := time.Now()
		updates["completed_at"] = &now
	}

	return s.db.Model(&models.CheckJob{}).Where("job_id = ?", jobID).Updates(updates).Error
}

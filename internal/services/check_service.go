package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"factflow/internal/cache"
	"factflow/internal/checker"
	"factflow/internal/config"
	"factflow/internal/logger"
	"factflow/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CheckServiceInterface defines the fact-check service operations
type CheckServiceInterface interface {
	CheckText(ctx context.Context, userID, text string) (*CheckResponse, error)
	CheckImage(ctx context.Context, userID string, imageData []byte, mimeType string) (*CheckResponse, error)
	CheckDocument(ctx context.Context, userID string, document []byte) (*CheckResponse, error)
	CheckURL(ctx context.Context, userID, url string) (*CheckResponse, error)
	ListResults(userID string, limit int, verdict string) ([]*CheckResponse, error)
	DeleteResult(id uuid.UUID, userID string) (bool, error)
}

// CheckService runs verifications and persists the resulting records
type CheckService struct {
	db      *gorm.DB
	config  *config.Config
	checker checker.CheckerInterface
	cache   *cache.ResultCache
}

// NewCheckService creates a new check service
func NewCheckService(db *gorm.DB, cfg *config.Config, chk checker.CheckerInterface, resultCache *cache.ResultCache) *CheckService {
	return &CheckService{
		db:      db,
		config:  cfg,
		checker: chk,
		cache:   resultCache,
	}
}

// CheckResponse is the serialized verification record returned to callers
type CheckResponse struct {
	ID         uuid.UUID        `json:"id"`
	UserID     string           `json:"user_id"`
	Verdict    string           `json:"verdict"`
	Confidence float64          `json:"confidence"`
	Claim      string           `json:"claim"`
	Conclusion string           `json:"conclusion"`
	Evidence   checker.Evidence `json:"evidence"`
	Sources    []checker.Source `json:"sources"`
	Timestamp  time.Time        `json:"timestamp"`
}

// CheckText verifies a text claim for a user. Verification faults never
// surface as errors here: the checker returns an ERROR-verdict record and we
// persist it like any other outcome. Only storage failures return an error.
func (s *CheckService) CheckText(ctx context.Context, userID, text string) (*CheckResponse, error) {
	if cached, ok := s.cache.Get(ctx, text); ok {
		logger.WithCorrelationID(correlationIDFromContext(ctx)).WithField("user_id", userID).Info("Serving fact-check from cache")
		return s.saveRecord(userID, *cached)
	}

	record := s.checker.CheckText(ctx, text)
	s.cache.Set(ctx, text, record)

	return s.saveRecord(userID, record)
}

// CheckImage verifies the text transcribed from an uploaded image
func (s *CheckService) CheckImage(ctx context.Context, userID string, imageData []byte, mimeType string) (*CheckResponse, error) {
	record := s.checker.CheckImage(ctx, imageData, mimeType)
	return s.saveRecord(userID, record)
}

// CheckDocument verifies the text extracted from an uploaded PDF
func (s *CheckService) CheckDocument(ctx context.Context, userID string, document []byte) (*CheckResponse, error) {
	record := s.checker.CheckDocument(ctx, document)
	return s.saveRecord(userID, record)
}

// CheckURL verifies the content of a web page
func (s *CheckService) CheckURL(ctx context.Context, userID, url string) (*CheckResponse, error) {
	record := s.checker.CheckURL(ctx, url)
	return s.saveRecord(userID, record)
}

// saveRecord persists a verification record for a user and returns the
// serialized response
func (s *CheckService) saveRecord(userID string, record checker.Record) (*CheckResponse, error) {
	evidenceJSON, err := json.Marshal(record.Evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize evidence: %w", err)
	}

	sourcesJSON, err := json.Marshal(record.Sources)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize sources: %w", err)
	}

	factCheck := &models.FactCheck{
		UserID:     userID,
		Verdict:    string(record.Verdict),
		Confidence: record.Confidence,
		Claim:      record.Claim,
		Conclusion: record.Conclusion,
		Evidence:   datatypes.JSON(evidenceJSON),
		Sources:    datatypes.JSON(sourcesJSON),
		CheckedAt:  record.Timestamp,
	}

	if err := s.db.Create(factCheck).Error; err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"user_id":   userID,
			"verdict":   record.Verdict,
			"operation": "save_fact_check",
		})
		return nil, fmt.Errorf("failed to save fact check: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"fact_check_id": factCheck.ID,
		"user_id":       userID,
		"verdict":       record.Verdict,
		"confidence":    record.Confidence,
	}).Info("Fact check saved")

	return toCheckResponse(factCheck)
}

// ListResults returns a user's past fact-check results, newest first,
// optionally filtered by verdict
func (s *CheckService) ListResults(userID string, limit int, verdict string) ([]*CheckResponse, error) {
	if limit <= 0 {
		limit = 10
	}

	query := s.db.Where("user_id = ?", userID)
	if verdict != "" {
		query = query.Where("verdict = ?", verdict)
	}

	var factChecks []models.FactCheck
	if err := query.Order("checked_at DESC").Limit(limit).Find(&factChecks).Error; err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"user_id":   userID,
			"operation": "list_fact_checks",
		})
		return nil, fmt.Errorf("failed to retrieve fact checks: %w", err)
	}

	responses := make([]*CheckResponse, 0, len(factChecks))
	for i := range factChecks {
		response, err := toCheckResponse(&factChecks[i])
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}

	return responses, nil
}

// DeleteResult removes a fact-check owned by the user. Returns false when
// the record does not exist or belongs to someone else.
func (s *CheckService) DeleteResult(id uuid.UUID, userID string) (bool, error) {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.FactCheck{})
	if result.Error != nil {
		logger.LogErrorWithStack(result.Error, map[string]interface{}{
			"fact_check_id": id,
			"user_id":       userID,
			"operation":     "delete_fact_check",
		})
		return false, fmt.Errorf("failed to delete fact check: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// toCheckResponse converts a stored row back into the API shape
func toCheckResponse(factCheck *models.FactCheck) (*CheckResponse, error) {
	var evidence checker.Evidence
	if len(factCheck.Evidence) > 0 {
		if err := json.Unmarshal(factCheck.Evidence, &evidence); err != nil {
			return nil, fmt.Errorf("failed to parse stored evidence: %w", err)
		}
	}

	sources := []checker.Source{}
	if len(factCheck.Sources) > 0 {
		if err := json.Unmarshal(factCheck.Sources, &sources); err != nil {
			return nil, fmt.Errorf("failed to parse stored sources: %w", err)
		}
	}

	if evidence.Supporting == nil {
		evidence.Supporting = []string{}
	}
	if evidence.Counter == nil {
		evidence.Counter = []string{}
	}

	return &CheckResponse{
		ID:         factCheck.ID,
		UserID:     factCheck.UserID,
		Verdict:    factCheck.Verdict,
		Confidence: factCheck.Confidence,
		Claim:      factCheck.Claim,
		Conclusion: factCheck.Conclusion,
		Evidence:   evidence,
		Sources:    sources,
		Timestamp:  factCheck.CheckedAt,
	}, nil
}

// correlationIDFromContext extracts correlation ID from context
func correlationIDFromContext(ctx context.Context) string {
	if id := ctx.Value("correlation_id"); id != nil {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return ""
}

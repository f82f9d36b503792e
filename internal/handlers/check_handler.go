package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"factflow/internal/config"
	"factflow/internal/logger"
	"factflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// allowedImageMimeTypes lists the accepted image upload content types
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// CheckHandler serves the fact-check endpoints
type CheckHandler struct {
	checkService services.CheckServiceInterface
	config       *config.Config
}

// NewCheckHandler creates a new check handler
func NewCheckHandler(checkService services.CheckServiceInterface, cfg *config.Config) *CheckHandler {
	return &CheckHandler{
		checkService: checkService,
		config:       cfg,
	}
}

// CheckTextRequest is the body for text fact-checking
type CheckTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// CheckURLRequest is the body for URL fact-checking
type CheckURLRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// CheckText fact-checks the provided text
func (h *CheckHandler) CheckText(c *gin.Context) {
	correlationID := getCorrelationID(c)
	userID := currentUserID(c)

	var req CheckTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Text cannot be empty")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(c, http.StatusBadRequest, "EMPTY_TEXT", "Text cannot be empty")
		return
	}

	logger.Log.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"user_id":        userID,
		"text_length":    len(req.Text),
	}).Info("Text fact-check request received")

	response, err := h.checkService.CheckText(requestContext(c), userID, req.Text)
	if err != nil {
		h.storageError(c, err, "check_text")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CheckImage uploads an image and fact-checks the text extracted from it
func (h *CheckHandler) CheckImage(c *gin.Context) {
	correlationID := getCorrelationID(c)
	userID := currentUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "FILE_VALIDATION_ERROR", "No file uploaded or invalid file")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if !allowedImageMimeTypes[mimeType] {
		writeError(c, http.StatusBadRequest, "INVALID_FILE_TYPE",
			"Invalid file type. Allowed types are: image/jpeg, image/png, image/gif, image/webp")
		return
	}

	imageData, err := h.readUpload(c, fileHeader.Filename, "images")
	if err != nil {
		writeError(c, http.StatusInternalServerError, "FILE_STORAGE_ERROR", err.Error())
		return
	}

	logger.Log.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"user_id":        userID,
		"filename":       fileHeader.Filename,
		"file_size":      fileHeader.Size,
		"mime_type":      mimeType,
	}).Info("Image fact-check request received")

	response, err := h.checkService.CheckImage(requestContext(c), userID, imageData, mimeType)
	if err != nil {
		h.storageError(c, err, "check_image")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CheckDocument uploads a PDF and fact-checks the text extracted from it
func (h *CheckHandler) CheckDocument(c *gin.Context) {
	correlationID := getCorrelationID(c)
	userID := currentUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "FILE_VALIDATION_ERROR", "No file uploaded or invalid file")
		return
	}

	if fileHeader.Header.Get("Content-Type") != "application/pdf" {
		writeError(c, http.StatusBadRequest, "INVALID_FILE_TYPE",
			"Invalid file type. Only PDF files (application/pdf) are allowed.")
		return
	}

	document, err := h.readUpload(c, fileHeader.Filename, "documents")
	if err != nil {
		writeError(c, http.StatusInternalServerError, "FILE_STORAGE_ERROR", err.Error())
		return
	}

	logger.Log.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"user_id":        userID,
		"filename":       fileHeader.Filename,
		"file_size":      fileHeader.Size,
	}).Info("Document fact-check request received")

	response, err := h.checkService.CheckDocument(requestContext(c), userID, document)
	if err != nil {
		h.storageError(c, err, "check_document")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CheckURL fact-checks the content of a given URL
func (h *CheckHandler) CheckURL(c *gin.Context) {
	correlationID := getCorrelationID(c)
	userID := currentUserID(c)

	var req CheckURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "A valid url is required")
		return
	}

	logger.Log.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"user_id":        userID,
		"url":            req.URL,
	}).Info("URL fact-check request received")

	response, err := h.checkService.CheckURL(requestContext(c), userID, req.URL)
	if err != nil {
		h.storageError(c, err, "check_url")
		return
	}

	c.JSON(http.StatusOK, response)
}

// readUpload reads the uploaded file into memory, enforcing the size limit,
// and keeps a copy under the storage path
func (h *CheckHandler) readUpload(c *gin.Context, filename, subdir string) ([]byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	if fileHeader.Size > h.config.MaxFileSize {
		return nil, fmt.Errorf("file exceeds maximum size of %d bytes", h.config.MaxFileSize)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.config.MaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	dir := filepath.Join(h.config.StoragePath, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	storedName := uuid.New().String() + "_" + filepath.Base(filename)
	if err := os.WriteFile(filepath.Join(dir, storedName), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	return data, nil
}

// storageError reports a persistence failure. Verification faults never land
// here: the checker absorbs them into ERROR-verdict records.
func (h *CheckHandler) storageError(c *gin.Context, err error, operation string) {
	logger.LogErrorWithStackAndCorrelation(err, getCorrelationID(c), map[string]interface{}{
		"operation": operation,
	})
	writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store fact-check result")
}

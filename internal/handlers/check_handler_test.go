package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"factflow/internal/checker"
	"factflow/internal/config"
	"factflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCheckService for testing
type MockCheckService struct {
	mock.Mock
}

func (m *MockCheckService) CheckText(ctx context.Context, userID, text string) (*services.CheckResponse, error) {
	args := m.Called(ctx, userID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckResponse), args.Error(1)
}

func (m *MockCheckService) CheckImage(ctx context.Context, userID string, imageData []byte, mimeType string) (*services.CheckResponse, error) {
	args := m.Called(ctx, userID, imageData, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckResponse), args.Error(1)
}

func (m *MockCheckService) CheckDocument(ctx context.Context, userID string, document []byte) (*services.CheckResponse, error) {
	args := m.Called(ctx, userID, document)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckResponse), args.Error(1)
}

func (m *MockCheckService) CheckURL(ctx context.Context, userID, url string) (*services.CheckResponse, error) {
	args := m.Called(ctx, userID, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckResponse), args.Error(1)
}

func (m *MockCheckService) ListResults(userID string, limit int, verdict string) ([]*services.CheckResponse, error) {
	args := m.Called(userID, limit, verdict)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*services.CheckResponse), args.Error(1)
}

func (m *MockCheckService) DeleteResult(id uuid.UUID, userID string) (bool, error) {
	args := m.Called(id, userID)
	return args.Bool(0), args.Error(1)
}

func testHandlerConfig(t *testing.T) *config.Config {
	return &config.Config{
		StoragePath: t.TempDir(),
		MaxFileSize: 1024 * 1024,
	}
}

func setupCheckRouter(t *testing.T, checkService services.CheckServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewCheckHandler(checkService, testHandlerConfig(t))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Set("correlation_id", "test-correlation-id")
	})
	router.POST("/api/check/text", handler.CheckText)
	router.POST("/api/check/image", handler.CheckImage)
	router.POST("/api/check/document", handler.CheckDocument)
	router.POST("/api/check/url", handler.CheckURL)
	return router
}

func sampleResponse(verdict, claim string) *services.CheckResponse {
	return &services.CheckResponse{
		ID:         uuid.New(),
		UserID:     "user-1",
		Verdict:    verdict,
		Confidence: 0.9,
		Claim:      claim,
		Conclusion: "Conclusion.",
		Evidence:   checker.Evidence{Supporting: []string{}, Counter: []string{}},
		Sources:    []checker.Source{},
		Timestamp:  time.Now().UTC(),
	}
}

func multipartBody(t *testing.T, fieldName, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func errorCode(t *testing.T, body *bytes.Buffer) string {
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	return envelope.Error.Code
}

func TestCheckHandler_CheckText_Success(t *testing.T) {
	mockService := &MockCheckService{}
	router := setupCheckRouter(t, mockService)

	mockService.On("CheckText", mock.Anything, "user-1", "The sky is blue").Return(sampleResponse("TRUE", "The sky is blue"), nil)

	body, _ := json.Marshal(map[string]string{"text": "The sky is blue"})
	req := httptest.NewRequest("POST", "/api/check/text", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp services.CheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TRUE", resp.Verdict)
	assert.Equal(t, "user-1", resp.UserID)
	mockService.AssertExpectations(t)
}

func TestCheckHandler_CheckText_Invalid(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedCode string
	}{
		{name: "missing text field", body: `{}`, expectedCode: "INVALID_REQUEST"},
		{name: "not json", body: `not json`, expectedCode: "INVALID_REQUEST"},
		{name: "whitespace only", body: `{"text": "   "}`, expectedCode: "EMPTY_TEXT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockCheckService{}
			router := setupCheckRouter(t, mockService)

			req := httptest.NewRequest("POST", "/api/check/text", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.expectedCode, errorCode(t, w.Body))
			mockService.AssertNotCalled(t, "CheckText")
		})
	}
}

func TestCheckHandler_CheckImage_Success(t *testing.T) {
	mockService := &MockCheckService{}
	router := setupCheckRouter(t, mockService)

	imageData := []byte("fake-png-bytes")
	mockService.On("CheckImage", mock.Anything, "user-1", imageData, "image/png").Return(sampleResponse("FALSE", "Claim from image"), nil)

	body, contentType := multipartBody(t, "file", "claim.png", "image/png", imageData)
	req := httptest.NewRequest("POST", "/api/check/image", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestCheckHandler_CheckImage_InvalidType(t *testing.T) {
	mockService := &MockCheckService{}
	router := setupCheckRouter(t, mockService)

	body, contentType := multipartBody(t, "file", "claim.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest("POST", "/api/check/image", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_TYPE", errorCode(t, w.Body))
	mockService.AssertNotCalled(t, "CheckImage")
}

func TestCheckHandler_CheckImage_NoFile(t *testing.T) {
	mockService := &MockCheckService{}
	router := setupCheckRouter(t, mockService)

	req := httptest.NewRequest("POST", "/api/check/image", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "FILE_VALIDATION_ERROR", errorCode(t, w.Body))
}

func TestCheckHandler_CheckDocument_Success(t *testing.T) {
	mockService := &MockCheckService{}
	router := setupCheckRouter(t, mockService)

	pdfData := []byte("%PDF-1.4 fake")
	mockService.On("CheckDocument", mock.Anything, "user-1", pdfData).Return(sampleResponse("UNVERIFIABLE", "Claim from document"), nil)

	body, contentType := multipartBody(t, "file", "report.pdf", "application/pdf", pdfData)
	req := httptest.NewRequest("POST", "/api/check/document", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestCheckHandler_CheckDocument_InvalidType(t *testing.T) {
	mockService := &MockCheckService{}
	router := setupCheckRouter(t, mockService)

	body, contentType := multipartBody(t, "file", "claim.png", "image/png", []byte("pixels"))
	req := httptest.NewRequest("POST", "/api/check/document", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_TYPE", errorCode(t, w.Body))
	mockService.AssertNotCalled(t, "CheckDocument")
}

func TestCheckHandler_CheckURL_Success(t *testing.T) {
	mockService := &MockCheckService{}
	router := setupCheckRouter(t, mockService)

	mockService.On("CheckURL", mock.Anything, "user-1", "https://example.com/article").Return(sampleResponse("TRUE", "Claim from page"), nil)

	body, _ := json.Marshal(map[string]string{"url": "https://example.com/article"})
	req := httptest.NewRequest("POST", "/api/check/url", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestCheckHandler_CheckURL_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing url", body: `{}`},
		{name: "not a url", body: `{"url": "definitely not a url"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockCheckService{}
			router := setupCheckRouter(t, mockService)

			req := httptest.NewRequest("POST", "/api/check/url", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "INVALID_REQUEST", errorCode(t, w.Body))
			mockService.AssertNotCalled(t, "CheckURL")
		})
	}
}

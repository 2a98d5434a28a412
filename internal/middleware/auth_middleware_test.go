package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJWTService(adminExpiry time.Duration) *jwt.Service {
	return jwt.NewService(
		"test-admin-secret-key-123456789",
		"test-payment-secret-key-123456789",
		adminExpiry,
		time.Hour,
	)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestRouter(jwtService *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin/ping", AdminAuthMiddleware(jwtService, quietLogger()), func(c *gin.Context) {
		admin, exists := GetAdminContext(c)
		if !exists {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject": admin.Subject, "email": admin.Email})
	})
	return router
}

func doRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/admin/ping", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["code"]
}

func TestAdminAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService(time.Hour)
	router := setupTestRouter(jwtService)

	token, err := jwtService.GenerateAdminToken("admin-1", "ops@example.com", []string{"admin"})
	require.NoError(t, err)

	w := doRequest(router, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ops@example.com")
}

func TestAdminAuthMiddleware_Rejections(t *testing.T) {
	jwtService := setupTestJWTService(time.Hour)
	router := setupTestRouter(jwtService)

	paymentToken, err := jwtService.GeneratePaymentToken("booking-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "MISSING_AUTH_HEADER"},
		{"basic scheme", "Basic abc", "INVALID_AUTH_FORMAT"},
		{"empty bearer", "Bearer  ", "INVALID_AUTH_FORMAT"},
		{"garbage token", "Bearer not-a-jwt", "INVALID_TOKEN"},
		{"payment token", "Bearer " + paymentToken, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, decodeCode(t, w))
		})
	}
}

func TestAdminAuthMiddleware_ExpiredToken(t *testing.T) {
	jwtService := setupTestJWTService(-time.Minute)
	router := setupTestRouter(jwtService)

	token, err := jwtService.GenerateAdminToken("admin-1", "ops@example.com", []string{"admin"})
	require.NoError(t, err)

	w := doRequest(router, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decodeCode(t, w))
}

func TestAdminAuthMiddleware_MissingRole(t *testing.T) {
	jwtService := setupTestJWTService(time.Hour)
	router := setupTestRouter(jwtService)

	token, err := jwtService.GenerateAdminToken("viewer-1", "viewer@example.com", []string{"viewer"})
	require.NoError(t, err)

	w := doRequest(router, "Bearer "+token)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", decodeCode(t, w))
}

func TestRequestLogger_LogsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	req := httptest.NewRequest("GET", "/missing?x=1", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Equal(t, "x=1", entry["query"])
}

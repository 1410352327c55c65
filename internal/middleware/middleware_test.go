package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"upload-relay/internal/redis"
	"upload-relay/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.POST("/api/public-upload", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/api/public-upload", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/public-upload", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, x-description", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSMiddlewareOnErrors(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.POST("/x", func(c *gin.Context) { c.JSON(http.StatusBadRequest, gin.H{"error": "bad"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RouterCORSMiddleware([]string{"https://app.example"}))
	r.GET("/api/uploadthing", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/uploadthing", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/uploadthing", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware(logger.NewNop()), CORSMiddleware())
	r.POST("/boom", func(c *gin.Context) { panic("nil map write") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Unexpected error", body["error"])
	assert.Equal(t, "nil map write", body["details"])
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNop()))
	r.GET("/fail", func(c *gin.Context) { _ = c.Error(errors.New("kaput")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Unexpected error","details":"kaput"}`, w.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		seen, _ = c.Request.Context().Value(logger.RequestIdKey).(string)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 32)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", seen)
}

type stubLimiter struct {
	result *redis.RateLimitResult
	err    error
	calls  int
}

func (s *stubLimiter) AllowUpload(context.Context, string) (*redis.RateLimitResult, error) {
	s.calls++
	return s.result, s.err
}

func TestUploadRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		limiter    *stubLimiter
		wantStatus int
		wantCalls  int
	}{
		{"allowed", http.MethodPost, &stubLimiter{result: &redis.RateLimitResult{Allowed: true, Limit: 5, Remaining: 4}}, http.StatusOK, 1},
		{"blocked", http.MethodPost, &stubLimiter{result: &redis.RateLimitResult{Allowed: false, Limit: 5, ResetIn: time.Minute}}, http.StatusTooManyRequests, 1},
		{"limiter down", http.MethodPost, &stubLimiter{err: errors.New("redis down")}, http.StatusOK, 1},
		{"get skipped", http.MethodGet, &stubLimiter{}, http.StatusOK, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORSMiddleware(), UploadRateLimitMiddleware(tt.limiter, logger.NewNop()))
			r.Handle(tt.method, "/up", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, "/up", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalls, tt.limiter.calls)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantStatus == http.StatusTooManyRequests {
				assert.JSONEq(t, `{"error":"Upload rate limit exceeded"}`, w.Body.String())
				assert.Equal(t, "60", w.Header().Get("X-RateLimit-Reset"))
			}
		})
	}
}

func TestLocalRateLimiter(t *testing.T) {
	limiter := NewLocalRateLimiter(2, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.AllowUpload(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Limit)
	}

	res, err := limiter.AllowUpload(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.ResetIn, time.Duration(0))

	res, err = limiter.AllowUpload(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/services"
	apperrors "streampulse/pkg/errors"
	"streampulse/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter(t *testing.T, mw ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlerMiddleware(logger.NewContextLogger(zaptest.NewLogger(t))))
	r.Use(mw...)
	return r
}

func do(r http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandlerMiddleware_AppError(t *testing.T) {
	r := newRouter(t)
	r.GET("/bad", func(c *gin.Context) {
		_ = c.Error(apperrors.NewInvalidInputError("bitrate must be positive").WithContext("bitrate", -1))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})

	w := do(r, http.MethodGet, "/bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "INVALID_INPUT", body["error"])
	assert.Equal(t, "bitrate must be positive", body["message"])
	assert.Contains(t, body, "details")

	w = do(r, http.MethodGet, "/plain", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w)["error"])
}

func TestRecoveryMiddleware(t *testing.T) {
	r := newRouter(t, RecoveryMiddleware(zaptest.NewLogger(t).Sugar()))
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	auth := services.NewAuthService("secret", time.Hour)
	operator, err := auth.GenerateToken("ops", domain.RoleOperator)
	require.NoError(t, err)
	viewer, err := auth.GenerateToken("watcher", domain.RoleViewer)
	require.NoError(t, err)

	r := newRouter(t, AuthMiddleware(auth, domain.RoleOperator))
	r.POST("/control", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextSubjectKey))
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"viewer role", "Bearer " + viewer, http.StatusForbidden},
		{"operator role", "Bearer " + operator, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			w := do(r, http.MethodPost, "/control", h)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "ops", w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_DisabledPassesThrough(t *testing.T) {
	r := newRouter(t, AuthMiddleware(nil, domain.RoleOperator))
	r.POST("/control", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/control", nil).Code)
}

func TestTracingMiddleware_PassesThrough(t *testing.T) {
	r := newRouter(t, TracingMiddleware())
	r.GET("/api/v1/health/score", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/health/score", nil).Code)
}

func TestRequestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newRouter(t, RequestLoggingMiddleware(logger.NewContextLogger(zap.New(core))))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	h := http.Header{}
	h.Set(RequestIDHeader, "req-123")
	w := do(r, http.MethodGet, "/ping", h)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status_code"])

	w = do(r, http.MethodGet, "/ping", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestErrorHandlerMiddleware_LogsWithRequestContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cl := logger.NewContextLogger(zap.New(core))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLoggingMiddleware(cl))
	r.Use(ErrorHandlerMiddleware(cl))
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("disk full")) })
	r.GET("/bad", func(c *gin.Context) { _ = c.Error(apperrors.NewInvalidInputError("limit must be a positive integer")) })

	h := http.Header{}
	h.Set(RequestIDHeader, "req-9")
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/boom", h).Code)

	failures := logs.FilterMessage("unhandled error").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
	fields := failures[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "disk full", fields["error"])

	requests := logs.FilterMessage("http_request").All()
	require.Len(t, requests, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), requests[0].ContextMap()["status_code"])

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/bad", h).Code)
	warnings := logs.FilterMessage("application error").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	assert.Equal(t, "INVALID_INPUT", warnings[0].ContextMap()["code"])
}

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(GinZapLogger(zap.New(core)))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.GET("/err", func(c *gin.Context) {
		_ = c.Error(errors.New("backend exploded"))
		c.Status(http.StatusBadGateway)
	})
	return router, logs
}

func TestGinZapLogger_Levels(t *testing.T) {
	router, logs := newTestRouter(t)

	cases := []struct {
		path  string
		level zapcore.Level
		msg   string
	}{
		{"/ok?x=1", zapcore.InfoLevel, "Request completed"},
		{"/bad", zapcore.WarnLevel, "Client error"},
		{"/boom", zapcore.ErrorLevel, "Server error"},
		{"/err", zapcore.ErrorLevel, "Request error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

		entries := logs.TakeAll()
		require.Len(t, entries, 1, tc.path)
		assert.Equal(t, tc.level, entries[0].Level)
		assert.Equal(t, tc.msg, entries[0].Message)
		assert.Equal(t, tc.path, entries[0].ContextMap()["path"])
	}
}

func TestGinZapLogger_SkipsHealth(t *testing.T) {
	router, logs := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, logs.Len())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestGinZapLogger_RequestID(t *testing.T) {
	router, logs := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-123", w.Body.String())
	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()[RequestIDKey])
}

package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erazemk/storeroom/internal/config"
)

func TestCoreRoutesByLevel(t *testing.T) {
	var stdout, stderr, file bytes.Buffer

	core, err := newCore(config.LogConfig{Level: "info", Format: "json"},
		zapcore.AddSync(&stdout), zapcore.AddSync(&stderr), zapcore.AddSync(&file))
	require.NoError(t, err)
	log := zap.New(core)

	log.Debug("hidden")
	log.Info("stock added")
	log.Warn("publish slow")
	log.Error("publish failed")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "stock added")
	assert.Contains(t, stdout.String(), "publish slow")
	assert.NotContains(t, stdout.String(), "publish failed")

	assert.Contains(t, stderr.String(), "publish failed")
	assert.NotContains(t, stderr.String(), "stock added")

	assert.Equal(t, 3, strings.Count(file.String(), "\n"))
}

func TestCoreRejectsUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	_, err := newCore(config.LogConfig{Level: "loud"}, zapcore.AddSync(&buf), zapcore.AddSync(&buf), nil)
	assert.Error(t, err)
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storeroom.log")

	log, cleanup, err := New(config.LogConfig{Level: "warn", Format: "console", File: path})
	require.NoError(t, err)
	log.Warn("written")
	cleanup()

	assert.FileExists(t, path)
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(RequestIDKey, "req-1"); c.Next() })
	r.Use(GinMiddleware(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok", entries[0].ContextMap()["path"])
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, int64(500), entries[1].ContextMap()["status"])
}

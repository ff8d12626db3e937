package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	userID := uuid.New()

	app := drift.New()
	app.Use(RequestLogger(log))
	app.Get("/tasks", func(c *drift.Context) {
		c.Set(UserIDKey, userID)
		_ = c.JSON(http.StatusOK, nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.RemoteAddr = "192.0.2.1:9000"
	app.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "request handled", entry.Message)
	assert.Equal(t, http.MethodGet, entry.Data["method"])
	assert.Equal(t, "/tasks", entry.Data["path"])
	assert.Equal(t, "192.0.2.1", entry.Data["client_ip"])
	assert.Equal(t, userID.String(), entry.Data["user_id"])
	assert.Contains(t, entry.Data, "latency_ms")
}

func TestRequestLogger_Anonymous(t *testing.T) {
	log, hook := test.NewNullLogger()

	app := drift.New()
	app.Use(RequestLogger(log))
	app.Get("/health", func(c *drift.Context) {
		_ = c.JSON(http.StatusOK, nil)
	})

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, hook.Entries, 1)
	assert.NotContains(t, hook.LastEntry().Data, "user_id")
}

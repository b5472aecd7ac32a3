package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	logBuffer := new(bytes.Buffer)
	testLogger := slog.New(slog.NewJSONHandler(logBuffer, nil))

	mockResponseStatus := http.StatusAccepted
	mockResponseBody := "Hello from next handler!"
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(mockResponseStatus)
		_, _ = w.Write([]byte(mockResponseBody))
	})

	req := httptest.NewRequest("GET", "/loans/7?include=schedule", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	req.Header.Set("User-Agent", "TestAgent/1.0")

	testReqID := "test-request-id-123"
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, testReqID))

	rr := httptest.NewRecorder()
	StructuredLogger(testLogger)(nextHandler).ServeHTTP(rr, req)

	assert.Equal(t, mockResponseStatus, rr.Code)
	assert.Equal(t, mockResponseBody, rr.Body.String())

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(logBuffer.Bytes(), &logEntry), "Failed to unmarshal log output")

	assert.Equal(t, "INFO", logEntry["level"])
	assert.Equal(t, "Served request", logEntry["msg"])
	assert.Equal(t, req.Method, logEntry["method"])
	assert.Equal(t, "/loans/7", logEntry["path"])
	assert.Equal(t, req.RemoteAddr, logEntry["remote_addr"])
	assert.Equal(t, "TestAgent/1.0", logEntry["user_agent"])
	assert.Equal(t, float64(mockResponseStatus), logEntry["status"])
	assert.Equal(t, float64(len(mockResponseBody)), logEntry["bytes_written"])
	assert.Equal(t, testReqID, logEntry["request_id"])

	latency, ok := logEntry["latency_ms"].(float64)
	assert.True(t, ok, "Latency should be a float64")
	assert.Greater(t, latency, 0.0)
}

func TestStructuredLoggerLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusConflict, "WARN"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logBuffer := new(bytes.Buffer)
			testLogger := slog.New(slog.NewJSONHandler(logBuffer, nil))
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			StructuredLogger(testLogger)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/other", nil))

			var logEntry map[string]interface{}
			require.NoError(t, json.Unmarshal(logBuffer.Bytes(), &logEntry))
			assert.Equal(t, tt.level, logEntry["level"])
			assert.Equal(t, "", logEntry["request_id"])
		})
	}
}

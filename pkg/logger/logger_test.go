package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(minLevel string) (*jsonLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &jsonLogger{
		serviceName: "kyc-verification",
		minLevel:    levelRank[minLevel],
		logger:      log.New(&buf, "", 0),
	}, &buf
}

func entries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]interface{}
		require.NoError(t, dec.Decode(&entry))
		out = append(out, entry)
	}
	return out
}

func TestLogger_EmitsStructuredJSON(t *testing.T) {
	l, buf := newBufferLogger("info")

	l.Info("Verification session started", Fields{
		"event":      "verification_started",
		"session_id": "abc-123",
	})

	logged := entries(t, buf)
	require.Len(t, logged, 1)
	assert.Equal(t, "info", logged[0]["level"])
	assert.Equal(t, "kyc-verification", logged[0]["service"])
	assert.Equal(t, "Verification session started", logged[0]["message"])
	assert.Equal(t, "verification_started", logged[0]["event"])
	assert.Equal(t, "abc-123", logged[0]["session_id"])
	assert.NotEmpty(t, logged[0]["timestamp"])
}

func TestLogger_FiltersBelowMinLevel(t *testing.T) {
	l, buf := newBufferLogger("warn")

	l.Debug("dropped", nil)
	l.Info("dropped too", nil)
	l.Warn("kept", nil)
	l.Error("kept too", nil)

	logged := entries(t, buf)
	require.Len(t, logged, 2)
	assert.Equal(t, "warn", logged[0]["level"])
	assert.Equal(t, "error", logged[1]["level"])
}

func TestLogger_NilFieldsAreFine(t *testing.T) {
	l, buf := newBufferLogger("info")

	l.Info("bare message", nil)

	logged := entries(t, buf)
	require.Len(t, logged, 1)
	assert.Equal(t, "bare message", logged[0]["message"])
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	l, ok := New("svc", "chatty").(*jsonLogger)
	require.True(t, ok)
	assert.Equal(t, levelRank["info"], l.minLevel)
}

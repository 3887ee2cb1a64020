package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextAddsRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, "user-1")
	log.WithContext(ctx).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "user-1", line["user_id"])
}

func TestSideEffectFailedLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.SideEffectFailed("notify_quote_sent", errors.New("smtp down"), "quote_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "notify_quote_sent", line["operation"])
	assert.Equal(t, "smtp down", line["error"])
	assert.Equal(t, "abc", line["quote_id"])
}

func TestQuoteTransition(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.QuoteTransition("q-1", "Q2026100001", "draft", "sent")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "quote_transition", line["msg"])
	assert.Equal(t, "Q2026100001", line["quote_number"])
	assert.Equal(t, "draft", line["from"])
	assert.Equal(t, "sent", line["to"])
}

func TestTestEnvironmentSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("test", &buf)

	log.Info("noise")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestWithContextWithoutValuesReturnsSameLogger(t *testing.T) {
	log := Nop()
	assert.Same(t, log, log.WithContext(context.Background()))
}

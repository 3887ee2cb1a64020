// Package logger wraps log/slog with the event names the CRM backend emits.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "user_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New writes text logs at debug level in development and JSON at info
// level everywhere else.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to w. Tests pass io.Discard or a buffer.
func NewWithWriter(env string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: levelFor(env)}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

func levelFor(env string) slog.Level {
	switch strings.ToLower(env) {
	case "development":
		return slog.LevelDebug
	case "test":
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ContextWithRequestID stores the request ID for WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ContextWithUserID stores the acting user ID for WithContext.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithContext returns a logger carrying request_id and user_id from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	var attrs []any
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs a request that ended in a 5xx.
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// PanicRecovered logs a handler panic caught by the recovery middleware.
func (l *Logger) PanicRecovered(method, path string, recovered any) {
	l.Error("panic_recovered",
		slog.String("method", method),
		slog.String("path", path),
		slog.Any("panic", recovered),
	)
}

// QuoteTransition records a quote lifecycle change.
func (l *Logger) QuoteTransition(quoteID, quoteNumber, from, to string) {
	l.Info("quote_transition",
		slog.String("quote_id", quoteID),
		slog.String("quote_number", quoteNumber),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// SideEffectFailed logs a best-effort side effect (email, PDF upload) that
// failed after the primary change was committed.
func (l *Logger) SideEffectFailed(operation string, err error, attrs ...any) {
	args := append([]any{
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	}, attrs...)
	l.Warn("side_effect_failed", args...)
}

// JobCompleted logs the outcome of a background job run.
func (l *Logger) JobCompleted(job string, affected int64) {
	l.Info("job_completed",
		slog.String("job", job),
		slog.Int64("affected", affected),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

package observability

import (
	"context"

	"github.com/google/uuid"
)

// Context keys for observability data.
type contextKey string

const (
	correlationIDCtxKey contextKey = "correlation_id"
	messageIDCtxKey     contextKey = "message_id"
)

// Standard attribute keys used in logs and metrics.
const (
	CorrelationIDKey = "correlation_id"
	MessageIDKey     = "message_id"
	OperationKey     = "operation"
	DurationKey      = "duration_ms"
	ErrorKey         = "error"
)

// WithCorrelationID adds a correlation ID to the context.
// If id is empty, a new UUID is generated.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	return context.WithValue(ctx, correlationIDCtxKey, id)
}

// CorrelationIDFromContext extracts the correlation ID from context.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDCtxKey).(string); ok {
		return id
	}
	return ""
}

// WithMessageID tags the context with the inbound message being processed.
func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, messageIDCtxKey, id)
}

// MessageIDFromContext extracts the inbound message ID from context.
func MessageIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(messageIDCtxKey).(string); ok {
		return id
	}
	return ""
}

// NewPipelineContext creates a context for one pipeline run: a fresh
// correlation ID tied to the inbound message.
func NewPipelineContext(ctx context.Context, messageID string) context.Context {
	ctx = WithCorrelationID(ctx, "")
	if messageID != "" {
		ctx = WithMessageID(ctx, messageID)
	}
	return ctx
}

package middleware

import (
	"context"

	"github.com/msenthi7/medical-chatbot/internal/observability"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	return observability.RequestID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return observability.WithRequestID(ctx, requestID)
}

// GetSessionIDFromContext retrieves the chat session ID from context
func GetSessionIDFromContext(ctx context.Context) string {
	return observability.SessionID(ctx)
}

// WithSessionID adds a chat session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return observability.WithSessionID(ctx, sessionID)
}

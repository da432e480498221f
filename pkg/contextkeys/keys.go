// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/gatehouse/pkg/contextkeys"
//	ctx = context.WithValue(ctx, contextkeys.StateKey, state)
//	state := ctx.Value(contextkeys.StateKey).(*session.State)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// StateKey contains *session.State
	// Set by: middleware.SessionState (pkg/middleware/state.go)
	// Required by: both SSO coordinators, all session-aware handlers
	// Type: *session.State
	StateKey Key = "request_state"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID (pkg/middleware/requestid.go)
	// Used by: Logger, hand-off audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request ID from the context, or "" if unset
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

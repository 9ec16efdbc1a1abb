package api

import (
	"context"
	"time"

	"ioclens/core"
)

// contextKey is a private type to prevent context key collisions across packages.
type contextKey string

const (
	// ContextKeyUser stores the authenticated user (*core.User)
	ContextKeyUser contextKey = "user"

	// ContextKeySession stores the validated session claims (*Claims)
	ContextKeySession contextKey = "session"

	// ContextKeyRequestID stores the unique request identifier (string)
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyTraceStart stores the request start time (time.Time)
	ContextKeyTraceStart contextKey = "trace_start"
)

// GetUser extracts the authenticated user from the context.
func GetUser(ctx context.Context) (*core.User, bool) {
	user, ok := ctx.Value(ContextKeyUser).(*core.User)
	return user, ok && user != nil
}

// WithUser creates a new context carrying the authenticated user.
func WithUser(ctx context.Context, user *core.User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, user)
}

// GetSession extracts the session claims from the context.
// Requests served with auth disabled carry a user but no session.
func GetSession(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ContextKeySession).(*Claims)
	return claims, ok && claims != nil
}

// WithSession creates a new context carrying the session claims.
func WithSession(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ContextKeySession, claims)
}

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// GetRequestIDOrDefault extracts the request ID from the context or returns "unknown".
func GetRequestIDOrDefault(ctx context.Context) string {
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		return requestID
	}
	return "unknown"
}

// WithRequestID creates a new context with the request ID value.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetTraceStart extracts the request start time from the context.
func GetTraceStart(ctx context.Context) (time.Time, bool) {
	start, ok := ctx.Value(ContextKeyTraceStart).(time.Time)
	return start, ok
}

// WithTraceStart creates a new context with the request start time.
func WithTraceStart(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyTraceStart, start)
}

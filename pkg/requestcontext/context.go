// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the values; services and stores read them. The database
// transaction manager reads UserGUID and AppRole to apply the row-level
// security session before any statement runs.
//
//	guid := requestcontext.UserGUID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithUser(ctx, guid, "industry_user")
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "bciers/pkg/domain"
)

type (
	userGUIDKey    struct{}
	appRoleKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientIPKey    struct{}
)

// Exported context keys for tests that need context.WithValue.
var (
	ContextKeyUserGUID    = userGUIDKey{}
	ContextKeyAppRole     = appRoleKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
	ContextKeyClientIP    = clientIPKey{}
)

// UserGUID returns the authenticated user's GUID, or the zero value.
func UserGUID(ctx context.Context) id.UserGUID {
	if guid, ok := ctx.Value(ContextKeyUserGUID).(id.UserGUID); ok {
		return guid
	}
	return id.UserGUID{}
}

// WithUserGUID injects the authenticated user's GUID.
func WithUserGUID(ctx context.Context, guid id.UserGUID) context.Context {
	return context.WithValue(ctx, ContextKeyUserGUID, guid)
}

// AppRole returns the resolved application role ("" when unknown).
func AppRole(ctx context.Context) string {
	if role, ok := ctx.Value(ContextKeyAppRole).(string); ok {
		return role
	}
	return ""
}

// WithAppRole injects the resolved application role.
func WithAppRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeyAppRole, role)
}

// WithUser injects both GUID and role, the state after user resolution.
func WithUser(ctx context.Context, guid id.UserGUID, role string) context.Context {
	return WithAppRole(WithUserGUID(ctx, guid), role)
}

// RequestID retrieves the request correlation ID.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// ClientIP retrieves the caller's IP address.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects the caller's IP address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

// Now retrieves the request-scoped time.
// Falls back to time.Now() outside HTTP requests (tasks, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed time, used by middleware, scheduled tasks and tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	orgID := requestcontext.OrgID(ctx)
//	actorID := requestcontext.ActorID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithOrgID(ctx, orgID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActorID(ctx, actorID)
package requestcontext

import (
	"context"
	"slices"
	"time"

	id "credentia/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	orgIDKey       struct{}
	actorIDKey     struct{}
	rolesKey       struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	deviceKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyOrgID       = orgIDKey{}
	ContextKeyActorID     = actorIDKey{}
	ContextKeyRoles       = rolesKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyDevice      = deviceKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Tenant context (org, actor, roles)
// -----------------------------------------------------------------------------

// OrgID retrieves the tenant organization ID from the context.
// Returns the zero value (nil UUID) if not set.
func OrgID(ctx context.Context) id.OrgID {
	if orgID, ok := ctx.Value(ContextKeyOrgID).(id.OrgID); ok {
		return orgID
	}
	return id.OrgID{}
}

// WithOrgID injects a tenant organization ID into the context.
func WithOrgID(ctx context.Context, orgID id.OrgID) context.Context {
	return context.WithValue(ctx, ContextKeyOrgID, orgID)
}

// ActorID retrieves the acting user ID from the context.
// Returns the zero value (nil UUID) if not set.
func ActorID(ctx context.Context) id.ActorID {
	if actorID, ok := ctx.Value(ContextKeyActorID).(id.ActorID); ok {
		return actorID
	}
	return id.ActorID{}
}

// WithActorID injects an actor ID into the context.
func WithActorID(ctx context.Context, actorID id.ActorID) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actorID)
}

// Roles retrieves the actor's role set from the context. Identity is validated
// upstream; roles are carried through for audit enrichment only.
func Roles(ctx context.Context) []string {
	if roles, ok := ctx.Value(ContextKeyRoles).([]string); ok {
		return roles
	}
	return nil
}

// HasRole reports whether the actor carries the given role.
func HasRole(ctx context.Context, role string) bool {
	return slices.Contains(Roles(ctx), role)
}

// WithRoles injects the actor's roles into the context.
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, ContextKeyRoles, roles)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent, device)
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the raw User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// Device retrieves the parsed device label (browser/OS) from the context.
// Used to enrich emitted domain events.
func Device(ctx context.Context) string {
	if device, ok := ctx.Value(ContextKeyDevice).(string); ok {
		return device
	}
	return ""
}

// WithClientMetadata injects client IP, User-Agent and device label into a
// context. Useful for service unit tests that don't run the full HTTP
// middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent, device string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	ctx = context.WithValue(ctx, ContextKeyDevice, device)
	return ctx
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - External expiry sweeps that need consistent time within a batch
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "credentia/pkg/domain"
	pstrings "credentia/pkg/platform/strings"
	"credentia/pkg/requestcontext"
)

// TokenValidator validates an access token issued upstream and returns the
// tenant claims it carries. Identity is pre-validated by the issuer; this
// layer only verifies the signature and extracts context.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TenantClaims, error)
}

// TenantClaims is the tenant context every authenticated request carries.
type TenantClaims struct {
	OrgID   string
	ActorID string
	Roles   []string
}

// RequireAuth rejects requests without a valid bearer token and injects the
// resolved org/actor/roles into the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w)
				return
			}

			orgID, err := id.ParseOrgID(claims.OrgID)
			if err != nil {
				unauthorized(w)
				return
			}
			actorID, err := id.ParseActorID(claims.ActorID)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx = requestcontext.WithOrgID(ctx, orgID)
			ctx = requestcontext.WithActorID(ctx, actorID)
			// Upstream issuers are sloppy about role lists; normalize once here.
			ctx = requestcontext.WithRoles(ctx, pstrings.DedupeAndTrimLower(claims.Roles))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}

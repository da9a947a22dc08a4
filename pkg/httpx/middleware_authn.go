package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/covenantlabs/azor-auth/pkg/jwtx"
	"github.com/covenantlabs/azor-auth/pkg/slogx"
)

// TokenValidator checks a raw session token and returns its claims.
// Implementations may do more than signature checks, e.g. confirm the
// subject account is still active.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (jwtx.Claims, error)
}

// AuthnMiddleware verifies a session token taken from the Authorization
// header first, then from the auth cookie. A raw JWT in the Authorization
// header, without the Bearer prefix, is tolerated for legacy callers.
func AuthnMiddleware(validator TokenValidator, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := pickToken(r, cookieName)
			if raw == "" {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(ctx, raw)
			if err != nil {
				log.Warn("token validation failed", "err", err)
				writeBearerError(w, "token validation failed")
				return
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func pickToken(r *http.Request, cookieName string) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
			return strings.TrimSpace(authz[7:])
		}
		if !strings.Contains(authz, " ") && len(authz) > 20 {
			return strings.TrimSpace(authz)
		}
	}

	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}

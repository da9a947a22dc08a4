package httpx

import "net/http"

// RequireMFA rejects sessions that have not completed a second factor.
// Bootstrap sessions fail here, which keeps them boxed into the MFA
// enrollment endpoints.
func RequireMFA() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !claims.MFASatisfied {
				WriteError(w, http.StatusForbidden, "mfa_required", "This session has not completed multi-factor authentication.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole the caller must hold one of the listed roles.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		want[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusForbidden, "forbidden", "Insufficient role.")
				return
			}
			if _, allowed := want[claims.Role]; !allowed {
				WriteError(w, http.StatusForbidden, "forbidden", "Insufficient role.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
	"github.com/covenantlabs/azor-auth/pkg/httpx"
	"github.com/covenantlabs/azor-auth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cookies      CookieConfig
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	// RequireMFA mirrors the login policy: when on, bootstrap sessions
	// exist and every non-enrollment route must reject them.
	requireMFA bool

	// NewLimiter builds a rate limiter for one route's config. Defaults
	// to in-process token buckets; the app swaps in Redis-backed ones
	// when configured.
	NewLimiter func(httpx.RateLimitConfig) httpx.Limiter

	store                store.Store
	SessionService       *service.SessionService
	MFAService           *service.MFAService
	UserService          *service.UserService
	PasswordResetService *service.PasswordResetService
	AuditService         *service.AuditService
}

func NewRouter(
	cookies CookieConfig,
	buildVersion string,
	requireMFA bool,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		cookies:      cookies,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		requireMFA:   requireMFA,
		NewLimiter: func(c httpx.RateLimitConfig) httpx.Limiter {
			return httpx.NewLocalLimiter(c)
		},
		store:  st,
		logger: logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerUsers()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware
// chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) rateLimit(config httpx.RateLimitConfig, extractor httpx.KeyExtractor) httpx.Middleware {
	return httpx.RateLimitMiddleware(config, r.NewLimiter(config), extractor)
}

// authn validates through the session service so a disabled account is
// rejected even while its token is unexpired.
func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.SessionService, r.cookies.name())
}

// fullSession rejects bootstrap sessions when the MFA policy is on. With
// the policy off every session carries mfa=false, so the guard would lock
// everyone out.
func (r *Router) fullSession(h http.Handler) http.Handler {
	if !r.requireMFA {
		return h
	}
	return httpx.RequireMFA()(h)
}

func (r *Router) registerAuth() {
	tokenHandler := &TokenHandler{
		SessionService: r.SessionService,
		AuditService:   r.AuditService,
		Cookies:        r.cookies,
	}

	// Brute force protection keys on IP plus the attempted username.
	r.Mux.Handle("POST /v1/auth/token",
		httpx.Chain(tokenHandler,
			r.rateLimit(httpx.StrictLimit,
				httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.FormFieldKeyExtractor("username"))),
		),
	)

	logoutHandler := &LogoutHandler{AuditService: r.AuditService, Cookies: r.cookies}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logoutHandler,
			r.authn(),
			r.rateLimit(httpx.LenientLimit, httpx.UserIDKeyExtractor),
		),
	)

	resetHandler := &PasswordResetHandler{ResetService: r.PasswordResetService}
	r.Mux.Handle("POST /v1/auth/password-reset/request",
		httpx.Chain(http.HandlerFunc(resetHandler.HandleRequest),
			r.rateLimit(httpx.StrictLimit, httpx.IPKeyExtractor),
		),
	)
	r.Mux.Handle("POST /v1/auth/password-reset/redeem",
		httpx.Chain(http.HandlerFunc(resetHandler.HandleRedeem),
			r.rateLimit(httpx.StrictLimit, httpx.IPKeyExtractor),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	// Setup and verify accept bootstrap sessions so fresh accounts can
	// enroll.
	r.Mux.Handle("POST /v1/mfa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetup),
			r.authn(),
			r.rateLimit(httpx.ModerateLimit, httpx.UserIDKeyExtractor),
		),
	)
	r.Mux.Handle("POST /v1/mfa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			r.authn(),
			r.rateLimit(httpx.StrictLimit, httpx.UserIDKeyExtractor),
		),
	)

	r.Mux.Handle("POST /v1/mfa/reset",
		httpx.Chain(r.fullSession(http.HandlerFunc(h.HandleReset)),
			r.authn(),
			r.rateLimit(httpx.ModerateLimit, httpx.UserIDKeyExtractor),
		),
	)
	r.Mux.Handle("GET /v1/mfa/recovery-codes",
		httpx.Chain(r.fullSession(http.HandlerFunc(h.HandleRecoveryCodes)),
			r.authn(),
			r.rateLimit(httpx.LenientLimit, httpx.UserIDKeyExtractor),
		),
	)
}

func (r *Router) registerUsers() {
	h := &MeHandler{UserService: r.UserService}

	r.Mux.Handle("GET /v1/users/me",
		httpx.Chain(r.fullSession(h),
			r.authn(),
			r.rateLimit(httpx.LenientLimit, httpx.UserIDKeyExtractor),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminUsersHandler{UserService: r.UserService, MFAService: r.MFAService}

	admin := func(handler http.Handler) http.Handler {
		return httpx.Chain(
			r.fullSession(httpx.RequireRole(string(domain.RoleAdmin))(handler)),
			r.authn(),
			r.rateLimit(httpx.ModerateLimit, httpx.UserIDKeyExtractor),
		)
	}

	r.Mux.Handle("POST /v1/users", admin(http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("GET /v1/users", admin(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("GET /v1/users/{id}", admin(http.HandlerFunc(h.HandleGet)))
	r.Mux.Handle("PATCH /v1/users/{id}", admin(http.HandlerFunc(h.HandleUpdate)))
	r.Mux.Handle("DELETE /v1/users/{id}", admin(http.HandlerFunc(h.HandleDelete)))
	r.Mux.Handle("POST /v1/users/{id}/mfa/reset", admin(http.HandlerFunc(h.HandleMFAReset)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			r.rateLimit(httpx.LenientLimit, httpx.IPKeyExtractor),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			r.rateLimit(httpx.LenientLimit, httpx.IPKeyExtractor),
		),
	)
}

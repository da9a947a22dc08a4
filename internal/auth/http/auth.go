package http

import (
	"net/http"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/pkg/httpx"
	"github.com/covenantlabs/azor-auth/pkg/slogx"
)

// TokenHandler handles POST /v1/auth/token. The request is form-encoded
// (username, password, optional mfa_code) so password managers and plain
// HTML forms can post to it directly.
type TokenHandler struct {
	SessionService *service.SessionService
	AuditService   *service.AuditService
	Cookies        CookieConfig
}

// TokenResponse is the success payload. The token is returned in the body
// and mirrored into the session cookie.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Role        string `json:"role"`
	MFAEnroll   bool   `json:"mfa_enroll,omitempty"`
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	mfaCode := r.PostFormValue("mfa_code")
	if username == "" || password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	result, err := h.SessionService.Login(ctx, username, password, mfaCode)
	if err != nil {
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	switch result.Outcome {
	case domain.LoginSuccess, domain.LoginBootstrapIssued:
		h.Cookies.set(w, result.Session.Token, result.Session.ExpiresIn)
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, TokenResponse{
			AccessToken: result.Session.Token,
			TokenType:   result.Session.TokenType,
			ExpiresIn:   int64(result.Session.ExpiresIn.Seconds()),
			Role:        string(result.User.Role),
			MFAEnroll:   result.MFAEnroll,
		})
	case domain.LoginMFACodeRequired:
		httpx.WriteError(w, http.StatusConflict, "mfa_code_required", "An MFA code is required to complete login")
	case domain.LoginMFACodeInvalid:
		httpx.WriteError(w, http.StatusUnauthorized, "mfa_code_invalid", "Invalid MFA code")
	case domain.LoginMFAEnrollmentRequired:
		httpx.WriteError(w, http.StatusForbidden, "mfa_enrollment_required", "MFA enrollment is required before login")
	default:
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
	}
}

// LogoutHandler handles POST /v1/auth/logout. Sessions are stateless, so
// logout just clears the cookie and leaves an audit trail.
type LogoutHandler struct {
	AuditService *service.AuditService
	Cookies      CookieConfig
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if userID := httpx.UserIDFromContext(ctx); userID != "" {
		h.AuditService.Record(ctx, domain.AuditLogout, userID, userID, "")
	}
	h.Cookies.clear(w)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/pkg/httpx"
	"github.com/covenantlabs/azor-auth/pkg/slogx"
)

// PasswordResetHandler handles the two-step reset flow: request a token,
// then redeem it for a new password.
type PasswordResetHandler struct {
	ResetService *service.PasswordResetService
}

// HandleRequest handles POST /v1/auth/password-reset/request. The response
// is identical whether or not the email maps to an account.
func (h *PasswordResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.ResetService.Request(ctx, req.Email); err != nil {
		log.Error("password reset request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}

// HandleRedeem handles POST /v1/auth/password-reset/redeem.
func (h *PasswordResetHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token and new_password are required")
		return
	}

	if err := h.ResetService.Redeem(ctx, req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrResetInvalidOrExpired):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_or_expired", "Reset token is invalid or expired")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest, "weak_password", "Password does not meet the minimum length")
		default:
			log.Error("password reset redeem failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}

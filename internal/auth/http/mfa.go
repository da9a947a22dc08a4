package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/pkg/httpx"
	"github.com/covenantlabs/azor-auth/pkg/slogx"
)

// MFAHandler handles TOTP enrollment and management. Setup and Verify are
// reachable with a bootstrap session so newly created accounts can enroll;
// everything else requires a fully authenticated session.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleSetup handles POST /v1/mfa/setup. Calling it again before Verify
// returns the same pending secret so an interrupted enrollment can resume.
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserIDFromContext(ctx)

	enrollment, err := h.MFAService.Setup(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrMFAAlreadyEnabled) {
			httpx.WriteError(w, http.StatusConflict, "mfa_already_enabled", "MFA is already enabled for this user")
			return
		}
		log.Error("mfa setup failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	// recovery_codes is always empty here; codes are generated once the
	// first code verifies and are returned from HandleVerify.
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, struct {
		domain.MFAEnrollment
		RecoveryCodes []string `json:"recovery_codes"`
	}{MFAEnrollment: enrollment, RecoveryCodes: []string{}})
}

// HandleVerify handles POST /v1/mfa/verify. A correct code enables MFA and
// returns the recovery codes, which are shown exactly once.
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserIDFromContext(ctx)

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	codes, err := h.MFAService.Verify(ctx, userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "Invalid TOTP code")
		case errors.Is(err, service.ErrMFANotEnrolled):
			httpx.WriteError(w, http.StatusBadRequest, "mfa_not_enrolled", "Call setup before verify")
		case errors.Is(err, service.ErrMFAAlreadyEnabled):
			httpx.WriteError(w, http.StatusConflict, "mfa_already_enabled", "MFA is already enabled for this user")
		default:
			log.Error("mfa verify failed", "user_id", userID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string][]string{"recovery_codes": codes})
}

// HandleReset handles POST /v1/mfa/reset (self-service). The caller must
// hold a fully authenticated session; after the reset the next login goes
// through enrollment again.
func (h *MFAHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserIDFromContext(ctx)

	if err := h.MFAService.Reset(ctx, userID, userID); err != nil {
		log.Error("mfa reset failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "mfa_reset"})
}

// HandleRecoveryCodes handles GET /v1/mfa/recovery-codes. Only the count
// is returned; plaintext codes are never retrievable after Verify.
func (h *MFAHandler) HandleRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserIDFromContext(ctx)

	remaining, err := h.MFAService.RemainingRecoveryCodes(ctx, userID)
	if err != nil {
		log.Error("recovery code count failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"remaining": remaining})
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
	"github.com/covenantlabs/azor-auth/pkg/httpx"
	"github.com/covenantlabs/azor-auth/pkg/slogx"
)

// UserResponse is the wire shape for a user. The password hash never
// leaves the server.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// MeHandler handles GET /v1/users/me.
type MeHandler struct {
	UserService *service.UserService
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserIDFromContext(ctx)

	user, err := h.UserService.Get(ctx, userID)
	if err != nil {
		log.Error("failed to load user", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// AdminUsersHandler exposes the admin user lifecycle. The router mounts it
// behind the admin role guard.
type AdminUsersHandler struct {
	UserService *service.UserService
	MFAService  *service.MFAService
}

// HandleCreate handles POST /v1/users. An omitted password provisions the
// account without one; the user sets it through the reset flow.
func (h *AdminUsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	actorID := httpx.UserIDFromContext(ctx)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleAgent
	}

	user, err := h.UserService.Create(ctx, actorID, req.Email, req.Password, role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteError(w, http.StatusConflict, "email_taken", "A user with this email already exists")
		case errors.Is(err, service.ErrInvalidEmail):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_email", "Invalid email address")
		case errors.Is(err, service.ErrInvalidRole):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_role", "Unknown role")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest, "weak_password", "Password does not meet the minimum length")
		default:
			log.Error("user create failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleList handles GET /v1/users.
func (h *AdminUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users, err := h.UserService.List(ctx)
	if err != nil {
		log.Error("user list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /v1/users/{id}.
func (h *AdminUsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	user, err := h.UserService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such user")
			return
		}
		log.Error("user get failed", "user_id", id, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleUpdate handles PATCH /v1/users/{id}. Fields are independent; only
// the ones present in the body are applied.
func (h *AdminUsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	actorID := httpx.UserIDFromContext(ctx)
	id := r.PathValue("id")

	var req struct {
		Role     *string `json:"role"`
		IsActive *bool   `json:"is_active"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	apply := func(err error) bool {
		switch {
		case err == nil:
			return true
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such user")
		case errors.Is(err, service.ErrInvalidRole):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_role", "Unknown role")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest, "weak_password", "Password does not meet the minimum length")
		default:
			log.Error("user update failed", "user_id", id, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		}
		return false
	}

	if req.Role != nil && !apply(h.UserService.SetRole(ctx, actorID, id, domain.Role(*req.Role))) {
		return
	}
	if req.IsActive != nil && !apply(h.UserService.SetActive(ctx, actorID, id, *req.IsActive)) {
		return
	}
	if req.Password != nil && !apply(h.UserService.SetPassword(ctx, actorID, id, *req.Password)) {
		return
	}

	user, err := h.UserService.Get(ctx, id)
	if !apply(err) {
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleDelete handles DELETE /v1/users/{id}.
func (h *AdminUsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	actorID := httpx.UserIDFromContext(ctx)
	id := r.PathValue("id")

	if err := h.UserService.Delete(ctx, actorID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such user")
			return
		}
		log.Error("user delete failed", "user_id", id, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleMFAReset handles POST /v1/users/{id}/mfa/reset. Clears the target
// user's MFA credential and recovery codes so they can re-enroll.
func (h *AdminUsersHandler) HandleMFAReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	actorID := httpx.UserIDFromContext(ctx)
	id := r.PathValue("id")

	if _, err := h.UserService.Get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such user")
			return
		}
		log.Error("user get failed", "user_id", id, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	if err := h.MFAService.Reset(ctx, actorID, id); err != nil {
		log.Error("admin mfa reset failed", "user_id", id, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "mfa_reset"})
}

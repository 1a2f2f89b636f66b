package http

import (
	"errors"
	"net/http"

	"github.com/plumtrips/backend/internal/api/domain"
	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/pkg/httpx"
	"github.com/plumtrips/backend/pkg/slogx"
)

// ProfileHandler covers the /me maintenance endpoints: profile fields,
// saved co-travellers and password changes.
type ProfileHandler struct {
	Accounts *service.AccountService
	Cookies  CookieConfig
}

type profileUpdateRequest struct {
	FullName string         `json:"full_name"`
	Phone    string         `json:"phone"`
	Profile  domain.Profile `json:"profile"`
}

type coTravellersRequest struct {
	CoTravellers []domain.CoTraveller `json:"co_travellers"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Accounts.Get(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		h.writeAccountError(w, r, err, "failed to load profile")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req profileUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Accounts.UpdateProfile(ctx, httpx.UserIDFromCtx(ctx), req.FullName, req.Phone, req.Profile)
	if err != nil {
		h.writeAccountError(w, r, err, "failed to update profile")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *ProfileHandler) HandleCoTravellers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req coTravellersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Accounts.UpdateCoTravellers(ctx, httpx.UserIDFromCtx(ctx), req.CoTravellers)
	if err != nil {
		h.writeAccountError(w, r, err, "failed to update co-travellers")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Accounts.ChangePassword(ctx, httpx.UserIDFromCtx(ctx), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "Current password is incorrect")
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "weak_password", "Password must be at least 8 characters")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusUnauthorized, "unauthorized", "Account no longer exists")
		default:
			log.Error("failed to change password", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to change password")
		}
		return
	}

	// Every session was revoked, including the caller's; they must log in
	// again with the new password.
	clearSessionCookies(w, h.Cookies)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

func (h *ProfileHandler) writeAccountError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, service.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Account no longer exists")
		return
	}
	slogx.FromContext(r.Context()).Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, "server_error", "Failed to update account")
}

package http

import (
	"errors"
	"net/http"

	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/pkg/httpx"
	"github.com/plumtrips/backend/pkg/slogx"
)

type RegisterHandler struct {
	Accounts *service.AccountService
	Sessions *service.SessionService
	Cookies  CookieConfig
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Accounts.Register(ctx, req.Email, req.Password, req.FullName, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			writeError(w, http.StatusBadRequest, "invalid_email", "A valid email address is required")
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "weak_password", "Password must be at least 8 characters")
		case errors.Is(err, service.ErrEmailTaken):
			writeError(w, http.StatusConflict, "email_taken", "An account with this email already exists")
		default:
			log.Error("failed to register user", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to create account")
		}
		return
	}

	token, sess, err := h.Sessions.Open(ctx, user, "password", r.UserAgent(), clientIP(r))
	if err != nil {
		log.Error("failed to open session", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to open session")
		return
	}

	setSessionCookies(w, h.Cookies, token, sess.ExpiresAt)
	httpx.WriteJSON(w, http.StatusCreated, authResponse{
		Token: token,
		User:  toUserResponse(user),
	})
}

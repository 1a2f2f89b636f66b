package http

import (
	"errors"
	"net/http"

	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/pkg/httpx"
	"github.com/plumtrips/backend/pkg/slogx"
)

type LoginHandler struct {
	Accounts *service.AccountService
	Sessions *service.SessionService
	Cookies  CookieConfig
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	user, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "Incorrect email or password")
			return
		}
		log.Error("failed to log in user", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to log in")
		return
	}

	token, sess, err := h.Sessions.Open(ctx, user, "password", r.UserAgent(), clientIP(r))
	if err != nil {
		log.Error("failed to open session", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to open session")
		return
	}

	setSessionCookies(w, h.Cookies, token, sess.ExpiresAt)
	httpx.WriteJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  toUserResponse(user),
	})
}

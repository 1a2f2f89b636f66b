package http

import (
	"net/http"

	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/pkg/httpx"
)

// LogoutHandler revokes the caller's session when one is attached and
// clears every session cookie either way, so logout works even with an
// expired or garbage token.
type LogoutHandler struct {
	Sessions *service.SessionService
	Cookies  CookieConfig
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if userID := httpx.UserIDFromCtx(ctx); userID != "" {
		if sid := httpx.SessionIDFromCtx(ctx); sid != "" {
			// Best effort; the cookies are cleared regardless.
			_ = h.Sessions.Revoke(ctx, userID, sid)
		}
	}

	clearSessionCookies(w, h.Cookies)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

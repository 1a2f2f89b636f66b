package http

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/pkg/cryptox"
	"github.com/plumtrips/backend/pkg/slogx"
)

const oauthStateCookie = "pt_oauth_state"

// GoogleHandler drives the browser half of the Google login: Start parks a
// random state value in a short-lived cookie and bounces to the consent
// screen; Callback checks the state, exchanges the code and lands the user
// back on the frontend with a session cookie set.
type GoogleHandler struct {
	Google   *service.GoogleService
	Sessions *service.SessionService
	Cookies  CookieConfig

	// FrontendBase is where the browser ends up after the callback.
	FrontendBase string
}

func (h *GoogleHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	state, err := cryptox.GenerateToken(16)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to generate oauth state", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to start login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.Google.AuthURL(state), http.StatusFound)
}

func (h *GoogleHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// The state cookie must exist and match the returned state.
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		h.fail(w, r, "state_mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		h.fail(w, r, "access_denied")
		return
	}

	user, err := h.Google.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, service.ErrOAuthExchange) || errors.Is(err, service.ErrOAuthUserinfo) {
			h.fail(w, r, "oauth_failed")
			return
		}
		log.Error("google login failed", "err", err)
		h.fail(w, r, "server_error")
		return
	}

	token, sess, err := h.Sessions.Open(ctx, user, "google", r.UserAgent(), clientIP(r))
	if err != nil {
		log.Error("failed to open session", "err", err)
		h.fail(w, r, "server_error")
		return
	}

	setSessionCookies(w, h.Cookies, token, sess.ExpiresAt)
	http.Redirect(w, r, h.FrontendBase+"/", http.StatusFound)
}

// fail redirects back to the frontend login page with a reason code the UI
// can show; the browser flow never renders JSON.
func (h *GoogleHandler) fail(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.FrontendBase+"/login?error="+url.QueryEscape(reason), http.StatusFound)
}

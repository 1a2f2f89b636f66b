package http

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/plumtrips/backend/pkg/jwtx"
)

// BridgeHandler hosts the tiny cookie-bridge pages. The frontend on a
// sibling domain opens /bridge with a freshly issued token so the session
// cookie also exists on this domain, and /logout-bridge to drop it again.
type BridgeHandler struct {
	Verifier *jwtx.HS256Verifier
	Cookies  CookieConfig
}

var bridgePage = template.Must(template.New("bridge").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Signing you in</title></head>
<body>
<p>Signing you in&hellip;</p>
<script>window.location.replace({{.Ret}});</script>
<noscript><a href="{{.Ret}}">Continue</a></noscript>
</body>
</html>
`))

var logoutBridgePage = template.Must(template.New("logout-bridge").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Signed out</title></head>
<body>
<p>You have been signed out.</p>
<script>window.location.replace({{.Ret}});</script>
<noscript><a href="{{.Ret}}">Continue</a></noscript>
</body>
</html>
`))

// safeReturnPath keeps the bridge from being an open redirect: only
// same-site absolute paths are honoured.
func safeReturnPath(ret string) string {
	if ret == "" || !strings.HasPrefix(ret, "/") || strings.HasPrefix(ret, "//") {
		return "/"
	}
	return ret
}

func (h *BridgeHandler) HandleBridge(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	ret := safeReturnPath(r.URL.Query().Get("ret"))

	claims, err := h.Verifier.Verify(token)
	if err != nil || claims.ExpiresAt == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid session token")
		return
	}

	setSessionCookies(w, h.Cookies, token, claims.ExpiresAt.Time)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = bridgePage.Execute(w, map[string]string{"Ret": ret})
}

func (h *BridgeHandler) HandleLogoutBridge(w http.ResponseWriter, r *http.Request) {
	ret := safeReturnPath(r.URL.Query().Get("ret"))

	clearSessionCookies(w, h.Cookies)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = logoutBridgePage.Execute(w, map[string]string{"Ret": ret})
}

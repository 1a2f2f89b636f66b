package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/plumtrips/backend/pkg/jwtx"
	"github.com/plumtrips/backend/pkg/slogx"
)

// Session cookie names. SessionCookie is the canonical name; the legacy
// names are still read (and written) so sessions issued by the previous
// stack keep working during the migration window.
const SessionCookie = "pt_session"

// LegacySessionCookies are older cookie names checked after SessionCookie.
var LegacySessionCookies = []string{"token", "authToken", "pt_auth"}

// SessionTokenFromRequest extracts the raw session token from a request.
// Precedence: canonical cookie, legacy cookies, Authorization bearer,
// X-Auth-Token header. Returns "" when no token is present.
func SessionTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	for _, name := range LegacySessionCookies {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	}
	return r.Header.Get("X-Auth-Token")
}

// SessionMiddleware requires a valid session token on the request. On
// success the user ID, session ID and claims are injected into the request
// context. onSeen, if non-nil, is invoked after successful verification so
// callers can record session activity.
func SessionMiddleware(v *jwtx.HS256Verifier, onSeen func(ctx context.Context, c jwtx.SessionClaims)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := SessionTokenFromRequest(r)
			if raw == "" {
				writeAuthError(w, "missing session token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				writeAuthError(w, "session verification failed")
				log.Warn("session verify failed", "err", err)
				return
			}

			if onSeen != nil {
				onSeen(ctx, claims)
			}

			ctx = contextWithSession(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession populates the request context when a valid session token
// is present but lets unauthenticated requests through untouched.
func OptionalSession(v *jwtx.HS256Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := SessionTokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := contextWithSession(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithSession(ctx context.Context, c jwtx.SessionClaims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeySessionID, c.SID)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

func writeAuthError(w http.ResponseWriter, desc string) {
	NoCache(w)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "unauthorized",
		"error_description": desc,
	})
}

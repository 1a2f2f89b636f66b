// Package http exposes the public surface of the backend: password and
// Google logins, the SSO ticket exchange, profile and session maintenance,
// and the flight proxy endpoints.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/plumtrips/backend/internal/api/domain"
	"github.com/plumtrips/backend/pkg/httpx"
)

const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// ErrorResponse is the uniform error envelope. Error carries a stable
// machine-checkable reason; ErrorDescription is for humans.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func writeError(w http.ResponseWriter, status int, reason, description string) {
	httpx.WriteJSON(w, status, ErrorResponse{
		Error:            reason,
		ErrorDescription: description,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer io.Copy(io.Discard, body)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}

// UserResponse is the sanitised user shape returned by every endpoint that
// hands back an account. The password hash never leaves the service.
type UserResponse struct {
	ID            string               `json:"id"`
	Email         string               `json:"email"`
	FullName      string               `json:"full_name"`
	Phone         string               `json:"phone,omitempty"`
	EmailVerified bool                 `json:"email_verified"`
	Roles         []string             `json:"roles"`
	Profile       domain.Profile       `json:"profile"`
	CoTravellers  []domain.CoTraveller `json:"co_travellers"`
	CreatedAt     time.Time            `json:"created_at"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		Phone:         u.Phone,
		EmailVerified: u.EmailVerifiedAt != nil,
		Roles:         u.Roles,
		Profile:       u.Profile,
		CoTravellers:  u.CoTravellers,
		CreatedAt:     u.CreatedAt,
	}
}

// SessionResponse describes one login session in /me/sessions listings.
type SessionResponse struct {
	ID         string    `json:"id"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IP         string    `json:"ip,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Revoked    bool      `json:"revoked"`
	Current    bool      `json:"current"`
}

func toSessionResponse(s domain.Session, currentID string) SessionResponse {
	return SessionResponse{
		ID:         s.ID,
		UserAgent:  s.UserAgent,
		IP:         s.IP,
		CreatedAt:  s.CreatedAt,
		LastSeenAt: s.LastSeenAt,
		ExpiresAt:  s.ExpiresAt,
		Revoked:    s.RevokedAt != nil,
		Current:    s.ID == currentID,
	}
}

// CookieConfig says how session cookies are written. Domain is empty for
// host-only cookies; Secure is off only in local development.
type CookieConfig struct {
	Domain string
	Secure bool
}

// setSessionCookies writes the canonical session cookie plus the legacy
// names older frontends still read.
func setSessionCookies(w http.ResponseWriter, cfg CookieConfig, token string, expires time.Time) {
	names := append([]string{httpx.SessionCookie}, httpx.LegacySessionCookies...)
	for _, name := range names {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    token,
			Path:     "/",
			Domain:   cfg.Domain,
			Expires:  expires,
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func clearSessionCookies(w http.ResponseWriter, cfg CookieConfig) {
	names := append([]string{httpx.SessionCookie}, httpx.LegacySessionCookies...)
	for _, name := range names {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   cfg.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func clientIP(r *http.Request) string {
	return httpx.IPKeyExtractor(r)
}

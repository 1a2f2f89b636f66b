package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Sessions are deliberately long-lived (cookie-backed),
// SSO tickets deliberately short-lived (they only survive one redirect hop).
const (
	// DefaultSessionTTL is the lifetime of a persistent login session.
	DefaultSessionTTL = 30 * 24 * time.Hour

	// DefaultTicketTTL is the lifetime of a cross-domain SSO ticket.
	DefaultTicketTTL = 2 * time.Minute
)

// SessionClaims is the single canonical session token shape. Every login
// path (password, Google OAuth, SSO redemption) issues exactly this; any
// other claim shape is rejected at the boundary.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// Name is the display name, if the user set one.
	Name string `json:"name,omitempty"`

	// SID references the persisted session record, when one exists.
	SID string `json:"sid,omitempty"`
}

// NewSessionClaims builds minimally-correct session claims.
func NewSessionClaims(subject, email, name, sid, issuer string, ttl time.Duration, now time.Time) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Name:  name,
		SID:   sid,
	}
}

// TicketClaims is the SSO ticket payload. Everything the redeemer needs
// rides in registered claims: sub (user), aud (relying party), iss (our
// public base URL), jti (the persisted ticket id), exp.
type TicketClaims struct {
	jwt.RegisteredClaims
}

// NewTicketClaims builds claims for a single-use SSO ticket.
func NewTicketClaims(subject, audience, issuer, jti string, ttl time.Duration, now time.Time) TicketClaims {
	return TicketClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}
}

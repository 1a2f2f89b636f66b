package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Signer signs session tokens with a single shared symmetric key.
type HS256Signer struct {
	key []byte
}

// NewSignerHS256 creates a session signer from the shared secret.
func NewSignerHS256(secret []byte) (*HS256Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty HS256 secret")
	}
	return &HS256Signer{key: secret}, nil
}

// Sign turns session claims into a signed compact JWT.
func (s *HS256Signer) Sign(claims SessionClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.key)
}

// HS256Verifier validates session tokens signed with the shared key.
type HS256Verifier struct {
	key    []byte
	issuer string
}

// NewVerifierHS256 creates a session verifier. An empty issuer disables
// the issuer check.
func NewVerifierHS256(secret []byte, issuer string) (*HS256Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty HS256 secret")
	}
	return &HS256Verifier{key: secret, issuer: issuer}, nil
}

// Verify validates the token string and returns its session claims.
func (v *HS256Verifier) Verify(tokenStr string) (SessionClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return SessionClaims{}, mapParseError(err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return SessionClaims{}, ErrMalformed
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return SessionClaims{}, ErrIssuer
	}
	if claims.Subject == "" {
		return SessionClaims{}, fmt.Errorf("%w: missing subject", ErrMalformed)
	}

	return *claims, nil
}

// mapParseError collapses jwt/v5 parse failures onto our sentinel errors so
// callers can branch with errors.Is without importing the jwt package.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Signer signs SSO tickets with a fixed RSA private key. There is no
// kid/key-set machinery here: the ticket protocol uses exactly one keypair,
// published out of band to the relying party.
type RS256Signer struct {
	key *rsa.PrivateKey
}

// NewSignerRS256 loads an RSA private key from PEM bytes. Handles both
// PKCS1 and PKCS8 because otherwise we will be chasing a bug for longer
// than we would be willing to admit.
func NewSignerRS256(pemKey []byte) (*RS256Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA key")
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		key = k
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
		}
		rk, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: not an RSA private key")
		}
		key = rk
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}

	return &RS256Signer{key: key}, nil
}

// Sign turns ticket claims into a signed compact JWT.
func (s *RS256Signer) Sign(claims TicketClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return t.SignedString(s.key)
}

// RS256Verifier validates SSO tickets against the fixed public key plus the
// expected issuer and audience.
type RS256Verifier struct {
	pub    *rsa.PublicKey
	issuer string
	aud    string
}

// NewVerifierRS256 loads an RSA public key from PEM bytes (PKIX "PUBLIC KEY"
// or PKCS1 "RSA PUBLIC KEY").
func NewVerifierRS256(pemKey []byte, issuer, audience string) (*RS256Verifier, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA public key")
	}

	var pub *rsa.PublicKey
	switch block.Type {
	case "PUBLIC KEY":
		p, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKIX: %w", err)
		}
		rp, ok := p.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("jwtx: not an RSA public key")
		}
		pub = rp
	case "RSA PUBLIC KEY":
		p, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		pub = p
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}

	return &RS256Verifier{pub: pub, issuer: issuer, aud: audience}, nil
}

// Verify validates the ticket string and returns its claims. Signature,
// issuer and audience are all enforced here so callers can treat any error
// as "unauthorized" without a store round trip.
func (v *RS256Verifier) Verify(tokenStr string) (TicketClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &TicketClaims{}, func(t *jwt.Token) (any, error) {
		return v.pub, nil
	})
	if err != nil {
		return TicketClaims{}, mapParseError(err)
	}

	claims, ok := token.Claims.(*TicketClaims)
	if !ok || !token.Valid {
		return TicketClaims{}, ErrMalformed
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return TicketClaims{}, ErrIssuer
	}
	if v.aud != "" && !slices.Contains(claims.Audience, v.aud) {
		return TicketClaims{}, ErrAudience
	}

	return *claims, nil
}

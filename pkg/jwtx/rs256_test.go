package jwtx

import (
	"testing"
	"time"

	"github.com/plumtrips/backend/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newTestKeypair(t *testing.T) (privPEM, pubPEM []byte) {
	t.Helper()
	priv, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)
	pub, err := cryptox.RSAPublicKeyPEM(priv)
	require.NoError(t, err)
	return priv, pub
}

func TestRS256TicketRoundTrip(t *testing.T) {
	t.Parallel()

	priv, pub := newTestKeypair(t)
	signer, err := NewSignerRS256(priv)
	require.NoError(t, err)
	verifier, err := NewVerifierRS256(pub, "https://api.plumtrips.test", "helloviza")
	require.NoError(t, err)

	claims := NewTicketClaims("user-9", "helloviza", "https://api.plumtrips.test", "jti-1", DefaultTicketTTL, time.Now().UTC())
	ticket, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(ticket)
	require.NoError(t, err)
	require.Equal(t, "user-9", got.Subject)
	require.Equal(t, "jti-1", got.ID)
}

func TestRS256RejectsWrongKey(t *testing.T) {
	t.Parallel()

	privA, _ := newTestKeypair(t)
	_, pubB := newTestKeypair(t)

	signer, err := NewSignerRS256(privA)
	require.NoError(t, err)
	verifier, err := NewVerifierRS256(pubB, "", "")
	require.NoError(t, err)

	ticket, err := signer.Sign(NewTicketClaims("u", "helloviza", "iss", "jti", time.Minute, time.Now()))
	require.NoError(t, err)

	_, err = verifier.Verify(ticket)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestRS256RejectsAudienceAndIssuerMismatch(t *testing.T) {
	t.Parallel()

	priv, pub := newTestKeypair(t)
	signer, err := NewSignerRS256(priv)
	require.NoError(t, err)

	ticket, err := signer.Sign(NewTicketClaims("u", "helloviza", "https://api.plumtrips.test", "jti", time.Minute, time.Now()))
	require.NoError(t, err)

	badAud, err := NewVerifierRS256(pub, "https://api.plumtrips.test", "someoneelse")
	require.NoError(t, err)
	_, err = badAud.Verify(ticket)
	require.ErrorIs(t, err, ErrAudience)

	badIss, err := NewVerifierRS256(pub, "https://rogue.example.com", "helloviza")
	require.NoError(t, err)
	_, err = badIss.Verify(ticket)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestRS256RejectsExpiredTicket(t *testing.T) {
	t.Parallel()

	priv, pub := newTestKeypair(t)
	signer, err := NewSignerRS256(priv)
	require.NoError(t, err)
	verifier, err := NewVerifierRS256(pub, "", "")
	require.NoError(t, err)

	ticket, err := signer.Sign(NewTicketClaims("u", "helloviza", "iss", "jti", time.Minute, time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	_, err = verifier.Verify(ticket)
	require.ErrorIs(t, err, ErrExpired)
}

package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plumtrips/backend/internal/api/domain"
	"github.com/plumtrips/backend/pkg/jwtx"
)

const (
	testIssuer        = "https://api.test.local"
	testSessionSecret = "test-session-secret-test-session"
)

func newTestSigner(t *testing.T) *jwtx.HS256Signer {
	t.Helper()

	signer, err := jwtx.NewSignerHS256([]byte(testSessionSecret))
	require.NoError(t, err)
	return signer
}

func newTestVerifier(t *testing.T) *jwtx.HS256Verifier {
	t.Helper()

	verifier, err := jwtx.NewVerifierHS256([]byte(testSessionSecret), testIssuer)
	require.NoError(t, err)
	return verifier
}

func profileFixture() domain.Profile {
	return domain.Profile{
		Title:       "Ms",
		DateOfBirth: "1990-04-12",
		Gender:      "F",
		Nationality: "AU",
		AddressLine: "1 Example St",
		City:        "Sydney",
		CountryCode: "AU",
		PostalCode:  "2000",
	}
}

func coTravellerFixture() []domain.CoTraveller {
	return []domain.CoTraveller{{
		Title:       "Mr",
		FirstName:   "Jamie",
		LastName:    "Lee",
		DateOfBirth: "2012-09-01",
		Gender:      "M",
	}}
}

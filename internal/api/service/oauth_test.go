package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T, email, name string, verified bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fake-access-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fake-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		verifiedStr := "false"
		if verified {
			verifiedStr = "true"
		}
		w.Write([]byte(`{"email":"` + email + `","verified_email":` + verifiedStr + `,"name":"` + name + `"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogleService(t *testing.T, srv *httptest.Server) *GoogleService {
	t.Helper()

	return &GoogleService{
		Store: newTestStore(t),
		OAuth: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "https://api.test.local/api/oauth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  srv.URL + "/auth",
				TokenURL: srv.URL + "/token",
			},
		},
		UserinfoURL: srv.URL + "/userinfo",
	}
}

func TestGoogleExchangeCreatesAccountOnFirstLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv := newFakeGoogle(t, "gina@example.com", "Gina Park", true)
	svc := newTestGoogleService(t, srv)

	user, err := svc.Exchange(ctx, "good-code")
	require.NoError(t, err)
	require.Equal(t, "gina@example.com", user.Email)
	require.Equal(t, "Gina Park", user.FullName)
	require.NotNil(t, user.EmailVerifiedAt)
	require.NotEmpty(t, user.PasswordHash)

	// A second login lands on the same account.
	again, err := svc.Exchange(ctx, "good-code")
	require.NoError(t, err)
	require.Equal(t, user.ID, again.ID)
}

func TestGoogleExchangeMatchesExistingAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv := newFakeGoogle(t, "henry@example.com", "Henry", true)
	svc := newTestGoogleService(t, srv)

	accounts := &AccountService{Store: svc.Store}
	existing, err := accounts.Register(ctx, "henry@example.com", "a decent password", "Henry", "")
	require.NoError(t, err)
	require.Nil(t, existing.EmailVerifiedAt)

	user, err := svc.Exchange(ctx, "good-code")
	require.NoError(t, err)
	require.Equal(t, existing.ID, user.ID)

	// Google vouched for the address, so it is now marked verified.
	got, err := accounts.Get(ctx, existing.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EmailVerifiedAt)

	// The original password still works; oauth never rewrites it.
	_, err = accounts.Login(ctx, "henry@example.com", "a decent password")
	require.NoError(t, err)
}

func TestGoogleExchangeBadCode(t *testing.T) {
	t.Parallel()

	srv := newFakeGoogle(t, "x@example.com", "X", true)
	svc := newTestGoogleService(t, srv)

	_, err := svc.Exchange(context.Background(), "bad-code")
	require.ErrorIs(t, err, ErrOAuthExchange)
}

func TestGoogleAuthURLCarriesState(t *testing.T) {
	t.Parallel()

	srv := newFakeGoogle(t, "x@example.com", "X", true)
	svc := newTestGoogleService(t, srv)

	u := svc.AuthURL("opaque-state")
	require.Contains(t, u, "state=opaque-state")
	require.Contains(t, u, "client_id=client-id")
}

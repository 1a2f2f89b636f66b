package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/plumtrips/backend/internal/api/metrics"
	"github.com/plumtrips/backend/internal/api/service"
	"github.com/plumtrips/backend/internal/api/store/drivers/sqlite"
	"github.com/plumtrips/backend/internal/tbo"
	"github.com/plumtrips/backend/pkg/cryptox"
	"github.com/plumtrips/backend/pkg/httpx"
	"github.com/plumtrips/backend/pkg/jwtx"
)

const (
	testIssuer    = "https://api.test.local"
	testAudience  = "helloviza"
	testRedeemKey = "test-redeem-key"
)

type testEnv struct {
	router *Router
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithTBO(t, nil)
}

func newTestEnvWithTBO(t *testing.T, tboClient *tbo.Client) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	secret := []byte("router-test-secret-router-test-s")
	signer, err := jwtx.NewSignerHS256(secret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(secret, testIssuer)
	require.NoError(t, err)

	privPEM, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)
	pubPEM, err := cryptox.RSAPublicKeyPEM(privPEM)
	require.NoError(t, err)
	rsSigner, err := jwtx.NewSignerRS256(privPEM)
	require.NoError(t, err)
	rsVerifier, err := jwtx.NewVerifierRS256(pubPEM, testIssuer, testAudience)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	accounts := &service.AccountService{Store: st}
	sessions := &service.SessionService{
		Store:   st,
		Signer:  signer,
		Issuer:  testIssuer,
		Metrics: m,
	}
	sso := &service.SSOService{
		Store:            st,
		Signer:           rsSigner,
		Verifier:         rsVerifier,
		Issuer:           testIssuer,
		Audience:         testAudience,
		RelyingPartyBase: "https://helloviza.test",
		RedeemKey:        testRedeemKey,
		Metrics:          m,
	}

	logger := slog.New(slog.DiscardHandler)
	router := NewRouter(verifier, "test", st, registry, CookieConfig{}, "https://plumtrips.test", logger)
	router.AccountService = accounts
	router.SessionService = sessions
	router.SSOService = sso
	router.TBOClient = tboClient
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{router: router, server: srv}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any, mutate func(*http.Request)) (*http.Response, map[string]any) {
	t.Helper()

	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func (e *testEnv) register(t *testing.T, email string) (string, map[string]any) {
	t.Helper()

	resp, body := e.postJSON(t, "/api/auth/register", map[string]string{
		"email":     email,
		"password":  "a decent password",
		"full_name": "Test User",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	token, ok := body["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token, body
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterSetsSessionCookies(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, body := env.postJSON(t, "/api/auth/register", map[string]string{
		"email":     "cookie@example.com",
		"password":  "a decent password",
		"full_name": "Cookie Tester",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	user := body["user"].(map[string]any)
	require.Equal(t, "cookie@example.com", user["email"])

	canonical := cookieByName(resp, httpx.SessionCookie)
	require.NotNil(t, canonical)
	require.True(t, canonical.HttpOnly)
	require.Equal(t, body["token"], canonical.Value)

	for _, legacy := range httpx.LegacySessionCookies {
		c := cookieByName(resp, legacy)
		require.NotNil(t, c, "legacy cookie %s missing", legacy)
		require.Equal(t, body["token"], c.Value)
	}
}

func TestLoginAndMe(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "me@example.com")

	resp, body := env.postJSON(t, "/api/auth/login", map[string]string{
		"email":    "me@example.com",
		"password": "a decent password",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)

	t.Run("bearer token works", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/auth/me", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)

		meResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer meResp.Body.Close()
		require.Equal(t, http.StatusOK, meResp.StatusCode)

		var me map[string]any
		require.NoError(t, json.NewDecoder(meResp.Body).Decode(&me))
		require.Equal(t, "me@example.com", me["email"])
	})

	t.Run("cookie works", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/auth/me", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: httpx.SessionCookie, Value: token})

		meResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer meResp.Body.Close()
		require.Equal(t, http.StatusOK, meResp.StatusCode)
	})

	t.Run("no credentials is 401", func(t *testing.T) {
		meResp, err := http.Get(env.server.URL + "/api/auth/me")
		require.NoError(t, err)
		defer meResp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, meResp.StatusCode)
	})
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "reject@example.com")

	resp, body := env.postJSON(t, "/api/auth/login", map[string]string{
		"email":    "reject@example.com",
		"password": "wrong password",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_credentials", body["error"])
}

func TestLogoutClearsCookies(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token, _ := env.register(t, "logout@example.com")

	resp, _ := env.postJSON(t, "/api/auth/logout", map[string]string{}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	c := cookieByName(resp, httpx.SessionCookie)
	require.NotNil(t, c)
	require.Empty(t, c.Value)
	require.Negative(t, c.MaxAge)
}

func TestSSOTicketFlowOverHTTP(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token, _ := env.register(t, "ssohttp@example.com")

	resp, body := env.postJSON(t, "/api/v1/sso/ticket", map[string]string{
		"return_path": "/visa",
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	redirect := body["redirect_url"].(string)
	require.True(t, strings.HasPrefix(redirect, "https://helloviza.test/sso/consume?ticket="))

	ticket := redirect[strings.Index(redirect, "ticket=")+len("ticket=") : strings.Index(redirect, "&ret=")]

	t.Run("redeem without key is 401", func(t *testing.T) {
		resp, body := env.postJSON(t, "/api/v1/sso/redeem", map[string]string{"ticket": ticket}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "unauthorized", body["error"])
	})

	t.Run("redeem succeeds once", func(t *testing.T) {
		resp, body := env.postJSON(t, "/api/v1/sso/redeem", map[string]string{"ticket": ticket}, func(r *http.Request) {
			r.Header.Set(RedeemKeyHeader, testRedeemKey)
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, body["token"])

		user := body["user"].(map[string]any)
		require.Equal(t, "ssohttp@example.com", user["email"])
	})

	t.Run("second redeem reports ticket_used", func(t *testing.T) {
		resp, body := env.postJSON(t, "/api/v1/sso/redeem", map[string]string{"ticket": ticket}, func(r *http.Request) {
			r.Header.Set(RedeemKeyHeader, testRedeemKey)
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "ticket_used", body["error"])
	})
}

func TestSessionsEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token, _ := env.register(t, "sessions@example.com")

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/me/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string][]SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body["sessions"], 1)
	require.True(t, body["sessions"][0].Current)
}

func TestProfileUpdateOverHTTP(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token, _ := env.register(t, "profilehttp@example.com")

	req, err := http.NewRequest(http.MethodPut, env.server.URL+"/api/v1/me/profile",
		strings.NewReader(`{"full_name":"New Name","phone":"+61 1","profile":{"city":"Perth"}}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	require.Equal(t, "New Name", user.FullName)
	require.Equal(t, "Perth", user.Profile.City)

	getReq, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/me/profile", nil)
	require.NoError(t, err)
	getReq.Header.Set("Authorization", "Bearer "+token)

	getResp, err := http.DefaultClient.Do(getReq)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var fetched UserResponse
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&fetched))
	require.Equal(t, "New Name", fetched.FullName)
}

func TestMockFlightSearch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/v1/flights/search?origin=del&destination=bom")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string][]mockFlight
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["flights"])
	for _, f := range body["flights"] {
		require.Equal(t, "DEL", f.Origin)
		require.Equal(t, "BOM", f.Destination)
	}
}

func TestTBOProxySearch(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/Authenticate"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"Response": map[string]any{"TokenId": "tok-1", "Error": map[string]any{"ErrorCode": 0}},
			})
		case strings.HasSuffix(r.URL.Path, "/Search"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"Response": map[string]any{"TraceId": "trace-9", "Results": []any{}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	env := newTestEnvWithTBO(t, tbo.NewClient(tbo.Config{
		BaseURL:  upstream.URL + "/air",
		AuthURL:  upstream.URL + "/shared",
		ClientID: "c", UserName: "u", Password: "p", EndUserIP: "127.0.0.1",
	}))

	token, _ := env.register(t, "tbo@example.com")

	resp, body := env.postJSON(t, "/api/v1/tbo/flights/search", map[string]any{
		"origin":      "DEL",
		"destination": "BOM",
		"depart_date": "2026-09-10",
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "trace-9", body["trace_id"])

	t.Run("validation error is 400", func(t *testing.T) {
		resp, body := env.postJSON(t, "/api/v1/tbo/flights/search", map[string]any{
			"origin": "DEL",
		}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "invalid_request", body["error"])
	})
}

func TestBridgeSetsCookies(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token, _ := env.register(t, "bridge@example.com")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(env.server.URL + "/bridge?token=" + token + "&ret=/account")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	c := cookieByName(resp, httpx.SessionCookie)
	require.NotNil(t, c)
	require.Equal(t, token, c.Value)

	t.Run("garbage token is 401", func(t *testing.T) {
		resp, err := client.Get(env.server.URL + "/bridge?token=garbage")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout bridge clears cookies", func(t *testing.T) {
		resp, err := client.Get(env.server.URL + "/logout-bridge")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		c := cookieByName(resp, httpx.SessionCookie)
		require.NotNil(t, c)
		require.Empty(t, c.Value)
	})
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	for _, path := range []string{"/livez", "/readyz", "/metrics"} {
		resp, err := http.Get(env.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

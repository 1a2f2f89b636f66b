package tbo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestClient wires a client against an httptest server that serves both
// the auth and air endpoints.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:   srv.URL + "/air",
		AuthURL:   srv.URL + "/shared",
		ClientID:  "ApiIntegration",
		UserName:  "testuser",
		Password:  "testpass",
		EndUserIP: "127.0.0.1",
	})
	return c, srv
}

func authOK(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"Response": map[string]any{"TokenId": "tok-123"},
	})
}

func searchOK(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"Response": map[string]any{
			"TraceId":        "trace-1",
			"ResponseStatus": 1,
			"Results":        []any{},
		},
	})
}

func TestAuthenticateTokenPlacement(t *testing.T) {
	t.Run("nested under Response", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"Response": map[string]any{"TokenId": "nested-token"},
			})
		}))

		token, err := c.Authenticate(context.Background())
		require.NoError(t, err)
		require.Equal(t, "nested-token", token)
	})

	t.Run("top level", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"TokenId": "flat-token"})
		}))

		token, err := c.Authenticate(context.Background())
		require.NoError(t, err)
		require.Equal(t, "flat-token", token)
	})

	t.Run("nested token wins over top level", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"TokenId":  "flat-token",
				"Response": map[string]any{"TokenId": "nested-token"},
			})
		}))

		token, err := c.Authenticate(context.Background())
		require.NoError(t, err)
		require.Equal(t, "nested-token", token)
	})
}

func TestAuthenticateRejected(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Response": map[string]any{
				"Error": map[string]any{"ErrorCode": 1, "ErrorMessage": "invalid credentials"},
			},
		})
	}))

	_, err := c.Authenticate(context.Background())
	require.ErrorIs(t, err, ErrUpstreamAuth)
}

func TestEnsureTokenCaches(t *testing.T) {
	var authCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/shared/Authenticate", func(w http.ResponseWriter, r *http.Request) {
		authCalls.Add(1)
		authOK(w)
	})
	mux.HandleFunc("/air/Search", func(w http.ResponseWriter, r *http.Request) {
		searchOK(w)
	})

	c, _ := newTestClient(t, mux)

	params := SearchParams{
		Origin: "DEL", Destination: "BOM",
		DepartDate: "2026-10-01", Adults: 1,
	}

	_, err := c.Search(context.Background(), params)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), params)
	require.NoError(t, err)

	require.Equal(t, int32(1), authCalls.Load(), "second search should reuse cached token")
}

func TestEnsureTokenRefreshesWhenStale(t *testing.T) {
	var authCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/shared/Authenticate", func(w http.ResponseWriter, r *http.Request) {
		authCalls.Add(1)
		authOK(w)
	})

	c, _ := newTestClient(t, mux)

	now := time.Now()
	c.now = func() time.Time { return now }

	_, err := c.EnsureToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), authCalls.Load())

	// Still fresh just inside the TTL
	now = now.Add(DefaultTokenTTL - time.Second)
	_, err = c.EnsureToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), authCalls.Load())

	// Stale once the TTL has elapsed
	now = now.Add(2 * time.Second)
	_, err = c.EnsureToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), authCalls.Load())
}

func TestSearchOneWayWire(t *testing.T) {
	var captured []byte

	mux := http.NewServeMux()
	mux.HandleFunc("/shared/Authenticate", func(w http.ResponseWriter, r *http.Request) { authOK(w) })
	mux.HandleFunc("/air/Search", func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		searchOK(w)
	})

	c, _ := newTestClient(t, mux)

	res, err := c.Search(context.Background(), SearchParams{
		Origin: "DEL", Destination: "BOM",
		DepartDate: "2026-10-01", Adults: 2, Children: 1,
	})
	require.NoError(t, err)
	require.Equal(t, "trace-1", res.TraceID)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(captured, &wire))

	require.Equal(t, "1", wire["JourneyType"])
	require.Equal(t, "tok-123", wire["TokenId"])

	// Counts and stop flags are string-encoded on the wire
	require.Equal(t, "2", wire["AdultCount"])
	require.Equal(t, "1", wire["ChildCount"])
	require.Equal(t, "0", wire["InfantCount"])
	require.Equal(t, "false", wire["DirectFlight"])
	require.Equal(t, "false", wire["OneStopFlight"])

	// No preference means null, not an empty array
	require.Contains(t, string(captured), `"PreferredAirlines":null`)

	segments := wire["Segments"].([]any)
	require.Len(t, segments, 1)
	seg := segments[0].(map[string]any)
	require.Equal(t, "DEL", seg["Origin"])
	require.Equal(t, "BOM", seg["Destination"])
	require.Equal(t, "1", seg["FlightCabinClass"])
	require.Equal(t, "2026-10-01T00:00:00", seg["PreferredDepartureTime"])
}

func TestSearchRoundTripWire(t *testing.T) {
	var captured []byte

	mux := http.NewServeMux()
	mux.HandleFunc("/shared/Authenticate", func(w http.ResponseWriter, r *http.Request) { authOK(w) })
	mux.HandleFunc("/air/Search", func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		searchOK(w)
	})

	c, _ := newTestClient(t, mux)

	_, err := c.Search(context.Background(), SearchParams{
		Origin: "DEL", Destination: "BOM",
		DepartDate: "2026-10-01", ReturnDate: "2026-10-08",
		Adults:            1,
		PreferredAirlines: []string{"AI"},
		DirectFlight:      true,
	})
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(captured, &wire))

	require.Equal(t, "2", wire["JourneyType"])
	require.Equal(t, "true", wire["DirectFlight"])
	require.Equal(t, []any{"AI"}, wire["PreferredAirlines"])

	segments := wire["Segments"].([]any)
	require.Len(t, segments, 2)

	outbound := segments[0].(map[string]any)
	inbound := segments[1].(map[string]any)
	require.Equal(t, "DEL", outbound["Origin"])
	require.Equal(t, "BOM", inbound["Origin"])
	require.Equal(t, "DEL", inbound["Destination"])
	require.Equal(t, "2026-10-08T00:00:00", inbound["PreferredDepartureTime"])
}

func TestSearchValidation(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused", AuthURL: "http://unused"})

	cases := []struct {
		name   string
		params SearchParams
	}{
		{"missing origin", SearchParams{Destination: "BOM", DepartDate: "2026-10-01", Adults: 1}},
		{"no adults", SearchParams{Origin: "DEL", Destination: "BOM", DepartDate: "2026-10-01"}},
		{"bad date", SearchParams{Origin: "DEL", Destination: "BOM", DepartDate: "01/10/2026", Adults: 1}},
		{"return before depart", SearchParams{Origin: "DEL", Destination: "BOM", DepartDate: "2026-10-08", ReturnDate: "2026-10-01", Adults: 1}},
		{"too many infants", SearchParams{Origin: "DEL", Destination: "BOM", DepartDate: "2026-10-01", Adults: 1, Infants: 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Search(context.Background(), tc.params)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestErrorPrecedence(t *testing.T) {
	t.Run("nested error wins", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/shared/Authenticate", func(w http.ResponseWriter, r *http.Request) { authOK(w) })
		mux.HandleFunc("/air/Search", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"Error": map[string]any{"ErrorCode": 99, "ErrorMessage": "outer"},
				"Response": map[string]any{
					"Error": map[string]any{"ErrorCode": 5, "ErrorMessage": "no seats"},
				},
			})
		})

		c, _ := newTestClient(t, mux)

		_, err := c.Search(context.Background(), SearchParams{
			Origin: "DEL", Destination: "BOM", DepartDate: "2026-10-01", Adults: 1,
		})

		var be *BusinessError
		require.ErrorAs(t, err, &be)
		require.Equal(t, 5, be.Code)
		require.Equal(t, "no seats", be.Message)
	})

	t.Run("falls back to top level error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/shared/Authenticate", func(w http.ResponseWriter, r *http.Request) { authOK(w) })
		mux.HandleFunc("/air/Search", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"Error": map[string]any{"ErrorCode": 99, "ErrorMessage": "outer"},
			})
		})

		c, _ := newTestClient(t, mux)

		_, err := c.Search(context.Background(), SearchParams{
			Origin: "DEL", Destination: "BOM", DepartDate: "2026-10-01", Adults: 1,
		})

		var be *BusinessError
		require.ErrorAs(t, err, &be)
		require.Equal(t, 99, be.Code)
	})

	t.Run("error code zero is success", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/shared/Authenticate", func(w http.ResponseWriter, r *http.Request) { authOK(w) })
		mux.HandleFunc("/air/Search", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"Response": map[string]any{
					"TraceId": "trace-ok",
					"Error":   map[string]any{"ErrorCode": 0, "ErrorMessage": ""},
				},
			})
		})

		c, _ := newTestClient(t, mux)

		res, err := c.Search(context.Background(), SearchParams{
			Origin: "DEL", Destination: "BOM", DepartDate: "2026-10-01", Adults: 1,
		})
		require.NoError(t, err)
		require.Equal(t, "trace-ok", res.TraceID)
	})
}

func TestTransportError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/shared/Authenticate", func(w http.ResponseWriter, r *http.Request) { authOK(w) })
	mux.HandleFunc("/air/Search", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	c, _ := newTestClient(t, mux)

	_, err := c.Search(context.Background(), SearchParams{
		Origin: "DEL", Destination: "BOM", DepartDate: "2026-10-01", Adults: 1,
	})

	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusBadGateway, te.StatusCode)
}

func TestFareRuleAndQuoteRequireHandles(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused", AuthURL: "http://unused"})

	_, err := c.FareRule(context.Background(), "", "idx")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = c.GetFareQuote(context.Background(), "trace", "")
	require.ErrorAs(t, err, &verr)
}

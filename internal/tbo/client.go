// Package tbo is a typed client for the TBO flight supplier API. It owns
// upstream authentication (with a shared cached token), the search/quote/book
// call surface, and the booking orchestration the handlers build on.
package tbo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/plumtrips/backend/internal/api/metrics"
)

const (
	// DefaultTokenTTL is how long an upstream token is reused before a fresh
	// Authenticate call. The supplier expires tokens after roughly a day; the
	// short TTL keeps us well clear of stale-token errors.
	DefaultTokenTTL = 25 * time.Minute

	defaultTimeout = 90 * time.Second
)

type Config struct {
	// BaseURL is the flight API root, e.g. ".../BookingEngineService_Air/AirService.svc/rest".
	BaseURL string

	// AuthURL is the shared services root used for Authenticate.
	AuthURL string

	ClientID string
	UserName string
	Password string

	// EndUserIP is forwarded on every call; the supplier requires it.
	EndUserIP string

	// TokenTTL overrides DefaultTokenTTL when positive.
	TokenTTL time.Duration

	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

type Client struct {
	baseURL   string
	authURL   string
	clientID  string
	userName  string
	password  string
	endUserIP string
	tokenTTL  time.Duration

	httpClient *http.Client
	metrics    *metrics.Metrics

	// now is swappable for cache expiry tests.
	now func() time.Time

	token atomic.Pointer[cachedToken]
}

type cachedToken struct {
	value     string
	fetchedAt time.Time
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		authURL:    strings.TrimSuffix(cfg.AuthURL, "/"),
		clientID:   cfg.ClientID,
		userName:   cfg.UserName,
		password:   cfg.Password,
		endUserIP:  cfg.EndUserIP,
		tokenTTL:   ttl,
		httpClient: httpClient,
		metrics:    m,
		now:        time.Now,
	}
}

// doPost sends a JSON POST and decodes the body. Network failures and
// non-2xx statuses become TransportErrors.
func (c *Client) doPost(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("tbo: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("tbo: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

// extractError applies the supplier's error precedence: the error nested in
// the Response object wins over the top-level one. ErrorCode 0 means no
// error regardless of placement.
func extractError(inner, outer *APIError) error {
	if inner != nil && inner.ErrorCode != 0 {
		return &BusinessError{Code: inner.ErrorCode, Message: inner.ErrorMessage}
	}
	if outer != nil && outer.ErrorCode != 0 {
		return &BusinessError{Code: outer.ErrorCode, Message: outer.ErrorMessage}
	}
	return nil
}

// record tracks the per-operation outcome counter.
func (c *Client) record(op string, err error) {
	c.metrics.TBORequests.WithLabelValues(op, outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUpstreamAuth):
		return "auth_error"
	default:
		var be *BusinessError
		if errors.As(err, &be) {
			return "business_error"
		}
		var te *TransportError
		if errors.As(err, &te) {
			return "transport_error"
		}
		return "error"
	}
}

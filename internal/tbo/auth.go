package tbo

import (
	"context"

	"github.com/plumtrips/backend/pkg/slogx"
)

// EnsureToken returns a supplier token, reusing the cached one while it is
// younger than the configured TTL. Concurrent callers may race to refresh a
// stale token; the redundant Authenticate calls are harmless and the last
// writer wins the cache slot.
func (c *Client) EnsureToken(ctx context.Context) (string, error) {
	if tok := c.token.Load(); tok != nil && c.now().Sub(tok.fetchedAt) < c.tokenTTL {
		c.metrics.TokenCacheHits.Inc()
		return tok.value, nil
	}
	c.metrics.TokenCacheMisses.Inc()

	value, err := c.Authenticate(ctx)
	if err != nil {
		return "", err
	}

	c.token.Store(&cachedToken{value: value, fetchedAt: c.now()})
	return value, nil
}

// Authenticate performs a fresh credential exchange with the supplier and
// returns the TokenId. It does not touch the cache.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	log := slogx.FromContext(ctx)

	var env authEnvelope
	err := c.doPost(ctx, c.authURL+"/Authenticate", authRequest{
		ClientId:  c.clientID,
		UserName:  c.userName,
		Password:  c.password,
		EndUserIp: c.endUserIP,
	}, &env)
	c.record("authenticate", err)
	if err != nil {
		return "", err
	}

	// The token has been seen both nested under Response and at the top level.
	token := env.TokenId
	var nestedErr *APIError
	if env.Response != nil {
		nestedErr = env.Response.Error
		if env.Response.TokenId != "" {
			token = env.Response.TokenId
		}
	}

	if token == "" {
		if bizErr := extractError(nestedErr, env.Error); bizErr != nil {
			log.Warn("tbo authenticate rejected", "err", bizErr)
		}
		return "", ErrUpstreamAuth
	}

	return token, nil
}

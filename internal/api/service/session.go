package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/plumtrips/backend/internal/api/domain"
	"github.com/plumtrips/backend/internal/api/metrics"
	"github.com/plumtrips/backend/internal/api/store"
	"github.com/plumtrips/backend/pkg/idx"
	"github.com/plumtrips/backend/pkg/jwtx"
	"github.com/plumtrips/backend/pkg/slogx"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to a different user")
)

// SessionService opens, tracks and revokes browser sessions. Each session is
// persisted so it can be listed and revoked independently of the JWT that
// references it.
type SessionService struct {
	Store   store.Store
	Signer  *jwtx.HS256Signer
	Issuer  string
	TTL     time.Duration // DefaultSessionTTL when zero
	Metrics *metrics.Metrics
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return jwtx.DefaultSessionTTL
}

// Open creates a session record for the user and signs the JWT that fronts
// it. method names how the user authenticated (password, google, sso).
func (s *SessionService) Open(
	ctx context.Context,
	user domain.User,
	method string,
	userAgent string,
	ip string,
) (string, domain.Session, error) {
	log := slogx.FromContext(ctx)

	now := time.Now().UTC()
	sess := domain.Session{
		ID:         idx.New().String(),
		UserID:     user.ID,
		UserAgent:  userAgent,
		IP:         ip,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.ttl()),
	}

	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		log.Error("failed to create session", slog.Any("error", err))
		return "", domain.Session{}, err
	}

	claims := jwtx.NewSessionClaims(user.ID, user.Email, user.FullName, sess.ID, s.Issuer, s.ttl(), now)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		log.Error("failed to sign session token", slog.Any("error", err))
		return "", domain.Session{}, err
	}

	if s.Metrics != nil {
		s.Metrics.Logins.WithLabelValues(method).Inc()
	}

	log.Info("session opened",
		slog.String("user_id", user.ID),
		slog.String("session_id", sess.ID),
		slog.String("method", method),
	)

	return token, sess, nil
}

// Touch records activity on a session. Failures are logged, not surfaced;
// last-seen tracking must never break a request.
func (s *SessionService) Touch(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.Store.Sessions().TouchSession(ctx, sessionID, time.Now().UTC()); err != nil {
		slogx.FromContext(ctx).Debug("failed to touch session",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}
}

// List returns the user's sessions, newest first.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListUserSessions(ctx, userID)
}

// Revoke revokes a single session after checking it belongs to the caller.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID string) error {
	log := slogx.FromContext(ctx)

	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	if sess.UserID != userID {
		log.Warn("session revocation attempted by non-owner",
			slog.String("session_id", sessionID),
			slog.String("caller", userID),
		)
		return ErrNotSessionOwner
	}

	if err := s.Store.Sessions().RevokeSession(ctx, sessionID, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Already revoked; treat as success
			return nil
		}
		return err
	}

	log.Info("session revoked", slog.String("session_id", sessionID))
	return nil
}

// RevokeAll revokes every live session the user has.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	return s.Store.Sessions().RevokeAllUserSessions(ctx, userID, time.Now().UTC())
}

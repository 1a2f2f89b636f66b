package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plumtrips/backend/internal/api/domain"
	"github.com/plumtrips/backend/internal/api/metrics"
	"github.com/plumtrips/backend/internal/api/store"
	"github.com/plumtrips/backend/pkg/jwtx"
	"github.com/plumtrips/backend/pkg/slogx"
)

var (
	ErrRedeemUnauthorized = errors.New("missing or invalid sso redeem key")
	ErrAudienceUnknown    = errors.New("audience is not an accepted relying party")
	ErrTicketIssuance     = errors.New("failed to issue sso ticket")
	ErrInvalidTicket      = errors.New("ticket is malformed or has a bad signature")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrTicketUsed         = errors.New("ticket has already been redeemed")
	ErrTicketExpired      = errors.New("ticket has expired")
)

// SSOService issues short-lived single-use tickets that log a user into the
// relying party, and redeems tickets the relying party hands back. Tickets
// are RS256 JWTs persisted by jti so a replay is refused even while the
// signature is still valid.
type SSOService struct {
	Store store.Store

	Signer   *jwtx.RS256Signer
	Verifier *jwtx.RS256Verifier

	Issuer   string
	Audience string

	// RelyingPartyBase is the relying party's public base URL; the consume
	// endpoint lives under it.
	RelyingPartyBase string

	// RedeemKey is the shared secret the relying party presents when
	// exchanging a ticket server-to-server.
	RedeemKey string

	// DefaultReturnPath is used when the caller does not name one; empty
	// falls back to the relying party's root.
	DefaultReturnPath string

	TicketTTL time.Duration // DefaultTicketTTL when zero
	Metrics   *metrics.Metrics
}

func (s *SSOService) ttl() time.Duration {
	if s.TicketTTL > 0 {
		return s.TicketTTL
	}
	return jwtx.DefaultTicketTTL
}

// IssueTicket mints a ticket for the user and returns the relying-party
// redirect URL that carries it. The ticket is persisted before the URL is
// returned; a redirect never references a ticket that was not durably
// recorded. returnPath says where the relying party should land the user
// afterwards; empty means its root.
func (s *SSOService) IssueTicket(ctx context.Context, user domain.User, audience, returnPath string) (string, error) {
	log := slogx.FromContext(ctx)

	// 1. Only the one configured relying party may be targeted
	if audience != s.Audience {
		return "", ErrAudienceUnknown
	}

	// 2. Mint the ticket claims
	now := time.Now().UTC()
	jti := uuid.NewString()
	claims := jwtx.NewTicketClaims(user.ID, audience, s.Issuer, jti, s.ttl(), now)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		log.Error("failed to sign sso ticket", slog.Any("error", err))
		return "", ErrTicketIssuance
	}

	// 3. Persist it so redemption can be single-use
	ticket := domain.SSOTicket{
		JTI:       jti,
		Audience:  audience,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
	}
	if err := s.Store.SSOTickets().CreateTicket(ctx, ticket); err != nil {
		log.Error("failed to persist sso ticket", slog.Any("error", err))
		return "", ErrTicketIssuance
	}

	if s.Metrics != nil {
		s.Metrics.SSOTicketsIssued.Inc()
	}

	log.Info("sso ticket issued",
		slog.String("user_id", user.ID),
		slog.String("jti", jti),
	)

	// 4. Build the consume redirect
	if returnPath == "" {
		returnPath = s.DefaultReturnPath
	}
	if returnPath == "" {
		returnPath = "/"
	}
	redirect := strings.TrimSuffix(s.RelyingPartyBase, "/") +
		"/sso/consume?ticket=" + url.QueryEscape(token) +
		"&ret=" + url.QueryEscape(returnPath)

	return redirect, nil
}

// Redeem exchanges a ticket for the user it was issued to. The caller must
// present the shared redeem key; the ticket must verify, exist, be unused
// and be unexpired, and is burned atomically before the user is returned.
func (s *SSOService) Redeem(ctx context.Context, presentedKey, ticketToken string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Gate on the shared key before touching the ticket
	if s.RedeemKey == "" ||
		subtle.ConstantTimeCompare([]byte(presentedKey), []byte(s.RedeemKey)) != 1 {
		s.reject("unauthorized")
		return domain.User{}, ErrRedeemUnauthorized
	}

	// 2. Verify signature, issuer and audience
	claims, err := s.Verifier.Verify(ticketToken)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			s.reject("expired")
			return domain.User{}, ErrTicketExpired
		}
		s.reject("invalid")
		log.Warn("sso ticket failed verification", slog.Any("error", err))
		return domain.User{}, ErrInvalidTicket
	}

	// 3. The registered claims must name a user and a ticket
	if claims.Subject == "" || claims.ID == "" {
		s.reject("invalid")
		return domain.User{}, ErrInvalidTicket
	}

	// 4. Load the persisted record by jti. The record must agree with the
	// signed claims on audience and user, otherwise it is not this ticket.
	ticket, err := s.Store.SSOTickets().GetTicketByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.reject("not_found")
			return domain.User{}, ErrTicketNotFound
		}
		return domain.User{}, err
	}
	if ticket.UserID != claims.Subject || ticket.Audience != s.Audience {
		s.reject("not_found")
		return domain.User{}, ErrTicketNotFound
	}

	now := time.Now().UTC()
	if ticket.Used() {
		s.reject("used")
		return domain.User{}, ErrTicketUsed
	}
	if ticket.Expired(now) {
		s.reject("expired")
		return domain.User{}, ErrTicketExpired
	}

	// 5. Burn the ticket and load its owner in one transaction. The
	// conditional update loses to a concurrent redeem, which surfaces as
	// ErrAlreadyUsed; a missing owner rolls the burn back so the ticket is
	// not consumed by a failed redemption.
	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.SSOTickets().MarkTicketUsed(ctx, claims.ID, now); err != nil {
			return err
		}
		u, err := tx.Users().GetUserByID(ctx, ticket.UserID)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyUsed):
			s.reject("used")
			return domain.User{}, ErrTicketUsed
		case errors.Is(err, store.ErrNotFound):
			s.reject("not_found")
			return domain.User{}, ErrTicketNotFound
		}
		return domain.User{}, err
	}

	if s.Metrics != nil {
		s.Metrics.SSOTicketsRedeemed.Inc()
	}

	log.Info("sso ticket redeemed",
		slog.String("user_id", user.ID),
		slog.String("jti", claims.ID),
	)

	return user, nil
}

func (s *SSOService) reject(reason string) {
	if s.Metrics != nil {
		s.Metrics.SSOTicketsRejected.WithLabelValues(reason).Inc()
	}
}

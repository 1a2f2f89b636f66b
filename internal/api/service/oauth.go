package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/plumtrips/backend/internal/api/domain"
	"github.com/plumtrips/backend/internal/api/store"
	"github.com/plumtrips/backend/pkg/cryptox"
	"github.com/plumtrips/backend/pkg/idx"
	"github.com/plumtrips/backend/pkg/slogx"
)

var (
	ErrOAuthExchange = errors.New("oauth code exchange failed")
	ErrOAuthUserinfo = errors.New("failed to fetch oauth userinfo")
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleService logs users in via Google OAuth. Accounts are matched by
// email; unknown emails get a fresh account with an unguessable password
// hash so the password login path stays closed for them.
type GoogleService struct {
	Store store.Store

	// OAuth carries the client id, secret, redirect URL and Google's
	// endpoint.
	OAuth *oauth2.Config

	// UserinfoURL overrides the Google userinfo endpoint in tests.
	UserinfoURL string
}

type googleUserinfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// AuthURL returns the Google consent screen URL for the given state.
func (s *GoogleService) AuthURL(state string) string {
	return s.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for the Google profile and returns the
// matching local account, creating one on first login.
func (s *GoogleService) Exchange(ctx context.Context, code string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Trade the code for an access token
	token, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		log.Warn("google code exchange failed", slog.Any("error", err))
		return domain.User{}, ErrOAuthExchange
	}

	// 2. Fetch the profile
	info, err := s.fetchUserinfo(ctx, token)
	if err != nil {
		log.Error("google userinfo fetch failed", slog.Any("error", err))
		return domain.User{}, err
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" {
		return domain.User{}, ErrOAuthUserinfo
	}

	// 3. Match or create the local account
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err == nil {
		if user.EmailVerifiedAt == nil && info.VerifiedEmail {
			if err := s.Store.Users().MarkEmailVerified(ctx, user.ID, time.Now().UTC()); err != nil {
				log.Warn("failed to mark email verified", slog.Any("error", err))
			}
		}
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := cryptox.RandomPasswordHash()
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user = domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(info.Name),
		Roles:        []string{"user"},
		CoTravellers: []domain.CoTraveller{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if info.VerifiedEmail {
		user.EmailVerifiedAt = &now
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		// A concurrent first login may have created it; fall back to the
		// existing row.
		if errors.Is(err, store.ErrAlreadyExists) {
			return s.Store.Users().GetUserByEmail(ctx, email)
		}
		return domain.User{}, err
	}

	log.Info("user created via google oauth",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)

	return user, nil
}

func (s *GoogleService) fetchUserinfo(ctx context.Context, token *oauth2.Token) (googleUserinfo, error) {
	endpoint := s.UserinfoURL
	if endpoint == "" {
		endpoint = googleUserinfoURL
	}

	client := s.OAuth.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return googleUserinfo{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return googleUserinfo{}, fmt.Errorf("%w: %v", ErrOAuthUserinfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return googleUserinfo{}, fmt.Errorf("%w: status %d", ErrOAuthUserinfo, resp.StatusCode)
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserinfo{}, fmt.Errorf("%w: %v", ErrOAuthUserinfo, err)
	}
	return info, nil
}

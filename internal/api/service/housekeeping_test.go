package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/plumtrips/backend/internal/api/domain"
	"github.com/plumtrips/backend/internal/api/store"
	"github.com/plumtrips/backend/pkg/idx"
)

func TestHousekeepingPrunesExpiredRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	accounts := &AccountService{Store: st}
	user, err := accounts.Register(ctx, "hk@example.com", "a decent password", "HK", "")
	require.NoError(t, err)

	now := time.Now().UTC()

	stale := domain.Session{
		ID:         idx.New().String(),
		UserID:     user.ID,
		CreatedAt:  now.Add(-48 * time.Hour),
		LastSeenAt: now.Add(-48 * time.Hour),
		ExpiresAt:  now.Add(-time.Hour),
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, stale))

	live := domain.Session{
		ID:         idx.New().String(),
		UserID:     user.ID,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(time.Hour),
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, live))

	deadTicket := domain.SSOTicket{
		JTI:       "dead-jti",
		Audience:  testAudience,
		UserID:    user.ID,
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, st.SSOTickets().CreateTicket(ctx, deadTicket))

	hk := NewHousekeepingService(st, slog.New(slog.DiscardHandler), 0)
	require.Equal(t, time.Hour, hk.Interval)
	hk.cleanup()

	_, err = st.Sessions().GetSessionByID(ctx, stale.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.Sessions().GetSessionByID(ctx, live.ID)
	require.NoError(t, err)

	_, err = st.SSOTickets().GetTicketByJTI(ctx, "dead-jti")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()

	hk := NewHousekeepingService(newTestStore(t), slog.New(slog.DiscardHandler), time.Minute)
	hk.Start()
	hk.Stop()
}

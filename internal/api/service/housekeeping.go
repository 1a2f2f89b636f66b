package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/plumtrips/backend/internal/api/store"
)

// HousekeepingService periodically prunes expired sessions and spent or
// expired SSO tickets so the tables do not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. A zero interval
// defaults to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background cleanup loop. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
}

// Stop signals the loop to exit and waits for it to finish.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	// Run once at startup, then on every tick.
	s.cleanup()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs each pruning pass independently so one failure does not
// block the others.
func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()

	if err := s.Store.Sessions().DeleteExpiredSessions(ctx, now); err != nil {
		s.Logger.Error("failed to prune expired sessions", slog.Any("error", err))
	}

	if err := s.Store.SSOTickets().DeleteExpiredTickets(ctx, now); err != nil {
		s.Logger.Error("failed to prune expired sso tickets", slog.Any("error", err))
	}
}

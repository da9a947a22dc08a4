package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/store"
)

// HousekeepingService periodically prunes expired password reset tokens
// and old audit events so neither table grows without bound.
type HousekeepingService struct {
	Store          store.Store
	Logger         *slog.Logger
	Interval       time.Duration
	AuditRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour; a non-positive retention defaults to 90
// days.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, auditRetention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if auditRetention <= 0 {
		auditRetention = 90 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:          st,
		Logger:         logger,
		Interval:       interval,
		AuditRetention: auditRetention,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs each pruning step independently so one failure does not
// stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()

	if err := s.Store.PasswordResets().DeleteExpiredPasswordResets(ctx); err != nil {
		s.Logger.Error("failed to delete expired password resets", "error", err)
	}

	cutoff := time.Now().UTC().Add(-s.AuditRetention)
	if err := s.Store.AuditEvents().DeleteAuditEventsBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to prune audit events", "error", err)
	}

	s.Logger.Debug("housekeeping cleanup completed")
}

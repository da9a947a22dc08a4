package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
	"github.com/covenantlabs/azor-auth/pkg/idx"
)

// AuditService is the fire-and-forget audit sink. Record never returns an
// error: the audit log is best-effort observability, not a consistency
// boundary, and a failed write must not abort the flow that produced it.
type AuditService struct {
	Store  store.Store
	Logger *slog.Logger
}

func (s *AuditService) Record(ctx context.Context, action, actorID, targetID, detail string) {
	e := domain.AuditEvent{
		ID:        idx.New().String(),
		Action:    action,
		ActorID:   actorID,
		TargetID:  targetID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}

	// Detach from request cancellation so an aborted request still leaves
	// its trace.
	if err := s.Store.AuditEvents().CreateAuditEvent(context.WithoutCancel(ctx), e); err != nil {
		s.Logger.Warn("audit write failed",
			"action", action,
			"target_id", targetID,
			"err", err,
		)
	}
}

// List returns the newest events first, for the admin audit view.
func (s *AuditService) List(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.Store.AuditEvents().ListAuditEvents(ctx, limit)
}

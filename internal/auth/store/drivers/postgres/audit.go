package postgres

import (
	"context"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
)

type auditRepo struct {
	q querier
}

func (r *auditRepo) CreateAuditEvent(ctx context.Context, e domain.AuditEvent) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO audit_events (id, action, actor_id, target_id, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Action, e.ActorID, e.TargetID, e.Detail, e.CreatedAt)
	return err
}

func (r *auditRepo) ListAuditEvents(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, action, actor_id, target_id, detail, created_at
		 FROM audit_events ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &e.TargetID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *auditRepo) DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM audit_events WHERE created_at < $1`, cutoff.UTC())
	return err
}

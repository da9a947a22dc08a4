package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
)

type mfaRepo struct {
	q querier
}

func (r *mfaRepo) GetMFACredential(ctx context.Context, userID string) (domain.MFACredential, error) {
	var c domain.MFACredential
	var enabledAt sql.NullTime
	err := r.q.QueryRowContext(ctx,
		`SELECT user_id, secret, enabled, enabled_at, created_at, updated_at
		 FROM mfa_credentials WHERE user_id = ?`, userID).
		Scan(&c.UserID, &c.Secret, &c.Enabled, &enabledAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.MFACredential{}, mapNotFound(err)
	}
	c.EnabledAt = mapNullTimePtr(enabledAt)
	return c, nil
}

func (r *mfaRepo) UpsertSecret(ctx context.Context, userID string, secret string) error {
	now := time.Now().UTC()
	// An existing pending row keeps its secret so a half-finished setup can
	// be resumed; an enabled row is left alone.
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO mfa_credentials (user_id, secret, enabled, created_at, updated_at)
		 VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, secret, now, now)
	return err
}

func (r *mfaRepo) Enable(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`UPDATE mfa_credentials SET enabled = 1, enabled_at = ?, updated_at = ?
		 WHERE user_id = ?`, now, now, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *mfaRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM mfa_credentials WHERE user_id = ?`, userID)
	return err
}

package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
)

type resetsRepo struct {
	q querier
}

func (r *resetsRepo) CreatePasswordReset(ctx context.Context, t domain.PasswordResetToken) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, consumed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, mapOptionalTime(t.ConsumedAt), t.CreatedAt)
	return mapConflict(err)
}

func (r *resetsRepo) GetPasswordResetByTokenHash(ctx context.Context, hash string) (domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	var consumedAt sql.NullTime
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, consumed_at, created_at
		 FROM password_reset_tokens WHERE token_hash = $1`, hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &consumedAt, &t.CreatedAt)
	if err != nil {
		return domain.PasswordResetToken{}, mapNotFound(err)
	}
	t.ConsumedAt = mapNullTimePtr(consumedAt)
	return t, nil
}

// ConsumePasswordReset is conditional on the token being unconsumed, so
// two concurrent redeems cannot both succeed.
func (r *resetsRepo) ConsumePasswordReset(ctx context.Context, id string, now time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE password_reset_tokens SET consumed_at = $1
		 WHERE id = $2 AND consumed_at IS NULL`, now.UTC(), id)
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

func (r *resetsRepo) DeleteExpiredPasswordResets(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at < $1`, time.Now().UTC())
	return err
}

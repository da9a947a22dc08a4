package postgres

import (
	"context"
	"time"

	"github.com/covenantlabs/azor-auth/internal/auth/store"
)

type recoveryRepo struct {
	q querier
}

func (r *recoveryRepo) ReplaceRecoveryCodes(ctx context.Context, userID string, codeHashes []string) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM recovery_codes WHERE user_id = $1`, userID); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, hash := range codeHashes {
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO recovery_codes (user_id, code_hash, created_at) VALUES ($1, $2, $3)`,
			userID, hash, now); err != nil {
			return mapConflict(err)
		}
	}
	return nil
}

func (r *recoveryRepo) ListRecoveryCodeHashes(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT code_hash FROM recovery_codes WHERE user_id = $1 ORDER BY code_hash`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (r *recoveryRepo) DeleteRecoveryCode(ctx context.Context, userID string, codeHash string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM recovery_codes WHERE user_id = $1 AND code_hash = $2`, userID, codeHash)
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

func (r *recoveryRepo) DeleteAllRecoveryCodes(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM recovery_codes WHERE user_id = $1`, userID)
	return err
}

func (r *recoveryRepo) CountRecoveryCodes(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recovery_codes WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

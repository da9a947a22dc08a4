package sqlite

import (
	"database/sql"

	"github.com/covenantlabs/azor-auth/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Users() store.Users                   { return &usersRepo{q: t.tx} }
func (t *txStore) MFACredentials() store.MFACredentials { return &mfaRepo{q: t.tx} }
func (t *txStore) RecoveryCodes() store.RecoveryCodes   { return &recoveryRepo{q: t.tx} }
func (t *txStore) PasswordResets() store.PasswordResets { return &resetsRepo{q: t.tx} }
func (t *txStore) AuditEvents() store.AuditEvents       { return &auditRepo{q: t.tx} }

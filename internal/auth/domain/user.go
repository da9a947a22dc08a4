package domain

import "time"

// Role is the closed set of platform roles.
type Role string

const (
	// RoleAgent is a standard partner agent.
	RoleAgent Role = "AZOR"
	// RoleAdmin is a platform administrator.
	RoleAdmin Role = "COVENANT"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleAdmin
}

// NormalizeRole maps unknown or legacy role strings to RoleAgent.
func NormalizeRole(s string) Role {
	if r := Role(s); r.Valid() {
		return r
	}
	return RoleAgent
}

type User struct {
	ID           string
	Email        string // stored lowercased, unique
	PasswordHash string // argon2 encoded; empty during transitional bootstrap
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

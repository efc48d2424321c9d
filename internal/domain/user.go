package domain

import "time"

// Role distinguishes ticket requesters from support agents.
type Role string

const (
	RoleClient Role = "client"
	RoleAgent  Role = "agent"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAgent
}

// User is the domain model for anyone who can authenticate.
// The role is fixed at registration; no role-change operation exists.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAgent reports whether the user holds the agent capability.
func (u *User) IsAgent() bool {
	return u != nil && u.Role == RoleAgent
}

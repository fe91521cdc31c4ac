package model

import "time"

type UserRole string

const (
	RoleCoach   UserRole = "coach"
	RoleAthlete UserRole = "athlete"
	RoleAdmin   UserRole = "admin"
)

// User is the authenticated dashboard identity resolved from the shared
// session cookie. Accounts themselves are owned by the main application.
type User struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}

// DashboardSession mirrors the session rows the main application writes.
// This service only ever reads them.
type DashboardSession struct {
	TokenHash string    `db:"token_hash" json:"-"`
	UserID    string    `db:"user_id" json:"userId"`
	UserName  string    `db:"user_name" json:"userName"`
	Role      UserRole  `db:"role" json:"role"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
}

func (s *DashboardSession) User() *User {
	return &User{
		ID:   s.UserID,
		Name: s.UserName,
		Role: s.Role,
	}
}

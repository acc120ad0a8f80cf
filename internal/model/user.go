package model

import (
	"errors"
	"time"
)

// User represents an operator account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleClerk   = "clerk"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var roleRank = map[string]int{RoleClerk: 1, RoleManager: 2, RoleAdmin: 3}

// RoleAtLeast reports whether role ranks at or above minimum. Unknown
// roles rank zero and never pass.
func RoleAtLeast(role, minimum string) bool {
	want := roleRank[minimum]
	return want > 0 && roleRank[role] >= want
}

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

package auth

import "time"

// User represents an application login bound to a cooperative role.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	MemberID     *int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package members

import "time"

// MemberStatus enumerates member lifecycle values.
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "ACTIVE"
	MemberStatusInactive MemberStatus = "INACTIVE"
)

// Member is one registered cooperative member.
type Member struct {
	ID           int64
	MemberNumber string
	FullName     string
	Email        string
	Phone        string
	Address      string
	Status       MemberStatus
	JoinedAt     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package auth

import "time"

// User represents an authenticated user account. Level is the security
// level used to gate advance payment modification.
type User struct {
	ID           int64
	Nick         string
	Email        string
	PasswordHash string
	Level        int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

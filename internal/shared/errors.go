package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLockNotAcquired indicates a distributed lock could not be taken
	// within the configured wait window.
	ErrLockNotAcquired = errors.New("lock not acquired")
)

// UserSafeMessage maps internal errors to a message safe to show users.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials."
	case errors.Is(err, ErrLockNotAcquired):
		return "The record is busy, please retry."
	default:
		return "An unexpected error occurred."
	}
}

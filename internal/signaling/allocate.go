package signaling

import "github.com/google/uuid"

// AllocateSessionID returns the explicit id unchanged when present, so
// callers can track sessions under their own keys, and otherwise generates
// a fresh identifier. Uniqueness of explicit ids is the caller's problem.
func AllocateSessionID(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return uuid.New().String()
}

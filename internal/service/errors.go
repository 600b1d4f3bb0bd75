package service

import "fmt"

// UsernameGenerationError means no local username could be derived for a new
// identity: both name sources sanitized to nothing, or every candidate was
// taken. Fatal to the account-creation attempt.
type UsernameGenerationError struct {
	Reason string
}

func (e *UsernameGenerationError) Error() string {
	return fmt.Sprintf("failed to generate local username: %s", e.Reason)
}

// SessionMismatchError means the pending-identity staging is inconsistent
// with the account being finalized or reconciled. It strongly implies a bug
// or a cross-user race, and the attempt must abort rather than proceed with
// partial data: a link row written for the wrong account would break lookups
// for that identity permanently.
type SessionMismatchError struct {
	Reason string
}

func (e *SessionMismatchError) Error() string {
	return fmt.Sprintf("authentication session mismatch: %s", e.Reason)
}

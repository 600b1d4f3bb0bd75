package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ubc/wiki-cwl-link/internal/domain/identity"
	"github.com/ubc/wiki-cwl-link/internal/ports"
)

// maxSuffixProbes bounds the sequential collision probe before the allocator
// gives up on display-name-derived candidates.
const maxSuffixProbes = 10000

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// Allocator derives a collision-free local username for a new external
// identity. The preferred candidate comes from the display name, the
// fallback from the CWL login name.
//
// The existence probe and the eventual link insert are not one atomic step:
// two concurrent registrations can race past the probe and collide. The
// link table's uniqueness constraint is the tie-breaker; the insert surfaces
// a retryable Conflict instead of trusting the pre-check alone.
type Allocator struct {
	users ports.UserDirectory
}

// NewAllocator constructs an Allocator over the host account store.
func NewAllocator(users ports.UserDirectory) *Allocator {
	return &Allocator{users: users}
}

// sanitizeCandidate strips everything outside [A-Za-z0-9] and capitalizes
// the result into wiki username form ("Jane Smith" → "Janesmith").
func sanitizeCandidate(s string) string {
	s = nonAlnum.ReplaceAllString(s, "")
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

// Allocate returns a username no existing account held at probe time.
// It tries the display-name candidate, then numeric suffixes, and after
// maxSuffixProbes failed probes falls back to the login-name candidate
// verbatim before giving up.
func (a *Allocator) Allocate(ctx context.Context, ext identity.ExternalIdentity) (string, error) {
	base := sanitizeCandidate(ext.DisplayName)
	fallback := sanitizeCandidate(ext.LoginName)

	if base == "" {
		if fallback == "" {
			return "", &UsernameGenerationError{Reason: "display name and login name both sanitize to empty"}
		}
		base = fallback
	}

	candidate := base
	for n := 0; ; n++ {
		taken, err := a.users.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probe candidate username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		if n >= maxSuffixProbes {
			return a.exhausted(ctx, fallback)
		}
		candidate = base + strconv.Itoa(n+1)
	}
}

// exhausted is the last resort after the suffix probe gives up: the
// login-derived candidate verbatim, if anything is left to try.
func (a *Allocator) exhausted(ctx context.Context, fallback string) (string, error) {
	if fallback != "" {
		taken, err := a.users.Exists(ctx, fallback)
		if err != nil {
			return "", fmt.Errorf("probe fallback username: %w", err)
		}
		if !taken {
			return fallback, nil
		}
	}
	return "", &UsernameGenerationError{Reason: "candidate probe exhausted"}
}

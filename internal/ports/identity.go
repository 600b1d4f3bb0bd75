package ports

// Package ports defines interfaces (hexagonal ports) for account-link
// behavior. Implementations live in internal/data and internal/adapters;
// orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	"github.com/ubc/wiki-cwl-link/internal/domain/identity"
)

// ErrLinkNotFound is returned by LinkRepository lookups when no link row
// exists for the given key.
var ErrLinkNotFound = errors.New("account link not found")

// LinkRepository persists the local-account ↔ CWL-identity link table.
type LinkRepository interface {
	// GetByExternalLogin returns the link for a CWL login name together with
	// the host account's username. Returns ErrLinkNotFound when no link
	// exists.
	GetByExternalLogin(ctx context.Context, loginName string) (*identity.LinkedAccount, error)

	// GetByLocalUser returns the link row for a local account.
	GetByLocalUser(ctx context.Context, localUserID int64) (*identity.LinkRecord, error)

	// Create inserts a new link row. Unique violations on either key surface
	// as a Conflict error so the caller can retry the attempt.
	Create(ctx context.Context, req identity.CreateLinkRequest) (*identity.LinkRecord, error)

	// Update rewrites the reconciled fields of an existing link in place.
	Update(ctx context.Context, localUserID int64, req identity.UpdateLinkRequest) (*identity.LinkRecord, error)
}

// UserDirectory answers existence questions against the host account store.
// It is the allocation pre-check only; the link table's uniqueness
// constraints remain the race tie-breaker.
type UserDirectory interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// PendingStore stages a PendingIdentity under one authentication attempt.
// Records are single-use and expire; a staged record must never be visible
// to an unrelated attempt.
type PendingStore interface {
	// Put stages the record under the attempt ID, replacing any prior one.
	Put(ctx context.Context, attemptID string, p identity.PendingIdentity) error

	// Take removes and returns the staged record. ok is false when nothing
	// is staged (absent, expired, or already consumed).
	Take(ctx context.Context, attemptID string) (p identity.PendingIdentity, ok bool, err error)
}

// BlockRequest carries everything the host needs to place an administrative
// block on a local account.
type BlockRequest struct {
	LocalUserID int64
	Reason      string
	Flags       identity.BlockFlags
}

// AccountBlocker applies administrative blocks. Implemented by the host
// application; block enforcement is outside this module.
type AccountBlocker interface {
	Block(ctx context.Context, req BlockRequest) error
}

// AddressThrottle places a cool-down on an originating network address after
// a policy block.
type AddressThrottle interface {
	Throttle(ctx context.Context, addr string, window time.Duration) error
}

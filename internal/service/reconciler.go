package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ubc/wiki-cwl-link/internal/domain/identity"
	"github.com/ubc/wiki-cwl-link/internal/ports"
)

// LoginAttempt is the request-scoped handle threaded from username
// resolution through the host's creation/login callbacks. ID scopes the
// pending-identity staging to one authentication attempt; hosts with their
// own auth-session IDs pass those, everyone else mints one here.
type LoginAttempt struct {
	// ID is the opaque attempt/session identifier.
	ID string
	// SourceAddr is the originating network address, used for the block
	// cool-down. May be empty when the host does not supply it.
	SourceAddr string
}

// NewLoginAttempt mints an attempt handle with a fresh random ID.
func NewLoginAttempt(sourceAddr string) LoginAttempt {
	return LoginAttempt{ID: uuid.NewString(), SourceAddr: sourceAddr}
}

// ReconcilerOptions groups dependencies for Reconciler.
type ReconcilerOptions struct {
	Links    ports.LinkRepository
	Users    ports.UserDirectory
	Pending  ports.PendingStore
	Blocker  ports.AccountBlocker
	Throttle ports.AddressThrottle
	Logger   *slog.Logger
}

// Reconciler orchestrates one login attempt: resolve the local username for
// an external identity, stage its attributes across the host's
// account-creation step, and merge attribute changes back into the link
// table after every successful login.
type Reconciler struct {
	links     ports.LinkRepository
	pending   ports.PendingStore
	blocker   ports.AccountBlocker
	throttle  ports.AddressThrottle
	allocator *Allocator
	logger    *slog.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		links:     opts.Links,
		pending:   opts.Pending,
		blocker:   opts.Blocker,
		throttle:  opts.Throttle,
		allocator: NewAllocator(opts.Users),
		logger:    logger.With("component", "reconciler"),
	}
}

// ResolveUsername maps an external identity to its local username. An
// existing link wins outright; otherwise a new username is allocated. Either
// way the identity is staged under the attempt so the creation or login
// callback can pick it up, and staging is scoped to this attempt alone.
func (r *Reconciler) ResolveUsername(ctx context.Context, att LoginAttempt, ext identity.ExternalIdentity) (string, error) {
	if att.ID == "" {
		return "", &SessionMismatchError{Reason: "login attempt has no ID"}
	}
	if ext.LoginName == "" {
		return "", errors.New("external identity has no login name")
	}

	username := ""
	linked, err := r.links.GetByExternalLogin(ctx, ext.LoginName)
	switch {
	case err == nil:
		username = linked.LocalUsername
	case errors.Is(err, ports.ErrLinkNotFound):
		username, err = r.allocator.Allocate(ctx, ext)
		if err != nil {
			return "", err
		}
		r.logger.InfoContext(ctx, "allocated username for new identity",
			"external_login", ext.LoginName, "username", username)
	default:
		return "", fmt.Errorf("lookup link: %w", err)
	}

	p := identity.PendingIdentity{Identity: ext, ProposedUsername: username}
	if putErr := r.pending.Put(ctx, att.ID, p); putErr != nil {
		return "", fmt.Errorf("stage pending identity: %w", putErr)
	}
	return username, nil
}

// FinalizeCreatedAccount records the link row for an account the host just
// created for a newly allocated username. The staged identity must belong to
// this attempt and to this username; anything else aborts before a row that
// would poison future lookups can be written.
func (r *Reconciler) FinalizeCreatedAccount(ctx context.Context, att LoginAttempt, localUserID int64, localUsername string) error {
	p, ok, err := r.pending.Take(ctx, att.ID)
	if err != nil {
		return fmt.Errorf("take pending identity: %w", err)
	}
	if !ok {
		return &SessionMismatchError{Reason: "no pending identity staged for this attempt"}
	}
	if p.ProposedUsername != localUsername {
		return &SessionMismatchError{Reason: "staged identity does not match the created account"}
	}

	// Block before the insert: a created-but-unblocked basic account must
	// never be observable.
	if identity.EvaluateAffiliations(p.Identity.Affiliations) == identity.Block {
		if blockErr := r.block(ctx, att, localUserID, p.Identity.LoginName); blockErr != nil {
			return blockErr
		}
	}

	if _, err := r.links.Create(ctx, identity.CreateLinkRequest{
		LocalUserID:       localUserID,
		ExternalLoginName: p.Identity.LoginName,
		PersonID:          p.Identity.PersonID,
		Affiliations:      p.Identity.Affiliations,
		DisplayName:       p.Identity.DisplayName,
	}); err != nil {
		return fmt.Errorf("create link: %w", err)
	}

	r.logger.InfoContext(ctx, "linked new account",
		"external_login", p.Identity.LoginName, "local_user_id", localUserID)
	return nil
}

// ReconcileOnLogin merges this attempt's directory attributes into the
// stored link after a successful login. With nothing staged it is a returning
// user with nothing to merge and succeeds as a no-op. The security policy is
// re-evaluated against the historical union, which catches legacy basic
// accounts created before the block policy existed.
func (r *Reconciler) ReconcileOnLogin(ctx context.Context, att LoginAttempt, localUserID int64) error {
	p, ok, err := r.pending.Take(ctx, att.ID)
	if err != nil {
		return fmt.Errorf("take pending identity: %w", err)
	}
	if !ok {
		return nil
	}

	linked, err := r.links.GetByExternalLogin(ctx, p.Identity.LoginName)
	if err != nil {
		return fmt.Errorf("lookup link: %w", err)
	}
	if linked.Link.LocalUserID != localUserID {
		return &SessionMismatchError{Reason: "staged identity is linked to a different account"}
	}

	merged := identity.MergeHistorical(linked.Link, p.Identity.Affiliations)
	if identity.EvaluateAffiliations(merged) == identity.Block {
		if blockErr := r.block(ctx, att, localUserID, p.Identity.LoginName); blockErr != nil {
			return blockErr
		}
	}

	req := identity.UpdateLinkRequest{
		PersonID:               p.Identity.PersonID,
		CurrentAffiliations:    p.Identity.Affiliations,
		HistoricalAffiliations: merged,
		DisplayName:            p.Identity.DisplayName,
	}
	if !req.ChangesFrom(linked.Link) {
		return nil
	}

	if _, err := r.links.Update(ctx, localUserID, req); err != nil {
		return fmt.Errorf("update link: %w", err)
	}

	r.logger.InfoContext(ctx, "reconciled link attributes",
		"external_login", p.Identity.LoginName, "local_user_id", localUserID)
	return nil
}

// block applies the policy block to the account and puts the originating
// address under cool-down.
func (r *Reconciler) block(ctx context.Context, att LoginAttempt, localUserID int64, loginName string) error {
	if err := r.blocker.Block(ctx, ports.BlockRequest{
		LocalUserID: localUserID,
		Reason:      identity.BlockReason,
		Flags:       identity.PolicyBlockFlags(),
	}); err != nil {
		return fmt.Errorf("block account: %w", err)
	}
	if att.SourceAddr != "" && r.throttle != nil {
		if err := r.throttle.Throttle(ctx, att.SourceAddr, identity.AddressCooldown); err != nil {
			return fmt.Errorf("throttle source address: %w", err)
		}
	}
	r.logger.InfoContext(ctx, "blocked unaffiliated account",
		"external_login", loginName, "local_user_id", localUserID)
	return nil
}

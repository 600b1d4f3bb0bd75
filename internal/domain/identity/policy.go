package identity

import "time"

// Decision is the outcome of the affiliation security policy.
type Decision int

const (
	// Allow admits the account without restriction.
	Allow Decision = iota
	// Block requires the account to be administratively blocked.
	Block
)

// BlockReason is the human-readable reason attached to policy blocks.
// Basic (affiliation-less) CWL accounts are not eligible for wiki access.
const BlockReason = "CWL account has no recognized campus affiliation"

// AddressCooldown is how long the originating network address stays
// throttled after a policy block.
const AddressCooldown = 24 * time.Hour

// BlockFlags are the capability restrictions applied with a policy block.
// Blocks are indefinite; there is no auto-expiry.
type BlockFlags struct {
	// NoCreateAccount disables self-service account creation.
	NoCreateAccount bool
	// NoEmail disables outgoing mail from the account.
	NoEmail bool
	// NoOwnTalk disables edits to the account's own talk page.
	NoOwnTalk bool
	// Autoblock throttles the originating network address.
	Autoblock bool
	// HardBlockOnRelogin re-applies the block if the account logs in again.
	HardBlockOnRelogin bool
}

// PolicyBlockFlags returns the fixed flag set used for policy blocks.
func PolicyBlockFlags() BlockFlags {
	return BlockFlags{
		NoCreateAccount:    true,
		NoEmail:            true,
		NoOwnTalk:          true,
		Autoblock:          true,
		HardBlockOnRelogin: true,
	}
}

// EvaluateAffiliations applies the account security policy: an identity with
// no recognized directory affiliation at all is treated as an unverified
// "basic" account and blocked; any non-empty set is allowed.
//
// Callers re-evaluate on every login using the historical union, not just
// the current snapshot, because attribute release can be incomplete at
// account creation and fill in later.
func EvaluateAffiliations(affiliations AffiliationSet) Decision {
	if affiliations.IsEmpty() {
		return Block
	}
	return Allow
}

package identity

// Package identity contains domain-level types for CWL-to-local account
// linking. It is pure and free of storage/adapter concerns.

import (
	"encoding/json"
	"sort"
	"strings"
)

// AffiliationSet is the set of role/entitlement strings asserted by the
// directory for an identity (e.g. "staff", "student"). An empty set marks an
// unverified "basic" identity. The canonical in-memory representation is a
// set; the space-delimited string form exists only at the store boundary.
type AffiliationSet map[string]struct{}

// NewAffiliationSet builds a set from the given tokens, dropping empties.
func NewAffiliationSet(tokens ...string) AffiliationSet {
	s := make(AffiliationSet, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			s[t] = struct{}{}
		}
	}
	return s
}

// ParseAffiliations parses the space-delimited stored form back into a set.
func ParseAffiliations(raw string) AffiliationSet {
	return NewAffiliationSet(strings.Fields(raw)...)
}

// IsEmpty reports whether the set holds no affiliations.
func (s AffiliationSet) IsEmpty() bool { return len(s) == 0 }

// Contains reports membership of a single token.
func (s AffiliationSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Union returns a new set holding every token present in s or any of the
// others. The receiver and arguments are not modified.
func (s AffiliationSet) Union(others ...AffiliationSet) AffiliationSet {
	out := make(AffiliationSet, len(s))
	for t := range s {
		out[t] = struct{}{}
	}
	for _, o := range others {
		for t := range o {
			out[t] = struct{}{}
		}
	}
	return out
}

// Equal reports whether two sets hold exactly the same tokens.
func (s AffiliationSet) Equal(other AffiliationSet) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if _, ok := other[t]; !ok {
			return false
		}
	}
	return true
}

// Serialize returns the canonical stored form: tokens sorted
// lexicographically and joined by single spaces. Order carries no meaning,
// sorting just keeps the form stable for change detection.
func (s AffiliationSet) Serialize() string {
	tokens := make([]string, 0, len(s))
	for t := range s {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// MarshalJSON encodes the set as a sorted JSON array of tokens.
func (s AffiliationSet) MarshalJSON() ([]byte, error) {
	tokens := make([]string, 0, len(s))
	for t := range s {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return json.Marshal(tokens)
}

// UnmarshalJSON decodes a JSON array of tokens into the set.
func (s *AffiliationSet) UnmarshalJSON(data []byte) error {
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	*s = NewAffiliationSet(tokens...)
	return nil
}

// ExternalIdentity is the normalized identity record produced from a raw
// directory attribute bag for one login attempt. Ephemeral; never persisted
// as-is.
type ExternalIdentity struct {
	// LoginName is the CWL login name, the primary external key. Non-empty.
	LoginName string `json:"login_name"`
	// PersonID is the opaque stable person identifier (PUID). May be empty
	// when the directory withholds it.
	PersonID string `json:"person_id"`
	// DisplayName is the person's real/display name.
	DisplayName string `json:"display_name"`
	// Affiliations are the directory-asserted roles for this login attempt.
	Affiliations AffiliationSet `json:"affiliations"`
}

// PendingIdentity bridges username resolution and the host's account-creation
// callback. It is staged under one authentication attempt, consumed exactly
// once, and must never leak into an unrelated attempt.
type PendingIdentity struct {
	Identity ExternalIdentity `json:"identity"`
	// ProposedUsername is the local username allocated for this identity.
	ProposedUsername string `json:"proposed_username"`
}

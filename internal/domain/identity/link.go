package identity

import (
	"errors"
	"strings"
	"time"
)

// LinkRecord is the persisted association between one local account and one
// external CWL identity. Created once at account creation, mutated on later
// logins, never deleted (blocking is the removal mechanism).
//
// CurrentAffiliations and HistoricalAffiliations hold the space-delimited
// stored form; HistoricalAffiliations is always a superset of every
// affiliation set ever observed for this identity.
type LinkRecord struct {
	LocalUserID            int64     `db:"local_user_id"`
	ExternalLoginName      string    `db:"external_login_name"`
	PersonID               string    `db:"person_id"`
	CurrentAffiliations    string    `db:"current_affiliations"`
	HistoricalAffiliations string    `db:"historical_affiliations"`
	DisplayName            string    `db:"display_name"`
	CreatedAt              time.Time `db:"created_at"`
	UpdatedAt              time.Time `db:"updated_at"`
}

// LinkedAccount is a LinkRecord joined with the host account's username.
type LinkedAccount struct {
	Link          LinkRecord
	LocalUsername string
}

// CreateLinkRequest carries the fields for a new link row.
type CreateLinkRequest struct {
	LocalUserID       int64
	ExternalLoginName string
	PersonID          string
	Affiliations      AffiliationSet
	DisplayName       string
}

// Validate checks required fields for link creation.
func (r CreateLinkRequest) Validate() error {
	if r.LocalUserID <= 0 {
		return errors.New("local user id is required")
	}
	if strings.TrimSpace(r.ExternalLoginName) == "" {
		return errors.New("external login name is required")
	}
	return nil
}

// UpdateLinkRequest carries the reconciled fields written on login. All four
// fields are written together; partial updates do not exist.
type UpdateLinkRequest struct {
	PersonID               string
	CurrentAffiliations    AffiliationSet
	HistoricalAffiliations AffiliationSet
	DisplayName            string
}

// ChangesFrom reports whether applying the update to the given record would
// change any stored field. Reconciliation skips the write when it would not.
func (r UpdateLinkRequest) ChangesFrom(rec LinkRecord) bool {
	return r.PersonID != rec.PersonID ||
		r.DisplayName != rec.DisplayName ||
		r.CurrentAffiliations.Serialize() != rec.CurrentAffiliations ||
		r.HistoricalAffiliations.Serialize() != rec.HistoricalAffiliations
}

// MergeHistorical computes the cumulative affiliation union for a login
// attempt: everything in the stored historical form, the stored current
// form, and the incoming set. The result is a superset of all three inputs
// and merging is idempotent.
func MergeHistorical(rec LinkRecord, incoming AffiliationSet) AffiliationSet {
	return ParseAffiliations(rec.HistoricalAffiliations).
		Union(ParseAffiliations(rec.CurrentAffiliations), incoming)
}

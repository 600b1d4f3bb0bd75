package directory

import (
	"errors"

	"github.com/ubc/wiki-cwl-link/config"
	"github.com/ubc/wiki-cwl-link/internal/domain/identity"
)

// Extractor maps a raw attribute bag onto the canonical ExternalIdentity
// using a deployment-specific attribute-key mapping. The directory schema
// differs per deployment, so every semantic field's key comes from config.
type Extractor struct {
	keys config.DirectoryConfig
}

// NewExtractor builds an Extractor from the configured attribute keys.
// The login-name key is mandatory; there is no identity without it.
func NewExtractor(keys config.DirectoryConfig) (*Extractor, error) {
	if keys.LoginNameAttr == "" {
		return nil, errors.New("login name attribute key must be configured")
	}
	return &Extractor{keys: keys}, nil
}

// Extract normalizes one attribute bag into an ExternalIdentity.
//
// String-valued fields accept either the string variant or the first element
// of a list variant. The affiliation field accepts only the list variant and
// becomes a set; an absent value is the empty set, which downstream policy
// treats as an unverified basic account.
func (e *Extractor) Extract(attrs Attributes) (identity.ExternalIdentity, error) {
	login, err := stringAttr(attrs, e.keys.LoginNameAttr, true)
	if err != nil {
		return identity.ExternalIdentity{}, err
	}
	personID, err := stringAttr(attrs, e.keys.PersonIDAttr, false)
	if err != nil {
		return identity.ExternalIdentity{}, err
	}
	displayName, err := stringAttr(attrs, e.keys.DisplayNameAttr, false)
	if err != nil {
		return identity.ExternalIdentity{}, err
	}
	affiliations, err := listAttr(attrs, e.keys.AffiliationAttr)
	if err != nil {
		return identity.ExternalIdentity{}, err
	}

	return identity.ExternalIdentity{
		LoginName:    login,
		PersonID:     personID,
		DisplayName:  displayName,
		Affiliations: identity.NewAffiliationSet(affiliations...),
	}, nil
}

// stringAttr reads a single-valued field. A list value degrades to its first
// element; list attributes from SAML responses routinely carry one entry.
func stringAttr(attrs Attributes, key string, required bool) (string, error) {
	if key == "" {
		return "", nil
	}
	v, ok := attrs[key]
	if !ok || v.IsZero() {
		if required {
			return "", &MissingAttributeError{Key: key}
		}
		return "", nil
	}
	switch v.kind {
	case kindString:
		return v.str, nil
	case kindList:
		return v.list[0], nil
	default:
		return "", &TypeMismatchError{Key: key, Want: "string"}
	}
}

// listAttr reads a multi-valued field. Absent means empty, but a scalar
// where a list is expected is a schema mismatch, not an empty set.
func listAttr(attrs Attributes, key string) ([]string, error) {
	if key == "" {
		return nil, nil
	}
	v, ok := attrs[key]
	if !ok || v.IsZero() {
		return nil, nil
	}
	if v.kind != kindList {
		return nil, &TypeMismatchError{Key: key, Want: "list"}
	}
	return v.list, nil
}

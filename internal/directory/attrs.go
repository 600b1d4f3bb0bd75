package directory

// Package directory normalizes raw LDAP/SAML attribute bags into the domain
// identity record. It receives attributes from an external directory client
// after credential verification; no protocol handling happens here.

import "fmt"

// attrKind tags the shape of a raw attribute value.
type attrKind int

const (
	kindAbsent attrKind = iota
	kindString
	kindList
)

// AttrValue is a tagged union over the two shapes a directory attribute can
// take on the wire: a single string or a list of strings. Directory clients
// construct values explicitly with String or List rather than relying on
// dynamic type inspection downstream.
type AttrValue struct {
	kind attrKind
	str  string
	list []string
}

// String wraps a single-valued attribute.
func String(v string) AttrValue {
	return AttrValue{kind: kindString, str: v}
}

// List wraps a multi-valued attribute.
func List(vs ...string) AttrValue {
	return AttrValue{kind: kindList, list: vs}
}

// IsZero reports whether the value carries no data at all.
func (v AttrValue) IsZero() bool {
	switch v.kind {
	case kindString:
		return v.str == ""
	case kindList:
		return len(v.list) == 0
	default:
		return true
	}
}

// Attributes is one login attempt's attribute bag, keyed by the directory
// schema's attribute names (not our semantic field names).
type Attributes map[string]AttrValue

// MissingAttributeError reports a required directory attribute that was
// absent or empty. Fatal to the login attempt.
type MissingAttributeError struct {
	Key string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("missing required directory attribute %q", e.Key)
}

// TypeMismatchError reports a directory attribute whose shape does not match
// what the field expects. Fatal to the login attempt.
type TypeMismatchError struct {
	Key  string
	Want string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("directory attribute %q cannot be read as %s", e.Key, e.Want)
}

package config

import "time"

// DirectoryConfig maps our semantic identity fields onto the attribute names
// released by the deployment's directory (CWL LDAP or the SAML IdP). The
// schema differs per deployment, so every field's key is configurable.
//
// Defaults match the UBC CWL attribute release.
type DirectoryConfig struct {
	// LoginNameAttr is the attribute carrying the CWL login name. Required.
	LoginNameAttr string `env:"LOGIN_NAME_ATTR"  envDefault:"cwlLoginName"`
	// PersonIDAttr is the attribute carrying the stable person identifier (PUID).
	PersonIDAttr string `env:"PERSON_ID_ATTR"   envDefault:"ubcEduPersonPUID"`
	// DisplayNameAttr is the attribute carrying the person's real name.
	DisplayNameAttr string `env:"DISPLAY_NAME_ATTR" envDefault:"displayName"`
	// AffiliationAttr is the multi-valued attribute carrying campus affiliations.
	AffiliationAttr string `env:"AFFILIATION_ATTR"  envDefault:"eduPersonAffiliation"`
}

// Sanitize applies guardrails to directory configuration.
func (c *DirectoryConfig) Sanitize() {
	if c.LoginNameAttr == "" {
		c.LoginNameAttr = "cwlLoginName"
	}
}

// PendingConfig bounds the pending-identity staging area. The original
// extension relied on the host auth-session lifetime; we bound staged
// records explicitly so an abandoned login attempt cannot linger.
type PendingConfig struct {
	// TTL is how long a staged pending identity survives before expiring.
	TTL time.Duration `env:"TTL" envDefault:"10m"`
	// KeyPrefix namespaces staging keys in Redis.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"cwl:pending:"`
}

// Sanitize applies guardrails to pending staging configuration.
func (c *PendingConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "cwl:pending:"
	}
}

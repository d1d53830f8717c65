package domain

import "time"

// IdentityProvider is the remote party we authenticate against. Providers
// are written once at enrollment and read-only afterwards.
type IdentityProvider struct {
	Identifier        string // stable server identifier, e.g. "idp.example.org"
	DisplayName       string
	AuthenticationURL string
	OCRASuite         string
	InfoURL           string // optional enrollment metadata
	LogoURL           string // optional enrollment metadata
	CreatedAt         time.Time
}

// Identity is a locally enrolled account at an identity provider. The
// enrollment secret itself never lives here; the vault resolves it from the
// identity ID.
type Identity struct {
	ID                 string // ULID, assigned at enrollment
	Identifier         string // username at the provider
	DisplayName        string
	ProviderIdentifier string
	Blocked            bool
	CreatedAt          time.Time
}

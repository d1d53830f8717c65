package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// Challenge is a parsed and resolved authentication challenge. It is created
// per scan and consumed exactly once.
//
// Either Identity is set, or Identities is non-empty and Identity is nil
// (the scan matched several enrolled accounts and the caller must pick one
// before completing the challenge). Both are never unset at the same time.
type Challenge struct {
	ProtocolVersion  int
	IdentityProvider IdentityProvider

	Identity   *Identity
	Identities []Identity

	SessionKey string // server-issued, correlates this challenge to a session
	Challenge  string // challenge question/nonce fed into the OCRA computation
	ReturnURL  string

	// IsStepUp reports that the raw challenge already named a specific user.
	IsStepUp bool

	ServiceProviderDisplayName string
}

// Ambiguous reports whether the caller still has to choose an identity.
func (c Challenge) Ambiguous() bool {
	return c.Identity == nil && len(c.Identities) > 0
}

// CompleteRequest asks the coordinator to finish a resolved challenge.
type CompleteRequest struct {
	Challenge  Challenge
	Credential SecretCredential
}

// URLParams are the raw, validated query parameters of a challenge URL.
// They are transient; resolution against the store turns them into a
// Challenge.
type URLParams struct {
	ProtocolVersion  int
	ServerIdentifier string
	SessionKey       string
	Challenge        string
	Username         string
	ReturnURL        string
}

// ParseAuthenticationURL validates a raw scanned string against the
// challenge URL scheme and extracts its parameters. The expected shape is
//
//	<scheme>://authenticate?v=<int>&serverIdentifier=...&sessionKey=...&challenge=...[&username=...][&returnUrl=...]
//
// It reports ok=false for anything that does not match; a scanned QR code
// holding garbage is an expected input, not an error.
func ParseAuthenticationURL(scheme, raw string) (URLParams, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return URLParams{}, false
	}
	if u.Scheme != scheme {
		return URLParams{}, false
	}
	if u.Host != "authenticate" && strings.Trim(u.Path, "/") != "authenticate" {
		return URLParams{}, false
	}

	q := u.Query()

	version, err := strconv.Atoi(q.Get("v"))
	if err != nil || version < 1 {
		return URLParams{}, false
	}

	params := URLParams{
		ProtocolVersion:  version,
		ServerIdentifier: q.Get("serverIdentifier"),
		SessionKey:       q.Get("sessionKey"),
		Challenge:        q.Get("challenge"),
		Username:         strings.TrimSpace(q.Get("username")),
		ReturnURL:        q.Get("returnUrl"),
	}
	if params.ServerIdentifier == "" || params.SessionKey == "" || params.Challenge == "" {
		return URLParams{}, false
	}
	return params, true
}

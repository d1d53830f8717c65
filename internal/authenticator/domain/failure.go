package domain

// ParseReason classifies why a scanned challenge could not be turned into a
// Challenge.
type ParseReason string

const (
	ParseInvalidChallenge        ParseReason = "invalid_challenge"
	ParseInvalidIdentityProvider ParseReason = "invalid_identity_provider"
	ParseInvalidIdentity         ParseReason = "invalid_identity"
	ParseNoIdentities            ParseReason = "no_identities"
)

// ParseFailure carries the reason a challenge failed to parse or resolve,
// plus the user-facing text selected for it. Title and Message come from the
// message catalog; the core only picks the reason and parameters.
type ParseFailure struct {
	Reason  ParseReason
	Title   string
	Message string
}

// CompleteReason classifies why completing a challenge failed.
type CompleteReason string

const (
	CompleteInvalidChallenge        CompleteReason = "invalid_challenge"
	CompleteInvalidResponse         CompleteReason = "invalid_response"
	CompleteInvalidRequest          CompleteReason = "invalid_request"
	CompleteSecurity                CompleteReason = "security"
	CompleteDeviceIncompatible      CompleteReason = "device_incompatible"
	CompleteUnknown                 CompleteReason = "unknown"
	CompleteConnection              CompleteReason = "connection"
	CompleteAccountBlocked          CompleteReason = "account_blocked"
	CompleteAccountTemporaryBlocked CompleteReason = "account_temporary_blocked"
	CompleteInvalidUser             CompleteReason = "invalid_user"
)

// CompleteFailure is the single failure shape for challenge completion.
// RemainingAttempts is set for recoverable INVALID_RESPONSE outcomes and
// Duration (minutes) for a temporary block; both come verbatim from the
// server and are never inferred locally.
type CompleteFailure struct {
	Reason  CompleteReason
	Title   string
	Message string

	RemainingAttempts *int
	Duration          *int
}

// ParseResult is the tagged outcome of parsing a challenge: a Challenge or a
// ParseFailure, never both.
type ParseResult struct {
	Challenge Challenge
	Failure   *ParseFailure
}

func ParseSuccess(c Challenge) ParseResult   { return ParseResult{Challenge: c} }
func ParseFailed(f ParseFailure) ParseResult { return ParseResult{Failure: &f} }

// OK reports whether the parse succeeded.
func (r ParseResult) OK() bool { return r.Failure == nil }

// CompleteResult is the tagged outcome of completing a challenge.
type CompleteResult struct {
	Failure *CompleteFailure
}

func CompleteSuccess() CompleteResult                 { return CompleteResult{} }
func CompleteFailed(f CompleteFailure) CompleteResult { return CompleteResult{Failure: &f} }

// OK reports whether the completion succeeded.
func (r CompleteResult) OK() bool { return r.Failure == nil }

// OTPResult is the tagged outcome of generating an OTP without submitting it.
type OTPResult struct {
	OTP     string
	Failure *CompleteFailure
}

func OTPSuccess(otp string) OTPResult       { return OTPResult{OTP: otp} }
func OTPFailed(f CompleteFailure) OTPResult { return OTPResult{Failure: &f} }

// OK reports whether OTP generation succeeded.
func (r OTPResult) OK() bool { return r.Failure == nil }

// Package text provides the user-facing message catalog. The protocol core
// only ever selects a key and parameters; the wording lives here so a host
// application can swap the catalog for localized templates.
package text

import "fmt"

// Key identifies a message template.
type Key string

const (
	AuthErrorTitle   Key = "error_auth_title"
	UnknownErrTitle  Key = "error_title_unknown"
	PINTitle         Key = "error_auth_title_pin"
	BiometricTitle   Key = "error_auth_title_biometric"
	BlockedTitle     Key = "error_auth_title_blocked"
	TempBlockedTitle Key = "error_auth_title_blocked_temporary"
	RequestTitle     Key = "error_auth_title_request"
	ChallengeTitle   Key = "error_auth_title_challenge"
	AccountTitle     Key = "error_auth_title_account"

	InvalidQR               Key = "error_auth_invalid_qr"
	UnknownIdentityProvider Key = "error_auth_unknown_identity_provider"
	UnknownIdentity         Key = "error_auth_unknown_identity"
	NoIdentities            Key = "error_auth_no_identities"
	InvalidChallenge        Key = "error_auth_invalid_challenge"
	InvalidResponse         Key = "error_auth_invalid_response"
	InvalidProtocol         Key = "error_auth_invalid_protocol"
	InvalidRequest          Key = "error_auth_request_invalid"
	ChallengeInvalid        Key = "error_auth_challenge_invalid"
	AccountInvalid          Key = "error_auth_account_invalid"
	ConnectError            Key = "error_auth_connect_error"
	UnknownError            Key = "error_auth_unknown_error"
	InvalidKeystore         Key = "error_auth_invalid_keystore"
	InvalidKey              Key = "error_auth_invalid_key"
	SecurityStandards       Key = "error_security_standards"

	PINAttemptsLeft         Key = "error_auth_pin_x_attempts_left"
	PINOneAttemptLeft       Key = "error_auth_pin_one_attempt_left"
	BiometricAttemptsLeft   Key = "error_auth_biometric_x_attempts_left"
	BiometricOneAttemptLeft Key = "error_auth_biometric_one_attempt_left"
	Blocked                 Key = "error_auth_blocked"
	TempBlocked             Key = "error_auth_blocked_temporary"
)

// Catalog resolves message keys to formatted text. Message generation is a
// collaborator concern; the core treats templates as opaque.
type Catalog interface {
	Get(key Key, args ...any) string
}

type catalog map[Key]string

// Default returns the built-in English catalog.
func Default() Catalog {
	return catalog{
		AuthErrorTitle:   "Authentication error",
		UnknownErrTitle:  "Unknown error",
		PINTitle:         "Wrong PIN",
		BiometricTitle:   "Biometric check failed",
		BlockedTitle:     "Account blocked",
		TempBlockedTitle: "Account temporarily blocked",
		RequestTitle:     "Invalid request",
		ChallengeTitle:   "Invalid challenge",
		AccountTitle:     "Invalid account",

		InvalidQR:               "The scanned QR code is not a valid authentication challenge.",
		UnknownIdentityProvider: "You have no account registered with this identity provider.",
		UnknownIdentity:         "The requested account is not registered on this device.",
		NoIdentities:            "You have no accounts for this identity provider on this device.",
		InvalidChallenge:        "The authentication challenge is not valid.",
		InvalidResponse:         "The server response could not be understood.",
		InvalidProtocol:         "The server protocol version %s is not supported.",
		InvalidRequest:          "The authentication request was rejected by the server.",
		ChallengeInvalid:        "The authentication challenge was rejected by the server.",
		AccountInvalid:          "This account is not known by the server.",
		ConnectError:            "Could not reach the server. Check your connection and try again.",
		UnknownError:            "An unknown error occurred.",
		InvalidKeystore:         "The secure storage on this device is unavailable or corrupted.",
		InvalidKey:              "The stored secret could not be unlocked.",
		SecurityStandards:       "This device does not meet the required security standards.",

		PINAttemptsLeft:         "Wrong PIN. You have %d attempts left.",
		PINOneAttemptLeft:       "Wrong PIN. This is your last attempt before the account is blocked.",
		BiometricAttemptsLeft:   "Biometric check failed. You have %d attempts left.",
		BiometricOneAttemptLeft: "Biometric check failed. This is your last attempt before the account is blocked.",
		Blocked:                 "Your account is blocked. Contact your identity provider.",
		TempBlocked:             "Your account is temporarily blocked. Try again in %d minutes.",
	}
}

func (c catalog) Get(key Key, args ...any) string {
	tmpl, ok := c[key]
	if !ok {
		return string(key)
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

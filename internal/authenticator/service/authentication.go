package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/api"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/domain"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/store"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/text"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/vault"
	"github.com/aussiebroadwan/qrauth/pkg/ocra"
)

// SecretVault is the slice of the vault the coordinator needs.
type SecretVault interface {
	SessionKey(ctx context.Context, factor string) (vault.SessionKey, error)
	SecretRef(identityID string, factor vault.FactorType) vault.Ref
	Load(ctx context.Context, ref vault.Ref, key vault.SessionKey) (*vault.Secret, error)
}

// AuthenticatorAPI is the slice of the API client the coordinator needs.
type AuthenticatorAPI interface {
	Authenticate(ctx context.Context, authURL string, req api.AuthenticateRequest) (*domain.ServerResponse, int, error)
}

// Config is the protocol configuration, immutable after startup.
type Config struct {
	// Scheme is the challenge URL scheme, e.g. "qrauth".
	Scheme string
	// ProtocolVersion is the version this client speaks.
	ProtocolVersion int
	// CompatibilityMode disables the strict server protocol version check.
	CompatibilityMode bool
	// Language is sent with submissions so the server can localize.
	Language string
}

// AuthenticationService drives a challenge from raw scan to server verdict:
// parse, resolve, generate the OTP, submit, interpret. Every step is
// terminal on failure; nothing is retried and nothing is persisted along
// the way.
type AuthenticationService struct {
	Store    store.Store
	Vault    SecretVault
	API      AuthenticatorAPI
	Messages text.Catalog
	Config   Config
	Logger   *slog.Logger
}

// ParseChallenge validates a raw scanned string and resolves it against the
// enrolled providers and identities.
//
// When the provider has several enrolled identities and the challenge does
// not name one, the returned Challenge carries the candidate list and no
// resolved identity; that is a valid outcome the caller must settle before
// completing the challenge.
func (s *AuthenticationService) ParseChallenge(ctx context.Context, rawChallenge string) domain.ParseResult {
	params, ok := domain.ParseAuthenticationURL(s.Config.Scheme, rawChallenge)
	if !ok {
		s.Logger.Error("invalid challenge QR", "scheme", s.Config.Scheme)
		return s.parseFailure(domain.ParseInvalidChallenge, text.AuthErrorTitle, text.InvalidQR)
	}

	provider, err := s.Store.IdentityProviders().GetByIdentifier(ctx, params.ServerIdentifier)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.Logger.Error("identity provider lookup failed", "error", err)
		} else {
			s.Logger.Error("unknown identity provider", "server", params.ServerIdentifier)
		}
		return s.parseFailure(domain.ParseInvalidIdentityProvider, text.AuthErrorTitle, text.UnknownIdentityProvider)
	}

	var (
		identity   domain.Identity
		identities []domain.Identity
	)
	if params.Username != "" {
		identity, err = s.Store.Identities().GetByUsername(ctx, params.Username, provider.Identifier)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				s.Logger.Error("identity lookup failed", "error", err)
			} else {
				s.Logger.Error("unknown identity", "username", params.Username)
			}
			return s.parseFailure(domain.ParseInvalidIdentity, text.AuthErrorTitle, text.UnknownIdentity)
		}
	} else {
		identity, err = s.Store.Identities().GetFirst(ctx, provider.Identifier)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				s.Logger.Error("identity lookup failed", "error", err)
			} else {
				s.Logger.Error("no identities for identity provider", "provider", provider.Identifier)
			}
			return s.parseFailure(domain.ParseNoIdentities, text.AuthErrorTitle, text.NoIdentities)
		}

		// Only an unnamed challenge can be ambiguous. A list failure here
		// degrades to the first identity rather than failing the parse.
		identities, err = s.Store.Identities().List(ctx, provider.Identifier)
		if err != nil {
			s.Logger.Error("identity list failed", "error", err)
			identities = nil
		}
	}

	multiple := len(identities) > 1
	if multiple {
		s.Logger.Debug("challenge matches multiple identities",
			"provider", provider.Identifier,
			"count", len(identities),
		)
	}

	challenge := domain.Challenge{
		ProtocolVersion:            params.ProtocolVersion,
		IdentityProvider:           provider,
		SessionKey:                 params.SessionKey,
		Challenge:                  params.Challenge,
		ReturnURL:                  params.ReturnURL,
		IsStepUp:                   params.Username != "",
		ServiceProviderDisplayName: provider.DisplayName,
	}
	if multiple {
		challenge.Identities = identities
	} else {
		challenge.Identity = &identity
	}
	return domain.ParseSuccess(challenge)
}

// CompleteChallenge generates the OTP for a resolved challenge, submits it
// to the provider and interprets the verdict. All lower-level errors are
// mapped onto the completion failure taxonomy here; none escape.
func (s *AuthenticationService) CompleteChallenge(ctx context.Context, req domain.CompleteRequest) domain.CompleteResult {
	identity := req.Challenge.Identity
	if identity == nil {
		// An ambiguous challenge must be disambiguated by the caller
		// before it can be completed.
		return domain.CompleteFailed(s.completeFailure(
			domain.CompleteInvalidChallenge, text.AuthErrorTitle, text.InvalidChallenge))
	}

	otp, err := s.generateOTP(ctx, req.Credential, *identity, req.Challenge)
	if err != nil {
		s.Logger.Error("authentication failed", "error", err)
		return domain.CompleteFailed(s.otpFailure(err))
	}

	notificationToken, err := s.Store.Preferences().NotificationToken(ctx)
	if err != nil {
		s.Logger.Error("notification token lookup failed", "error", err)
		notificationToken = ""
	}

	response, serverVersion, err := s.API.Authenticate(ctx, req.Challenge.IdentityProvider.AuthenticationURL, api.AuthenticateRequest{
		SessionKey:        req.Challenge.SessionKey,
		UserID:            identity.Identifier,
		Response:          otp,
		Language:          s.Config.Language,
		NotificationToken: notificationToken,
	})
	if err != nil {
		var transportErr *api.TransportError
		if errors.As(err, &transportErr) {
			s.Logger.Error("authentication submission failed, network error", "error", err)
			return domain.CompleteFailed(s.completeFailure(
				domain.CompleteConnection, text.AuthErrorTitle, text.ConnectError))
		}
		s.Logger.Error("authentication submission failed, malformed response", "error", err)
		return domain.CompleteFailed(s.completeFailure(
			domain.CompleteUnknown, text.UnknownErrTitle, text.UnknownError))
	}

	return s.interpretResponse(req.Credential.Type, response, serverVersion)
}

// CompleteOTP generates the OTP for a resolved challenge without submitting
// it. Used when the caller only needs the response value, e.g. for offline
// entry. The error mapping matches CompleteChallenge minus the network
// reasons.
func (s *AuthenticationService) CompleteOTP(ctx context.Context, credential domain.SecretCredential, identity domain.Identity, challenge domain.Challenge) domain.OTPResult {
	otp, err := s.generateOTP(ctx, credential, identity, challenge)
	if err != nil {
		s.Logger.Error("otp generation failed", "error", err)
		return domain.OTPFailed(s.otpFailure(err))
	}
	return domain.OTPSuccess(otp)
}

// generateOTP unwraps the identity's secret gated by the credential and
// computes the OCRA response. The cleartext secret lives only inside this
// call.
func (s *AuthenticationService) generateOTP(ctx context.Context, credential domain.SecretCredential, identity domain.Identity, challenge domain.Challenge) (string, error) {
	sessionKey, err := s.Vault.SessionKey(ctx, credential.Password)
	if err != nil {
		return "", err
	}

	ref := s.Vault.SecretRef(identity.ID, factorType(credential.Type))
	secret, err := s.Vault.Load(ctx, ref, sessionKey)
	if err != nil {
		return "", err
	}
	defer secret.Wipe()

	return ocra.Generate(
		challenge.IdentityProvider.OCRASuite,
		secret.Hex(),
		challenge.Challenge,
		challenge.SessionKey,
	)
}

// otpFailure maps OTP-generation errors 1:1 onto completion failure reasons.
func (s *AuthenticationService) otpFailure(err error) domain.CompleteFailure {
	var formatErr *ocra.FormatError

	switch {
	case errors.As(err, &formatErr):
		return s.completeFailure(domain.CompleteInvalidChallenge, text.AuthErrorTitle, text.InvalidChallenge)
	case errors.Is(err, vault.ErrKeyStore):
		return s.completeFailure(domain.CompleteSecurity, text.AuthErrorTitle, text.InvalidKeystore)
	case errors.Is(err, vault.ErrDeviceIncompatible):
		return s.completeFailure(domain.CompleteDeviceIncompatible, text.AuthErrorTitle, text.SecurityStandards)
	case errors.Is(err, vault.ErrInvalidKey):
		return s.completeFailure(domain.CompleteUnknown, text.AuthErrorTitle, text.InvalidKey)
	default:
		return s.completeFailure(domain.CompleteUnknown, text.UnknownErrTitle, text.UnknownError)
	}
}

func factorType(t domain.SecretType) vault.FactorType {
	if t == domain.SecretTypeBiometric {
		return vault.FactorBiometric
	}
	return vault.FactorPIN
}

func (s *AuthenticationService) parseFailure(reason domain.ParseReason, title, message text.Key, args ...any) domain.ParseResult {
	return domain.ParseFailed(domain.ParseFailure{
		Reason:  reason,
		Title:   s.Messages.Get(title),
		Message: s.Messages.Get(message, args...),
	})
}

func (s *AuthenticationService) completeFailure(reason domain.CompleteReason, title, message text.Key, args ...any) domain.CompleteFailure {
	return domain.CompleteFailure{
		Reason:  reason,
		Title:   s.Messages.Get(title),
		Message: s.Messages.Get(message, args...),
	}
}

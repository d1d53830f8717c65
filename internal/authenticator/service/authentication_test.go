package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/api"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/domain"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/vault"
)

func TestParseChallenge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("single identity resolves directly", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		result := h.svc.ParseChallenge(ctx, challengeURL(""))
		require.True(t, result.OK())

		c := result.Challenge
		require.NotNil(t, c.Identity)
		require.Equal(t, "alice", c.Identity.Identifier)
		require.False(t, c.Ambiguous())
		require.False(t, c.IsStepUp)
		require.Equal(t, 2, c.ProtocolVersion)
		require.Equal(t, "sess123", c.SessionKey)
		require.Equal(t, testChallenge, c.Challenge)
		require.Equal(t, h.provider.DisplayName, c.ServiceProviderDisplayName)
	})

	t.Run("username pins the identity", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.addIdentity(t, "bob")

		result := h.svc.ParseChallenge(ctx, challengeURL("bob"))
		require.True(t, result.OK())
		require.NotNil(t, result.Challenge.Identity)
		require.Equal(t, "bob", result.Challenge.Identity.Identifier)
		require.True(t, result.Challenge.IsStepUp)
		require.False(t, result.Challenge.Ambiguous())
	})

	t.Run("multiple identities without username is ambiguous", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.addIdentity(t, "bob")

		result := h.svc.ParseChallenge(ctx, challengeURL(""))
		require.True(t, result.OK())
		require.Nil(t, result.Challenge.Identity)
		require.Len(t, result.Challenge.Identities, 2)
		require.True(t, result.Challenge.Ambiguous())
	})

	t.Run("blank username resolves like an unnamed challenge", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		raw := challengeURL("") + "&username=%20%20"
		result := h.svc.ParseChallenge(ctx, raw)
		require.True(t, result.OK())
		require.NotNil(t, result.Challenge.Identity)
		require.Equal(t, "alice", result.Challenge.Identity.Identifier)
		require.False(t, result.Challenge.IsStepUp)
	})

	t.Run("list failure degrades to the first identity", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.svc.Store = &listFailStore{Store: h.store, err: errors.New("table locked")}

		result := h.svc.ParseChallenge(ctx, challengeURL(""))
		require.True(t, result.OK())
		require.NotNil(t, result.Challenge.Identity)
		require.Equal(t, "alice", result.Challenge.Identity.Identifier)
		require.False(t, result.Challenge.Ambiguous())
	})

	t.Run("list failure does not affect a named challenge", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.addIdentity(t, "bob")
		h.svc.Store = &listFailStore{Store: h.store, err: errors.New("table locked")}

		result := h.svc.ParseChallenge(ctx, challengeURL("bob"))
		require.True(t, result.OK())
		require.Equal(t, "bob", result.Challenge.Identity.Identifier)
	})

	t.Run("garbage QR", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		result := h.svc.ParseChallenge(ctx, "https://example.org/not-a-challenge")
		require.False(t, result.OK())
		require.Equal(t, domain.ParseInvalidChallenge, result.Failure.Reason)
		require.NotEmpty(t, result.Failure.Title)
		require.NotEmpty(t, result.Failure.Message)
	})

	t.Run("unknown identity provider", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		raw := "qrauth://authenticate?v=2&serverIdentifier=other.example.org&sessionKey=s&challenge=1"
		result := h.svc.ParseChallenge(ctx, raw)
		require.False(t, result.OK())
		require.Equal(t, domain.ParseInvalidIdentityProvider, result.Failure.Reason)
	})

	t.Run("unknown username", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		result := h.svc.ParseChallenge(ctx, challengeURL("mallory"))
		require.False(t, result.OK())
		require.Equal(t, domain.ParseInvalidIdentity, result.Failure.Reason)
	})

	t.Run("provider without identities", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		require.NoError(t, h.store.Identities().Delete(ctx, h.identity.ID))

		result := h.svc.ParseChallenge(ctx, challengeURL(""))
		require.False(t, result.OK())
		require.Equal(t, domain.ParseNoIdentities, result.Failure.Reason)
	})
}

func TestCompleteChallenge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success submits the expected OTP", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		require.NoError(t, h.store.Preferences().SetNotificationToken(ctx, "tok-1"))

		result := h.svc.CompleteChallenge(ctx, domain.CompleteRequest{
			Challenge:  h.parsedChallenge(t),
			Credential: pinCredential(),
		})
		require.True(t, result.OK())

		require.Equal(t, 1, h.api.calls)
		require.Equal(t, h.provider.AuthenticationURL, h.api.gotURL)
		require.Equal(t, testOTP, h.api.got.Response)
		require.Equal(t, "alice", h.api.got.UserID)
		require.Equal(t, "sess123", h.api.got.SessionKey)
		require.Equal(t, "en", h.api.got.Language)
		require.Equal(t, "tok-1", h.api.got.NotificationToken)
	})

	t.Run("ambiguous challenge is rejected before any work", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.addIdentity(t, "bob")

		result := h.svc.CompleteChallenge(ctx, domain.CompleteRequest{
			Challenge:  h.parsedChallenge(t),
			Credential: pinCredential(),
		})
		require.False(t, result.OK())
		require.Equal(t, domain.CompleteInvalidChallenge, result.Failure.Reason)
		require.Zero(t, h.api.calls)
	})

	t.Run("wrong PIN cannot unwrap the secret", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		result := h.svc.CompleteChallenge(ctx, domain.CompleteRequest{
			Challenge:  h.parsedChallenge(t),
			Credential: domain.SecretCredential{Type: domain.SecretTypePIN, Password: "9999"},
		})
		require.False(t, result.OK())
		require.Equal(t, domain.CompleteUnknown, result.Failure.Reason)
		require.Zero(t, h.api.calls)
	})

	t.Run("missing secret maps to a security failure", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ref := h.vault.SecretRef(h.identity.ID, vault.FactorPIN)
		require.NoError(t, h.vault.Delete(ctx, ref))

		result := h.svc.CompleteChallenge(ctx, domain.CompleteRequest{
			Challenge:  h.parsedChallenge(t),
			Credential: pinCredential(),
		})
		require.False(t, result.OK())
		require.Equal(t, domain.CompleteSecurity, result.Failure.Reason)
	})

	t.Run("malformed OCRA suite maps to invalid challenge", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		challenge := h.parsedChallenge(t)
		challenge.IdentityProvider.OCRASuite = "OCRA-2:HOTP-SHA1-6:QN08"

		result := h.svc.CompleteChallenge(ctx, domain.CompleteRequest{
			Challenge:  challenge,
			Credential: pinCredential(),
		})
		require.False(t, result.OK())
		require.Equal(t, domain.CompleteInvalidChallenge, result.Failure.Reason)
	})

	t.Run("network failure maps to connection", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.api.err = &api.TransportError{Err: errors.New("connection refused")}

		result := h.svc.CompleteChallenge(ctx, domain.CompleteRequest{
			Challenge:  h.parsedChallenge(t),
			Credential: pinCredential(),
		})
		require.False(t, result.OK())
		require.Equal(t, domain.CompleteConnection, result.Failure.Reason)
	})

	t.Run("undecodable response maps to unknown", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.api.err = &api.DecodeError{Err: errors.New("bad body")}

		result := h.svc.CompleteChallenge(ctx, domain.CompleteRequest{
			Challenge:  h.parsedChallenge(t),
			Credential: pinCredential(),
		})
		require.False(t, result.OK())
		require.Equal(t, domain.CompleteUnknown, result.Failure.Reason)
	})
}

func TestCompleteOTP(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns the OTP without submitting", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		result := h.svc.CompleteOTP(ctx, pinCredential(), h.identity, h.parsedChallenge(t))
		require.True(t, result.OK())
		require.Equal(t, testOTP, result.OTP)
		require.Zero(t, h.api.calls)
	})

	t.Run("empty factor is rejected", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		result := h.svc.CompleteOTP(ctx, domain.SecretCredential{Type: domain.SecretTypePIN}, h.identity, h.parsedChallenge(t))
		require.False(t, result.OK())
		require.Equal(t, domain.CompleteUnknown, result.Failure.Reason)
	})
}

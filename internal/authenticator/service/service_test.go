package service_test

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/api"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/domain"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/service"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/store"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/store/drivers/sqlite"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/text"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/vault"
	"github.com/aussiebroadwan/qrauth/pkg/idx"
	"github.com/aussiebroadwan/qrauth/pkg/slogx"
)

// RFC 6287 appendix vector: the 20-byte standard key with QN08 challenge
// "00000000" yields 237653.
const (
	testSuite     = "OCRA-1:HOTP-SHA1-6:QN08"
	testSecret    = "12345678901234567890"
	testChallenge = "00000000"
	testOTP       = "237653"
	testPIN       = "1234"
)

type fakeAPI struct {
	resp    *domain.ServerResponse
	version int
	err     error

	calls  int
	gotURL string
	got    api.AuthenticateRequest
}

func (f *fakeAPI) Authenticate(_ context.Context, authURL string, req api.AuthenticateRequest) (*domain.ServerResponse, int, error) {
	f.calls++
	f.gotURL = authURL
	f.got = req
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.resp, f.version, nil
}

// listFailStore wraps a real store but fails every identity List call.
type listFailStore struct {
	store.Store
	err error
}

func (s *listFailStore) Identities() store.Identities {
	return &listFailIdentities{Identities: s.Store.Identities(), err: s.err}
}

type listFailIdentities struct {
	store.Identities
	err error
}

func (i *listFailIdentities) List(context.Context, string) ([]domain.Identity, error) {
	return nil, i.err
}

type harness struct {
	svc   *service.AuthenticationService
	store *sqlite.Store
	vault *vault.Vault
	api   *fakeAPI

	provider domain.IdentityProvider
	identity domain.Identity
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	ks, err := vault.NewFileKeyStore(t.TempDir())
	require.NoError(t, err)

	deviceKey := make([]byte, 32)
	_, err = rand.Read(deviceKey)
	require.NoError(t, err)

	v, err := vault.New(ks, deviceKey, 1_000, slogx.Discard())
	require.NoError(t, err)

	provider := domain.IdentityProvider{
		Identifier:        "idp.example.org",
		DisplayName:       "Example IdP",
		AuthenticationURL: "https://idp.example.org/authenticate",
		OCRASuite:         testSuite,
	}
	require.NoError(t, s.IdentityProviders().Create(ctx, provider))

	identity := domain.Identity{
		ID:                 idx.New().String(),
		Identifier:         "alice",
		DisplayName:        "Alice",
		ProviderIdentifier: provider.Identifier,
	}
	require.NoError(t, s.Identities().Create(ctx, identity))

	sessionKey, err := v.SessionKey(ctx, testPIN)
	require.NoError(t, err)
	ref := v.SecretRef(identity.ID, vault.FactorPIN)
	require.NoError(t, v.Store(ctx, ref, sessionKey, []byte(testSecret)))

	fake := &fakeAPI{
		resp:    &domain.ServerResponse{Code: domain.ResultSuccess},
		version: 3,
	}

	return &harness{
		svc: &service.AuthenticationService{
			Store:    s,
			Vault:    v,
			API:      fake,
			Messages: text.Default(),
			Config: service.Config{
				Scheme:            "qrauth",
				ProtocolVersion:   2,
				CompatibilityMode: true,
				Language:          "en",
			},
			Logger: slogx.Discard(),
		},
		store:    s,
		vault:    v,
		api:      fake,
		provider: provider,
		identity: identity,
	}
}

func (h *harness) addIdentity(t *testing.T, username string) domain.Identity {
	t.Helper()
	id := domain.Identity{
		ID:                 idx.New().String(),
		Identifier:         username,
		DisplayName:        username,
		ProviderIdentifier: h.provider.Identifier,
	}
	require.NoError(t, h.store.Identities().Create(context.Background(), id))
	return id
}

func challengeURL(username string) string {
	u := "qrauth://authenticate?v=2&serverIdentifier=idp.example.org&sessionKey=sess123&challenge=" + testChallenge
	if username != "" {
		u += "&username=" + username
	}
	return u
}

func (h *harness) parsedChallenge(t *testing.T) domain.Challenge {
	t.Helper()
	result := h.svc.ParseChallenge(context.Background(), challengeURL(""))
	require.True(t, result.OK())
	return result.Challenge
}

func pinCredential() domain.SecretCredential {
	return domain.SecretCredential{Type: domain.SecretTypePIN, Password: testPIN}
}

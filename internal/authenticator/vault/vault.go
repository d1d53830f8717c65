// Package vault holds the enrollment secrets. Secrets are encrypted at rest
// twice: the inner layer is sealed with a session key derived from the
// user-supplied factor (PIN or biometric unlock value), the outer layer with
// a device-bound key inside the keystore. Cleartext key material only exists
// inside the scope of a single Load call and must be wiped by the caller as
// soon as the OTP is computed.
package vault

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrKeyStore reports a missing or corrupted secure-storage entry.
	ErrKeyStore = errors.New("vault: keystore entry unavailable")
	// ErrInvalidKey reports that the session key cannot unwrap the secret,
	// i.e. a wrong PIN or an invalidated biometric enrollment.
	ErrInvalidKey = errors.New("vault: session key cannot unwrap secret")
	// ErrDeviceIncompatible reports that the device lacks the crypto
	// primitives the vault depends on.
	ErrDeviceIncompatible = errors.New("vault: required security features unavailable")
)

// Ref names a stored secret blob.
type Ref string

// SessionKey is a key derived from the user factor. It is transient and
// never persisted.
type SessionKey []byte

const (
	sessionKeySize = 32
	saltSize       = 16
	saltRef        = Ref("device/salt")

	// biometricSuffix separates the biometric-gated copy of a secret from
	// the PIN-gated one.
	biometricSuffix = ":biometric"

	// DefaultKDFIterations is the PBKDF2 iteration count used when the
	// config does not override it.
	DefaultKDFIterations = 100_000
)

// FactorType mirrors the two supported unlock factors.
type FactorType string

const (
	FactorPIN       FactorType = "pin"
	FactorBiometric FactorType = "biometric"
)

// Vault gates access to enrollment secrets.
type Vault struct {
	store         KeyStore
	deviceKey     []byte
	kdfIterations int
	logger        *slog.Logger

	salt []byte
}

// New creates a Vault over the given keystore. The device key is the
// platform-held wrapping key (32 bytes); the device-bound KDF salt is
// created in the keystore on first use.
func New(store KeyStore, deviceKey []byte, kdfIterations int, logger *slog.Logger) (*Vault, error) {
	if len(deviceKey) != sessionKeySize {
		return nil, fmt.Errorf("%w: device key must be %d bytes", ErrDeviceIncompatible, sessionKeySize)
	}
	if kdfIterations <= 0 {
		kdfIterations = DefaultKDFIterations
	}

	v := &Vault{
		store:         store,
		deviceKey:     deviceKey,
		kdfIterations: kdfIterations,
		logger:        logger,
	}

	salt, err := v.loadOrCreateSalt()
	if err != nil {
		return nil, err
	}
	v.salt = salt

	return v, nil
}

func (v *Vault) loadOrCreateSalt() ([]byte, error) {
	salt, err := v.store.Load(saltRef, v.deviceKey)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, ErrKeyStore) {
		return nil, err
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceIncompatible, err)
	}
	if err := v.store.Store(saltRef, v.deviceKey, salt); err != nil {
		return nil, err
	}
	v.logger.Info("created device-bound vault salt")
	return salt, nil
}

// SessionKey derives a session key from the user-supplied factor. The
// derivation is deterministic for a given factor and device salt, so the
// same PIN always unwraps the same secrets on this device.
func (v *Vault) SessionKey(ctx context.Context, factor string) (SessionKey, error) {
	if factor == "" {
		return nil, ErrInvalidKey
	}
	key := pbkdf2.Key([]byte(factor), v.salt, v.kdfIterations, sessionKeySize, sha256.New)
	return SessionKey(key), nil
}

// SecretRef resolves which stored blob holds the secret for the given
// identity/factor combination. PIN- and biometric-gated copies live under
// separate refs because they are sealed with different session keys.
func (v *Vault) SecretRef(identityID string, factor FactorType) Ref {
	if factor == FactorBiometric {
		return Ref(identityID + biometricSuffix)
	}
	return Ref(identityID)
}

// Load decrypts and returns the raw OCRA key material for ref. The caller
// owns the returned Secret and must Wipe it after use.
func (v *Vault) Load(ctx context.Context, ref Ref, key SessionKey) (*Secret, error) {
	blob, err := v.store.Load(ref, v.deviceKey)
	if err != nil {
		return nil, err
	}

	raw, err := unseal(blob, key)
	if err != nil {
		// The outer device layer opened but the session key did not:
		// wrong PIN, or a biometric re-enrollment invalidated the key.
		return nil, ErrInvalidKey
	}
	return &Secret{value: raw}, nil
}

// Store seals the raw key material with the session key and writes it to the
// keystore. Used at enrollment and when re-wrapping an entry.
func (v *Vault) Store(ctx context.Context, ref Ref, key SessionKey, raw []byte) error {
	blob, err := seal(raw, key)
	if err != nil {
		return err
	}
	return v.store.Store(ref, v.deviceKey, blob)
}

// Delete removes the stored secret blob for ref.
func (v *Vault) Delete(ctx context.Context, ref Ref) error {
	return v.store.Delete(ref)
}

package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// KeyStore is the platform secure-storage capability. Entries are sealed
// with the caller-provided key; implementations swap per target platform.
type KeyStore interface {
	Load(ref Ref, key []byte) ([]byte, error)
	Store(ref Ref, key []byte, data []byte) error
	Delete(ref Ref) error
}

// FileKeyStore keeps one AES-256-GCM sealed file per entry under a
// directory. It is the keystore used on platforms without a native secure
// element; the directory should be user-private.
type FileKeyStore struct {
	dir string
}

// NewFileKeyStore creates the backing directory if needed.
func NewFileKeyStore(dir string) (*FileKeyStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	return &FileKeyStore{dir: dir}, nil
}

func (k *FileKeyStore) path(ref Ref) string {
	// Refs may contain separators; hex keeps the filename flat and safe.
	return filepath.Join(k.dir, hex.EncodeToString([]byte(ref))+".sealed")
}

func (k *FileKeyStore) Load(ref Ref, key []byte) ([]byte, error) {
	blob, err := os.ReadFile(k.path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no entry for ref", ErrKeyStore)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStore, err)
	}

	data, err := unseal(blob, key)
	if err != nil {
		// The device key is not user-supplied, so a failed outer unseal
		// means the entry is corrupted rather than a wrong factor.
		return nil, fmt.Errorf("%w: entry corrupted", ErrKeyStore)
	}
	return data, nil
}

func (k *FileKeyStore) Store(ref Ref, key []byte, data []byte) error {
	blob, err := seal(data, key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(k.path(ref), blob, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyStore, err)
	}
	return nil
}

func (k *FileKeyStore) Delete(ref Ref) error {
	err := os.Remove(k.path(ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrKeyStore, err)
	}
	return nil
}

// seal encrypts data with AES-256-GCM, nonce prepended.
func seal(data, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceIncompatible, err)
	}
	return aead.Seal(nonce, nonce, data, nil), nil
}

// unseal reverses seal. The returned error is untyped; callers decide
// whether a failed open means a corrupt entry or a wrong key.
func unseal(blob, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < aead.NonceSize() {
		return nil, errors.New("vault: sealed blob too short")
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceIncompatible, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceIncompatible, err)
	}
	return aead, nil
}

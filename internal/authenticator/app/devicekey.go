package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const deviceKeySize = 32

// LoadDeviceKey reads the device wrapping key from path, generating and
// persisting a fresh one on first run. The key seals everything in the
// keystore; losing the file orphans all enrolled secrets.
func LoadDeviceKey(path string, logger *slog.Logger) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, decErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil || len(key) != deviceKeySize {
			return nil, fmt.Errorf("device key file %s is corrupted", path)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read device key: %w", err)
	}

	key := make([]byte, deviceKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate device key: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist device key: %w", err)
	}

	logger.Info("generated new device key", "path", path)
	return key, nil
}

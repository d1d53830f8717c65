package vault

import (
	"encoding/hex"
	"log/slog"
)

// Secret is raw OCRA key material. It exists in cleartext only between a
// Load and the OTP computation that requested it; callers must Wipe it
// immediately after. It refuses to stringify or log itself.
type Secret struct {
	value []byte
}

// NewSecret wraps raw key material, e.g. freshly generated at enrollment.
func NewSecret(raw []byte) *Secret {
	return &Secret{value: raw}
}

// Hex returns the key material hex-encoded, the form the OCRA engine takes.
func (s *Secret) Hex() string {
	return hex.EncodeToString(s.value)
}

// Bytes exposes the raw key material. The slice aliases the secret's
// backing array; it goes dead after Wipe.
func (s *Secret) Bytes() []byte {
	return s.value
}

// Wipe zeroes the key material. Safe to call more than once.
func (s *Secret) Wipe() {
	for i := range s.value {
		s.value[i] = 0
	}
	s.value = s.value[:0]
}

func (s *Secret) String() string { return "secret(redacted)" }

// LogValue keeps the secret out of structured logs even when passed to a
// logger by mistake.
func (s *Secret) LogValue() slog.Value {
	return slog.StringValue("secret(redacted)")
}

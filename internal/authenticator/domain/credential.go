package domain

// SecretType names the user factor that gates the enrollment secret.
type SecretType string

const (
	SecretTypePIN       SecretType = "pin"
	SecretTypeBiometric SecretType = "biometric"
)

// SecretCredential is the transient user-supplied factor used to derive a
// session key. It is never persisted and must not outlive the single
// authentication attempt it was collected for.
type SecretCredential struct {
	Type     SecretType
	Password string
}

// String redacts the factor value; credentials must never end up in logs.
func (c SecretCredential) String() string {
	return "credential(" + string(c.Type) + ", redacted)"
}

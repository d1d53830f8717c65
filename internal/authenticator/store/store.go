package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Lookups report absence with ErrNotFound rather than
// panicking or inventing zero values; the resolver treats absence as a
// normal outcome.
type Store interface {
	IdentityProviders() IdentityProviders
	Identities() Identities
	Preferences() Preferences

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type IdentityProviders interface {
	// GetByIdentifier returns the provider enrolled under the given server
	// identifier.
	GetByIdentifier(ctx context.Context, identifier string) (domain.IdentityProvider, error)

	// Create inserts a provider at enrollment time.
	Create(ctx context.Context, p domain.IdentityProvider) error

	// List returns all enrolled providers ordered by display name.
	List(ctx context.Context) ([]domain.IdentityProvider, error)
}

type Identities interface {
	// GetByUsername returns the identity enrolled for username under the
	// given provider.
	GetByUsername(ctx context.Context, username, providerIdentifier string) (domain.Identity, error)

	// GetFirst returns the first identity enrolled under the provider, in
	// enrollment order.
	GetFirst(ctx context.Context, providerIdentifier string) (domain.Identity, error)

	// List returns all identities under the provider, in enrollment order.
	List(ctx context.Context, providerIdentifier string) ([]domain.Identity, error)

	// Create inserts an identity (id is provided by the app via ULID).
	Create(ctx context.Context, id domain.Identity) error

	// Delete removes an identity.
	Delete(ctx context.Context, id string) error
}

type Preferences interface {
	// NotificationToken returns the stored push notification token, or ""
	// when none is set.
	NotificationToken(ctx context.Context) (string, error)

	// SetNotificationToken stores the push notification token.
	SetNotificationToken(ctx context.Context, token string) error

	// ClearNotificationToken removes the stored push notification token.
	ClearNotificationToken(ctx context.Context) error

	// TokenMigrationExecuted reports whether the one-shot notification
	// token migration already ran.
	TokenMigrationExecuted(ctx context.Context) (bool, error)

	// SetTokenMigrationExecuted records the migration as done.
	SetTokenMigrationExecuted(ctx context.Context) error
}

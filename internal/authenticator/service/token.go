package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/api"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/store"
)

// TokenExchange is the slice of the API client the token service needs.
type TokenExchange interface {
	RegisterDeviceToken(ctx context.Context, deviceToken, notificationToken string) (string, error)
}

// TokenService manages the device's notification token. With the legacy
// exchange enabled the platform device token is traded for a notification
// token; without it the device token is used directly. Exchange failures
// are logged and swallowed; a stale token is a degraded experience, not an
// error the caller can act on.
type TokenService struct {
	Store    store.Store
	Exchange TokenExchange
	// ExchangeEnabled routes tokens through the legacy exchange service.
	ExchangeEnabled bool
	Logger          *slog.Logger
}

// RegisterDeviceToken stores the platform device token, trading it through
// the exchange service first when that is enabled. Best effort; the stored
// token is left untouched when the exchange cannot be reached or does not
// know the device.
func (s *TokenService) RegisterDeviceToken(ctx context.Context, deviceToken string) {
	if deviceToken == "" {
		s.Logger.Warn("empty device token, nothing to register")
		return
	}

	if !s.ExchangeEnabled {
		if err := s.Store.Preferences().SetNotificationToken(ctx, deviceToken); err != nil {
			s.Logger.Error("notification token store failed", "error", err)
		}
		return
	}

	current, err := s.Store.Preferences().NotificationToken(ctx)
	if err != nil {
		s.Logger.Error("notification token lookup failed", "error", err)
		return
	}

	notificationToken, err := s.Exchange.RegisterDeviceToken(ctx, deviceToken, current)
	if err != nil {
		s.Logger.Error("token exchange failed", "error", err)
		return
	}
	if notificationToken == api.TokenNotFound {
		s.Logger.Warn("token exchange does not know this device")
		return
	}

	if err := s.Store.Preferences().SetNotificationToken(ctx, notificationToken); err != nil {
		s.Logger.Error("notification token store failed", "error", err)
	}
}

// MigrateIfNeeded moves an install off the legacy exchange: when the
// exchange is disabled and the migration has not run yet, the stored
// exchanged token is dropped and replaced with the raw platform device
// token. The executed flag is only recorded once a fresh token is actually
// stored, so a failed fetch is retried on the next launch. Installs still
// using the exchange have nothing to migrate.
func (s *TokenService) MigrateIfNeeded(ctx context.Context, fetchDeviceToken func(context.Context) (string, error)) error {
	if s.ExchangeEnabled {
		return nil
	}

	executed, err := s.Store.Preferences().TokenMigrationExecuted(ctx)
	if err != nil {
		return err
	}
	if executed {
		return nil
	}

	if err := s.Store.Preferences().ClearNotificationToken(ctx); err != nil {
		return err
	}

	deviceToken, err := fetchDeviceToken(ctx)
	if err != nil {
		s.Logger.Error("device token fetch failed, migration deferred", "error", err)
		return nil
	}
	if deviceToken == "" {
		s.Logger.Warn("no device token available, migration deferred")
		return nil
	}

	if err := s.Store.Preferences().SetNotificationToken(ctx, deviceToken); err != nil {
		return err
	}
	if err := s.Store.Preferences().SetTokenMigrationExecuted(ctx); err != nil {
		return err
	}

	s.Logger.Info("notification token migrated off the exchange")
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
)

type preferencesRepo struct {
	db *sql.DB
}

const (
	prefNotificationToken      = "notification_token"
	prefTokenMigrationExecuted = "notification_token_migration_executed"
)

func (r *preferencesRepo) get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (r *preferencesRepo) set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (r *preferencesRepo) NotificationToken(ctx context.Context) (string, error) {
	return r.get(ctx, prefNotificationToken)
}

func (r *preferencesRepo) SetNotificationToken(ctx context.Context, token string) error {
	return r.set(ctx, prefNotificationToken, token)
}

func (r *preferencesRepo) ClearNotificationToken(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM preferences WHERE key = ?`, prefNotificationToken,
	)
	return err
}

func (r *preferencesRepo) TokenMigrationExecuted(ctx context.Context) (bool, error) {
	value, err := r.get(ctx, prefTokenMigrationExecuted)
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

func (r *preferencesRepo) SetTokenMigrationExecuted(ctx context.Context) error {
	return r.set(ctx, prefTokenMigrationExecuted, "true")
}

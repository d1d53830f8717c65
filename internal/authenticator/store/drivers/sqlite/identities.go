package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/domain"
)

type identitiesRepo struct {
	db *sql.DB
}

const identityColumns = `id, identifier, display_name, identity_provider_identifier, blocked, created_at`

func (r *identitiesRepo) GetByUsername(ctx context.Context, username, providerIdentifier string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities
		 WHERE identifier = ? AND identity_provider_identifier = ?`,
		username, providerIdentifier,
	)
	id, err := scanIdentity(row)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return id, nil
}

func (r *identitiesRepo) GetFirst(ctx context.Context, providerIdentifier string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities
		 WHERE identity_provider_identifier = ? ORDER BY id LIMIT 1`,
		providerIdentifier,
	)
	id, err := scanIdentity(row)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return id, nil
}

func (r *identitiesRepo) List(ctx context.Context, providerIdentifier string) ([]domain.Identity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities
		 WHERE identity_provider_identifier = ? ORDER BY id`,
		providerIdentifier,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var identities []domain.Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, id)
	}
	return identities, rows.Err()
}

func (r *identitiesRepo) Create(ctx context.Context, id domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, identifier, display_name, identity_provider_identifier, blocked)
		 VALUES (?, ?, ?, ?, ?)`,
		id.ID, id.Identifier, id.DisplayName, id.ProviderIdentifier, id.Blocked,
	)
	return err
}

func (r *identitiesRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	return err
}

func scanIdentity(s scanner) (domain.Identity, error) {
	var id domain.Identity
	err := s.Scan(&id.ID, &id.Identifier, &id.DisplayName, &id.ProviderIdentifier,
		&id.Blocked, &id.CreatedAt)
	if err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

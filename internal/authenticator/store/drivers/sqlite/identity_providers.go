package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/domain"
)

type identityProvidersRepo struct {
	db *sql.DB
}

const identityProviderColumns = `identifier, display_name, authentication_url, ocra_suite, info_url, logo_url, created_at`

func (r *identityProvidersRepo) GetByIdentifier(ctx context.Context, identifier string) (domain.IdentityProvider, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityProviderColumns+` FROM identity_providers WHERE identifier = ?`,
		identifier,
	)
	p, err := scanIdentityProvider(row)
	if err != nil {
		return domain.IdentityProvider{}, mapNotFound(err)
	}
	return p, nil
}

func (r *identityProvidersRepo) Create(ctx context.Context, p domain.IdentityProvider) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identity_providers (identifier, display_name, authentication_url, ocra_suite, info_url, logo_url)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Identifier, p.DisplayName, p.AuthenticationURL, p.OCRASuite,
		mapStringNull(p.InfoURL), mapStringNull(p.LogoURL),
	)
	return err
}

func (r *identityProvidersRepo) List(ctx context.Context) ([]domain.IdentityProvider, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+identityProviderColumns+` FROM identity_providers ORDER BY display_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []domain.IdentityProvider
	for rows.Next() {
		p, err := scanIdentityProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentityProvider(s scanner) (domain.IdentityProvider, error) {
	var (
		p       domain.IdentityProvider
		infoURL sql.NullString
		logoURL sql.NullString
	)
	err := s.Scan(&p.Identifier, &p.DisplayName, &p.AuthenticationURL, &p.OCRASuite,
		&infoURL, &logoURL, &p.CreatedAt)
	if err != nil {
		return domain.IdentityProvider{}, err
	}
	p.InfoURL = mapNullString(infoURL)
	p.LogoURL = mapNullString(logoURL)
	return p, nil
}

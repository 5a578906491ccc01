package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

func (r *Repository) CreateOrganization(org *domain.Organization) error {
	query := `
		INSERT INTO organizations (name, email, phone, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{org.Name, org.Email, org.Phone, org.Address}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&org.ID, &org.CreatedAt, &org.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetOrganizationByID(id int64) (*domain.Organization, error) {
	query := `
		SELECT name, email, phone, address, created_at, version
		FROM organizations WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	org := &domain.Organization{
		ID: id,
	}

	dst := []any{&org.Name, &org.Email, &org.Phone, &org.Address, &org.CreatedAt, &org.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return org, nil
}

func (r *Repository) GetOrganizationByEmail(email string) (*domain.Organization, error) {
	query := `
		SELECT id, name, phone, address, created_at, version
		FROM organizations WHERE email = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	org := &domain.Organization{
		Email: email,
	}

	dst := []any{&org.ID, &org.Name, &org.Phone, &org.Address, &org.CreatedAt, &org.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(dst...); err != nil {
		return nil, err
	}

	return org, nil
}

func (r *Repository) GetAllOrganizations() ([]*domain.Organization, error) {
	query := `
		SELECT id, name, email, phone, address, created_at, version FROM organizations
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := make([]*domain.Organization, 0)
	for rows.Next() {
		org := &domain.Organization{}
		dst := []any{&org.ID, &org.Name, &org.Email, &org.Phone, &org.Address, &org.CreatedAt, &org.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orgs, nil
}

func (r *Repository) UpdateOrganization(org *domain.Organization) error {
	query := `
		UPDATE organizations
		SET
			name = $1,
			email = $2,
			phone = $3,
			address = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{org.Name, org.Email, org.Phone, org.Address, org.ID, org.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&org.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteOrganization(id int64) error {
	query := `
		DELETE FROM organizations WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}

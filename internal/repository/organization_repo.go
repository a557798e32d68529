package repository

import (
	"context"
	"database/sql"

	"github.com/practicehub/ledger/internal/domain"
)

type OrganizationRepo struct {
	db *sql.DB
}

// NewOrganizationRepo creates a new organization and client repository.
func NewOrganizationRepo(db *sql.DB) *OrganizationRepo {
	return &OrganizationRepo{db: db}
}

func (r *OrganizationRepo) Insert(ctx context.Context, org *domain.Organization) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO organizations (id, name, created_at) VALUES (?,?,?)`,
		org.ID, org.Name, formatTime(org.CreatedAt),
	)
	if err != nil {
		return storeErr("insert organization", err)
	}
	return nil
}

func (r *OrganizationRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := conn(ctx, r.db).QueryRowContext(ctx, "SELECT COUNT(*) FROM organizations").Scan(&count); err != nil {
		return 0, storeErr("count organizations", err)
	}
	return count, nil
}

func (r *OrganizationRepo) InsertClient(ctx context.Context, c *domain.Client) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO clients (id, organization_id, name, email, phone, created_at)
		VALUES (?,?,?,?,?,?)`,
		c.ID, c.OrganizationID, c.Name, c.Email, c.Phone, formatTime(c.CreatedAt),
	)
	if err != nil {
		return storeErr("insert client", err)
	}
	return nil
}


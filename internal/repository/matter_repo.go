package repository

import (
	"context"
	"database/sql"

	"github.com/practicehub/ledger/internal/domain"
)

const matterColumns = `id, organization_id, client_id, title, practice_area, status,
	billing_type, hourly_rate, flat_fee_amount, opened_at`

type MatterRepo struct {
	db *sql.DB
}

// NewMatterRepo creates a new matter repository.
func NewMatterRepo(db *sql.DB) *MatterRepo {
	return &MatterRepo{db: db}
}

func (r *MatterRepo) Insert(ctx context.Context, m *domain.Matter) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO matters (`+matterColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.OrganizationID, m.ClientID, m.Title, m.PracticeArea, string(m.Status),
		string(m.BillingType), m.HourlyRate, m.FlatFeeAmount, formatTime(m.OpenedAt),
	)
	if err != nil {
		return storeErr("insert matter", err)
	}
	return nil
}

// GetByID returns the matter only if it belongs to orgID.
func (r *MatterRepo) GetByID(ctx context.Context, orgID, id string) (*domain.Matter, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+matterColumns+" FROM matters WHERE organization_id = ? AND id = ?",
		orgID, id,
	)
	m, err := scanMatter(row)
	if isNoRows(err) {
		return nil, notFound("matter", id)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MatterRepo) ListByOrganization(ctx context.Context, orgID string) ([]domain.Matter, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+matterColumns+" FROM matters WHERE organization_id = ? ORDER BY opened_at, id",
		orgID,
	)
	if err != nil {
		return nil, storeErr("list matters", err)
	}
	defer rows.Close()

	var matters []domain.Matter
	for rows.Next() {
		m, err := scanMatter(rows)
		if err != nil {
			return nil, err
		}
		matters = append(matters, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list matters", err)
	}
	return matters, nil
}

func scanMatter(s scanner) (*domain.Matter, error) {
	var m domain.Matter
	var status, billingType, openedAt string

	err := s.Scan(
		&m.ID, &m.OrganizationID, &m.ClientID, &m.Title, &m.PracticeArea, &status,
		&billingType, &m.HourlyRate, &m.FlatFeeAmount, &openedAt,
	)
	if isNoRows(err) {
		return nil, err
	}
	if err != nil {
		return nil, storeErr("scan matter", err)
	}

	m.Status = domain.MatterStatus(status)
	m.BillingType = domain.BillingType(billingType)
	if m.OpenedAt, err = parseTime(openedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

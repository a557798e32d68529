package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/practicehub/ledger/internal/domain"
)

const billingColumns = `seq, id, organization_id, matter_id, entry_type, description,
	quantity, rate, amount, billable, billed, entry_date, created_at`

type BillingRepo struct {
	db *sql.DB
}

// NewBillingRepo creates a new billing entry repository.
func NewBillingRepo(db *sql.DB) *BillingRepo {
	return &BillingRepo{db: db}
}

func (r *BillingRepo) Insert(ctx context.Context, e *domain.BillingEntry) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO billing_entries
		(id, organization_id, matter_id, entry_type, description, quantity, rate,
		 amount, billable, billed, entry_date, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.OrganizationID, e.MatterID, string(e.EntryType), e.Description,
		e.Quantity, e.Rate, e.Amount, e.Billable, e.Billed,
		formatTime(e.EntryDate), formatTime(e.CreatedAt),
	)
	if err != nil {
		return storeErr("insert billing entry", err)
	}
	return nil
}

type BillingFilter struct {
	MatterID string
	From     *time.Time
	To       *time.Time
}

// List returns an organization's entries ordered by entry date then
// insertion order.
func (r *BillingRepo) List(ctx context.Context, orgID string, f BillingFilter) ([]domain.BillingEntry, error) {
	where, args := buildBillingWhere(orgID, f)

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+billingColumns+" FROM billing_entries"+where+" ORDER BY entry_date, seq",
		args...,
	)
	if err != nil {
		return nil, storeErr("list billing entries", err)
	}
	defer rows.Close()

	var entries []domain.BillingEntry
	for rows.Next() {
		e, err := scanBillingEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list billing entries", err)
	}
	return entries, nil
}

func (r *BillingRepo) ListByOrganization(ctx context.Context, orgID string) ([]domain.BillingEntry, error) {
	return r.List(ctx, orgID, BillingFilter{})
}

// MarkBilled flips billed on every listed entry of the organization. It
// fails with ErrNotFound for an unknown id and ErrConflict if any entry is
// already billed; nothing is written in either case.
func (r *BillingRepo) MarkBilled(ctx context.Context, orgID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, orgID)
	for _, id := range ids {
		args = append(args, id)
	}

	var marked int
	err := withTx(ctx, r.db, func(ctx context.Context, q querier) error {
		rows, err := q.QueryContext(ctx,
			"SELECT id, billed FROM billing_entries WHERE organization_id = ? AND id IN ("+placeholders(len(ids))+")",
			args...,
		)
		if err != nil {
			return storeErr("load billing entries", err)
		}
		found := make(map[string]bool, len(ids))
		for rows.Next() {
			var id string
			var billed bool
			if err := rows.Scan(&id, &billed); err != nil {
				rows.Close()
				return storeErr("scan billing entry", err)
			}
			found[id] = billed
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return storeErr("load billing entries", err)
		}

		for _, id := range ids {
			billed, ok := found[id]
			if !ok {
				return notFound("billing entry", id)
			}
			if billed {
				return fmt.Errorf("billing entry %s already billed: %w", id, domain.ErrConflict)
			}
		}

		res, err := q.ExecContext(ctx,
			"UPDATE billing_entries SET billed = 1 WHERE billed = 0 AND organization_id = ? AND id IN ("+placeholders(len(ids))+")",
			args...,
		)
		if err != nil {
			return storeErr("mark billed", err)
		}
		n, _ := res.RowsAffected()
		marked = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// --- helpers ---

func buildBillingWhere(orgID string, f BillingFilter) (string, []any) {
	clauses := []string{"organization_id = ?"}
	args := []any{orgID}

	if f.MatterID != "" {
		clauses = append(clauses, "matter_id = ?")
		args = append(args, f.MatterID)
	}
	if f.From != nil {
		clauses = append(clauses, "entry_date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "entry_date <= ?")
		args = append(args, formatTime(*f.To))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanBillingEntry(s scanner) (*domain.BillingEntry, error) {
	var e domain.BillingEntry
	var seq int64
	var entryType, entryDate, createdAt string

	err := s.Scan(
		&seq, &e.ID, &e.OrganizationID, &e.MatterID, &entryType, &e.Description,
		&e.Quantity, &e.Rate, &e.Amount, &e.Billable, &e.Billed, &entryDate, &createdAt,
	)
	if err != nil {
		return nil, storeErr("scan billing entry", err)
	}

	e.EntryType = domain.EntryType(entryType)
	if e.EntryDate, err = parseTime(entryDate); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/practicehub/ledger/internal/domain"
)

const trustAccountColumns = `id, organization_id, client_id, account_name, bank_name,
	current_balance, reconciled_balance, status, last_reconciled_at`

const trustTxnColumns = `seq, id, trust_account_id, transaction_type, amount, description,
	reconciled, transaction_date, created_at`

type TrustRepo struct {
	db *sql.DB
}

// NewTrustRepo creates a new trust account and transaction repository.
func NewTrustRepo(db *sql.DB) *TrustRepo {
	return &TrustRepo{db: db}
}

func (r *TrustRepo) InsertAccount(ctx context.Context, a *domain.TrustAccount) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO trust_accounts (`+trustAccountColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.OrganizationID, a.ClientID, a.AccountName, a.BankName,
		a.CurrentBalance, a.ReconciledBalance, string(a.Status),
		formatNullableTime(a.LastReconciledAt),
	)
	if err != nil {
		return storeErr("insert trust account", err)
	}
	return nil
}

// GetAccount returns the account only if it belongs to orgID.
func (r *TrustRepo) GetAccount(ctx context.Context, orgID, id string) (*domain.TrustAccount, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+trustAccountColumns+" FROM trust_accounts WHERE organization_id = ? AND id = ?",
		orgID, id,
	)
	a, err := scanTrustAccount(row)
	if isNoRows(err) {
		return nil, notFound("trust account", id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAccounts returns an organization's accounts ordered by id. An empty
// status returns every account.
func (r *TrustRepo) ListAccounts(ctx context.Context, orgID string, status domain.TrustAccountStatus) ([]domain.TrustAccount, error) {
	query := "SELECT " + trustAccountColumns + " FROM trust_accounts WHERE organization_id = ?"
	args := []any{orgID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id"

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list trust accounts", err)
	}
	defer rows.Close()

	var accounts []domain.TrustAccount
	for rows.Next() {
		a, err := scanTrustAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list trust accounts", err)
	}
	return accounts, nil
}

// InsertTransaction appends a transaction without touching the account
// balance. Used for imports where current_balance is already authoritative.
func (r *TrustRepo) InsertTransaction(ctx context.Context, t *domain.TrustTransaction) error {
	seq, err := insertTrustTxn(ctx, conn(ctx, r.db), t)
	if err != nil {
		return err
	}
	t.Seq = seq
	return nil
}

// RecordTransaction appends a transaction and moves the account's recorded
// balance by its signed amount in one SQL transaction.
func (r *TrustRepo) RecordTransaction(ctx context.Context, t *domain.TrustTransaction) (*domain.TrustAccount, error) {
	var account *domain.TrustAccount
	err := withTx(ctx, r.db, func(ctx context.Context, q querier) error {
		var balance decimal.Decimal
		err := q.QueryRowContext(ctx,
			"SELECT current_balance FROM trust_accounts WHERE id = ?", t.TrustAccountID,
		).Scan(&balance)
		if isNoRows(err) {
			return notFound("trust account", t.TrustAccountID)
		}
		if err != nil {
			return storeErr("load trust balance", err)
		}

		seq, err := insertTrustTxn(ctx, q, t)
		if err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx,
			"UPDATE trust_accounts SET current_balance = ? WHERE id = ?",
			balance.Add(t.Signed()), t.TrustAccountID,
		); err != nil {
			return storeErr("update trust balance", err)
		}

		row := q.QueryRowContext(ctx,
			"SELECT "+trustAccountColumns+" FROM trust_accounts WHERE id = ?", t.TrustAccountID,
		)
		if account, err = scanTrustAccount(row); err != nil {
			return err
		}
		t.Seq = seq
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ListUnreconciled returns the account's unreconciled transactions ordered
// by transaction date, then insertion order.
func (r *TrustRepo) ListUnreconciled(ctx context.Context, accountID string) ([]domain.TrustTransaction, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+trustTxnColumns+` FROM trust_transactions
		WHERE trust_account_id = ? AND reconciled = 0
		ORDER BY transaction_date ASC, seq ASC`,
		accountID,
	)
	if err != nil {
		return nil, storeErr("list unreconciled", err)
	}
	defer rows.Close()

	var txns []domain.TrustTransaction
	for rows.Next() {
		t, err := scanTrustTxn(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list unreconciled", err)
	}
	return txns, nil
}

// ConfirmReconciliation marks exactly the given transactions reconciled and
// advances the account baseline. The account must still hold the expected
// current balance and every transaction must still be unreconciled,
// otherwise ErrConflict is returned and nothing is written.
func (r *TrustRepo) ConfirmReconciliation(
	ctx context.Context,
	accountID string,
	txnIDs []string,
	expectedCurrent decimal.Decimal,
	baseline decimal.Decimal,
	at time.Time,
) error {
	return withTx(ctx, r.db, func(ctx context.Context, q querier) error {
		var current decimal.Decimal
		err := q.QueryRowContext(ctx,
			"SELECT current_balance FROM trust_accounts WHERE id = ?", accountID,
		).Scan(&current)
		if isNoRows(err) {
			return notFound("trust account", accountID)
		}
		if err != nil {
			return storeErr("load trust balance", err)
		}
		if !current.Equal(expectedCurrent) {
			return fmt.Errorf("trust account %s balance changed during confirmation: %w", accountID, domain.ErrConflict)
		}

		if len(txnIDs) > 0 {
			args := make([]any, 0, len(txnIDs)+1)
			args = append(args, accountID)
			for _, id := range txnIDs {
				args = append(args, id)
			}
			res, err := q.ExecContext(ctx,
				"UPDATE trust_transactions SET reconciled = 1 WHERE trust_account_id = ? AND reconciled = 0 AND id IN ("+placeholders(len(txnIDs))+")",
				args...,
			)
			if err != nil {
				return storeErr("mark reconciled", err)
			}
			if n, _ := res.RowsAffected(); int(n) != len(txnIDs) {
				return fmt.Errorf("trust account %s transactions changed during confirmation: %w", accountID, domain.ErrConflict)
			}
		}

		if _, err := q.ExecContext(ctx,
			"UPDATE trust_accounts SET reconciled_balance = ?, last_reconciled_at = ? WHERE id = ?",
			baseline, formatTime(at), accountID,
		); err != nil {
			return storeErr("advance baseline", err)
		}
		return nil
	})
}

// --- helpers ---

func insertTrustTxn(ctx context.Context, db querier, t *domain.TrustTransaction) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO trust_transactions
		(id, trust_account_id, transaction_type, amount, description, reconciled,
		 transaction_date, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		t.ID, t.TrustAccountID, string(t.TransactionType), t.Amount, t.Description,
		t.Reconciled, formatTime(t.TransactionDate), formatTime(t.CreatedAt),
	)
	if err != nil {
		return 0, storeErr("insert trust transaction", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("insert trust transaction", err)
	}
	return seq, nil
}

func scanTrustAccount(s scanner) (*domain.TrustAccount, error) {
	var a domain.TrustAccount
	var status string
	var lastReconciled sql.NullString

	err := s.Scan(
		&a.ID, &a.OrganizationID, &a.ClientID, &a.AccountName, &a.BankName,
		&a.CurrentBalance, &a.ReconciledBalance, &status, &lastReconciled,
	)
	if isNoRows(err) {
		return nil, err
	}
	if err != nil {
		return nil, storeErr("scan trust account", err)
	}

	a.Status = domain.TrustAccountStatus(status)
	if a.LastReconciledAt, err = parseNullableTime(lastReconciled); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanTrustTxn(s scanner) (*domain.TrustTransaction, error) {
	var t domain.TrustTransaction
	var txnType, txnDate, createdAt string

	err := s.Scan(
		&t.Seq, &t.ID, &t.TrustAccountID, &txnType, &t.Amount, &t.Description,
		&t.Reconciled, &txnDate, &createdAt,
	)
	if err != nil {
		return nil, storeErr("scan trust transaction", err)
	}

	t.TransactionType = domain.TrustTransactionType(txnType)
	if !t.TransactionType.Valid() {
		return nil, fmt.Errorf("%w: trust transaction %s has unknown type %q", domain.ErrStore, t.ID, txnType)
	}
	if t.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: trust transaction %s has negative amount %s", domain.ErrStore, t.ID, t.Amount)
	}
	if t.TransactionDate, err = parseTime(txnDate); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/practicehub/ledger/internal/domain"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so that TEXT ordering matches chronological
// ordering. All times are stored in UTC.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Each connection to ":memory:" is a separate database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			FOREIGN KEY (organization_id) REFERENCES organizations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clients_org ON clients(organization_id)`,

		`CREATE TABLE IF NOT EXISTS matters (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			title TEXT NOT NULL,
			practice_area TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			billing_type TEXT NOT NULL,
			hourly_rate TEXT,
			flat_fee_amount TEXT,
			opened_at TEXT NOT NULL,
			FOREIGN KEY (organization_id) REFERENCES organizations(id),
			FOREIGN KEY (client_id) REFERENCES clients(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matters_org ON matters(organization_id)`,

		`CREATE TABLE IF NOT EXISTS billing_entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			organization_id TEXT NOT NULL,
			matter_id TEXT NOT NULL,
			entry_type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			quantity TEXT NOT NULL,
			rate TEXT NOT NULL,
			amount TEXT NOT NULL,
			billable INTEGER NOT NULL,
			billed INTEGER NOT NULL DEFAULT 0,
			entry_date TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (matter_id) REFERENCES matters(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_billing_entries_org ON billing_entries(organization_id)`,
		`CREATE INDEX IF NOT EXISTS idx_billing_entries_matter ON billing_entries(matter_id)`,

		`CREATE TABLE IF NOT EXISTS trust_accounts (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			client_id TEXT NOT NULL DEFAULT '',
			account_name TEXT NOT NULL,
			bank_name TEXT NOT NULL DEFAULT '',
			current_balance TEXT NOT NULL,
			reconciled_balance TEXT NOT NULL,
			status TEXT NOT NULL,
			last_reconciled_at TEXT,
			FOREIGN KEY (organization_id) REFERENCES organizations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trust_accounts_org ON trust_accounts(organization_id)`,

		`CREATE TABLE IF NOT EXISTS trust_transactions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			trust_account_id TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			reconciled INTEGER NOT NULL DEFAULT 0,
			transaction_date TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (trust_account_id) REFERENCES trust_accounts(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trust_txn_account ON trust_transactions(trust_account_id, reconciled)`,

		`CREATE TABLE IF NOT EXISTS compliance_logs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			organization_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id TEXT NOT NULL DEFAULT '',
			compliance_framework TEXT NOT NULL,
			severity TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_compliance_logs_org_time ON compliance_logs(organization_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}

// --- helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStore, err)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed timestamp %q", domain.ErrStore, s)
	}
	return t, nil
}

func parseNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

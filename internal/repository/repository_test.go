package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/practicehub/ledger/internal/domain"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	orgs := NewOrganizationRepo(db)
	for _, id := range []string{"org-1", "org-2"} {
		if err := orgs.Insert(ctx, &domain.Organization{ID: id, Name: id, CreatedAt: t0}); err != nil {
			t.Fatalf("insert org failed: %v", err)
		}
	}
	if err := orgs.InsertClient(ctx, &domain.Client{ID: "cl-1", OrganizationID: "org-1", Name: "Acme", CreatedAt: t0}); err != nil {
		t.Fatalf("insert client failed: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMatterRepo_ScopedByOrganization(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewMatterRepo(db)

	m := &domain.Matter{
		ID: "m-1", OrganizationID: "org-1", ClientID: "cl-1", Title: "Estate",
		Status: domain.MatterOpen, BillingType: domain.BillingHourly,
		HourlyRate: decimal.NewNullDecimal(dec("250.00")), OpenedAt: t0,
	}
	if err := repo.Insert(ctx, m); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "org-1", "m-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.HourlyRate.Valid || !got.HourlyRate.Decimal.Equal(dec("250")) {
		t.Errorf("expected hourly rate 250, got %+v", got.HourlyRate)
	}
	if got.FlatFeeAmount.Valid {
		t.Errorf("expected unset flat fee, got %s", got.FlatFeeAmount.Decimal)
	}

	if _, err := repo.GetByID(ctx, "org-2", "m-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound across organizations, got %v", err)
	}
}

func TestBillingRepo_MarkBilled(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	_ = NewMatterRepo(db).Insert(ctx, &domain.Matter{
		ID: "m-1", OrganizationID: "org-1", ClientID: "cl-1", Title: "Estate",
		Status: domain.MatterOpen, BillingType: domain.BillingHourly, OpenedAt: t0,
	})
	repo := NewBillingRepo(db)

	for _, id := range []string{"be-1", "be-2"} {
		err := repo.Insert(ctx, &domain.BillingEntry{
			ID: id, OrganizationID: "org-1", MatterID: "m-1", EntryType: domain.EntryTime,
			Quantity: dec("2"), Rate: dec("100"), Amount: dec("200"), Billable: true,
			EntryDate: t0, CreatedAt: t0,
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	n, err := repo.MarkBilled(ctx, "org-1", []string{"be-1"})
	if err != nil {
		t.Fatalf("MarkBilled failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}

	if _, err := repo.MarkBilled(ctx, "org-1", []string{"be-2", "be-1"}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict re-billing be-1, got %v", err)
	}
	if _, err := repo.MarkBilled(ctx, "org-1", []string{"missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	entries, err := repo.ListByOrganization(ctx, "org-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 2 || !entries[0].Billed || entries[1].Billed {
		t.Errorf("expected only be-1 billed, got %+v", entries)
	}
}

func TestTrustRepo_ListUnreconciledOrdering(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTrustRepo(db)

	acct := &domain.TrustAccount{
		ID: "ta-1", OrganizationID: "org-1", AccountName: "IOLTA",
		CurrentBalance: dec("1000"), ReconciledBalance: dec("1000"), Status: domain.TrustAccountActive,
	}
	if err := repo.InsertAccount(ctx, acct); err != nil {
		t.Fatalf("insert account failed: %v", err)
	}

	// Inserted out of date order; two share a date.
	txns := []domain.TrustTransaction{
		{ID: "tx-late", TransactionDate: t0.Add(48 * time.Hour)},
		{ID: "tx-same-a", TransactionDate: t0},
		{ID: "tx-same-b", TransactionDate: t0},
		{ID: "tx-done", TransactionDate: t0.Add(-time.Hour), Reconciled: true},
	}
	for i := range txns {
		txns[i].TrustAccountID = "ta-1"
		txns[i].TransactionType = domain.TrustDeposit
		txns[i].Amount = dec("10")
		txns[i].CreatedAt = t0
		if err := repo.InsertTransaction(ctx, &txns[i]); err != nil {
			t.Fatalf("insert txn failed: %v", err)
		}
	}

	got, err := repo.ListUnreconciled(ctx, "ta-1")
	if err != nil {
		t.Fatalf("ListUnreconciled failed: %v", err)
	}
	want := []string{"tx-same-a", "tx-same-b", "tx-late"}
	if len(got) != len(want) {
		t.Fatalf("expected %d txns, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestTrustRepo_RecordAndConfirm(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTrustRepo(db)

	_ = repo.InsertAccount(ctx, &domain.TrustAccount{
		ID: "ta-1", OrganizationID: "org-1", AccountName: "IOLTA",
		CurrentBalance: dec("1000"), ReconciledBalance: dec("1000"), Status: domain.TrustAccountActive,
	})

	acct, err := repo.RecordTransaction(ctx, &domain.TrustTransaction{
		ID: "tx-1", TrustAccountID: "ta-1", TransactionType: domain.TrustWithdrawal,
		Amount: dec("125.50"), TransactionDate: t0, CreatedAt: t0,
	})
	if err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	if !acct.CurrentBalance.Equal(dec("874.50")) {
		t.Errorf("expected balance 874.50, got %s", acct.CurrentBalance)
	}

	if err := repo.ConfirmReconciliation(ctx, "ta-1", []string{"tx-1"}, dec("1"), dec("874.50"), t0); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict on stale balance, got %v", err)
	}

	if err := repo.ConfirmReconciliation(ctx, "ta-1", []string{"tx-1"}, dec("874.50"), dec("874.50"), t0); err != nil {
		t.Fatalf("ConfirmReconciliation failed: %v", err)
	}

	got, err := repo.GetAccount(ctx, "org-1", "ta-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.ReconciledBalance.Equal(dec("874.50")) || got.LastReconciledAt == nil {
		t.Errorf("baseline not advanced: %+v", got)
	}
	remaining, _ := repo.ListUnreconciled(ctx, "ta-1")
	if len(remaining) != 0 {
		t.Errorf("expected no unreconciled txns, got %d", len(remaining))
	}
}

func TestComplianceRepo_ListWindow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewComplianceRepo(db)

	times := []time.Time{t0.Add(-40 * 24 * time.Hour), t0.Add(-time.Hour), t0}
	for i, at := range times {
		err := repo.Append(ctx, &domain.ComplianceLogEntry{
			ID: string(rune('a' + i)), OrganizationID: "org-1", Action: "view",
			ResourceType: "matter", ComplianceFramework: domain.FrameworkGeneral,
			Severity: domain.SeverityInfo, CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	_ = repo.Append(ctx, &domain.ComplianceLogEntry{
		ID: "other-org", OrganizationID: "org-2", Action: "view", ResourceType: "matter",
		ComplianceFramework: domain.FrameworkGeneral, Severity: domain.SeverityInfo, CreatedAt: t0,
	})

	got, err := repo.ListWindow(ctx, "org-1", t0.Add(-30*24*time.Hour), t0)
	if err != nil {
		t.Fatalf("ListWindow failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries in window, got %d", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("expected newest first, got %s, %s", got[0].ID, got[1].ID)
	}
}

func TestTrustRepo_MalformedTransactionIsStoreError(t *testing.T) {
	cases := []struct {
		name   string
		typ    string
		amount string
	}{
		{name: "unknown type", typ: "refund", amount: "100"},
		{name: "negative amount", typ: "deposit", amount: "-100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			db := newTestDB(t)
			repo := NewTrustRepo(db)

			_ = repo.InsertAccount(ctx, &domain.TrustAccount{
				ID: "ta-1", OrganizationID: "org-1", AccountName: "IOLTA",
				CurrentBalance: dec("900"), ReconciledBalance: dec("1000"), Status: domain.TrustAccountActive,
			})
			_, err := db.ExecContext(ctx,
				`INSERT INTO trust_transactions
				(id, trust_account_id, transaction_type, amount, reconciled, transaction_date, created_at)
				VALUES ('tx-bad', 'ta-1', ?, ?, 0, ?, ?)`,
				tc.typ, tc.amount, formatTime(t0), formatTime(t0),
			)
			if err != nil {
				t.Fatalf("raw insert failed: %v", err)
			}

			if _, err := repo.ListUnreconciled(ctx, "ta-1"); !errors.Is(err, domain.ErrStore) {
				t.Errorf("expected ErrStore, got %v", err)
			}
		})
	}
}

func TestTransactor_RollsBackJoinedWrites(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTrustRepo(db)
	logs := NewComplianceRepo(db)
	tx := NewTransactor(db)

	_ = repo.InsertAccount(ctx, &domain.TrustAccount{
		ID: "ta-1", OrganizationID: "org-1", AccountName: "IOLTA",
		CurrentBalance: dec("1000"), ReconciledBalance: dec("1000"), Status: domain.TrustAccountActive,
	})

	errLate := errors.New("late failure")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := repo.RecordTransaction(ctx, &domain.TrustTransaction{
			ID: "tx-1", TrustAccountID: "ta-1", TransactionType: domain.TrustDeposit,
			Amount: dec("50"), TransactionDate: t0, CreatedAt: t0,
		}); err != nil {
			return err
		}
		if err := logs.Append(ctx, &domain.ComplianceLogEntry{
			ID: "log-1", OrganizationID: "org-1", Action: "deposit", ResourceType: "trust_account",
			ComplianceFramework: domain.FrameworkGeneral, Severity: domain.SeverityInfo, CreatedAt: t0,
		}); err != nil {
			return err
		}
		return errLate
	})
	if !errors.Is(err, errLate) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	acct, err := repo.GetAccount(ctx, "org-1", "ta-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !acct.CurrentBalance.Equal(dec("1000")) {
		t.Errorf("balance must be rolled back, got %s", acct.CurrentBalance)
	}
	if txns, _ := repo.ListUnreconciled(ctx, "ta-1"); len(txns) != 0 {
		t.Errorf("transaction must be rolled back, got %d", len(txns))
	}
	if entries, _ := logs.List(ctx, "org-1", ComplianceFilter{}); len(entries) != 0 {
		t.Errorf("log entry must be rolled back, got %d", len(entries))
	}

	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := repo.RecordTransaction(ctx, &domain.TrustTransaction{
			ID: "tx-2", TrustAccountID: "ta-1", TransactionType: domain.TrustDeposit,
			Amount: dec("50"), TransactionDate: t0, CreatedAt: t0,
		})
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx failed: %v", err)
	}
	if acct, _ := repo.GetAccount(ctx, "org-1", "ta-1"); !acct.CurrentBalance.Equal(dec("1050")) {
		t.Errorf("expected committed balance 1050, got %s", acct.CurrentBalance)
	}
}

package analytics

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/practicehub/ledger/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeStores struct {
	matters  []domain.Matter
	entries  []domain.BillingEntry
	accounts []domain.TrustAccount
	err      error
}

func (f *fakeStores) matterStore() MatterStore   { return matterFunc(f.listMatters) }
func (f *fakeStores) entryStore() EntryStore     { return entryFunc(f.listEntries) }
func (f *fakeStores) accountStore() AccountStore { return f }

func (f *fakeStores) listMatters(_ context.Context, _ string) ([]domain.Matter, error) {
	return f.matters, f.err
}

func (f *fakeStores) listEntries(_ context.Context, _ string) ([]domain.BillingEntry, error) {
	return f.entries, nil
}

func (f *fakeStores) ListAccounts(_ context.Context, _ string, status domain.TrustAccountStatus) ([]domain.TrustAccount, error) {
	if status != "" {
		return nil, errors.New("aggregate must read every account")
	}
	return f.accounts, nil
}

type matterFunc func(context.Context, string) ([]domain.Matter, error)

func (fn matterFunc) ListByOrganization(ctx context.Context, orgID string) ([]domain.Matter, error) {
	return fn(ctx, orgID)
}

type entryFunc func(context.Context, string) ([]domain.BillingEntry, error)

func (fn entryFunc) ListByOrganization(ctx context.Context, orgID string) ([]domain.BillingEntry, error) {
	return fn(ctx, orgID)
}

type stubAdvisor struct {
	text   string
	err    error
	prompt string
}

func (a *stubAdvisor) Advise(_ context.Context, prompt string) (string, error) {
	a.prompt = prompt
	return a.text, a.err
}

func newService(stores *fakeStores, adv *stubAdvisor) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	var svc *Service
	if adv == nil {
		svc = NewService(stores.matterStore(), stores.entryStore(), stores.accountStore(), nil, logger)
	} else {
		svc = NewService(stores.matterStore(), stores.entryStore(), stores.accountStore(), adv, logger)
	}
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestSummarize_RealizationRate(t *testing.T) {
	cases := []struct {
		name    string
		entries []domain.BillingEntry
		want    int64
	}{
		{
			name: "eighty percent",
			entries: []domain.BillingEntry{
				{Amount: dec("8000"), Billable: true, Billed: true},
				{Amount: dec("2000"), Billable: true},
			},
			want: 80,
		},
		{name: "no entries", want: 0},
		{
			name: "non-billable ignored",
			entries: []domain.BillingEntry{
				{Amount: dec("500"), Billable: true, Billed: true},
				{Amount: dec("9999"), Billable: false},
			},
			want: 100,
		},
		{
			name: "rounds half away from zero",
			entries: []domain.BillingEntry{
				{Amount: dec("1"), Billable: true, Billed: true},
				{Amount: dec("7"), Billable: true},
			},
			want: 13,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Summarize(nil, tc.entries, nil).RealizationRate
			if got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestSummarize_Breakdowns(t *testing.T) {
	matters := []domain.Matter{
		{ID: "m1", Status: domain.MatterOpen, PracticeArea: "litigation"},
		{ID: "m2", Status: domain.MatterOpen, PracticeArea: "litigation"},
		{ID: "m3", Status: domain.MatterClosed, PracticeArea: "estate"},
		{ID: "m4", Status: domain.MatterPending},
	}
	entries := []domain.BillingEntry{
		{EntryType: domain.EntryTime, Quantity: dec("1.5"), Amount: dec("300"), Billable: true, Billed: true},
		{EntryType: domain.EntryTime, Quantity: dec("2"), Amount: dec("400"), Billable: true},
		{EntryType: domain.EntryTime, Quantity: dec("4"), Amount: dec("800"), Billable: false},
		{EntryType: domain.EntryExpense, Quantity: dec("1"), Amount: dec("45.10"), Billable: true},
	}
	accounts := []domain.TrustAccount{
		{ID: "a1", CurrentBalance: dec("1000.00"), Status: domain.TrustAccountActive},
		{ID: "a2", CurrentBalance: dec("250.25"), Status: domain.TrustAccountClosed},
	}

	s := Summarize(matters, entries, accounts)

	if s.TotalMatters != 4 || s.MattersByStatus[domain.MatterOpen] != 2 || s.MattersByStatus[domain.MatterPending] != 1 {
		t.Errorf("unexpected status counts: %v", s.MattersByStatus)
	}
	if len(s.MattersByPracticeArea) != 2 || s.MattersByPracticeArea["litigation"] != 2 {
		t.Errorf("matters without an area must be omitted: %v", s.MattersByPracticeArea)
	}
	if !s.TotalBilled.Equal(dec("300")) || !s.TotalUnbilled.Equal(dec("445.10")) {
		t.Errorf("unexpected totals billed=%s unbilled=%s", s.TotalBilled, s.TotalUnbilled)
	}
	if !s.BillableHours.Equal(dec("3.5")) {
		t.Errorf("expected 3.5 billable hours, got %s", s.BillableHours)
	}
	if !s.TotalTrustBalance.Equal(dec("1250.25")) || !s.ActiveTrustBalance.Equal(dec("1000.00")) {
		t.Errorf("unexpected trust totals all=%s active=%s", s.TotalTrustBalance, s.ActiveTrustBalance)
	}
}

func TestAggregate_UsesAdvisorText(t *testing.T) {
	stores := &fakeStores{
		entries: []domain.BillingEntry{
			{Amount: dec("100"), Billable: true, Billed: true},
			{Amount: dec("900"), Billable: true},
		},
	}
	adv := &stubAdvisor{text: "bill more"}

	s, err := newService(stores, adv).Aggregate(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if s.Insights != "bill more" || s.OrganizationID != "org-1" {
		t.Errorf("unexpected summary: %+v", s)
	}
	if adv.prompt != "practice summary: matters=0 realization_rate=low unbilled=high" {
		t.Errorf("unexpected prompt %q", adv.prompt)
	}
}

func TestAggregate_AdvisorFailureLeavesFiguresIntact(t *testing.T) {
	stores := &fakeStores{
		entries: []domain.BillingEntry{{Amount: dec("8000"), Billable: true, Billed: true}, {Amount: dec("2000"), Billable: true}},
	}

	s, err := newService(stores, &stubAdvisor{err: errors.New("provider down")}).Aggregate(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("advisor failure must not fail the aggregate: %v", err)
	}
	if s.Insights != "" || s.RealizationRate != 80 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestAggregate_StoreFailure(t *testing.T) {
	stores := &fakeStores{err: domain.ErrStore}

	_, err := newService(stores, nil).Aggregate(context.Background(), "org-1")
	if !errors.Is(err, domain.ErrStore) {
		t.Errorf("expected ErrStore, got %v", err)
	}
}

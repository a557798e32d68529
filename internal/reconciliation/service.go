package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/practicehub/ledger/internal/currency"
	"github.com/practicehub/ledger/internal/domain"
	"github.com/practicehub/ledger/internal/validation"
)

type Status string

const (
	StatusBalanced    Status = "balanced"
	StatusDiscrepancy Status = "discrepancy"
)

// AccountResult is the audit line for one trust account.
type AccountResult struct {
	AccountID         string          `json:"account_id"`
	AccountName       string          `json:"account_name"`
	CurrentBalance    decimal.Decimal `json:"current_balance"`
	ExpectedBalance   decimal.Decimal `json:"expected_balance"`
	Discrepancy       decimal.Decimal `json:"discrepancy"`
	UnreconciledCount int             `json:"unreconciled_count"`
	Status            Status          `json:"status"`
}

// Report summarises a reconciliation run across an organization's active
// trust accounts. Accounts are ordered by id.
type Report struct {
	OrganizationID     string          `json:"organization_id"`
	Accounts           []AccountResult `json:"accounts"`
	TotalDiscrepancy   decimal.Decimal `json:"total_discrepancy"`
	BalancedCount      int             `json:"balanced_count"`
	DiscrepancyCount   int             `json:"discrepancy_count"`
	ReconciliationDate time.Time       `json:"reconciliation_date"`
}

// Confirmation is returned when an account's baseline is advanced.
type Confirmation struct {
	AccountID         string          `json:"account_id"`
	ReconciledBalance decimal.Decimal `json:"reconciled_balance"`
	ReconciledCount   int             `json:"reconciled_count"`
	ConfirmedAt       time.Time       `json:"confirmed_at"`
}

type TrustStore interface {
	GetAccount(ctx context.Context, orgID, id string) (*domain.TrustAccount, error)
	ListAccounts(ctx context.Context, orgID string, status domain.TrustAccountStatus) ([]domain.TrustAccount, error)
	ListUnreconciled(ctx context.Context, accountID string) ([]domain.TrustTransaction, error)
	RecordTransaction(ctx context.Context, t *domain.TrustTransaction) (*domain.TrustAccount, error)
	ConfirmReconciliation(ctx context.Context, accountID string, txnIDs []string, expectedCurrent, baseline decimal.Decimal, at time.Time) error
}

// TransactionRequest records money moving through a trust account.
type TransactionRequest struct {
	TransactionType domain.TrustTransactionType `json:"transaction_type" validate:"required,oneof=deposit interest disbursement withdrawal"`
	Amount          decimal.Decimal             `json:"amount"`
	Description     string                      `json:"description" validate:"max=2000"`
	TransactionDate *time.Time                  `json:"transaction_date"`
}

// Service replays trust transaction history against recorded balances.
type Service struct {
	store  TrustStore
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewService creates a new reconciliation service.
func NewService(store TrustStore, logger logrus.FieldLogger) *Service {
	return &Service{
		store:  store,
		logger: logger.WithField("module", "reconciliation"),
		now:    time.Now,
	}
}

// ReconcileOrganization builds the read-only report for every active trust
// account. Nothing is written.
func (s *Service) ReconcileOrganization(ctx context.Context, orgID string) (*Report, error) {
	accounts, err := s.store.ListAccounts(ctx, orgID, domain.TrustAccountActive)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	report := &Report{
		OrganizationID:     orgID,
		Accounts:           make([]AccountResult, 0, len(accounts)),
		TotalDiscrepancy:   decimal.Zero,
		ReconciliationDate: s.now().UTC(),
	}

	for i := range accounts {
		result, _, err := s.reconcile(ctx, &accounts[i])
		if err != nil {
			return nil, err
		}
		report.Accounts = append(report.Accounts, *result)
		report.TotalDiscrepancy = report.TotalDiscrepancy.Add(result.Discrepancy.Abs())
		if result.Status == StatusBalanced {
			report.BalancedCount++
		} else {
			report.DiscrepancyCount++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id":   orgID,
		"accounts":          len(report.Accounts),
		"balanced":          report.BalancedCount,
		"discrepancies":     report.DiscrepancyCount,
		"total_discrepancy": report.TotalDiscrepancy.StringFixed(currency.Places),
	}).Info("reconciliation report built")

	return report, nil
}

// ReconcileAccount builds the audit line for a single active account.
func (s *Service) ReconcileAccount(ctx context.Context, orgID, accountID string) (*AccountResult, error) {
	account, err := s.activeAccount(ctx, orgID, accountID)
	if err != nil {
		return nil, err
	}
	result, _, err := s.reconcile(ctx, account)
	return result, err
}

// ConfirmAccount is the explicit write-back step: if the account is balanced
// it marks the replayed transactions reconciled and advances the baseline to
// the replayed balance. Unbalanced or closed accounts are refused.
func (s *Service) ConfirmAccount(ctx context.Context, orgID, accountID string) (*Confirmation, error) {
	account, err := s.activeAccount(ctx, orgID, accountID)
	if err != nil {
		return nil, err
	}

	result, txns, err := s.reconcile(ctx, account)
	if err != nil {
		return nil, err
	}
	if result.Status != StatusBalanced {
		return nil, fmt.Errorf("trust account %s has discrepancy %s: %w",
			accountID, result.Discrepancy.StringFixed(currency.Places), domain.ErrConflict)
	}

	ids := make([]string, len(txns))
	for i := range txns {
		ids[i] = txns[i].ID
	}

	at := s.now().UTC()
	if err := s.store.ConfirmReconciliation(ctx, account.ID, ids, account.CurrentBalance, result.ExpectedBalance, at); err != nil {
		return nil, fmt.Errorf("confirm reconciliation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id":    orgID,
		"account_id":         account.ID,
		"reconciled_count":   len(ids),
		"reconciled_balance": result.ExpectedBalance.StringFixed(currency.Places),
	}).Info("reconciliation confirmed")

	return &Confirmation{
		AccountID:         account.ID,
		ReconciledBalance: result.ExpectedBalance,
		ReconciledCount:   len(ids),
		ConfirmedAt:       at,
	}, nil
}

// RecordTransaction appends a transaction to an active account and moves its
// recorded balance.
func (s *Service) RecordTransaction(ctx context.Context, orgID, accountID string, req TransactionRequest) (*domain.TrustTransaction, *domain.TrustAccount, error) {
	if err := validation.Struct(req); err != nil {
		return nil, nil, err
	}
	if req.Amount.IsNegative() {
		return nil, nil, domain.NewValidationError("amount", "gte=0")
	}

	account, err := s.activeAccount(ctx, orgID, accountID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	txn := &domain.TrustTransaction{
		ID:              uuid.NewString(),
		TrustAccountID:  account.ID,
		TransactionType: req.TransactionType,
		Amount:          currency.Round(req.Amount),
		Description:     req.Description,
		TransactionDate: now,
		CreatedAt:       now,
	}
	if req.TransactionDate != nil {
		txn.TransactionDate = req.TransactionDate.UTC()
	}

	updated, err := s.store.RecordTransaction(ctx, txn)
	if err != nil {
		return nil, nil, fmt.Errorf("record transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id": orgID,
		"account_id":      account.ID,
		"transaction_id":  txn.ID,
		"type":            txn.TransactionType,
	}).Info("trust transaction recorded")

	return txn, updated, nil
}

// activeAccount loads an account of orgID and refuses closed ones with
// ErrConflict.
func (s *Service) activeAccount(ctx context.Context, orgID, accountID string) (*domain.TrustAccount, error) {
	account, err := s.store.GetAccount(ctx, orgID, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account.Status != domain.TrustAccountActive {
		return nil, fmt.Errorf("trust account %s is %s: %w", accountID, account.Status, domain.ErrConflict)
	}
	return account, nil
}

func (s *Service) reconcile(ctx context.Context, account *domain.TrustAccount) (*AccountResult, []domain.TrustTransaction, error) {
	txns, err := s.store.ListUnreconciled(ctx, account.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list unreconciled for %s: %w", account.ID, err)
	}
	result := Replay(account, txns)
	return &result, txns, nil
}

// Replay computes an account's audit line from its baseline and the
// unreconciled transactions, which must already be in replay order.
func Replay(account *domain.TrustAccount, txns []domain.TrustTransaction) AccountResult {
	expected := account.ReconciledBalance
	for i := range txns {
		expected = expected.Add(txns[i].Signed())
	}

	discrepancy := account.CurrentBalance.Sub(expected)
	status := StatusDiscrepancy
	if currency.WithinEpsilon(discrepancy) {
		status = StatusBalanced
	}

	return AccountResult{
		AccountID:         account.ID,
		AccountName:       account.AccountName,
		CurrentBalance:    account.CurrentBalance,
		ExpectedBalance:   expected,
		Discrepancy:       discrepancy,
		UnreconciledCount: len(txns),
		Status:            status,
	}
}

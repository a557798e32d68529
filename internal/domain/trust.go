package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TrustAccountStatus string

const (
	TrustAccountActive TrustAccountStatus = "active"
	TrustAccountClosed TrustAccountStatus = "closed"
)

type TrustAccount struct {
	ID                string             `json:"id"`
	OrganizationID    string             `json:"organization_id"`
	ClientID          string             `json:"client_id,omitempty"`
	AccountName       string             `json:"account_name"`
	BankName          string             `json:"bank_name,omitempty"`
	CurrentBalance    decimal.Decimal    `json:"current_balance"`
	ReconciledBalance decimal.Decimal    `json:"reconciled_balance"`
	Status            TrustAccountStatus `json:"status"`
	LastReconciledAt  *time.Time         `json:"last_reconciled_at,omitempty"`
}

type TrustTransactionType string

const (
	TrustDeposit      TrustTransactionType = "deposit"
	TrustInterest     TrustTransactionType = "interest"
	TrustDisbursement TrustTransactionType = "disbursement"
	TrustWithdrawal   TrustTransactionType = "withdrawal"
)

func (t TrustTransactionType) Valid() bool {
	switch t {
	case TrustDeposit, TrustInterest, TrustDisbursement, TrustWithdrawal:
		return true
	}
	return false
}

// Inflow reports whether the type adds to the account balance.
func (t TrustTransactionType) Inflow() bool {
	return t == TrustDeposit || t == TrustInterest
}

// TrustTransaction amounts are never negative; the sign comes from the type.
// Seq is the store's insertion order and breaks ties on TransactionDate.
type TrustTransaction struct {
	ID              string               `json:"id"`
	Seq             int64                `json:"seq"`
	TrustAccountID  string               `json:"trust_account_id"`
	TransactionType TrustTransactionType `json:"transaction_type"`
	Amount          decimal.Decimal      `json:"amount"`
	Description     string               `json:"description,omitempty"`
	Reconciled      bool                 `json:"reconciled"`
	TransactionDate time.Time            `json:"transaction_date"`
	CreatedAt       time.Time            `json:"created_at"`
}

// Signed returns the amount with the sign implied by the transaction type.
func (t *TrustTransaction) Signed() decimal.Decimal {
	if t.TransactionType.Inflow() {
		return t.Amount
	}
	return t.Amount.Neg()
}

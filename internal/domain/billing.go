package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTime    EntryType = "time"
	EntryExpense EntryType = "expense"
	EntryFlatFee EntryType = "flat_fee"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryTime, EntryExpense, EntryFlatFee:
		return true
	}
	return false
}

// BillingEntry is one chargeable unit against a matter. Amount is fixed at
// creation; once Billed is true the entry is never written again.
type BillingEntry struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	MatterID       string          `json:"matter_id"`
	EntryType      EntryType       `json:"entry_type"`
	Description    string          `json:"description,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	Rate           decimal.Decimal `json:"rate"`
	Amount         decimal.Decimal `json:"amount"`
	Billable       bool            `json:"billable"`
	Billed         bool            `json:"billed"`
	EntryDate      time.Time       `json:"entry_date"`
	CreatedAt      time.Time       `json:"created_at"`
}

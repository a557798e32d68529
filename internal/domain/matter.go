package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BillingType string

const (
	BillingHourly      BillingType = "hourly"
	BillingFlatFee     BillingType = "flat_fee"
	BillingContingency BillingType = "contingency"
	BillingRetainer    BillingType = "retainer"
)

type MatterStatus string

const (
	MatterOpen    MatterStatus = "open"
	MatterPending MatterStatus = "pending"
	MatterClosed  MatterStatus = "closed"
)

// Matter is one legal engagement for a client. HourlyRate and FlatFeeAmount
// are optional; an unset value has Valid == false.
type Matter struct {
	ID             string              `json:"id"`
	OrganizationID string              `json:"organization_id"`
	ClientID       string              `json:"client_id"`
	Title          string              `json:"title"`
	PracticeArea   string              `json:"practice_area,omitempty"`
	Status         MatterStatus        `json:"status"`
	BillingType    BillingType         `json:"billing_type"`
	HourlyRate     decimal.NullDecimal `json:"hourly_rate"`
	FlatFeeAmount  decimal.NullDecimal `json:"flat_fee_amount"`
	OpenedAt       time.Time           `json:"opened_at"`
}

// RateOverride returns the matter's hourly rate when it is set and non-zero.
func (m *Matter) RateOverride() (decimal.Decimal, bool) {
	return nonZero(m.HourlyRate)
}

// FlatFeeOverride returns the matter's flat fee when it is set and non-zero.
func (m *Matter) FlatFeeOverride() (decimal.Decimal, bool) {
	return nonZero(m.FlatFeeAmount)
}

func nonZero(v decimal.NullDecimal) (decimal.Decimal, bool) {
	if !v.Valid || v.Decimal.IsZero() {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

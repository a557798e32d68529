package engine

import (
	"time"

	"github.com/practicehub/ledger/internal/billing"
	"github.com/practicehub/ledger/internal/domain"
	"github.com/practicehub/ledger/internal/reconciliation"
	"github.com/practicehub/ledger/internal/repository"
	"github.com/practicehub/ledger/internal/validation"
)

const (
	ActionBillingAutomation   = "billing-automation"
	ActionTrustReconciliation = "trust-reconciliation"
	ActionComplianceReport    = "compliance-report"
	ActionAnalytics           = "analytics"
	ActionTrustConfirmation   = "trust-confirmation"

	ActionBillingEntries   = "billing-entries"
	ActionMarkBilled       = "billing-mark-billed"
	ActionTrustTransaction = "trust-transaction"
	ActionComplianceLogs   = "compliance-logs"
)

// Request is the command envelope accepted by the business hub endpoint.
type Request struct {
	Action         string                `json:"action" validate:"required"`
	OrganizationID string                `json:"organization_id" validate:"required"`
	MatterID       string                `json:"matter_id,omitempty"`
	AccountID      string                `json:"account_id,omitempty"`
	WindowDays     int                   `json:"window_days,omitempty" validate:"gte=0,lte=3650"`
	BillingData    *billing.EntryRequest `json:"billing_data,omitempty" validate:"-"`
}

// Command is closed: only the types in this file implement it.
type Command interface {
	Action() string
	Organization() string
	resourceID() string
	sealed()
}

type BillingAutomation struct {
	OrganizationID string
	Entry          billing.EntryRequest
}

// TrustReconciliation reports on every active account, or on AccountID alone
// when it is set.
type TrustReconciliation struct {
	OrganizationID string
	AccountID      string
}

// ComplianceReport scores the trailing Window. Zero uses the configured
// default.
type ComplianceReport struct {
	OrganizationID string
	Window         time.Duration
}

type Analytics struct {
	OrganizationID string
}

type TrustConfirmation struct {
	OrganizationID string
	AccountID      string
}

type ListBillingEntries struct {
	OrganizationID string
	Filter         repository.BillingFilter
}

type MarkBilled struct {
	OrganizationID string
	EntryIDs       []string
}

type RecordTrustTransaction struct {
	OrganizationID string
	AccountID      string
	Transaction    reconciliation.TransactionRequest
}

type ListComplianceLogs struct {
	OrganizationID string
	Filter         repository.ComplianceFilter
}

func (BillingAutomation) Action() string      { return ActionBillingAutomation }
func (TrustReconciliation) Action() string    { return ActionTrustReconciliation }
func (ComplianceReport) Action() string       { return ActionComplianceReport }
func (Analytics) Action() string              { return ActionAnalytics }
func (TrustConfirmation) Action() string      { return ActionTrustConfirmation }
func (ListBillingEntries) Action() string     { return ActionBillingEntries }
func (MarkBilled) Action() string             { return ActionMarkBilled }
func (RecordTrustTransaction) Action() string { return ActionTrustTransaction }
func (ListComplianceLogs) Action() string     { return ActionComplianceLogs }

func (c BillingAutomation) Organization() string      { return c.OrganizationID }
func (c TrustReconciliation) Organization() string    { return c.OrganizationID }
func (c ComplianceReport) Organization() string       { return c.OrganizationID }
func (c Analytics) Organization() string              { return c.OrganizationID }
func (c TrustConfirmation) Organization() string      { return c.OrganizationID }
func (c ListBillingEntries) Organization() string     { return c.OrganizationID }
func (c MarkBilled) Organization() string             { return c.OrganizationID }
func (c RecordTrustTransaction) Organization() string { return c.OrganizationID }
func (c ListComplianceLogs) Organization() string     { return c.OrganizationID }

func (c BillingAutomation) resourceID() string      { return c.Entry.MatterID }
func (c TrustReconciliation) resourceID() string    { return c.AccountID }
func (ComplianceReport) resourceID() string         { return "" }
func (Analytics) resourceID() string                { return "" }
func (c TrustConfirmation) resourceID() string      { return c.AccountID }
func (c ListBillingEntries) resourceID() string     { return c.Filter.MatterID }
func (MarkBilled) resourceID() string               { return "" }
func (c RecordTrustTransaction) resourceID() string { return c.AccountID }
func (ListComplianceLogs) resourceID() string       { return "" }

func (BillingAutomation) sealed()      {}
func (TrustReconciliation) sealed()    {}
func (ComplianceReport) sealed()       {}
func (Analytics) sealed()              {}
func (TrustConfirmation) sealed()      {}
func (ListBillingEntries) sealed()     {}
func (MarkBilled) sealed()             {}
func (RecordTrustTransaction) sealed() {}
func (ListComplianceLogs) sealed()     {}

// ParseCommand turns a hub request into a typed command. Unknown actions and
// missing fields are validation errors; nothing is coerced.
func ParseCommand(req Request) (Command, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	switch req.Action {
	case ActionBillingAutomation:
		if req.BillingData == nil {
			return nil, domain.NewValidationError("billing_data", "required")
		}
		entry := *req.BillingData
		switch {
		case entry.MatterID == "":
			entry.MatterID = req.MatterID
		case req.MatterID != "" && req.MatterID != entry.MatterID:
			return nil, domain.NewValidationError("matter_id", "eqfield=billing_data.matter_id")
		}
		return BillingAutomation{OrganizationID: req.OrganizationID, Entry: entry}, nil

	case ActionTrustReconciliation:
		return TrustReconciliation{OrganizationID: req.OrganizationID, AccountID: req.AccountID}, nil

	case ActionComplianceReport:
		return ComplianceReport{
			OrganizationID: req.OrganizationID,
			Window:         time.Duration(req.WindowDays) * 24 * time.Hour,
		}, nil

	case ActionAnalytics:
		return Analytics{OrganizationID: req.OrganizationID}, nil

	case ActionTrustConfirmation:
		if req.AccountID == "" {
			return nil, domain.NewValidationError("account_id", "required")
		}
		return TrustConfirmation{OrganizationID: req.OrganizationID, AccountID: req.AccountID}, nil
	}

	return nil, domain.NewValidationError("action",
		"oneof=billing-automation trust-reconciliation compliance-report analytics trust-confirmation")
}

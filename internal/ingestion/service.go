package ingestion

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/practicehub/ledger/internal/billing"
	"github.com/practicehub/ledger/internal/domain"
	"github.com/practicehub/ledger/internal/repository"
)

// Fixture is the on-disk seed format written by testdata/generate.
type Fixture struct {
	Organizations     []domain.Organization       `json:"organizations"`
	Clients           []domain.Client             `json:"clients"`
	Matters           []domain.Matter             `json:"matters"`
	BillingEntries    []domain.BillingEntry       `json:"billing_entries"`
	TrustAccounts     []domain.TrustAccount       `json:"trust_accounts"`
	TrustTransactions []domain.TrustTransaction   `json:"trust_transactions"`
	ComplianceLogs    []domain.ComplianceLogEntry `json:"compliance_logs"`
}

// LoadResult is returned from a successful load.
type LoadResult struct {
	FixtureHash       string `json:"fixture_hash"`
	Organizations     int    `json:"organizations"`
	Clients           int    `json:"clients"`
	Matters           int    `json:"matters"`
	BillingEntries    int    `json:"billing_entries"`
	TrustAccounts     int    `json:"trust_accounts"`
	TrustTransactions int    `json:"trust_transactions"`
	ComplianceLogs    int    `json:"compliance_logs"`
}

// Service loads seed fixtures into an empty ledger store.
type Service struct {
	tx         *repository.Transactor
	orgs       *repository.OrganizationRepo
	matters    *repository.MatterRepo
	entries    *repository.BillingRepo
	trust      *repository.TrustRepo
	compliance *repository.ComplianceRepo
	logger     logrus.FieldLogger
}

// NewService creates a new ingestion service.
func NewService(
	tx *repository.Transactor,
	orgs *repository.OrganizationRepo,
	matters *repository.MatterRepo,
	entries *repository.BillingRepo,
	trust *repository.TrustRepo,
	compliance *repository.ComplianceRepo,
	logger logrus.FieldLogger,
) *Service {
	return &Service{
		tx:         tx,
		orgs:       orgs,
		matters:    matters,
		entries:    entries,
		trust:      trust,
		compliance: compliance,
		logger:     logger.WithField("module", "ingestion"),
	}
}

// Parse decodes and checks a fixture. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, domain.NewValidationError("fixture", "json: "+err.Error())
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the ledger invariants a fixture must already satisfy:
// enum values, non-negative money, and billing amounts that match what the
// billing service would have computed for the owning matter.
func (f *Fixture) Validate() error {
	matters := make(map[string]*domain.Matter, len(f.Matters))
	for i := range f.Matters {
		matters[f.Matters[i].ID] = &f.Matters[i]
	}

	for i, e := range f.BillingEntries {
		field := fmt.Sprintf("billing_entries[%d]", i)
		m, ok := matters[e.MatterID]
		if !ok {
			return domain.NewValidationError(field+".matter_id", "unknown matter "+e.MatterID)
		}
		quantity, rate := e.Quantity, e.Rate
		amount, _, err := billing.ComputeAmount(m, e.EntryType, &quantity, &rate)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if !amount.Equal(e.Amount) {
			return domain.NewValidationError(field+".amount", "eq="+amount.String())
		}
	}

	accounts := make(map[string]bool, len(f.TrustAccounts))
	for _, a := range f.TrustAccounts {
		accounts[a.ID] = true
		if a.Status != domain.TrustAccountActive && a.Status != domain.TrustAccountClosed {
			return domain.NewValidationError("trust_accounts.status", "oneof=active closed")
		}
	}
	for i, t := range f.TrustTransactions {
		field := fmt.Sprintf("trust_transactions[%d]", i)
		if !accounts[t.TrustAccountID] {
			return domain.NewValidationError(field+".trust_account_id", "unknown account "+t.TrustAccountID)
		}
		if !t.TransactionType.Valid() {
			return domain.NewValidationError(field+".transaction_type", "oneof=deposit interest disbursement withdrawal")
		}
		if t.Amount.IsNegative() {
			return domain.NewValidationError(field+".amount", "gte=0")
		}
	}

	for i, e := range f.ComplianceLogs {
		if !e.Severity.Valid() {
			return domain.NewValidationError(fmt.Sprintf("compliance_logs[%d].severity", i), "oneof=info warning critical")
		}
	}
	return nil
}

// Load parses data and inserts every record in dependency order within one
// SQL transaction, so a failed load leaves the store untouched. Trust
// transactions are inserted as-is; account balances in the fixture are
// already authoritative.
func (s *Service) Load(ctx context.Context, data []byte) (*LoadResult, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{FixtureHash: fmt.Sprintf("%x", sha256.Sum256(data))}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.insert(ctx, f, result)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"fixture_hash":       result.FixtureHash[:12],
		"organizations":      result.Organizations,
		"matters":            result.Matters,
		"billing_entries":    result.BillingEntries,
		"trust_accounts":     result.TrustAccounts,
		"trust_transactions": result.TrustTransactions,
		"compliance_logs":    result.ComplianceLogs,
	}).Info("fixture loaded")

	return result, nil
}

func (s *Service) insert(ctx context.Context, f *Fixture, result *LoadResult) error {
	for i := range f.Organizations {
		if err := s.orgs.Insert(ctx, &f.Organizations[i]); err != nil {
			return fmt.Errorf("insert organization: %w", err)
		}
		result.Organizations++
	}
	for i := range f.Clients {
		if err := s.orgs.InsertClient(ctx, &f.Clients[i]); err != nil {
			return fmt.Errorf("insert client: %w", err)
		}
		result.Clients++
	}
	for i := range f.Matters {
		if err := s.matters.Insert(ctx, &f.Matters[i]); err != nil {
			return fmt.Errorf("insert matter: %w", err)
		}
		result.Matters++
	}
	for i := range f.BillingEntries {
		if err := s.entries.Insert(ctx, &f.BillingEntries[i]); err != nil {
			return fmt.Errorf("insert billing entry: %w", err)
		}
		result.BillingEntries++
	}
	for i := range f.TrustAccounts {
		if err := s.trust.InsertAccount(ctx, &f.TrustAccounts[i]); err != nil {
			return fmt.Errorf("insert trust account: %w", err)
		}
		result.TrustAccounts++
	}
	for i := range f.TrustTransactions {
		if err := s.trust.InsertTransaction(ctx, &f.TrustTransactions[i]); err != nil {
			return fmt.Errorf("insert trust transaction: %w", err)
		}
		result.TrustTransactions++
	}
	for i := range f.ComplianceLogs {
		if err := s.compliance.Append(ctx, &f.ComplianceLogs[i]); err != nil {
			return fmt.Errorf("insert compliance log: %w", err)
		}
		result.ComplianceLogs++
	}
	return nil
}

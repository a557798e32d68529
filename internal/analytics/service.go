package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/practicehub/ledger/internal/advisor"
	"github.com/practicehub/ledger/internal/config"
	"github.com/practicehub/ledger/internal/currency"
	"github.com/practicehub/ledger/internal/domain"
)

const lowRealization = 70

type MatterStore interface {
	ListByOrganization(ctx context.Context, orgID string) ([]domain.Matter, error)
}

type EntryStore interface {
	ListByOrganization(ctx context.Context, orgID string) ([]domain.BillingEntry, error)
}

type AccountStore interface {
	ListAccounts(ctx context.Context, orgID string, status domain.TrustAccountStatus) ([]domain.TrustAccount, error)
}

// Summary is the dashboard roll-up for one organization. TotalTrustBalance
// covers every account regardless of status; ActiveTrustBalance only the
// active ones.
type Summary struct {
	OrganizationID        string                      `json:"organization_id"`
	TotalMatters          int                         `json:"total_matters"`
	MattersByStatus       map[domain.MatterStatus]int `json:"matters_by_status"`
	MattersByPracticeArea map[string]int              `json:"matters_by_practice_area"`
	TotalBilled           decimal.Decimal             `json:"total_billed"`
	TotalUnbilled         decimal.Decimal             `json:"total_unbilled"`
	RealizationRate       int64                       `json:"realization_rate"`
	BillableHours         decimal.Decimal             `json:"billable_hours"`
	TotalTrustBalance     decimal.Decimal             `json:"total_trust_balance"`
	ActiveTrustBalance    decimal.Decimal             `json:"active_trust_balance"`
	TrustAccounts         int                         `json:"trust_accounts"`
	Insights              string                      `json:"insights,omitempty"`
	GeneratedAt           time.Time                   `json:"generated_at"`
}

type Service struct {
	matters  MatterStore
	entries  EntryStore
	accounts AccountStore
	advisor  advisor.Advisor
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewService wires the aggregator. adv may be nil, in which case no insights
// are produced.
func NewService(matters MatterStore, entries EntryStore, accounts AccountStore, adv advisor.Advisor, logger logrus.FieldLogger) *Service {
	return &Service{
		matters:  matters,
		entries:  entries,
		accounts: accounts,
		advisor:  adv,
		logger:   logger.WithField("module", "analytics"),
		now:      time.Now,
	}
}

// Aggregate reads the organization's matters, billing entries and trust
// accounts and rolls them up. Advisor failures are logged and leave
// Insights empty.
func (s *Service) Aggregate(ctx context.Context, orgID string) (*Summary, error) {
	matters, err := s.matters.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list matters: %w", err)
	}
	entries, err := s.entries.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list billing entries: %w", err)
	}
	accounts, err := s.accounts.ListAccounts(ctx, orgID, "")
	if err != nil {
		return nil, fmt.Errorf("list trust accounts: %w", err)
	}

	summary := Summarize(matters, entries, accounts)
	summary.OrganizationID = orgID
	summary.GeneratedAt = s.now().UTC()

	if s.advisor != nil {
		text, err := s.advisor.Advise(ctx, Prompt(summary))
		if err != nil {
			config.LogError(s.logger, "analytics", "Aggregate", "advisor failed", orgID, err)
		} else {
			summary.Insights = text
		}
	}

	return summary, nil
}

// Summarize is the pure roll-up over already-loaded records.
func Summarize(matters []domain.Matter, entries []domain.BillingEntry, accounts []domain.TrustAccount) *Summary {
	s := &Summary{
		TotalMatters:          len(matters),
		MattersByStatus:       make(map[domain.MatterStatus]int),
		MattersByPracticeArea: make(map[string]int),
		TotalBilled:           decimal.Zero,
		TotalUnbilled:         decimal.Zero,
		BillableHours:         decimal.Zero,
		TotalTrustBalance:     decimal.Zero,
		ActiveTrustBalance:    decimal.Zero,
		TrustAccounts:         len(accounts),
	}

	for _, m := range matters {
		s.MattersByStatus[m.Status]++
		if area := strings.TrimSpace(m.PracticeArea); area != "" {
			s.MattersByPracticeArea[area]++
		}
	}

	for _, e := range entries {
		switch {
		case e.Billed:
			s.TotalBilled = s.TotalBilled.Add(e.Amount)
		case e.Billable:
			s.TotalUnbilled = s.TotalUnbilled.Add(e.Amount)
		}
		if e.Billable && e.EntryType == domain.EntryTime {
			s.BillableHours = s.BillableHours.Add(e.Quantity)
		}
	}
	s.RealizationRate = currency.Percent(s.TotalBilled, s.TotalBilled.Add(s.TotalUnbilled))

	for _, a := range accounts {
		s.TotalTrustBalance = s.TotalTrustBalance.Add(a.CurrentBalance)
		if a.Status == domain.TrustAccountActive {
			s.ActiveTrustBalance = s.ActiveTrustBalance.Add(a.CurrentBalance)
		}
	}

	return s
}

// Prompt describes the summary in coarse bands for the advisor.
func Prompt(s *Summary) string {
	realization := "healthy"
	if s.RealizationRate < lowRealization {
		realization = "low"
	}
	unbilled := "normal"
	if s.TotalUnbilled.GreaterThan(s.TotalBilled) {
		unbilled = "high"
	}
	return fmt.Sprintf("practice summary: matters=%d realization_rate=%s unbilled=%s",
		s.TotalMatters, realization, unbilled)
}

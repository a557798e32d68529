package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/practicehub/ledger/internal/currency"
	"github.com/practicehub/ledger/internal/domain"
	"github.com/practicehub/ledger/internal/repository"
	"github.com/practicehub/ledger/internal/validation"
)

type MatterStore interface {
	GetByID(ctx context.Context, orgID, id string) (*domain.Matter, error)
}

type EntryStore interface {
	Insert(ctx context.Context, e *domain.BillingEntry) error
	List(ctx context.Context, orgID string, f repository.BillingFilter) ([]domain.BillingEntry, error)
	MarkBilled(ctx context.Context, orgID string, ids []string) (int, error)
}

// EntryRequest is the caller's billing_data. Rate is only a fallback for
// time and flat-fee entries; for expenses it is the amount.
type EntryRequest struct {
	MatterID    string           `json:"matter_id" validate:"required"`
	EntryType   domain.EntryType `json:"entry_type" validate:"required,oneof=time expense flat_fee"`
	Quantity    *decimal.Decimal `json:"quantity"`
	Rate        *decimal.Decimal `json:"rate"`
	Billable    *bool            `json:"billable"`
	Description string           `json:"description" validate:"max=2000"`
	EntryDate   *time.Time       `json:"entry_date"`
}

// Service prices and persists billing entries.
type Service struct {
	matters MatterStore
	entries EntryStore
	logger  logrus.FieldLogger
	now     func() time.Time
}

// NewService creates a new billing service.
func NewService(matters MatterStore, entries EntryStore, logger logrus.FieldLogger) *Service {
	return &Service{
		matters: matters,
		entries: entries,
		logger:  logger.WithField("module", "billing"),
		now:     time.Now,
	}
}

// CreateEntry resolves the matter, computes the amount once and stores the
// entry unbilled. The matter is never modified.
func (s *Service) CreateEntry(ctx context.Context, orgID string, req EntryRequest) (*domain.BillingEntry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	matter, err := s.matters.GetByID(ctx, orgID, req.MatterID)
	if err != nil {
		return nil, fmt.Errorf("resolve matter: %w", err)
	}

	amount, quantity, err := ComputeAmount(matter, req.EntryType, req.Quantity, req.Rate)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := &domain.BillingEntry{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		MatterID:       matter.ID,
		EntryType:      req.EntryType,
		Description:    req.Description,
		Quantity:       quantity,
		Rate:           valueOrZero(req.Rate),
		Amount:         amount,
		Billable:       req.Billable == nil || *req.Billable,
		Billed:         false,
		EntryDate:      now,
		CreatedAt:      now,
	}
	if req.EntryDate != nil {
		entry.EntryDate = req.EntryDate.UTC()
	}

	if err := s.entries.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"organization_id": orgID,
		"matter_id":       matter.ID,
		"entry_id":        entry.ID,
		"entry_type":      entry.EntryType,
		"amount":          entry.Amount.StringFixed(currency.Places),
	}).Info("billing entry created")

	return entry, nil
}

func (s *Service) ListEntries(ctx context.Context, orgID string, f repository.BillingFilter) ([]domain.BillingEntry, error) {
	return s.entries.List(ctx, orgID, f)
}

// MarkBilled flips unbilled entries to billed. Entries already billed are
// rejected with ErrConflict.
func (s *Service) MarkBilled(ctx context.Context, orgID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, domain.NewValidationError("entry_ids", "required")
	}
	n, err := s.entries.MarkBilled(ctx, orgID, ids)
	if err != nil {
		return 0, fmt.Errorf("mark billed: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"organization_id": orgID,
		"count":           n,
	}).Info("billing entries marked billed")
	return n, nil
}

// ComputeAmount prices one entry against the matter's billing terms and
// returns the amount (rounded to cents) and the quantity to store.
//
//	time:     quantity * (matter hourly rate if set and non-zero, else rate)
//	expense:  rate; quantity defaults to 1 and does not affect the amount
//	flat_fee: matter flat fee if set and non-zero, else rate
func ComputeAmount(m *domain.Matter, entryType domain.EntryType, quantity, rate *decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if quantity != nil && quantity.IsNegative() {
		return decimal.Zero, decimal.Zero, domain.NewValidationError("quantity", "gte=0")
	}
	if rate != nil && rate.IsNegative() {
		return decimal.Zero, decimal.Zero, domain.NewValidationError("rate", "gte=0")
	}

	switch entryType {
	case domain.EntryTime:
		if quantity == nil {
			return decimal.Zero, decimal.Zero, domain.NewValidationError("quantity", "required")
		}
		effective, ok := m.RateOverride()
		if !ok {
			if rate == nil {
				return decimal.Zero, decimal.Zero, domain.NewValidationError("rate", "required")
			}
			effective = *rate
		}
		return currency.Round(quantity.Mul(effective)), *quantity, nil

	case domain.EntryExpense:
		if rate == nil {
			return decimal.Zero, decimal.Zero, domain.NewValidationError("rate", "required")
		}
		return currency.Round(*rate), quantityOrOne(quantity), nil

	case domain.EntryFlatFee:
		fee, ok := m.FlatFeeOverride()
		if !ok {
			if rate == nil {
				return decimal.Zero, decimal.Zero, domain.NewValidationError("rate", "required")
			}
			fee = *rate
		}
		return currency.Round(fee), quantityOrOne(quantity), nil
	}

	return decimal.Zero, decimal.Zero, domain.NewValidationError("entry_type", "oneof=time expense flat_fee")
}

func quantityOrOne(q *decimal.Decimal) decimal.Decimal {
	if q == nil {
		return decimal.NewFromInt(1)
	}
	return *q
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

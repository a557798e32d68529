// Package engine authorizes and dispatches practice commands and records
// each successful one in the organization's compliance log.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/practicehub/ledger/internal/analytics"
	"github.com/practicehub/ledger/internal/auth"
	"github.com/practicehub/ledger/internal/billing"
	"github.com/practicehub/ledger/internal/compliance"
	"github.com/practicehub/ledger/internal/config"
	"github.com/practicehub/ledger/internal/domain"
	"github.com/practicehub/ledger/internal/reconciliation"
	"github.com/practicehub/ledger/internal/repository"
)

const selfLogResourceType = "business_hub"

type BillingService interface {
	CreateEntry(ctx context.Context, orgID string, req billing.EntryRequest) (*domain.BillingEntry, error)
	ListEntries(ctx context.Context, orgID string, f repository.BillingFilter) ([]domain.BillingEntry, error)
	MarkBilled(ctx context.Context, orgID string, ids []string) (int, error)
}

type TrustService interface {
	ReconcileOrganization(ctx context.Context, orgID string) (*reconciliation.Report, error)
	ReconcileAccount(ctx context.Context, orgID, accountID string) (*reconciliation.AccountResult, error)
	ConfirmAccount(ctx context.Context, orgID, accountID string) (*reconciliation.Confirmation, error)
	RecordTransaction(ctx context.Context, orgID, accountID string, req reconciliation.TransactionRequest) (*domain.TrustTransaction, *domain.TrustAccount, error)
}

type ComplianceService interface {
	Report(ctx context.Context, orgID string, window time.Duration) (*compliance.Report, error)
	Record(ctx context.Context, e *domain.ComplianceLogEntry) error
	List(ctx context.Context, orgID string, f repository.ComplianceFilter) ([]domain.ComplianceLogEntry, error)
}

type AnalyticsService interface {
	Aggregate(ctx context.Context, orgID string) (*analytics.Summary, error)
}

// Recorder receives command outcomes and the headline figures of reports.
type Recorder interface {
	RecordCommand(action, outcome string, duration time.Duration)
	SetTrustDiscrepancy(orgID string, total decimal.Decimal)
	SetComplianceScore(orgID string, score int)
}

// Transactor scopes a command and its compliance log entry to one unit of
// work: both are stored or neither is.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Services struct {
	Billing    BillingService
	Trust      TrustService
	Compliance ComplianceService
	Analytics  AnalyticsService
	Tx         Transactor
}

type MarkBilledResult struct {
	Marked int `json:"marked"`
}

type TransactionResult struct {
	Transaction *domain.TrustTransaction `json:"transaction"`
	Account     *domain.TrustAccount     `json:"account"`
}

type Engine struct {
	svc     Services
	metrics Recorder
	logger  logrus.FieldLogger
}

// New builds an engine. svc.Tx is required; metrics may be nil.
func New(svc Services, metrics Recorder, logger logrus.FieldLogger) *Engine {
	return &Engine{
		svc:     svc,
		metrics: metrics,
		logger:  logger.WithField("module", "engine"),
	}
}

// Execute checks the caller in ctx against the command's organization, runs
// the command and appends one info entry to the compliance log in the same
// transaction. A failed append fails the call and rolls back the command.
func (e *Engine) Execute(ctx context.Context, cmd Command) (any, error) {
	start := time.Now()

	data, userID, err := e.execute(ctx, cmd)

	outcome := domain.Code(err)
	if e.metrics != nil {
		e.metrics.RecordCommand(cmd.Action(), outcome, time.Since(start))
	}

	fields := logrus.Fields{
		"action":          cmd.Action(),
		"organization_id": cmd.Organization(),
		"user_id":         userID,
		"outcome":         outcome,
		"duration_ms":     time.Since(start).Milliseconds(),
	}
	switch outcome {
	case "ok":
		e.logger.WithFields(fields).Info("command executed")
	case "store", "internal":
		config.LogError(e.logger, "engine", "Execute", cmd.Action(), fields, err)
	default:
		e.logger.WithFields(fields).WithError(err).Warn("command rejected")
	}

	return data, err
}

func (e *Engine) execute(ctx context.Context, cmd Command) (any, string, error) {
	id, err := auth.Authorize(ctx, cmd.Organization())
	if err != nil {
		return nil, "", err
	}

	var data any
	err = e.svc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		result, err := e.dispatch(ctx, cmd)
		if err != nil {
			return err
		}

		entry := &domain.ComplianceLogEntry{
			OrganizationID:      cmd.Organization(),
			UserID:              id.UserID,
			Action:              cmd.Action(),
			ResourceType:        selfLogResourceType,
			ResourceID:          cmd.resourceID(),
			ComplianceFramework: domain.FrameworkGeneral,
			Severity:            domain.SeverityInfo,
		}
		if err := e.svc.Compliance.Record(ctx, entry); err != nil {
			return fmt.Errorf("self-log %s: %w", cmd.Action(), err)
		}
		data = result
		return nil
	})
	if err != nil {
		return nil, id.UserID, err
	}

	e.observe(cmd.Organization(), data)
	return data, id.UserID, nil
}

// observe publishes the headline figures of committed reports.
func (e *Engine) observe(orgID string, data any) {
	if e.metrics == nil {
		return
	}
	switch r := data.(type) {
	case *reconciliation.Report:
		e.metrics.SetTrustDiscrepancy(orgID, r.TotalDiscrepancy)
	case *compliance.Report:
		e.metrics.SetComplianceScore(orgID, r.Score)
	}
}

func (e *Engine) dispatch(ctx context.Context, cmd Command) (any, error) {
	switch c := cmd.(type) {
	case BillingAutomation:
		return e.svc.Billing.CreateEntry(ctx, c.OrganizationID, c.Entry)

	case TrustReconciliation:
		if c.AccountID != "" {
			return e.svc.Trust.ReconcileAccount(ctx, c.OrganizationID, c.AccountID)
		}
		return e.svc.Trust.ReconcileOrganization(ctx, c.OrganizationID)

	case ComplianceReport:
		return e.svc.Compliance.Report(ctx, c.OrganizationID, c.Window)

	case Analytics:
		return e.svc.Analytics.Aggregate(ctx, c.OrganizationID)

	case TrustConfirmation:
		return e.svc.Trust.ConfirmAccount(ctx, c.OrganizationID, c.AccountID)

	case ListBillingEntries:
		entries, err := e.svc.Billing.ListEntries(ctx, c.OrganizationID, c.Filter)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []domain.BillingEntry{}
		}
		return entries, nil

	case MarkBilled:
		n, err := e.svc.Billing.MarkBilled(ctx, c.OrganizationID, c.EntryIDs)
		if err != nil {
			return nil, err
		}
		return &MarkBilledResult{Marked: n}, nil

	case RecordTrustTransaction:
		txn, account, err := e.svc.Trust.RecordTransaction(ctx, c.OrganizationID, c.AccountID, c.Transaction)
		if err != nil {
			return nil, err
		}
		return &TransactionResult{Transaction: txn, Account: account}, nil

	case ListComplianceLogs:
		entries, err := e.svc.Compliance.List(ctx, c.OrganizationID, c.Filter)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []domain.ComplianceLogEntry{}
		}
		return entries, nil
	}

	return nil, domain.NewValidationError("action", fmt.Sprintf("unsupported command %T", cmd))
}

package compliance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/practicehub/ledger/internal/domain"
	"github.com/practicehub/ledger/internal/repository"
)

const recentCriticalLimit = 5

type LogStore interface {
	Append(ctx context.Context, e *domain.ComplianceLogEntry) error
	List(ctx context.Context, orgID string, f repository.ComplianceFilter) ([]domain.ComplianceLogEntry, error)
	ListWindow(ctx context.Context, orgID string, from, to time.Time) ([]domain.ComplianceLogEntry, error)
}

type Report struct {
	OrganizationID string                      `json:"organization_id"`
	WindowStart    time.Time                   `json:"window_start"`
	WindowEnd      time.Time                   `json:"window_end"`
	TotalEvents    int                         `json:"total_events"`
	ByFramework    map[string]int              `json:"by_framework"`
	BySeverity     map[domain.Severity]int     `json:"by_severity"`
	WeightedScore  int64                       `json:"weighted_score"`
	MaxPenalty     int64                       `json:"max_penalty"`
	Score          int                         `json:"score"`
	RecentCritical []domain.ComplianceLogEntry `json:"recent_critical"`
}

// Service scores an organization's compliance log and appends to it.
type Service struct {
	store         LogStore
	defaultWindow time.Duration
	logger        logrus.FieldLogger
	now           func() time.Time
}

// NewService creates a new compliance service. A non-positive defaultWindow falls
// back to thirty days.
func NewService(store LogStore, defaultWindow time.Duration, logger logrus.FieldLogger) *Service {
	if defaultWindow <= 0 {
		defaultWindow = 30 * 24 * time.Hour
	}
	return &Service{
		store:         store,
		defaultWindow: defaultWindow,
		logger:        logger.WithField("module", "compliance"),
		now:           time.Now,
	}
}

// Report scores the events in [now-window, now]. A non-positive window uses
// the service default.
func (s *Service) Report(ctx context.Context, orgID string, window time.Duration) (*Report, error) {
	if window <= 0 {
		window = s.defaultWindow
	}
	end := s.now().UTC()
	start := end.Add(-window)

	events, err := s.store.ListWindow(ctx, orgID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list compliance window: %w", err)
	}

	report := Build(events)
	report.OrganizationID = orgID
	report.WindowStart = start
	report.WindowEnd = end

	s.logger.WithFields(logrus.Fields{
		"organization_id": orgID,
		"events":          report.TotalEvents,
		"score":           report.Score,
	}).Info("compliance report built")

	return report, nil
}

// Build aggregates events into a report without window bounds.
func Build(events []domain.ComplianceLogEntry) *Report {
	report := &Report{
		TotalEvents: len(events),
		ByFramework: make(map[string]int),
		BySeverity: map[domain.Severity]int{
			domain.SeverityInfo:     0,
			domain.SeverityWarning:  0,
			domain.SeverityCritical: 0,
		},
		RecentCritical: []domain.ComplianceLogEntry{},
	}

	var critical []domain.ComplianceLogEntry
	for _, e := range events {
		report.BySeverity[e.Severity]++
		report.ByFramework[e.ComplianceFramework]++
		if e.Severity == domain.SeverityCritical {
			critical = append(critical, e)
		}
	}

	sort.SliceStable(critical, func(i, j int) bool {
		if !critical[i].CreatedAt.Equal(critical[j].CreatedAt) {
			return critical[i].CreatedAt.After(critical[j].CreatedAt)
		}
		return critical[i].Seq > critical[j].Seq
	})
	if len(critical) > recentCriticalLimit {
		critical = critical[:recentCriticalLimit]
	}
	report.RecentCritical = append(report.RecentCritical, critical...)

	report.Score, report.WeightedScore, report.MaxPenalty = Score(report.BySeverity)
	return report
}

// Record appends one event. ID and CreatedAt are filled when empty.
func (s *Service) Record(ctx context.Context, e *domain.ComplianceLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if e.ComplianceFramework == "" {
		e.ComplianceFramework = domain.FrameworkGeneral
	}
	if !e.Severity.Valid() {
		return domain.NewValidationError("severity", "oneof=info warning critical")
	}
	if err := s.store.Append(ctx, e); err != nil {
		return fmt.Errorf("append compliance log: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, orgID string, f repository.ComplianceFilter) ([]domain.ComplianceLogEntry, error) {
	return s.store.List(ctx, orgID, f)
}

package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/practicehub/ledger/internal/domain"
)

const complianceColumns = `seq, id, organization_id, user_id, action, resource_type,
	resource_id, compliance_framework, severity, details, created_at`

// ComplianceRepo is append-only: there is no update or delete.
type ComplianceRepo struct {
	db *sql.DB
}

// NewComplianceRepo creates a new compliance log repository.
func NewComplianceRepo(db *sql.DB) *ComplianceRepo {
	return &ComplianceRepo{db: db}
}

func (r *ComplianceRepo) Append(ctx context.Context, e *domain.ComplianceLogEntry) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO compliance_logs
		(id, organization_id, user_id, action, resource_type, resource_id,
		 compliance_framework, severity, details, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.OrganizationID, e.UserID, e.Action, e.ResourceType, e.ResourceID,
		e.ComplianceFramework, string(e.Severity), e.Details, formatTime(e.CreatedAt),
	)
	if err != nil {
		return storeErr("append compliance log", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		e.Seq = seq
	}
	return nil
}

type ComplianceFilter struct {
	Framework string
	Severity  string
	From      *time.Time
	To        *time.Time
	Limit     int
}

// List returns entries newest first.
func (r *ComplianceRepo) List(ctx context.Context, orgID string, f ComplianceFilter) ([]domain.ComplianceLogEntry, error) {
	where, args := buildComplianceWhere(orgID, f)

	q := "SELECT " + complianceColumns + " FROM compliance_logs" + where + " ORDER BY created_at DESC, seq DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeErr("list compliance logs", err)
	}
	defer rows.Close()

	var entries []domain.ComplianceLogEntry
	for rows.Next() {
		e, err := scanComplianceEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list compliance logs", err)
	}
	return entries, nil
}

// ListWindow returns entries with created_at in [from, to], newest first.
func (r *ComplianceRepo) ListWindow(ctx context.Context, orgID string, from, to time.Time) ([]domain.ComplianceLogEntry, error) {
	return r.List(ctx, orgID, ComplianceFilter{From: &from, To: &to})
}

// --- helpers ---

func buildComplianceWhere(orgID string, f ComplianceFilter) (string, []any) {
	clauses := []string{"organization_id = ?"}
	args := []any{orgID}

	if f.Framework != "" {
		clauses = append(clauses, "compliance_framework = ?")
		args = append(args, f.Framework)
	}
	if f.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, f.Severity)
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, formatTime(*f.To))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanComplianceEntry(s scanner) (*domain.ComplianceLogEntry, error) {
	var e domain.ComplianceLogEntry
	var severity, createdAt string

	err := s.Scan(
		&e.Seq, &e.ID, &e.OrganizationID, &e.UserID, &e.Action, &e.ResourceType,
		&e.ResourceID, &e.ComplianceFramework, &severity, &e.Details, &createdAt,
	)
	if err != nil {
		return nil, storeErr("scan compliance log", err)
	}

	e.Severity = domain.Severity(severity)
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

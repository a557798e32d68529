package domain

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

const (
	FrameworkGeneral = "general"
	FrameworkSOC2    = "soc2"
	FrameworkHIPAA   = "hipaa"
	FrameworkGDPR    = "gdpr"
	FrameworkCCPA    = "ccpa"
)

// ComplianceLogEntry is append-only.
type ComplianceLogEntry struct {
	ID                  string    `json:"id"`
	Seq                 int64     `json:"-"`
	OrganizationID      string    `json:"organization_id"`
	UserID              string    `json:"user_id,omitempty"`
	Action              string    `json:"action"`
	ResourceType        string    `json:"resource_type"`
	ResourceID          string    `json:"resource_id,omitempty"`
	ComplianceFramework string    `json:"compliance_framework"`
	Severity            Severity  `json:"severity"`
	Details             string    `json:"details,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

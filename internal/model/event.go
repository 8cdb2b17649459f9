package model

import "time"

// Event is one audit/event log entry. The log is append-only and best-effort:
// a failed write never rolls back the state change that produced it.
type Event struct {
	ID        string         `json:"id"`
	OrgID     string         `json:"org_id"`
	ProjectID string         `json:"project_id"`
	ClusterID string         `json:"cluster_id"`
	Type      string         `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Event types.
const (
	EventBackupStarted   = "BACKUP_STARTED"
	EventBackupCompleted = "BACKUP_COMPLETED"
	EventBackupFailed    = "BACKUP_FAILED"
	EventBackupDeleted   = "BACKUP_DELETED"
	EventBackupExpired   = "BACKUP_EXPIRED"

	EventRestoreStarted   = "RESTORE_STARTED"
	EventRestoreCompleted = "RESTORE_COMPLETED"
	EventRestoreFailed    = "RESTORE_FAILED"
	EventRestoreCancelled = "RESTORE_CANCELLED"

	EventPolicyUpdated     = "POLICY_UPDATED"
	EventPresetApplied     = "COMPLIANCE_PRESET_APPLIED"
	EventLegalHoldEnabled  = "LEGAL_HOLD_ENABLED"
	EventLegalHoldDisabled = "LEGAL_HOLD_DISABLED"
)

// Event severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

package model

import "time"

// BackupPolicy is the per-cluster backup policy. Exactly one row exists per
// cluster; it is created on first access, never explicitly by a user.
type BackupPolicy struct {
	ID        string `json:"id"`
	ClusterID string `json:"cluster_id"`

	IsEnabled              bool `json:"is_enabled"`
	SnapshotFrequencyHours int  `json:"snapshot_frequency_hours"`
	SnapshotRetentionDays  int  `json:"snapshot_retention_days"`

	ComplianceLevel string   `json:"compliance_level"`
	ComplianceTags  []string `json:"compliance_tags,omitempty"`

	RetentionRules RetentionRules `json:"retention_rules"`

	PITREnabled       bool `json:"pitr_enabled"`
	PITRRetentionDays int  `json:"pitr_retention_days"`

	CrossRegionEnabled bool   `json:"cross_region_enabled"`
	CrossRegionTarget  string `json:"cross_region_target,omitempty"`

	EncryptionEnabled bool   `json:"encryption_enabled"`
	EncryptionKeyID   string `json:"encryption_key_id,omitempty"`

	BackupWindow *BackupWindow `json:"backup_window,omitempty"`

	AlertOnFailure  bool     `json:"alert_on_failure"`
	AlertOnSuccess  bool     `json:"alert_on_success"`
	AlertRecipients []string `json:"alert_recipients,omitempty"`

	LegalHoldEnabled bool       `json:"legal_hold_enabled"`
	LegalHoldReason  string     `json:"legal_hold_reason,omitempty"`
	LegalHoldUntil   *time.Time `json:"legal_hold_until,omitempty"`

	AutoExport *AutoExport `json:"auto_export,omitempty"`

	UpdatedBy string    `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Compliance levels. Everything except custom corresponds to a named preset.
const (
	ComplianceLevelStandard = "standard"
	ComplianceLevelGDPR     = "gdpr"
	ComplianceLevelHIPAA    = "hipaa"
	ComplianceLevelPCIDSS   = "pci-dss"
	ComplianceLevelSOX      = "sox"
	ComplianceLevelCustom   = "custom"
)

// Policy field bounds.
const (
	SnapshotFrequencyHoursMin = 1
	SnapshotFrequencyHoursMax = 168
	SnapshotRetentionDaysMin  = 1
	SnapshotRetentionDaysMax  = 365
	PITRRetentionDaysMin      = 1
	PITRRetentionDaysMax      = 35
)

// RetentionRules are tiered keep-counts, independent of the flat snapshot
// retention. Stored as a jsonb column.
type RetentionRules struct {
	KeepHourly  int `json:"keep_hourly,omitempty"`
	KeepDaily   int `json:"keep_daily,omitempty"`
	KeepWeekly  int `json:"keep_weekly,omitempty"`
	KeepMonthly int `json:"keep_monthly,omitempty"`
	KeepYearly  int `json:"keep_yearly,omitempty"`
}

// BackupWindow restricts when scheduled backups may start.
type BackupWindow struct {
	StartHour     int    `json:"start_hour"`
	DurationHours int    `json:"duration_hours"`
	Timezone      string `json:"timezone"`
}

// AutoExport configures periodic export of completed backups to an external
// S3 bucket.
type AutoExport struct {
	Enabled        bool   `json:"enabled"`
	Bucket         string `json:"bucket"`
	Prefix         string `json:"prefix,omitempty"`
	Region         string `json:"region"`
	FrequencyHours int    `json:"frequency_hours,omitempty"`
}

// ComplianceStatus is the result of evaluating a cluster's policy against
// the compliance rules. It is recomputed on every call, never stored.
type ComplianceStatus struct {
	Compliant       bool     `json:"compliant"`
	Level           string   `json:"level"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

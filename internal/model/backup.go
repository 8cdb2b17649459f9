package model

import "time"

type Backup struct {
	ID          string `json:"id"`
	ClusterID   string `json:"cluster_id"`
	ProjectID   string `json:"project_id"`
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Status      string `json:"status"`

	StorageType         string `json:"storage_type,omitempty"`
	StoragePath         string `json:"storage_path,omitempty"`
	SizeBytes           int64  `json:"size_bytes"`
	CompressedSizeBytes int64  `json:"compressed_size_bytes"`

	RetentionDays int        `json:"retention_days"`
	ExpiresAt     time.Time  `json:"expires_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	PointInTimeEnabled bool       `json:"point_in_time_enabled"`
	OplogStartTime     *time.Time `json:"oplog_start_time,omitempty"`
	OplogEndTime       *time.Time `json:"oplog_end_time,omitempty"`

	ErrorMessage *string        `json:"error_message,omitempty"`
	Metadata     BackupMetadata `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	BackupTypeManual    = "manual"
	BackupTypeScheduled = "scheduled"
	BackupTypeAutomated = "automated"
)

// Retention bounds for a single backup, in days.
const (
	BackupRetentionDaysMin     = 1
	BackupRetentionDaysMax     = 365
	BackupRetentionDaysDefault = 7
)

// BackupMetadata holds engine-reported counts recorded on completion, plus
// the exported copy's location when auto-export ran. Stored as a jsonb column.
type BackupMetadata struct {
	Databases      int    `json:"databases,omitempty"`
	Collections    int    `json:"collections,omitempty"`
	Documents      int64  `json:"documents,omitempty"`
	Indexes        int    `json:"indexes,omitempty"`
	ExportLocation string `json:"export_location,omitempty"`
}

// BackupStats aggregates a cluster's backup history.
type BackupStats struct {
	Total               int   `json:"total"`
	Completed           int   `json:"completed"`
	Failed              int   `json:"failed"`
	Active              int   `json:"active"`
	TotalSizeBytes      int64 `json:"total_size_bytes"`
	CompressedSizeBytes int64 `json:"compressed_size_bytes"`
}

package model

import "time"

// Restore is one point-in-time-recovery attempt against a cluster.
type Restore struct {
	ID             string  `json:"id"`
	ClusterID      string  `json:"cluster_id"`
	ProjectID      string  `json:"project_id"`
	OrgID          string  `json:"org_id"`
	SourceBackupID *string `json:"source_backup_id,omitempty"`

	RestorePoint    time.Time `json:"restore_point"`
	TargetClusterID *string   `json:"target_cluster_id,omitempty"`

	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"current_step,omitempty"`

	ErrorMessage *string `json:"error_message,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

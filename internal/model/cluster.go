package model

import "time"

// Cluster is a hosted database cluster. The control plane owns the record;
// the provisioning worker owns the infrastructure behind it, including the
// PITR restore window columns.
type Cluster struct {
	ID            string `json:"id"`
	OrgID         string `json:"org_id"`
	ProjectID     string `json:"project_id"`
	Name          string `json:"name"`
	Plan          string `json:"plan"`
	EngineVersion string `json:"engine_version"`
	Status        string `json:"status"`

	// Restore window bounds, advanced by the worker as oplog is retained
	// and trimmed. Nil until PITR has produced a usable window.
	OldestRestorePoint *time.Time `json:"oldest_restore_point,omitempty"`
	NewestRestorePoint *time.Time `json:"newest_restore_point,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

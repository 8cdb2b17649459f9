package model

// Provisioning job types handed to the worker.
const (
	JobTypeBackupCluster  = "BACKUP_CLUSTER"
	JobTypeRestoreCluster = "RESTORE_CLUSTER"
)

// ProvisionTask is a work order for the provisioning worker. Payload carries
// the entity id; the ownership chain travels with it for observability.
type ProvisionTask struct {
	JobType   string `json:"job_type"`
	EntityID  string `json:"entity_id"`
	ClusterID string `json:"cluster_id"`
	ProjectID string `json:"project_id"`
	OrgID     string `json:"org_id"`
}

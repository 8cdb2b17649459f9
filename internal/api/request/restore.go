package request

import "time"

type CreateRestore struct {
	RestorePoint    time.Time `json:"restore_point" validate:"required"`
	TargetClusterID *string   `json:"target_cluster_id,omitempty"`
	RequestedBy     string    `json:"requested_by,omitempty"`
}

// UpdateRestoreProgress is the worker's callback payload.
type UpdateRestoreProgress struct {
	Status      string `json:"status" validate:"required"`
	Progress    int    `json:"progress" validate:"min=0,max=100"`
	CurrentStep string `json:"current_step,omitempty"`
}

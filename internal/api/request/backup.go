package request

type CreateBackup struct {
	Name               string `json:"name" validate:"required"`
	Description        string `json:"description,omitempty"`
	Type               string `json:"type" validate:"required,oneof=manual scheduled automated"`
	RetentionDays      *int   `json:"retention_days,omitempty" validate:"omitempty,min=1,max=365"`
	PointInTimeEnabled bool   `json:"point_in_time_enabled,omitempty"`
	RequestedBy        string `json:"requested_by,omitempty"`
}

type RestoreBackup struct {
	TargetClusterID *string `json:"target_cluster_id,omitempty"`
	RequestedBy     string  `json:"requested_by,omitempty"`
}

package request

type CreateCluster struct {
	OrgID         string `json:"org_id" validate:"required"`
	ProjectID     string `json:"project_id" validate:"required"`
	Name          string `json:"name" validate:"required,slug"`
	Plan          string `json:"plan" validate:"required"`
	EngineVersion string `json:"engine_version" validate:"required"`
}

type UpdateClusterStatus struct {
	Status string `json:"status" validate:"required,oneof=provisioning ready degraded suspended deleting deleted"`
}

package core

// Services bundles the control-plane service layer for wiring into servers.
type Services struct {
	Cluster *ClusterService
	Backup  *BackupService
	Policy  *PolicyService
	Restore *RestoreService
}

func NewServices(db DB, jobs Dispatcher, events EventSink) *Services {
	cluster := NewClusterService(db)
	policy := NewPolicyService(db, DefaultPresets(), events)
	restore := NewRestoreService(db, jobs, cluster, events)
	backup := NewBackupService(db, jobs, cluster, policy, restore, events)

	return &Services{
		Cluster: cluster,
		Backup:  backup,
		Policy:  policy,
		Restore: restore,
	}
}

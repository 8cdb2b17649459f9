package model

// Backup status constants. A backup only moves forward through these states,
// with one exception: restoring goes back to completed once the restore no
// longer needs the source snapshot.
const (
	BackupStatusPending    = "pending"
	BackupStatusInProgress = "in_progress"
	BackupStatusCompleted  = "completed"
	BackupStatusFailed     = "failed"
	BackupStatusRestoring  = "restoring"
	BackupStatusDeleted    = "deleted"
)

// Restore status constants, in workflow order.
const (
	RestoreStatusPending           = "pending"
	RestoreStatusPreparing         = "preparing"
	RestoreStatusRestoringSnapshot = "restoring_snapshot"
	RestoreStatusApplyingOplog     = "applying_oplog"
	RestoreStatusVerifying         = "verifying"
	RestoreStatusCompleted         = "completed"
	RestoreStatusFailed            = "failed"
	RestoreStatusCancelled         = "cancelled"
)

// restoreStatusRank orders the non-terminal restore states. Terminal states
// are handled separately since failed/cancelled are reachable from anywhere.
var restoreStatusRank = map[string]int{
	RestoreStatusPending:           0,
	RestoreStatusPreparing:         1,
	RestoreStatusRestoringSnapshot: 2,
	RestoreStatusApplyingOplog:     3,
	RestoreStatusVerifying:         4,
	RestoreStatusCompleted:         5,
}

// RestoreStatusRank returns the position of a restore status in the forward
// order, or -1 for failed/cancelled/unknown.
func RestoreStatusRank(status string) int {
	rank, ok := restoreStatusRank[status]
	if !ok {
		return -1
	}
	return rank
}

// IsRestoreTerminal reports whether a restore status accepts no further
// transitions.
func IsRestoreTerminal(status string) bool {
	switch status {
	case RestoreStatusCompleted, RestoreStatusFailed, RestoreStatusCancelled:
		return true
	}
	return false
}

// CanTransitionRestore reports whether a restore may move from one status to
// another: strictly forward along the step order, or an early exit to
// failed/cancelled from any non-terminal state.
func CanTransitionRestore(from, to string) bool {
	if IsRestoreTerminal(from) {
		return false
	}
	if to == RestoreStatusFailed || to == RestoreStatusCancelled {
		return true
	}
	fromRank, toRank := RestoreStatusRank(from), RestoreStatusRank(to)
	if fromRank < 0 || toRank < 0 {
		return false
	}
	return toRank > fromRank
}

// Cluster status constants.
const (
	ClusterStatusProvisioning = "provisioning"
	ClusterStatusReady        = "ready"
	ClusterStatusDegraded     = "degraded"
	ClusterStatusSuspended    = "suspended"
	ClusterStatusDeleting     = "deleting"
	ClusterStatusDeleted      = "deleted"
)

// ClusterAcceptsBackup reports whether a cluster is in a state that tolerates
// taking a backup or serving as a restore source.
func ClusterAcceptsBackup(status string) bool {
	return status == ClusterStatusReady || status == ClusterStatusDegraded
}

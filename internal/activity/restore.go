package activity

import (
	"context"
	"fmt"

	"github.com/stratumdb/controlplane/internal/core"
	"github.com/stratumdb/controlplane/internal/model"
)

// RestoreActivities drive restore lifecycle transitions from inside the
// worker.
type RestoreActivities struct {
	restores *core.RestoreService
	backups  *core.BackupService
	clusters *core.ClusterService
}

func NewRestoreActivities(restores *core.RestoreService, backups *core.BackupService, clusters *core.ClusterService) *RestoreActivities {
	return &RestoreActivities{restores: restores, backups: backups, clusters: clusters}
}

// RestoreContext bundles everything the restore workflow needs up front.
// SourceBackup is the explicit source when the restore came from a backup,
// otherwise the resolved point-in-time baseline snapshot.
type RestoreContext struct {
	Restore      model.Restore
	Cluster      model.Cluster
	SourceBackup *model.Backup
}

func (a *RestoreActivities) GetRestoreContext(ctx context.Context, restoreID string) (*RestoreContext, error) {
	restore, err := a.restores.GetByID(ctx, restoreID)
	if err != nil {
		return nil, fmt.Errorf("get restore context: %w", err)
	}
	cluster, err := a.clusters.GetByID(ctx, restore.ClusterID)
	if err != nil {
		return nil, fmt.Errorf("get restore context: %w", err)
	}
	rctx := &RestoreContext{Restore: *restore, Cluster: *cluster}
	if restore.SourceBackupID != nil {
		backup, err := a.backups.GetByID(ctx, *restore.SourceBackupID)
		if err != nil {
			return nil, fmt.Errorf("get restore context: %w", err)
		}
		rctx.SourceBackup = backup
	} else {
		// Point-in-time restore without an explicit source. Resolve the
		// newest point-in-time snapshot that predates the restore point.
		backup, err := a.backups.FindPITRBaseline(ctx, restore.ClusterID, restore.RestorePoint)
		if err != nil {
			return nil, fmt.Errorf("get restore context: %w", err)
		}
		rctx.SourceBackup = backup
	}
	return rctx, nil
}

// UpdateRestoreProgressParams holds the parameters for UpdateRestoreProgress.
type UpdateRestoreProgressParams struct {
	ID          string
	Status      string
	Progress    int
	CurrentStep string
}

// UpdateRestoreProgress reports the worker's latest state. The service drops
// stale replays and refuses updates against terminal records, so the
// activity is safe to retry.
func (a *RestoreActivities) UpdateRestoreProgress(ctx context.Context, params UpdateRestoreProgressParams) error {
	return a.restores.UpdateProgress(ctx, params.ID, params.Status, params.Progress, params.CurrentStep)
}

func (a *RestoreActivities) CompleteRestore(ctx context.Context, restoreID string) error {
	return a.restores.Complete(ctx, restoreID)
}

// FailRestoreParams holds the parameters for FailRestore.
type FailRestoreParams struct {
	ID           string
	ErrorMessage string
}

func (a *RestoreActivities) FailRestore(ctx context.Context, params FailRestoreParams) error {
	return a.restores.Fail(ctx, params.ID, params.ErrorMessage)
}

package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/stratumdb/controlplane/internal/activity"
	"github.com/stratumdb/controlplane/internal/model"
)

// RestoreClusterWorkflow walks a restore through its steps: load the
// snapshot, replay oplog up to the restore point when needed, then verify.
// Progress updates are persisted as the steps advance; a cancelled restore
// stops at the next update since the orchestrator refuses terminal records.
func RestoreClusterWorkflow(ctx workflow.Context, restoreID string) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Get the restore, cluster, and source snapshot.
	var rctx activity.RestoreContext
	err := workflow.ExecuteActivity(ctx, "GetRestoreContext", restoreID).Get(ctx, &rctx)
	if err != nil {
		_ = setRestoreFailed(ctx, restoreID, err)
		return err
	}

	targetClusterID := rctx.Restore.ClusterID
	if rctx.Restore.TargetClusterID != nil {
		targetClusterID = *rctx.Restore.TargetClusterID
	}

	err = reportProgress(ctx, restoreID, model.RestoreStatusPreparing, 10, "preparing target cluster")
	if err != nil {
		_ = setRestoreFailed(ctx, restoreID, err)
		return err
	}

	engineCtx := engineActivityCtx(ctx)

	err = reportProgress(ctx, restoreID, model.RestoreStatusRestoringSnapshot, 30, "loading snapshot archive")
	if err != nil {
		_ = setRestoreFailed(ctx, restoreID, err)
		return err
	}
	err = workflow.ExecuteActivity(engineCtx, "ApplySnapshot", activity.ApplySnapshotParams{
		RestoreID:       restoreID,
		TargetClusterID: targetClusterID,
		ArchivePath:     rctx.SourceBackup.StoragePath,
	}).Get(ctx, nil)
	if err != nil {
		_ = setRestoreFailed(ctx, restoreID, err)
		return err
	}

	// Oplog replay only applies when the snapshot carries oplog and the
	// restore point lies beyond the snapshot itself.
	if needsOplogReplay(&rctx) {
		err = reportProgress(ctx, restoreID, model.RestoreStatusApplyingOplog, 60, "replaying oplog to restore point")
		if err != nil {
			_ = setRestoreFailed(ctx, restoreID, err)
			return err
		}
		err = workflow.ExecuteActivity(engineCtx, "ReplayOplog", activity.ReplayOplogParams{
			RestoreID:       restoreID,
			TargetClusterID: targetClusterID,
			ArchivePath:     rctx.SourceBackup.StoragePath,
			RestorePoint:    rctx.Restore.RestorePoint,
		}).Get(ctx, nil)
		if err != nil {
			_ = setRestoreFailed(ctx, restoreID, err)
			return err
		}
	}

	err = reportProgress(ctx, restoreID, model.RestoreStatusVerifying, 90, "verifying restored cluster")
	if err != nil {
		_ = setRestoreFailed(ctx, restoreID, err)
		return err
	}
	err = workflow.ExecuteActivity(engineCtx, "VerifyRestore", activity.VerifyRestoreParams{
		RestoreID:       restoreID,
		TargetClusterID: targetClusterID,
	}).Get(ctx, nil)
	if err != nil {
		_ = setRestoreFailed(ctx, restoreID, err)
		return err
	}

	return workflow.ExecuteActivity(ctx, "CompleteRestore", restoreID).Get(ctx, nil)
}

// needsOplogReplay reports whether the restore point lies beyond the source
// snapshot's own moment, requiring oplog on top of the loaded archive.
func needsOplogReplay(rctx *activity.RestoreContext) bool {
	if !rctx.SourceBackup.PointInTimeEnabled {
		return false
	}
	snapshotAt := rctx.SourceBackup.CreatedAt
	if rctx.SourceBackup.CompletedAt != nil {
		snapshotAt = *rctx.SourceBackup.CompletedAt
	}
	return rctx.Restore.RestorePoint.After(snapshotAt)
}

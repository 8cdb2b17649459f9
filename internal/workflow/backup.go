package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/stratumdb/controlplane/internal/activity"
	"github.com/stratumdb/controlplane/internal/core"
)

// BackupClusterWorkflow takes a snapshot of a cluster and records the result
// on the backup record. When the cluster's policy has auto-export enabled the
// archive is also copied to the customer's bucket.
func BackupClusterWorkflow(ctx workflow.Context, backupID string) error {
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

	// Record that the worker picked up the backup.
	err := workflow.ExecuteActivity(ctx, "StartBackup", backupID).Get(ctx, nil)
	if err != nil {
		_ = setBackupFailed(ctx, backupID, err)
		return err
	}

	// Get the backup, cluster, and policy.
	var bctx activity.BackupContext
	err = workflow.ExecuteActivity(ctx, "GetBackupContext", backupID).Get(ctx, &bctx)
	if err != nil {
		_ = setBackupFailed(ctx, backupID, err)
		return err
	}

	// The snapshot itself can run for a long time on large clusters.
	snapshotCtx := engineActivityCtx(ctx)

	var result core.BackupResult
	err = workflow.ExecuteActivity(snapshotCtx, "CreateSnapshot", activity.CreateSnapshotParams{
		BackupID:        backupID,
		ClusterID:       bctx.Backup.ClusterID,
		PointInTime:     bctx.Policy.PITREnabled,
		EncryptionKeyID: bctx.Policy.EncryptionKeyID,
	}).Get(ctx, &result)
	if err != nil {
		_ = setBackupFailed(ctx, backupID, err)
		return err
	}

	err = workflow.ExecuteActivity(ctx, "CompleteBackup", activity.CompleteBackupParams{
		ID:     backupID,
		Result: result,
	}).Get(ctx, nil)
	if err != nil {
		_ = setBackupFailed(ctx, backupID, err)
		return err
	}

	// Export is best-effort: the backup is already completed, a failed
	// upload should not fail the workflow.
	if export := bctx.Policy.AutoExport; export != nil && export.Enabled {
		destination := fmt.Sprintf("s3://%s/%s", export.Bucket, export.Prefix)
		var location string
		err = workflow.ExecuteActivity(snapshotCtx, "ExportBackup", activity.ExportBackupParams{
			BackupID:    backupID,
			ClusterID:   bctx.Backup.ClusterID,
			ArchivePath: result.StoragePath,
			Destination: destination,
		}).Get(ctx, &location)
		if err != nil {
			workflow.GetLogger(ctx).Error("backup export failed",
				"backupID", backupID, "destination", destination, "error", err)
		} else {
			// Remembering where the copy went lets the retention sweep
			// delete it with the archive.
			err = workflow.ExecuteActivity(ctx, "RecordBackupExport", activity.RecordBackupExportParams{
				ID:       backupID,
				Location: location,
			}).Get(ctx, nil)
			if err != nil {
				workflow.GetLogger(ctx).Error("failed to record export location",
					"backupID", backupID, "location", location, "error", err)
			}
		}
	}

	return nil
}

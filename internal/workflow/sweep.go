package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/stratumdb/controlplane/internal/activity"
)

// sweepBatchSize bounds how many backups a single sweep run removes.
const sweepBatchSize = 100

// SweepExpiredBackupsWorkflow runs on a cron schedule. It removes backup
// archives whose retention has run out and soft-deletes their records,
// leaving anything under legal hold alone.
func SweepExpiredBackupsWorkflow(ctx workflow.Context) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var expired []activity.ExpiredBackup
	err := workflow.ExecuteActivity(ctx, "ListExpiredBackups", sweepBatchSize).Get(ctx, &expired)
	if err != nil {
		return err
	}

	logger := workflow.GetLogger(ctx)
	logger.Info("found expired backups to sweep", "count", len(expired))

	for _, backup := range expired {
		// Remove the archive first so a failure leaves the record visible
		// for the next run. One stuck backup must not block the rest.
		if backup.StoragePath != "" {
			err := workflow.ExecuteActivity(ctx, "DeleteArchive", backup.StoragePath).Get(ctx, nil)
			if err != nil {
				logger.Error("failed to delete expired archive",
					"backupID", backup.ID, "path", backup.StoragePath, "error", err)
				continue
			}
		}
		if backup.ExportLocation != "" {
			err := workflow.ExecuteActivity(ctx, "DeleteExport", backup.ExportLocation).Get(ctx, nil)
			if err != nil {
				logger.Error("failed to delete exported copy",
					"backupID", backup.ID, "location", backup.ExportLocation, "error", err)
				continue
			}
		}
		err := workflow.ExecuteActivity(ctx, "MarkBackupExpired", backup).Get(ctx, nil)
		if err != nil {
			logger.Error("failed to mark backup expired", "backupID", backup.ID, "error", err)
		}
	}

	return nil
}

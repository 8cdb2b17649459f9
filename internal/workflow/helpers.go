package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/stratumdb/controlplane/internal/activity"
)

// setBackupFailed marks a backup as failed with the error message. Callers
// typically ignore the returned error since the primary error matters more.
func setBackupFailed(ctx workflow.Context, backupID string, err error) error {
	return workflow.ExecuteActivity(ctx, "FailBackup", activity.FailBackupParams{
		ID:           backupID,
		ErrorMessage: err.Error(),
	}).Get(ctx, nil)
}

// setRestoreFailed marks a restore as failed with the error message.
func setRestoreFailed(ctx workflow.Context, restoreID string, err error) error {
	return workflow.ExecuteActivity(ctx, "FailRestore", activity.FailRestoreParams{
		ID:           restoreID,
		ErrorMessage: err.Error(),
	}).Get(ctx, nil)
}

// engineActivityCtx returns a workflow context with timeouts sized for
// engine operations, which can run for hours on large clusters.
func engineActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout:    4 * time.Hour,
		HeartbeatTimeout:       5 * time.Minute,
		ScheduleToCloseTimeout: 12 * time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    10 * time.Second,
			MaximumInterval:    5 * time.Minute,
			BackoffCoefficient: 2.0,
		},
	})
}

// reportProgress persists the worker's latest restore state.
func reportProgress(ctx workflow.Context, restoreID, status string, progress int, step string) error {
	return workflow.ExecuteActivity(ctx, "UpdateRestoreProgress", activity.UpdateRestoreProgressParams{
		ID:          restoreID,
		Status:      status,
		Progress:    progress,
		CurrentStep: step,
	}).Get(ctx, nil)
}

package core

import (
	"context"
	"fmt"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/stratumdb/controlplane/internal/model"
)

const taskQueue = "dbaas-tasks"

// Dispatcher hands work orders to the provisioning worker. Enqueue returns
// the job id; delivery is at-least-once and the worker calls back into the
// status-update operations as it makes progress. Cancel is best-effort.
type Dispatcher interface {
	Enqueue(ctx context.Context, task model.ProvisionTask) (string, error)
	Cancel(ctx context.Context, jobID string) error
}

// jobWorkflows maps job types to worker workflow names.
var jobWorkflows = map[string]string{
	model.JobTypeBackupCluster:  "BackupClusterWorkflow",
	model.JobTypeRestoreCluster: "RestoreClusterWorkflow",
}

// TemporalDispatcher runs work orders as Temporal workflows on the shared
// task queue.
type TemporalDispatcher struct {
	tc temporalclient.Client
}

func NewTemporalDispatcher(tc temporalclient.Client) *TemporalDispatcher {
	return &TemporalDispatcher{tc: tc}
}

func (d *TemporalDispatcher) Enqueue(ctx context.Context, task model.ProvisionTask) (string, error) {
	workflowName, ok := jobWorkflows[task.JobType]
	if !ok {
		return "", fmt.Errorf("unknown job type %q", task.JobType)
	}

	wfID := workflowID(task.JobType, task.EntityID)
	_, err := d.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        wfID,
		TaskQueue: taskQueue,
	}, workflowName, task.EntityID)
	if err != nil {
		return "", fmt.Errorf("start %s: %w", workflowName, err)
	}
	return wfID, nil
}

// Cancel requests cancellation of an in-flight work order. Infrastructure
// changes already applied are not rolled back.
func (d *TemporalDispatcher) Cancel(ctx context.Context, jobID string) error {
	if err := d.tc.CancelWorkflow(ctx, jobID, ""); err != nil {
		return fmt.Errorf("cancel workflow %s: %w", jobID, err)
	}
	return nil
}

// workflowID builds a human-readable workflow ID from the job type and the
// entity's unique ID.
func workflowID(jobType, entityID string) string {
	switch jobType {
	case model.JobTypeBackupCluster:
		return fmt.Sprintf("backup-%s", entityID)
	case model.JobTypeRestoreCluster:
		return fmt.Sprintf("restore-%s", entityID)
	}
	return fmt.Sprintf("%s-%s", jobType, entityID)
}

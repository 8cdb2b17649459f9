package activity

import (
	"context"
	"fmt"

	"github.com/stratumdb/controlplane/internal/core"
	"github.com/stratumdb/controlplane/internal/model"
)

// BackupActivities drive backup lifecycle transitions from inside the worker.
// They call back into the service layer so the worker and the API enforce the
// same transition rules.
type BackupActivities struct {
	backups  *core.BackupService
	policies *core.PolicyService
	clusters *core.ClusterService
}

func NewBackupActivities(backups *core.BackupService, policies *core.PolicyService, clusters *core.ClusterService) *BackupActivities {
	return &BackupActivities{backups: backups, policies: policies, clusters: clusters}
}

// BackupContext bundles everything the backup workflow needs up front.
type BackupContext struct {
	Backup  model.Backup
	Cluster model.Cluster
	Policy  model.BackupPolicy
}

// GetBackupContext loads the backup, its cluster, and the cluster's policy.
func (a *BackupActivities) GetBackupContext(ctx context.Context, backupID string) (*BackupContext, error) {
	backup, err := a.backups.GetByID(ctx, backupID)
	if err != nil {
		return nil, fmt.Errorf("get backup context: %w", err)
	}
	cluster, err := a.clusters.GetByID(ctx, backup.ClusterID)
	if err != nil {
		return nil, fmt.Errorf("get backup context: %w", err)
	}
	policy, err := a.policies.GetOrCreate(ctx, backup.ClusterID)
	if err != nil {
		return nil, fmt.Errorf("get backup context: %w", err)
	}
	return &BackupContext{Backup: *backup, Cluster: *cluster, Policy: *policy}, nil
}

// StartBackup records that the worker picked up the work order.
func (a *BackupActivities) StartBackup(ctx context.Context, backupID string) error {
	return a.backups.StartBackup(ctx, backupID)
}

// CompleteBackupParams holds the parameters for CompleteBackup.
type CompleteBackupParams struct {
	ID     string
	Result core.BackupResult
}

func (a *BackupActivities) CompleteBackup(ctx context.Context, params CompleteBackupParams) error {
	return a.backups.CompleteBackup(ctx, params.ID, params.Result)
}

// RecordBackupExportParams holds the parameters for RecordBackupExport.
type RecordBackupExportParams struct {
	ID       string
	Location string
}

func (a *BackupActivities) RecordBackupExport(ctx context.Context, params RecordBackupExportParams) error {
	return a.backups.RecordExport(ctx, params.ID, params.Location)
}

// FailBackupParams holds the parameters for FailBackup.
type FailBackupParams struct {
	ID           string
	ErrorMessage string
}

func (a *BackupActivities) FailBackup(ctx context.Context, params FailBackupParams) error {
	return a.backups.FailBackup(ctx, params.ID, params.ErrorMessage)
}

package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/stratumdb/controlplane/internal/activity"
	"github.com/stratumdb/controlplane/internal/core"
	"github.com/stratumdb/controlplane/internal/model"
)

type BackupClusterWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *BackupClusterWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *BackupClusterWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func backupTestContext(backupID string) *activity.BackupContext {
	return &activity.BackupContext{
		Backup: model.Backup{
			ID:        backupID,
			ClusterID: "test-cluster-1",
			ProjectID: "test-project-1",
			OrgID:     "test-org-1",
			Type:      model.BackupTypeManual,
			Status:    model.BackupStatusInProgress,
		},
		Cluster: model.Cluster{
			ID:     "test-cluster-1",
			Status: model.ClusterStatusReady,
		},
		Policy: model.BackupPolicy{
			ClusterID:   "test-cluster-1",
			PITREnabled: true,
		},
	}
}

func (s *BackupClusterWorkflowTestSuite) TestSuccess() {
	backupID := "test-backup-1"

	s.env.OnActivity("StartBackup", mock.Anything, backupID).Return(nil)
	s.env.OnActivity("GetBackupContext", mock.Anything, backupID).Return(backupTestContext(backupID), nil)
	s.env.OnActivity("CreateSnapshot", mock.Anything, mock.MatchedBy(func(params activity.CreateSnapshotParams) bool {
		return params.BackupID == backupID && params.ClusterID == "test-cluster-1" && params.PointInTime
	})).Return(&core.BackupResult{
		StorageType: "filesystem",
		StoragePath: "/var/backups/stratumdb/test-cluster-1/test-backup-1.archive.gz",
		SizeBytes:   2048,
	}, nil)
	s.env.OnActivity("CompleteBackup", mock.Anything, mock.MatchedBy(func(params activity.CompleteBackupParams) bool {
		return params.ID == backupID && params.Result.SizeBytes == 2048
	})).Return(nil)

	s.env.ExecuteWorkflow(BackupClusterWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *BackupClusterWorkflowTestSuite) TestSuccess_WithAutoExport() {
	backupID := "test-backup-2"

	bctx := backupTestContext(backupID)
	bctx.Policy.AutoExport = &model.AutoExport{
		Enabled: true,
		Bucket:  "customer-exports",
		Prefix:  "stratumdb",
		Region:  "eu-west-1",
	}

	s.env.OnActivity("StartBackup", mock.Anything, backupID).Return(nil)
	s.env.OnActivity("GetBackupContext", mock.Anything, backupID).Return(bctx, nil)
	s.env.OnActivity("CreateSnapshot", mock.Anything, mock.Anything).Return(&core.BackupResult{
		StoragePath: "/var/backups/stratumdb/test-cluster-1/test-backup-2.archive.gz",
	}, nil)
	s.env.OnActivity("CompleteBackup", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("ExportBackup", mock.Anything, mock.MatchedBy(func(params activity.ExportBackupParams) bool {
		return params.BackupID == backupID && params.Destination == "s3://customer-exports/stratumdb"
	})).Return("s3://customer-exports/stratumdb/test-cluster-1/test-backup-2.archive.gz", nil)
	s.env.OnActivity("RecordBackupExport", mock.Anything, activity.RecordBackupExportParams{
		ID:       backupID,
		Location: "s3://customer-exports/stratumdb/test-cluster-1/test-backup-2.archive.gz",
	}).Return(nil)

	s.env.ExecuteWorkflow(BackupClusterWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *BackupClusterWorkflowTestSuite) TestExportFails_WorkflowStillSucceeds() {
	backupID := "test-backup-3"

	bctx := backupTestContext(backupID)
	bctx.Policy.AutoExport = &model.AutoExport{
		Enabled: true,
		Bucket:  "customer-exports",
		Region:  "eu-west-1",
	}

	s.env.OnActivity("StartBackup", mock.Anything, backupID).Return(nil)
	s.env.OnActivity("GetBackupContext", mock.Anything, backupID).Return(bctx, nil)
	s.env.OnActivity("CreateSnapshot", mock.Anything, mock.Anything).Return(&core.BackupResult{
		StoragePath: "/var/backups/stratumdb/test-cluster-1/test-backup-3.archive.gz",
	}, nil)
	s.env.OnActivity("CompleteBackup", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("ExportBackup", mock.Anything, mock.Anything).Return("", fmt.Errorf("access denied"))

	s.env.ExecuteWorkflow(BackupClusterWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *BackupClusterWorkflowTestSuite) TestGetContextFails_SetsStatusFailed() {
	backupID := "test-backup-4"

	s.env.OnActivity("StartBackup", mock.Anything, backupID).Return(nil)
	s.env.OnActivity("GetBackupContext", mock.Anything, backupID).Return(nil, fmt.Errorf("not found"))
	s.env.OnActivity("FailBackup", mock.Anything, matchFailedBackup(backupID)).Return(nil)

	s.env.ExecuteWorkflow(BackupClusterWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *BackupClusterWorkflowTestSuite) TestSnapshotFails_SetsStatusFailed() {
	backupID := "test-backup-5"

	s.env.OnActivity("StartBackup", mock.Anything, backupID).Return(nil)
	s.env.OnActivity("GetBackupContext", mock.Anything, backupID).Return(backupTestContext(backupID), nil)
	s.env.OnActivity("CreateSnapshot", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("mongodump failed: exit 1"))
	s.env.OnActivity("FailBackup", mock.Anything, matchFailedBackup(backupID)).Return(nil)

	s.env.ExecuteWorkflow(BackupClusterWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *BackupClusterWorkflowTestSuite) TestStartFails_SetsStatusFailed() {
	backupID := "test-backup-6"

	s.env.OnActivity("StartBackup", mock.Anything, backupID).Return(fmt.Errorf("db error"))
	s.env.OnActivity("FailBackup", mock.Anything, matchFailedBackup(backupID)).Return(nil)

	s.env.ExecuteWorkflow(BackupClusterWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func TestBackupClusterWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(BackupClusterWorkflowTestSuite))
}

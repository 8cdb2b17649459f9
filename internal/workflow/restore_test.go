package workflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/stratumdb/controlplane/internal/activity"
	"github.com/stratumdb/controlplane/internal/model"
)

type RestoreClusterWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *RestoreClusterWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *RestoreClusterWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

// restoreTestContext builds a to-source restore from a plain snapshot. The
// restore point matches the snapshot, so no oplog replay is expected.
func restoreTestContext(restoreID string) *activity.RestoreContext {
	completedAt := time.Date(2026, 8, 20, 3, 0, 0, 0, time.UTC)
	sourceBackupID := "test-backup-1"
	return &activity.RestoreContext{
		Restore: model.Restore{
			ID:             restoreID,
			ClusterID:      "test-cluster-1",
			ProjectID:      "test-project-1",
			OrgID:          "test-org-1",
			SourceBackupID: &sourceBackupID,
			RestorePoint:   completedAt,
			Status:         model.RestoreStatusPending,
		},
		Cluster: model.Cluster{
			ID:     "test-cluster-1",
			Status: model.ClusterStatusReady,
		},
		SourceBackup: &model.Backup{
			ID:          sourceBackupID,
			ClusterID:   "test-cluster-1",
			Status:      model.BackupStatusRestoring,
			StoragePath: "/var/backups/stratumdb/test-cluster-1/test-backup-1.archive.gz",
			CompletedAt: &completedAt,
		},
	}
}

func (s *RestoreClusterWorkflowTestSuite) TestSuccess_FromBackup() {
	restoreID := "test-restore-1"
	rctx := restoreTestContext(restoreID)

	s.env.OnActivity("GetRestoreContext", mock.Anything, restoreID).Return(rctx, nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, matchProgress(restoreID, model.RestoreStatusPreparing)).Return(nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, matchProgress(restoreID, model.RestoreStatusRestoringSnapshot)).Return(nil)
	s.env.OnActivity("ApplySnapshot", mock.Anything, mock.MatchedBy(func(params activity.ApplySnapshotParams) bool {
		return params.RestoreID == restoreID &&
			params.TargetClusterID == "test-cluster-1" &&
			params.ArchivePath == rctx.SourceBackup.StoragePath
	})).Return(nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, matchProgress(restoreID, model.RestoreStatusVerifying)).Return(nil)
	s.env.OnActivity("VerifyRestore", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("CompleteRestore", mock.Anything, restoreID).Return(nil)

	s.env.ExecuteWorkflow(RestoreClusterWorkflow, restoreID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *RestoreClusterWorkflowTestSuite) TestSuccess_PointInTimeReplaysOplog() {
	restoreID := "test-restore-2"
	rctx := restoreTestContext(restoreID)
	rctx.Restore.SourceBackupID = nil
	rctx.Restore.RestorePoint = rctx.SourceBackup.CompletedAt.Add(2 * time.Hour)
	rctx.SourceBackup.PointInTimeEnabled = true

	s.env.OnActivity("GetRestoreContext", mock.Anything, restoreID).Return(rctx, nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, matchProgress(restoreID, model.RestoreStatusPreparing)).Return(nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, matchProgress(restoreID, model.RestoreStatusRestoringSnapshot)).Return(nil)
	s.env.OnActivity("ApplySnapshot", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, matchProgress(restoreID, model.RestoreStatusApplyingOplog)).Return(nil)
	s.env.OnActivity("ReplayOplog", mock.Anything, mock.MatchedBy(func(params activity.ReplayOplogParams) bool {
		return params.RestoreID == restoreID && params.RestorePoint.Equal(rctx.Restore.RestorePoint)
	})).Return(nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, matchProgress(restoreID, model.RestoreStatusVerifying)).Return(nil)
	s.env.OnActivity("VerifyRestore", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("CompleteRestore", mock.Anything, restoreID).Return(nil)

	s.env.ExecuteWorkflow(RestoreClusterWorkflow, restoreID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *RestoreClusterWorkflowTestSuite) TestTargetCluster_RoutesEngineToTarget() {
	restoreID := "test-restore-3"
	targetID := "test-cluster-2"
	rctx := restoreTestContext(restoreID)
	rctx.Restore.TargetClusterID = &targetID

	s.env.OnActivity("GetRestoreContext", mock.Anything, restoreID).Return(rctx, nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("ApplySnapshot", mock.Anything, mock.MatchedBy(func(params activity.ApplySnapshotParams) bool {
		return params.TargetClusterID == targetID
	})).Return(nil)
	s.env.OnActivity("VerifyRestore", mock.Anything, mock.MatchedBy(func(params activity.VerifyRestoreParams) bool {
		return params.TargetClusterID == targetID
	})).Return(nil)
	s.env.OnActivity("CompleteRestore", mock.Anything, restoreID).Return(nil)

	s.env.ExecuteWorkflow(RestoreClusterWorkflow, restoreID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *RestoreClusterWorkflowTestSuite) TestGetContextFails_SetsStatusFailed() {
	restoreID := "test-restore-4"

	s.env.OnActivity("GetRestoreContext", mock.Anything, restoreID).Return(nil, fmt.Errorf("not found"))
	s.env.OnActivity("FailRestore", mock.Anything, matchFailedRestore(restoreID)).Return(nil)

	s.env.ExecuteWorkflow(RestoreClusterWorkflow, restoreID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *RestoreClusterWorkflowTestSuite) TestApplySnapshotFails_SetsStatusFailed() {
	restoreID := "test-restore-5"
	rctx := restoreTestContext(restoreID)

	s.env.OnActivity("GetRestoreContext", mock.Anything, restoreID).Return(rctx, nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, matchProgress(restoreID, model.RestoreStatusPreparing)).Return(nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, matchProgress(restoreID, model.RestoreStatusRestoringSnapshot)).Return(nil)
	s.env.OnActivity("ApplySnapshot", mock.Anything, mock.Anything).Return(fmt.Errorf("mongorestore failed: exit 1"))
	s.env.OnActivity("FailRestore", mock.Anything, matchFailedRestore(restoreID)).Return(nil)

	s.env.ExecuteWorkflow(RestoreClusterWorkflow, restoreID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *RestoreClusterWorkflowTestSuite) TestVerifyFails_SetsStatusFailed() {
	restoreID := "test-restore-6"
	rctx := restoreTestContext(restoreID)

	s.env.OnActivity("GetRestoreContext", mock.Anything, restoreID).Return(rctx, nil)
	s.env.OnActivity("UpdateRestoreProgress", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("ApplySnapshot", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("VerifyRestore", mock.Anything, mock.Anything).Return(fmt.Errorf("ping failed"))
	s.env.OnActivity("FailRestore", mock.Anything, matchFailedRestore(restoreID)).Return(nil)

	s.env.ExecuteWorkflow(RestoreClusterWorkflow, restoreID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func TestRestoreClusterWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(RestoreClusterWorkflowTestSuite))
}

package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/stratumdb/controlplane/internal/activity"
)

type SweepExpiredBackupsWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *SweepExpiredBackupsWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *SweepExpiredBackupsWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *SweepExpiredBackupsWorkflowTestSuite) TestNothingExpired() {
	s.env.OnActivity("ListExpiredBackups", mock.Anything, sweepBatchSize).Return([]activity.ExpiredBackup(nil), nil)

	s.env.ExecuteWorkflow(SweepExpiredBackupsWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *SweepExpiredBackupsWorkflowTestSuite) TestSweepsExpiredBackups() {
	expired := []activity.ExpiredBackup{
		{ID: "test-backup-1", ClusterID: "test-cluster-1", StoragePath: "/var/backups/stratumdb/test-cluster-1/test-backup-1.archive.gz"},
		{ID: "test-backup-2", ClusterID: "test-cluster-2", StoragePath: "/var/backups/stratumdb/test-cluster-2/test-backup-2.archive.gz"},
	}

	s.env.OnActivity("ListExpiredBackups", mock.Anything, sweepBatchSize).Return(expired, nil)
	s.env.OnActivity("DeleteArchive", mock.Anything, expired[0].StoragePath).Return(nil)
	s.env.OnActivity("MarkBackupExpired", mock.Anything, expired[0]).Return(nil)
	s.env.OnActivity("DeleteArchive", mock.Anything, expired[1].StoragePath).Return(nil)
	s.env.OnActivity("MarkBackupExpired", mock.Anything, expired[1]).Return(nil)

	s.env.ExecuteWorkflow(SweepExpiredBackupsWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *SweepExpiredBackupsWorkflowTestSuite) TestSweepsExportedCopy() {
	expired := []activity.ExpiredBackup{
		{
			ID:             "test-backup-1",
			ClusterID:      "test-cluster-1",
			StoragePath:    "/var/backups/stratumdb/test-cluster-1/test-backup-1.archive.gz",
			ExportLocation: "s3://exports/acme/test-cluster-1/test-backup-1.archive.gz",
		},
	}

	s.env.OnActivity("ListExpiredBackups", mock.Anything, sweepBatchSize).Return(expired, nil)
	s.env.OnActivity("DeleteArchive", mock.Anything, expired[0].StoragePath).Return(nil)
	s.env.OnActivity("DeleteExport", mock.Anything, expired[0].ExportLocation).Return(nil)
	s.env.OnActivity("MarkBackupExpired", mock.Anything, expired[0]).Return(nil)

	s.env.ExecuteWorkflow(SweepExpiredBackupsWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *SweepExpiredBackupsWorkflowTestSuite) TestExportDeleteFails_KeepsRecord() {
	expired := []activity.ExpiredBackup{
		{
			ID:             "test-backup-1",
			ClusterID:      "test-cluster-1",
			ExportLocation: "s3://exports/acme/test-cluster-1/test-backup-1.archive.gz",
		},
	}

	s.env.OnActivity("ListExpiredBackups", mock.Anything, sweepBatchSize).Return(expired, nil)
	s.env.OnActivity("DeleteExport", mock.Anything, expired[0].ExportLocation).Return(fmt.Errorf("access denied"))

	s.env.ExecuteWorkflow(SweepExpiredBackupsWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *SweepExpiredBackupsWorkflowTestSuite) TestArchiveDeleteFails_KeepsRecordAndContinues() {
	expired := []activity.ExpiredBackup{
		{ID: "test-backup-1", ClusterID: "test-cluster-1", StoragePath: "/var/backups/stratumdb/test-cluster-1/test-backup-1.archive.gz"},
		{ID: "test-backup-2", ClusterID: "test-cluster-2", StoragePath: "/var/backups/stratumdb/test-cluster-2/test-backup-2.archive.gz"},
	}

	s.env.OnActivity("ListExpiredBackups", mock.Anything, sweepBatchSize).Return(expired, nil)
	s.env.OnActivity("DeleteArchive", mock.Anything, expired[0].StoragePath).Return(fmt.Errorf("permission denied"))
	s.env.OnActivity("DeleteArchive", mock.Anything, expired[1].StoragePath).Return(nil)
	s.env.OnActivity("MarkBackupExpired", mock.Anything, expired[1]).Return(nil)

	s.env.ExecuteWorkflow(SweepExpiredBackupsWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *SweepExpiredBackupsWorkflowTestSuite) TestMissingStoragePath_SkipsArchiveDelete() {
	expired := []activity.ExpiredBackup{
		{ID: "test-backup-1", ClusterID: "test-cluster-1"},
	}

	s.env.OnActivity("ListExpiredBackups", mock.Anything, sweepBatchSize).Return(expired, nil)
	s.env.OnActivity("MarkBackupExpired", mock.Anything, expired[0]).Return(nil)

	s.env.ExecuteWorkflow(SweepExpiredBackupsWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func TestSweepExpiredBackupsWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(SweepExpiredBackupsWorkflowTestSuite))
}

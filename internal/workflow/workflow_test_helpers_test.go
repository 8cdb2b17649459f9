package workflow

import (
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"

	"github.com/stratumdb/controlplane/internal/activity"
)

// registerActivities registers activity structs with the test workflow
// environment so that parameter and return types can be deserialized correctly
// by the Temporal test framework. In unit tests, all activities are mocked via
// OnActivity, but the framework still needs the type information for proper
// serialization/deserialization of activity parameters and return values.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.BackupActivities{})
	env.RegisterActivity(&activity.RestoreActivities{})
	env.RegisterActivity(&activity.EngineActivities{})
	env.RegisterActivity(&activity.ExportManager{})
	env.RegisterActivity(&activity.SweepActivities{})
}

// matchFailedBackup matches FailBackupParams for the given backup with any
// non-empty error message, since Temporal wraps activity errors with text
// that is not predictable in tests.
func matchFailedBackup(id string) interface{} {
	return mock.MatchedBy(func(params activity.FailBackupParams) bool {
		return params.ID == id && params.ErrorMessage != ""
	})
}

// matchFailedRestore matches FailRestoreParams the same way.
func matchFailedRestore(id string) interface{} {
	return mock.MatchedBy(func(params activity.FailRestoreParams) bool {
		return params.ID == id && params.ErrorMessage != ""
	})
}

// matchProgress matches an UpdateRestoreProgress call for a given status.
func matchProgress(id, status string) interface{} {
	return mock.MatchedBy(func(params activity.UpdateRestoreProgressParams) bool {
		return params.ID == id && params.Status == status
	})
}

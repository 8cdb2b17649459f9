package core

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/stratumdb/controlplane/internal/model"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

func intPtr(v int) *int { return &v }

// sqlContains matches the SQL argument of a DB expectation by substring, so
// tests can tell apart multiple statements issued by one operation.
func sqlContains(substr string) any {
	return mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, substr)
	})
}

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows for testing.
// It iterates through a list of scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

// newEmptyMockRows returns a mockRows that yields zero rows.
func newEmptyMockRows() *mockRows {
	return &mockRows{}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// ---------- Mock Dispatcher ----------

// mockDispatcher implements Dispatcher for testing.
type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Enqueue(ctx context.Context, task model.ProvisionTask) (string, error) {
	args := m.Called(ctx, task)
	return args.String(0), args.Error(1)
}

func (m *mockDispatcher) Cancel(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

// ---------- Mock ClusterDirectory ----------

// mockClusters implements ClusterDirectory for testing.
type mockClusters struct {
	mock.Mock
}

func (m *mockClusters) FindByID(ctx context.Context, id string) (*model.Cluster, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cluster), args.Error(1)
}

// ---------- Mock LegalHoldChecker ----------

// mockHolds implements LegalHoldChecker for testing.
type mockHolds struct {
	mock.Mock
}

func (m *mockHolds) LegalHoldActive(ctx context.Context, clusterID string) (bool, error) {
	args := m.Called(ctx, clusterID)
	return args.Bool(0), args.Error(1)
}

// ---------- Recording EventSink ----------

// recordingSink captures events synchronously for assertions.
type recordingSink struct {
	events []model.Event
}

func (s *recordingSink) Record(event model.Event) {
	s.events = append(s.events, event)
}

func (s *recordingSink) lastType() string {
	if len(s.events) == 0 {
		return ""
	}
	return s.events[len(s.events)-1].Type
}

// ---------- Fixtures ----------

func readyCluster(id string) *model.Cluster {
	now := time.Now()
	return &model.Cluster{
		ID:            id,
		OrgID:         "test-org-1",
		ProjectID:     "test-project-1",
		Name:          "orders",
		Plan:          "m30",
		EngineVersion: "7.0",
		Status:        model.ClusterStatusReady,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// backupScanFunc fills Scan destinations in backupColumns order.
func backupScanFunc(b model.Backup) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = b.ID
		*(dest[1].(*string)) = b.ClusterID
		*(dest[2].(*string)) = b.ProjectID
		*(dest[3].(*string)) = b.OrgID
		*(dest[4].(*string)) = b.Name
		*(dest[5].(*string)) = b.Description
		*(dest[6].(*string)) = b.Type
		*(dest[7].(*string)) = b.Status
		*(dest[8].(*string)) = b.StorageType
		*(dest[9].(*string)) = b.StoragePath
		*(dest[10].(*int64)) = b.SizeBytes
		*(dest[11].(*int64)) = b.CompressedSizeBytes
		*(dest[12].(*int)) = b.RetentionDays
		*(dest[13].(*time.Time)) = b.ExpiresAt
		*(dest[14].(**time.Time)) = b.StartedAt
		*(dest[15].(**time.Time)) = b.CompletedAt
		*(dest[16].(*bool)) = b.PointInTimeEnabled
		*(dest[17].(**time.Time)) = b.OplogStartTime
		*(dest[18].(**time.Time)) = b.OplogEndTime
		*(dest[19].(**string)) = b.ErrorMessage
		*(dest[20].(*model.BackupMetadata)) = b.Metadata
		*(dest[21].(*time.Time)) = b.CreatedAt
		*(dest[22].(*time.Time)) = b.UpdatedAt
		return nil
	}
}

// policyScanFunc fills Scan destinations in policyColumns order.
func policyScanFunc(p model.BackupPolicy) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = p.ID
		*(dest[1].(*string)) = p.ClusterID
		*(dest[2].(*bool)) = p.IsEnabled
		*(dest[3].(*int)) = p.SnapshotFrequencyHours
		*(dest[4].(*int)) = p.SnapshotRetentionDays
		*(dest[5].(*string)) = p.ComplianceLevel
		*(dest[6].(*[]string)) = p.ComplianceTags
		*(dest[7].(*model.RetentionRules)) = p.RetentionRules
		*(dest[8].(*bool)) = p.PITREnabled
		*(dest[9].(*int)) = p.PITRRetentionDays
		*(dest[10].(*bool)) = p.CrossRegionEnabled
		*(dest[11].(*string)) = p.CrossRegionTarget
		*(dest[12].(*bool)) = p.EncryptionEnabled
		*(dest[13].(*string)) = p.EncryptionKeyID
		*(dest[14].(**model.BackupWindow)) = p.BackupWindow
		*(dest[15].(*bool)) = p.AlertOnFailure
		*(dest[16].(*bool)) = p.AlertOnSuccess
		*(dest[17].(*[]string)) = p.AlertRecipients
		*(dest[18].(*bool)) = p.LegalHoldEnabled
		*(dest[19].(*string)) = p.LegalHoldReason
		*(dest[20].(**time.Time)) = p.LegalHoldUntil
		*(dest[21].(**model.AutoExport)) = p.AutoExport
		*(dest[22].(*string)) = p.UpdatedBy
		*(dest[23].(*time.Time)) = p.CreatedAt
		*(dest[24].(*time.Time)) = p.UpdatedAt
		return nil
	}
}

// restoreScanFunc fills Scan destinations in restoreColumns order.
func restoreScanFunc(r model.Restore) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = r.ID
		*(dest[1].(*string)) = r.ClusterID
		*(dest[2].(*string)) = r.ProjectID
		*(dest[3].(*string)) = r.OrgID
		*(dest[4].(**string)) = r.SourceBackupID
		*(dest[5].(*time.Time)) = r.RestorePoint
		*(dest[6].(**string)) = r.TargetClusterID
		*(dest[7].(*string)) = r.Status
		*(dest[8].(*int)) = r.Progress
		*(dest[9].(*string)) = r.CurrentStep
		*(dest[10].(**string)) = r.ErrorMessage
		*(dest[11].(**time.Time)) = r.StartedAt
		*(dest[12].(**time.Time)) = r.CompletedAt
		*(dest[13].(*time.Time)) = r.CreatedAt
		*(dest[14].(*time.Time)) = r.UpdatedAt
		return nil
	}
}

// clusterScanFunc fills Scan destinations in clusterColumns order.
func clusterScanFunc(c model.Cluster) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = c.ID
		*(dest[1].(*string)) = c.OrgID
		*(dest[2].(*string)) = c.ProjectID
		*(dest[3].(*string)) = c.Name
		*(dest[4].(*string)) = c.Plan
		*(dest[5].(*string)) = c.EngineVersion
		*(dest[6].(*string)) = c.Status
		*(dest[7].(**time.Time)) = c.OldestRestorePoint
		*(dest[8].(**time.Time)) = c.NewestRestorePoint
		*(dest[9].(*time.Time)) = c.CreatedAt
		*(dest[10].(*time.Time)) = c.UpdatedAt
		return nil
	}
}

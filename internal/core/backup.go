package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stratumdb/controlplane/internal/model"
	"github.com/stratumdb/controlplane/internal/platform"
)

// activeBackupConstraint is the partial unique index that guarantees at most
// one pending/in_progress backup per cluster. A violation at insert time is
// the authoritative concurrency guard; the pre-check only exists for a
// friendlier fast path.
const activeBackupConstraint = "backups_one_active_per_cluster"

type BackupService struct {
	db       DB
	jobs     Dispatcher
	clusters ClusterDirectory
	holds    LegalHoldChecker
	restores *RestoreService
	events   EventSink
}

func NewBackupService(db DB, jobs Dispatcher, clusters ClusterDirectory, holds LegalHoldChecker, restores *RestoreService, events EventSink) *BackupService {
	return &BackupService{db: db, jobs: jobs, clusters: clusters, holds: holds, restores: restores, events: events}
}

// CreateBackupParams are the caller-supplied fields for a new backup. A nil
// RetentionDays means the caller did not set one and the default applies; an
// explicit out-of-range value, zero included, is rejected.
type CreateBackupParams struct {
	ClusterID          string
	Name               string
	Description        string
	Type               string
	RetentionDays      *int
	PointInTimeEnabled bool
	RequestedBy        string
}

func (p *CreateBackupParams) validate() error {
	var fields []FieldError
	switch p.Type {
	case model.BackupTypeManual, model.BackupTypeScheduled, model.BackupTypeAutomated:
	default:
		fields = append(fields, FieldError{Field: "type", Message: fmt.Sprintf("must be one of manual, scheduled, automated (got %q)", p.Type)})
	}
	if p.RetentionDays != nil && (*p.RetentionDays < model.BackupRetentionDaysMin || *p.RetentionDays > model.BackupRetentionDaysMax) {
		fields = append(fields, FieldError{
			Field:   "retention_days",
			Message: fmt.Sprintf("must be between %d and %d", model.BackupRetentionDaysMin, model.BackupRetentionDaysMax),
		})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

const backupColumns = `id, cluster_id, project_id, org_id, name, description, type, status,
	storage_type, storage_path, size_bytes, compressed_size_bytes,
	retention_days, expires_at, started_at, completed_at,
	point_in_time_enabled, oplog_start_time, oplog_end_time,
	error_message, metadata, created_at, updated_at`

func scanBackup(row pgx.Row) (*model.Backup, error) {
	var b model.Backup
	err := row.Scan(&b.ID, &b.ClusterID, &b.ProjectID, &b.OrgID, &b.Name, &b.Description,
		&b.Type, &b.Status, &b.StorageType, &b.StoragePath, &b.SizeBytes, &b.CompressedSizeBytes,
		&b.RetentionDays, &b.ExpiresAt, &b.StartedAt, &b.CompletedAt,
		&b.PointInTimeEnabled, &b.OplogStartTime, &b.OplogEndTime,
		&b.ErrorMessage, &b.Metadata, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create persists a new backup in pending state and hands a work order to the
// provisioning worker. It returns without waiting for the backup to run.
//
// If the work order cannot be enqueued, the just-created record is rolled
// back so a failed provisioning attempt leaves no phantom backup behind.
func (s *BackupService) Create(ctx context.Context, params CreateBackupParams) (*model.Backup, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	retentionDays := model.BackupRetentionDaysDefault
	if params.RetentionDays != nil {
		retentionDays = *params.RetentionDays
	}

	cluster, err := s.clusters.FindByID(ctx, params.ClusterID)
	if err != nil {
		return nil, err
	}
	if !model.ClusterAcceptsBackup(cluster.Status) {
		return nil, fmt.Errorf("cluster %s status is %s: %w", cluster.ID, cluster.Status, ErrClusterNotReady)
	}

	// Fast-path guard. The partial unique index re-checks at write time, so
	// two concurrent creates cannot both pass this read.
	var active bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM backups WHERE cluster_id = $1 AND status IN ($2, $3))`,
		params.ClusterID, model.BackupStatusPending, model.BackupStatusInProgress,
	).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("check active backups for cluster %s: %w", params.ClusterID, err)
	}
	if active {
		return nil, ErrBackupInProgress
	}

	now := time.Now()
	backup := &model.Backup{
		ID:                 platform.NewID(),
		ClusterID:          cluster.ID,
		ProjectID:          cluster.ProjectID,
		OrgID:              cluster.OrgID,
		Name:               params.Name,
		Description:        params.Description,
		Type:               params.Type,
		Status:             model.BackupStatusPending,
		RetentionDays:      retentionDays,
		ExpiresAt:          now.Add(time.Duration(retentionDays) * 24 * time.Hour),
		PointInTimeEnabled: params.PointInTimeEnabled,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO backups (id, cluster_id, project_id, org_id, name, description, type, status,
		                      retention_days, expires_at, point_in_time_enabled, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		backup.ID, backup.ClusterID, backup.ProjectID, backup.OrgID, backup.Name, backup.Description,
		backup.Type, backup.Status, backup.RetentionDays, backup.ExpiresAt,
		backup.PointInTimeEnabled, backup.Metadata, backup.CreatedAt, backup.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, activeBackupConstraint) {
			return nil, ErrBackupInProgress
		}
		return nil, fmt.Errorf("insert backup: %w", err)
	}

	_, err = s.jobs.Enqueue(ctx, model.ProvisionTask{
		JobType:   model.JobTypeBackupCluster,
		EntityID:  backup.ID,
		ClusterID: backup.ClusterID,
		ProjectID: backup.ProjectID,
		OrgID:     backup.OrgID,
	})
	if err != nil {
		// Compensate: remove the record so the guard does not stay locked
		// by a backup no worker will ever pick up.
		if _, delErr := s.db.Exec(ctx, `DELETE FROM backups WHERE id = $1`, backup.ID); delErr != nil {
			return nil, fmt.Errorf("roll back backup %s after enqueue failure: %v (enqueue: %w)", backup.ID, delErr, err)
		}
		return nil, &ProvisioningError{Err: err}
	}

	s.events.Record(model.Event{
		OrgID: backup.OrgID, ProjectID: backup.ProjectID, ClusterID: backup.ClusterID,
		Type: model.EventBackupStarted, Severity: model.SeverityInfo,
		Message: fmt.Sprintf("backup %s (%s) started by %s", backup.Name, backup.ID, params.RequestedBy),
		Metadata: map[string]any{"backup_id": backup.ID, "type": backup.Type},
	})

	return backup, nil
}

// StartBackup records that the worker picked up the work order. Replays while
// already in progress are harmless.
func (s *BackupService) StartBackup(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE backups SET status = $1, started_at = COALESCE(started_at, now()), updated_at = now()
		 WHERE id = $2 AND status IN ($3, $1)`,
		model.BackupStatusInProgress, id, model.BackupStatusPending,
	)
	if err != nil {
		return fmt.Errorf("start backup %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.requireExists(ctx, id)
	}
	return nil
}

// BackupResult carries the worker's completion report.
type BackupResult struct {
	StorageType         string               `json:"storage_type"`
	StoragePath         string               `json:"storage_path"`
	SizeBytes           int64                `json:"size_bytes"`
	CompressedSizeBytes int64                `json:"compressed_size_bytes"`
	OplogStartTime      *time.Time           `json:"oplog_start_time,omitempty"`
	OplogEndTime        *time.Time           `json:"oplog_end_time,omitempty"`
	Metadata            model.BackupMetadata `json:"metadata"`
}

// CompleteBackup transitions a backup to completed and records the result.
// Keyed by id and overwriting the same fields, a replay converges on the
// same final state.
func (s *BackupService) CompleteBackup(ctx context.Context, id string, result BackupResult) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE backups SET status = $1, storage_type = $2, storage_path = $3,
		        size_bytes = $4, compressed_size_bytes = $5,
		        oplog_start_time = $6, oplog_end_time = $7, metadata = $8,
		        completed_at = COALESCE(completed_at, now()), updated_at = now()
		 WHERE id = $9 AND status IN ($10, $11, $1)`,
		model.BackupStatusCompleted, result.StorageType, result.StoragePath,
		result.SizeBytes, result.CompressedSizeBytes,
		result.OplogStartTime, result.OplogEndTime, result.Metadata,
		id, model.BackupStatusPending, model.BackupStatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("complete backup %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.requireExists(ctx, id)
	}

	backup, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.events.Record(model.Event{
		OrgID: backup.OrgID, ProjectID: backup.ProjectID, ClusterID: backup.ClusterID,
		Type: model.EventBackupCompleted, Severity: model.SeverityInfo,
		Message:  fmt.Sprintf("backup %s completed (%d bytes)", backup.Name, result.SizeBytes),
		Metadata: map[string]any{"backup_id": id, "size_bytes": result.SizeBytes},
	})
	return nil
}

// RecordExport stores the exported copy's location in the backup metadata so
// the retention sweep can remove the copy alongside the local archive.
func (s *BackupService) RecordExport(ctx context.Context, id, location string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE backups SET metadata = jsonb_set(metadata, '{export_location}', to_jsonb($1::text)),
		        updated_at = now()
		 WHERE id = $2`,
		location, id,
	)
	if err != nil {
		return fmt.Errorf("record export for backup %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "backup", ID: id}
	}
	return nil
}

// FailBackup transitions a backup to failed and records the error message.
func (s *BackupService) FailBackup(ctx context.Context, id, errorMessage string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE backups SET status = $1, error_message = $2,
		        completed_at = COALESCE(completed_at, now()), updated_at = now()
		 WHERE id = $3 AND status IN ($4, $5, $1)`,
		model.BackupStatusFailed, errorMessage, id,
		model.BackupStatusPending, model.BackupStatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("fail backup %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.requireExists(ctx, id)
	}

	backup, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.events.Record(model.Event{
		OrgID: backup.OrgID, ProjectID: backup.ProjectID, ClusterID: backup.ClusterID,
		Type: model.EventBackupFailed, Severity: model.SeverityError,
		Message:  fmt.Sprintf("backup %s failed: %s", backup.Name, errorMessage),
		Metadata: map[string]any{"backup_id": id},
	})
	return nil
}

// RestoreOptions control where a backup is restored to. A nil TargetClusterID
// restores over the source cluster, which is destructive.
type RestoreOptions struct {
	TargetClusterID *string
	RequestedBy     string
}

// Restore starts a restore workflow from a completed backup. The source
// backup is parked in restoring state until the restore releases it.
func (s *BackupService) Restore(ctx context.Context, id string, opts RestoreOptions) (*model.Restore, error) {
	backup, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if backup.Status != model.BackupStatusCompleted {
		return nil, fmt.Errorf("backup %s status is %s: %w", id, backup.Status, ErrBackupNotCompleted)
	}

	// Conditional write closes the race with a concurrent restore or delete.
	tag, err := s.db.Exec(ctx,
		`UPDATE backups SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		model.BackupStatusRestoring, id, model.BackupStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("mark backup %s restoring: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("backup %s is no longer restorable: %w", id, ErrBackupNotCompleted)
	}

	restore, err := s.restores.CreateFromBackup(ctx, backup, opts)
	if err != nil {
		// Release the source backup; it never left completed semantically.
		if _, resetErr := s.db.Exec(ctx,
			`UPDATE backups SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
			model.BackupStatusCompleted, id, model.BackupStatusRestoring,
		); resetErr != nil {
			return nil, fmt.Errorf("release backup %s after restore failure: %v (restore: %w)", id, resetErr, err)
		}
		return nil, err
	}
	return restore, nil
}

// Delete soft-deletes a backup. Physical storage cleanup belongs to the
// retention sweep, not this call.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	backup, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch backup.Status {
	case model.BackupStatusPending, model.BackupStatusInProgress, model.BackupStatusRestoring:
		return fmt.Errorf("backup %s status is %s: %w", id, backup.Status, ErrBackupActive)
	}

	held, err := s.holds.LegalHoldActive(ctx, backup.ClusterID)
	if err != nil {
		return fmt.Errorf("check legal hold for cluster %s: %w", backup.ClusterID, err)
	}
	if held {
		return ErrLegalHold
	}

	_, err = s.db.Exec(ctx,
		`UPDATE backups SET status = $1, updated_at = now() WHERE id = $2`,
		model.BackupStatusDeleted, id,
	)
	if err != nil {
		return fmt.Errorf("delete backup %s: %w", id, err)
	}

	s.events.Record(model.Event{
		OrgID: backup.OrgID, ProjectID: backup.ProjectID, ClusterID: backup.ClusterID,
		Type: model.EventBackupDeleted, Severity: model.SeverityInfo,
		Message:  fmt.Sprintf("backup %s deleted", backup.Name),
		Metadata: map[string]any{"backup_id": id},
	})
	return nil
}

func (s *BackupService) GetByID(ctx context.Context, id string) (*model.Backup, error) {
	backup, err := scanBackup(s.db.QueryRow(ctx,
		`SELECT `+backupColumns+` FROM backups WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "backup", ID: id}
		}
		return nil, fmt.Errorf("get backup %s: %w", id, err)
	}
	return backup, nil
}

// FindPITRBaseline returns the most recent completed point-in-time backup
// that finished at or before the restore point. A point-in-time restore
// replays oplog on top of this snapshot.
func (s *BackupService) FindPITRBaseline(ctx context.Context, clusterID string, at time.Time) (*model.Backup, error) {
	backup, err := scanBackup(s.db.QueryRow(ctx,
		`SELECT `+backupColumns+` FROM backups
		 WHERE cluster_id = $1 AND status = $2 AND point_in_time_enabled = true
		   AND completed_at <= $3
		 ORDER BY completed_at DESC
		 LIMIT 1`, clusterID, model.BackupStatusCompleted, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "pitr baseline backup", ID: clusterID}
		}
		return nil, fmt.Errorf("find pitr baseline for cluster %s: %w", clusterID, err)
	}
	return backup, nil
}

func (s *BackupService) ListByCluster(ctx context.Context, clusterID string, limit int, cursor string) ([]model.Backup, bool, error) {
	query := `SELECT ` + backupColumns + ` FROM backups WHERE cluster_id = $1`
	args := []any{clusterID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list backups for cluster %s: %w", clusterID, err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		backup, err := scanBackup(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *backup)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate backups: %w", err)
	}

	hasMore := len(backups) > limit
	if hasMore {
		backups = backups[:limit]
	}
	return backups, hasMore, nil
}

// Stats aggregates a cluster's backup history. A cluster with no backups
// gets a zeroed struct, never an error.
func (s *BackupService) Stats(ctx context.Context, clusterID string) (*model.BackupStats, error) {
	var stats model.BackupStats
	err := s.db.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE status = $2),
		        count(*) FILTER (WHERE status = $3),
		        count(*) FILTER (WHERE status IN ($4, $5)),
		        COALESCE(sum(size_bytes) FILTER (WHERE status = $2), 0),
		        COALESCE(sum(compressed_size_bytes) FILTER (WHERE status = $2), 0)
		 FROM backups WHERE cluster_id = $1`,
		clusterID, model.BackupStatusCompleted, model.BackupStatusFailed,
		model.BackupStatusPending, model.BackupStatusInProgress,
	).Scan(&stats.Total, &stats.Completed, &stats.Failed, &stats.Active,
		&stats.TotalSizeBytes, &stats.CompressedSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("backup stats for cluster %s: %w", clusterID, err)
	}
	return &stats, nil
}

// requireExists distinguishes a harmless status-update replay from an update
// against a backup that no longer exists.
func (s *BackupService) requireExists(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM backups WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check backup %s: %w", id, err)
	}
	if !exists {
		return &NotFoundError{Resource: "backup", ID: id}
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique violation on the
// named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

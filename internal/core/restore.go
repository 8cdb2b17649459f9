package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stratumdb/controlplane/internal/model"
	"github.com/stratumdb/controlplane/internal/platform"
)

type RestoreService struct {
	db       DB
	jobs     Dispatcher
	clusters ClusterDirectory
	events   EventSink
}

func NewRestoreService(db DB, jobs Dispatcher, clusters ClusterDirectory, events EventSink) *RestoreService {
	return &RestoreService{db: db, jobs: jobs, clusters: clusters, events: events}
}

const restoreColumns = `id, cluster_id, project_id, org_id, source_backup_id,
	restore_point, target_cluster_id, status, progress, current_step,
	error_message, started_at, completed_at, created_at, updated_at`

func scanRestore(row pgx.Row) (*model.Restore, error) {
	var r model.Restore
	err := row.Scan(&r.ID, &r.ClusterID, &r.ProjectID, &r.OrgID, &r.SourceBackupID,
		&r.RestorePoint, &r.TargetClusterID, &r.Status, &r.Progress, &r.CurrentStep,
		&r.ErrorMessage, &r.StartedAt, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRestoreParams describe a point-in-time restore request.
type CreateRestoreParams struct {
	ClusterID       string
	RestorePoint    time.Time
	TargetClusterID *string
	RequestedBy     string
}

// Create starts a PITR restore to an arbitrary timestamp. The timestamp must
// fall inside the cluster's restore window, which the worker maintains from
// its oplog retention; the control plane never recomputes it.
func (s *RestoreService) Create(ctx context.Context, params CreateRestoreParams) (*model.Restore, error) {
	cluster, err := s.clusters.FindByID(ctx, params.ClusterID)
	if err != nil {
		return nil, err
	}
	if !model.ClusterAcceptsBackup(cluster.Status) {
		return nil, fmt.Errorf("cluster %s status is %s: %w", cluster.ID, cluster.Status, ErrClusterNotReady)
	}

	if cluster.OldestRestorePoint == nil || cluster.NewestRestorePoint == nil {
		return nil, fmt.Errorf("cluster %s has no restore window yet: %w", cluster.ID, ErrRestorePointOutOfRange)
	}
	if params.RestorePoint.Before(*cluster.OldestRestorePoint) || params.RestorePoint.After(*cluster.NewestRestorePoint) {
		return nil, fmt.Errorf("restore point %s outside window [%s, %s]: %w",
			params.RestorePoint.Format(time.RFC3339),
			cluster.OldestRestorePoint.Format(time.RFC3339),
			cluster.NewestRestorePoint.Format(time.RFC3339),
			ErrRestorePointOutOfRange)
	}

	restore := s.newRestore(cluster, nil, params.RestorePoint, params.TargetClusterID)
	if err := s.insertAndDispatch(ctx, restore); err != nil {
		return nil, err
	}

	s.events.Record(model.Event{
		OrgID: restore.OrgID, ProjectID: restore.ProjectID, ClusterID: restore.ClusterID,
		Type: model.EventRestoreStarted, Severity: model.SeverityInfo,
		Message: fmt.Sprintf("point-in-time restore to %s started by %s",
			params.RestorePoint.Format(time.RFC3339), params.RequestedBy),
		Metadata: map[string]any{"restore_id": restore.ID},
	})
	return restore, nil
}

// CreateFromBackup starts a restore from a completed backup's base snapshot,
// without oplog replay. Used by BackupService.Restore, which has already
// parked the source backup in restoring state.
func (s *RestoreService) CreateFromBackup(ctx context.Context, backup *model.Backup, opts RestoreOptions) (*model.Restore, error) {
	cluster, err := s.clusters.FindByID(ctx, backup.ClusterID)
	if err != nil {
		return nil, err
	}

	restorePoint := backup.CreatedAt
	if backup.CompletedAt != nil {
		restorePoint = *backup.CompletedAt
	}

	restore := s.newRestore(cluster, &backup.ID, restorePoint, opts.TargetClusterID)
	if err := s.insertAndDispatch(ctx, restore); err != nil {
		return nil, err
	}

	s.events.Record(model.Event{
		OrgID: restore.OrgID, ProjectID: restore.ProjectID, ClusterID: restore.ClusterID,
		Type: model.EventRestoreStarted, Severity: model.SeverityInfo,
		Message:  fmt.Sprintf("restore from backup %s started by %s", backup.Name, opts.RequestedBy),
		Metadata: map[string]any{"restore_id": restore.ID, "source_backup_id": backup.ID},
	})
	return restore, nil
}

func (s *RestoreService) newRestore(cluster *model.Cluster, sourceBackupID *string, restorePoint time.Time, targetClusterID *string) *model.Restore {
	now := time.Now()
	return &model.Restore{
		ID:              platform.NewID(),
		ClusterID:       cluster.ID,
		ProjectID:       cluster.ProjectID,
		OrgID:           cluster.OrgID,
		SourceBackupID:  sourceBackupID,
		RestorePoint:    restorePoint,
		TargetClusterID: targetClusterID,
		Status:          model.RestoreStatusPending,
		CurrentStep:     "queued",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *RestoreService) insertAndDispatch(ctx context.Context, restore *model.Restore) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO restores (id, cluster_id, project_id, org_id, source_backup_id,
		                       restore_point, target_cluster_id, status, progress, current_step,
		                       created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		restore.ID, restore.ClusterID, restore.ProjectID, restore.OrgID, restore.SourceBackupID,
		restore.RestorePoint, restore.TargetClusterID, restore.Status, restore.Progress,
		restore.CurrentStep, restore.CreatedAt, restore.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert restore: %w", err)
	}

	_, err = s.jobs.Enqueue(ctx, model.ProvisionTask{
		JobType:   model.JobTypeRestoreCluster,
		EntityID:  restore.ID,
		ClusterID: restore.ClusterID,
		ProjectID: restore.ProjectID,
		OrgID:     restore.OrgID,
	})
	if err != nil {
		if _, delErr := s.db.Exec(ctx, `DELETE FROM restores WHERE id = $1`, restore.ID); delErr != nil {
			return fmt.Errorf("roll back restore %s after enqueue failure: %v (enqueue: %w)", restore.ID, delErr, err)
		}
		return &ProvisioningError{Err: err}
	}
	return nil
}

// UpdateProgress persists the latest worker-reported state. The orchestrator
// never computes progress itself. Stale replays (a status the record already
// passed) are ignored; updates against a terminal record are refused.
func (s *RestoreService) UpdateProgress(ctx context.Context, id, status string, progress int, currentStep string) error {
	if model.IsRestoreTerminal(status) || model.RestoreStatusRank(status) < 0 {
		return &ValidationError{Fields: []FieldError{{Field: "status", Message: fmt.Sprintf("%q is not a reportable restore step", status)}}}
	}
	if progress < 0 || progress > 100 {
		return &ValidationError{Fields: []FieldError{{Field: "progress", Message: "must be between 0 and 100"}}}
	}

	restore, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if model.IsRestoreTerminal(restore.Status) {
		return fmt.Errorf("restore %s is %s: %w", id, restore.Status, ErrRestoreTerminal)
	}
	if status != restore.Status && !model.CanTransitionRestore(restore.Status, status) {
		// At-least-once delivery replays old steps; dropping them keeps the
		// record moving strictly forward.
		return nil
	}

	_, err = s.db.Exec(ctx,
		`UPDATE restores SET status = $1, progress = $2, current_step = $3,
		        started_at = COALESCE(started_at, now()), updated_at = now()
		 WHERE id = $4 AND status IN ($5, $1)`,
		status, progress, currentStep, id, restore.Status,
	)
	if err != nil {
		return fmt.Errorf("update restore %s progress: %w", id, err)
	}
	return nil
}

// Complete marks the restore finished and releases the source backup from
// restoring back to completed so the backup stays restorable and deletable.
func (s *RestoreService) Complete(ctx context.Context, id string) error {
	restore, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if restore.Status == model.RestoreStatusCompleted {
		return nil
	}
	if model.IsRestoreTerminal(restore.Status) {
		return fmt.Errorf("restore %s is %s: %w", id, restore.Status, ErrRestoreTerminal)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE restores SET status = $1, progress = 100, current_step = 'completed',
		        completed_at = now(), updated_at = now()
		 WHERE id = $2 AND status NOT IN ($3, $4)`,
		model.RestoreStatusCompleted, id, model.RestoreStatusFailed, model.RestoreStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("complete restore %s: %w", id, err)
	}

	if err := s.releaseSourceBackup(ctx, restore); err != nil {
		return err
	}

	s.events.Record(model.Event{
		OrgID: restore.OrgID, ProjectID: restore.ProjectID, ClusterID: restore.ClusterID,
		Type: model.EventRestoreCompleted, Severity: model.SeverityInfo,
		Message:  fmt.Sprintf("restore %s completed", restore.ID),
		Metadata: map[string]any{"restore_id": restore.ID},
	})
	return nil
}

// Fail marks the restore failed and records the error. The source backup is
// released; the failed restore no longer needs it.
func (s *RestoreService) Fail(ctx context.Context, id, errorMessage string) error {
	restore, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if restore.Status == model.RestoreStatusFailed {
		return nil
	}
	if model.IsRestoreTerminal(restore.Status) {
		return fmt.Errorf("restore %s is %s: %w", id, restore.Status, ErrRestoreTerminal)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE restores SET status = $1, error_message = $2,
		        completed_at = now(), updated_at = now()
		 WHERE id = $3 AND status NOT IN ($4, $5)`,
		model.RestoreStatusFailed, errorMessage, id,
		model.RestoreStatusCompleted, model.RestoreStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("fail restore %s: %w", id, err)
	}

	if err := s.releaseSourceBackup(ctx, restore); err != nil {
		return err
	}

	s.events.Record(model.Event{
		OrgID: restore.OrgID, ProjectID: restore.ProjectID, ClusterID: restore.ClusterID,
		Type: model.EventRestoreFailed, Severity: model.SeverityError,
		Message:  fmt.Sprintf("restore %s failed: %s", restore.ID, errorMessage),
		Metadata: map[string]any{"restore_id": restore.ID},
	})
	return nil
}

// Cancel marks the restore cancelled and asks the worker to stop. The
// returned warning is non-empty when the in-flight work order could not be
// reached; infrastructure changes already applied are not undone either way.
func (s *RestoreService) Cancel(ctx context.Context, id string) (*model.Restore, string, error) {
	restore, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if model.IsRestoreTerminal(restore.Status) {
		return nil, "", fmt.Errorf("restore %s is %s: %w", id, restore.Status, ErrRestoreTerminal)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE restores SET status = $1, current_step = 'cancelled',
		        completed_at = now(), updated_at = now()
		 WHERE id = $2 AND status NOT IN ($3, $4, $5)`,
		model.RestoreStatusCancelled, id,
		model.RestoreStatusCompleted, model.RestoreStatusFailed, model.RestoreStatusCancelled,
	)
	if err != nil {
		return nil, "", fmt.Errorf("cancel restore %s: %w", id, err)
	}
	restore.Status = model.RestoreStatusCancelled

	if err := s.releaseSourceBackup(ctx, restore); err != nil {
		return nil, "", err
	}

	var warning string
	if err := s.jobs.Cancel(ctx, workflowID(model.JobTypeRestoreCluster, id)); err != nil {
		warning = fmt.Sprintf("restore marked cancelled, but the in-flight work order could not be cancelled: %v", err)
	}

	s.events.Record(model.Event{
		OrgID: restore.OrgID, ProjectID: restore.ProjectID, ClusterID: restore.ClusterID,
		Type: model.EventRestoreCancelled, Severity: model.SeverityWarning,
		Message:  fmt.Sprintf("restore %s cancelled", restore.ID),
		Metadata: map[string]any{"restore_id": restore.ID},
	})
	return restore, warning, nil
}

// releaseSourceBackup moves the source backup from restoring back to
// completed, the only backward transition the backup lifecycle allows.
func (s *RestoreService) releaseSourceBackup(ctx context.Context, restore *model.Restore) error {
	if restore.SourceBackupID == nil {
		return nil
	}
	_, err := s.db.Exec(ctx,
		`UPDATE backups SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		model.BackupStatusCompleted, *restore.SourceBackupID, model.BackupStatusRestoring,
	)
	if err != nil {
		return fmt.Errorf("release source backup %s: %w", *restore.SourceBackupID, err)
	}
	return nil
}

func (s *RestoreService) GetByID(ctx context.Context, id string) (*model.Restore, error) {
	restore, err := scanRestore(s.db.QueryRow(ctx,
		`SELECT `+restoreColumns+` FROM restores WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "restore", ID: id}
		}
		return nil, fmt.Errorf("get restore %s: %w", id, err)
	}
	return restore, nil
}

func (s *RestoreService) ListByCluster(ctx context.Context, clusterID string, limit int, cursor string) ([]model.Restore, bool, error) {
	query := `SELECT ` + restoreColumns + ` FROM restores WHERE cluster_id = $1`
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
		return nil, false, fmt.Errorf("list restores for cluster %s: %w", clusterID, err)
	}
	defer rows.Close()

	var restores []model.Restore
	for rows.Next() {
		restore, err := scanRestore(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan restore: %w", err)
		}
		restores = append(restores, *restore)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate restores: %w", err)
	}

	hasMore := len(restores) > limit
	if hasMore {
		restores = restores[:limit]
	}
	return restores, hasMore, nil
}

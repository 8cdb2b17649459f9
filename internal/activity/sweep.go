package activity

import (
	"context"
	"fmt"

	"github.com/stratumdb/controlplane/internal/core"
	"github.com/stratumdb/controlplane/internal/model"
)

// SweepActivities find and remove backups that have outlived their retention.
type SweepActivities struct {
	db     DB
	events core.EventSink
}

func NewSweepActivities(db DB, events core.EventSink) *SweepActivities {
	return &SweepActivities{db: db, events: events}
}

// ExpiredBackup is the slice of a backup record the sweep needs.
type ExpiredBackup struct {
	ID             string `json:"id"`
	ClusterID      string `json:"cluster_id"`
	ProjectID      string `json:"project_id"`
	OrgID          string `json:"org_id"`
	StorageType    string `json:"storage_type"`
	StoragePath    string `json:"storage_path"`
	ExportLocation string `json:"export_location"`
}

// ListExpiredBackups returns backups in a terminal state whose expiry has
// passed and whose cluster is not under an active legal hold. A legal hold
// with a past until date no longer protects anything.
func (a *SweepActivities) ListExpiredBackups(ctx context.Context, limit int) ([]ExpiredBackup, error) {
	rows, err := a.db.Query(ctx,
		`SELECT b.id, b.cluster_id, b.project_id, b.org_id, b.storage_type, b.storage_path,
		        COALESCE(b.metadata->>'export_location', '')
		 FROM backups b
		 LEFT JOIN backup_policies p ON p.cluster_id = b.cluster_id
		 WHERE b.status IN ($1, $2)
		   AND b.expires_at < now()
		   AND (p.id IS NULL
		        OR p.legal_hold_enabled = false
		        OR (p.legal_hold_until IS NOT NULL AND p.legal_hold_until < now()))
		 ORDER BY b.expires_at
		 LIMIT $3`, model.BackupStatusCompleted, model.BackupStatusFailed, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired backups: %w", err)
	}
	defer rows.Close()

	var expired []ExpiredBackup
	for rows.Next() {
		var b ExpiredBackup
		if err := rows.Scan(&b.ID, &b.ClusterID, &b.ProjectID, &b.OrgID, &b.StorageType, &b.StoragePath, &b.ExportLocation); err != nil {
			return nil, fmt.Errorf("scan expired backup row: %w", err)
		}
		expired = append(expired, b)
	}
	return expired, rows.Err()
}

// MarkBackupExpired soft-deletes a backup whose retention has run out. A
// backup that moved out of a terminal state since the sweep listed it, for
// example back into restoring, is left alone.
func (a *SweepActivities) MarkBackupExpired(ctx context.Context, backup ExpiredBackup) error {
	tag, err := a.db.Exec(ctx,
		`UPDATE backups SET status = $1, updated_at = now() WHERE id = $2 AND status IN ($3, $4)`,
		model.BackupStatusDeleted, backup.ID, model.BackupStatusCompleted, model.BackupStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("mark backup expired: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	a.events.Record(model.Event{
		ClusterID: backup.ClusterID,
		ProjectID: backup.ProjectID,
		OrgID:     backup.OrgID,
		Type:      model.EventBackupExpired,
		Severity:  model.SeverityInfo,
		Message:   fmt.Sprintf("backup %s expired past retention", backup.ID),
	})
	return nil
}

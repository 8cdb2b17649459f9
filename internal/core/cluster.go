package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stratumdb/controlplane/internal/model"
)

// ClusterDirectory is the narrow read-only view of clusters the backup and
// restore services depend on. ClusterService satisfies it.
type ClusterDirectory interface {
	FindByID(ctx context.Context, id string) (*model.Cluster, error)
}

type ClusterService struct {
	db DB
}

func NewClusterService(db DB) *ClusterService {
	return &ClusterService{db: db}
}

const clusterColumns = `id, org_id, project_id, name, plan, engine_version, status,
	oldest_restore_point, newest_restore_point, created_at, updated_at`

func scanCluster(row pgx.Row) (*model.Cluster, error) {
	var c model.Cluster
	err := row.Scan(&c.ID, &c.OrgID, &c.ProjectID, &c.Name, &c.Plan, &c.EngineVersion,
		&c.Status, &c.OldestRestorePoint, &c.NewestRestorePoint, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ClusterService) Create(ctx context.Context, cluster *model.Cluster) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO clusters (id, org_id, project_id, name, plan, engine_version, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		cluster.ID, cluster.OrgID, cluster.ProjectID, cluster.Name,
		cluster.Plan, cluster.EngineVersion, cluster.Status, cluster.CreatedAt, cluster.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cluster: %w", err)
	}
	return nil
}

func (s *ClusterService) GetByID(ctx context.Context, id string) (*model.Cluster, error) {
	cluster, err := scanCluster(s.db.QueryRow(ctx,
		`SELECT `+clusterColumns+` FROM clusters WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "cluster", ID: id}
		}
		return nil, fmt.Errorf("get cluster %s: %w", id, err)
	}
	return cluster, nil
}

// FindByID implements ClusterDirectory.
func (s *ClusterService) FindByID(ctx context.Context, id string) (*model.Cluster, error) {
	return s.GetByID(ctx, id)
}

func (s *ClusterService) ListByProject(ctx context.Context, projectID string, limit int, cursor string) ([]model.Cluster, bool, error) {
	query := `SELECT ` + clusterColumns + ` FROM clusters WHERE project_id = $1`
	args := []any{projectID}
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
		return nil, false, fmt.Errorf("list clusters for project %s: %w", projectID, err)
	}
	defer rows.Close()

	var clusters []model.Cluster
	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan cluster: %w", err)
		}
		clusters = append(clusters, *cluster)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate clusters: %w", err)
	}

	hasMore := len(clusters) > limit
	if hasMore {
		clusters = clusters[:limit]
	}
	return clusters, hasMore, nil
}

func (s *ClusterService) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE clusters SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update cluster %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "cluster", ID: id}
	}
	return nil
}

// UpdateRestoreWindow records the currently recoverable PITR range. Called by
// the worker as oplog is retained and trimmed; the control plane never
// computes the window itself.
func (s *ClusterService) UpdateRestoreWindow(ctx context.Context, id string, oldest, newest time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE clusters SET oldest_restore_point = $1, newest_restore_point = $2, updated_at = now()
		 WHERE id = $3`, oldest, newest, id)
	if err != nil {
		return fmt.Errorf("update cluster %s restore window: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "cluster", ID: id}
	}
	return nil
}

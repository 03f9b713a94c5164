// internal/store/jobs_postgres.go
package store

import (
	"context"
	"database/sql"

	pipeerrors "careerhunt-pipeline/internal/common/errors"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/models"

	"github.com/lib/pq"
)

// PostgresJobs implements Jobs on the shared Postgres pool.
type PostgresJobs struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresJobs(db *sql.DB, log logger.Logger) *PostgresJobs {
	return &PostgresJobs{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "jobs-store"}),
	}
}

func (s *PostgresJobs) ByIDs(ctx context.Context, ids []string) ([]models.JobRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, company, description, expired, status, created_at, updated_at
		 FROM jobs WHERE id = ANY($1) AND expired = FALSE`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, pipeerrors.NewQueryFailedError("jobs.by_ids", err)
	}
	defer rows.Close()

	var jobs []models.JobRecord
	for rows.Next() {
		var job models.JobRecord
		var status string
		err := rows.Scan(&job.ID, &job.Title, &job.Company, &job.Description,
			&job.Expired, &status, &job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			return nil, pipeerrors.NewQueryFailedError("jobs.by_ids", err)
		}
		job.Status = models.ProcessingStatus(status)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, pipeerrors.NewQueryFailedError("jobs.by_ids", err)
	}

	return jobs, nil
}

func (s *PostgresJobs) SetStatus(ctx context.Context, id string, status models.ProcessingStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return pipeerrors.NewQueryFailedError("jobs.set_status", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return pipeerrors.NewRecordNotFoundError("job", id)
	}
	return nil
}

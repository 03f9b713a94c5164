// internal/store/skills_postgres.go
package store

import (
	"context"
	"database/sql"

	pipeerrors "careerhunt-pipeline/internal/common/errors"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresSkills implements Skills on the shared Postgres pool.
type PostgresSkills struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresSkills(db *sql.DB, log logger.Logger) *PostgresSkills {
	return &PostgresSkills{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "skills-store"}),
	}
}

// upsertLinkQuery is a single statement so concurrent links of the same skill
// serialize on the row instead of racing a read-modify-write. The owner array
// union is deduplicated on every write; frequency counts every link attempt.
const upsertLinkQuery = `
INSERT INTO skills (id, name, display_name, confidence, origin, frequency, application_ids, job_ids, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 1, $6, $7, NOW(), NOW())
ON CONFLICT (name) DO UPDATE SET
	frequency       = skills.frequency + 1,
	confidence      = GREATEST(skills.confidence, EXCLUDED.confidence),
	application_ids = ARRAY(SELECT DISTINCT unnest(skills.application_ids || EXCLUDED.application_ids)),
	job_ids         = ARRAY(SELECT DISTINCT unnest(skills.job_ids || EXCLUDED.job_ids)),
	updated_at      = NOW()
RETURNING id, name, display_name, confidence, origin, frequency, application_ids, job_ids, created_at, updated_at`

func (s *PostgresSkills) UpsertLink(ctx context.Context, link SkillLink) (*models.SkillRecord, error) {
	applicationIDs := []string{}
	jobIDs := []string{}
	switch link.Origin {
	case models.OriginResume:
		applicationIDs = append(applicationIDs, link.OwnerID)
	case models.OriginJobPosting:
		jobIDs = append(jobIDs, link.OwnerID)
	}

	row := s.db.QueryRowContext(ctx, upsertLinkQuery,
		uuid.NewString(),
		link.Name,
		link.DisplayName,
		link.Confidence,
		string(link.Origin),
		pq.Array(applicationIDs),
		pq.Array(jobIDs),
	)

	var record models.SkillRecord
	var origin string
	err := row.Scan(
		&record.ID,
		&record.Name,
		&record.DisplayName,
		&record.Confidence,
		&origin,
		&record.Frequency,
		pq.Array(&record.ApplicationIDs),
		pq.Array(&record.JobIDs),
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, pipeerrors.NewLinkingFailedError(link.Name, err)
	}
	record.Origin = models.SkillOrigin(origin)

	return &record, nil
}

func (s *PostgresSkills) NamesForApplications(ctx context.Context, applicationIDs []string) ([]string, error) {
	if len(applicationIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM skills WHERE application_ids && $1 ORDER BY frequency DESC`,
		pq.Array(applicationIDs),
	)
	if err != nil {
		return nil, pipeerrors.NewQueryFailedError("skills.names_for_applications", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, pipeerrors.NewQueryFailedError("skills.names_for_applications", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, pipeerrors.NewQueryFailedError("skills.names_for_applications", err)
	}

	return names, nil
}

func (s *PostgresSkills) UnlinkJob(ctx context.Context, jobID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE skills SET job_ids = array_remove(job_ids, $1), updated_at = NOW() WHERE $1 = ANY(job_ids)`,
		jobID,
	)
	if err != nil {
		return pipeerrors.NewQueryFailedError("skills.unlink_job", err)
	}

	if affected, err := result.RowsAffected(); err == nil {
		s.logger.Debug("job unlinked from skills", map[string]interface{}{
			"jobId":  jobID,
			"skills": affected,
		})
	}
	return nil
}

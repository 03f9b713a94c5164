// internal/store/applications_postgres.go
package store

import (
	"context"
	"database/sql"
	"errors"

	pipeerrors "careerhunt-pipeline/internal/common/errors"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/models"
)

// PostgresApplications implements Applications on the shared Postgres pool.
type PostgresApplications struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresApplications(db *sql.DB, log logger.Logger) *PostgresApplications {
	return &PostgresApplications{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "applications-store"}),
	}
}

func (s *PostgresApplications) ByID(ctx context.Context, id string) (*models.ApplicationRecord, error) {
	var app models.ApplicationRecord
	var status string
	var score sql.NullFloat64
	var feedback sql.NullString
	var degraded sql.NullBool
	var evaluatedAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, job_id, status,
		        evaluation_score, evaluation_feedback, evaluation_degraded, evaluated_at,
		        created_at, updated_at
		 FROM applications WHERE id = $1`,
		id,
	).Scan(&app.ID, &app.UserID, &app.JobID, &status,
		&score, &feedback, &degraded, &evaluatedAt,
		&app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pipeerrors.NewRecordNotFoundError("application", id)
	}
	if err != nil {
		return nil, pipeerrors.NewQueryFailedError("applications.by_id", err)
	}

	app.Status = models.ProcessingStatus(status)
	if evaluatedAt.Valid {
		app.LastEvaluation = &models.Evaluation{
			Score:       score.Float64,
			Feedback:    feedback.String,
			Degraded:    degraded.Bool,
			EvaluatedAt: evaluatedAt.Time,
		}
	}
	return &app, nil
}

func (s *PostgresApplications) SetStatus(ctx context.Context, id string, status models.ProcessingStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE applications SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return pipeerrors.NewQueryFailedError("applications.set_status", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return pipeerrors.NewRecordNotFoundError("application", id)
	}
	return nil
}

func (s *PostgresApplications) SaveEvaluation(ctx context.Context, id string, eval models.Evaluation) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE applications SET
			evaluation_score = $2,
			evaluation_feedback = $3,
			evaluation_degraded = $4,
			evaluated_at = $5,
			updated_at = NOW()
		 WHERE id = $1`,
		id, eval.Score, eval.Feedback, eval.Degraded, eval.EvaluatedAt,
	)
	if err != nil {
		return pipeerrors.NewQueryFailedError("applications.save_evaluation", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return pipeerrors.NewRecordNotFoundError("application", id)
	}
	return nil
}

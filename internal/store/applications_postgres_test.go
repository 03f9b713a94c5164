// internal/store/applications_postgres_test.go
package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "careerhunt-pipeline/internal/common/errors"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/models"
)

func TestApplicationsByID_WithEvaluation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "job_id", "status",
			"evaluation_score", "evaluation_feedback", "evaluation_degraded", "evaluated_at",
			"created_at", "updated_at",
		}).AddRow("app-1", "user-1", "job-1", "complete", 87.5, "Solid match.", false, now, now, now))

	apps := NewPostgresApplications(db, logger.NewTestLogger(t))
	record, err := apps.ByID(context.Background(), "app-1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusComplete, record.Status)
	assert.True(t, record.Processed())
	require.NotNil(t, record.LastEvaluation)
	assert.Equal(t, 87.5, record.LastEvaluation.Score)
	assert.False(t, record.LastEvaluation.Degraded)
}

func TestApplicationsByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	apps := NewPostgresApplications(db, logger.NewTestLogger(t))
	_, err = apps.ByID(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, pipeerrors.IsNotFound(err))
}

func TestApplicationsSaveEvaluation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	evaluatedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET")).
		WithArgs("app-1", 72.0, "Degraded feedback.", true, evaluatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	apps := NewPostgresApplications(db, logger.NewTestLogger(t))
	err = apps.SaveEvaluation(context.Background(), "app-1", models.Evaluation{
		Score:       72.0,
		Feedback:    "Degraded feedback.",
		Degraded:    true,
		EvaluatedAt: evaluatedAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// internal/store/users_postgres.go
package store

import (
	"context"
	"database/sql"
	"errors"

	pipeerrors "careerhunt-pipeline/internal/common/errors"
	"careerhunt-pipeline/internal/common/logger"
)

// PostgresUsers implements Users on the shared Postgres pool.
type PostgresUsers struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresUsers(db *sql.DB, log logger.Logger) *PostgresUsers {
	return &PostgresUsers{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "users-store"}),
	}
}

// LastProcessedApplication returns the user's most recent enriched
// application, or "" when the user has none. The reference is weak: the
// caller must handle the application having since disappeared.
func (s *PostgresUsers) LastProcessedApplication(ctx context.Context, userID string) (string, error) {
	var applicationID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT last_processed_application FROM users WHERE id = $1`,
		userID,
	).Scan(&applicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", pipeerrors.NewRecordNotFoundError("user", userID)
	}
	if err != nil {
		return "", pipeerrors.NewQueryFailedError("users.last_processed_application", err)
	}
	return applicationID.String, nil
}

func (s *PostgresUsers) SetLastProcessedApplication(ctx context.Context, userID, applicationID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_processed_application = $2, updated_at = NOW() WHERE id = $1`,
		userID, applicationID,
	)
	if err != nil {
		return pipeerrors.NewQueryFailedError("users.set_last_processed_application", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return pipeerrors.NewRecordNotFoundError("user", userID)
	}
	return nil
}

func (s *PostgresUsers) ApplicationIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM applications WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, pipeerrors.NewQueryFailedError("users.application_ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, pipeerrors.NewQueryFailedError("users.application_ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, pipeerrors.NewQueryFailedError("users.application_ids", err)
	}

	return ids, nil
}

// internal/store/postgres.go
package store

import (
	"database/sql"

	"careerhunt-pipeline/internal/common/logger"
)

// NewPostgresStore wires every repository onto one shared connection pool.
func NewPostgresStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		Skills:       NewPostgresSkills(db, log),
		Jobs:         NewPostgresJobs(db, log),
		Applications: NewPostgresApplications(db, log),
		Users:        NewPostgresUsers(db, log),
	}
}

package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsDuplicateKeyErr reports whether err is a unique-constraint violation on any
// of the supported dialects. Callers treat it as an expected outcome.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return true
	}

	msg := err.Error()
	switch {
	// PostgreSQL text form
	case strings.Contains(msg, "duplicate key value violates unique constraint"):
		return true
	// MySQL (error code 1062)
	case strings.Contains(msg, "Error 1062"):
		return true
	// SQLite (error code 2067)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return true
	}

	return false
}

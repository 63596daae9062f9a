package db

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned by updates and deletes of a missing id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateExternalKey means a task with the same (source, key)
	// already exists. Callers are expected to look the key up first; this
	// is a guard against programming errors, not a retry signal.
	ErrDuplicateExternalKey = errors.New("duplicate external key")

	// ErrDuplicateProject means a project for the repository exists.
	ErrDuplicateProject = errors.New("duplicate project source repo")
)

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

package db

import "strings"

// IsUniqueViolation reports whether the error came from a violated unique
// constraint. Matches both the Postgres and sqlite error texts so callers
// behave the same against either backend.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

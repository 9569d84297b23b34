package database

import (
	"errors"

	"github.com/lib/pq"
)

const (
	uniqueViolationCode           = "23505"
	invalidTextRepresentationCode = "22P02"
)

// UniqueViolation reports whether err is a Postgres unique violation and
// returns the name of the violated constraint.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
		return pqErr.Constraint, true
	}
	return "", false
}

// InvalidTextRepresentation reports whether Postgres rejected a parameter
// that does not parse as the column type, such as a malformed UUID.
func InvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentationCode
}

package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation = "23505"
	pqInvalidText     = "22P02"
)

// IsUniqueViolation reports whether err is a postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// IsInvalidText reports whether postgres rejected a value that does not parse as the
// column type, such as a malformed uuid.
func IsInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidText
}

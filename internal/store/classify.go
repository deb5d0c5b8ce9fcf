package store

import (
	"errors"
	"strings"
)

// Kind is the user-facing classification of a store failure.
type Kind int

const (
	// KindNone means no error.
	KindNone Kind = iota

	// KindSchemaMissing means the todos table does not exist yet. Recoverable
	// by running the setup SQL, not by retrying.
	KindSchemaMissing

	// KindFailure is any other store error (network, permission, validation).
	KindFailure
)

// undefinedTableCode is the Postgres SQLSTATE for an undefined relation.
const undefinedTableCode = "42P01"

// Classify maps a store error to its user-facing kind. It inspects only the
// narrow Error contract, never transport details.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var se *Error
	if !errors.As(err, &se) {
		return KindFailure
	}

	if se.Code == undefinedTableCode {
		return KindSchemaMissing
	}
	if se.Status == 404 {
		return KindSchemaMissing
	}
	msg := strings.ToLower(se.Message)
	if strings.Contains(msg, "not found") || strings.Contains(msg, "schema cache") {
		return KindSchemaMissing
	}

	return KindFailure
}

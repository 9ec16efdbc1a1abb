package storage

import (
	"errors"
	"fmt"
	"strings"

	"ioclens/core"
)

// Storage error constants
var (
	// ErrRecordNotFound is returned when an analysis record is not found
	ErrRecordNotFound = errors.New("analysis record not found")

	// ErrSearchQueriesNotFound is returned when no search queries exist for a record
	ErrSearchQueriesNotFound = errors.New("search queries not found")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrDatabaseClosed is returned when attempting to use a closed database connection
	ErrDatabaseClosed = errors.New("database is closed")

	// ErrUnsupportedDriver is returned for a storage driver other than sqlite or postgres
	ErrUnsupportedDriver = errors.New("unsupported storage driver")
)

// notFound wraps a sentinel in a core not-found error so callers can match either
func notFound(op string, sentinel error) error {
	return core.NewNotFoundError(op, sentinel.Error(), sentinel)
}

// storageFailure classifies a driver error as a core storage error
func storageFailure(op string, err error) error {
	if strings.Contains(err.Error(), "database is closed") {
		err = fmt.Errorf("%w: %v", ErrDatabaseClosed, err)
	}
	return core.NewStorageError(op, err)
}

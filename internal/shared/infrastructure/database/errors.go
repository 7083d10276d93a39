package database

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrDriverNotRegistered is returned by NewConnection when the driver
	// package was not linked in.
	ErrDriverNotRegistered = errors.New("database driver not registered")

	// ErrUnknownDriver is returned by ParseDriver.
	ErrUnknownDriver = errors.New("unknown database driver")

	// ErrNoTransaction is returned by Commit and Rollback on a context that
	// did not come from Begin.
	ErrNoTransaction = errors.New("no transaction in context")
)

// IsNoRows reports whether err means a single-row query found nothing, for
// either driver.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

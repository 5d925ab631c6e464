// Package store persists users, closets, wear history and calendars in SQLite.
package store

import "errors"

// ErrNotFound is returned by updates and deletes that matched no row.
// Single-row lookups return nil, nil instead.
var ErrNotFound = errors.New("not found")

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

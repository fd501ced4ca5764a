package storage

import "errors"

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("conflict")
	// ErrStaleRevision is returned by SaveScore when the bet was already
	// scored against a newer results revision.
	ErrStaleRevision = errors.New("stale results revision")
	// ErrUnknownBackend is returned by Open for unsupported backends.
	ErrUnknownBackend = errors.New("unknown database backend")
	// ErrDirty is returned by Migrate when a previous migration failed halfway.
	ErrDirty = errors.New("database is in a dirty migration state")
)

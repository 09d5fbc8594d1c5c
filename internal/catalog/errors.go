package catalog

import "errors"

// Domain errors for the catalog package.
var (
	// ErrSnapshotNotFound is returned when no snapshot matches an id or name.
	ErrSnapshotNotFound = errors.New("catalog: snapshot not found")

	// ErrInvalidSnapshot is returned when saving without a name or database.
	ErrInvalidSnapshot = errors.New("catalog: invalid snapshot")
)

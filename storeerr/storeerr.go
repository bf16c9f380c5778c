// Package storeerr defines the sentinel errors returned by the storage
// core, in the teacher's flat errors.New sentinel style (see
// storage/keyval's errTransactionComplete / ErrKeyNotFound).
package storeerr

import "errors"

var (
	// ErrCapacityExhausted is returned by InsertTuple when a tile group
	// has no free slots left; the caller is expected to allocate a new
	// tile group and retry there.
	ErrCapacityExhausted = errors.New("storeerr: tile group capacity exhausted")

	// ErrBusy is returned when a slot's MVCC state cannot be transitioned
	// because another transaction currently owns it.
	ErrBusy = errors.New("storeerr: slot is owned by another transaction")

	// ErrNotVisible names a slot that exists but is not visible to the
	// requesting snapshot. Nothing in this module returns it: SelectTuple
	// does not check visibility, and scans skip such slots.
	ErrNotVisible = errors.New("storeerr: slot not visible to this snapshot")

	// ErrInvariantViolation marks a state transition that should be
	// impossible under correct usage (e.g. committing an insert that was
	// never reserved by the committing transaction).
	ErrInvariantViolation = errors.New("storeerr: storage invariant violated")

	// ErrBackendFailure names a failed Backend allocation. Nothing in this
	// module returns it; Tile.SaveTo and LoadFrom return Backend errors
	// unwrapped.
	ErrBackendFailure = errors.New("storeerr: backend allocation failed")
)

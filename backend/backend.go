// Package backend abstracts the raw byte-addressable region a tile's
// payload and pool live in. Three concrete backends are provided: an
// in-process memory arena, a go.etcd.io/bbolt-backed file region, and a
// cockroachdb/pebble-backed region used as the NVM-style variant. All three
// satisfy the same Backend interface, grounded in the teacher's
// engine/badger and engine/bbolt drivers and storage/kvrows's pebble use.
package backend

import "errors"

// ErrNotFound is returned by Backend.Read when a Region's address no
// longer maps to live storage (e.g. after Release).
var ErrNotFound = errors.New("backend: region not found")

// Region identifies a previously allocated byte range. Its meaning is
// backend-private; callers treat it as an opaque handle.
type Region struct {
	addr uint64
	size int
}

// Size is the number of bytes Allocate reserved for this Region.
func (r Region) Size() int { return r.size }

// Addr is the backend-assigned address of this Region. Backends use it as
// their own lookup key (map key, file offset, KV key suffix); it carries
// no meaning across backends.
func (r Region) Addr() uint64 { return r.addr }

// NewRegion constructs a Region. It is exported so that Backend
// implementations outside this package can hand out Regions.
func NewRegion(addr uint64, size int) Region {
	return Region{addr: addr, size: size}
}

// Backend is the flat byte-addressable region a Tile allocates its
// payload and pool from. Implementations need not support resizing: a
// tile that outgrows its region is abandoned in favor of a new tile group,
// per the no-recycling policy of the storage core.
type Backend interface {
	// Allocate reserves n zeroed bytes and returns a handle to them.
	Allocate(n int) (Region, error)
	// Read copies the full contents of r into a fresh []byte.
	Read(r Region) ([]byte, error)
	// Write overwrites r's contents with buf, which must be len(buf) <= r.Size().
	Write(r Region, buf []byte) error
	// Release returns a Region's storage to the backend. A released
	// Region must not be read or written afterward.
	Release(r Region) error
	// Close releases any resources (open files, database handles) held
	// by the backend itself.
	Close() error
}

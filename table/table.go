// Package table implements AbstractTable: an ordered sequence of tile
// groups for a single table, growing by appending a fresh tile group when
// the tail is full. Grounded in the teacher's storage/store.go (a
// registry that creates and looks up storage objects by id) generalized
// from SQL system tables to tile groups.
package table

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/colstore/tilegroup/backend"
	"github.com/colstore/tilegroup/catalog"
	"github.com/colstore/tilegroup/schema"
	"github.com/colstore/tilegroup/sql"
	"github.com/colstore/tilegroup/storeerr"
	"github.com/colstore/tilegroup/tilegroup"
)

// Table holds an ordered list of tile groups for one logical table. At
// most one tile group — the tail — is active (non-full) at a time; older
// groups remain mutable for MVCC state but never receive new inserts.
type Table struct {
	ID       uint64
	Layout   schema.Layout
	Capacity uint32

	cat *catalog.Catalog

	mu     sync.Mutex // serializes appends only; inserts into a non-full tail are lock-free
	groups []*tilegroup.TileGroup
	nextID uint64
}

// New creates an empty Table with the given column layout and per-group
// slot capacity, registered against cat.
func New(id uint64, layout schema.Layout, capacity uint32, cat *catalog.Catalog) *Table {
	t := &Table{ID: id, Layout: layout, Capacity: capacity, cat: cat}
	cat.Register(id, t)
	return t
}

// GetTileGroup returns the tile group at position i in insertion order.
func (t *Table) GetTileGroup(i int) *tilegroup.TileGroup {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.groups[i]
}

// TileGroupCount returns the number of tile groups currently owned by t.
func (t *Table) TileGroupCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.groups)
}

// tailLocked returns the current last tile group, appending a fresh one if
// there are none yet. Callers must hold t.mu.
func (t *Table) tailLocked() *tilegroup.TileGroup {
	if len(t.groups) == 0 {
		t.appendLocked()
	}
	return t.groups[len(t.groups)-1]
}

func (t *Table) appendLocked() *tilegroup.TileGroup {
	id := atomic.AddUint64(&t.nextID, 1) - 1
	g := tilegroup.New(id, t.ID, t.Layout, t.Capacity)
	t.groups = append(t.groups, g)
	t.cat.Register(tileGroupCatalogKey(t.ID, id), g)
	return g
}

// tileGroupCatalogKey derives a Catalog key for a tile group from its
// owning table id and its position, since tile-group ids are only unique
// within a table.
func tileGroupCatalogKey(tableID, groupID uint64) uint64 {
	return tableID<<32 | groupID
}

// InsertTuple tries the tail tile group; on ErrCapacityExhausted it
// appends a fresh tile group (registering it with the Catalog) and
// retries there. Appends serialize on the table-level mutex; inserts
// into a non-full tail do not take it beyond the tail lookup itself.
// Any other error (a schema/arity mismatch, a malformed value) is
// returned immediately — it is never a capacity race and retrying would
// just hand the same malformed tuple to the same group forever.
func (t *Table) InsertTuple(txn uint64, tuple []sql.Value) (groupID uint64, slot uint32, err error) {
	for {
		t.mu.Lock()
		g := t.tailLocked()
		full := g.Full()
		if full {
			g = t.appendLocked()
		}
		t.mu.Unlock()

		slot, err = g.InsertTuple(txn, tuple)
		if err == nil {
			return g.ID, slot, nil
		}
		if !full && errors.Is(err, storeerr.ErrCapacityExhausted) {
			// the tail reported full concurrently with our check; loop and
			// append on the next pass.
			continue
		}
		return 0, 0, err
	}
}

// GroupSnapshot is one tile group's share of a TableSnapshot.
type GroupSnapshot struct {
	ID        uint64
	Allocated uint32
	Tiles     []tilegroup.TileRegions
}

// TableSnapshot is the dump command's serialized form of a table: enough
// to reconstruct every tile group's data on a fresh Table built with the
// same Layout and Capacity.
type TableSnapshot struct {
	Groups []GroupSnapshot
}

// SaveTo snapshots every tile group t currently owns to b.
func (t *Table) SaveTo(b backend.Backend) (TableSnapshot, error) {
	t.mu.Lock()
	groups := append([]*tilegroup.TileGroup(nil), t.groups...)
	t.mu.Unlock()

	snap := TableSnapshot{Groups: make([]GroupSnapshot, len(groups))}
	for i, g := range groups {
		regions, err := g.SaveTo(b)
		if err != nil {
			return TableSnapshot{}, err
		}
		snap.Groups[i] = GroupSnapshot{ID: g.ID, Allocated: g.Header.AllocatedTupleCount(), Tiles: regions}
	}
	return snap, nil
}

// LoadFrom replaces t's tile groups with ones rebuilt from snap, read back
// from b. t must not have received any inserts of its own yet: LoadFrom
// overwrites t.groups and t.nextID outright rather than merging.
func (t *Table) LoadFrom(b backend.Backend, snap TableSnapshot) error {
	groups := make([]*tilegroup.TileGroup, len(snap.Groups))
	for i, gs := range snap.Groups {
		g, err := tilegroup.LoadFrom(b, gs.ID, t.ID, t.Layout, t.Capacity, gs.Allocated, gs.Tiles)
		if err != nil {
			return err
		}
		groups[i] = g
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, g := range groups {
		t.cat.Register(tileGroupCatalogKey(t.ID, g.ID), g)
	}
	t.groups = groups
	t.nextID = uint64(len(groups))
	return nil
}

package tilegroup

import (
	"sync"

	"github.com/colstore/tilegroup/backend"
	"github.com/colstore/tilegroup/schema"
	"github.com/colstore/tilegroup/sql"
	"github.com/colstore/tilegroup/storeerr"
	"github.com/colstore/tilegroup/tile"
)

// locator is the precomputed (tile, intra-column) lookup for one logical
// column, built once at construction, per spec §4.5's LocateTileAndColumn.
type locator struct {
	tileOffset int
	intraCol   int
}

// TileGroup binds one Header to a parallel vector of Tiles (one per tile
// schema in the table's partition) and orchestrates insert/select/delete
// against them. Grounded in original_source/tile_group.h's TileGroup
// class and the teacher's mvcc design notes for the commit/abort
// procedures.
type TileGroup struct {
	ID       uint64
	TableID  uint64
	Layout   schema.Layout
	Header   *Header
	Tiles    []*tile.Tile
	locators []locator

	// mu guards only structural changes (none in normal operation); the
	// hot insert/select/delete paths never take it.
	mu sync.Mutex
}

// New constructs a TileGroup with capacity slots, one Tile per group in
// layout.TileSchemas.
func New(id, tableID uint64, layout schema.Layout, capacity uint32) *TileGroup {
	tiles := make([]*tile.Tile, len(layout.TileSchemas))
	for i, cols := range layout.TileSchemas {
		tiles[i] = tile.New(uint64(i), id, cols, capacity)
	}

	locators := make([]locator, len(layout.Schema.Columns))
	for col := range layout.Schema.Columns {
		locators[col] = locator{
			tileOffset: layout.TileOf(col),
			intraCol:   layout.IntraOf(col),
		}
	}

	return &TileGroup{
		ID:       id,
		TableID:  tableID,
		Layout:   layout,
		Header:   NewHeader(capacity),
		Tiles:    tiles,
		locators: locators,
	}
}

// LocateTileAndColumn is the O(1) lookup described in spec §4.5.
func (g *TileGroup) LocateTileAndColumn(columnID int) (tileOffset, intraColumn int) {
	l := g.locators[columnID]
	return l.tileOffset, l.intraCol
}

// InsertTuple reserves a slot via the header and writes tuple into the
// owning tiles. The header remains INSERTING(txn) on return; the caller
// (the transaction manager, via its write set) is responsible for later
// calling CommitInsertedTuple or AbortInsertedTuple.
func (g *TileGroup) InsertTuple(txn uint64, tuple []sql.Value) (uint32, error) {
	if len(tuple) != len(g.locators) {
		return 0, errInvariant("InsertTuple: tuple arity does not match schema")
	}

	slot, ok := g.Header.Reserve(txn)
	if !ok {
		return 0, storeerr.ErrCapacityExhausted
	}

	for col, v := range tuple {
		l := g.locators[col]
		if err := g.Tiles[l.tileOffset].SetValue(slot, l.intraCol, v); err != nil {
			return 0, err
		}
	}
	return slot, nil
}

// SelectTuple assembles the full logical tuple at slot, without checking
// visibility; the caller must consult the Header before trusting the
// result, per spec §4.5.
func (g *TileGroup) SelectTuple(slot uint32) ([]sql.Value, error) {
	tuple := make([]sql.Value, len(g.locators))
	for col := range g.locators {
		v, err := g.GetValue(slot, col)
		if err != nil {
			return nil, err
		}
		tuple[col] = v
	}
	return tuple, nil
}

// SelectPartialTuple reads only the columns stored in tile tileOffset,
// spec §4.5's SelectTuple(tile_offset, slot) form.
func (g *TileGroup) SelectPartialTuple(tileOffset int, slot uint32) ([]sql.Value, error) {
	t := g.Tiles[tileOffset]
	tuple := make([]sql.Value, len(t.Columns))
	for intra := range t.Columns {
		v, err := t.GetValue(slot, intra)
		if err != nil {
			return nil, err
		}
		tuple[intra] = v
	}
	return tuple, nil
}

// GetValue composes LocateTileAndColumn with the owning tile's GetValue.
func (g *TileGroup) GetValue(slot uint32, columnID int) (sql.Value, error) {
	tileOffset, intra := g.LocateTileAndColumn(columnID)
	return g.Tiles[tileOffset].GetValue(slot, intra)
}

// DeleteTuple attempts MarkDelete on behalf of txn; ok is false if another
// transaction currently owns the slot.
func (g *TileGroup) DeleteTuple(txn uint64, slot uint32) (ok bool, err error) {
	if g.Header.State(slot) != Live {
		return false, storeerr.ErrBusy
	}
	if !g.Header.MarkDelete(slot, txn) {
		return false, nil
	}
	return true, nil
}

// CommitInsertedTuple forwards to the header, publishing c as the slot's
// begin_cid and moving it to LIVE.
func (g *TileGroup) CommitInsertedTuple(slot uint32, txn, c uint64) error {
	return g.Header.CommitInsert(slot, txn, c)
}

// CommitDeletedTuple forwards to the header, publishing c as the slot's
// end_cid and moving it to DEAD.
func (g *TileGroup) CommitDeletedTuple(slot uint32, txn, c uint64) error {
	return g.Header.CommitDelete(slot, txn, c)
}

// AbortInsertedTuple returns an INSERTING slot to EMPTY.
func (g *TileGroup) AbortInsertedTuple(slot uint32, txn uint64) error {
	return g.Header.AbortInsert(slot, txn)
}

// AbortDeletedTuple restores a DELETING slot to LIVE.
func (g *TileGroup) AbortDeletedTuple(slot uint32, txn uint64) error {
	return g.Header.AbortDelete(slot, txn)
}

// ReclaimTuple is an explicit reclamation hook present in the original
// tile_group.h (GetActiveTupleCount's counterpart) but not implemented
// here: the header's slot counter is monotonic and this module does not
// support recycling freed slots back into the allocator.
func (g *TileGroup) ReclaimTuple(uint32) error {
	return errInvariant("ReclaimTuple: slot recycling is not supported")
}

// TileRegions is the pair of backend Regions one Tile occupies once
// SaveTo has written it out.
type TileRegions struct {
	Rows, Pool backend.Region
}

// SaveTo snapshots every tile's current contents to b, for the dump
// command. It captures column data only, not MVCC header state: a group
// reconstructed by LoadFrom starts with every saved slot already
// committed and visible, a snapshot rather than a byte-for-byte replica.
func (g *TileGroup) SaveTo(b backend.Backend) ([]TileRegions, error) {
	regions := make([]TileRegions, len(g.Tiles))
	for i, t := range g.Tiles {
		rows, pool, err := t.SaveTo(b)
		if err != nil {
			return nil, err
		}
		regions[i] = TileRegions{Rows: rows, Pool: pool}
	}
	return regions, nil
}

// LoadFrom reconstructs a TileGroup previously written with SaveTo:
// regions must be in the same order SaveTo returned them in, and layout
// and capacity must match what produced them. The first allocated slots
// are restored LIVE as of InitialTxnID; nothing beyond that slot count is
// touched.
func LoadFrom(b backend.Backend, id, tableID uint64, layout schema.Layout, capacity, allocated uint32, regions []TileRegions) (*TileGroup, error) {
	if len(regions) != len(layout.TileSchemas) {
		return nil, errInvariant("LoadFrom: region count does not match layout's tile count")
	}

	g := New(id, tableID, layout, capacity)
	for i, cols := range layout.TileSchemas {
		t, err := tile.LoadFrom(b, uint64(i), id, cols, capacity, regions[i].Rows, regions[i].Pool)
		if err != nil {
			return nil, err
		}
		g.Tiles[i] = t
	}
	g.Header.RestoreLive(allocated)
	return g, nil
}

// Full reports whether the group's header has exhausted its slot counter.
func (g *TileGroup) Full() bool { return g.Header.Full() }

// Capacity is the fixed slot count shared by the header and every tile.
func (g *TileGroup) Capacity() uint32 { return g.Header.Capacity() }

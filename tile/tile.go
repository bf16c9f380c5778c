// Package tile implements the dense, columnar storage unit that backs a
// slice of a tile group: one Tile holds a fixed number of rows for a
// fixed subset of a table's columns, row-major within that subset, plus
// an append-only pool for variable-length values. Grounded in the
// teacher's storage/encode varint row codec and mvcc/layout.go's
// fixed-offset byte accessor style (SummaryPage).
package tile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/colstore/tilegroup/backend"
	"github.com/colstore/tilegroup/internal/varint"
	"github.com/colstore/tilegroup/sql"
)

// Tile is one column-group's worth of storage for up to Capacity rows.
// Fixed-width column values are stored inline at a constant byte offset
// within each row; variable-width values store an (offset, length) handle
// inline and the bytes themselves live in pool.
type Tile struct {
	ID         uint64
	TileGroup  uint64
	Columns    []sql.Column
	Capacity   uint32
	rowWidth   uint32
	offsets    []uint32
	rows       []byte // Capacity * rowWidth bytes
	pool       []byte
}

// New allocates a Tile with room for capacity rows of the given columns.
func New(id, tileGroupID uint64, cols []sql.Column, capacity uint32) *Tile {
	offsets := make([]uint32, len(cols))
	var width uint32
	for i, c := range cols {
		offsets[i] = width
		width += c.Width()
	}
	return &Tile{
		ID:        id,
		TileGroup: tileGroupID,
		Columns:   cols,
		Capacity:  capacity,
		rowWidth:  width,
		offsets:   offsets,
		rows:      make([]byte, uint32(capacity)*width),
	}
}

func (t *Tile) rowOffset(slot uint32) uint32 { return slot * t.rowWidth }

// SetValue stores v in column colIdx of slot. Variable-length values are
// appended to the tile's pool; fixed-length values are written in place.
func (t *Tile) SetValue(slot uint32, colIdx int, v sql.Value) error {
	if slot >= t.Capacity {
		return fmt.Errorf("tile: slot %d out of range (capacity %d)", slot, t.Capacity)
	}
	col := t.Columns[colIdx]
	base := t.rowOffset(slot) + t.offsets[colIdx]

	if !col.Fixed && col.Type.Variable() {
		enc := encodeVariable(v)
		poolOff := uint32(len(t.pool))
		t.pool = append(t.pool, enc...)
		binary.LittleEndian.PutUint32(t.rows[base:], poolOff)
		binary.LittleEndian.PutUint32(t.rows[base+4:], uint32(len(enc)))
		return nil
	}
	return encodeFixed(t.rows[base:base+col.Width()], col.Type, v)
}

// GetValue reads column colIdx of slot back out.
func (t *Tile) GetValue(slot uint32, colIdx int) (sql.Value, error) {
	if slot >= t.Capacity {
		return nil, fmt.Errorf("tile: slot %d out of range (capacity %d)", slot, t.Capacity)
	}
	col := t.Columns[colIdx]
	base := t.rowOffset(slot) + t.offsets[colIdx]

	if !col.Fixed && col.Type.Variable() {
		poolOff := binary.LittleEndian.Uint32(t.rows[base:])
		length := binary.LittleEndian.Uint32(t.rows[base+4:])
		if uint64(poolOff)+uint64(length) > uint64(len(t.pool)) {
			return nil, fmt.Errorf("tile: corrupt pool handle at slot %d col %d", slot, colIdx)
		}
		return decodeVariable(col.Type, t.pool[poolOff:poolOff+length]), nil
	}
	return decodeFixed(t.rows[base:base+col.Width()], col.Type), nil
}

// Pool returns the tile's variable-length value pool. Exposed for
// inspection and testing; callers must not retain it past a SetValue call
// since it may be reallocated by append.
func (t *Tile) Pool() []byte { return t.pool }

// SaveTo snapshots the tile's row array and pool into two Regions on b.
// This is the only point at which a Tile touches a Backend: normal
// insert/select/delete paths never allocate or block on I/O, per the
// no-I/O-on-the-hot-path rule; SaveTo/LoadFrom exist for the dump/restore
// commands built on top of this package.
func (t *Tile) SaveTo(b backend.Backend) (rows, pool backend.Region, err error) {
	rows, err = b.Allocate(len(t.rows))
	if err != nil {
		return backend.Region{}, backend.Region{}, err
	}
	if err = b.Write(rows, t.rows); err != nil {
		return backend.Region{}, backend.Region{}, err
	}

	pool, err = b.Allocate(len(t.pool))
	if err != nil {
		return backend.Region{}, backend.Region{}, err
	}
	if len(t.pool) > 0 {
		if err = b.Write(pool, t.pool); err != nil {
			return backend.Region{}, backend.Region{}, err
		}
	}
	return rows, pool, nil
}

// LoadFrom reconstructs a Tile previously written with SaveTo.
func LoadFrom(b backend.Backend, id, tileGroupID uint64, cols []sql.Column, capacity uint32, rows, pool backend.Region) (*Tile, error) {
	t := New(id, tileGroupID, cols, capacity)

	rowBuf, err := b.Read(rows)
	if err != nil {
		return nil, err
	}
	if len(rowBuf) != len(t.rows) {
		return nil, fmt.Errorf("tile: row region size %d does not match expected %d", len(rowBuf), len(t.rows))
	}
	t.rows = rowBuf

	poolBuf, err := b.Read(pool)
	if err != nil {
		return nil, err
	}
	t.pool = poolBuf
	return t, nil
}

func encodeFixed(dst []byte, dt sql.DataType, v sql.Value) error {
	switch dt {
	case sql.BooleanType:
		if bool(v.(sql.BoolValue)) {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case sql.IntegerType:
		binary.LittleEndian.PutUint64(dst, uint64(v.(sql.Int64Value)))
	case sql.FloatType:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(float64(v.(sql.Float64Value))))
	default:
		return fmt.Errorf("tile: %s is not a fixed-width type", dt)
	}
	return nil
}

func decodeFixed(src []byte, dt sql.DataType) sql.Value {
	switch dt {
	case sql.BooleanType:
		return sql.BoolValue(src[0] != 0)
	case sql.IntegerType:
		return sql.Int64Value(int64(binary.LittleEndian.Uint64(src)))
	case sql.FloatType:
		return sql.Float64Value(math.Float64frombits(binary.LittleEndian.Uint64(src)))
	default:
		return nil
	}
}

// encodeVariable frames a variable-length value with a leading varint
// length, matching the teacher's storage/encode row codec.
func encodeVariable(v sql.Value) []byte {
	var raw []byte
	switch val := v.(type) {
	case sql.StringValue:
		raw = []byte(val)
	case sql.BytesValue:
		raw = []byte(val)
	default:
		panic(fmt.Sprintf("tile: unexpected variable value type %T", v))
	}
	buf := varint.Encode(nil, uint64(len(raw)))
	return append(buf, raw...)
}

func decodeVariable(dt sql.DataType, buf []byte) sql.Value {
	rest, n, ok := varint.Decode(buf)
	if !ok || uint64(len(rest)) < n {
		return nil
	}
	raw := rest[:n]
	if dt == sql.CharacterType {
		return sql.StringValue(raw)
	}
	return sql.BytesValue(raw)
}

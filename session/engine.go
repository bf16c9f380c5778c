// Package session ties the storage core's pieces together into something
// a caller can run statements against: it owns a Catalog, a transaction
// Manager, and the set of live Tables, and drives InsertNode/SeqScanNode
// plan nodes against them. Grounded in the teacher's session package
// (Context, DefaultEngine/DefaultDatabase) generalized from a
// multi-engine SQL session down to this module's single storage engine.
package session

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/colstore/tilegroup/ast"
	"github.com/colstore/tilegroup/catalog"
	"github.com/colstore/tilegroup/eval"
	"github.com/colstore/tilegroup/parser"
	"github.com/colstore/tilegroup/planbridge"
	"github.com/colstore/tilegroup/schema"
	"github.com/colstore/tilegroup/sql"
	"github.com/colstore/tilegroup/table"
	"github.com/colstore/tilegroup/tilegroup"
	"github.com/colstore/tilegroup/txn"
)

// Engine is a process-wide handle to the storage core: a catalog, a
// transaction manager, and a name -> Table directory. Every Engine built
// with NewEngine gets its own Catalog; none uses catalog.Default().
type Engine struct {
	cat  *catalog.Catalog
	txns *txn.Manager

	mu          sync.RWMutex
	tables      map[sql.Identifier]*table.Table
	nextTableID uint64

	// GroupCapacity is the slot count new tile groups are created with.
	GroupCapacity uint32
}

// NewEngine returns an Engine with its own Catalog and transaction
// Manager and the given per-tile-group slot capacity.
func NewEngine(groupCapacity uint32) *Engine {
	return &Engine{
		cat:           catalog.New(),
		txns:          txn.NewManager(),
		tables:        map[sql.Identifier]*table.Table{},
		GroupCapacity: groupCapacity,
	}
}

// Table returns the named table, if it exists.
func (e *Engine) Table(name sql.Identifier) (*table.Table, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tables[name]
	return t, ok
}

// TableNames returns the names of every table currently registered,
// ordered arbitrarily, for callers (the dump command) that need to walk
// all of them.
func (e *Engine) TableNames() []sql.Identifier {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]sql.Identifier, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	return names
}

// CreateTable partitions cols into groups (one tile per group, in order)
// and registers a fresh, empty Table under name.
func (e *Engine) CreateTable(name sql.Identifier, cols []sql.Column, groups [][]int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.tables[name]; exists {
		return fmt.Errorf("session: table %s already exists", name)
	}

	layout, err := schema.Partition(schema.NewSchema(cols), groups)
	if err != nil {
		return err
	}

	id := atomic.AddUint64(&e.nextTableID, 1) - 1
	e.tables[name] = table.New(id, layout, e.GroupCapacity, e.cat)
	return nil
}

// Begin starts a new transaction against this engine.
func (e *Engine) Begin() *txn.Transaction { return e.txns.Begin() }

// Commit finalizes tx, returning the assigned commit id.
func (e *Engine) Commit(tx *txn.Transaction) (uint64, error) { return e.txns.Commit(tx) }

// Abort rolls tx back.
func (e *Engine) Abort(tx *txn.Transaction) error { return e.txns.Abort(tx) }

// Insert executes an InsertNode within tx: every tuple lands in the
// target table (allocating new tile groups as needed), and each
// resulting slot is recorded on tx so Commit/Abort can finalize it.
func (e *Engine) Insert(tx *txn.Transaction, node *planbridge.InsertNode) error {
	t, ok := e.Table(node.Table)
	if !ok {
		return fmt.Errorf("session: no such table %s", node.Table)
	}
	for _, tuple := range node.Tuples {
		groupID, slot, err := t.InsertTuple(tx.ID, tuple)
		if err != nil {
			return err
		}
		group := e.lookupGroup(t, groupID)
		tx.Insert(group, slot)
	}
	return nil
}

func (e *Engine) lookupGroup(t *table.Table, groupID uint64) *tilegroup.TileGroup {
	for i := 0; i < t.TileGroupCount(); i++ {
		g := t.GetTileGroup(i)
		if g.ID == groupID {
			return g
		}
	}
	panic("session: tile group vanished after InsertTuple returned it")
}

// Row is one projected result row from a scan.
type Row struct {
	Values []sql.Value
}

// Scan executes a SeqScanNode against tx's snapshot: every tile group of
// the target table is walked slot by slot, visibility is checked against
// tx.Snapshot (a slot tx itself is deleting stays visible to it; tx's own
// uncommitted inserts are not visible), the predicate is applied, and
// Columns are projected.
func (e *Engine) Scan(tx *txn.Transaction, node *planbridge.SeqScanNode) ([]Row, error) {
	t, ok := e.Table(node.Table)
	if !ok {
		return nil, fmt.Errorf("session: no such table %s", node.Table)
	}

	colIndex := map[sql.Identifier]int{}
	for i, c := range t.Layout.Schema.Columns {
		colIndex[c.Name] = i
	}

	projection := node.Columns
	if projection == nil {
		projection = make([]sql.Identifier, len(t.Layout.Schema.Columns))
		for i, c := range t.Layout.Schema.Columns {
			projection[i] = c.Name
		}
	}
	projIdx := make([]int, len(projection))
	for i, name := range projection {
		idx, ok := colIndex[name]
		if !ok {
			return nil, fmt.Errorf("session: unknown column %s", name)
		}
		projIdx[i] = idx
	}

	var rows []Row
	for gi := 0; gi < t.TileGroupCount(); gi++ {
		g := t.GetTileGroup(gi)
		n := g.Header.AllocatedTupleCount()
		for slot := uint32(0); slot < n; slot++ {
			if !g.Header.Visible(slot, tx.Snapshot, tx.ID) {
				continue
			}
			tuple, err := g.SelectTuple(slot)
			if err != nil {
				return nil, err
			}
			ok, err := eval.Matches(node.Predicate, tuple, colIndex)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			out := make([]sql.Value, len(projIdx))
			for i, idx := range projIdx {
				out[i] = tuple[idx]
			}
			rows = append(rows, Row{Values: out})
		}
	}
	return rows, nil
}

// ExecuteString parses one statement out of text, translates it, and runs
// it to completion as its own auto-committed transaction. CREATE TABLE
// statements put each column in its own tile (one column per tile);
// callers that want a different partition should call CreateTable
// directly.
func (e *Engine) ExecuteString(text string) ([]Row, error) {
	p := parser.NewParser(strings.NewReader(text), "-")
	stmt, err := p.Parse()
	if err != nil {
		return nil, err
	}

	if ct, ok := stmt.(*ast.CreateTable); ok {
		return nil, e.createTableFromAST(ct)
	}

	node, err := planbridge.Translate(stmt)
	if err != nil {
		return nil, err
	}

	tx := e.Begin()
	switch node := node.(type) {
	case *planbridge.InsertNode:
		if err := e.Insert(tx, node); err != nil {
			e.Abort(tx)
			return nil, err
		}
		_, err := e.Commit(tx)
		return nil, err
	case *planbridge.SeqScanNode:
		rows, err := e.Scan(tx, node)
		if err != nil {
			e.Abort(tx)
			return nil, err
		}
		_, err = e.Commit(tx)
		return rows, err
	default:
		e.Abort(tx)
		return nil, fmt.Errorf("session: unsupported plan node %T", node)
	}
}

func (e *Engine) createTableFromAST(ct *ast.CreateTable) error {
	cols := make([]sql.Column, len(ct.Columns))
	groups := make([][]int, len(ct.Columns))
	for i, cd := range ct.Columns {
		if cd.Fixed {
			// A fixed-width scalar column takes its byte width from its type.
			cols[i] = sql.NewFixedColumn(cd.Name, cd.Type, cd.NotNull)
		} else {
			cols[i] = sql.Column{Name: cd.Name, Type: cd.Type, Size: cd.Size, Fixed: cd.Fixed, NotNull: cd.NotNull}
		}
		groups[i] = []int{i}
	}
	return e.CreateTable(ct.Table, cols, groups)
}

// Package txn implements the transaction-manager interface consumed by
// the storage core (spec §6): it issues monotonic transaction and commit
// ids and tracks, per transaction, which (tile-group, slot) pairs were
// touched so Commit/Abort can forward to the right TileGroup calls.
// Grounded in the teacher's engine/kvrows/kvrows.go transaction struct
// (tid, keys written-set list).
package txn

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/colstore/tilegroup/tilegroup"
)

// Kind distinguishes an insert touch from a delete touch, since commit and
// abort forward to different TileGroup methods for each.
type Kind int

const (
	Insert Kind = iota
	Delete
)

// touch records one (tile-group, slot) pair a transaction modified.
type touch struct {
	group *tilegroup.TileGroup
	slot  uint32
	kind  Kind
}

// Transaction is a single in-flight unit of work: an id, a snapshot
// commit id fixing what it can read, and the write set accumulated by
// calling Insert/Delete.
type Transaction struct {
	ID       uint64
	Snapshot uint64

	mgr    *Manager
	mu     sync.Mutex
	touches []touch
	done   bool
}

// Insert records that slot in group was inserted by this transaction. The
// caller has already called group.InsertTuple; Insert only tracks it for
// later Commit/Abort.
func (tx *Transaction) Insert(group *tilegroup.TileGroup, slot uint32) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.touches = append(tx.touches, touch{group: group, slot: slot, kind: Insert})
}

// Delete records that slot in group was marked for delete by this
// transaction, after a successful group.DeleteTuple.
func (tx *Transaction) Delete(group *tilegroup.TileGroup, slot uint32) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.touches = append(tx.touches, touch{group: group, slot: slot, kind: Delete})
}

// Manager issues transaction and commit ids and finalizes transactions
// against the tile groups they touched.
type Manager struct {
	nextTxn uint64
	nextCID uint64
}

// NewManager returns a Manager whose first commit id is 1 (0 is
// tilegroup.InvalidCID) and whose first transaction id is
// tilegroup.InitialTxnID + 1 (InitialTxnID is reserved for committed
// slots).
func NewManager() *Manager {
	return &Manager{nextTxn: tilegroup.InitialTxnID, nextCID: tilegroup.InvalidCID}
}

// Begin issues a fresh transaction id and a snapshot commit id equal to
// the highest commit id handed out so far.
func (m *Manager) Begin() *Transaction {
	id := atomic.AddUint64(&m.nextTxn, 1)
	snapshot := atomic.LoadUint64(&m.nextCID)
	return &Transaction{ID: id, Snapshot: snapshot, mgr: m}
}

// Commit assigns a fresh commit id and forwards CommitInsertedTuple /
// CommitDeletedTuple to every tile group the transaction touched.
func (m *Manager) Commit(tx *Transaction) (uint64, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return 0, fmt.Errorf("txn: transaction %d already finalized", tx.ID)
	}

	c := atomic.AddUint64(&m.nextCID, 1)
	for _, t := range tx.touches {
		var err error
		switch t.kind {
		case Insert:
			err = t.group.CommitInsertedTuple(t.slot, tx.ID, c)
		case Delete:
			err = t.group.CommitDeletedTuple(t.slot, tx.ID, c)
		}
		if err != nil {
			return 0, err
		}
	}
	tx.done = true
	return c, nil
}

// Abort forwards AbortInsertedTuple / AbortDeletedTuple to every tile
// group the transaction touched.
func (m *Manager) Abort(tx *Transaction) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return fmt.Errorf("txn: transaction %d already finalized", tx.ID)
	}

	for _, t := range tx.touches {
		var err error
		switch t.kind {
		case Insert:
			err = t.group.AbortInsertedTuple(t.slot, tx.ID)
		case Delete:
			err = t.group.AbortDeletedTuple(t.slot, tx.ID)
		}
		if err != nil {
			return err
		}
	}
	tx.done = true
	return nil
}

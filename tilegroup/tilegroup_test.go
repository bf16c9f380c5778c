package tilegroup_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/colstore/tilegroup/backend/memory"
	"github.com/colstore/tilegroup/schema"
	"github.com/colstore/tilegroup/sql"
	"github.com/colstore/tilegroup/tilegroup"
)

func idNameSchema() schema.Schema {
	return schema.NewSchema([]sql.Column{
		sql.NewFixedColumn(sql.ID("id"), sql.IntegerType, true),
		sql.NewVariableColumn(sql.ID("name"), sql.CharacterType, false),
	})
}

func mustLayout(t *testing.T, sch schema.Schema, groups [][]int) schema.Layout {
	t.Helper()
	l, err := schema.Partition(sch, groups)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	return l
}

// S1: schema (id:int, name:varchar(8)), tile partition [[id],[name]],
// group capacity 4. Insert three rows, commit at cids 10/11/12. A
// snapshot at cid 11 sees slots 0 and 1 only.
func TestScenarioS1(t *testing.T) {
	layout := mustLayout(t, idNameSchema(), [][]int{{0}, {1}})
	g := tilegroup.New(1, 1, layout, 4)

	rows := []struct {
		id   int64
		name string
		cid  uint64
	}{
		{1, "a", 10},
		{2, "bb", 11},
		{3, "ccc", 12},
	}

	for i, r := range rows {
		txn := uint64(100 + i)
		slot, err := g.InsertTuple(txn, []sql.Value{sql.Int64Value(r.id), sql.StringValue(r.name)})
		if err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
		if int(slot) != i {
			t.Fatalf("InsertTuple slot got %d want %d", slot, i)
		}
		if err := g.CommitInsertedTuple(slot, txn, r.cid); err != nil {
			t.Fatalf("CommitInsertedTuple: %v", err)
		}
	}

	snapshot := uint64(11)
	var visible []uint32
	for slot := uint32(0); slot < 3; slot++ {
		if g.Header.Visible(slot, snapshot, 0) {
			visible = append(visible, slot)
		}
	}
	if len(visible) != 2 || visible[0] != 0 || visible[1] != 1 {
		t.Errorf("visible at cid 11 got %v want [0 1]", visible)
	}
}

// S2: insert (7, "x") commit at cid 5; later delete it, commit at cid 9.
// Snapshot at cid 8 sees it, snapshot at cid 9 does not.
func TestScenarioS2(t *testing.T) {
	layout := mustLayout(t, idNameSchema(), [][]int{{0}, {1}})
	g := tilegroup.New(1, 1, layout, 4)

	insertTxn := uint64(100)
	slot, err := g.InsertTuple(insertTxn, []sql.Value{sql.Int64Value(7), sql.StringValue("x")})
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	if err := g.CommitInsertedTuple(slot, insertTxn, 5); err != nil {
		t.Fatalf("CommitInsertedTuple: %v", err)
	}

	deleteTxn := uint64(2)
	ok, err := g.DeleteTuple(deleteTxn, slot)
	if err != nil || !ok {
		t.Fatalf("DeleteTuple: ok=%v err=%v", ok, err)
	}
	if err := g.CommitDeletedTuple(slot, deleteTxn, 9); err != nil {
		t.Fatalf("CommitDeletedTuple: %v", err)
	}

	if !g.Header.Visible(slot, 8, 0) {
		t.Errorf("slot should be visible at cid 8")
	}
	if g.Header.Visible(slot, 9, 0) {
		t.Errorf("slot should not be visible at cid 9")
	}
}

// S4: two transactions both MarkDelete the same LIVE slot; exactly one
// succeeds. After the winner commits at cid 20, snapshots at cid >= 20
// see the slot as invisible.
func TestScenarioS4(t *testing.T) {
	layout := mustLayout(t, idNameSchema(), [][]int{{0}, {1}})
	g := tilegroup.New(1, 1, layout, 4)

	insertTxn := uint64(100)
	slot, err := g.InsertTuple(insertTxn, []sql.Value{sql.Int64Value(1), sql.StringValue("a")})
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	if err := g.CommitInsertedTuple(slot, insertTxn, 1); err != nil {
		t.Fatalf("CommitInsertedTuple: %v", err)
	}

	t1, t2 := uint64(10), uint64(11)
	ok1, _ := g.DeleteTuple(t1, slot)
	ok2, _ := g.DeleteTuple(t2, slot)
	if ok1 == ok2 {
		t.Fatalf("expected exactly one MarkDelete to succeed, got ok1=%v ok2=%v", ok1, ok2)
	}

	winner := t1
	if ok2 {
		winner = t2
	}
	if err := g.CommitDeletedTuple(slot, winner, 20); err != nil {
		t.Fatalf("CommitDeletedTuple: %v", err)
	}
	if g.Header.Visible(slot, 20, 0) {
		t.Errorf("slot should be invisible at cid 20")
	}
	if g.Header.Visible(slot, 25, 0) {
		t.Errorf("slot should be invisible at cid 25")
	}
}

// S6: LocateTileAndColumn for a 5-column schema partitioned as
// [[c0,c1,c2],[c3,c4]] maps c3 -> (1,0) and c4 -> (1,1).
func TestScenarioS6(t *testing.T) {
	cols := make([]sql.Column, 5)
	for i := range cols {
		cols[i] = sql.NewFixedColumn(sql.ID(string(rune('a'+i))), sql.IntegerType, false)
	}
	sch := schema.NewSchema(cols)
	layout := mustLayout(t, sch, [][]int{{0, 1, 2}, {3, 4}})
	g := tilegroup.New(1, 1, layout, 1)

	tileOff, intra := g.LocateTileAndColumn(3)
	if tileOff != 1 || intra != 0 {
		t.Errorf("c3 got (%d,%d) want (1,0)", tileOff, intra)
	}
	tileOff, intra = g.LocateTileAndColumn(4)
	if tileOff != 1 || intra != 1 {
		t.Errorf("c4 got (%d,%d) want (1,1)", tileOff, intra)
	}
}

// Property 1: successive InsertTuple calls on a single thread return
// strictly increasing slot ids starting at 0.
func TestAllocationMonotonicity(t *testing.T) {
	layout := mustLayout(t, idNameSchema(), [][]int{{0}, {1}})
	g := tilegroup.New(1, 1, layout, 8)

	for i := 0; i < 8; i++ {
		slot, err := g.InsertTuple(uint64(i+1), []sql.Value{sql.Int64Value(int64(i)), sql.StringValue("x")})
		if err != nil {
			t.Fatalf("InsertTuple %d: %v", i, err)
		}
		if int(slot) != i {
			t.Fatalf("InsertTuple %d got slot %d want %d", i, slot, i)
		}
	}
}

// Property 2: for K threads inserting into one tile group of capacity N,
// each successful return yields a distinct slot id, and the number of
// successes is exactly N.
func TestAllocationUniquenessUnderConcurrency(t *testing.T) {
	const capacity = 50
	const workers = 8
	const perWorker = 20

	layout := mustLayout(t, idNameSchema(), [][]int{{0}, {1}})
	g := tilegroup.New(1, 1, layout, capacity)

	var mu sync.Mutex
	seen := map[uint32]bool{}
	successes := 0

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				txn := uint64(w*perWorker + i + 1)
				slot, err := g.InsertTuple(txn, []sql.Value{sql.Int64Value(int64(txn)), sql.StringValue("x")})
				if err != nil {
					continue
				}
				mu.Lock()
				if seen[slot] {
					t.Errorf("slot %d allocated more than once", slot)
				}
				seen[slot] = true
				successes++
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	if successes != capacity {
		t.Errorf("successes got %d want %d", successes, capacity)
	}
}

// Property 4: round-trip — GetValue after an insert returns what was
// written.
func TestRoundTrip(t *testing.T) {
	layout := mustLayout(t, idNameSchema(), [][]int{{0}, {1}})
	g := tilegroup.New(1, 1, layout, 4)

	slot, err := g.InsertTuple(1, []sql.Value{sql.Int64Value(42), sql.StringValue("hello")})
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}

	v0, err := g.GetValue(slot, 0)
	if err != nil || v0.Compare(sql.Int64Value(42)) != 0 {
		t.Errorf("GetValue(0) got %v err %v want 42", v0, err)
	}
	v1, err := g.GetValue(slot, 1)
	if err != nil || v1.Compare(sql.StringValue("hello")) != 0 {
		t.Errorf("GetValue(1) got %v err %v want hello", v1, err)
	}
}

// Property 5: AbortInsertedTuple returns an INSERTING slot to EMPTY, and
// the allocator never reuses it (no recycling).
func TestIdempotentAbort(t *testing.T) {
	layout := mustLayout(t, idNameSchema(), [][]int{{0}, {1}})
	g := tilegroup.New(1, 1, layout, 2)

	slot, err := g.InsertTuple(100, []sql.Value{sql.Int64Value(1), sql.StringValue("a")})
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	if err := g.AbortInsertedTuple(slot, 100); err != nil {
		t.Fatalf("AbortInsertedTuple: %v", err)
	}
	if g.Header.State(slot) != tilegroup.Empty {
		t.Errorf("aborted slot state got %s want EMPTY", g.Header.State(slot))
	}

	next, err := g.InsertTuple(2, []sql.Value{sql.Int64Value(2), sql.StringValue("b")})
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	if next == slot {
		t.Errorf("aborted slot %d was recycled", slot)
	}
}

// Property 6: two transactions cannot both succeed MarkDelete on the same
// LIVE slot.
func TestMVCCDeleteExclusion(t *testing.T) {
	layout := mustLayout(t, idNameSchema(), [][]int{{0}, {1}})
	g := tilegroup.New(1, 1, layout, 4)

	slot, err := g.InsertTuple(50, []sql.Value{sql.Int64Value(1), sql.StringValue("a")})
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	if err := g.CommitInsertedTuple(slot, 50, 1); err != nil {
		t.Fatalf("CommitInsertedTuple: %v", err)
	}

	const contenders = 10
	var successes int32
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, _ := g.DeleteTuple(uint64(100+i), slot)
			if ok {
				atomic.AddInt32(&successes, 1)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("MarkDelete successes got %d want 1", successes)
	}
}

// SaveTo followed by LoadFrom reproduces every committed value and the
// committed slot count, even though it does not replay MVCC history.
func TestSaveToLoadFromRoundTrip(t *testing.T) {
	layout := mustLayout(t, idNameSchema(), [][]int{{0}, {1}})
	g := tilegroup.New(1, 1, layout, 4)

	rows := []struct {
		id   int64
		name string
	}{
		{1, "a"}, {2, "bb"}, {3, "ccc"},
	}
	for i, r := range rows {
		txn := uint64(100 + i)
		slot, err := g.InsertTuple(txn, []sql.Value{sql.Int64Value(r.id), sql.StringValue(r.name)})
		if err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
		if err := g.CommitInsertedTuple(slot, txn, uint64(10+i)); err != nil {
			t.Fatalf("CommitInsertedTuple: %v", err)
		}
	}

	b := memory.New()
	regions, err := g.SaveTo(b)
	if err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	g2, err := tilegroup.LoadFrom(b, g.ID, g.TableID, layout, 4, uint32(len(rows)), regions)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	for slot, r := range rows {
		if !g2.Header.Visible(uint32(slot), 0, 0) {
			t.Errorf("slot %d not visible after LoadFrom", slot)
		}
		tuple, err := g2.SelectTuple(uint32(slot))
		if err != nil {
			t.Fatalf("SelectTuple(%d): %v", slot, err)
		}
		if tuple[0].Compare(sql.Int64Value(r.id)) != 0 || tuple[1].Compare(sql.StringValue(r.name)) != 0 {
			t.Errorf("slot %d got (%v,%v) want (%d,%s)", slot, tuple[0], tuple[1], r.id, r.name)
		}
	}
}

// LoadFrom rejects a region list whose length doesn't match the layout's
// tile count, rather than panicking on an out-of-range index.
func TestLoadFromRejectsMismatchedRegionCount(t *testing.T) {
	layout := mustLayout(t, idNameSchema(), [][]int{{0}, {1}})
	if _, err := tilegroup.LoadFrom(memory.New(), 1, 1, layout, 4, 0, nil); err == nil {
		t.Errorf("LoadFrom should reject a region count mismatch")
	}
}

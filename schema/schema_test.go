package schema_test

import (
	"testing"

	"github.com/colstore/tilegroup/schema"
	"github.com/colstore/tilegroup/sql"
)

func fiveColumnSchema() schema.Schema {
	cols := make([]sql.Column, 5)
	for i := range cols {
		cols[i] = sql.NewFixedColumn(sql.ID(string(rune('a'+i))), sql.IntegerType, false)
	}
	return schema.NewSchema(cols)
}

func TestPartitionTotalDisjointCover(t *testing.T) {
	l, err := schema.Partition(fiveColumnSchema(), [][]int{{0, 1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	for col, wantTile := range map[int]int{0: 0, 1: 0, 2: 0, 3: 1, 4: 1} {
		if got := l.TileOf(col); got != wantTile {
			t.Errorf("TileOf(%d) got %d want %d", col, got, wantTile)
		}
	}
	if l.IntraOf(3) != 0 || l.IntraOf(4) != 1 {
		t.Errorf("IntraOf(3)=%d IntraOf(4)=%d want 0,1", l.IntraOf(3), l.IntraOf(4))
	}
}

func TestPartitionRejectsOverlap(t *testing.T) {
	_, err := schema.Partition(fiveColumnSchema(), [][]int{{0, 1}, {1, 2, 3, 4}})
	if err == nil {
		t.Errorf("Partition should reject a column assigned to two tiles")
	}
}

func TestPartitionRejectsGap(t *testing.T) {
	_, err := schema.Partition(fiveColumnSchema(), [][]int{{0, 1, 2}})
	if err == nil {
		t.Errorf("Partition should reject a column assigned to no tile")
	}
}

func TestPartitionRejectsOutOfRange(t *testing.T) {
	_, err := schema.Partition(fiveColumnSchema(), [][]int{{0, 1, 2, 3, 4, 5}})
	if err == nil {
		t.Errorf("Partition should reject an out-of-range column index")
	}
}

func TestPartitionRejectsEmptyGroup(t *testing.T) {
	_, err := schema.Partition(fiveColumnSchema(), [][]int{{0, 1, 2, 3, 4}, {}})
	if err == nil {
		t.Errorf("Partition should reject an empty tile group")
	}
}

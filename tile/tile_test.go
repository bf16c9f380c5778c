package tile_test

import (
	"testing"

	"github.com/colstore/tilegroup/backend/memory"
	"github.com/colstore/tilegroup/sql"
	"github.com/colstore/tilegroup/tile"
)

func mixedColumns() []sql.Column {
	return []sql.Column{
		sql.NewFixedColumn(sql.ID("flag"), sql.BooleanType, false),
		sql.NewFixedColumn(sql.ID("n"), sql.IntegerType, false),
		sql.NewFixedColumn(sql.ID("f"), sql.FloatType, false),
		sql.NewVariableColumn(sql.ID("s"), sql.CharacterType, false),
	}
}

func TestSetGetValueRoundTrip(t *testing.T) {
	cols := mixedColumns()
	tl := tile.New(1, 1, cols, 4)

	values := []sql.Value{sql.BoolValue(true), sql.Int64Value(-7), sql.Float64Value(3.5), sql.StringValue("hello")}
	for i, v := range values {
		if err := tl.SetValue(0, i, v); err != nil {
			t.Fatalf("SetValue(%d): %v", i, err)
		}
	}
	for i, want := range values {
		got, err := tl.GetValue(0, i)
		if err != nil {
			t.Fatalf("GetValue(%d): %v", i, err)
		}
		if got.Compare(want) != 0 {
			t.Errorf("GetValue(%d) got %v want %v", i, got, want)
		}
	}
}

func TestVariableColumnsShareAGrowingPool(t *testing.T) {
	cols := []sql.Column{sql.NewVariableColumn(sql.ID("s"), sql.CharacterType, false)}
	tl := tile.New(1, 1, cols, 4)

	if err := tl.SetValue(0, 0, sql.StringValue("abc")); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := tl.SetValue(1, 0, sql.StringValue("de")); err != nil {
		t.Fatalf("SetValue: %v", err)
	}

	v0, _ := tl.GetValue(0, 0)
	v1, _ := tl.GetValue(1, 0)
	if v0.Compare(sql.StringValue("abc")) != 0 {
		t.Errorf("slot 0 got %v want abc", v0)
	}
	if v1.Compare(sql.StringValue("de")) != 0 {
		t.Errorf("slot 1 got %v want de", v1)
	}
	if len(tl.Pool()) == 0 {
		t.Errorf("Pool() should be non-empty after two variable writes")
	}
}

func TestOutOfRangeSlotIsRejected(t *testing.T) {
	tl := tile.New(1, 1, mixedColumns(), 2)
	if err := tl.SetValue(5, 0, sql.BoolValue(true)); err == nil {
		t.Errorf("SetValue with an out-of-range slot should fail")
	}
	if _, err := tl.GetValue(5, 0); err == nil {
		t.Errorf("GetValue with an out-of-range slot should fail")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cols := mixedColumns()
	tl := tile.New(3, 9, cols, 4)

	values := []sql.Value{sql.BoolValue(false), sql.Int64Value(123), sql.Float64Value(-1.25), sql.StringValue("persisted")}
	for i, v := range values {
		if err := tl.SetValue(2, i, v); err != nil {
			t.Fatalf("SetValue(%d): %v", i, err)
		}
	}

	b := memory.New()
	rows, pool, err := tl.SaveTo(b)
	if err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := tile.LoadFrom(b, 3, 9, cols, 4, rows, pool)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	for i, want := range values {
		got, err := loaded.GetValue(2, i)
		if err != nil {
			t.Fatalf("GetValue(%d) after LoadFrom: %v", i, err)
		}
		if got.Compare(want) != 0 {
			t.Errorf("GetValue(%d) after LoadFrom got %v want %v", i, got, want)
		}
	}
}

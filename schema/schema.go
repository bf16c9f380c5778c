// Package schema describes a table's columns and how those columns are
// partitioned across the tiles of a tile group, grounded in the teacher's
// row.Column and storage/layout table/index layout builders.
package schema

import (
	"fmt"

	"github.com/colstore/tilegroup/sql"
)

// Schema is the ordered list of columns a table's rows conform to.
type Schema struct {
	Columns []sql.Column
}

// NewSchema builds a Schema from an ordered column list.
func NewSchema(cols []sql.Column) Schema {
	return Schema{Columns: cols}
}

// Layout maps each schema column to the tile that stores it and its
// position within that tile, the result of Partition.
type Layout struct {
	Schema      Schema
	TileSchemas [][]sql.Column
	tileOf      []int
	intraOf     []int
}

// TileOf returns the index of the tile that stores schema column colIdx.
func (l Layout) TileOf(colIdx int) int { return l.tileOf[colIdx] }

// IntraOf returns colIdx's position within its tile's column list.
func (l Layout) IntraOf(colIdx int) int { return l.intraOf[colIdx] }

// Partition groups sch's columns into tiles according to groups, where
// groups[i] lists the schema column indexes assigned to tile i. Every
// column must appear in exactly one group (a total, disjoint cover);
// violating that is an error.
func Partition(sch Schema, groups [][]int) (Layout, error) {
	tileOf := make([]int, len(sch.Columns))
	intraOf := make([]int, len(sch.Columns))
	seen := make([]bool, len(sch.Columns))

	tileSchemas := make([][]sql.Column, len(groups))
	for t, group := range groups {
		if len(group) == 0 {
			return Layout{}, fmt.Errorf("schema: tile %d has no columns", t)
		}
		tileCols := make([]sql.Column, 0, len(group))
		for intra, colIdx := range group {
			if colIdx < 0 || colIdx >= len(sch.Columns) {
				return Layout{}, fmt.Errorf("schema: partition references out-of-range column %d", colIdx)
			}
			if seen[colIdx] {
				return Layout{}, fmt.Errorf("schema: column %d assigned to more than one tile", colIdx)
			}
			seen[colIdx] = true
			tileOf[colIdx] = t
			intraOf[colIdx] = intra
			tileCols = append(tileCols, sch.Columns[colIdx])
		}
		tileSchemas[t] = tileCols
	}
	for colIdx, ok := range seen {
		if !ok {
			return Layout{}, fmt.Errorf("schema: column %d not assigned to any tile", colIdx)
		}
	}

	return Layout{Schema: sch, TileSchemas: tileSchemas, tileOf: tileOf, intraOf: intraOf}, nil
}

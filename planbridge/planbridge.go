// Package planbridge translates the parser's AST into the two abstract
// plan nodes the storage core understands: InsertNode and SeqScanNode.
// Grounded in the teacher's plan.Executer shape and, for the recursive
// translation strategy, original_source/plan_transformer.cpp, which
// walks a foreign plan tree and emits Peloton AbstractPlanNodes
// recursively over left/right children — generalized here to recurse
// over our own AST's Expr tree instead of a foreign planner.
package planbridge

import (
	"fmt"

	"github.com/colstore/tilegroup/ast"
	"github.com/colstore/tilegroup/sql"
)

// Node is the closed set of plan nodes Translate produces.
type Node interface{}

// InsertNode executes by calling Table.InsertTuple for each of Tuples.
type InsertNode struct {
	Table  sql.Identifier
	Tuples [][]sql.Value
}

// SeqScanNode iterates a table's tile groups, evaluating Predicate (if
// any) against each visible slot and projecting Columns.
type SeqScanNode struct {
	Table     sql.Identifier
	Columns   []sql.Identifier // nil means project every column
	Predicate ast.Expr         // nil means no filter
}

// Translate turns one parsed statement into a plan Node.
func Translate(s ast.Stmt) (Node, error) {
	switch s := s.(type) {
	case *ast.InsertValues:
		return translateInsert(s)
	case *ast.Select:
		return &SeqScanNode{Table: s.Table, Columns: s.Columns, Predicate: s.Where}, nil
	case *ast.CreateTable:
		return nil, fmt.Errorf("planbridge: CREATE TABLE is handled directly, not through a plan node")
	default:
		return nil, fmt.Errorf("planbridge: unsupported statement %T", s)
	}
}

func translateInsert(s *ast.InsertValues) (*InsertNode, error) {
	tuples := make([][]sql.Value, len(s.Rows))
	for i, row := range s.Rows {
		tuple := make([]sql.Value, len(row))
		for j, e := range row {
			lit, ok := e.(ast.Literal)
			if !ok {
				return nil, fmt.Errorf("planbridge: INSERT values must be literals, got %T", e)
			}
			tuple[j] = lit.Value
		}
		tuples[i] = tuple
	}
	return &InsertNode{Table: s.Table, Tuples: tuples}, nil
}

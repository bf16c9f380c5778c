// Package eval evaluates scan predicates against an assembled tuple,
// grounded in the teacher's evaluate/expr package (Literal and column
// reference nodes, recursive evaluation) but scaled down to the small
// expression grammar ast.Expr exposes: literals, column references, and
// comparison/boolean binary operators.
package eval

import (
	"fmt"

	"github.com/colstore/tilegroup/ast"
	"github.com/colstore/tilegroup/sql"
)

// Eval evaluates e against tuple, resolving column references through
// cols (schema column name -> index into tuple).
func Eval(e ast.Expr, tuple []sql.Value, cols map[sql.Identifier]int) (sql.Value, error) {
	switch e := e.(type) {
	case nil:
		return sql.BoolValue(true), nil
	case ast.Literal:
		return e.Value, nil
	case ast.ColumnRef:
		idx, ok := cols[e.Name]
		if !ok {
			return nil, fmt.Errorf("eval: unknown column %s", e.Name)
		}
		return tuple[idx], nil
	case ast.BinaryOp:
		return evalBinary(e, tuple, cols)
	default:
		return nil, fmt.Errorf("eval: unsupported expression %T", e)
	}
}

func evalBinary(e ast.BinaryOp, tuple []sql.Value, cols map[sql.Identifier]int) (sql.Value, error) {
	if e.Op == ast.And || e.Op == ast.Or {
		l, err := Eval(e.Left, tuple, cols)
		if err != nil {
			return nil, err
		}
		lb, ok := l.(sql.BoolValue)
		if !ok {
			return nil, fmt.Errorf("eval: left side of %s is not boolean", e.Op)
		}
		if e.Op == ast.And && !bool(lb) {
			return sql.BoolValue(false), nil
		}
		if e.Op == ast.Or && bool(lb) {
			return sql.BoolValue(true), nil
		}
		r, err := Eval(e.Right, tuple, cols)
		if err != nil {
			return nil, err
		}
		rb, ok := r.(sql.BoolValue)
		if !ok {
			return nil, fmt.Errorf("eval: right side of %s is not boolean", e.Op)
		}
		return rb, nil
	}

	l, err := Eval(e.Left, tuple, cols)
	if err != nil {
		return nil, err
	}
	r, err := Eval(e.Right, tuple, cols)
	if err != nil {
		return nil, err
	}
	cmp := l.Compare(r)
	switch e.Op {
	case ast.Eq:
		return sql.BoolValue(cmp == 0), nil
	case ast.NotEq:
		return sql.BoolValue(cmp != 0), nil
	case ast.Lt:
		return sql.BoolValue(cmp < 0), nil
	case ast.Gt:
		return sql.BoolValue(cmp > 0), nil
	case ast.LtEq:
		return sql.BoolValue(cmp <= 0), nil
	case ast.GtEq:
		return sql.BoolValue(cmp >= 0), nil
	default:
		return nil, fmt.Errorf("eval: unsupported operator %s", e.Op)
	}
}

// Matches evaluates predicate against tuple and reports whether it holds;
// a nil predicate always matches.
func Matches(predicate ast.Expr, tuple []sql.Value, cols map[sql.Identifier]int) (bool, error) {
	v, err := Eval(predicate, tuple, cols)
	if err != nil {
		return false, err
	}
	b, ok := v.(sql.BoolValue)
	if !ok {
		return false, fmt.Errorf("eval: predicate did not evaluate to a boolean")
	}
	return bool(b), nil
}

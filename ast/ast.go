// Package ast defines the statement and expression trees produced by the
// parser: just enough of SQL to exercise the storage core end to end
// (CREATE TABLE, INSERT, SELECT), grounded in the teacher's stmt package
// shape (one struct per statement kind) generalized to this module's
// minimal grammar.
package ast

import "github.com/colstore/tilegroup/sql"

// Stmt is the closed set of statements the parser produces.
type Stmt interface{}

// ColumnDef is one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name    sql.Identifier
	Type    sql.DataType
	Size    uint32
	Fixed   bool
	NotNull bool
}

// CreateTable is `CREATE TABLE name (col type, ...)`.
type CreateTable struct {
	Table   sql.Identifier
	Columns []ColumnDef
}

// InsertValues is `INSERT INTO name [(cols...)] VALUES (v, ...), ...`.
type InsertValues struct {
	Table   sql.Identifier
	Columns []sql.Identifier // nil means "all columns, in schema order"
	Rows    [][]Expr
}

// Select is `SELECT cols... FROM name [WHERE expr]`.
type Select struct {
	Table   sql.Identifier
	Columns []sql.Identifier // nil means "*"
	Where   Expr             // nil means no filter
}

// Expr is the closed set of scalar expressions the parser produces,
// sufficient for literal values and WHERE predicates.
type Expr interface{}

type Literal struct {
	Value sql.Value
}

type ColumnRef struct {
	Name sql.Identifier
}

// BinaryOp is one of the comparison or boolean operators below, applied
// left-to-right with no precedence climbing beyond AND/OR binding looser
// than comparisons.
type BinaryOp struct {
	Op          Op
	Left, Right Expr
}

type Op int

const (
	Eq Op = iota
	Lt
	Gt
	LtEq
	GtEq
	NotEq
	And
	Or
)

func (op Op) String() string {
	switch op {
	case Eq:
		return "="
	case Lt:
		return "<"
	case Gt:
		return ">"
	case LtEq:
		return "<="
	case GtEq:
		return ">="
	case NotEq:
		return "<>"
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return "?"
	}
}

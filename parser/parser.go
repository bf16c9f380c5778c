// Package parser implements the minimal recursive-descent SQL parser
// that exercises the storage core: CREATE TABLE, INSERT INTO ... VALUES,
// and SELECT ... FROM ... WHERE. Grounded in the teacher's parser.go
// (Parser interface, scan/unscan one token of lookahead, panic+recover
// for error propagation, expectReserved/expectTokens helpers) and its
// parser/scanner + parser/token split, which this package reuses.
package parser

import (
	"fmt"
	"io"
	"runtime"

	"github.com/colstore/tilegroup/ast"
	"github.com/colstore/tilegroup/parser/scanner"
	"github.com/colstore/tilegroup/parser/token"
	"github.com/colstore/tilegroup/sql"
)

// Parser turns a rune stream into one ast.Stmt at a time.
type Parser interface {
	Parse() (ast.Stmt, error)
}

type parser struct {
	scanner   scanner.Scanner
	sctx      scanner.ScanCtx
	unscanned bool
	scanned   rune
}

// NewParser returns a Parser reading SQL text from rr. fn names the
// source for error messages (a filename, or "-" for interactive input).
func NewParser(rr io.RuneReader, fn string) Parser {
	var p parser
	p.scanner.Init(rr, fn)
	return &p
}

func (p *parser) Parse() (s ast.Stmt, err error) {
	if p.scan() == token.EOF {
		return nil, io.EOF
	}
	p.unscan()

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err = r.(error)
			s = nil
		}
	}()

	s = p.parseStmt()
	p.expectEOF()
	return
}

func (p *parser) error(msg string) {
	panic(fmt.Errorf("%s: %s", p.sctx.Position, msg))
}

func (p *parser) scan() rune {
	if p.unscanned {
		p.unscanned = false
		return p.scanned
	}
	p.scanner.Scan(&p.sctx)
	p.scanned = p.sctx.Token
	if p.scanned == token.Error {
		p.error(p.sctx.Error.Error())
	}
	return p.scanned
}

func (p *parser) unscan() { p.unscanned = true }

func (p *parser) got() string {
	switch p.scanned {
	case token.EOF:
		return "end of file"
	case token.Identifier, token.Reserved:
		return fmt.Sprintf("identifier %s", p.sctx.Identifier)
	case token.String:
		return fmt.Sprintf("string %q", p.sctx.String)
	case token.Integer:
		return fmt.Sprintf("integer %d", p.sctx.Integer)
	case token.Float:
		return fmt.Sprintf("float %v", p.sctx.Float)
	default:
		return token.Format(p.scanned)
	}
}

func (p *parser) expectReserved(ids ...sql.Identifier) sql.Identifier {
	if p.scan() == token.Reserved {
		for _, kw := range ids {
			if kw == p.sctx.Identifier {
				return kw
			}
		}
	}
	p.error(fmt.Sprintf("expected a keyword, got %s", p.got()))
	return 0
}

func (p *parser) optionalReserved(ids ...sql.Identifier) bool {
	if p.scan() == token.Reserved {
		for _, kw := range ids {
			if kw == p.sctx.Identifier {
				return true
			}
		}
	}
	p.unscan()
	return false
}

func (p *parser) expectIdentifier(msg string) sql.Identifier {
	if p.scan() != token.Identifier {
		p.error(fmt.Sprintf("%s, got %s", msg, p.got()))
	}
	return p.sctx.Identifier
}

func (p *parser) expectToken(r rune) {
	if p.scan() != r {
		p.error(fmt.Sprintf("expected %s, got %s", token.Format(r), p.got()))
	}
}

func (p *parser) maybeToken(r rune) bool {
	if p.scan() == r {
		return true
	}
	p.unscan()
	return false
}

// expectEOF accepts either end of input, or a trailing ';' followed by
// end of input: one call to Parse handles exactly one statement, but
// callers (a postgres wire client in particular) routinely terminate
// theirs with a semicolon anyway.
func (p *parser) expectEOF() {
	if p.maybeToken(token.EndOfStatement) {
		if p.scan() == token.EOF {
			return
		}
		p.error(fmt.Sprintf("expected the end of the statement, got %s", p.got()))
		return
	}
	if p.scan() != token.EOF {
		p.error(fmt.Sprintf("expected the end of the statement, got %s", p.got()))
	}
}

func (p *parser) parseStmt() ast.Stmt {
	switch p.expectReserved(sql.CREATE, sql.INSERT, sql.SELECT) {
	case sql.CREATE:
		return p.parseCreateTable()
	case sql.INSERT:
		return p.parseInsertValues()
	case sql.SELECT:
		return p.parseSelect()
	}
	panic("parser: unreachable")
}

var typeNames = map[sql.Identifier]sql.DataType{
	sql.ID("boolean"): sql.BooleanType,
	sql.ID("bool"):    sql.BooleanType,
	sql.ID("int"):     sql.IntegerType,
	sql.ID("integer"): sql.IntegerType,
	sql.ID("float"):   sql.FloatType,
	sql.ID("double"):  sql.FloatType,
	sql.ID("varchar"): sql.CharacterType,
	sql.ID("char"):    sql.CharacterType,
	sql.ID("binary"):  sql.BinaryType,
	sql.ID("blob"):    sql.BinaryType,
}

func (p *parser) parseCreateTable() *ast.CreateTable {
	p.expectReserved(sql.TABLE)
	tbl := p.expectIdentifier("expected a table name")
	p.expectToken(token.LParen)

	var cols []ast.ColumnDef
	for {
		name := p.expectIdentifier("expected a column name")
		typeName := p.expectIdentifier("expected a column type")
		dt, ok := typeNames[typeName]
		if !ok {
			p.error(fmt.Sprintf("unknown column type %s", typeName))
		}

		col := ast.ColumnDef{Name: name, Type: dt, Fixed: !dt.Variable()}
		if p.maybeToken(token.LParen) {
			// A size in parens (CHAR(n), VARCHAR(n)) is a capacity hint only;
			// character and binary columns are always pool-backed.
			col.Size = uint32(p.expectInteger())
			p.expectToken(token.RParen)
		}
		if p.optionalReserved(sql.NOT) {
			p.expectReserved(sql.NULL)
			col.NotNull = true
		}
		cols = append(cols, col)

		if !p.maybeToken(token.Comma) {
			break
		}
	}
	p.expectToken(token.RParen)
	return &ast.CreateTable{Table: tbl, Columns: cols}
}

func (p *parser) expectInteger() int64 {
	if p.scan() != token.Integer {
		p.error(fmt.Sprintf("expected an integer, got %s", p.got()))
	}
	return p.sctx.Integer
}

func (p *parser) parseInsertValues() *ast.InsertValues {
	p.expectReserved(sql.INTO)
	tbl := p.expectIdentifier("expected a table name")

	var cols []sql.Identifier
	if p.maybeToken(token.LParen) {
		for {
			cols = append(cols, p.expectIdentifier("expected a column name"))
			if !p.maybeToken(token.Comma) {
				break
			}
		}
		p.expectToken(token.RParen)
	}

	p.expectReserved(sql.VALUES)
	var rows [][]ast.Expr
	for {
		p.expectToken(token.LParen)
		var row []ast.Expr
		for {
			row = append(row, p.parseLiteral())
			if !p.maybeToken(token.Comma) {
				break
			}
		}
		p.expectToken(token.RParen)
		rows = append(rows, row)
		if !p.maybeToken(token.Comma) {
			break
		}
	}
	return &ast.InsertValues{Table: tbl, Columns: cols, Rows: rows}
}

func (p *parser) parseLiteral() ast.Expr {
	switch p.scan() {
	case token.Integer:
		return ast.Literal{Value: sql.Int64Value(p.sctx.Integer)}
	case token.Float:
		return ast.Literal{Value: sql.Float64Value(p.sctx.Float)}
	case token.String:
		return ast.Literal{Value: sql.StringValue(p.sctx.String)}
	case token.Reserved:
		if p.sctx.Identifier == sql.TRUE {
			return ast.Literal{Value: sql.BoolValue(true)}
		}
		if p.sctx.Identifier == sql.FALSE {
			return ast.Literal{Value: sql.BoolValue(false)}
		}
	}
	p.error(fmt.Sprintf("expected a literal value, got %s", p.got()))
	return nil
}

func (p *parser) parseSelect() *ast.Select {
	var cols []sql.Identifier
	if !p.maybeToken(token.Star) {
		for {
			cols = append(cols, p.expectIdentifier("expected a column name or *"))
			if !p.maybeToken(token.Comma) {
				break
			}
		}
	}
	p.expectReserved(sql.FROM)
	tbl := p.expectIdentifier("expected a table name")

	sel := &ast.Select{Table: tbl, Columns: cols}
	if p.optionalReserved(sql.WHERE) {
		sel.Where = p.parseExpr()
	}
	return sel
}

// parseExpr parses an OR of ANDs of comparisons, the usual SQL precedence
// for a WHERE predicate: OR binds loosest, then AND, then comparisons.
func (p *parser) parseExpr() ast.Expr {
	left := p.parseAndExpr()
	for p.optionalReserved(sql.OR) {
		left = ast.BinaryOp{Op: ast.Or, Left: left, Right: p.parseAndExpr()}
	}
	return left
}

func (p *parser) parseAndExpr() ast.Expr {
	left := p.parseComparison()
	for p.optionalReserved(sql.AND) {
		left = ast.BinaryOp{Op: ast.And, Left: left, Right: p.parseComparison()}
	}
	return left
}

func (p *parser) parseComparison() ast.Expr {
	left := p.parseOperand()
	op, ok := p.maybeCompareOp()
	if !ok {
		return left
	}
	return ast.BinaryOp{Op: op, Left: left, Right: p.parseOperand()}
}

func (p *parser) maybeCompareOp() (ast.Op, bool) {
	switch p.scan() {
	case token.Equal:
		return ast.Eq, true
	case token.Less:
		return ast.Lt, true
	case token.Greater:
		return ast.Gt, true
	case token.LessEqual:
		return ast.LtEq, true
	case token.GreaterEqual:
		return ast.GtEq, true
	case token.LessGreater, token.BangEqual:
		return ast.NotEq, true
	}
	p.unscan()
	return 0, false
}

func (p *parser) parseOperand() ast.Expr {
	switch p.scan() {
	case token.Identifier:
		return ast.ColumnRef{Name: p.sctx.Identifier}
	case token.Integer:
		return ast.Literal{Value: sql.Int64Value(p.sctx.Integer)}
	case token.Float:
		return ast.Literal{Value: sql.Float64Value(p.sctx.Float)}
	case token.String:
		return ast.Literal{Value: sql.StringValue(p.sctx.String)}
	}
	p.error(fmt.Sprintf("expected a column reference or literal, got %s", p.got()))
	return nil
}

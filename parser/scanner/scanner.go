// Package scanner turns SQL text into the tokens parser.go consumes.
// Grounded in the teacher's parser/scanner package (one rune of
// pushback, line/column tracking for error messages, -- and /* */
// comment skipping) trimmed to the token set tilestore's grammar
// actually has a rule for: no byte-string literals, parameter markers,
// backtick/bracket-quoted identifiers, or backslash-escaped strings —
// none of those have a grammar production in parser.go.
package scanner

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"unicode"

	"github.com/colstore/tilegroup/parser/token"
	"github.com/colstore/tilegroup/sql"
)

type Position struct {
	Filename string
	Line     int
	Column   int
}

type ScanCtx struct {
	Token      rune
	Error      error
	Identifier sql.Identifier // Identifier and Reserved
	String     string
	Integer    int64
	Float      float64
	Position
}

type Scanner struct {
	initialized bool
	rr          io.RuneReader
	unread      bool
	read        rune
	filename    string
	line        int
	column      int
	buffer      bytes.Buffer
}

func (pos Position) String() string {
	s := pos.Filename
	if pos.Line > 0 {
		s += fmt.Sprintf(":%d:%d", pos.Line, pos.Column)
	}
	return s
}

func (s *Scanner) Init(rr io.RuneReader, fn string) {
	if s.initialized {
		panic("scanner already initialized")
	}
	s.initialized = true

	s.rr = rr
	s.filename = fn
}

func (s *Scanner) Scan(sctx *ScanCtx) {
	s.buffer.Reset()
	sctx.Filename = s.filename
	sctx.Line = 1
	sctx.Column = 0
	sctx.Token = s.scan(sctx)
}

func (s *Scanner) scan(sctx *ScanCtx) rune {
SkipWhitespace:
	r := s.readRune(sctx)

	for {
		if r < 0 {
			return r
		}
		if !unicode.IsSpace(r) {
			break
		}

		r = s.readRune(sctx)
	}

	if r == ';' {
		return token.EndOfStatement
	}

	if r == '-' {
		if r2 := s.readRune(sctx); r2 == '-' {
			for {
				r2 = s.readRune(sctx)
				if r2 < 0 {
					return r2
				}
				if r2 == '\n' {
					break
				}
			}
			goto SkipWhitespace
		} else if r2 < 0 {
			return r2
		} else {
			s.unreadRune()
		}
	} else if r == '/' {
		if r2 := s.readRune(sctx); r2 == '*' {
			var p rune
			for {
				r2 = s.readRune(sctx)
				if r2 < 0 {
					return r2
				}
				if p == '*' && r2 == '/' {
					break
				}
				p = r2
			}
			goto SkipWhitespace
		} else if r2 < 0 {
			return r2
		} else {
			s.unreadRune()
		}
	}

	sctx.Column = s.column
	sctx.Line = s.line

	if unicode.IsLetter(r) || r == '_' {
		return s.scanIdentifier(sctx, r)
	} else if unicode.IsDigit(r) {
		return s.scanNumber(sctx, r, 1)
	} else if r == '+' {
		r = s.readRune(sctx)
		if unicode.IsDigit(r) {
			return s.scanNumber(sctx, r, 1)
		}
		s.unreadRune()
		return '+'
	} else if r == '-' {
		r = s.readRune(sctx)
		if unicode.IsDigit(r) {
			return s.scanNumber(sctx, r, -1)
		}
		s.unreadRune()
		return '-'
	} else if r == '"' {
		return s.scanQuotedIdentifier(sctx)
	} else if r == '\'' {
		return s.scanString(sctx)
	} else if token.IsOpRune(r) {
		s.buffer.WriteRune(r)
		r2 := s.readRune(sctx)
		if token.IsOpRune(r2) {
			s.buffer.WriteRune(r2)
			if r3, ok := token.Operators[s.buffer.String()]; ok {
				return r3
			}
			sctx.Error = fmt.Errorf("scanner: unexpected operator %s", s.buffer.String())
			return token.Error
		}
		s.unreadRune()
		return r
	} else if r == ',' || r == '(' || r == ')' || r == '*' {
		return r
	}

	sctx.Error = fmt.Errorf("scanner: unexpected character '%c'", r)
	return token.Error
}

func (s *Scanner) readRune(sctx *ScanCtx) rune {
	if s.unread {
		s.unread = false
		return s.read
	}

	var err error
	s.read, _, err = s.rr.ReadRune()
	if err == io.EOF {
		s.read = token.EOF
		return token.EOF
	} else if err != nil {
		sctx.Error = err
		return token.Error
	}

	if s.read == '\n' {
		s.line += 1
		s.column = 0
	} else {
		s.column += 1
	}

	return s.read
}

func (s *Scanner) unreadRune() {
	s.unread = true
}

func (s *Scanner) scanIdentifier(sctx *ScanCtx, r rune) rune {
	for {
		s.buffer.WriteRune(r)
		r = s.readRune(sctx)
		if r == token.EOF {
			break
		} else if r == token.Error {
			return token.Error
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			s.unreadRune()
			break
		}
	}

	sctx.Identifier = sql.UnquotedID(s.buffer.String())
	if sctx.Identifier.IsReserved() {
		return token.Reserved
	}
	return token.Identifier
}

func (s *Scanner) scanNumber(sctx *ScanCtx, r rune, sign int64) rune {
	dbl := false
	for {
		s.buffer.WriteRune(r)
		r = s.readRune(sctx)
		if r == token.EOF {
			break
		} else if r == token.Error {
			return token.Error
		}
		if !dbl && r == '.' {
			dbl = true
		} else if !unicode.IsDigit(r) {
			s.unreadRune()
			break
		}
	}

	var err error
	if dbl {
		sctx.Float, err = strconv.ParseFloat(s.buffer.String(), 64)
	} else {
		sctx.Integer, err = strconv.ParseInt(s.buffer.String(), 10, 64)
	}
	if err != nil {
		sctx.Error = err
		return token.Error
	}
	if dbl {
		sctx.Float *= float64(sign)
		return token.Float
	}
	sctx.Integer *= sign
	return token.Integer
}

// scanQuotedIdentifier scans a "double quoted" identifier, the one
// quoting style the grammar needs: a column or table name that clashes
// with a reserved word, or that carries characters UnquotedID can't.
func (s *Scanner) scanQuotedIdentifier(sctx *ScanCtx) rune {
	for {
		r := s.readRune(sctx)
		if r == token.EOF {
			sctx.Error = fmt.Errorf("scanner: quoted identifier missing terminating '\"'")
			return token.Error
		}
		if r == token.Error {
			return token.Error
		}
		if r == '"' {
			break
		}
		s.buffer.WriteRune(r)
	}

	sctx.Identifier = sql.QuotedID(s.buffer.String())
	return token.Identifier
}

// scanString scans a '...' string literal. A doubled '' is the SQL
// standard escape for a literal quote inside the string; there is no
// backslash escape syntax, since nothing in this grammar needs one.
func (s *Scanner) scanString(sctx *ScanCtx) rune {
	for {
		r := s.readRune(sctx)
		if r == token.EOF {
			sctx.Error = fmt.Errorf("scanner: string missing terminating \"'\"")
			return token.Error
		}
		if r == token.Error {
			return token.Error
		}
		if r == '\'' {
			r2 := s.readRune(sctx)
			if r2 != '\'' {
				s.unreadRune()
				break
			}
			r = r2
		}
		s.buffer.WriteRune(r)
	}

	sctx.String = s.buffer.String()
	return token.String
}

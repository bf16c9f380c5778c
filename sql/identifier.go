package sql

import (
	"fmt"
	"strings"
	"sync"
)

// Identifier is an interned name: a column, table, or schema name.
// Comparing two Identifiers is a simple integer comparison. Negative
// values are reserved keywords; non-negative values are ordinary,
// user-supplied names, grounded in the teacher's sql/identifier.go split
// between a negative keyword range and a positive identifier range.
type Identifier int32

// Exported reserved-word identifiers, for code that wants to compare
// against a keyword without going through a string lookup.
const (
	AND Identifier = -(iota + 1)
	AS
	ASC
	BY
	CREATE
	DELETE
	DESC
	DROP
	FALSE
	FROM
	INSERT
	INTO
	NOT
	NULL
	OR
	ORDER
	SELECT
	TABLE
	TRUE
	VALUES
	WHERE
)

var reservedWords = map[string]Identifier{
	"and":    AND,
	"as":     AS,
	"asc":    ASC,
	"by":     BY,
	"create": CREATE,
	"delete": DELETE,
	"desc":   DESC,
	"drop":   DROP,
	"false":  FALSE,
	"from":   FROM,
	"insert": INSERT,
	"into":   INTO,
	"not":    NOT,
	"null":   NULL,
	"or":     OR,
	"order":  ORDER,
	"select": SELECT,
	"table":  TABLE,
	"true":   TRUE,
	"values": VALUES,
	"where":  WHERE,
}

var internTable = struct {
	mu    sync.Mutex
	ids   map[string]Identifier // interned text -> id; reserved words never enter it
	names []string
}{
	ids: map[string]Identifier{},
}

// ID is an alias for UnquotedID, for callers that don't care about the
// quoted/unquoted distinction.
func ID(s string) Identifier { return UnquotedID(s) }

// UnquotedID interns s (case-folded to lower) and returns its Identifier.
// A reserved keyword (matched case-insensitively) always returns its
// fixed negative id; anything else gets the same id QuotedID gives the
// lower-cased text, assigned the first time it is seen. Safe for
// concurrent use.
func UnquotedID(s string) Identifier {
	folded := strings.ToLower(s)

	if id, ok := reservedWords[folded]; ok {
		return id
	}
	return QuotedID(folded)
}

// QuotedID interns s verbatim (case preserved, no keyword lookup): a
// quoted identifier is never treated as reserved, matching SQL's usual
// quoting rules, and a quoted lower-case name is the same identifier as
// the unquoted name.
func QuotedID(s string) Identifier {
	internTable.mu.Lock()
	defer internTable.mu.Unlock()

	if id, ok := internTable.ids[s]; ok {
		return id
	}
	id := Identifier(len(internTable.names))
	internTable.names = append(internTable.names, s)
	internTable.ids[s] = id
	return id
}

// IsReserved reports whether id names a reserved keyword rather than a
// user-supplied identifier.
func (id Identifier) IsReserved() bool {
	return id < 0
}

// String returns the interned name this Identifier refers to.
func (id Identifier) String() string {
	if id < 0 {
		for word, rid := range reservedWords {
			if rid == id {
				return word
			}
		}
		return fmt.Sprintf("<bad-identifier-%d>", id)
	}

	internTable.mu.Lock()
	defer internTable.mu.Unlock()
	if int(id) >= len(internTable.names) {
		return fmt.Sprintf("<bad-identifier-%d>", id)
	}
	return internTable.names[id]
}

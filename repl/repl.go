// Package repl drives a parsed SQL statement stream against a
// session.Engine and renders results as a table, grounded in the
// teacher's repl package (ReplSQL executing a parser.Parser against an
// evaluate.Session and rendering RowsPlan results with
// olekukonko/tablewriter).
package repl

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/colstore/tilegroup/session"
)

// Run reads and executes SQL text from rr until EOF, writing results to w.
func Run(eng *session.Engine, rr io.RuneReader, w io.Writer) {
	var buf []rune
	for {
		r, _, err := rr.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(w, err)
			return
		}
		buf = append(buf, r)
		if r != ';' {
			continue
		}

		rows, err := eng.ExecuteString(string(buf[:len(buf)-1]))
		buf = buf[:0]
		if err != nil {
			fmt.Fprintln(w, err)
			continue
		}
		if rows == nil {
			fmt.Fprintln(w, "OK")
			continue
		}
		renderRows(w, rows)
	}
}

func renderRows(w io.Writer, rows []session.Row) {
	tw := tablewriter.NewWriter(w)
	for _, r := range rows {
		row := make([]string, len(r.Values))
		for i, v := range r.Values {
			row[i] = v.String()
		}
		tw.Append(row)
	}
	tw.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

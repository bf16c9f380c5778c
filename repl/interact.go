package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/colstore/tilegroup/session"
)

const historyFile = ".tilestore_history"

// lineReader adapts a liner.State into an io.RuneReader, prompting for
// one line at a time, grounded in the teacher's repl/interact.go
// lineReader.
type lineReader struct {
	line *liner.State
	r    *strings.Reader
}

func (lr *lineReader) ReadRune() (r rune, size int, err error) {
	for {
		if lr.r == nil {
			s, err := lr.line.Prompt("tilestore> ")
			if err != nil {
				return 0, 0, err
			}
			lr.line.AppendHistory(s)
			lr.r = strings.NewReader(s + "\n")
		}

		r, sz, err := lr.r.ReadRune()
		if err == io.EOF {
			lr.r = nil
			continue
		}
		if err != nil {
			return 0, 0, err
		}
		return r, sz, nil
	}
}

// Interact runs an interactive, history-backed REPL against eng until
// the user sends EOF.
func Interact(eng *session.Engine) {
	line := liner.NewLiner()
	defer line.Close()

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	Run(eng, &lineReader{line: line}, os.Stdout)

	if f, err := os.Create(historyFile); err != nil {
		fmt.Fprintf(os.Stderr, "tilestore: error writing history file %s: %s\n", historyFile, err)
	} else {
		line.WriteHistory(f)
		f.Close()
	}
}

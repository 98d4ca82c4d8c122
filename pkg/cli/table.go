package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"golang.org/x/term"
)

// minLastColumn is the narrowest the last column is squeezed to.
const minLastColumn = 12

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Table buffers rows and writes them column-aligned on Flush, headers and
// a dash divider first. Empty tables produce no output.
type Table struct {
	out      io.Writer
	headers  []string
	rows     [][]string
	prefix   string
	maxWidth int
}

// NewTable creates a table on stdout. When stdout is a terminal the last
// column is truncated to keep rows on one line.
func NewTable(headers ...string) *Table {
	return NewTableTo(os.Stdout, headers...).WithMaxWidth(TermWidth())
}

// NewTableTo creates a table writing to out with no width limit.
func NewTableTo(out io.Writer, headers ...string) *Table {
	return &Table{out: out, headers: headers}
}

// TermWidth returns the width of the terminal on stdout, or 0 when stdout
// is not a terminal.
func TermWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

// WithPrefix sets a string prepended to each line (headers, divider, rows).
// Useful for indenting sub-tables within larger output.
func (t *Table) WithPrefix(prefix string) *Table {
	t.prefix = prefix
	return t
}

// WithMaxWidth limits line width by truncating the last column. Zero
// disables the limit.
func (t *Table) WithMaxWidth(width int) *Table {
	t.maxWidth = width
	return t
}

// Row adds a row.
func (t *Table) Row(values ...string) {
	t.rows = append(t.rows, values)
}

// Flush writes the buffered rows. If no rows were added, nothing is printed.
func (t *Table) Flush() {
	if len(t.rows) == 0 {
		return
	}
	if t.maxWidth > 0 {
		t.fitLastColumn()
	}

	w := tabwriter.NewWriter(t.out, 0, 0, 2, ' ', 0)
	writeLine := func(cells []string) {
		fmt.Fprintln(w, t.prefix+strings.Join(cells, "\t"))
	}
	writeLine(t.headers)
	dividers := make([]string, len(t.headers))
	for i, h := range t.headers {
		dividers[i] = strings.Repeat("-", len(h))
	}
	writeLine(dividers)
	for _, row := range t.rows {
		writeLine(row)
	}
	w.Flush()
	t.rows = nil
}

func (t *Table) fitLastColumn() {
	last := len(t.headers) - 1
	if last < 0 {
		return
	}

	used := visibleLen(t.prefix)
	for col := 0; col < last; col++ {
		width := visibleLen(t.headers[col])
		for _, row := range t.rows {
			if col < len(row) {
				width = max(width, visibleLen(row[col]))
			}
		}
		used += width + 2
	}

	avail := max(t.maxWidth-used, minLastColumn)
	for _, row := range t.rows {
		if last < len(row) && visibleLen(row[last]) > avail {
			row[last] = Truncate(ansiEscape.ReplaceAllString(row[last], ""), avail)
		}
	}
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(ansiEscape.ReplaceAllString(s, ""))
}

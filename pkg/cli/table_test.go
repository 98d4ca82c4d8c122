package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "ID", "INTERFACE")
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table wrote %q", buf.String())
	}
}

func TestTable_Rows(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "ID", "INTERFACE", "VLAN")
	tbl.Row("a1b2c3d4e5f6", "leaf-01 Ethernet1/1", "100")
	tbl.Row("0f0f0f0f0f0f", "leaf-01 Ethernet1/2", "10-20,30")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.HasPrefix(lines[1], "--") {
		t.Errorf("header/divider = %q / %q", lines[0], lines[1])
	}
	// Columns align: INTERFACE starts at the same offset on every line.
	col := strings.Index(lines[0], "INTERFACE")
	for _, l := range lines[2:] {
		if strings.Index(l, "leaf-01") != col {
			t.Errorf("misaligned row %q", l)
		}
	}
}

func TestTable_Prefix(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "KEY", "VALUE").WithPrefix("  ")
	tbl.Row("mode", "access")
	tbl.Flush()

	for _, l := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if !strings.HasPrefix(l, "  ") {
			t.Errorf("line %q missing prefix", l)
		}
	}
}

func TestTable_MaxWidth(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "ID", "MESSAGE").WithMaxWidth(40)
	tbl.Row("a1b2c3d4e5f6", "Configure leaf-01 Ethernet1/1 to access vlan 100 on the first try")
	tbl.Row("0f0f0f0f0f0f", "short")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for _, l := range lines {
		if len(l) > 40 {
			t.Errorf("line exceeds 40 columns (%d): %q", len(l), l)
		}
	}
	if !strings.HasSuffix(lines[2], "...") {
		t.Errorf("long message not truncated: %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "short") {
		t.Errorf("short message changed: %q", lines[3])
	}
}

func TestTable_MaxWidthFloor(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "A", "B").WithMaxWidth(5)
	tbl.Row("wide-first-column", "0123456789abcdefghij")
	tbl.Flush()

	if !strings.Contains(buf.String(), "012345678...") {
		t.Errorf("last column should keep %d runes: %q", minLastColumn, buf.String())
	}
}

func TestVisibleLen(t *testing.T) {
	defer SetColor(colorEnabled)
	SetColor(true)
	if got := visibleLen(Green("ok")); got != 2 {
		t.Errorf("visibleLen(Green(ok)) = %d", got)
	}
}

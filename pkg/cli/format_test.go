package cli

import (
	"strings"
	"testing"
)

func TestDotPad(t *testing.T) {
	tests := []struct {
		name  string
		width int
		want  string
	}{
		{"port_exists", 16, "port_exists ...."},
		{"oper", 6, "oper ."},
		{"toolongname", 5, "toolongname"},
		{"exact", 6, "exact"},
		{"x", 0, "x"},
	}
	for _, tt := range tests {
		if got := DotPad(tt.name, tt.width); got != tt.want {
			t.Errorf("DotPad(%q, %d) = %q, want %q", tt.name, tt.width, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"Configure leaf-01 Ethernet1/1", 12, "Configure..."},
		{"abc", 2, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestColorFunctions(t *testing.T) {
	defer SetColor(colorEnabled)

	SetColor(false)
	for _, f := range []func(string) string{Green, Yellow, Red, Bold, Dim} {
		if got := f("x"); got != "x" {
			t.Errorf("colour disabled: got %q", got)
		}
	}
	if YesNo(true) != "yes" || YesNo(false) != "no" {
		t.Error("YesNo without colour")
	}

	SetColor(true)
	if got := Green("ok"); got != "\033[32mok\033[0m" {
		t.Errorf("Green() = %q", got)
	}
	if got := State("Failed"); !strings.Contains(got, "\033[31m") {
		t.Errorf("State(Failed) = %q", got)
	}
	if got := State("Verified"); !strings.Contains(got, "\033[32m") {
		t.Errorf("State(Verified) = %q", got)
	}
}

func TestOrDash(t *testing.T) {
	if OrDash("") != "-" || OrDash("x") != "x" {
		t.Error("OrDash")
	}
}

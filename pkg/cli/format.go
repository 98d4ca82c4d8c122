// Package cli provides shared formatting helpers for the portctl CLI.
package cli

import (
	"os"
	"strings"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

// SetColor forces colour output on or off.
func SetColor(enabled bool) {
	colorEnabled = enabled
}

func wrap(code, s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Green wraps s in ANSI green. Returns s unchanged when NO_COLOR is set.
func Green(s string) string { return wrap("32", s) }

// Yellow wraps s in ANSI yellow. Returns s unchanged when NO_COLOR is set.
func Yellow(s string) string { return wrap("33", s) }

// Red wraps s in ANSI red. Returns s unchanged when NO_COLOR is set.
func Red(s string) string { return wrap("31", s) }

// Bold wraps s in ANSI bold. Returns s unchanged when NO_COLOR is set.
func Bold(s string) string { return wrap("1", s) }

// Dim wraps s in ANSI dim. Returns s unchanged when NO_COLOR is set.
func Dim(s string) string { return wrap("2", s) }

// State colours a transaction state: green for Verified, red for Failed,
// yellow otherwise.
func State(s string) string {
	switch s {
	case "Verified":
		return Green(s)
	case "Failed":
		return Red(s)
	default:
		return Yellow(s)
	}
}

// YesNo renders a boolean as a coloured yes/no.
func YesNo(b bool) string {
	if b {
		return Green("yes")
	}
	return Red("no")
}

// DotPad pads name with dots to the given width.
// Example: DotPad("oper_status", 20) → "oper_status ........"
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// OrDash returns "-" for empty strings.
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

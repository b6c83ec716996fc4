// Package ctl implements the client-side commands for antposctl.
// It talks to a running antposd over HTTP and WebSocket, or computes
// conversions in-process, and renders the results to the terminal.
package ctl

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// stdout is where every command writes. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	white  = "\033[37m"
)

// colorEnabled reports whether stdout is a terminal. When output is piped
// or redirected, ANSI escape codes are suppressed.
func colorEnabled() bool {
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// stateColor returns the ANSI color code appropriate for a daemon state.
func stateColor(state string) string {
	if !colorEnabled() {
		return ""
	}
	switch state {
	case "READY":
		return green
	case "LOADING":
		return yellow
	case "STOPPING":
		return red
	case "BOOTING":
		return dim
	default:
		return white
	}
}

// colorize wraps text with an ANSI color sequence.
// Returns the text unchanged when color output is disabled.
func colorize(color, text string) string {
	if !colorEnabled() || color == "" {
		return text
	}
	return color + text + reset
}

// header returns a bold section header, or plain text when color is off.
func header(title string) string {
	if colorEnabled() {
		return bold + title + reset
	}
	return title
}

func rule(width int) string {
	return colorize(dim, "  "+strings.Repeat("─", width))
}

// padRight pads s with spaces to reach the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// formatDuration renders a time.Duration as a compact human string like
// "2h 14m 8s" or "45s".
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// formatDistance renders metres with an SI prefix, e.g. "440.71 m" or
// "53.28 km".
func formatDistance(m float64) string {
	v, prefix := humanize.ComputeSI(m)
	return fmt.Sprintf("%.2f %sm", v, prefix)
}

// formatLoadedAt renders an RFC 3339 timestamp relative to now.
func formatLoadedAt(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return humanize.Time(t)
}

func formatVec(v [3]float64) string {
	return fmt.Sprintf("%14.3f %14.3f %14.3f", v[0], v[1], v[2])
}

func formatDeg(rad float64) string {
	return fmt.Sprintf("%.6f°", rad*180/math.Pi)
}

// table renders aligned columns. Cells are plain text; color is applied to
// the header row only.
type table struct {
	indent  string
	headers []string
	rows    [][]string
	right   map[int]bool
}

func newTable(indent string, headers ...string) *table {
	return &table{indent: indent, headers: headers, right: map[int]bool{}}
}

func (t *table) alignRight(cols ...int) {
	for _, c := range cols {
		t.right[c] = true
	}
}

func (t *table) row(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) flush() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, r := range t.rows {
		for i, c := range r {
			if i < len(widths) && len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	line := func(cells []string, style string) {
		parts := make([]string, len(widths))
		for i := range widths {
			var c string
			if i < len(cells) {
				c = cells[i]
			}
			if t.right[i] {
				c = padLeft(c, widths[i])
			} else {
				c = padRight(c, widths[i])
			}
			parts[i] = colorize(style, c)
		}
		fmt.Fprintln(stdout, t.indent+strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(t.headers, dim)
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	fmt.Fprintln(stdout, colorize(dim, t.indent+strings.Repeat("─", max(total-2, 0))))
	for _, r := range t.rows {
		line(r, "")
	}
}

package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const tabWidth = 4

// expandTabs replaces tabs with spaces up to the next tab stop.
func expandTabs(line string) string {
	if !strings.ContainsRune(line, '\t') {
		return line
	}
	var b strings.Builder
	col := 0
	for _, r := range line {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return b.String()
}

// wrapCode breaks text into display lines of at most width cells. Source
// lines are kept, including empty ones; long lines are split hard since code
// has no safe break points.
func wrapCode(text string, width int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	src := strings.Split(text, "\n")
	if width <= 0 {
		for i, line := range src {
			src[i] = expandTabs(line)
		}
		return src
	}
	out := make([]string, 0, len(src))
	for _, line := range src {
		line = expandTabs(line)
		if runewidth.StringWidth(line) <= width {
			out = append(out, line)
			continue
		}
		var b strings.Builder
		lineWidth := 0
		for _, r := range line {
			w := runewidth.RuneWidth(r)
			if lineWidth+w > width && lineWidth > 0 {
				out = append(out, b.String())
				b.Reset()
				lineWidth = 0
			}
			b.WriteRune(r)
			lineWidth += w
		}
		out = append(out, b.String())
	}
	return out
}

// markerStart returns the first column of a marker of markerWidth cells
// centered on col, kept inside a row of width cells.
func markerStart(col, width, markerWidth int) int {
	start := col - markerWidth/2
	if start > width-markerWidth {
		start = width - markerWidth
	}
	if start < 0 {
		start = 0
	}
	return start
}

// roomLines draws an empty room of width x height cells with the rendered
// marker at (col, row). An empty marker draws no object.
func roomLines(width, height, col, row int, glyph, rendered string) []string {
	blank := strings.Repeat(" ", width)
	lines := make([]string, height)
	for i := range lines {
		lines[i] = blank
	}
	if glyph == "" || row < 0 || row >= height {
		return lines
	}
	gw := runewidth.StringWidth(glyph)
	if gw > width {
		return lines
	}
	start := markerStart(col, width, gw)
	lines[row] = strings.Repeat(" ", start) + rendered + strings.Repeat(" ", width-start-gw)
	return lines
}

// centerLine pads text to width cells with text in the middle.
func centerLine(text string, width int) string {
	text = runewidth.Truncate(text, width, "…")
	gap := width - runewidth.StringWidth(text)
	left := gap / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", gap-left)
}

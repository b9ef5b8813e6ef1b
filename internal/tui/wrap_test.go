package tui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestWrapCodeKeepsLinesAndSplitsLongOnes(t *testing.T) {
	lines := wrapCode("ab\n\nabcdef", 4)
	want := []string{"ab", "", "abcd", "ef"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestWrapCodeExpandsTabs(t *testing.T) {
	lines := wrapCode("\tx\r\nab\ty", 0)
	if lines[0] != "    x" {
		t.Fatalf("expected tab to expand to a full stop, got %q", lines[0])
	}
	if lines[1] != "ab  y" {
		t.Fatalf("expected tab to expand to the next stop, got %q", lines[1])
	}
}

func TestWrapCodeWideRunes(t *testing.T) {
	lines := wrapCode("日本語", 4)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	for _, line := range lines {
		if runewidth.StringWidth(line) > 4 {
			t.Fatalf("line %q exceeds width", line)
		}
	}
}

func TestMarkerStartClamps(t *testing.T) {
	cases := []struct {
		col, width, marker, want int
	}{
		{col: 10, width: 20, marker: 3, want: 9},
		{col: 0, width: 20, marker: 3, want: 0},
		{col: 19, width: 20, marker: 3, want: 17},
	}
	for _, tc := range cases {
		if got := markerStart(tc.col, tc.width, tc.marker); got != tc.want {
			t.Fatalf("markerStart(%d, %d, %d) = %d, want %d", tc.col, tc.width, tc.marker, got, tc.want)
		}
	}
}

func TestRoomLinesPlacesMarker(t *testing.T) {
	lines := roomLines(10, 3, 5, 1, "[*]", "[*]")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[1] != "    [*]   " {
		t.Fatalf("unexpected marker row %q", lines[1])
	}
	if lines[0] != strings.Repeat(" ", 10) {
		t.Fatalf("expected blank row, got %q", lines[0])
	}
}

func TestCenterLine(t *testing.T) {
	if got := centerLine("ab", 6); got != "  ab  " {
		t.Fatalf("unexpected centered line %q", got)
	}
}

package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Stage", "Attempts", "Success"}
	rows := [][]string{
		{"Debug", "12", "50.0%"},
		{"日本", "3", "100.0%"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Stage  Attempts  Success" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Debug        12    50.0%" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "日本          3   100.0%" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestResampleAveragesBuckets(t *testing.T) {
	got := resample([]float64{1, 3, 5, 7}, 2)
	if len(got) != 2 || got[0] != 2 || got[1] != 6 {
		t.Fatalf("unexpected resample: %v", got)
	}
	if got := resample([]float64{1, 2}, 5); len(got) != 2 {
		t.Fatalf("expected short series to be kept, got %v", got)
	}
	if got := resample(nil, 5); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestSparkWidthFor(t *testing.T) {
	if got := sparkWidthFor(80, 5); got != 5 {
		t.Fatalf("expected one cell per value, got %d", got)
	}
	if got := sparkWidthFor(40, 100); got != 40 {
		t.Fatalf("expected terminal width, got %d", got)
	}
	if got := sparkWidthFor(3, 100); got != minSparkWidth {
		t.Fatalf("expected minimum width, got %d", got)
	}
}

// Package stats contains play history calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/escaperoom/internal/clock"
	"github.com/verte-zerg/escaperoom/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Outcome is how a session ended.
type Outcome string

// Outcomes.
const (
	OutcomeEscaped    Outcome = "escaped"
	OutcomeTimedOut   Outcome = "timed out"
	OutcomeUnfinished Outcome = "unfinished"
)

// SessionOutcome classifies a session from its persisted fields.
func SessionOutcome(s model.GameSession) Outcome {
	switch {
	case s.Completed:
		return OutcomeEscaped
	case s.EndTime != nil:
		return OutcomeTimedOut
	default:
		return OutcomeUnfinished
	}
}

// SessionRow summarizes one session.
type SessionRow struct {
	Session   model.GameSession
	Outcome   Outcome
	Attempts  int
	Hints     int
	TotalTime int
}

// StageStat aggregates attempts on one stage across sessions.
type StageStat struct {
	StageID  int64
	Title    string
	Attempts int
	Passed   int
	// Hints is the sum over sessions of the hints shown on the stage.
	Hints    int
	Sessions int
}

// SuccessRate returns the share of attempts that passed.
func (s StageStat) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Attempts)
}

// AvgHints returns the mean hints per session that reached the stage.
func (s StageStat) AvgHints() float64 {
	if s.Sessions == 0 {
		return 0
	}
	return float64(s.Hints) / float64(s.Sessions)
}

// Summarize builds session rows, oldest first, and per-stage statistics in
// stage order. Hints for a stage in a session are the highest count recorded
// on any of its attempts, since every attempt carries the running total.
func Summarize(sessions []model.SessionDetail, stages []model.Stage) ([]SessionRow, []StageStat) {
	sorted := make([]model.SessionDetail, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	stats := map[int64]*StageStat{}
	order := make([]int64, 0, len(stages))
	for _, st := range stages {
		stats[st.ID] = &StageStat{StageID: st.ID, Title: st.Title}
		order = append(order, st.ID)
	}

	rows := make([]SessionRow, 0, len(sorted))
	for _, s := range sorted {
		row := SessionRow{Session: s.GameSession, Outcome: SessionOutcome(s.GameSession), Attempts: len(s.Attempts)}
		if s.TotalTime != nil {
			row.TotalTime = *s.TotalTime
		}
		hints := map[int64]int{}
		for _, a := range s.Attempts {
			stat, ok := stats[a.StageID]
			if !ok {
				stat = &StageStat{StageID: a.StageID, Title: fmt.Sprintf("Stage #%d", a.StageID)}
				stats[a.StageID] = stat
				order = append(order, a.StageID)
			}
			stat.Attempts++
			if a.Successful {
				stat.Passed++
			}
			if h, seen := hints[a.StageID]; !seen || a.HintsUsed > h {
				hints[a.StageID] = a.HintsUsed
			}
		}
		for id, h := range hints {
			stats[id].Hints += h
			stats[id].Sessions++
			row.Hints += h
		}
		rows = append(rows, row)
	}

	out := make([]StageStat, 0, len(order))
	for _, id := range order {
		out = append(out, *stats[id])
	}
	return rows, out
}

// CompletionTimes returns the total times of escaped sessions in row order.
func CompletionTimes(rows []SessionRow) []float64 {
	var out []float64
	for _, r := range rows {
		if r.Outcome == OutcomeEscaped {
			out = append(out, float64(r.TotalTime))
		}
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := minMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func minMax(values []float64) (float64, float64) {
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return minVal, maxVal
}

// RenderSummary prints outcome counts and time records.
func RenderSummary(w io.Writer, username string, rows []SessionRow) error {
	if _, err := fmt.Fprintf(w, "History for %s\n", username); err != nil {
		return err
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	counts := map[Outcome]int{}
	for _, r := range rows {
		counts[r.Outcome]++
	}
	if _, err := fmt.Fprintf(w, "Sessions: %d  Escaped: %d  Timed out: %d  Unfinished: %d\n",
		len(rows), counts[OutcomeEscaped], counts[OutcomeTimedOut], counts[OutcomeUnfinished]); err != nil {
		return err
	}
	if times := CompletionTimes(rows); len(times) > 0 {
		best, _ := minMax(times)
		var sum float64
		for _, v := range times {
			sum += v
		}
		avg := int(math.Round(sum / float64(len(times))))
		if _, err := fmt.Fprintf(w, "Best time: %s  Average time: %s\n", clock.Format(int(best)), clock.Format(avg)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderSessions prints one line per session.
func RenderSessions(w io.Writer, rows []SessionRow) error {
	if len(rows) == 0 {
		return nil
	}
	headers := []string{"Started", "Outcome", "Time", "Timer", "Attempts", "Hints"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		elapsed := "-"
		if r.Outcome == OutcomeEscaped {
			elapsed = clock.Format(r.TotalTime)
		}
		tableRows = append(tableRows, []string{
			r.Session.StartTime.Local().Format("2006-01-02 15:04"),
			string(r.Outcome),
			elapsed,
			clock.Format(r.Session.TimerDuration),
			fmt.Sprintf("%d", r.Attempts),
			fmt.Sprintf("%d", r.Hints),
		})
	}
	return writeTable(w, "Sessions", headers, tableRows, map[int]bool{2: true, 3: true, 4: true, 5: true})
}

// RenderStageTable prints per-stage attempt statistics.
func RenderStageTable(w io.Writer, stats []StageStat) error {
	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, "No stage attempts found.")
		return err
	}
	headers := []string{"Stage", "Attempts", "Passed", "Success", "Avg Hints"}
	tableRows := make([][]string, 0, len(stats))
	for _, s := range stats {
		tableRows = append(tableRows, []string{
			s.Title,
			fmt.Sprintf("%d", s.Attempts),
			fmt.Sprintf("%d", s.Passed),
			fmt.Sprintf("%.1f%%", s.SuccessRate()*100),
			fmt.Sprintf("%.2f", s.AvgHints()),
		})
	}
	return writeTable(w, "Per-Stage", headers, tableRows, map[int]bool{1: true, 2: true, 3: true, 4: true})
}

// RenderTrend prints a sparkline of completion times fitted to totalWidth.
// Zero uses the terminal width.
func RenderTrend(w io.Writer, rows []SessionRow, window, totalWidth int) error {
	times := CompletionTimes(rows)
	if len(times) == 0 {
		return nil
	}
	if totalWidth <= 0 {
		totalWidth = terminalWidth()
	}
	minVal, maxVal := minMax(times)
	line := Sparkline(resample(MovingAverage(times, window), sparkWidthFor(totalWidth, len(times))))
	if _, err := fmt.Fprintln(w, "Completion Times (oldest to newest)"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\nfastest %s  slowest %s\n\n", line, clock.Format(int(minVal)), clock.Format(int(maxVal))); err != nil {
		return err
	}
	return nil
}

func writeTable(w io.Writer, title string, headers []string, rows [][]string, rightAlign map[int]bool) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

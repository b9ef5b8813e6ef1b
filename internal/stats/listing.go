package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/escaperoom/internal/clock"
	"github.com/verte-zerg/escaperoom/internal/model"
)

// RenderStages prints the stage catalog in play order.
func RenderStages(w io.Writer, stages []model.Stage) error {
	if len(stages) == 0 {
		_, err := fmt.Fprintln(w, "No stages found.")
		return err
	}
	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			strconv.Itoa(s.Order),
			string(s.Type),
			s.Title,
		})
	}
	return writeTable(w, "Stages", []string{"ID", "Order", "Type", "Title"}, rows, map[int]bool{0: true, 1: true})
}

// RenderLeaderboard prints ranked entries.
func RenderLeaderboard(w io.Writer, entries []model.RankedEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No completions yet.")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		name := e.Username
		if name == "" {
			name = e.UserID
		}
		rows = append(rows, []string{
			"#" + strconv.Itoa(e.Rank),
			name,
			clock.Format(e.CompletionTime),
			e.CompletedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return writeTable(w, "Leaderboard", []string{"Rank", "Player", "Time", "Completed"}, rows, map[int]bool{0: true, 2: true})
}

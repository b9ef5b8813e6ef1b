package stats

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/verte-zerg/escaperoom/internal/model"
)

// Source is the history the report reads.
type Source interface {
	FindUserByUsername(ctx context.Context, username string) (model.User, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]model.SessionDetail, error)
}

// Report contains precomputed data for history rendering.
type Report struct {
	User     model.User
	Sessions []SessionRow
	Stages   []StageStat
}

// BuildReport loads a player's sessions and summarizes them against stages.
// last keeps only the most recent sessions when positive.
func BuildReport(ctx context.Context, src Source, username string, stages []model.Stage, last int) (Report, error) {
	user, err := src.FindUserByUsername(ctx, username)
	if err != nil {
		return Report{}, fmt.Errorf("failed to find player %q: %w", username, err)
	}
	sessions, err := src.ListSessionsByUser(ctx, user.ID)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	if last > 0 && len(sessions) > last {
		sessions = sessions[len(sessions)-last:]
	}
	rows, stageStats := Summarize(sessions, stages)
	return Report{User: user, Sessions: rows, Stages: stageStats}, nil
}

// Render prints every section of the report.
func Render(w io.Writer, r Report, window, totalWidth int) error {
	if err := RenderSummary(w, r.User.Username, r.Sessions); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	if err := RenderSessions(w, r.Sessions); err != nil {
		return err
	}
	if err := RenderStageTable(w, r.Stages); err != nil {
		return err
	}
	return RenderTrend(w, r.Sessions, window, totalWidth)
}

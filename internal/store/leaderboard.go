package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/escaperoom/internal/model"
)

// rankedSelect computes rank as one plus the count of strictly faster
// entries, inside the same statement as the row itself.
const rankedSelect = `SELECT l.id, l.user_id, COALESCE(u.username, ''), l.completion_time, l.completed_at,
		(SELECT COUNT(*) FROM leaderboard x WHERE x.completion_time < l.completion_time) + 1 AS position
	FROM leaderboard l
	LEFT JOIN users u ON u.id = l.user_id`

const leaderboardOrder = `ORDER BY l.completion_time ASC, l.completed_at ASC, l.seq ASC`

// CreateLeaderboardEntry records a full-game completion.
func (s *Store) CreateLeaderboardEntry(ctx context.Context, userID string, completionTime int, completedAt time.Time) (model.LeaderboardEntry, error) {
	if completionTime < 0 {
		return model.LeaderboardEntry{}, fmt.Errorf("%w: completion time must not be negative", model.ErrInvalidInput)
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return model.LeaderboardEntry{}, err
	}
	if completedAt.IsZero() {
		completedAt = s.now()
	}
	entry := model.LeaderboardEntry{
		ID:             s.ids(),
		UserID:         userID,
		Username:       user.Username,
		CompletionTime: completionTime,
		CompletedAt:    completedAt.UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO leaderboard (id, user_id, completion_time, completed_at) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.CompletionTime, formatTime(entry.CompletedAt),
	); err != nil {
		return model.LeaderboardEntry{}, unavailable("create leaderboard entry", err)
	}
	return entry, nil
}

// TopLeaderboard returns the fastest limit entries. Ties keep insertion order
// and share a rank.
func (s *Store) TopLeaderboard(ctx context.Context, limit int) ([]model.RankedEntry, error) {
	if limit <= 0 {
		return []model.RankedEntry{}, nil
	}
	rows, err := s.db.QueryContext(ctx, rankedSelect+` `+leaderboardOrder+` LIMIT ?`, limit)
	if err != nil {
		return nil, unavailable("list leaderboard", err)
	}
	defer closeRows(rows)

	entries := []model.RankedEntry{}
	for rows.Next() {
		entry, err := scanRanked(rows)
		if err != nil {
			return nil, unavailable("scan leaderboard entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list leaderboard", err)
	}
	return entries, nil
}

// BestForUser returns the player's fastest entry with its rank, or
// model.ErrNotFound when the player never escaped.
func (s *Store) BestForUser(ctx context.Context, userID string) (model.RankedEntry, error) {
	row := s.db.QueryRowContext(ctx, rankedSelect+` WHERE l.user_id = ? `+leaderboardOrder+` LIMIT 1`, userID)
	entry, err := scanRanked(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RankedEntry{}, fmt.Errorf("leaderboard entry for user %s: %w", userID, model.ErrNotFound)
	}
	if err != nil {
		return model.RankedEntry{}, unavailable("get best entry", err)
	}
	return entry, nil
}

// CountLeaderboard returns the number of recorded completions.
func (s *Store) CountLeaderboard(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leaderboard`).Scan(&n); err != nil {
		return 0, unavailable("count leaderboard", err)
	}
	return n, nil
}

func scanRanked(row scanner) (model.RankedEntry, error) {
	var entry model.RankedEntry
	var completedAt string
	if err := row.Scan(&entry.ID, &entry.UserID, &entry.Username, &entry.CompletionTime, &completedAt, &entry.Rank); err != nil {
		return model.RankedEntry{}, err
	}
	var err error
	if entry.CompletedAt, err = parseTime(completedAt); err != nil {
		return model.RankedEntry{}, err
	}
	return entry, nil
}

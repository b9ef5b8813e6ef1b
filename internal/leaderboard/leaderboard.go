// Package leaderboard records completion times and ranks players.
//
// Rank is derived at read time: one plus the number of entries with a strictly
// smaller completion time. Entries with equal times share a rank and are listed
// in insertion order.
package leaderboard

import (
	"context"
	"time"

	"github.com/verte-zerg/escaperoom/internal/model"
)

// Board records completions and answers ranking queries.
type Board interface {
	RecordCompletion(ctx context.Context, userID string, seconds int, at time.Time) (model.LeaderboardEntry, error)
	Top(ctx context.Context, n int) ([]model.RankedEntry, error)
	RankOf(ctx context.Context, userID string) (model.RankedEntry, error)
}

// Store is the persistence the SQL board runs on.
type Store interface {
	CreateLeaderboardEntry(ctx context.Context, userID string, completionTime int, completedAt time.Time) (model.LeaderboardEntry, error)
	TopLeaderboard(ctx context.Context, limit int) ([]model.RankedEntry, error)
	BestForUser(ctx context.Context, userID string) (model.RankedEntry, error)
	CountLeaderboard(ctx context.Context) (int, error)
}

// SQL is a Board over the relational store. Each query is a single statement,
// so a rank is computed from one consistent snapshot.
type SQL struct {
	store Store
}

// NewSQL returns a Board backed by store.
func NewSQL(store Store) *SQL {
	return &SQL{store: store}
}

// RecordCompletion appends a completion entry.
func (b *SQL) RecordCompletion(ctx context.Context, userID string, seconds int, at time.Time) (model.LeaderboardEntry, error) {
	return b.store.CreateLeaderboardEntry(ctx, userID, seconds, at)
}

// Top returns the n fastest entries.
func (b *SQL) Top(ctx context.Context, n int) ([]model.RankedEntry, error) {
	return b.store.TopLeaderboard(ctx, n)
}

// RankOf returns the player's best entry and its rank.
func (b *SQL) RankOf(ctx context.Context, userID string) (model.RankedEntry, error) {
	return b.store.BestForUser(ctx, userID)
}

// Count returns the number of recorded entries.
func (b *SQL) Count(ctx context.Context) (int, error) {
	return b.store.CountLeaderboard(ctx)
}

// rankSorted assigns ranks to entries sorted by completion time from the
// global minimum: every strictly faster entry precedes an entry.
func rankSorted(entries []model.LeaderboardEntry) []model.RankedEntry {
	ranked := make([]model.RankedEntry, len(entries))
	for i, e := range entries {
		rank := i + 1
		if i > 0 && e.CompletionTime == entries[i-1].CompletionTime {
			rank = ranked[i-1].Rank
		}
		ranked[i] = model.RankedEntry{LeaderboardEntry: e, Rank: rank}
	}
	return ranked
}

package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/escaperoom/internal/model"
)

// Mirror is a secondary copy of the leaderboard used for fast reads.
type Mirror interface {
	Add(ctx context.Context, entry model.LeaderboardEntry) error
	Top(ctx context.Context, n int) ([]model.RankedEntry, error)
	RankOf(ctx context.Context, userID string) (model.RankedEntry, error)
	Count(ctx context.Context) (int, error)
	Replace(ctx context.Context, entries []model.LeaderboardEntry) error
}

// Primary is the authoritative board a mirror copies.
type Primary interface {
	Board
	Count(ctx context.Context) (int, error)
}

// Mirrored writes to the primary board and then, best-effort, to the mirror.
// Reads are served by the mirror only while it holds as many entries as the
// primary; otherwise, or when the mirror fails, they go to the primary.
type Mirrored struct {
	primary Primary
	mirror  Mirror
	log     *zap.Logger
}

// NewMirrored combines primary and mirror. A nil logger discards output.
func NewMirrored(primary Primary, mirror Mirror, log *zap.Logger) *Mirrored {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirrored{primary: primary, mirror: mirror, log: log}
}

// Sync rebuilds the mirror from the primary when their entry counts differ.
func (b *Mirrored) Sync(ctx context.Context) error {
	want, err := b.primary.Count(ctx)
	if err != nil {
		return err
	}
	have, err := b.mirror.Count(ctx)
	if err == nil && have == want {
		return nil
	}
	ranked, err := b.primary.Top(ctx, want)
	if err != nil {
		return err
	}
	entries := make([]model.LeaderboardEntry, len(ranked))
	for i, r := range ranked {
		entries[i] = r.LeaderboardEntry
	}
	if err := b.mirror.Replace(ctx, entries); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard mirror: %w", err)
	}
	b.log.Info("leaderboard mirror rebuilt", zap.Int("entries", len(entries)), zap.Int("previous", have))
	return nil
}

// RecordCompletion writes the primary and mirrors the resulting entry.
func (b *Mirrored) RecordCompletion(ctx context.Context, userID string, seconds int, at time.Time) (model.LeaderboardEntry, error) {
	entry, err := b.primary.RecordCompletion(ctx, userID, seconds, at)
	if err != nil {
		return model.LeaderboardEntry{}, err
	}
	if err := b.mirror.Add(ctx, entry); err != nil {
		b.log.Warn("leaderboard mirror write failed", zap.String("entry_id", entry.ID), zap.Error(err))
	}
	return entry, nil
}

// Top reads the mirror when it is current, else the primary.
func (b *Mirrored) Top(ctx context.Context, n int) ([]model.RankedEntry, error) {
	if !b.mirrorCurrent(ctx) {
		return b.primary.Top(ctx, n)
	}
	entries, err := b.mirror.Top(ctx, n)
	if err == nil {
		return entries, nil
	}
	b.log.Warn("leaderboard mirror read failed", zap.Error(err))
	return b.primary.Top(ctx, n)
}

// RankOf reads the mirror when it is current, else the primary.
func (b *Mirrored) RankOf(ctx context.Context, userID string) (model.RankedEntry, error) {
	if !b.mirrorCurrent(ctx) {
		return b.primary.RankOf(ctx, userID)
	}
	entry, err := b.mirror.RankOf(ctx, userID)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		b.log.Warn("leaderboard mirror rank failed", zap.String("user_id", userID), zap.Error(err))
	}
	return b.primary.RankOf(ctx, userID)
}

func (b *Mirrored) mirrorCurrent(ctx context.Context) bool {
	have, err := b.mirror.Count(ctx)
	if err != nil {
		b.log.Warn("leaderboard mirror count failed", zap.Error(err))
		return false
	}
	want, err := b.primary.Count(ctx)
	if err != nil {
		return false
	}
	if have != want {
		b.log.Debug("leaderboard mirror out of sync", zap.Int("mirror", have), zap.Int("primary", want))
		return false
	}
	return true
}

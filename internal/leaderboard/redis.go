package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verte-zerg/escaperoom/internal/model"
)

// Redis keys.
const (
	entriesKey    = "escaperoom:leaderboard"
	entryDataKey  = "escaperoom:leaderboard:entry"
	seqKey        = "escaperoom:leaderboard:seq"
	userKeyPrefix = "escaperoom:leaderboard:user:"
)

// Redis mirrors leaderboard entries in sorted sets scored by completion time.
// Members are "<completed at nanos>:<sequence>:<entry id>", zero padded, so
// equal scores list by completion instant and then insertion order.
type Redis struct {
	client *redis.Client
}

// NewRedis returns a mirror over client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Ping checks that the server answers.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Add mirrors one entry.
func (r *Redis) Add(ctx context.Context, entry model.LeaderboardEntry) error {
	seq, err := r.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate leaderboard sequence: %w", err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard entry: %w", err)
	}
	member := encodeMember(entry.CompletedAt, seq, entry.ID)
	z := redis.Z{Score: float64(entry.CompletionTime), Member: member}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, entryDataKey, member, data)
		pipe.ZAdd(ctx, entriesKey, z)
		pipe.ZAdd(ctx, userKeyPrefix+entry.UserID, z)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mirror leaderboard entry: %w", err)
	}
	return nil
}

// Count returns the number of mirrored entries.
func (r *Redis) Count(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, entriesKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count leaderboard mirror: %w", err)
	}
	return int(n), nil
}

// Replace drops every mirrored entry and mirrors entries in order.
func (r *Redis) Replace(ctx context.Context, entries []model.LeaderboardEntry) error {
	keys := []string{entriesKey, entryDataKey, seqKey}
	iter := r.client.Scan(ctx, 0, userKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan leaderboard mirror: %w", err)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear leaderboard mirror: %w", err)
	}
	for _, entry := range entries {
		if err := r.Add(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// Top returns the n fastest mirrored entries.
func (r *Redis) Top(ctx context.Context, n int) ([]model.RankedEntry, error) {
	if n <= 0 {
		return []model.RankedEntry{}, nil
	}
	members, err := r.client.ZRange(ctx, entriesKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	entries, err := r.load(ctx, members)
	if err != nil {
		return nil, err
	}
	return rankSorted(entries), nil
}

// RankOf returns the player's best mirrored entry and its rank.
func (r *Redis) RankOf(ctx context.Context, userID string) (model.RankedEntry, error) {
	best, err := r.client.ZRangeWithScores(ctx, userKeyPrefix+userID, 0, 0).Result()
	if err != nil {
		return model.RankedEntry{}, fmt.Errorf("failed to read player best: %w", err)
	}
	if len(best) == 0 {
		return model.RankedEntry{}, fmt.Errorf("leaderboard entry for user %s: %w", userID, model.ErrNotFound)
	}
	member, ok := best[0].Member.(string)
	if !ok {
		return model.RankedEntry{}, fmt.Errorf("unexpected leaderboard member %v", best[0].Member)
	}
	faster, err := r.client.ZCount(ctx, entriesKey, "-inf", "("+strconv.FormatFloat(best[0].Score, 'f', -1, 64)).Result()
	if err != nil {
		return model.RankedEntry{}, fmt.Errorf("failed to count faster entries: %w", err)
	}
	entries, err := r.load(ctx, []string{member})
	if err != nil {
		return model.RankedEntry{}, err
	}
	return model.RankedEntry{LeaderboardEntry: entries[0], Rank: int(faster) + 1}, nil
}

func (r *Redis) load(ctx context.Context, members []string) ([]model.LeaderboardEntry, error) {
	if len(members) == 0 {
		return []model.LeaderboardEntry{}, nil
	}
	values, err := r.client.HMGet(ctx, entryDataKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard entries: %w", err)
	}
	entries := make([]model.LeaderboardEntry, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("leaderboard entry %s missing from mirror", members[i])
		}
		var entry model.LeaderboardEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func encodeMember(completedAt time.Time, seq int64, id string) string {
	var nanos int64
	if completedAt.After(time.Unix(0, 0)) {
		nanos = completedAt.UnixNano()
	}
	return fmt.Sprintf("%020d:%020d:%s", nanos, seq, id)
}

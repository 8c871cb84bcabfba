// Package redisboard mirrors guild rating leaderboards into Redis sorted
// sets so rank queries skip PostgreSQL. The mirror is advisory: the
// users table remains the source of truth and rebuilds the set on demand.
package redisboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/config"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/observability"
)

// Entry is one leaderboard row read back from the mirror.
type Entry struct {
	MemberID int64
	Rating   int
	// Rank is 1-based.
	Rank int
}

// Mirror maintains one sorted set per guild keyed by member id with the
// member's rating as score.
type Mirror struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
//
// Precondition: cfg.Addr must be reachable; logger must be non-nil.
// Postcondition: Returns a connected Mirror or a non-nil error.
func New(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Mirror{client: client, logger: logger}, nil
}

// Close releases the Redis connection.
func (m *Mirror) Close() error {
	return m.client.Close()
}

// guildKey returns the sorted-set key for a guild's rating board.
func guildKey(guildID int64) string {
	return fmt.Sprintf("grail:leaderboard:%d", guildID)
}

// SetRating records a member's current rating in the guild's set.
func (m *Mirror) SetRating(ctx context.Context, guildID, memberID int64, rating int) error {
	err := m.client.ZAdd(ctx, guildKey(guildID), redis.Z{
		Score:  float64(rating),
		Member: strconv.FormatInt(memberID, 10),
	}).Err()
	if err != nil {
		return fmt.Errorf("setting rating: %w", err)
	}
	return nil
}

// Top returns the guild's highest-rated members, best first.
//
// Postcondition: Returns at most limit entries with 1-based ranks.
func (m *Mirror) Top(ctx context.Context, guildID int64, limit int) ([]Entry, error) {
	zs, err := m.client.ZRevRangeWithScores(ctx, guildKey(guildID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(zs))
	for i, z := range zs {
		memberID, err := strconv.ParseInt(fmt.Sprint(z.Member), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing member id %v: %w", z.Member, err)
		}
		entries = append(entries, Entry{
			MemberID: memberID,
			Rating:   int(z.Score),
			Rank:     i + 1,
		})
	}
	return entries, nil
}

// Rank reports a member's 1-based position in the guild's board, or 0
// when the member is not in the set.
func (m *Mirror) Rank(ctx context.Context, guildID, memberID int64) (int, error) {
	rank, err := m.client.ZRevRank(ctx, guildKey(guildID), strconv.FormatInt(memberID, 10)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("reading member rank: %w", err)
	}
	return int(rank) + 1, nil
}

// Remove drops a member from the guild's board.
func (m *Mirror) Remove(ctx context.Context, guildID, memberID int64) error {
	err := m.client.ZRem(ctx, guildKey(guildID), strconv.FormatInt(memberID, 10)).Err()
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	return nil
}

// Rebuild replaces the guild's set with the given (member, rating) pairs,
// used to resync after the mirror has drifted or been flushed.
func (m *Mirror) Rebuild(ctx context.Context, guildID int64, ratings map[int64]int) error {
	key := guildKey(guildID)
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, key)
	for memberID, rating := range ratings {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(rating),
			Member: strconv.FormatInt(memberID, 10),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuilding leaderboard: %w", err)
	}
	m.logger.Debug("leaderboard rebuilt",
		observability.GuildID(guildID),
		zap.Int("members", len(ratings)),
	)
	return nil
}

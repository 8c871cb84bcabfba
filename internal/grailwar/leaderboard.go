package grailwar

import (
	"context"

	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/observability"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
)

// LeaderboardService serves guild rating boards, preferring the Redis
// mirror and falling back to PostgreSQL when the mirror is absent, empty,
// or failing.
type LeaderboardService struct {
	members MemberStore
	mirror  RatingMirror // may be nil
	logger  *zap.Logger
}

// NewLeaderboardService wires a LeaderboardService. mirror may be nil.
func NewLeaderboardService(members MemberStore, mirror RatingMirror, logger *zap.Logger) *LeaderboardService {
	return &LeaderboardService{members: members, mirror: mirror, logger: logger}
}

// Top returns the guild's best-rated members. A cold or broken mirror is
// resynced from the users table and never fails the query.
func (s *LeaderboardService) Top(ctx context.Context, guildID int64, limit int) ([]postgres.RatingEntry, error) {
	if s.mirror != nil {
		entries, err := s.mirror.Top(ctx, guildID, limit)
		if err != nil {
			s.logger.Warn("leaderboard mirror read failed, falling back",
				observability.GuildID(guildID), zap.Error(err))
		} else if len(entries) > 0 {
			out := make([]postgres.RatingEntry, 0, len(entries))
			for _, e := range entries {
				out = append(out, postgres.RatingEntry{MemberID: e.MemberID, Rating: e.Rating})
			}
			return out, nil
		}
	}

	entries, err := s.members.TopByRating(ctx, guildID, limit)
	if err != nil {
		return nil, err
	}
	s.resync(ctx, guildID, entries)
	return entries, nil
}

// Census summarizes the guild's player base.
func (s *LeaderboardService) Census(ctx context.Context, guildID int64) (*postgres.GuildCensus, error) {
	return s.members.Census(ctx, guildID)
}

// resync pushes the authoritative ratings into the mirror so the next
// read is served from Redis.
func (s *LeaderboardService) resync(ctx context.Context, guildID int64, entries []postgres.RatingEntry) {
	if s.mirror == nil || len(entries) == 0 {
		return
	}
	ratings := make(map[int64]int, len(entries))
	for _, e := range entries {
		ratings[e.MemberID] = e.Rating
	}
	if err := s.mirror.Rebuild(ctx, guildID, ratings); err != nil {
		s.logger.Warn("leaderboard mirror resync failed",
			observability.GuildID(guildID), zap.Error(err))
	}
}

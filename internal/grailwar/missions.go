package grailwar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/observability"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
)

// Mission type tags matched against the daily_missions catalog.
const (
	MissionBattle    = "battle"
	MissionSummon    = "summon"
	MissionLevelUp   = "level_up"
	MissionWinStreak = "win_streak"
	MissionUseItem   = "use_item"
)

// MissionClaim is the reward paid out for a claimed mission.
type MissionClaim struct {
	Mission postgres.Mission
	Quartz  int
	Tickets int
}

// MissionService exposes the daily mission board.
type MissionService struct {
	missions MissionStore
	members  MemberStore
	logger   *zap.Logger

	clock func() time.Time
}

// NewMissionService wires a MissionService.
func NewMissionService(missions MissionStore, members MemberStore, logger *zap.Logger) *MissionService {
	return &MissionService{
		missions: missions,
		members:  members,
		logger:   logger,
		clock:    time.Now,
	}
}

// Board returns the member's mission progress for today, creating today's
// zero rows on first view.
func (s *MissionService) Board(ctx context.Context, guildID, memberID int64) ([]postgres.MissionProgress, error) {
	member, err := s.members.GetOrCreate(ctx, memberID, guildID)
	if err != nil {
		return nil, err
	}
	if !member.IsRegistered {
		return nil, ErrNotRegistered
	}

	now := s.clock()
	if err := s.missions.EnsureDailyProgress(ctx, memberID, guildID, now); err != nil {
		return nil, err
	}
	return s.missions.ListProgress(ctx, memberID, guildID, now)
}

// Claim pays out a completed mission exactly once.
//
// Postcondition: On success the rewards are credited; a repeat claim
// returns postgres.ErrMissionNotClaimable.
func (s *MissionService) Claim(ctx context.Context, guildID, memberID, missionID int64) (*MissionClaim, error) {
	mission, err := s.missions.Claim(ctx, memberID, guildID, missionID, s.clock())
	if err != nil {
		return nil, err
	}
	if _, err := s.members.AdjustBalance(ctx, memberID, guildID, mission.QuartzReward, mission.TicketReward); err != nil {
		return nil, err
	}

	s.logger.Info("mission claimed",
		observability.GuildID(guildID),
		observability.MemberID(memberID),
		zap.Int64("mission_id", missionID),
		zap.Int("quartz", mission.QuartzReward),
		zap.Int("tickets", mission.TicketReward),
	)

	return &MissionClaim{
		Mission: *mission,
		Quartz:  mission.QuartzReward,
		Tickets: mission.TicketReward,
	}, nil
}

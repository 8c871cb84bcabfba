package grailwar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/battle"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/challenge"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/rng"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/servant"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/observability"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
)

// BattleTypeRanked is the battle_type tag for ordinary ranked duels.
const BattleTypeRanked = "ranked"

// BattleOutcome is everything a handler needs to report a finished duel.
type BattleOutcome struct {
	BattleID      int64
	WinnerID      int64
	LoserID       int64
	WinnerServant servant.StatBlock
	LoserServant  servant.StatBlock
	Transcript    string
	RatingDelta   int
	Experience    int
	// LevelsGained is how many levels the winning servant climbed from
	// the experience award.
	LevelsGained int
	TimedOut     bool
}

// BattleService drives the challenge flow and resolves accepted duels.
type BattleService struct {
	challenges *challenge.Manager
	members    MemberStore
	servants   ServantStore
	equipment  EquipmentStore
	battles    BattleStore
	cooldowns  CooldownStore
	missions   MissionStore
	mirror     RatingMirror // may be nil
	src        rng.Source
	logger     *zap.Logger

	battleCooldown time.Duration
	clock          func() time.Time
}

// NewBattleService wires a BattleService. mirror may be nil when the
// Redis leaderboard is disabled.
func NewBattleService(challenges *challenge.Manager, members MemberStore, servants ServantStore, equipment EquipmentStore, battles BattleStore, cooldowns CooldownStore, missions MissionStore, mirror RatingMirror, src rng.Source, battleCooldown time.Duration, logger *zap.Logger) *BattleService {
	return &BattleService{
		challenges:     challenges,
		members:        members,
		servants:       servants,
		equipment:      equipment,
		battles:        battles,
		cooldowns:      cooldowns,
		missions:       missions,
		mirror:         mirror,
		src:            src,
		logger:         logger,
		battleCooldown: battleCooldown,
		clock:          time.Now,
	}
}

// Challenge validates and opens a new duel proposal.
//
// Precondition: both members exist; the challenger must be registered,
// off battle cooldown, and own the nominated servant.
func (s *BattleService) Challenge(ctx context.Context, guildID, challengerID, opponentID, servantID int64) (challenge.Challenge, error) {
	if challengerID == opponentID {
		return challenge.Challenge{}, ErrSelfChallenge
	}

	challenger, err := s.members.Get(ctx, challengerID, guildID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	opponent, err := s.members.Get(ctx, opponentID, guildID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if !challenger.IsRegistered || !opponent.IsRegistered {
		return challenge.Challenge{}, ErrNotRegistered
	}

	if err := s.checkBattleCooldown(ctx, challengerID, guildID); err != nil {
		return challenge.Challenge{}, err
	}

	nominated, err := s.servants.Get(ctx, servantID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if nominated.MemberID != challengerID || nominated.GuildID != guildID {
		return challenge.Challenge{}, ErrNotOwner
	}

	return s.challenges.Propose(guildID, challengerID, opponentID, servantID), nil
}

// Accept moves the challenge to servant selection. The cooldown check at
// accept time runs against the challenger, matching the long-standing
// behavior this system shipped with.
func (s *BattleService) Accept(ctx context.Context, challengeID uuid.UUID, memberID int64) (challenge.Challenge, error) {
	c, err := s.challenges.Get(challengeID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if err := s.checkBattleCooldown(ctx, c.ChallengerID, c.GuildID); err != nil {
		return challenge.Challenge{}, err
	}
	return s.challenges.Accept(challengeID, memberID)
}

// Decline turns the challenge down on behalf of either participant.
func (s *BattleService) Decline(ctx context.Context, challengeID uuid.UUID, memberID int64) (challenge.Challenge, error) {
	return s.challenges.Decline(challengeID, memberID)
}

// SelectServant records the opponent's pick and fights the duel to
// completion.
//
// Postcondition: On success the battle record is completed, ratings and
// streaks moved, both servants' counters bumped, the winner's servant
// granted experience, both participants put on battle cooldown, and the
// winner's battle mission progress advanced.
func (s *BattleService) SelectServant(ctx context.Context, challengeID uuid.UUID, memberID, servantID int64) (*BattleOutcome, error) {
	pick, err := s.servants.Get(ctx, servantID)
	if err != nil {
		return nil, err
	}
	c, err := s.challenges.Get(challengeID)
	if err != nil {
		return nil, err
	}
	if pick.MemberID != memberID || pick.GuildID != c.GuildID {
		return nil, ErrNotOwner
	}

	c, err = s.challenges.ChooseServant(challengeID, memberID, servantID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, c)
}

func (s *BattleService) resolve(ctx context.Context, c challenge.Challenge) (*BattleOutcome, error) {
	record, err := s.battles.Create(ctx, c.GuildID, c.ChallengerID, c.OpponentID,
		c.ChallengerServantID, c.OpponentServantID, BattleTypeRanked)
	if err != nil {
		return nil, err
	}

	challengerBlock, challengerServant, err := s.resolveStats(ctx, c.ChallengerServantID)
	if err != nil {
		return nil, err
	}
	opponentBlock, opponentServant, err := s.resolveStats(ctx, c.OpponentServantID)
	if err != nil {
		return nil, err
	}

	result := battle.Simulate(challengerBlock, opponentBlock, s.src)

	winnerID, loserID := c.ChallengerID, c.OpponentID
	winnerServant, loserServant := challengerServant, opponentServant
	if result.Winner.Stats.ServantID == opponentServant.ID {
		winnerID, loserID = c.OpponentID, c.ChallengerID
		winnerServant, loserServant = opponentServant, challengerServant
	}

	winnerMember, err := s.members.Get(ctx, winnerID, c.GuildID)
	if err != nil {
		return nil, err
	}
	loserMember, err := s.members.Get(ctx, loserID, c.GuildID)
	if err != nil {
		return nil, err
	}

	delta := battle.RatingDelta(winnerMember.Rating, loserMember.Rating)
	award := battle.ExperienceAward(loserServant.Level)

	if err := s.battles.Complete(ctx, record.ID, winnerID, result.Transcript, delta, award); err != nil {
		return nil, err
	}
	if err := s.members.ApplyBattleOutcome(ctx, c.GuildID, winnerID, loserID, delta); err != nil {
		return nil, err
	}
	if err := s.servants.RecordBattle(ctx, winnerServant.ID, true); err != nil {
		return nil, err
	}
	if err := s.servants.RecordBattle(ctx, loserServant.ID, false); err != nil {
		return nil, err
	}

	levelBefore := winnerServant.Level
	winnerServant.AddExperience(award)
	if err := s.servants.SaveProgress(ctx, winnerServant); err != nil {
		return nil, err
	}

	now := s.clock()
	expiry := now.Add(s.battleCooldown)
	if err := s.cooldowns.Set(ctx, winnerID, c.GuildID, postgres.ActionBattle, expiry); err != nil {
		return nil, err
	}
	if err := s.cooldowns.Set(ctx, loserID, c.GuildID, postgres.ActionBattle, expiry); err != nil {
		return nil, err
	}

	s.advanceMission(ctx, winnerID, c.GuildID, MissionBattle, now)
	s.advanceMission(ctx, winnerID, c.GuildID, MissionWinStreak, now)
	s.breakWinStreak(ctx, loserID, c.GuildID, now)
	if winnerServant.Level > levelBefore {
		s.advanceMission(ctx, winnerID, c.GuildID, MissionLevelUp, now)
	}

	s.mirrorRatings(ctx, c.GuildID, winnerID, loserID, delta, winnerMember.Rating, loserMember.Rating)

	s.logger.Info("battle resolved",
		observability.GuildID(c.GuildID),
		observability.BattleID(record.ID),
		zap.Int64("winner_id", winnerID),
		zap.Int64("loser_id", loserID),
		zap.Int("rating_delta", delta),
		zap.Int("experience", award),
		zap.Bool("timed_out", result.TimedOut),
	)

	return &BattleOutcome{
		BattleID:      record.ID,
		WinnerID:      winnerID,
		LoserID:       loserID,
		WinnerServant: result.Winner.Stats,
		LoserServant:  result.Loser.Stats,
		Transcript:    result.Transcript,
		RatingDelta:   delta,
		Experience:    award,
		LevelsGained:  winnerServant.Level - levelBefore,
		TimedOut:      result.TimedOut,
	}, nil
}

// History returns the member's recent completed battles.
func (s *BattleService) History(ctx context.Context, guildID, memberID int64, limit int) ([]*postgres.Battle, error) {
	return s.battles.HistoryByMember(ctx, guildID, memberID, limit)
}

func (s *BattleService) resolveStats(ctx context.Context, servantID int64) (servant.StatBlock, *servant.Servant, error) {
	sv, err := s.servants.Get(ctx, servantID)
	if err != nil {
		return servant.StatBlock{}, nil, err
	}
	bonuses, err := s.equipment.Bonuses(ctx, servantID)
	if err != nil {
		return servant.StatBlock{}, nil, err
	}
	return sv.Resolve(bonuses), sv, nil
}

func (s *BattleService) checkBattleCooldown(ctx context.Context, memberID, guildID int64) error {
	until, err := s.cooldowns.ActiveUntil(ctx, memberID, guildID, postgres.ActionBattle)
	if err != nil {
		return err
	}
	if until != nil {
		return &CooldownError{Action: postgres.ActionBattle, Until: *until}
	}
	return nil
}

func (s *BattleService) advanceMission(ctx context.Context, memberID, guildID int64, missionType string, now time.Time) {
	if err := s.missions.IncrementProgress(ctx, memberID, guildID, missionType, 1, now); err != nil {
		s.logger.Warn("advancing mission failed",
			observability.MemberID(memberID),
			zap.String("mission_type", missionType),
			zap.Error(err))
	}
}

// A loss breaks the "battles in a row" run, so the streak mission
// counter starts over.
func (s *BattleService) breakWinStreak(ctx context.Context, memberID, guildID int64, now time.Time) {
	if err := s.missions.ResetProgress(ctx, memberID, guildID, MissionWinStreak, now); err != nil {
		s.logger.Warn("resetting win-streak mission failed",
			observability.MemberID(memberID),
			zap.Error(err))
	}
}

func (s *BattleService) mirrorRatings(ctx context.Context, guildID, winnerID, loserID int64, delta, winnerRating, loserRating int) {
	if s.mirror == nil {
		return
	}
	loserAfter := loserRating - delta
	if loserAfter < 0 {
		loserAfter = 0
	}
	if err := s.mirror.SetRating(ctx, guildID, winnerID, winnerRating+delta); err != nil {
		s.logger.Warn("mirroring winner rating failed", zap.Error(err))
	}
	if err := s.mirror.SetRating(ctx, guildID, loserID, loserAfter); err != nil {
		s.logger.Warn("mirroring loser rating failed", zap.Error(err))
	}
}

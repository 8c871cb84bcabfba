package grailwar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/economy"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/rng"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/roster"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/servant"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/observability"
)

// SummonResult is the outcome of one gacha pull.
type SummonResult struct {
	Servant *servant.Servant
	Payment economy.Payment
	// QuartzRemaining and TicketsRemaining are the balances after payment.
	QuartzRemaining  int
	TicketsRemaining int
}

// SummonService runs the gacha: payment, rarity roll, servant creation.
type SummonService struct {
	guilds   GuildStore
	members  MemberStore
	servants ServantStore
	missions MissionStore
	roster   *roster.Roster
	src      rng.Source
	logger   *zap.Logger

	defaultMaxSummons int
	clock             func() time.Time
}

// NewSummonService wires a SummonService.
//
// Precondition: all stores, the roster, src, and logger must be non-nil.
func NewSummonService(guilds GuildStore, members MemberStore, servants ServantStore, missions MissionStore, ros *roster.Roster, src rng.Source, defaultMaxSummons int, logger *zap.Logger) *SummonService {
	return &SummonService{
		guilds:            guilds,
		members:           members,
		servants:          servants,
		missions:          missions,
		roster:            ros,
		src:               src,
		logger:            logger,
		defaultMaxSummons: defaultMaxSummons,
		clock:             time.Now,
	}
}

// Summon performs one pull for the member: verifies registration and the
// guild's slot limit, consumes a ticket (or 30 quartz), rolls a rank,
// and stores the new servant.
//
// Postcondition: On success the servant row exists, the payment is
// deducted, the lifetime summon counter is bumped, and summon mission
// progress advanced.
func (s *SummonService) Summon(ctx context.Context, guildID, memberID int64) (*SummonResult, error) {
	member, err := s.members.GetOrCreate(ctx, memberID, guildID)
	if err != nil {
		return nil, err
	}
	if !member.IsRegistered {
		return nil, ErrNotRegistered
	}

	guild, err := s.guilds.GetOrCreate(ctx, guildID, s.defaultMaxSummons)
	if err != nil {
		return nil, err
	}
	held, err := s.servants.CountByMember(ctx, memberID, guildID)
	if err != nil {
		return nil, err
	}
	if held >= guild.MaxSummons {
		return nil, ErrServantLimit
	}

	payment, err := economy.SummonPayment(member.SaintQuartz, member.SummonTickets)
	if err != nil {
		return nil, err
	}
	quartzDelta, ticketDelta := 0, 0
	if payment == economy.PaymentTicket {
		ticketDelta = -1
	} else {
		quartzDelta = -economy.SummonQuartzCost
	}
	member, err = s.members.AdjustBalance(ctx, memberID, guildID, quartzDelta, ticketDelta)
	if err != nil {
		return nil, err
	}

	rank := roster.RollRank(s.src)
	def := s.roster.Random(rank, s.src)

	created, err := s.servants.Create(ctx, servant.New(def, memberID, guildID))
	if err != nil {
		return nil, err
	}
	if err := s.members.IncrementSummons(ctx, memberID, guildID); err != nil {
		return nil, err
	}
	if err := s.missions.IncrementProgress(ctx, memberID, guildID, MissionSummon, 1, s.clock()); err != nil {
		s.logger.Warn("advancing summon mission failed",
			observability.MemberID(memberID), zap.Error(err))
	}

	s.logger.Info("servant summoned",
		observability.GuildID(guildID),
		observability.MemberID(memberID),
		zap.String("servant", created.Name),
		zap.String("rank", string(created.Rank)),
		zap.String("payment", string(payment)),
	)

	return &SummonResult{
		Servant:          created,
		Payment:          payment,
		QuartzRemaining:  member.SaintQuartz,
		TicketsRemaining: member.SummonTickets,
	}, nil
}

// List returns the member's servants, favorites first.
func (s *SummonService) List(ctx context.Context, guildID, memberID int64) ([]*servant.Servant, error) {
	return s.servants.ListByMember(ctx, memberID, guildID)
}

// Dismiss releases one of the member's servants.
//
// Postcondition: Returns ErrNotOwner unless the servant belongs to the
// member in this guild.
func (s *SummonService) Dismiss(ctx context.Context, guildID, memberID, servantID int64) error {
	owned, err := s.servants.Get(ctx, servantID)
	if err != nil {
		return err
	}
	if owned.MemberID != memberID || owned.GuildID != guildID {
		return ErrNotOwner
	}
	return s.servants.Delete(ctx, servantID)
}

// ToggleFavorite flips the favorite flag on one of the member's servants.
func (s *SummonService) ToggleFavorite(ctx context.Context, guildID, memberID, servantID int64) (bool, error) {
	owned, err := s.servants.Get(ctx, servantID)
	if err != nil {
		return false, err
	}
	if owned.MemberID != memberID || owned.GuildID != guildID {
		return false, ErrNotOwner
	}
	if err := s.servants.SetFavorite(ctx, servantID, !owned.Favorite); err != nil {
		return false, err
	}
	return !owned.Favorite, nil
}

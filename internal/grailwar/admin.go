package grailwar

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/roster"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/servant"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/observability"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
)

// AdminService carries the moderator commands. Every mutation is written
// to the audit log.
type AdminService struct {
	guilds   GuildStore
	members  MemberStore
	servants ServantStore
	logs     AdminLogStore
	roster   *roster.Roster
	logger   *zap.Logger

	defaultMaxSummons int
}

// NewAdminService wires an AdminService.
func NewAdminService(guilds GuildStore, members MemberStore, servants ServantStore, logs AdminLogStore, ros *roster.Roster, defaultMaxSummons int, logger *zap.Logger) *AdminService {
	return &AdminService{
		guilds:            guilds,
		members:           members,
		servants:          servants,
		logs:              logs,
		roster:            ros,
		logger:            logger,
		defaultMaxSummons: defaultMaxSummons,
	}
}

// SetMaxSummons changes the guild's servant slot limit.
func (s *AdminService) SetMaxSummons(ctx context.Context, guildID, adminID int64, maxSummons int) error {
	if err := s.guilds.SetMaxSummons(ctx, guildID, maxSummons); err != nil {
		return err
	}
	return s.audit(ctx, guildID, adminID, "set_max_summons", nil,
		fmt.Sprintf("max summons set to %d", maxSummons))
}

// GiveCurrency credits (or with negative deltas, debits) a member.
func (s *AdminService) GiveCurrency(ctx context.Context, guildID, adminID, memberID int64, quartz, tickets int) (*postgres.Member, error) {
	if _, err := s.members.GetOrCreate(ctx, memberID, guildID); err != nil {
		return nil, err
	}
	member, err := s.members.AdjustBalance(ctx, memberID, guildID, quartz, tickets)
	if err != nil {
		return nil, err
	}
	err = s.audit(ctx, guildID, adminID, "give_currency", &memberID,
		fmt.Sprintf("granted %d quartz, %d tickets", quartz, tickets))
	if err != nil {
		return nil, err
	}
	return member, nil
}

// AssignServant grants a member a specific roster servant, bypassing the
// gacha. The name is matched case-insensitively within the rank.
func (s *AdminService) AssignServant(ctx context.Context, guildID, adminID, memberID int64, rank roster.Rank, name string) (*servant.Servant, error) {
	def, ok := s.roster.FindInRank(rank, name)
	if !ok {
		return nil, fmt.Errorf("no %s servant named %q in the roster", rank, name)
	}
	if _, err := s.members.GetOrCreate(ctx, memberID, guildID); err != nil {
		return nil, err
	}
	created, err := s.servants.Create(ctx, servant.New(def, memberID, guildID))
	if err != nil {
		return nil, err
	}
	err = s.audit(ctx, guildID, adminID, "assign_servant", &memberID,
		fmt.Sprintf("assigned %s (%s)", created.Name, created.Rank))
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RemoveServant deletes any servant in the guild, regardless of owner.
func (s *AdminService) RemoveServant(ctx context.Context, guildID, adminID, servantID int64) error {
	sv, err := s.servants.Get(ctx, servantID)
	if err != nil {
		return err
	}
	if sv.GuildID != guildID {
		return postgres.ErrServantNotFound
	}
	if err := s.servants.Delete(ctx, servantID); err != nil {
		return err
	}
	return s.audit(ctx, guildID, adminID, "remove_servant", &sv.MemberID,
		fmt.Sprintf("removed %s (#%d)", sv.Name, sv.ID))
}

// SetBattleForum stores the forum used for battle report threads.
func (s *AdminService) SetBattleForum(ctx context.Context, guildID, adminID, forumID int64) error {
	if _, err := s.guilds.GetOrCreate(ctx, guildID, s.defaultMaxSummons); err != nil {
		return err
	}
	if err := s.guilds.SetBattleForum(ctx, guildID, forumID); err != nil {
		return err
	}
	return s.audit(ctx, guildID, adminID, "set_battle_forum", nil,
		fmt.Sprintf("battle forum set to %d", forumID))
}

// SetRegistrationConfig stores the registration role/channel/message triple.
func (s *AdminService) SetRegistrationConfig(ctx context.Context, guildID, adminID, roleID, channelID, messageID int64) error {
	if _, err := s.guilds.GetOrCreate(ctx, guildID, s.defaultMaxSummons); err != nil {
		return err
	}
	if err := s.guilds.SetRegistrationConfig(ctx, guildID, roleID, channelID, messageID); err != nil {
		return err
	}
	return s.audit(ctx, guildID, adminID, "set_registration_config", nil,
		fmt.Sprintf("registration role %d, channel %d, message %d", roleID, channelID, messageID))
}

// Logs returns the guild's recent audit entries.
func (s *AdminService) Logs(ctx context.Context, guildID int64, limit int) ([]postgres.AdminLogEntry, error) {
	return s.logs.Recent(ctx, guildID, limit)
}

func (s *AdminService) audit(ctx context.Context, guildID, adminID int64, action string, target *int64, details string) error {
	if err := s.logs.Record(ctx, guildID, adminID, action, target, details); err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	s.logger.Info("admin action",
		observability.GuildID(guildID),
		zap.Int64("admin_id", adminID),
		zap.String("action", action),
	)
	return nil
}

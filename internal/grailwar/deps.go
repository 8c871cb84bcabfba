// Package grailwar orchestrates the game workflows: summoning, battles,
// the economy, missions, and moderation. Services validate commands,
// call the pure game packages for the rules, and persist outcomes
// through the storage layer.
package grailwar

import (
	"context"
	"time"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/servant"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/redisboard"
)

// The store interfaces mirror the storage repositories so services can be
// unit-tested against in-memory fakes. *postgres.<X>Repository satisfies
// each one.

// GuildStore persists per-guild settings.
type GuildStore interface {
	GetOrCreate(ctx context.Context, guildID int64, defaultMaxSummons int) (*postgres.Guild, error)
	Get(ctx context.Context, guildID int64) (*postgres.Guild, error)
	SetMaxSummons(ctx context.Context, guildID int64, maxSummons int) error
	SetRegistrationConfig(ctx context.Context, guildID, roleID, channelID, messageID int64) error
	SetBattleForum(ctx context.Context, guildID, forumID int64) error
}

// MemberStore persists member accounts and balances.
type MemberStore interface {
	GetOrCreate(ctx context.Context, memberID, guildID int64) (*postgres.Member, error)
	Get(ctx context.Context, memberID, guildID int64) (*postgres.Member, error)
	Register(ctx context.Context, memberID, guildID int64) (*postgres.Member, error)
	AdjustBalance(ctx context.Context, memberID, guildID int64, quartzDelta, ticketDelta int) (*postgres.Member, error)
	RecordDailyClaim(ctx context.Context, memberID, guildID int64, claimedAt time.Time, streak, longest int) error
	ApplyBattleOutcome(ctx context.Context, guildID, winnerID, loserID int64, ratingDelta int) error
	IncrementSummons(ctx context.Context, memberID, guildID int64) error
	TopByRating(ctx context.Context, guildID int64, limit int) ([]postgres.RatingEntry, error)
	Census(ctx context.Context, guildID int64) (*postgres.GuildCensus, error)
}

// ServantStore persists summoned servants.
type ServantStore interface {
	Create(ctx context.Context, s *servant.Servant) (*servant.Servant, error)
	ListByMember(ctx context.Context, memberID, guildID int64) ([]*servant.Servant, error)
	Get(ctx context.Context, id int64) (*servant.Servant, error)
	CountByMember(ctx context.Context, memberID, guildID int64) (int, error)
	Delete(ctx context.Context, id int64) error
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	SaveProgress(ctx context.Context, s *servant.Servant) error
	RecordBattle(ctx context.Context, id int64, won bool) error
}

// ItemStore reads the item catalog.
type ItemStore interface {
	Get(ctx context.Context, id int64) (*postgres.Item, error)
	GetByName(ctx context.Context, name string) (*postgres.Item, error)
	ListShop(ctx context.Context) ([]*postgres.Item, error)
}

// InventoryStore persists member item holdings.
type InventoryStore interface {
	Add(ctx context.Context, memberID, guildID, itemID int64, quantity int) error
	Remove(ctx context.Context, memberID, guildID, itemID int64, quantity int) error
	Quantity(ctx context.Context, memberID, guildID, itemID int64) (int, error)
	List(ctx context.Context, memberID, guildID int64) ([]postgres.InventoryEntry, error)
}

// EquipmentStore persists servant equipment links.
type EquipmentStore interface {
	Equip(ctx context.Context, servantID, itemID int64, slotType string) error
	Unequip(ctx context.Context, servantID int64, slotType string) error
	List(ctx context.Context, servantID int64) ([]postgres.EquippedItem, error)
	Bonuses(ctx context.Context, servantID int64) ([]servant.ItemBonus, error)
}

// BattleStore persists battle records.
type BattleStore interface {
	Create(ctx context.Context, guildID, challengerID, opponentID, challengerServantID, opponentServantID int64, battleType string) (*postgres.Battle, error)
	Get(ctx context.Context, id int64) (*postgres.Battle, error)
	Complete(ctx context.Context, id, winnerID int64, battleLog string, ratingChange, experienceGained int) error
	SetForumThread(ctx context.Context, id, threadID int64) error
	HistoryByMember(ctx context.Context, guildID, memberID int64, limit int) ([]*postgres.Battle, error)
}

// MissionStore persists daily mission progress.
type MissionStore interface {
	ListMissions(ctx context.Context) ([]postgres.Mission, error)
	EnsureDailyProgress(ctx context.Context, memberID, guildID int64, day time.Time) error
	ListProgress(ctx context.Context, memberID, guildID int64, day time.Time) ([]postgres.MissionProgress, error)
	IncrementProgress(ctx context.Context, memberID, guildID int64, missionType string, amount int, day time.Time) error
	ResetProgress(ctx context.Context, memberID, guildID int64, missionType string, day time.Time) error
	Claim(ctx context.Context, memberID, guildID, missionID int64, day time.Time) (*postgres.Mission, error)
}

// CooldownStore persists action cooldowns.
type CooldownStore interface {
	Set(ctx context.Context, memberID, guildID int64, actionType string, expiresAt time.Time) error
	ActiveUntil(ctx context.Context, memberID, guildID int64, actionType string) (*time.Time, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// AdminLogStore persists the moderator audit trail.
type AdminLogStore interface {
	Record(ctx context.Context, guildID, adminID int64, actionType string, targetMemberID *int64, details string) error
	Recent(ctx context.Context, guildID int64, limit int) ([]postgres.AdminLogEntry, error)
}

// RatingMirror is the optional Redis leaderboard mirror.
type RatingMirror interface {
	SetRating(ctx context.Context, guildID, memberID int64, rating int) error
	Top(ctx context.Context, guildID int64, limit int) ([]redisboard.Entry, error)
	Rank(ctx context.Context, guildID, memberID int64) (int, error)
	Remove(ctx context.Context, guildID, memberID int64) error
	Rebuild(ctx context.Context, guildID int64, ratings map[int64]int) error
}

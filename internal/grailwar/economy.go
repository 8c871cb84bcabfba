package grailwar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/economy"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/observability"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
)

// DailyResult is the payout of one daily claim.
type DailyResult struct {
	Claim   economy.DailyClaim
	Balance *postgres.Member
}

// Purchase is one completed shop transaction.
type Purchase struct {
	Item     postgres.Item
	Quantity int
	Cost     int
	Balance  *postgres.Member
}

// EconomyService handles registration, daily rewards, balances, and the
// item shop.
type EconomyService struct {
	members   MemberStore
	items     ItemStore
	inventory InventoryStore
	logger    *zap.Logger

	clock func() time.Time
}

// NewEconomyService wires an EconomyService.
func NewEconomyService(members MemberStore, items ItemStore, inventory InventoryStore, logger *zap.Logger) *EconomyService {
	return &EconomyService{
		members:   members,
		items:     items,
		inventory: inventory,
		logger:    logger,
		clock:     time.Now,
	}
}

// Register marks the member as registered, creating the account with its
// starting grants on first contact.
func (s *EconomyService) Register(ctx context.Context, guildID, memberID int64) (*postgres.Member, error) {
	return s.members.Register(ctx, memberID, guildID)
}

// Balance returns the member's account.
func (s *EconomyService) Balance(ctx context.Context, guildID, memberID int64) (*postgres.Member, error) {
	return s.members.GetOrCreate(ctx, memberID, guildID)
}

// Daily claims the daily reward, applying the streak rules.
//
// Postcondition: On success the quartz (and any bonus ticket) are
// credited and the claim timestamp and streak counters stored. A second
// claim on the same calendar date returns economy.ErrAlreadyClaimedToday.
func (s *EconomyService) Daily(ctx context.Context, guildID, memberID int64) (*DailyResult, error) {
	member, err := s.members.GetOrCreate(ctx, memberID, guildID)
	if err != nil {
		return nil, err
	}
	if !member.IsRegistered {
		return nil, ErrNotRegistered
	}

	now := s.clock()
	claim, err := economy.EvaluateDailyClaim(member.LastDailyClaim, member.CurrentStreak, member.LongestStreak, now)
	if err != nil {
		return nil, err
	}

	tickets := 0
	if claim.BonusTicket {
		tickets = 1
	}
	member, err = s.members.AdjustBalance(ctx, memberID, guildID, claim.Quartz, tickets)
	if err != nil {
		return nil, err
	}
	if err := s.members.RecordDailyClaim(ctx, memberID, guildID, now, claim.Streak, claim.LongestStreak); err != nil {
		return nil, err
	}

	s.logger.Info("daily reward claimed",
		observability.GuildID(guildID),
		observability.MemberID(memberID),
		zap.Int("streak", claim.Streak),
		zap.Int("quartz", claim.Quartz),
		zap.Bool("bonus_ticket", claim.BonusTicket),
	)

	return &DailyResult{Claim: claim, Balance: member}, nil
}

// Shop lists the purchasable catalog.
func (s *EconomyService) Shop(ctx context.Context) ([]*postgres.Item, error) {
	return s.items.ListShop(ctx)
}

// Buy purchases quantity copies of the named item with saint quartz.
//
// Postcondition: On success the cost is deducted and the items stacked
// into the member's inventory; an unaffordable purchase returns
// postgres.ErrInsufficientBalance untouched.
func (s *EconomyService) Buy(ctx context.Context, guildID, memberID int64, itemName string, quantity int) (*Purchase, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	member, err := s.members.GetOrCreate(ctx, memberID, guildID)
	if err != nil {
		return nil, err
	}
	if !member.IsRegistered {
		return nil, ErrNotRegistered
	}

	item, err := s.items.GetByName(ctx, itemName)
	if err != nil {
		return nil, err
	}
	if item.Price <= 0 {
		return nil, ErrUnknownItem
	}

	cost := item.Price * quantity
	member, err = s.members.AdjustBalance(ctx, memberID, guildID, -cost, 0)
	if err != nil {
		return nil, err
	}
	if err := s.inventory.Add(ctx, memberID, guildID, item.ID, quantity); err != nil {
		return nil, err
	}

	s.logger.Info("item purchased",
		observability.GuildID(guildID),
		observability.MemberID(memberID),
		zap.String("item", item.Name),
		zap.Int("quantity", quantity),
		zap.Int("cost", cost),
	)

	return &Purchase{Item: *item, Quantity: quantity, Cost: cost, Balance: member}, nil
}

// Inventory lists the member's held items.
func (s *EconomyService) Inventory(ctx context.Context, guildID, memberID int64) ([]postgres.InventoryEntry, error) {
	return s.inventory.List(ctx, memberID, guildID)
}

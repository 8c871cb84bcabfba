package grailwar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/servant"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/observability"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
)

// EquipmentService manages servant loadouts. Equipping does not consume
// the inventory copy; the item stays owned and merely links to a servant.
type EquipmentService struct {
	servants  ServantStore
	items     ItemStore
	inventory InventoryStore
	equipment EquipmentStore
	missions  MissionStore
	logger    *zap.Logger

	clock func() time.Time
}

// NewEquipmentService wires an EquipmentService.
func NewEquipmentService(servants ServantStore, items ItemStore, inventory InventoryStore, equipment EquipmentStore, missions MissionStore, logger *zap.Logger) *EquipmentService {
	return &EquipmentService{
		servants:  servants,
		items:     items,
		inventory: inventory,
		equipment: equipment,
		missions:  missions,
		logger:    logger,
		clock:     time.Now,
	}
}

// Equip links the named item to the member's servant, replacing whatever
// occupied the item's slot.
//
// Precondition: the member must own both the servant and at least one
// copy of the item; the item must grant a stat.
func (s *EquipmentService) Equip(ctx context.Context, guildID, memberID, servantID int64, itemName string) (*postgres.Item, error) {
	owned, err := s.servants.Get(ctx, servantID)
	if err != nil {
		return nil, err
	}
	if owned.MemberID != memberID || owned.GuildID != guildID {
		return nil, ErrNotOwner
	}

	item, err := s.items.GetByName(ctx, itemName)
	if err != nil {
		return nil, err
	}
	if item.StatType == "" {
		return nil, ErrNotEquippable
	}

	held, err := s.inventory.Quantity(ctx, memberID, guildID, item.ID)
	if err != nil {
		return nil, err
	}
	if held < 1 {
		return nil, postgres.ErrNotInInventory
	}

	// Slot by item type: a servant wears one weapon, one armor, etc.
	if err := s.equipment.Equip(ctx, servantID, item.ID, item.ItemType); err != nil {
		return nil, err
	}
	if err := s.missions.IncrementProgress(ctx, memberID, guildID, MissionUseItem, 1, s.clock()); err != nil {
		s.logger.Warn("advancing use_item mission failed",
			observability.MemberID(memberID), zap.Error(err))
	}

	s.logger.Info("item equipped",
		observability.GuildID(guildID),
		observability.ServantID(servantID),
		zap.String("item", item.Name),
		zap.String("slot", item.ItemType),
	)
	return item, nil
}

// Unequip clears the servant's slot.
//
// Postcondition: Returns postgres.ErrNothingEquipped when the slot was
// already empty.
func (s *EquipmentService) Unequip(ctx context.Context, guildID, memberID, servantID int64, slotType string) error {
	owned, err := s.servants.Get(ctx, servantID)
	if err != nil {
		return err
	}
	if owned.MemberID != memberID || owned.GuildID != guildID {
		return ErrNotOwner
	}
	return s.equipment.Unequip(ctx, servantID, slotType)
}

// Loadout returns everything the servant wears.
func (s *EquipmentService) Loadout(ctx context.Context, servantID int64) ([]postgres.EquippedItem, error) {
	return s.equipment.List(ctx, servantID)
}

// EffectiveStats resolves the servant's stat block with equipment applied.
func (s *EquipmentService) EffectiveStats(ctx context.Context, servantID int64) (servant.StatBlock, error) {
	sv, err := s.servants.Get(ctx, servantID)
	if err != nil {
		return servant.StatBlock{}, err
	}
	bonuses, err := s.equipment.Bonuses(ctx, servantID)
	if err != nil {
		return servant.StatBlock{}, err
	}
	return sv.Resolve(bonuses), nil
}

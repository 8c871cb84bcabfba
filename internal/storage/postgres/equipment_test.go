package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/roster"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/servant"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
)

type equipmentHarness struct {
	equipment *postgres.EquipmentRepository
	items     *postgres.ItemRepository
	servantID int64
}

func setupEquipmentRepos(t *testing.T) *equipmentHarness {
	t.Helper()
	members, guildID, pool := setupMemberRepos(t)
	ctx := context.Background()
	memberID := uniqueID()
	_, err := members.GetOrCreate(ctx, memberID, guildID)
	require.NoError(t, err)

	sv, err := postgres.NewServantRepository(pool).Create(ctx,
		makeTestServant(memberID, guildID, "Artoria Pendragon", roster.RankS))
	require.NoError(t, err)

	return &equipmentHarness{
		equipment: postgres.NewEquipmentRepository(pool),
		items:     postgres.NewItemRepository(pool),
		servantID: sv.ID,
	}
}

func (h *equipmentHarness) item(t *testing.T, name string) *postgres.Item {
	t.Helper()
	item, err := h.items.GetByName(context.Background(), name)
	require.NoError(t, err)
	return item
}

func TestEquipmentRepository_EquipReplacesSlot(t *testing.T) {
	h := setupEquipmentRepos(t)
	ctx := context.Background()

	first := h.item(t, "Simple Sword")
	second := h.item(t, "Excalibur Fragment")

	require.NoError(t, h.equipment.Equip(ctx, h.servantID, first.ID, "weapon"))
	require.NoError(t, h.equipment.Equip(ctx, h.servantID, second.ID, "weapon"))

	equipped, err := h.equipment.List(ctx, h.servantID)
	require.NoError(t, err)
	require.Len(t, equipped, 1)
	assert.Equal(t, "Excalibur Fragment", equipped[0].Item.Name)
	assert.Equal(t, "weapon", equipped[0].SlotType)
}

func TestEquipmentRepository_BonusesAcrossSlots(t *testing.T) {
	h := setupEquipmentRepos(t)
	ctx := context.Background()

	weapon := h.item(t, "Excalibur Fragment")
	armor := h.item(t, "Avalon Shard")

	require.NoError(t, h.equipment.Equip(ctx, h.servantID, weapon.ID, "weapon"))
	require.NoError(t, h.equipment.Equip(ctx, h.servantID, armor.ID, "armor"))

	bonuses, err := h.equipment.Bonuses(ctx, h.servantID)
	require.NoError(t, err)
	require.Len(t, bonuses, 2)

	byStat := make(map[string]int, len(bonuses))
	for _, b := range bonuses {
		byStat[b.StatType] = b.Value
	}
	assert.Equal(t, 50, byStat[servant.StatAttack])
	assert.Equal(t, 50, byStat[servant.StatDefense])
}

func TestEquipmentRepository_BonusesSkipStatlessItems(t *testing.T) {
	h := setupEquipmentRepos(t)
	ctx := context.Background()

	quartz := h.item(t, "Saint Quartz")
	require.NoError(t, h.equipment.Equip(ctx, h.servantID, quartz.ID, "currency"))

	bonuses, err := h.equipment.Bonuses(ctx, h.servantID)
	require.NoError(t, err)
	assert.Empty(t, bonuses)
}

func TestEquipmentRepository_UnequipEmptySlot(t *testing.T) {
	h := setupEquipmentRepos(t)
	ctx := context.Background()

	err := h.equipment.Unequip(ctx, h.servantID, "weapon")
	assert.ErrorIs(t, err, postgres.ErrNothingEquipped)

	weapon := h.item(t, "Simple Sword")
	require.NoError(t, h.equipment.Equip(ctx, h.servantID, weapon.ID, "weapon"))
	require.NoError(t, h.equipment.Unequip(ctx, h.servantID, "weapon"))

	equipped, err := h.equipment.List(ctx, h.servantID)
	require.NoError(t, err)
	assert.Empty(t, equipped)
}

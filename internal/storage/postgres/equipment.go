package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/servant"
)

// ErrNothingEquipped is returned when an unequip finds no link to remove.
var ErrNothingEquipped = errors.New("nothing equipped in that slot")

// EquippedItem is one item currently worn by a servant.
type EquippedItem struct {
	Item       Item
	SlotType   string
	EquippedAt time.Time
}

// EquipmentRepository manages servant equipment links. A servant holds at
// most one item per slot type.
type EquipmentRepository struct {
	db *pgxpool.Pool
}

// NewEquipmentRepository creates an EquipmentRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEquipmentRepository(db *pgxpool.Pool) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// Equip links the item into the servant's slot, replacing whatever was
// there. Replacement and insert run in one transaction so the
// single-item-per-slot invariant holds even under concurrent equips.
func (r *EquipmentRepository) Equip(ctx context.Context, servantID, itemID int64, slotType string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning equip transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM equipped_items WHERE servant_id = $1 AND slot_type = $2`,
		servantID, slotType); err != nil {
		return fmt.Errorf("clearing equipment slot: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO equipped_items (servant_id, item_id, slot_type) VALUES ($1, $2, $3)`,
		servantID, itemID, slotType); err != nil {
		return fmt.Errorf("inserting equipment link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing equip transaction: %w", err)
	}
	return nil
}

// Unequip removes the item in the servant's slot.
//
// Postcondition: Returns ErrNothingEquipped when the slot was empty.
func (r *EquipmentRepository) Unequip(ctx context.Context, servantID int64, slotType string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM equipped_items WHERE servant_id = $1 AND slot_type = $2`,
		servantID, slotType)
	if err != nil {
		return fmt.Errorf("unequipping item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNothingEquipped
	}
	return nil
}

// List returns everything the servant has equipped, ordered by slot.
func (r *EquipmentRepository) List(ctx context.Context, servantID int64) ([]EquippedItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.name, COALESCE(i.description, ''), i.item_type, i.rarity,
		       COALESCE(i.stat_type, ''), COALESCE(i.stat_value, 0), i.price, i.created_at,
		       e.slot_type, e.equipped_at
		FROM equipped_items e
		JOIN items i ON i.id = e.item_id
		WHERE e.servant_id = $1
		ORDER BY e.slot_type ASC`,
		servantID)
	if err != nil {
		return nil, fmt.Errorf("listing equipped items: %w", err)
	}
	defer rows.Close()

	equipped := make([]EquippedItem, 0)
	for rows.Next() {
		var e EquippedItem
		if err := rows.Scan(
			&e.Item.ID, &e.Item.Name, &e.Item.Description, &e.Item.ItemType, &e.Item.Rarity,
			&e.Item.StatType, &e.Item.StatValue, &e.Item.Price, &e.Item.CreatedAt,
			&e.SlotType, &e.EquippedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning equipped item row: %w", err)
		}
		equipped = append(equipped, e)
	}
	return equipped, rows.Err()
}

// Bonuses returns the servant's equipped stat bonuses in the shape the
// stat resolver consumes. Items without a stat type are skipped.
func (r *EquipmentRepository) Bonuses(ctx context.Context, servantID int64) ([]servant.ItemBonus, error) {
	rows, err := r.db.Query(ctx, `
		SELECT COALESCE(i.stat_type, ''), COALESCE(i.stat_value, 0)
		FROM equipped_items e
		JOIN items i ON i.id = e.item_id
		WHERE e.servant_id = $1 AND i.stat_type IS NOT NULL`,
		servantID)
	if err != nil {
		return nil, fmt.Errorf("querying equipment bonuses: %w", err)
	}
	defer rows.Close()

	bonuses := make([]servant.ItemBonus, 0)
	for rows.Next() {
		var b servant.ItemBonus
		if err := rows.Scan(&b.StatType, &b.Value); err != nil {
			return nil, fmt.Errorf("scanning bonus row: %w", err)
		}
		bonuses = append(bonuses, b)
	}
	return bonuses, rows.Err()
}

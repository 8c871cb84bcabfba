package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotInInventory is returned when the member does not hold the item.
var ErrNotInInventory = errors.New("item not in inventory")

// InventoryEntry is one held item with its quantity.
type InventoryEntry struct {
	Item     Item
	Quantity int
}

// InventoryRepository provides member inventory operations.
type InventoryRepository struct {
	db *pgxpool.Pool
}

// NewInventoryRepository creates an InventoryRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewInventoryRepository(db *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Add grants quantity copies of the item, stacking onto any existing row.
//
// Precondition: quantity must be >= 1.
func (r *InventoryRepository) Add(ctx context.Context, memberID, guildID, itemID int64, quantity int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO inventory (user_id, guild_id, item_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, guild_id, item_id)
		DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity`,
		memberID, guildID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("adding inventory item: %w", err)
	}
	return nil
}

// Remove takes quantity copies of the item away, deleting the row when it
// reaches zero. The decrement is conditional on having enough copies.
//
// Postcondition: Returns ErrNotInInventory when the member holds fewer
// than quantity copies.
func (r *InventoryRepository) Remove(ctx context.Context, memberID, guildID, itemID int64, quantity int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inventory
		SET quantity = quantity - $4
		WHERE user_id = $1 AND guild_id = $2 AND item_id = $3 AND quantity >= $4`,
		memberID, guildID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("removing inventory item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotInInventory
	}

	_, err = r.db.Exec(ctx, `
		DELETE FROM inventory
		WHERE user_id = $1 AND guild_id = $2 AND item_id = $3 AND quantity <= 0`,
		memberID, guildID, itemID)
	if err != nil {
		return fmt.Errorf("pruning empty inventory row: %w", err)
	}
	return nil
}

// Quantity reports how many copies of the item the member holds.
//
// Postcondition: Returns 0 (not an error) when the item is absent.
func (r *InventoryRepository) Quantity(ctx context.Context, memberID, guildID, itemID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM inventory
		WHERE user_id = $1 AND guild_id = $2 AND item_id = $3`,
		memberID, guildID, itemID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("querying inventory quantity: %w", err)
	}
	return n, nil
}

// List returns the member's inventory joined with the item catalog,
// ordered by item name.
func (r *InventoryRepository) List(ctx context.Context, memberID, guildID int64) ([]InventoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.name, COALESCE(i.description, ''), i.item_type, i.rarity,
		       COALESCE(i.stat_type, ''), COALESCE(i.stat_value, 0), i.price, i.created_at,
		       inv.quantity
		FROM inventory inv
		JOIN items i ON i.id = inv.item_id
		WHERE inv.user_id = $1 AND inv.guild_id = $2
		ORDER BY i.name ASC`,
		memberID, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	entries := make([]InventoryEntry, 0)
	for rows.Next() {
		var e InventoryEntry
		if err := rows.Scan(
			&e.Item.ID, &e.Item.Name, &e.Item.Description, &e.Item.ItemType, &e.Item.Rarity,
			&e.Item.StatType, &e.Item.StatValue, &e.Item.Price, &e.Item.CreatedAt,
			&e.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scanning inventory row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrItemNotFound is returned when an item lookup yields no results.
var ErrItemNotFound = errors.New("item not found")

// Item is one catalog entry. StatType is empty for items (currency,
// collectibles) that grant no combat stat.
type Item struct {
	ID          int64
	Name        string
	Description string
	ItemType    string
	Rarity      string
	StatType    string
	StatValue   int
	Price       int
	CreatedAt   time.Time
}

// ItemRepository provides item catalog operations.
type ItemRepository struct {
	db *pgxpool.Pool
}

// NewItemRepository creates an ItemRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewItemRepository(db *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, name, COALESCE(description, ''), item_type, rarity,
	COALESCE(stat_type, ''), COALESCE(stat_value, 0), price, created_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(
		&it.ID, &it.Name, &it.Description, &it.ItemType, &it.Rarity,
		&it.StatType, &it.StatValue, &it.Price, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Get retrieves an item by its primary key.
//
// Postcondition: Returns the Item or ErrItemNotFound.
func (r *ItemRepository) Get(ctx context.Context, id int64) (*Item, error) {
	it, err := scanItem(r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return it, nil
}

// GetByName retrieves an item by exact name, case-insensitively.
//
// Postcondition: Returns the Item or ErrItemNotFound.
func (r *ItemRepository) GetByName(ctx context.Context, name string) (*Item, error) {
	it, err := scanItem(r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE LOWER(name) = LOWER($1)`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("querying item by name: %w", err)
	}
	return it, nil
}

// ListShop returns the purchasable catalog (price > 0) ordered by price.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *ItemRepository) ListShop(ctx context.Context) ([]*Item, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+itemColumns+` FROM items WHERE price > 0 ORDER BY price ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing shop items: %w", err)
	}
	defer rows.Close()

	items := make([]*Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

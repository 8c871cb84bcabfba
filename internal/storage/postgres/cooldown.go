package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Action types tracked in the cooldowns table.
const (
	ActionBattle = "battle"
	ActionSummon = "summon"
)

// CooldownRepository tracks per-member action cooldowns.
type CooldownRepository struct {
	db *pgxpool.Pool
}

// NewCooldownRepository creates a CooldownRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCooldownRepository(db *pgxpool.Pool) *CooldownRepository {
	return &CooldownRepository{db: db}
}

// Set upserts the cooldown expiry for the member's action.
func (r *CooldownRepository) Set(ctx context.Context, memberID, guildID int64, actionType string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cooldowns (user_id, guild_id, action_type, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, guild_id, action_type)
		DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		memberID, guildID, actionType, expiresAt)
	if err != nil {
		return fmt.Errorf("setting cooldown: %w", err)
	}
	return nil
}

// ActiveUntil reports the expiry of a still-running cooldown, or nil when
// the action is available. Expired rows are treated as absent; the sweep
// deletes them later.
func (r *CooldownRepository) ActiveUntil(ctx context.Context, memberID, guildID int64, actionType string) (*time.Time, error) {
	rows, err := r.db.Query(ctx, `
		SELECT expires_at FROM cooldowns
		WHERE user_id = $1 AND guild_id = $2 AND action_type = $3 AND expires_at > NOW()`,
		memberID, guildID, actionType)
	if err != nil {
		return nil, fmt.Errorf("querying cooldown: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var expiresAt time.Time
	if err := rows.Scan(&expiresAt); err != nil {
		return nil, fmt.Errorf("scanning cooldown row: %w", err)
	}
	return &expiresAt, nil
}

// PurgeExpired deletes cooldown rows whose expiry has passed, returning
// the number removed. Purely housekeeping; ActiveUntil already filters on
// the expiry.
func (r *CooldownRepository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM cooldowns WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("purging expired cooldowns: %w", err)
	}
	return tag.RowsAffected(), nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminLogEntry records one moderator action for audit.
type AdminLogEntry struct {
	ID             int64
	GuildID        int64
	AdminID        int64
	ActionType     string
	TargetMemberID *int64
	Details        string
	CreatedAt      time.Time
}

// AdminLogRepository provides the moderator audit trail.
type AdminLogRepository struct {
	db *pgxpool.Pool
}

// NewAdminLogRepository creates an AdminLogRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewAdminLogRepository(db *pgxpool.Pool) *AdminLogRepository {
	return &AdminLogRepository{db: db}
}

// Record appends one audit entry. targetMemberID may be nil for actions
// not aimed at a member.
func (r *AdminLogRepository) Record(ctx context.Context, guildID, adminID int64, actionType string, targetMemberID *int64, details string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_logs (guild_id, admin_id, action_type, target_user_id, details)
		VALUES ($1, $2, $3, $4, $5)`,
		guildID, adminID, actionType, targetMemberID, details)
	if err != nil {
		return fmt.Errorf("recording admin log: %w", err)
	}
	return nil
}

// Recent returns the guild's newest audit entries, newest first.
func (r *AdminLogRepository) Recent(ctx context.Context, guildID int64, limit int) ([]AdminLogEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, guild_id, admin_id, action_type, target_user_id, COALESCE(details, ''), created_at
		FROM admin_logs
		WHERE guild_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing admin logs: %w", err)
	}
	defer rows.Close()

	entries := make([]AdminLogEntry, 0, limit)
	for rows.Next() {
		var e AdminLogEntry
		if err := rows.Scan(&e.ID, &e.GuildID, &e.AdminID, &e.ActionType,
			&e.TargetMemberID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning admin log row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

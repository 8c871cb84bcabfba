package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrGuildNotFound is returned when a guild lookup yields no results.
var ErrGuildNotFound = errors.New("guild not found")

// Guild holds per-community settings.
type Guild struct {
	GuildID               int64
	MaxSummons            int
	RegistrationRoleID    *int64
	RegistrationChannelID *int64
	RegistrationMessageID *int64
	BattleForumID         *int64
	CreatedAt             time.Time
}

// GuildRepository provides guild persistence operations.
type GuildRepository struct {
	db *pgxpool.Pool
}

// NewGuildRepository creates a GuildRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewGuildRepository(db *pgxpool.Pool) *GuildRepository {
	return &GuildRepository{db: db}
}

const guildColumns = `guild_id, max_summons, registration_role_id,
	registration_channel_id, registration_message_id, battle_forum_id, created_at`

// GetOrCreate fetches the guild row, inserting it with the given servant
// slot default on first sight.
//
// Postcondition: Returns the guild row; a concurrent first-insert race is
// absorbed by the conflict clause.
func (r *GuildRepository) GetOrCreate(ctx context.Context, guildID int64, defaultMaxSummons int) (*Guild, error) {
	var g Guild
	err := r.db.QueryRow(ctx, `
		INSERT INTO guilds (guild_id, max_summons)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET guild_id = EXCLUDED.guild_id
		RETURNING `+guildColumns,
		guildID, defaultMaxSummons,
	).Scan(
		&g.GuildID, &g.MaxSummons, &g.RegistrationRoleID,
		&g.RegistrationChannelID, &g.RegistrationMessageID, &g.BattleForumID, &g.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting guild: %w", err)
	}
	return &g, nil
}

// Get retrieves a guild by its id.
//
// Postcondition: Returns the Guild or ErrGuildNotFound.
func (r *GuildRepository) Get(ctx context.Context, guildID int64) (*Guild, error) {
	var g Guild
	err := r.db.QueryRow(ctx,
		`SELECT `+guildColumns+` FROM guilds WHERE guild_id = $1`, guildID,
	).Scan(
		&g.GuildID, &g.MaxSummons, &g.RegistrationRoleID,
		&g.RegistrationChannelID, &g.RegistrationMessageID, &g.BattleForumID, &g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGuildNotFound
		}
		return nil, fmt.Errorf("querying guild: %w", err)
	}
	return &g, nil
}

// SetMaxSummons updates the guild's servant slot limit.
//
// Precondition: maxSummons must be >= 1.
// Postcondition: Returns nil on success, ErrGuildNotFound if no row updated.
func (r *GuildRepository) SetMaxSummons(ctx context.Context, guildID int64, maxSummons int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE guilds SET max_summons = $2 WHERE guild_id = $1`, guildID, maxSummons)
	if err != nil {
		return fmt.Errorf("updating max summons: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGuildNotFound
	}
	return nil
}

// SetRegistrationConfig stores the role/channel/message triple driving
// member registration.
func (r *GuildRepository) SetRegistrationConfig(ctx context.Context, guildID, roleID, channelID, messageID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE guilds
		SET registration_role_id = $2, registration_channel_id = $3, registration_message_id = $4
		WHERE guild_id = $1`,
		guildID, roleID, channelID, messageID)
	if err != nil {
		return fmt.Errorf("updating registration config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGuildNotFound
	}
	return nil
}

// SetBattleForum stores the forum/thread parent used for battle reports.
func (r *GuildRepository) SetBattleForum(ctx context.Context, guildID, forumID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE guilds SET battle_forum_id = $2 WHERE guild_id = $1`, guildID, forumID)
	if err != nil {
		return fmt.Errorf("updating battle forum: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGuildNotFound
	}
	return nil
}

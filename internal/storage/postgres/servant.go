package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/servant"
)

// ErrServantNotFound is returned when a servant lookup yields no results.
var ErrServantNotFound = errors.New("servant not found")

// ServantRepository provides summoned-servant persistence operations.
type ServantRepository struct {
	db *pgxpool.Pool
}

// NewServantRepository creates a ServantRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewServantRepository(db *pgxpool.Pool) *ServantRepository {
	return &ServantRepository{db: db}
}

const servantColumns = `id, user_id, guild_id, servant_name, servant_class, servant_rank,
	description, noble_phantasm, image_url, level, experience,
	base_attack, base_defense, base_hp, base_speed,
	bonus_attack, bonus_defense, bonus_hp, bonus_speed,
	is_favorite, total_battles, battles_won, summoned_at, last_battle`

func scanServant(row pgx.Row) (*servant.Servant, error) {
	var s servant.Servant
	err := row.Scan(
		&s.ID, &s.MemberID, &s.GuildID, &s.Name, &s.Class, &s.Rank,
		&s.Description, &s.NoblePhantasm, &s.ImageURL, &s.Level, &s.Experience,
		&s.BaseAttack, &s.BaseDefense, &s.BaseHP, &s.BaseSpeed,
		&s.BonusAttack, &s.BonusDefense, &s.BonusHP, &s.BonusSpeed,
		&s.Favorite, &s.TotalBattles, &s.BattlesWon, &s.SummonedAt, &s.LastBattle,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a freshly summoned servant and returns it with ID and
// timestamp set.
//
// Precondition: s must reference an existing (member, guild) pair.
func (r *ServantRepository) Create(ctx context.Context, s *servant.Servant) (*servant.Servant, error) {
	out, err := scanServant(r.db.QueryRow(ctx, `
		INSERT INTO summons
			(user_id, guild_id, servant_name, servant_class, servant_rank,
			 description, noble_phantasm, image_url, level, experience,
			 base_attack, base_defense, base_hp, base_speed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING `+servantColumns,
		s.MemberID, s.GuildID, s.Name, s.Class, s.Rank,
		s.Description, s.NoblePhantasm, s.ImageURL, s.Level, s.Experience,
		s.BaseAttack, s.BaseDefense, s.BaseHP, s.BaseSpeed,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting servant: %w", err)
	}
	return out, nil
}

// ListByMember returns the member's servants, favorites first, then by level.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *ServantRepository) ListByMember(ctx context.Context, memberID, guildID int64) ([]*servant.Servant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+servantColumns+`
		FROM summons WHERE user_id = $1 AND guild_id = $2
		ORDER BY is_favorite DESC, level DESC, summoned_at ASC`,
		memberID, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing servants: %w", err)
	}
	defer rows.Close()

	servants := make([]*servant.Servant, 0)
	for rows.Next() {
		s, err := scanServant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning servant row: %w", err)
		}
		servants = append(servants, s)
	}
	return servants, rows.Err()
}

// Get retrieves a servant by its primary key.
//
// Postcondition: Returns the servant or ErrServantNotFound.
func (r *ServantRepository) Get(ctx context.Context, id int64) (*servant.Servant, error) {
	s, err := scanServant(r.db.QueryRow(ctx,
		`SELECT `+servantColumns+` FROM summons WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServantNotFound
		}
		return nil, fmt.Errorf("querying servant: %w", err)
	}
	return s, nil
}

// CountByMember reports how many servants the member holds in the guild.
func (r *ServantRepository) CountByMember(ctx context.Context, memberID, guildID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM summons WHERE user_id = $1 AND guild_id = $2`,
		memberID, guildID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting servants: %w", err)
	}
	return n, nil
}

// Delete removes a servant. Equipment links cascade away with it.
//
// Postcondition: Returns nil on success, ErrServantNotFound if no row deleted.
func (r *ServantRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM summons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting servant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServantNotFound
	}
	return nil
}

// SetFavorite sets or clears the favorite flag.
func (r *ServantRepository) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE summons SET is_favorite = $2 WHERE id = $1`, id, favorite)
	if err != nil {
		return fmt.Errorf("updating favorite flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServantNotFound
	}
	return nil
}

// SaveProgress persists level, experience, and the base and bonus stats
// after experience has been applied in memory. Level-ups grow the base
// stats, so they are written alongside the counters.
func (r *ServantRepository) SaveProgress(ctx context.Context, s *servant.Servant) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE summons
		SET level = $2, experience = $3,
		    base_attack = $4, base_defense = $5, base_hp = $6, base_speed = $7,
		    bonus_attack = $8, bonus_defense = $9, bonus_hp = $10, bonus_speed = $11
		WHERE id = $1`,
		s.ID, s.Level, s.Experience,
		s.BaseAttack, s.BaseDefense, s.BaseHP, s.BaseSpeed,
		s.BonusAttack, s.BonusDefense, s.BonusHP, s.BonusSpeed)
	if err != nil {
		return fmt.Errorf("saving servant progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServantNotFound
	}
	return nil
}

// RecordBattle increments the servant's battle counters and stamps
// last_battle.
func (r *ServantRepository) RecordBattle(ctx context.Context, id int64, won bool) error {
	wonDelta := 0
	if won {
		wonDelta = 1
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE summons
		SET total_battles = total_battles + 1,
		    battles_won = battles_won + $2,
		    last_battle = NOW()
		WHERE id = $1`,
		id, wonDelta)
	if err != nil {
		return fmt.Errorf("recording servant battle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServantNotFound
	}
	return nil
}

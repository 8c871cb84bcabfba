package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMemberNotFound is returned when a member lookup yields no results.
var ErrMemberNotFound = errors.New("member not found")

// ErrInsufficientBalance is returned when a currency adjustment would
// drive saint quartz or tickets negative.
var ErrInsufficientBalance = errors.New("insufficient balance")

// New-member grants.
const (
	initialSaintQuartz   = 100
	initialSummonTickets = 3
	initialRating        = 1000
)

// Member is one chat member's per-guild game account.
type Member struct {
	MemberID       int64
	GuildID        int64
	IsRegistered   bool
	RegisteredAt   *time.Time
	SaintQuartz    int
	SummonTickets  int
	LastDailyClaim *time.Time
	BattleWins     int
	BattleLosses   int
	Rating         int
	TotalSummons   int
	CurrentStreak  int
	LongestStreak  int
}

// MemberRepository provides member persistence operations.
type MemberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository creates a MemberRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = `user_id, guild_id, is_registered, registered_at,
	saint_quartz, summon_tickets, last_daily_claim,
	battle_wins, battle_losses, elo_rating, total_summons,
	current_streak, longest_streak`

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(
		&m.MemberID, &m.GuildID, &m.IsRegistered, &m.RegisteredAt,
		&m.SaintQuartz, &m.SummonTickets, &m.LastDailyClaim,
		&m.BattleWins, &m.BattleLosses, &m.Rating, &m.TotalSummons,
		&m.CurrentStreak, &m.LongestStreak,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOrCreate fetches the member row, inserting it with the starting
// grants (100 quartz, 3 tickets, 1000 rating) on first sight.
func (r *MemberRepository) GetOrCreate(ctx context.Context, memberID, guildID int64) (*Member, error) {
	m, err := scanMember(r.db.QueryRow(ctx, `
		INSERT INTO users (user_id, guild_id, saint_quartz, summon_tickets, elo_rating)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, guild_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING `+memberColumns,
		memberID, guildID, initialSaintQuartz, initialSummonTickets, initialRating,
	))
	if err != nil {
		return nil, fmt.Errorf("upserting member: %w", err)
	}
	return m, nil
}

// Get retrieves a member by its composite key.
//
// Postcondition: Returns the Member or ErrMemberNotFound.
func (r *MemberRepository) Get(ctx context.Context, memberID, guildID int64) (*Member, error) {
	m, err := scanMember(r.db.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM users WHERE user_id = $1 AND guild_id = $2`,
		memberID, guildID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("querying member: %w", err)
	}
	return m, nil
}

// Register marks the member as registered, creating the row if needed.
func (r *MemberRepository) Register(ctx context.Context, memberID, guildID int64) (*Member, error) {
	m, err := scanMember(r.db.QueryRow(ctx, `
		INSERT INTO users (user_id, guild_id, is_registered, registered_at,
			saint_quartz, summon_tickets, elo_rating)
		VALUES ($1, $2, TRUE, NOW(), $3, $4, $5)
		ON CONFLICT (user_id, guild_id)
		DO UPDATE SET is_registered = TRUE,
			registered_at = COALESCE(users.registered_at, NOW())
		RETURNING `+memberColumns,
		memberID, guildID, initialSaintQuartz, initialSummonTickets, initialRating,
	))
	if err != nil {
		return nil, fmt.Errorf("registering member: %w", err)
	}
	return m, nil
}

// AdjustBalance applies quartz and ticket deltas atomically. The update
// is conditional: it refuses to drive either balance negative.
//
// Postcondition: Returns the updated member, ErrInsufficientBalance when
// the deltas cannot be afforded, or ErrMemberNotFound.
func (r *MemberRepository) AdjustBalance(ctx context.Context, memberID, guildID int64, quartzDelta, ticketDelta int) (*Member, error) {
	m, err := scanMember(r.db.QueryRow(ctx, `
		UPDATE users
		SET saint_quartz = saint_quartz + $3, summon_tickets = summon_tickets + $4
		WHERE user_id = $1 AND guild_id = $2
		  AND saint_quartz + $3 >= 0 AND summon_tickets + $4 >= 0
		RETURNING `+memberColumns,
		memberID, guildID, quartzDelta, ticketDelta,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.Get(ctx, memberID, guildID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("adjusting balance: %w", err)
	}
	return m, nil
}

// RecordDailyClaim stores the claim timestamp and streak counters
// computed by the economy rules.
func (r *MemberRepository) RecordDailyClaim(ctx context.Context, memberID, guildID int64, claimedAt time.Time, streak, longest int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET last_daily_claim = $3, current_streak = $4, longest_streak = $5
		WHERE user_id = $1 AND guild_id = $2`,
		memberID, guildID, claimedAt, streak, longest)
	if err != nil {
		return fmt.Errorf("recording daily claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ApplyBattleOutcome moves the rating delta between the two members and
// updates the win/loss counters. The loser's rating floors at 0 and their
// daily-claim streak resets; the winner's streak is left alone, only
// claims extend it.
func (r *MemberRepository) ApplyBattleOutcome(ctx context.Context, guildID, winnerID, loserID int64, ratingDelta int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET battle_wins = battle_wins + 1,
		    elo_rating = elo_rating + $3
		WHERE user_id = $1 AND guild_id = $2`,
		winnerID, guildID, ratingDelta)
	if err != nil {
		return fmt.Errorf("updating winner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	tag, err = r.db.Exec(ctx, `
		UPDATE users
		SET battle_losses = battle_losses + 1,
		    elo_rating = GREATEST(elo_rating - $3, 0),
		    current_streak = 0
		WHERE user_id = $1 AND guild_id = $2`,
		loserID, guildID, ratingDelta)
	if err != nil {
		return fmt.Errorf("updating loser: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// IncrementSummons bumps the member's lifetime summon counter.
func (r *MemberRepository) IncrementSummons(ctx context.Context, memberID, guildID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET total_summons = total_summons + 1 WHERE user_id = $1 AND guild_id = $2`,
		memberID, guildID)
	if err != nil {
		return fmt.Errorf("incrementing summons: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// RatingEntry is one leaderboard row.
type RatingEntry struct {
	MemberID int64
	Rating   int
	Wins     int
	Losses   int
}

// TopByRating returns the guild's registered members ordered by rating.
//
// Postcondition: Returns at most limit entries (may be empty).
func (r *MemberRepository) TopByRating(ctx context.Context, guildID int64, limit int) ([]RatingEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, elo_rating, battle_wins, battle_losses
		FROM users
		WHERE guild_id = $1 AND is_registered
		ORDER BY elo_rating DESC, battle_wins DESC
		LIMIT $2`,
		guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]RatingEntry, 0, limit)
	for rows.Next() {
		var e RatingEntry
		if err := rows.Scan(&e.MemberID, &e.Rating, &e.Wins, &e.Losses); err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GuildCensus summarizes a guild's player base.
type GuildCensus struct {
	Members    int
	Registered int
	Servants   int
	Battles    int
}

// Census counts members, registrations, servants, and battles for the guild.
func (r *MemberRepository) Census(ctx context.Context, guildID int64) (*GuildCensus, error) {
	var c GuildCensus
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE guild_id = $1),
			(SELECT COUNT(*) FROM users WHERE guild_id = $1 AND is_registered),
			(SELECT COUNT(*) FROM summons WHERE guild_id = $1),
			(SELECT COUNT(*) FROM battles WHERE guild_id = $1)`,
		guildID,
	).Scan(&c.Members, &c.Registered, &c.Servants, &c.Battles)
	if err != nil {
		return nil, fmt.Errorf("querying guild census: %w", err)
	}
	return &c, nil
}

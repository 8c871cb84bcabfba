package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrBattleNotFound is returned when a battle lookup yields no results.
	ErrBattleNotFound = errors.New("battle not found")
	// ErrBattleAlreadyComplete is returned when completing a battle that
	// already has a result recorded.
	ErrBattleAlreadyComplete = errors.New("battle already complete")
)

// Battle is one fought (or in-flight) battle record.
type Battle struct {
	ID                  int64
	GuildID             int64
	ChallengerID        int64
	OpponentID          int64
	ChallengerServantID *int64
	OpponentServantID   *int64
	WinnerID            *int64
	BattleLog           string
	RatingChange        *int
	ExperienceGained    *int
	ForumThreadID       *int64
	BattleType          string
	StartedAt           time.Time
	CompletedAt         *time.Time
}

// BattleRepository provides battle record persistence operations.
type BattleRepository struct {
	db *pgxpool.Pool
}

// NewBattleRepository creates a BattleRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRepository(db *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{db: db}
}

const battleColumns = `id, guild_id, challenger_id, opponent_id,
	challenger_servant_id, opponent_servant_id, winner_id,
	COALESCE(battle_log, ''), elo_change, experience_gained,
	forum_thread_id, battle_type, started_at, completed_at`

func scanBattle(row pgx.Row) (*Battle, error) {
	var b Battle
	err := row.Scan(
		&b.ID, &b.GuildID, &b.ChallengerID, &b.OpponentID,
		&b.ChallengerServantID, &b.OpponentServantID, &b.WinnerID,
		&b.BattleLog, &b.RatingChange, &b.ExperienceGained,
		&b.ForumThreadID, &b.BattleType, &b.StartedAt, &b.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create opens a battle record once a challenge has been accepted and
// both servants chosen.
func (r *BattleRepository) Create(ctx context.Context, guildID, challengerID, opponentID, challengerServantID, opponentServantID int64, battleType string) (*Battle, error) {
	b, err := scanBattle(r.db.QueryRow(ctx, `
		INSERT INTO battles
			(guild_id, challenger_id, opponent_id,
			 challenger_servant_id, opponent_servant_id, battle_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+battleColumns,
		guildID, challengerID, opponentID, challengerServantID, opponentServantID, battleType,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting battle: %w", err)
	}
	return b, nil
}

// Get retrieves a battle by its primary key.
//
// Postcondition: Returns the Battle or ErrBattleNotFound.
func (r *BattleRepository) Get(ctx context.Context, id int64) (*Battle, error) {
	b, err := scanBattle(r.db.QueryRow(ctx,
		`SELECT `+battleColumns+` FROM battles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBattleNotFound
		}
		return nil, fmt.Errorf("querying battle: %w", err)
	}
	return b, nil
}

// Complete records the outcome exactly once. The update is conditional on
// completed_at being unset, so a second completion attempt fails.
//
// Postcondition: Returns ErrBattleAlreadyComplete if a result was already
// recorded, or ErrBattleNotFound for an unknown id.
func (r *BattleRepository) Complete(ctx context.Context, id, winnerID int64, battleLog string, ratingChange, experienceGained int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE battles
		SET winner_id = $2, battle_log = $3, elo_change = $4,
		    experience_gained = $5, completed_at = NOW()
		WHERE id = $1 AND completed_at IS NULL`,
		id, winnerID, battleLog, ratingChange, experienceGained)
	if err != nil {
		return fmt.Errorf("completing battle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrBattleAlreadyComplete
	}
	return nil
}

// SetForumThread links the battle to its external discussion thread.
func (r *BattleRepository) SetForumThread(ctx context.Context, id, threadID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE battles SET forum_thread_id = $2 WHERE id = $1`, id, threadID)
	if err != nil {
		return fmt.Errorf("setting battle forum thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBattleNotFound
	}
	return nil
}

// HistoryByMember returns the member's most recent completed battles,
// newest first.
func (r *BattleRepository) HistoryByMember(ctx context.Context, guildID, memberID int64, limit int) ([]*Battle, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+battleColumns+`
		FROM battles
		WHERE guild_id = $1 AND (challenger_id = $2 OR opponent_id = $2)
		  AND completed_at IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT $3`,
		guildID, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing battle history: %w", err)
	}
	defer rows.Close()

	battles := make([]*Battle, 0, limit)
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning battle row: %w", err)
		}
		battles = append(battles, b)
	}
	return battles, rows.Err()
}

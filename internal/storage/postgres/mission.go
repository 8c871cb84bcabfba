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
	// ErrMissionNotFound is returned when a mission lookup yields no results.
	ErrMissionNotFound = errors.New("mission not found")
	// ErrMissionNotClaimable is returned when a claim finds no completed,
	// unclaimed progress row. Covers both incomplete and double claims.
	ErrMissionNotClaimable = errors.New("mission not claimable")
)

// Mission is one daily mission definition.
type Mission struct {
	ID           int64
	MissionType  string
	Description  string
	Requirement  int
	QuartzReward int
	TicketReward int
}

// MissionProgress is a member's progress row for one mission on one day.
type MissionProgress struct {
	Mission   Mission
	Progress  int
	Completed bool
	Claimed   bool
	ResetDate time.Time
}

// MissionRepository provides daily mission persistence operations.
type MissionRepository struct {
	db *pgxpool.Pool
}

// NewMissionRepository creates a MissionRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMissionRepository(db *pgxpool.Pool) *MissionRepository {
	return &MissionRepository{db: db}
}

// ListMissions returns every mission definition.
func (r *MissionRepository) ListMissions(ctx context.Context) ([]Mission, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, mission_type, description, requirement, sq_reward, ticket_reward
		FROM daily_missions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing missions: %w", err)
	}
	defer rows.Close()

	missions := make([]Mission, 0)
	for rows.Next() {
		var m Mission
		if err := rows.Scan(&m.ID, &m.MissionType, &m.Description, &m.Requirement,
			&m.QuartzReward, &m.TicketReward); err != nil {
			return nil, fmt.Errorf("scanning mission row: %w", err)
		}
		missions = append(missions, m)
	}
	return missions, rows.Err()
}

// EnsureDailyProgress creates today's zero-progress rows for every
// mission the member does not yet have. Safe to call on every lookup.
func (r *MissionRepository) EnsureDailyProgress(ctx context.Context, memberID, guildID int64, day time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_mission_progress (user_id, guild_id, mission_id, reset_date)
		SELECT $1, $2, id, $3::date FROM daily_missions
		ON CONFLICT (user_id, guild_id, mission_id, reset_date) DO NOTHING`,
		memberID, guildID, day)
	if err != nil {
		return fmt.Errorf("ensuring daily mission progress: %w", err)
	}
	return nil
}

// ListProgress returns the member's progress for the given day joined
// with the mission definitions.
func (r *MissionRepository) ListProgress(ctx context.Context, memberID, guildID int64, day time.Time) ([]MissionProgress, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.mission_type, m.description, m.requirement, m.sq_reward, m.ticket_reward,
		       p.progress, p.completed, p.claimed, p.reset_date
		FROM user_mission_progress p
		JOIN daily_missions m ON m.id = p.mission_id
		WHERE p.user_id = $1 AND p.guild_id = $2 AND p.reset_date = $3::date
		ORDER BY m.id ASC`,
		memberID, guildID, day)
	if err != nil {
		return nil, fmt.Errorf("listing mission progress: %w", err)
	}
	defer rows.Close()

	progress := make([]MissionProgress, 0)
	for rows.Next() {
		var p MissionProgress
		if err := rows.Scan(
			&p.Mission.ID, &p.Mission.MissionType, &p.Mission.Description,
			&p.Mission.Requirement, &p.Mission.QuartzReward, &p.Mission.TicketReward,
			&p.Progress, &p.Completed, &p.Claimed, &p.ResetDate,
		); err != nil {
			return nil, fmt.Errorf("scanning mission progress row: %w", err)
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}

// IncrementProgress advances today's progress on every mission of the
// given type. The counter keeps counting past the requirement so the
// board shows true totals; completed is monotone once reached. A type
// with no matching mission definition is a silent no-op.
func (r *MissionRepository) IncrementProgress(ctx context.Context, memberID, guildID int64, missionType string, amount int, day time.Time) error {
	if err := r.EnsureDailyProgress(ctx, memberID, guildID, day); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		UPDATE user_mission_progress p
		SET progress = p.progress + $4,
		    completed = p.completed OR p.progress + $4 >= m.requirement
		FROM daily_missions m
		WHERE m.id = p.mission_id AND m.mission_type = $3
		  AND p.user_id = $1 AND p.guild_id = $2 AND p.reset_date = $5::date`,
		memberID, guildID, missionType, amount, day)
	if err != nil {
		return fmt.Errorf("incrementing mission progress: %w", err)
	}
	return nil
}

// ResetProgress zeroes today's counter on every mission of the given
// type. Used for streak-style missions that break on a loss. An already
// completed mission stays completed.
func (r *MissionRepository) ResetProgress(ctx context.Context, memberID, guildID int64, missionType string, day time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE user_mission_progress p
		SET progress = 0
		FROM daily_missions m
		WHERE m.id = p.mission_id AND m.mission_type = $3
		  AND p.user_id = $1 AND p.guild_id = $2 AND p.reset_date = $4::date
		  AND NOT p.completed`,
		memberID, guildID, missionType, day)
	if err != nil {
		return fmt.Errorf("resetting mission progress: %w", err)
	}
	return nil
}

// Claim marks the mission claimed exactly once and returns its rewards.
// The update is conditional on completed and not yet claimed, so a repeat
// claim finds no row.
//
// Postcondition: Returns the claimed Mission or ErrMissionNotClaimable.
func (r *MissionRepository) Claim(ctx context.Context, memberID, guildID, missionID int64, day time.Time) (*Mission, error) {
	var m Mission
	err := r.db.QueryRow(ctx, `
		UPDATE user_mission_progress p
		SET claimed = TRUE
		FROM daily_missions m
		WHERE m.id = p.mission_id AND p.mission_id = $3
		  AND p.user_id = $1 AND p.guild_id = $2 AND p.reset_date = $4::date
		  AND p.completed AND NOT p.claimed
		RETURNING m.id, m.mission_type, m.description, m.requirement, m.sq_reward, m.ticket_reward`,
		memberID, guildID, missionID, day,
	).Scan(&m.ID, &m.MissionType, &m.Description, &m.Requirement, &m.QuartzReward, &m.TicketReward)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMissionNotClaimable
		}
		return nil, fmt.Errorf("claiming mission: %w", err)
	}
	return &m, nil
}

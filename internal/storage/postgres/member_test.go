package postgres_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/testutil"
)

var idCounter atomic.Int64

// uniqueID produces collision-free snowflake-ish IDs for guilds and
// members within one test binary.
func uniqueID() int64 {
	return time.Now().UnixNano() + idCounter.Add(1)
}

func setupMemberRepos(t *testing.T) (*postgres.MemberRepository, int64, *pgxpool.Pool) {
	t.Helper()
	pool := testutil.NewPool(t)
	guilds := postgres.NewGuildRepository(pool)
	guildID := uniqueID()
	_, err := guilds.GetOrCreate(context.Background(), guildID, 10)
	require.NoError(t, err)
	return postgres.NewMemberRepository(pool), guildID, pool
}

func TestMemberRepository_GetOrCreateGrantsStartingBalance(t *testing.T) {
	repo, guildID, _ := setupMemberRepos(t)
	ctx := context.Background()
	memberID := uniqueID()

	m, err := repo.GetOrCreate(ctx, memberID, guildID)
	require.NoError(t, err)
	assert.Equal(t, 100, m.SaintQuartz)
	assert.Equal(t, 3, m.SummonTickets)
	assert.Equal(t, 1000, m.Rating)
	assert.False(t, m.IsRegistered)

	// Second call returns the same row untouched.
	_, err = repo.AdjustBalance(ctx, memberID, guildID, -10, 0)
	require.NoError(t, err)
	again, err := repo.GetOrCreate(ctx, memberID, guildID)
	require.NoError(t, err)
	assert.Equal(t, 90, again.SaintQuartz)
}

func TestMemberRepository_RegisterKeepsFirstTimestamp(t *testing.T) {
	repo, guildID, _ := setupMemberRepos(t)
	ctx := context.Background()
	memberID := uniqueID()

	first, err := repo.Register(ctx, memberID, guildID)
	require.NoError(t, err)
	assert.True(t, first.IsRegistered)
	require.NotNil(t, first.RegisteredAt)

	second, err := repo.Register(ctx, memberID, guildID)
	require.NoError(t, err)
	require.NotNil(t, second.RegisteredAt)
	assert.Equal(t, first.RegisteredAt.UTC(), second.RegisteredAt.UTC())
}

func TestMemberRepository_AdjustBalance(t *testing.T) {
	repo, guildID, _ := setupMemberRepos(t)
	ctx := context.Background()
	memberID := uniqueID()
	_, err := repo.GetOrCreate(ctx, memberID, guildID)
	require.NoError(t, err)

	t.Run("spend within balance", func(t *testing.T) {
		m, err := repo.AdjustBalance(ctx, memberID, guildID, -30, -1)
		require.NoError(t, err)
		assert.Equal(t, 70, m.SaintQuartz)
		assert.Equal(t, 2, m.SummonTickets)
	})

	t.Run("overdraw rejected atomically", func(t *testing.T) {
		_, err := repo.AdjustBalance(ctx, memberID, guildID, -500, 0)
		assert.ErrorIs(t, err, postgres.ErrInsufficientBalance)

		m, err := repo.Get(ctx, memberID, guildID)
		require.NoError(t, err)
		assert.Equal(t, 70, m.SaintQuartz)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := repo.AdjustBalance(ctx, uniqueID(), guildID, -1, 0)
		assert.ErrorIs(t, err, postgres.ErrMemberNotFound)
	})
}

func TestMemberRepository_RecordDailyClaim(t *testing.T) {
	repo, guildID, _ := setupMemberRepos(t)
	ctx := context.Background()
	memberID := uniqueID()
	_, err := repo.GetOrCreate(ctx, memberID, guildID)
	require.NoError(t, err)

	claimedAt := time.Date(2025, time.March, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, repo.RecordDailyClaim(ctx, memberID, guildID, claimedAt, 4, 9))

	m, err := repo.Get(ctx, memberID, guildID)
	require.NoError(t, err)
	require.NotNil(t, m.LastDailyClaim)
	assert.Equal(t, claimedAt, m.LastDailyClaim.UTC())
	assert.Equal(t, 4, m.CurrentStreak)
	assert.Equal(t, 9, m.LongestStreak)
}

func TestMemberRepository_ApplyBattleOutcome(t *testing.T) {
	repo, guildID, pool := setupMemberRepos(t)
	ctx := context.Background()
	winnerID, loserID := uniqueID(), uniqueID()
	_, err := repo.GetOrCreate(ctx, winnerID, guildID)
	require.NoError(t, err)
	_, err = repo.GetOrCreate(ctx, loserID, guildID)
	require.NoError(t, err)

	// Seed a daily-claim streak for both sides: a win must leave the
	// winner's streak alone, a loss resets the loser's.
	claimedAt := time.Date(2025, time.March, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, repo.RecordDailyClaim(ctx, winnerID, guildID, claimedAt, 2, 5))
	require.NoError(t, repo.RecordDailyClaim(ctx, loserID, guildID, claimedAt, 3, 3))

	require.NoError(t, repo.ApplyBattleOutcome(ctx, guildID, winnerID, loserID, 16))

	winner, err := repo.Get(ctx, winnerID, guildID)
	require.NoError(t, err)
	assert.Equal(t, 1016, winner.Rating)
	assert.Equal(t, 1, winner.BattleWins)
	assert.Equal(t, 2, winner.CurrentStreak)
	assert.Equal(t, 5, winner.LongestStreak)

	loser, err := repo.Get(ctx, loserID, guildID)
	require.NoError(t, err)
	assert.Equal(t, 984, loser.Rating)
	assert.Equal(t, 1, loser.BattleLosses)
	assert.Equal(t, 0, loser.CurrentStreak)

	// A rating never drops below zero.
	_, err = pool.Exec(ctx,
		`UPDATE users SET elo_rating = 5 WHERE user_id = $1 AND guild_id = $2`, loserID, guildID)
	require.NoError(t, err)
	require.NoError(t, repo.ApplyBattleOutcome(ctx, guildID, winnerID, loserID, 16))

	loser, err = repo.Get(ctx, loserID, guildID)
	require.NoError(t, err)
	assert.Equal(t, 0, loser.Rating)
}

func TestMemberRepository_TopByRatingSkipsUnregistered(t *testing.T) {
	repo, guildID, pool := setupMemberRepos(t)
	ctx := context.Background()

	high, mid, ghost := uniqueID(), uniqueID(), uniqueID()
	for _, id := range []int64{high, mid} {
		_, err := repo.Register(ctx, id, guildID)
		require.NoError(t, err)
	}
	_, err := repo.GetOrCreate(ctx, ghost, guildID)
	require.NoError(t, err)

	_, err = pool.Exec(ctx,
		`UPDATE users SET elo_rating = 1400 WHERE user_id = $1 AND guild_id = $2`, high, guildID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`UPDATE users SET elo_rating = 2000 WHERE user_id = $1 AND guild_id = $2`, ghost, guildID)
	require.NoError(t, err)

	top, err := repo.TopByRating(ctx, guildID, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, high, top[0].MemberID)
	assert.Equal(t, 1400, top[0].Rating)
	assert.Equal(t, mid, top[1].MemberID)
}

func TestMemberRepository_Census(t *testing.T) {
	repo, guildID, _ := setupMemberRepos(t)
	ctx := context.Background()

	_, err := repo.Register(ctx, uniqueID(), guildID)
	require.NoError(t, err)
	_, err = repo.GetOrCreate(ctx, uniqueID(), guildID)
	require.NoError(t, err)

	census, err := repo.Census(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, 2, census.Members)
	assert.Equal(t, 1, census.Registered)
	assert.Equal(t, 0, census.Servants)
	assert.Equal(t, 0, census.Battles)
}

// Property: any sequence of affordable adjustments leaves the balance at
// the running sum, and no adjustment can push either currency negative.
func TestMemberRepository_Property_BalanceNeverNegative(t *testing.T) {
	repo, guildID, _ := setupMemberRepos(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		memberID := uniqueID()
		_, err := repo.GetOrCreate(ctx, memberID, guildID)
		require.NoError(t, err)

		quartz, tickets := 100, 3
		n := rapid.IntRange(1, 8).Draw(rt, "n")
		for i := 0; i < n; i++ {
			dq := rapid.IntRange(-150, 150).Draw(rt, "dq")
			dt := rapid.IntRange(-5, 5).Draw(rt, "dt")

			m, err := repo.AdjustBalance(ctx, memberID, guildID, dq, dt)
			if quartz+dq < 0 || tickets+dt < 0 {
				if err == nil {
					rt.Fatalf("overdraw accepted: quartz %d%+d tickets %d%+d", quartz, dq, tickets, dt)
				}
				continue
			}
			require.NoError(t, err)
			quartz += dq
			tickets += dt
			if m.SaintQuartz != quartz || m.SummonTickets != tickets {
				rt.Fatalf("balance drifted: got %d/%d want %d/%d",
					m.SaintQuartz, m.SummonTickets, quartz, tickets)
			}
		}
	})
}

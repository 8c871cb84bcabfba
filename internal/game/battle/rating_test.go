package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRatingDelta(t *testing.T) {
	cases := []struct {
		name   string
		winner int
		loser  int
		want   int
	}{
		{"even match", 1000, 1000, 16},
		{"heavy favorite floors at minimum", 2000, 1000, 5},
		{"upset pays near full K", 1000, 2000, 32},
		{"slight favorite", 1100, 1000, 12},
		{"slight underdog", 1000, 1100, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RatingDelta(tc.winner, tc.loser))
		})
	}
}

func TestRatingDeltaBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		winner := rapid.IntRange(0, 5000).Draw(t, "winner")
		loser := rapid.IntRange(0, 5000).Draw(t, "loser")

		delta := RatingDelta(winner, loser)
		if delta < minRatingDelta || delta > ratingK {
			t.Fatalf("delta %d out of [%d, %d]", delta, minRatingDelta, ratingK)
		}
	})
}

func TestExperienceAward(t *testing.T) {
	assert.Equal(t, 55, ExperienceAward(1))
	assert.Equal(t, 100, ExperienceAward(10))
	assert.Equal(t, 550, ExperienceAward(100))
}

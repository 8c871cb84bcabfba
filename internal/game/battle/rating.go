package battle

import "math"

const (
	ratingK        = 32
	minRatingDelta = 5
)

// RatingDelta computes the Elo points moved by one battle. The winner
// gains the delta; the caller subtracts it from the loser, flooring the
// loser's rating at zero.
//
// Even a heavy favorite moves at least minRatingDelta points.
func RatingDelta(winnerRating, loserRating int) int {
	expected := 1.0 / (1.0 + math.Pow(10, float64(loserRating-winnerRating)/400.0))
	delta := int(math.Round(ratingK * (1.0 - expected)))
	if delta < minRatingDelta {
		delta = minRatingDelta
	}
	return delta
}

const (
	expAwardBase     = 50
	expAwardPerLevel = 5
)

// ExperienceAward is the experience granted to the winning servant,
// scaled by the defeated servant's level.
func ExperienceAward(loserLevel int) int {
	return expAwardBase + expAwardPerLevel*loserLevel
}

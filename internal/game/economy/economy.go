// Package economy holds the pure currency rules: daily-claim streak
// arithmetic and summon payment selection. Everything here is calendar
// and integer math; persistence of the resulting balances is the
// workflow layer's job.
package economy

import (
	"errors"
	"time"
)

const (
	// dailyBase and dailyPerStreak shape the daily reward
	// 30 + 5*min(streak, streakRewardCap) saint quartz.
	dailyBase       = 30
	dailyPerStreak  = 5
	streakRewardCap = 7

	// ticketStreakInterval grants a bonus summon ticket on every
	// streak that is a multiple of it.
	ticketStreakInterval = 3

	// SummonQuartzCost is the saint quartz price of one summon when no
	// ticket is available.
	SummonQuartzCost = 30
)

var (
	ErrAlreadyClaimedToday = errors.New("economy: daily reward already claimed today")
	ErrInsufficientFunds   = errors.New("economy: not enough saint quartz or tickets")
)

// DailyClaim is the outcome of a successful daily reward claim.
type DailyClaim struct {
	Streak        int
	LongestStreak int
	Quartz        int
	BonusTicket   bool
}

// EvaluateDailyClaim applies the streak rules to a claim at now.
// A claim on the same calendar date as the previous one is rejected.
// A claim exactly one calendar day after the previous one extends the
// streak; any larger gap, or no prior claim, restarts it at 1.
func EvaluateDailyClaim(lastClaim *time.Time, streak, longest int, now time.Time) (DailyClaim, error) {
	newStreak := 1
	if lastClaim != nil {
		switch daysBetween(*lastClaim, now) {
		case 0:
			return DailyClaim{}, ErrAlreadyClaimedToday
		case 1:
			newStreak = streak + 1
		}
	}

	capped := newStreak
	if capped > streakRewardCap {
		capped = streakRewardCap
	}
	if newStreak > longest {
		longest = newStreak
	}

	return DailyClaim{
		Streak:        newStreak,
		LongestStreak: longest,
		Quartz:        dailyBase + dailyPerStreak*capped,
		BonusTicket:   newStreak%ticketStreakInterval == 0,
	}, nil
}

// Payment is the funding source chosen for a summon.
type Payment string

const (
	PaymentTicket Payment = "ticket"
	PaymentQuartz Payment = "quartz"
)

// SummonPayment picks how a summon is paid for: a ticket when one is
// held, saint quartz otherwise.
func SummonPayment(quartz, tickets int) (Payment, error) {
	switch {
	case tickets > 0:
		return PaymentTicket, nil
	case quartz >= SummonQuartzCost:
		return PaymentQuartz, nil
	default:
		return "", ErrInsufficientFunds
	}
}

// daysBetween counts whole calendar days from a to b, comparing dates
// in UTC regardless of the wall-clock times.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

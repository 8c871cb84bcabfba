package roster

import "fmt"

// Rank is a servant's rarity tier, ordered best to weakest.
type Rank string

const (
	RankEX Rank = "EX"
	RankS  Rank = "S"
	RankA  Rank = "A"
	RankB  Rank = "B"
	RankC  Rank = "C"
)

// Ranks returns all ranks in order, best to weakest.
func Ranks() []Rank {
	return []Rank{RankEX, RankS, RankA, RankB, RankC}
}

// Valid reports whether r is a recognised rank.
func (r Rank) Valid() bool {
	switch r {
	case RankEX, RankS, RankA, RankB, RankC:
		return true
	}
	return false
}

// Multiplier returns the base-stat multiplier for this rank.
//
// Postcondition: Returns 2.0/1.6/1.3/1.0/0.7 for EX/S/A/B/C, 1.0 for anything else.
func (r Rank) Multiplier() float64 {
	switch r {
	case RankEX:
		return 2.0
	case RankS:
		return 1.6
	case RankA:
		return 1.3
	case RankB:
		return 1.0
	case RankC:
		return 0.7
	}
	return 1.0
}

// ParseRank converts a string to a Rank.
//
// Postcondition: Returns the Rank or an error naming the invalid input.
func ParseRank(s string) (Rank, error) {
	r := Rank(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown rank %q", s)
	}
	return r, nil
}

// Gacha rank boundaries on a uniform [0,100) roll:
// EX 1%, S 5%, A 15%, B 30%, C 49%.
const (
	rollBoundEX = 1
	rollBoundS  = 6
	rollBoundA  = 21
	rollBoundB  = 51
)

// Source is the subset of rng.Source the roster needs.
// Using a local interface keeps this package free of upward imports.
type Source interface {
	Intn(n int) int
}

// RollRank draws a rank from the summoning pool using src.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a valid Rank with weights 1/5/15/30/49 percent.
func RollRank(src Source) Rank {
	roll := src.Intn(100)
	switch {
	case roll < rollBoundEX:
		return RankEX
	case roll < rollBoundS:
		return RankS
	case roll < rollBoundA:
		return RankA
	case roll < rollBoundB:
		return RankB
	default:
		return RankC
	}
}

// Package battle implements the turn-based battle simulation: a fixed
// loop of alternating strikes with damage variance, critical hits and
// noble phantasm procs, plus the rating and experience arithmetic applied
// to its outcome. The engine is computation-only; persistence happens in
// the calling workflow.
package battle

import (
	"fmt"
	"strings"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/servant"
)

// MaxTurns caps the simulation length. A battle still alive after this
// many turns is decided on remaining health.
const MaxTurns = 30

// critBase and critPerLevel define the critical-hit chance
// 0.10 + 0.01*level. The chance is deliberately uncapped: from level 90
// up every strike crits.
const (
	critBase       = 0.10
	critPerLevel   = 0.01
	critMultiplier = 1.5
)

// phantasmChance is the proc probability of the defender-side noble
// phantasm check, rolled for the attacker once the defender drops below
// half health.
const phantasmChance = 0.15

// Damage variance is uniform in [varianceMin, varianceMin+varianceSpan).
const (
	varianceMin  = 0.8
	varianceSpan = 0.4
)

// Source is the subset of rng.Source the engine needs.
// Using a local interface keeps this package free of upward imports.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// Combatant pairs a resolved stat block with its residual health after
// the simulation.
type Combatant struct {
	Stats servant.StatBlock
	// CurrentHP is the remaining health, floored at 0.
	CurrentHP int
}

// Result is the outcome of one simulated battle.
type Result struct {
	Winner     Combatant
	Loser      Combatant
	Transcript string
	Turns      int
	TimedOut   bool
}

type side struct {
	stats servant.StatBlock
	hp    int
}

// Simulate runs the battle between two resolved stat blocks. The faster
// side strikes first (ties leave a first); turns then alternate strictly
// until one side's health reaches 0 or MaxTurns elapse. On equal residual
// health the second side wins.
//
// Precondition: both stat blocks must have HP > 0; src must be non-nil.
// Postcondition: Result.Winner.CurrentHP >= 0 and >= Result.Loser.CurrentHP,
// except for the exact-tie case where the second positional side wins.
func Simulate(a, b servant.StatBlock, src Source) Result {
	first := &side{stats: a, hp: a.HP}
	second := &side{stats: b, hp: b.HP}

	attacker, defender := first, second
	if b.Speed > a.Speed {
		attacker, defender = second, first
	}

	var log strings.Builder
	turns := 0
	for turn := 1; turn <= MaxTurns; turn++ {
		if first.hp <= 0 || second.hp <= 0 {
			break
		}
		turns = turn

		dmg := attacker.stats.Attack - defender.stats.Defense/2
		if dmg < 1 {
			dmg = 1
		}
		dmg = int(float64(dmg) * (varianceMin + src.Float64()*varianceSpan))

		critChance := critBase + critPerLevel*float64(attacker.stats.Level)
		if src.Float64() < critChance {
			dmg = int(float64(dmg) * critMultiplier)
			fmt.Fprintf(&log, "Turn %d: Critical hit!\n", turn)
		}

		defender.hp -= dmg
		fmt.Fprintf(&log, "Turn %d: %s strikes %s for %d damage! (%s: %d HP left)\n",
			turn, attacker.stats.Name, defender.stats.Name, dmg,
			defender.stats.Name, clampHP(defender.hp))

		if defender.hp < defender.stats.HP/2 && src.Float64() < phantasmChance {
			defender.hp -= attacker.stats.Attack
			fmt.Fprintf(&log, "%s unleashes %s! %d bonus damage!\n",
				attacker.stats.Name, attacker.stats.NoblePhantasm, attacker.stats.Attack)
		}

		attacker, defender = defender, attacker
	}

	timedOut := first.hp > 0 && second.hp > 0
	if timedOut {
		fmt.Fprintf(&log, "The battle reached the %d-turn limit.\n", MaxTurns)
	}

	// Non-strict comparison: an exact tie goes to the second side.
	winner, loser := second, first
	if first.hp > second.hp {
		winner, loser = first, second
	}

	fmt.Fprintf(&log, "%s is victorious with %d/%d HP remaining!",
		winner.stats.Name, clampHP(winner.hp), winner.stats.HP)

	return Result{
		Winner:     Combatant{Stats: winner.stats, CurrentHP: clampHP(winner.hp)},
		Loser:      Combatant{Stats: loser.stats, CurrentHP: clampHP(loser.hp)},
		Transcript: log.String(),
		Turns:      turns,
		TimedOut:   timedOut,
	}
}

func clampHP(hp int) int {
	if hp < 0 {
		return 0
	}
	return hp
}

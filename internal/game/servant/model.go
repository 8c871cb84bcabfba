// Package servant defines the owned servant instance model and the pure
// progression math: base-stat creation from rank, experience/level-up
// handling, and effective stat resolution.
package servant

import (
	"time"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/roster"
)

// Baseline stats before the rank multiplier is applied.
const (
	BaselineAttack  = 100
	BaselineDefense = 100
	BaselineHP      = 1000
	BaselineSpeed   = 50
)

// Stat type identifiers, shared with the item catalogue.
const (
	StatAttack  = "attack"
	StatDefense = "defense"
	StatHP      = "hp"
	StatSpeed   = "speed"
)

// Servant is an owned servant instance. ID is set by the persistence
// layer; a zero ID indicates an unsaved servant.
type Servant struct {
	ID       int64
	MemberID int64
	GuildID  int64

	Name          string
	Class         string
	Rank          roster.Rank
	Description   string
	NoblePhantasm string
	ImageURL      string

	Level      int
	Experience int

	BaseAttack  int
	BaseDefense int
	BaseHP      int
	BaseSpeed   int

	BonusAttack  int
	BonusDefense int
	BonusHP      int
	BonusSpeed   int

	Favorite     bool
	TotalBattles int
	BattlesWon   int

	SummonedAt time.Time
	LastBattle *time.Time
}

// New creates a level-1 servant from a roster definition. Base stats are
// the baselines scaled by the rank multiplier, truncated to integers.
//
// Postcondition: Level == 1, Experience == 0, all bonus stats == 0.
func New(def roster.Definition, memberID, guildID int64) *Servant {
	mult := def.Rank.Multiplier()
	return &Servant{
		MemberID:      memberID,
		GuildID:       guildID,
		Name:          def.Name,
		Class:         def.Class,
		Rank:          def.Rank,
		Description:   def.Description,
		NoblePhantasm: def.NoblePhantasm,
		ImageURL:      def.ImageURL,
		Level:         1,
		BaseAttack:    int(BaselineAttack * mult),
		BaseDefense:   int(BaselineDefense * mult),
		BaseHP:        int(BaselineHP * mult),
		BaseSpeed:     int(BaselineSpeed * mult),
	}
}

// ItemBonus is the stat contribution of one equipped item. Items without
// a stat type are represented by an empty StatType and contribute nothing.
type ItemBonus struct {
	StatType string
	Value    int
}

// StatBlock is a servant's fully resolved combat stats, the input shape
// consumed by the battle engine.
type StatBlock struct {
	ServantID     int64
	Name          string
	NoblePhantasm string
	Rank          roster.Rank
	Level         int
	Attack        int
	Defense       int
	HP            int
	Speed         int
}

// Resolve computes effective stats: base + bonus + matching equipped item
// values. Tolerates a nil or empty bonus list.
//
// Postcondition: With no bonuses, each stat equals base + bonus exactly.
func (s *Servant) Resolve(equipped []ItemBonus) StatBlock {
	blk := StatBlock{
		ServantID:     s.ID,
		Name:          s.Name,
		NoblePhantasm: s.NoblePhantasm,
		Rank:          s.Rank,
		Level:         s.Level,
		Attack:        s.BaseAttack + s.BonusAttack,
		Defense:       s.BaseDefense + s.BonusDefense,
		HP:            s.BaseHP + s.BonusHP,
		Speed:         s.BaseSpeed + s.BonusSpeed,
	}
	for _, b := range equipped {
		switch b.StatType {
		case StatAttack:
			blk.Attack += b.Value
		case StatDefense:
			blk.Defense += b.Value
		case StatHP:
			blk.HP += b.Value
		case StatSpeed:
			blk.Speed += b.Value
		}
	}
	return blk
}

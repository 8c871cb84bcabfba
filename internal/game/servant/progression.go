package servant

// MaxLevel is the level cap; experience accumulates but stops converting
// into levels once reached.
const MaxLevel = 100

// statPointsPerLevel is granted on each level-up and applied to base
// attack, defense and speed; HP gains 10x this amount per point.
const statPointsPerLevel = 2

// hpPerStatPoint scales HP growth relative to the other stats.
const hpPerStatPoint = 10

// Threshold returns the experience needed to advance from the given level.
//
// Precondition: level >= 1.
func Threshold(level int) int {
	return 100 * level
}

// LevelResult reports the outcome of applying experience.
type LevelResult struct {
	// Level is the resulting level.
	Level int
	// Experience is the remaining experience after level-ups.
	Experience int
	// LevelsGained is how many levels were gained (0 if none).
	LevelsGained int
	// StatPointsGained is the total stat points earned from the gain.
	StatPointsGained int
	// NextThreshold is the experience needed for the next level-up.
	NextThreshold int
}

// ApplyExperience is the pure level-up calculation: starting from level
// and exp, add gained experience and convert it into levels while the
// per-level threshold is met and the cap is not.
//
// Precondition: level >= 1; exp >= 0; gained >= 0.
// Postcondition: result.Level >= level; result.Experience < Threshold(result.Level)
// unless result.Level == MaxLevel.
func ApplyExperience(level, exp, gained int) LevelResult {
	exp += gained
	levels := 0
	for exp >= Threshold(level) && level < MaxLevel {
		exp -= Threshold(level)
		level++
		levels++
	}
	return LevelResult{
		Level:            level,
		Experience:       exp,
		LevelsGained:     levels,
		StatPointsGained: levels * statPointsPerLevel,
		NextThreshold:    Threshold(level),
	}
}

// AddExperience applies experience to the servant, mutating level,
// experience and — on level-up — base stats. Attack, defense and speed
// each gain the earned stat points; HP gains 10x that.
//
// Postcondition: Base stats never decrease.
func (s *Servant) AddExperience(amount int) LevelResult {
	res := ApplyExperience(s.Level, s.Experience, amount)
	s.Level = res.Level
	s.Experience = res.Experience
	if res.StatPointsGained > 0 {
		s.BaseAttack += res.StatPointsGained
		s.BaseDefense += res.StatPointsGained
		s.BaseSpeed += res.StatPointsGained
		s.BaseHP += res.StatPointsGained * hpPerStatPoint
	}
	return res
}

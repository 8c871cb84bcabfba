package grailwar

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/challenge"
)

// Sweeper periodically drops expired cooldown rows and stale challenge
// sessions. Housekeeping only: cooldown checks and challenge access
// already filter on expiry, so a missed sweep never affects correctness.
// Sweep failures are logged and retried on the next interval.
type Sweeper struct {
	cooldowns  CooldownStore
	challenges *challenge.Manager
	interval   time.Duration
	logger     *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewSweeper returns a sweeper firing every interval.
//
// Precondition: interval must be > 0.
func NewSweeper(cooldowns CooldownStore, challenges *challenge.Manager, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		panic("grailwar.NewSweeper: interval must be > 0")
	}
	return &Sweeper{
		cooldowns:  cooldowns,
		challenges: challenges,
		interval:   interval,
		logger:     logger,
		stop:       make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled. It
// blocks, which fits the lifecycle Service contract.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop ends the loop. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Sweeper) sweep(ctx context.Context) {
	removedChallenges := s.challenges.Sweep()

	removedCooldowns, err := s.cooldowns.PurgeExpired(ctx)
	if err != nil {
		s.logger.Warn("cooldown sweep failed", zap.Error(err))
		return
	}
	if removedCooldowns > 0 || removedChallenges > 0 {
		s.logger.Debug("sweep complete",
			zap.Int64("cooldowns_removed", removedCooldowns),
			zap.Int("challenges_removed", removedChallenges),
		)
	}
}

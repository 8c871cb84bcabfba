// Package observability provides structured logging for the grail war
// backend, including the shared field vocabulary the workflow services
// log with.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Shared field constructors. Every service logs guild and member IDs
// under the same keys so log queries can follow one member across the
// summon, battle, and economy flows.

func GuildID(id int64) zap.Field { return zap.Int64("guild_id", id) }

func MemberID(id int64) zap.Field { return zap.Int64("member_id", id) }

func ServantID(id int64) zap.Field { return zap.Int64("servant_id", id) }

func BattleID(id int64) zap.Field { return zap.Int64("battle_id", id) }

package grailwar

import (
	"go.uber.org/zap"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/config"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/challenge"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/rng"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/roster"
)

// Stores groups every persistence dependency the workflow layer needs.
type Stores struct {
	Guilds    GuildStore
	Members   MemberStore
	Servants  ServantStore
	Items     ItemStore
	Inventory InventoryStore
	Equipment EquipmentStore
	Battles   BattleStore
	Missions  MissionStore
	Cooldowns CooldownStore
	AdminLogs AdminLogStore
}

// Services is the fully wired workflow layer. A chat gateway embeds this
// and maps its commands onto the service methods.
type Services struct {
	Summon      *SummonService
	Battle      *BattleService
	Economy     *EconomyService
	Missions    *MissionService
	Equipment   *EquipmentService
	Leaderboard *LeaderboardService
	Admin       *AdminService

	Challenges *challenge.Manager
	Sweeper    *Sweeper
}

// NewServices wires every service against the given stores. mirror may be
// nil when the Redis leaderboard is disabled.
func NewServices(stores Stores, ros *roster.Roster, mirror RatingMirror, src rng.Source, game config.GameConfig, logger *zap.Logger) *Services {
	challenges := challenge.NewManager(game.ChallengeTTL)
	return &Services{
		Summon: NewSummonService(stores.Guilds, stores.Members, stores.Servants,
			stores.Missions, ros, src, game.DefaultMaxServants, logger),
		Battle: NewBattleService(challenges, stores.Members, stores.Servants,
			stores.Equipment, stores.Battles, stores.Cooldowns, stores.Missions,
			mirror, src, game.BattleCooldown, logger),
		Economy:     NewEconomyService(stores.Members, stores.Items, stores.Inventory, logger),
		Missions:    NewMissionService(stores.Missions, stores.Members, logger),
		Equipment:   NewEquipmentService(stores.Servants, stores.Items, stores.Inventory, stores.Equipment, stores.Missions, logger),
		Leaderboard: NewLeaderboardService(stores.Members, mirror, logger),
		Admin:       NewAdminService(stores.Guilds, stores.Members, stores.Servants, stores.AdminLogs, ros, game.DefaultMaxServants, logger),
		Challenges:  challenges,
		Sweeper:     NewSweeper(stores.Cooldowns, challenges, game.SweepInterval, logger),
	}
}

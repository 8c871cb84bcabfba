package grailwar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/game/servant"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/postgres"
	"github.com/vicky-or-victoria/Fate-Unreal-Risk/internal/storage/redisboard"
)

// In-memory store fakes. Each mirrors the conditional-update semantics of
// its PostgreSQL counterpart so workflow tests exercise the same
// failure paths without a database.

type memberKey struct{ member, guild int64 }

type fakeMembers struct {
	rows map[memberKey]*postgres.Member
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{rows: make(map[memberKey]*postgres.Member)}
}

func (f *fakeMembers) GetOrCreate(_ context.Context, memberID, guildID int64) (*postgres.Member, error) {
	k := memberKey{memberID, guildID}
	if m, ok := f.rows[k]; ok {
		cp := *m
		return &cp, nil
	}
	m := &postgres.Member{
		MemberID: memberID, GuildID: guildID,
		SaintQuartz: 100, SummonTickets: 3, Rating: 1000,
	}
	f.rows[k] = m
	cp := *m
	return &cp, nil
}

func (f *fakeMembers) Get(_ context.Context, memberID, guildID int64) (*postgres.Member, error) {
	m, ok := f.rows[memberKey{memberID, guildID}]
	if !ok {
		return nil, postgres.ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMembers) Register(ctx context.Context, memberID, guildID int64) (*postgres.Member, error) {
	if _, err := f.GetOrCreate(ctx, memberID, guildID); err != nil {
		return nil, err
	}
	m := f.rows[memberKey{memberID, guildID}]
	m.IsRegistered = true
	if m.RegisteredAt == nil {
		now := time.Now()
		m.RegisteredAt = &now
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMembers) AdjustBalance(_ context.Context, memberID, guildID int64, quartzDelta, ticketDelta int) (*postgres.Member, error) {
	m, ok := f.rows[memberKey{memberID, guildID}]
	if !ok {
		return nil, postgres.ErrMemberNotFound
	}
	if m.SaintQuartz+quartzDelta < 0 || m.SummonTickets+ticketDelta < 0 {
		return nil, postgres.ErrInsufficientBalance
	}
	m.SaintQuartz += quartzDelta
	m.SummonTickets += ticketDelta
	cp := *m
	return &cp, nil
}

func (f *fakeMembers) RecordDailyClaim(_ context.Context, memberID, guildID int64, claimedAt time.Time, streak, longest int) error {
	m, ok := f.rows[memberKey{memberID, guildID}]
	if !ok {
		return postgres.ErrMemberNotFound
	}
	t := claimedAt
	m.LastDailyClaim = &t
	m.CurrentStreak = streak
	m.LongestStreak = longest
	return nil
}

func (f *fakeMembers) ApplyBattleOutcome(_ context.Context, guildID, winnerID, loserID int64, ratingDelta int) error {
	w, ok := f.rows[memberKey{winnerID, guildID}]
	if !ok {
		return postgres.ErrMemberNotFound
	}
	l, ok := f.rows[memberKey{loserID, guildID}]
	if !ok {
		return postgres.ErrMemberNotFound
	}
	w.BattleWins++
	w.Rating += ratingDelta
	l.BattleLosses++
	l.Rating -= ratingDelta
	if l.Rating < 0 {
		l.Rating = 0
	}
	l.CurrentStreak = 0
	return nil
}

func (f *fakeMembers) IncrementSummons(_ context.Context, memberID, guildID int64) error {
	m, ok := f.rows[memberKey{memberID, guildID}]
	if !ok {
		return postgres.ErrMemberNotFound
	}
	m.TotalSummons++
	return nil
}

func (f *fakeMembers) TopByRating(_ context.Context, guildID int64, limit int) ([]postgres.RatingEntry, error) {
	entries := make([]postgres.RatingEntry, 0)
	for _, m := range f.rows {
		if m.GuildID == guildID && m.IsRegistered {
			entries = append(entries, postgres.RatingEntry{
				MemberID: m.MemberID, Rating: m.Rating, Wins: m.BattleWins, Losses: m.BattleLosses,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rating > entries[j].Rating })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeMembers) Census(_ context.Context, guildID int64) (*postgres.GuildCensus, error) {
	c := &postgres.GuildCensus{}
	for _, m := range f.rows {
		if m.GuildID == guildID {
			c.Members++
			if m.IsRegistered {
				c.Registered++
			}
		}
	}
	return c, nil
}

type fakeGuilds struct {
	rows map[int64]*postgres.Guild
}

func newFakeGuilds() *fakeGuilds { return &fakeGuilds{rows: make(map[int64]*postgres.Guild)} }

func (f *fakeGuilds) GetOrCreate(_ context.Context, guildID int64, defaultMaxSummons int) (*postgres.Guild, error) {
	if g, ok := f.rows[guildID]; ok {
		cp := *g
		return &cp, nil
	}
	g := &postgres.Guild{GuildID: guildID, MaxSummons: defaultMaxSummons}
	f.rows[guildID] = g
	cp := *g
	return &cp, nil
}

func (f *fakeGuilds) Get(_ context.Context, guildID int64) (*postgres.Guild, error) {
	g, ok := f.rows[guildID]
	if !ok {
		return nil, postgres.ErrGuildNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGuilds) SetMaxSummons(_ context.Context, guildID int64, maxSummons int) error {
	g, ok := f.rows[guildID]
	if !ok {
		return postgres.ErrGuildNotFound
	}
	g.MaxSummons = maxSummons
	return nil
}

func (f *fakeGuilds) SetRegistrationConfig(_ context.Context, guildID, roleID, channelID, messageID int64) error {
	g, ok := f.rows[guildID]
	if !ok {
		return postgres.ErrGuildNotFound
	}
	g.RegistrationRoleID = &roleID
	g.RegistrationChannelID = &channelID
	g.RegistrationMessageID = &messageID
	return nil
}

func (f *fakeGuilds) SetBattleForum(_ context.Context, guildID, forumID int64) error {
	g, ok := f.rows[guildID]
	if !ok {
		return postgres.ErrGuildNotFound
	}
	g.BattleForumID = &forumID
	return nil
}

type fakeServants struct {
	rows   map[int64]*servant.Servant
	nextID int64
}

func newFakeServants() *fakeServants { return &fakeServants{rows: make(map[int64]*servant.Servant)} }

func (f *fakeServants) Create(_ context.Context, s *servant.Servant) (*servant.Servant, error) {
	f.nextID++
	cp := *s
	cp.ID = f.nextID
	cp.SummonedAt = time.Now()
	f.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeServants) ListByMember(_ context.Context, memberID, guildID int64) ([]*servant.Servant, error) {
	out := make([]*servant.Servant, 0)
	for _, s := range f.rows {
		if s.MemberID == memberID && s.GuildID == guildID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeServants) Get(_ context.Context, id int64) (*servant.Servant, error) {
	s, ok := f.rows[id]
	if !ok {
		return nil, postgres.ErrServantNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeServants) CountByMember(ctx context.Context, memberID, guildID int64) (int, error) {
	list, _ := f.ListByMember(ctx, memberID, guildID)
	return len(list), nil
}

func (f *fakeServants) Delete(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return postgres.ErrServantNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeServants) SetFavorite(_ context.Context, id int64, favorite bool) error {
	s, ok := f.rows[id]
	if !ok {
		return postgres.ErrServantNotFound
	}
	s.Favorite = favorite
	return nil
}

func (f *fakeServants) SaveProgress(_ context.Context, s *servant.Servant) error {
	row, ok := f.rows[s.ID]
	if !ok {
		return postgres.ErrServantNotFound
	}
	row.Level = s.Level
	row.Experience = s.Experience
	row.BaseAttack = s.BaseAttack
	row.BaseDefense = s.BaseDefense
	row.BaseHP = s.BaseHP
	row.BaseSpeed = s.BaseSpeed
	row.BonusAttack = s.BonusAttack
	row.BonusDefense = s.BonusDefense
	row.BonusHP = s.BonusHP
	row.BonusSpeed = s.BonusSpeed
	return nil
}

func (f *fakeServants) RecordBattle(_ context.Context, id int64, won bool) error {
	s, ok := f.rows[id]
	if !ok {
		return postgres.ErrServantNotFound
	}
	s.TotalBattles++
	if won {
		s.BattlesWon++
	}
	now := time.Now()
	s.LastBattle = &now
	return nil
}

type fakeItems struct {
	rows map[int64]*postgres.Item
}

func newFakeItems(items ...postgres.Item) *fakeItems {
	f := &fakeItems{rows: make(map[int64]*postgres.Item)}
	for i := range items {
		it := items[i]
		f.rows[it.ID] = &it
	}
	return f
}

func (f *fakeItems) Get(_ context.Context, id int64) (*postgres.Item, error) {
	it, ok := f.rows[id]
	if !ok {
		return nil, postgres.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeItems) GetByName(_ context.Context, name string) (*postgres.Item, error) {
	for _, it := range f.rows {
		if it.Name == name {
			cp := *it
			return &cp, nil
		}
	}
	return nil, postgres.ErrItemNotFound
}

func (f *fakeItems) ListShop(_ context.Context) ([]*postgres.Item, error) {
	out := make([]*postgres.Item, 0)
	for _, it := range f.rows {
		if it.Price > 0 {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

type invKey struct{ member, guild, item int64 }

type fakeInventory struct {
	rows  map[invKey]int
	items *fakeItems
}

func newFakeInventory(items *fakeItems) *fakeInventory {
	return &fakeInventory{rows: make(map[invKey]int), items: items}
}

func (f *fakeInventory) Add(_ context.Context, memberID, guildID, itemID int64, quantity int) error {
	f.rows[invKey{memberID, guildID, itemID}] += quantity
	return nil
}

func (f *fakeInventory) Remove(_ context.Context, memberID, guildID, itemID int64, quantity int) error {
	k := invKey{memberID, guildID, itemID}
	if f.rows[k] < quantity {
		return postgres.ErrNotInInventory
	}
	f.rows[k] -= quantity
	if f.rows[k] == 0 {
		delete(f.rows, k)
	}
	return nil
}

func (f *fakeInventory) Quantity(_ context.Context, memberID, guildID, itemID int64) (int, error) {
	return f.rows[invKey{memberID, guildID, itemID}], nil
}

func (f *fakeInventory) List(ctx context.Context, memberID, guildID int64) ([]postgres.InventoryEntry, error) {
	out := make([]postgres.InventoryEntry, 0)
	for k, qty := range f.rows {
		if k.member == memberID && k.guild == guildID {
			it, err := f.items.Get(ctx, k.item)
			if err != nil {
				return nil, err
			}
			out = append(out, postgres.InventoryEntry{Item: *it, Quantity: qty})
		}
	}
	return out, nil
}

type fakeEquipment struct {
	// servantID -> slot -> itemID
	slots map[int64]map[string]int64
	items *fakeItems
}

func newFakeEquipment(items *fakeItems) *fakeEquipment {
	return &fakeEquipment{slots: make(map[int64]map[string]int64), items: items}
}

func (f *fakeEquipment) Equip(_ context.Context, servantID, itemID int64, slotType string) error {
	if f.slots[servantID] == nil {
		f.slots[servantID] = make(map[string]int64)
	}
	f.slots[servantID][slotType] = itemID
	return nil
}

func (f *fakeEquipment) Unequip(_ context.Context, servantID int64, slotType string) error {
	if _, ok := f.slots[servantID][slotType]; !ok {
		return postgres.ErrNothingEquipped
	}
	delete(f.slots[servantID], slotType)
	return nil
}

func (f *fakeEquipment) List(ctx context.Context, servantID int64) ([]postgres.EquippedItem, error) {
	out := make([]postgres.EquippedItem, 0)
	for slot, itemID := range f.slots[servantID] {
		it, err := f.items.Get(ctx, itemID)
		if err != nil {
			return nil, err
		}
		out = append(out, postgres.EquippedItem{Item: *it, SlotType: slot})
	}
	return out, nil
}

func (f *fakeEquipment) Bonuses(ctx context.Context, servantID int64) ([]servant.ItemBonus, error) {
	out := make([]servant.ItemBonus, 0)
	for _, itemID := range f.slots[servantID] {
		it, err := f.items.Get(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if it.StatType != "" {
			out = append(out, servant.ItemBonus{StatType: it.StatType, Value: it.StatValue})
		}
	}
	return out, nil
}

type fakeBattles struct {
	rows   map[int64]*postgres.Battle
	nextID int64
}

func newFakeBattles() *fakeBattles { return &fakeBattles{rows: make(map[int64]*postgres.Battle)} }

func (f *fakeBattles) Create(_ context.Context, guildID, challengerID, opponentID, challengerServantID, opponentServantID int64, battleType string) (*postgres.Battle, error) {
	f.nextID++
	b := &postgres.Battle{
		ID: f.nextID, GuildID: guildID,
		ChallengerID: challengerID, OpponentID: opponentID,
		ChallengerServantID: &challengerServantID, OpponentServantID: &opponentServantID,
		BattleType: battleType, StartedAt: time.Now(),
	}
	f.rows[b.ID] = b
	cp := *b
	return &cp, nil
}

func (f *fakeBattles) Get(_ context.Context, id int64) (*postgres.Battle, error) {
	b, ok := f.rows[id]
	if !ok {
		return nil, postgres.ErrBattleNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBattles) Complete(_ context.Context, id, winnerID int64, battleLog string, ratingChange, experienceGained int) error {
	b, ok := f.rows[id]
	if !ok {
		return postgres.ErrBattleNotFound
	}
	if b.CompletedAt != nil {
		return postgres.ErrBattleAlreadyComplete
	}
	now := time.Now()
	b.WinnerID = &winnerID
	b.BattleLog = battleLog
	b.RatingChange = &ratingChange
	b.ExperienceGained = &experienceGained
	b.CompletedAt = &now
	return nil
}

func (f *fakeBattles) SetForumThread(_ context.Context, id, threadID int64) error {
	b, ok := f.rows[id]
	if !ok {
		return postgres.ErrBattleNotFound
	}
	b.ForumThreadID = &threadID
	return nil
}

func (f *fakeBattles) HistoryByMember(_ context.Context, guildID, memberID int64, limit int) ([]*postgres.Battle, error) {
	out := make([]*postgres.Battle, 0)
	for _, b := range f.rows {
		if b.GuildID == guildID && b.CompletedAt != nil &&
			(b.ChallengerID == memberID || b.OpponentID == memberID) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type progressKey struct {
	member, guild, mission int64
	day                    string
}

type fakeMissions struct {
	defs     []postgres.Mission
	progress map[progressKey]*postgres.MissionProgress
}

func newFakeMissions(defs ...postgres.Mission) *fakeMissions {
	return &fakeMissions{defs: defs, progress: make(map[progressKey]*postgres.MissionProgress)}
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

func (f *fakeMissions) ListMissions(_ context.Context) ([]postgres.Mission, error) {
	return append([]postgres.Mission(nil), f.defs...), nil
}

func (f *fakeMissions) EnsureDailyProgress(_ context.Context, memberID, guildID int64, day time.Time) error {
	for _, d := range f.defs {
		k := progressKey{memberID, guildID, d.ID, dayKey(day)}
		if _, ok := f.progress[k]; !ok {
			f.progress[k] = &postgres.MissionProgress{Mission: d, ResetDate: day}
		}
	}
	return nil
}

func (f *fakeMissions) ListProgress(_ context.Context, memberID, guildID int64, day time.Time) ([]postgres.MissionProgress, error) {
	out := make([]postgres.MissionProgress, 0)
	for k, p := range f.progress {
		if k.member == memberID && k.guild == guildID && k.day == dayKey(day) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mission.ID < out[j].Mission.ID })
	return out, nil
}

func (f *fakeMissions) IncrementProgress(ctx context.Context, memberID, guildID int64, missionType string, amount int, day time.Time) error {
	if err := f.EnsureDailyProgress(ctx, memberID, guildID, day); err != nil {
		return err
	}
	for _, d := range f.defs {
		if d.MissionType != missionType {
			continue
		}
		p := f.progress[progressKey{memberID, guildID, d.ID, dayKey(day)}]
		p.Progress += amount
		if p.Progress >= d.Requirement {
			p.Completed = true
		}
	}
	return nil
}

func (f *fakeMissions) ResetProgress(_ context.Context, memberID, guildID int64, missionType string, day time.Time) error {
	for _, d := range f.defs {
		if d.MissionType != missionType {
			continue
		}
		p, ok := f.progress[progressKey{memberID, guildID, d.ID, dayKey(day)}]
		if !ok || p.Completed {
			continue
		}
		p.Progress = 0
	}
	return nil
}

func (f *fakeMissions) Claim(_ context.Context, memberID, guildID, missionID int64, day time.Time) (*postgres.Mission, error) {
	p, ok := f.progress[progressKey{memberID, guildID, missionID, dayKey(day)}]
	if !ok || !p.Completed || p.Claimed {
		return nil, postgres.ErrMissionNotClaimable
	}
	p.Claimed = true
	cp := p.Mission
	return &cp, nil
}

type cooldownKey struct {
	member, guild int64
	action        string
}

// fakeCooldowns is mutex-guarded because the sweeper purges it from its
// own goroutine.
type fakeCooldowns struct {
	mu   sync.Mutex
	rows map[cooldownKey]time.Time
	now  func() time.Time
}

func newFakeCooldowns(now func() time.Time) *fakeCooldowns {
	return &fakeCooldowns{rows: make(map[cooldownKey]time.Time), now: now}
}

func (f *fakeCooldowns) Set(_ context.Context, memberID, guildID int64, actionType string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[cooldownKey{memberID, guildID, actionType}] = expiresAt
	return nil
}

func (f *fakeCooldowns) ActiveUntil(_ context.Context, memberID, guildID int64, actionType string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exp, ok := f.rows[cooldownKey{memberID, guildID, actionType}]
	if !ok || !exp.After(f.now()) {
		return nil, nil
	}
	return &exp, nil
}

func (f *fakeCooldowns) PurgeExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for k, exp := range f.rows {
		if !exp.After(f.now()) {
			delete(f.rows, k)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeCooldowns) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeAdminLogs struct {
	entries []postgres.AdminLogEntry
}

func (f *fakeAdminLogs) Record(_ context.Context, guildID, adminID int64, actionType string, targetMemberID *int64, details string) error {
	f.entries = append(f.entries, postgres.AdminLogEntry{
		ID: int64(len(f.entries) + 1), GuildID: guildID, AdminID: adminID,
		ActionType: actionType, TargetMemberID: targetMemberID,
		Details: details, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeAdminLogs) Recent(_ context.Context, guildID int64, limit int) ([]postgres.AdminLogEntry, error) {
	out := make([]postgres.AdminLogEntry, 0)
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].GuildID == guildID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

type fakeMirror struct {
	ratings map[int64]map[int64]int
	fail    bool
}

func newFakeMirror() *fakeMirror { return &fakeMirror{ratings: make(map[int64]map[int64]int)} }

func (f *fakeMirror) SetRating(_ context.Context, guildID, memberID int64, rating int) error {
	if f.fail {
		return context.DeadlineExceeded
	}
	if f.ratings[guildID] == nil {
		f.ratings[guildID] = make(map[int64]int)
	}
	f.ratings[guildID][memberID] = rating
	return nil
}

func (f *fakeMirror) Top(_ context.Context, guildID int64, limit int) ([]redisboard.Entry, error) {
	if f.fail {
		return nil, context.DeadlineExceeded
	}
	out := make([]redisboard.Entry, 0)
	for memberID, rating := range f.ratings[guildID] {
		out = append(out, redisboard.Entry{MemberID: memberID, Rating: rating})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (f *fakeMirror) Rank(_ context.Context, guildID, memberID int64) (int, error) {
	top, err := f.Top(context.Background(), guildID, 1<<30)
	if err != nil {
		return 0, err
	}
	for _, e := range top {
		if e.MemberID == memberID {
			return e.Rank, nil
		}
	}
	return 0, nil
}

func (f *fakeMirror) Remove(_ context.Context, guildID, memberID int64) error {
	delete(f.ratings[guildID], memberID)
	return nil
}

func (f *fakeMirror) Rebuild(_ context.Context, guildID int64, ratings map[int64]int) error {
	if f.fail {
		return context.DeadlineExceeded
	}
	cp := make(map[int64]int, len(ratings))
	for k, v := range ratings {
		cp[k] = v
	}
	f.ratings[guildID] = cp
	return nil
}

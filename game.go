package main

import (
	"context"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"time"
)

const (
	SnapshotEvery = 15 // ticks between published snapshots
	overrunSlack  = 100 * time.Millisecond
	joinBuf       = 64
)

// Session is one connected player as the engine sees it
type Session struct {
	Name string
	Conn LineConn
	In   <-chan Command
	Out  chan string
	Ship *Ship
}

// Game owns the world. Only the goroutine running Run touches it.
type Game struct {
	cfg       Config
	dt        float64
	joins     chan Join
	sessions  map[string]*Session
	hazard    *Hazard
	kraken    Kraken
	rng       *rand.Rand
	metrics   *Metrics
	journal   *Analytics
	snapshots *SnapshotStore
	grid      *ShipGrid
	nearby    []*Ship
	tick      uint64
	joined    bool
	events    []string

	// startWriter launches the outbound pump for an admitted session
	startWriter func(s *Session)
}

// NewGame creates the engine. journal and snapshots may be nil.
func NewGame(cfg Config, rng *rand.Rand, m *Metrics, journal *Analytics, snapshots *SnapshotStore) *Game {
	if m == nil {
		m = &Metrics{}
	}
	return &Game{
		cfg:       cfg,
		dt:        1 / float64(cfg.Game.TickRate),
		joins:     make(chan Join, joinBuf),
		sessions:  make(map[string]*Session),
		hazard:    NewHazard(cfg.Map, cfg.Hazard),
		rng:       rng,
		metrics:   m,
		journal:   journal,
		snapshots: snapshots,
		grid:      NewShipGrid(),
		startWriter: func(s *Session) {
			go WritePump(s.Conn, s.Name, s.Out)
		},
	}
}

// Joins is where the hub delivers handshaken connections
func (g *Game) Joins() chan<- Join {
	return g.joins
}

// Session returns the named session, or nil
func (g *Game) Session(name string) *Session {
	return g.sessions[name]
}

// Boss returns the boss ship, or nil when it is absent
func (g *Game) Boss() *Ship {
	return g.kraken.Ship
}

// Run advances the world at the configured tick rate until ctx is cancelled or,
// with exitWhenEmpty, the last player leaves.
func (g *Game) Run(ctx context.Context) error {
	defer g.shutdown()

	rate := g.cfg.Game.TickRate
	tickDur := time.Second / time.Duration(rate)
	blockStart := time.Now()
	next := blockStart

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		done := g.Tick()
		g.metrics.AddTick(time.Since(start).Nanoseconds())
		if done {
			Log.Infow("all players gone, stopping", "ticks", g.tick)
			return nil
		}

		if g.tick%uint64(rate) == 0 {
			if extra := time.Since(blockStart) - time.Second; extra > overrunSlack {
				g.metrics.TickOverruns.Add(1)
				Log.Warnw("Can't keep up, is the server overloaded?", "behind_ms", extra.Milliseconds())
			}
			blockStart = time.Now()
		}

		next = next.Add(tickDur)
		wait := time.Until(next)
		if wait <= 0 {
			next = time.Now()
			continue
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tick runs one simulation step and reports whether the engine should stop
func (g *Game) Tick() bool {
	g.tick++
	g.events = g.events[:0]
	dt := g.dt

	g.admitJoins()
	g.drainInputs()

	ships := g.ships()
	for _, sh := range ships {
		sh.immobilized = false
	}
	g.respawn(ships)
	g.index(ships)
	g.updateBoss()

	for _, sh := range ships {
		if !sh.Active() || sh.Immobilized() {
			continue
		}
		sh.Step(dt)
		g.emitEffects(sh)
	}

	for _, sh := range ships {
		sank, splashes := g.hazard.Apply(g.rng, sh, dt)
		for _, sp := range splashes {
			g.emit(sp.String())
		}
		if sank {
			g.sink(sh, g.hazard.Kind)
		}
	}

	g.index(ships)
	g.combat(ships)

	if g.kraken.TrySpawn(g.rng, g.hazard, ships, g.cfg.Hazard.BossChance, dt) {
		boss := g.kraken.Ship
		g.metrics.BossSpawns.Add(1)
		g.journal.TrackShip(EvtBossSpawn, boss, "")
		Log.Infow("kraken surfaced", "x", boss.X, "y", boss.Y, "health", boss.Stats.MaxHealth)
	}

	g.broadcast()
	if g.tick%SnapshotEvery == 0 {
		g.publishSnapshot()
	}

	return g.cfg.Game.ExitWhenEmpty && g.joined && len(g.sessions) == 0
}

// ships returns player ships in name order so a seeded run is reproducible
func (g *Game) ships() []*Ship {
	names := slices.Sorted(maps.Keys(g.sessions))
	out := make([]*Ship, 0, len(names))
	for _, n := range names {
		out = append(out, g.sessions[n].Ship)
	}
	return out
}

func (g *Game) sortedSessions() []*Session {
	names := slices.Sorted(maps.Keys(g.sessions))
	out := make([]*Session, 0, len(names))
	for _, n := range names {
		out = append(out, g.sessions[n])
	}
	return out
}

func (g *Game) emit(line string) {
	g.events = append(g.events, line)
}

func (g *Game) admitJoins() {
	for {
		select {
		case j := <-g.joins:
			g.admit(j)
		default:
			return
		}
	}
}

func (g *Game) admit(j Join) {
	if _, taken := g.sessions[j.Name]; taken || !ValidName(j.Name) {
		Log.Infow("rejecting join", "name", j.Name, "addr", j.Conn.RemoteAddr())
		g.metrics.ConnsRejected.Add(1)
		// a websocket close writes a frame; keep it off the tick
		go j.Conn.Close()
		return
	}
	s := &Session{
		Name: j.Name,
		Conn: j.Conn,
		In:   j.In,
		Out:  make(chan string, g.cfg.Server.SendBuffer),
		Ship: NewShip(g.rng, j.Name, g.cfg.Spawn.Radius),
	}
	if g.hazard.Bordered() {
		Send(s.Out, FormatRadius(g.hazard.Radius), g.metrics)
	}
	g.sessions[s.Name] = s
	g.joined = true
	g.startWriter(s)

	g.metrics.Joins.Add(1)
	g.metrics.Online.Store(int64(len(g.sessions)))
	g.journal.TrackShip(EvtJoin, s.Ship, "")
	Log.Infow("player joined", "name", s.Name, "class", s.Ship.Stats.Class.String(), "addr", j.Conn.RemoteAddr())
}

func (g *Game) drainInputs() {
	var gone []*Session
	for _, s := range g.sortedSessions() {
		if !g.drain(s) {
			gone = append(gone, s)
		}
	}
	for _, s := range gone {
		g.depart(s)
	}
}

// drain applies queued commands and reports false once the reader has closed
func (g *Game) drain(s *Session) bool {
	for {
		select {
		case cmd, ok := <-s.In:
			if !ok {
				return false
			}
			g.apply(s.Ship, cmd)
		default:
			return true
		}
	}
}

func (g *Game) apply(sh *Ship, cmd Command) {
	if !sh.Active() {
		return
	}
	switch cmd.Kind {
	case CmdSail:
		sh.Sail(cmd.Power, cmd.Helm)
	case CmdAnchor:
		sh.Anchor()
	case CmdSmoke:
		sh.ToggleSmoke()
	case CmdAction:
		if !sh.Invoke(cmd.Index) {
			g.metrics.ProtocolErrors.Add(1)
			Log.Debugw("no such action", "name", sh.Name, "index", cmd.Index, "class", sh.Stats.Class.String())
		}
	}
}

func (g *Game) depart(s *Session) {
	delete(g.sessions, s.Name)
	close(s.Out)
	g.emit(FormatSunk(s.Name))

	g.metrics.Departures.Add(1)
	g.metrics.Online.Store(int64(len(g.sessions)))
	g.journal.TrackShip(EvtLeave, s.Ship, "")
	Log.Infow("player left", "name", s.Name)
}

func (g *Game) respawn(ships []*Ship) {
	for _, sh := range ships {
		if sh.Active() {
			continue
		}
		sh.RespawnTicks--
		if sh.RespawnTicks <= 0 {
			sh.Respawn(g.rng, g.cfg.Spawn.Radius)
			g.journal.TrackShip(EvtRespawn, sh, "")
			Log.Debugw("ship respawned", "name", sh.Name, "class", sh.Stats.Class.String())
		}
	}
}

// sink handles a player ship going down
func (g *Game) sink(sh *Ship, by string) {
	sh.RespawnTicks = g.cfg.RespawnTicks()
	sh.Velocity = 0
	sh.Power = 0
	sh.Helm = 0
	sh.Smoke = false
	g.emit(FormatSunk(sh.Name))

	g.metrics.Sinkings.Add(1)
	g.journal.TrackShip(EvtSunk, sh, by)
	Log.Infow("ship sunk", "name", sh.Name, "by", by)
}

// index rebuilds the broad-phase grid from the active ships and the boss
func (g *Game) index(ships []*Ship) {
	g.grid.Clear()
	for _, sh := range ships {
		if sh.Active() {
			g.grid.Insert(sh)
		}
	}
	if g.kraken.Present() {
		g.grid.Insert(g.kraken.Ship)
	}
}

func (g *Game) updateBoss() {
	boss := g.kraken.Ship
	if boss == nil {
		return
	}
	g.nearby = g.grid.QueryBuf(boss.X, boss.Y, boss.Stats.GunRange, g.nearby[:0])
	g.nearby = slices.DeleteFunc(g.nearby, func(sh *Ship) bool { return sh == boss })
	turn, cause := g.kraken.Update(g.rng, g.nearby, g.dt)
	if cause != "" {
		g.bossGone(boss, cause)
		return
	}
	if !turn.Fired {
		return
	}
	g.metrics.Shots.Add(1)
	g.emit(shotSplash(turn.Shot).String())
	if turn.Shot.Outcome == ShotSunk {
		g.sink(turn.Victim, BossName)
	}
}

func (g *Game) bossGone(boss *Ship, cause string) {
	g.emit(FormatSunk(BossName))
	g.journal.TrackShip(EvtBossDespawn, boss, cause)
	Log.Infow("kraken gone", "cause", cause, "cooldown", g.kraken.Cooldown)
}

func (g *Game) combat(ships []*Ship) {
	for _, sh := range ships {
		if !sh.Active() {
			continue
		}
		ReloadGuns(sh, g.dt)
		if sh.Submerged {
			continue
		}
		g.nearby = g.grid.QueryBuf(sh.X, sh.Y, sh.Stats.GunRange, g.nearby[:0])
		target := NearestTarget(sh, g.nearby)
		if target == nil {
			continue
		}
		shot, fired := Shoot(g.rng, sh, target)
		if !fired {
			continue
		}
		g.metrics.Shots.Add(1)
		g.emit(shotSplash(shot).String())
		if shot.Outcome != ShotSunk {
			continue
		}
		if target == g.kraken.Ship {
			g.kraken.Despawn(BossCauseSunk)
			g.bossGone(target, BossCauseSunk)
			continue
		}
		g.sink(target, sh.Name)
	}
}

func shotSplash(s Shot) Splash {
	if s.Outcome == ShotMiss {
		return Splash{X: s.X, Y: s.Y, Size: 5, Duration: 2, Sprite: SpriteWater, Colour: "ffffff"}
	}
	return Splash{X: s.X, Y: s.Y, Size: 10, Duration: 2, Sprite: SpriteExplosion, Colour: "ff8000"}
}

func (g *Game) emitEffects(sh *Ship) {
	wake, smoke := sh.tickEffects(g.dt)
	if wake {
		fx, fy, _, _ := hullAxes(sh.Angle)
		half := sh.Stats.Length / 2
		g.emit(Wake{
			X: sh.X - fx*half, Y: sh.Y - fy*half,
			Size: sh.Stats.Beam, Angle: sh.Angle,
			Duration: WakeDuration, Growth: WakeGrowthFactor * math.Abs(sh.Velocity),
		}.String())
	}
	if smoke {
		g.emit(Splash{X: sh.X, Y: sh.Y, Size: sh.Stats.Length, Duration: 8, Sprite: SpriteSmoke, Colour: "808080"}.String())
	}
}

func (g *Game) broadcast() {
	sessions := g.sortedSessions()
	var bossLine string
	if g.kraken.Present() {
		bossLine = FormatShip(g.kraken.Ship)
	}
	lines := make([]string, len(sessions))
	for i, s := range sessions {
		if s.Ship.Active() {
			lines[i] = FormatShip(s.Ship)
		}
	}

	for _, s := range sessions {
		for i, other := range sessions {
			if lines[i] == "" {
				continue
			}
			if other.Ship.Submerged && other != s {
				continue
			}
			Send(s.Out, lines[i], g.metrics)
		}
		if bossLine != "" {
			Send(s.Out, bossLine, g.metrics)
		}
		for _, evt := range g.events {
			Send(s.Out, evt, g.metrics)
		}
	}
}

func (g *Game) publishSnapshot() {
	ws := WorldSnapshot{Tick: g.tick, Radius: g.hazard.Radius, Hazard: g.hazard.Kind}
	for _, sh := range g.ships() {
		ws.Ships = append(ws.Ships, snapshotShip(sh))
	}
	if g.kraken.Present() {
		b := snapshotShip(g.kraken.Ship)
		ws.Boss = &b
	}
	if err := g.snapshots.Publish(ws); err != nil {
		Log.Warnw("snapshot encode failed", "err", err)
	}
}

// shutdown closes every outbound queue so the writers hang up
func (g *Game) shutdown() {
	for name, s := range g.sessions {
		close(s.Out)
		delete(g.sessions, name)
	}
	g.metrics.Online.Store(0)
}

package main

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, mutate func(*Config)) *Game {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Game.ExitWhenEmpty = false
	cfg.Server.SendBuffer = 1 << 16
	cfg.Hazard.BossChance = 0
	cfg.Hazard.MineChance = 0
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())
	g := NewGame(cfg, rand.New(rand.NewPCG(1, 2)), &Metrics{}, nil, &SnapshotStore{})
	// no writer goroutine: tests read Out directly. New ships come in
	// disarmed so that only the test decides who fights.
	g.startWriter = func(s *Session) { s.Ship.Stats.GunRange = 0 }
	return g
}

func joinTest(t *testing.T, g *Game, name string) (*Session, *fakeConn, chan Command) {
	t.Helper()
	conn := newFakeConn(name + ":1")
	in := make(chan Command, 16)
	g.Joins() <- Join{Name: name, Conn: conn, In: in}
	g.Tick()
	s := g.Session(name)
	require.NotNil(t, s, "player %s should be admitted", name)
	return s, conn, in
}

// drainOut returns every queued outbound line
func drainOut(s *Session) []string {
	var lines []string
	for {
		select {
		case l, ok := <-s.Out:
			if !ok {
				return lines
			}
			lines = append(lines, l)
		default:
			return lines
		}
	}
}

func countLines(lines []string, want string) int {
	n := 0
	for _, l := range lines {
		if l == want {
			n++
		}
	}
	return n
}

func shipLineFor(lines []string, name string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, "ship "+name+" ") {
			return true
		}
	}
	return false
}

func TestGameAdmitAndBroadcast(t *testing.T) {
	g := newTestGame(t, nil)
	s, _, _ := joinTest(t, g, "Nelson")

	lines := drainOut(s)
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "ship Nelson "), "borderless maps start with ship lines, got %q", lines[0])
	_, err := ParseShipLine(lines[0])
	assert.NoError(t, err)
	assert.Equal(t, int64(1), g.metrics.Joins.Load())
}

func TestGameRadiusIsFirstLine(t *testing.T) {
	g := newTestGame(t, func(c *Config) { c.Map.Radius = 5000 })
	s, _, _ := joinTest(t, g, "Nelson")
	for i := 0; i < 5; i++ {
		g.Tick()
	}
	lines := drainOut(s)
	require.NotEmpty(t, lines)
	assert.Equal(t, "radius 5000", lines[0])
	assert.Equal(t, 1, countLines(lines, "radius 5000"))
}

func TestGameRejectsDuplicateName(t *testing.T) {
	g := newTestGame(t, nil)
	first, _, _ := joinTest(t, g, "Nelson")

	dup := newFakeConn("dup:1")
	g.Joins() <- Join{Name: "Nelson", Conn: dup, In: make(chan Command)}
	g.Tick()

	assert.Eventually(t, dup.isClosed, time.Second, time.Millisecond)
	assert.Same(t, first, g.Session("Nelson"))
	assert.Equal(t, int64(1), g.metrics.Joins.Load())
}

func TestGameRejectsReservedName(t *testing.T) {
	g := newTestGame(t, nil)
	conn := newFakeConn("k:1")
	g.Joins() <- Join{Name: BossName, Conn: conn, In: make(chan Command)}
	g.Tick()
	assert.Eventually(t, conn.isClosed, time.Second, time.Millisecond)
	assert.Nil(t, g.Session(BossName))
}

// slowCloseConn stalls in Close the way a websocket does while it sends a
// close frame to an unresponsive peer.
type slowCloseConn struct {
	*fakeConn
	release chan struct{}
}

func (c *slowCloseConn) Close() error {
	<-c.release
	return c.fakeConn.Close()
}

func TestGameRejectionDoesNotStallTick(t *testing.T) {
	g := newTestGame(t, nil)
	joinTest(t, g, "Nelson")

	slow := &slowCloseConn{fakeConn: newFakeConn("slow:1"), release: make(chan struct{})}
	defer close(slow.release)
	g.Joins() <- Join{Name: "Nelson", Conn: slow, In: make(chan Command)}

	ticked := make(chan struct{})
	go func() {
		g.Tick()
		close(ticked)
	}()
	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("tick blocked on closing a rejected connection")
	}
}

func TestGameIgnoresNonFiniteSail(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.Map.Radius = 1000
		c.Hazard.BossChance = 1e6
	})
	mallory, _, malloryIn := joinTest(t, g, "Mallory")
	nelson, _, _ := joinTest(t, g, "Nelson")
	mallory.Ship.X, mallory.Ship.Y = 0, 0
	nelson.Ship.X, nelson.Ship.Y = 100, 0

	for _, line := range []string{"sail 0 NaN", "sail NaN 0", "sail 0 Inf", "sail -Inf 0"} {
		if cmd, err := ParseCommand(line); err == nil {
			malloryIn <- cmd
		}
	}

	var seen []string
	for i := 0; i < 60; i++ {
		g.Tick()
		seen = append(seen, drainOut(nelson)...)
	}
	sh := mallory.Ship
	assert.False(t, math.IsNaN(sh.X) || math.IsNaN(sh.Y) || math.IsNaN(sh.Angle))
	assert.False(t, math.IsNaN(sh.Stats.Health))
	assert.Zero(t, g.metrics.BossSpawns.Load(), "nobody is beyond the border")
	for _, l := range seen {
		assert.NotContains(t, l, "NaN")
	}
}

func TestGameAppliesCommands(t *testing.T) {
	g := newTestGame(t, nil)
	s, _, in := joinTest(t, g, "Nelson")

	in <- Command{Kind: CmdSail, Power: 3, Helm: 0.5}
	in <- Command{Kind: CmdSmoke}
	g.Tick()

	assert.Equal(t, 1.0, s.Ship.Power)
	assert.Equal(t, 0.5, s.Ship.Helm)
	assert.True(t, s.Ship.Smoke)
	assert.Greater(t, s.Ship.Velocity, 0.0, "physics runs after input")
}

func TestGameDepartureBroadcastsSunk(t *testing.T) {
	g := newTestGame(t, nil)
	nelson, _, _ := joinTest(t, g, "Nelson")
	_, _, drakeIn := joinTest(t, g, "Drake")
	drainOut(nelson)

	close(drakeIn)
	g.Tick()

	assert.Nil(t, g.Session("Drake"))
	lines := drainOut(nelson)
	assert.Equal(t, 1, countLines(lines, "sunk Drake"))
	assert.False(t, shipLineFor(lines, "Drake"))
	assert.Equal(t, int64(1), g.metrics.Departures.Load())
}

func TestGameRespawnAtCounterZero(t *testing.T) {
	g := newTestGame(t, func(c *Config) { c.Respawn.Seconds = 0.1 }) // 6 ticks
	s, _, _ := joinTest(t, g, "Nelson")
	sh := s.Ship

	sh.Damage(1e12)
	g.sink(sh, "test")
	require.Equal(t, 6, sh.RespawnTicks)

	for i := 1; i < 6; i++ {
		g.Tick()
		require.True(t, sh.Sunk, "still sunk after %d ticks", i)
		require.Equal(t, 6-i, sh.RespawnTicks)
	}
	g.Tick()
	assert.False(t, sh.Sunk)
	assert.Equal(t, sh.Stats.MaxHealth, sh.Stats.Health)
}

func TestGameOceanSinksParkedShip(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.Map.Radius = 1000
		c.Hazard.DPS = 5
		c.Hazard.Current = 0
		c.Respawn.Seconds = 60
	})
	s, _, _ := joinTest(t, g, "Nelson")
	s.Ship.X = 1e6
	s.Ship.Y = 0
	s.Ship.Power = 0
	s.Ship.Velocity = 0

	var lines []string
	prev := s.Ship.Stats.Health
	for i := 0; i < 120; i++ {
		g.Tick()
		lines = append(lines, drainOut(s)...)
		require.Less(t, s.Ship.Stats.Health, prev, "health must drop every tick (tick %d)", i)
		prev = s.Ship.Stats.Health
	}

	// skip ahead: at 5 hp/s a battleship would take hours
	s.Ship.Stats.Health = 1
	for i := 0; i < 60*10 && !s.Ship.Sunk; i++ {
		g.Tick()
		lines = append(lines, drainOut(s)...)
	}
	require.True(t, s.Ship.Sunk)
	assert.Equal(t, 1, countLines(lines, "sunk Nelson"))

	g.Tick()
	assert.False(t, shipLineFor(drainOut(s), "Nelson"), "sunk ships are not broadcast")
}

func TestGameSubmergedVisibleOnlyToSelf(t *testing.T) {
	g := newTestGame(t, nil)
	nelson, _, _ := joinTest(t, g, "Nelson")
	drake, _, _ := joinTest(t, g, "Drake")
	drake.Ship.Submerged = true
	drainOut(nelson)
	drainOut(drake)

	g.Tick()
	assert.False(t, shipLineFor(drainOut(nelson), "Drake"))
	own := drainOut(drake)
	assert.True(t, shipLineFor(own, "Drake"))
	assert.True(t, shipLineFor(own, "Nelson"))
}

func TestGameOneSunkKrakenPerDespawn(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.Map.Radius = 1000
		c.Hazard.BossChance = 1e9
		c.Hazard.DPS = 0
		c.Hazard.Current = 0
	})
	s, _, _ := joinTest(t, g, "Nelson")
	s.Ship.X = 100000

	g.Tick()
	boss := g.Boss()
	require.NotNil(t, boss, "boss should appear next to a ship beyond the border")
	boss.Stats.Cooldown = 1e9

	for i := 0; i < 10; i++ {
		g.Tick()
		require.Same(t, boss, g.Boss())
		require.True(t, s.Ship.Immobilized())
	}

	// sail home; the boss loses its grip and leaves
	s.Ship.X, s.Ship.Y = 0, 0
	var lines []string
	for i := 0; i < 120; i++ {
		g.Tick()
		lines = append(lines, drainOut(s)...)
	}
	assert.Nil(t, g.Boss())
	assert.Equal(t, 1, countLines(lines, "sunk Kraken"))
	assert.Equal(t, int64(1), g.metrics.BossSpawns.Load())
}

func TestGameSinkingTheKraken(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.Map.Radius = 1000
		c.Hazard.BossChance = 1e9
		c.Hazard.DPS = 0
		c.Hazard.Current = 0
	})
	s, _, _ := joinTest(t, g, "Nelson")
	s.Ship.X = 100000
	g.Tick()
	boss := g.Boss()
	require.NotNil(t, boss)
	boss.Stats.Cooldown = 1e9
	boss.Stats.Health = 1
	mass := boss.Stats.Mass.Surface

	s.Ship.Stats = StatsFor(ClassHeavyCruiser)
	var lines []string
	for i := 0; i < 60*120 && g.Boss() != nil; i++ {
		g.Tick()
		lines = append(lines, drainOut(s)...)
	}
	require.Nil(t, g.Boss(), "the heavy cruiser should sink the boss")
	assert.Equal(t, 1, countLines(lines, "sunk Kraken"))
	assert.InDelta(t, BossSunkCooldownPerTonne*mass, g.kraken.Cooldown, 2.0/60)

	for i := 0; i < 60; i++ {
		g.Tick()
	}
	assert.Zero(t, countLines(drainOut(s), "sunk Kraken"))
}

func TestGameCombatSinksAndBroadcastsSplash(t *testing.T) {
	g := newTestGame(t, nil)
	nelson, _, _ := joinTest(t, g, "Nelson")
	drake, _, _ := joinTest(t, g, "Drake")

	nelson.Ship.Stats = StatsFor(ClassBird)
	nelson.Ship.X, nelson.Ship.Y = 0, 0
	drake.Ship.Stats = StatsFor(ClassFastBattleship)
	drake.Ship.Stats.GunRange = 0
	drake.Ship.Stats.Health = 1
	drake.Ship.X, drake.Ship.Y, drake.Ship.Angle = 0, -500, 0
	drainOut(drake)

	var lines []string
	for i := 0; i < 60*60 && !drake.Ship.Sunk; i++ {
		g.Tick()
		lines = append(lines, drainOut(drake)...)
	}
	require.True(t, drake.Ship.Sunk)
	assert.Equal(t, 1, countLines(lines, "sunk Drake"))
	splashes := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "splash ") {
			splashes++
		}
	}
	assert.Positive(t, splashes)
}

func TestGameExitWhenEmpty(t *testing.T) {
	g := newTestGame(t, func(c *Config) { c.Game.ExitWhenEmpty = true })
	assert.False(t, g.Tick(), "an empty server that never had players keeps running")

	_, _, in := joinTest(t, g, "Nelson")
	assert.False(t, g.Tick())
	close(in)
	assert.True(t, g.Tick())
}

func TestGamePublishesSnapshot(t *testing.T) {
	g := newTestGame(t, func(c *Config) { c.Map.Radius = 4000 })
	joinTest(t, g, "Nelson")
	for i := 0; i < SnapshotEvery; i++ {
		g.Tick()
	}
	b := g.snapshots.Encoded()
	require.NotNil(t, b)
	ws, err := DecodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, 4000.0, ws.Radius)
	assert.Equal(t, HazardOcean, ws.Hazard)
	require.Len(t, ws.Ships, 1)
	assert.Equal(t, "Nelson", ws.Ships[0].Name)
	assert.Nil(t, ws.Boss)
}

func TestGameRunStopsOnCancel(t *testing.T) {
	g := newTestGame(t, nil)
	s, _, _ := joinTest(t, g, "Nelson")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- g.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
	// shutdown closes outbound queues
	for range s.Out {
	}
	assert.Positive(t, g.metrics.Ticks.Load())
}

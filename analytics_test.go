package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAnalyticsRecordsBattle(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)

	nelson := &Ship{Name: "Nelson", X: 10, Y: -20, Stats: StatsFor(ClassDestroyer)}
	drake := &Ship{Name: "Drake", Stats: StatsFor(ClassEscort)}
	a.TrackShip(EvtJoin, nelson, "")
	a.TrackShip(EvtJoin, drake, "")
	a.TrackShip(EvtSunk, drake, "Nelson")
	a.TrackShip(EvtSunk, drake, "Nelson")
	a.TrackShip(EvtLeave, drake, "")
	a.Stop()

	counts, err := db.EventCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{EvtJoin: 2, EvtSunk: 2, EvtLeave: 1}, counts)

	recent, err := db.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, EvtLeave, recent[0].Type, "newest first")
	last := recent[len(recent)-1]
	assert.Equal(t, "Nelson", last.Ship)
	assert.Equal(t, "Destroyer", last.Class)
	assert.Equal(t, 10.0, last.X)
	assert.Equal(t, -20.0, last.Y)

	top, err := db.SinkingsBy(5)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Nelson": 2}, top)
}

func TestNilAnalyticsIsSafe(t *testing.T) {
	var a *Analytics
	a.Track(BattleEvent{Type: EvtJoin, Ship: "Nelson"})
	a.TrackShip(EvtSunk, &Ship{Name: "Nelson"}, "")
	assert.Nil(t, a.DB())
	a.Stop()
}

func TestOpenDBIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, db.InsertEvents([]BattleEvent{{Type: EvtBossSpawn, Ship: BossName}}))
	require.NoError(t, db.Close())

	db, err = OpenDB(path)
	require.NoError(t, err)
	defer db.Close()
	counts, err := db.EventCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[EvtBossSpawn])
}

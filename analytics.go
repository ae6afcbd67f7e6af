package main

import (
	"sync"
	"time"
)

// Battle journal event types
const (
	EvtJoin         = "join"
	EvtLeave        = "leave"
	EvtSunk         = "sunk"
	EvtRespawn      = "respawn"
	EvtBossSpawn    = "boss_spawn"
	EvtBossDespawn  = "boss_despawn"
	journalBuf      = 1024
	journalBatch    = 50
	journalInterval = 5 * time.Second
)

// BattleEvent is one journal entry. Other names the attacker for sinkings
// and the cause for boss departures.
type BattleEvent struct {
	Type      string
	Ship      string
	Class     string
	Other     string
	X, Y      float64
	Timestamp time.Time
}

// Analytics records battle events with batched background writes.
// A nil *Analytics discards everything.
type Analytics struct {
	db     *DB
	events chan BattleEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewAnalytics creates and starts the background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan BattleEvent, journalBuf),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evt BattleEvent) {
	if a == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	select {
	case a.events <- evt:
	default:
		// Channel full, drop rather than stall the engine
	}
}

// TrackShip records an event about a ship at its current position
func (a *Analytics) TrackShip(evtType string, sh *Ship, other string) {
	if a == nil || sh == nil {
		return
	}
	evt := BattleEvent{Type: evtType, Ship: sh.Name, Other: other, X: sh.X, Y: sh.Y}
	if sh.Stats != nil {
		evt.Class = sh.Stats.Class.String()
	}
	a.Track(evt)
}

// Stop drains pending events and shuts down the writer
func (a *Analytics) Stop() {
	if a == nil {
		return
	}
	close(a.stop)
	a.wg.Wait()
}

// DB returns the journal database, or nil when journaling is off
func (a *Analytics) DB() *DB {
	if a == nil {
		return nil
	}
	return a.db
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]BattleEvent, 0, 64)
	ticker := time.NewTicker(journalInterval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= journalBatch {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for len(a.events) > 0 {
				batch = append(batch, <-a.events)
			}
			if len(batch) > 0 {
				a.flush(batch)
			}
			return
		}
	}
}

func (a *Analytics) flush(events []BattleEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	if err := a.db.InsertEvents(events); err != nil {
		Log.Warnw("journal write failed", "events", len(events), "err", err)
	}
}

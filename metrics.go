package main

import "sync/atomic"

// Metrics holds process-wide counters. All fields are updated atomically so the
// HTTP handlers can read them while the engine runs.
type Metrics struct {
	ConnsAccepted     atomic.Int64
	ConnsRejected     atomic.Int64
	HandshakeFailures atomic.Int64
	ProtocolErrors    atomic.Int64
	RateLimited       atomic.Int64
	InboundDropped    atomic.Int64
	OutboundDropped   atomic.Int64
	Joins             atomic.Int64
	Departures        atomic.Int64
	Sinkings          atomic.Int64
	BossSpawns        atomic.Int64
	Shots             atomic.Int64
	Ticks             atomic.Int64
	TickOverruns      atomic.Int64
	TotalTickNs       atomic.Int64
	Online            atomic.Int64
}

// AddTick records one engine tick and how long it took
func (m *Metrics) AddTick(ns int64) {
	m.Ticks.Add(1)
	m.TotalTickNs.Add(ns)
}

// Snapshot returns a read-only copy for HTTP output
func (m *Metrics) Snapshot() map[string]any {
	ticks := m.Ticks.Load()
	total := m.TotalTickNs.Load()
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"conns_accepted":     m.ConnsAccepted.Load(),
		"conns_rejected":     m.ConnsRejected.Load(),
		"handshake_failures": m.HandshakeFailures.Load(),
		"protocol_errors":    m.ProtocolErrors.Load(),
		"rate_limited":       m.RateLimited.Load(),
		"inbound_dropped":    m.InboundDropped.Load(),
		"outbound_dropped":   m.OutboundDropped.Load(),
		"joins":              m.Joins.Load(),
		"departures":         m.Departures.Load(),
		"sinkings":           m.Sinkings.Load(),
		"boss_spawns":        m.BossSpawns.Load(),
		"shots":              m.Shots.Load(),
		"tick_count":         ticks,
		"tick_overruns":      m.TickOverruns.Load(),
		"avg_tick_ms":        avgMs,
		"online":             m.Online.Load(),
	}
}

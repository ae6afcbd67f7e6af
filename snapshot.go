package main

import (
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"
)

// ShipSnapshot is the exported view of one ship
type ShipSnapshot struct {
	Name      string  `msgpack:"name"`
	Class     string  `msgpack:"class"`
	X         float64 `msgpack:"x"`
	Y         float64 `msgpack:"y"`
	Angle     float64 `msgpack:"a"`
	Velocity  float64 `msgpack:"v"`
	Health    float64 `msgpack:"hp"`
	Texture   int     `msgpack:"tex"`
	Sunk      bool    `msgpack:"sunk,omitempty"`
	Submerged bool    `msgpack:"sub,omitempty"`
	Smoke     bool    `msgpack:"smoke,omitempty"`
}

// WorldSnapshot is a point-in-time copy of the world for status tooling
type WorldSnapshot struct {
	Tick   uint64         `msgpack:"tick"`
	Radius float64        `msgpack:"radius"`
	Hazard string         `msgpack:"hazard"`
	Ships  []ShipSnapshot `msgpack:"ships"`
	Boss   *ShipSnapshot  `msgpack:"boss,omitempty"`
}

func snapshotShip(sh *Ship) ShipSnapshot {
	return ShipSnapshot{
		Name:      sh.Name,
		Class:     sh.Stats.Class.String(),
		X:         sh.X,
		Y:         sh.Y,
		Angle:     sh.Angle,
		Velocity:  sh.Velocity,
		Health:    sh.HealthFraction(),
		Texture:   sh.Stats.Texture,
		Sunk:      sh.Sunk,
		Submerged: sh.Submerged,
		Smoke:     sh.Smoke,
	}
}

// SnapshotStore holds the latest encoded snapshot. The engine publishes,
// HTTP handlers read.
type SnapshotStore struct {
	cur atomic.Pointer[[]byte]
}

// Publish encodes and stores a snapshot
func (s *SnapshotStore) Publish(ws WorldSnapshot) error {
	if s == nil {
		return nil
	}
	b, err := msgpack.Marshal(&ws)
	if err != nil {
		return err
	}
	s.cur.Store(&b)
	return nil
}

// Encoded returns the latest msgpack payload, or nil before the first publish
func (s *SnapshotStore) Encoded() []byte {
	if s == nil {
		return nil
	}
	if b := s.cur.Load(); b != nil {
		return *b
	}
	return nil
}

// DecodeSnapshot parses a payload produced by Publish
func DecodeSnapshot(b []byte) (WorldSnapshot, error) {
	var ws WorldSnapshot
	err := msgpack.Unmarshal(b, &ws)
	return ws, err
}

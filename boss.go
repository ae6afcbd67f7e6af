package main

import (
	"math"
	"math/rand/v2"
)

const (
	BossSunkCooldownPerTonne     = 0.01 // seconds of absence per tonne of boss mass
	BossRetreatCooldownPerDamage = 0.02 // seconds of absence per point of damage taken
	BossSpawnMin                 = 0.3  // spawn distance as a fraction of boss gun range
	BossSpawnMax                 = 0.8
	BossColour                   = "20c060"
)

// Despawn causes
const (
	BossCauseSunk    = "sunk"
	BossCauseRetreat = "retreat"
)

// Kraken tracks the single boss and the cooldown before it may appear again
type Kraken struct {
	Ship     *Ship
	Cooldown float64
}

// Present reports whether the boss is in the world
func (k *Kraken) Present() bool {
	return k.Ship != nil
}

// BossTurn describes what the boss did this tick
type BossTurn struct {
	Targets []*Ship
	Victim  *Ship
	Shot    Shot
	Fired   bool
}

// Update grabs every active ship in reach and shoots one of them.
// The boss retreats when nothing is in reach.
func (k *Kraken) Update(rng *rand.Rand, ships []*Ship, dt float64) (BossTurn, string) {
	var turn BossTurn
	if !k.Present() {
		return turn, ""
	}
	boss := k.Ship
	ReloadGuns(boss, dt)

	for _, sh := range ships {
		if !sh.Active() {
			continue
		}
		if Distance(boss.X, boss.Y, sh.X, sh.Y) <= boss.Stats.GunRange {
			sh.Immobilize()
			turn.Targets = append(turn.Targets, sh)
		}
	}
	if len(turn.Targets) == 0 {
		k.Despawn(BossCauseRetreat)
		return turn, BossCauseRetreat
	}

	victim := turn.Targets[rng.IntN(len(turn.Targets))]
	if shot, ok := Shoot(rng, boss, victim); ok {
		turn.Victim = victim
		turn.Shot = shot
		turn.Fired = true
	}
	return turn, ""
}

// Despawn removes the boss and sets the cooldown for the given cause
func (k *Kraken) Despawn(cause string) {
	if !k.Present() {
		return
	}
	st := k.Ship.Stats
	switch cause {
	case BossCauseSunk:
		k.Cooldown = BossSunkCooldownPerTonne * st.Mass.Surface
	default:
		k.Cooldown = BossRetreatCooldownPerDamage * (st.MaxHealth - math.Max(st.Health, 0))
	}
	k.Ship = nil
}

// TrySpawn counts down the cooldown and, once it has run out, gives every ship beyond
// the border a chance to summon the boss nearby. It returns true if the boss appeared.
func (k *Kraken) TrySpawn(rng *rand.Rand, hz *Hazard, ships []*Ship, chance, dt float64) bool {
	if k.Present() || !hz.Bordered() {
		return false
	}
	if k.Cooldown > 0 {
		k.Cooldown -= dt
		return false
	}
	reach := krakenTemplate.GunRange
	for _, sh := range ships {
		if !sh.Active() || hz.Over(sh.X, sh.Y) <= 0 {
			continue
		}
		if rng.Float64() >= chance*dt {
			continue
		}
		bearing := rng.Float64() * 2 * math.Pi
		dist := Uniform(rng, BossSpawnMin, BossSpawnMax) * reach
		x := sh.X + dist*math.Sin(bearing)
		y := sh.Y - dist*math.Cos(bearing)
		over := hz.Over(x, y)
		if over <= 0 {
			continue
		}
		k.Ship = &Ship{
			Name:   BossName,
			X:      x,
			Y:      y,
			Angle:  rng.Float64() * 2 * math.Pi,
			Stats:  KrakenStats(hz.Scale(over)),
			Colour: BossColour,
		}
		return true
	}
	return false
}

package main

import (
	"math"
	"math/rand/v2"
)

const (
	AnchorMaxSpeed   = 0.5 // m/s
	MinPower         = -0.5
	MinPowerBattery  = -1.0
	MaxPower         = 1.0
	WakeInterval     = 0.2 // seconds
	WakeMinSpeed     = 1.0 // m/s
	WakeDuration     = 10.0
	WakeGrowthFactor = 0.5
	SmokeInterval    = 0.5
)

// Ship is a player vessel or the boss
type Ship struct {
	Name         string
	X, Y         float64
	Velocity     float64 // signed, along the heading
	Angle        float64 // radians, 0 is north
	Helm         float64
	Power        float64
	Stats        *ShipStats
	Colour       string
	Sunk         bool
	Submerged    bool
	Smoke        bool
	RespawnTicks int

	immobilized bool
	wakeTimer   float64
	smokeTimer  float64
}

// NewShip places a ship with fresh stats at a random point of the spawn disc
func NewShip(rng *rand.Rand, name string, spawnRadius float64) *Ship {
	sh := &Ship{Name: name, Colour: ColourFor(name)}
	sh.Respawn(rng, spawnRadius)
	return sh
}

// Respawn resets the ship with freshly drawn stats and position
func (sh *Ship) Respawn(rng *rand.Rand, spawnRadius float64) {
	sh.X, sh.Y = RandomInDisc(rng, spawnRadius)
	sh.Angle = rng.Float64() * 2 * math.Pi
	sh.Stats = RandomStats(rng)
	sh.Velocity = 0
	sh.Helm = 0
	sh.Power = 0
	sh.Sunk = false
	sh.Submerged = false
	sh.Smoke = false
	sh.RespawnTicks = 0
	sh.immobilized = false
	sh.wakeTimer = 0
	sh.smokeTimer = 0
}

// Active reports whether the ship is afloat
func (sh *Ship) Active() bool {
	return !sh.Sunk
}

// Damage reduces health and returns true if the ship sank on this call
func (sh *Ship) Damage(amount float64) bool {
	if sh.Sunk {
		return false
	}
	sh.Stats.Health -= amount
	if sh.Stats.Health <= 0 {
		sh.Sunk = true
		return true
	}
	return false
}

// HealthFraction returns health / max health, clamped to [0, 1]
func (sh *Ship) HealthFraction() float64 {
	if sh.Stats.MaxHealth <= 0 {
		return 0
	}
	return Clamp(sh.Stats.Health/sh.Stats.MaxHealth, 0, 1)
}

// Mass returns the current mass in tonnes
func (sh *Ship) Mass() float64 {
	return sh.Stats.Mass.Get(sh.Submerged)
}

// Sail sets throttle and helm. Submerged ships may reverse at full battery power.
func (sh *Ship) Sail(power, helm float64) {
	lo := MinPower
	if sh.Submerged {
		lo = MinPowerBattery
	}
	sh.Power = Clamp(power, lo, MaxPower)
	sh.Helm = Clamp(helm, -1, 1)
}

// Anchor stops the ship if it is nearly still
func (sh *Ship) Anchor() {
	if math.Abs(sh.Velocity) < AnchorMaxSpeed {
		sh.Velocity = 0
		sh.Power = 0
		sh.Helm = 0
	}
}

// ToggleSmoke switches the smoke screen on or off
func (sh *Ship) ToggleSmoke() {
	sh.Smoke = !sh.Smoke
	sh.smokeTimer = 0
}

// Invoke runs the class action at a 1-based index. It returns false if there is none.
func (sh *Ship) Invoke(index int) bool {
	if index < 1 || index > len(sh.Stats.Actions) {
		return false
	}
	switch sh.Stats.Actions[index-1] {
	case ActionSubmerge:
		sh.Submerged = !sh.Submerged
		if !sh.Submerged && sh.Power < MinPower {
			sh.Power = MinPower
		}
		if sh.Submerged {
			sh.Smoke = false
		}
	}
	return true
}

// Immobilize holds the ship in place for the current tick
func (sh *Ship) Immobilize() {
	sh.immobilized = true
	sh.Velocity = 0
}

// Immobilized reports whether something holds the ship this tick
func (sh *Ship) Immobilized() bool {
	return sh.immobilized
}

// tickEffects advances the wake and smoke timers and reports which effects are due
func (sh *Ship) tickEffects(dt float64) (wake, smoke bool) {
	if math.Abs(sh.Velocity) > WakeMinSpeed && !sh.Submerged {
		sh.wakeTimer += dt
		if sh.wakeTimer >= WakeInterval {
			sh.wakeTimer -= WakeInterval
			wake = true
		}
	} else {
		sh.wakeTimer = 0
	}
	if sh.Smoke {
		sh.smokeTimer += dt
		if sh.smokeTimer >= SmokeInterval {
			sh.smokeTimer -= SmokeInterval
			smoke = true
		}
	}
	return wake, smoke
}

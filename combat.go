package main

import (
	"math"
	"math/rand/v2"
)

// AccuracyJitter is the relative range error and the bearing error in radians
const AccuracyJitter = 0.01

// ShotOutcome classifies where a shell landed
type ShotOutcome int

const (
	ShotMiss ShotOutcome = iota
	ShotHit
	ShotSunk
)

func (o ShotOutcome) String() string {
	switch o {
	case ShotHit:
		return "hit"
	case ShotSunk:
		return "sunk"
	}
	return "miss"
}

// Shot is the result of one salvo
type Shot struct {
	Outcome ShotOutcome
	X, Y    float64
	Damage  float64
}

// Shoot fires the attacker's guns at the target if they are loaded.
// It returns false without side effects while the guns are still reloading.
func Shoot(rng *rand.Rand, attacker, target *Ship) (Shot, bool) {
	st := attacker.Stats
	if st.Cooldown > 0 {
		return Shot{}, false
	}
	st.Cooldown = Uniform(rng, st.ReloadMin, st.ReloadMax)

	aimX, aimY := RandomHullPoint(rng, target)
	dx := aimX - attacker.X
	dy := aimY - attacker.Y
	dist := math.Hypot(dx, dy)
	bearing := math.Atan2(dx, -dy)

	jitter := AccuracyJitter
	if target.Smoke {
		jitter *= 2
	}
	dist *= 1 + Uniform(rng, -jitter, jitter)
	bearing += Uniform(rng, -jitter, jitter)

	shot := Shot{
		X:      attacker.X + dist*math.Sin(bearing),
		Y:      attacker.Y - dist*math.Cos(bearing),
		Damage: st.GunDamage * Uniform(rng, 0.5, 1.5),
	}
	if !PointInHull(target, shot.X, shot.Y) {
		shot.Outcome = ShotMiss
		shot.Damage = 0
		return shot, true
	}
	if target.Damage(shot.Damage) {
		shot.Outcome = ShotSunk
	} else {
		shot.Outcome = ShotHit
	}
	return shot, true
}

// ReloadGuns counts the firing cooldown down by dt
func ReloadGuns(sh *Ship, dt float64) {
	if sh.Stats.Cooldown > 0 {
		sh.Stats.Cooldown -= dt
	}
}

// NearestTarget returns the closest candidate within the attacker's gun range, or nil
func NearestTarget(attacker *Ship, candidates []*Ship) *Ship {
	var best *Ship
	bestDist := attacker.Stats.GunRange
	for _, c := range candidates {
		if c == attacker || !c.Active() || c.Submerged {
			continue
		}
		d := Distance(attacker.X, attacker.Y, c.X, c.Y)
		if d <= bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

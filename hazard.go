package main

import (
	"math"
	"math/rand/v2"
)

const (
	MineSplashDuration = 3.0
	MineColour         = "ffff00"
)

// Hazard applies the map border rules to ships that stray outside it
type Hazard struct {
	Kind   string
	Radius float64
	cfg    HazardConfig
}

// NewHazard builds the border hazard for a map. A zero radius disables it.
func NewHazard(m MapConfig, cfg HazardConfig) *Hazard {
	kind := m.Hazard
	if m.Radius <= 0 || kind == "" {
		kind = HazardNone
	}
	return &Hazard{Kind: kind, Radius: m.Radius, cfg: cfg}
}

// Bordered reports whether the map has a border at all
func (h *Hazard) Bordered() bool {
	return h.Radius > 0
}

// Over returns how many metres beyond the border a point lies, or 0 inside it
func (h *Hazard) Over(x, y float64) float64 {
	if !h.Bordered() {
		return 0
	}
	return math.Max(0, math.Hypot(x, y)-h.Radius)
}

// Strength maps distance beyond the border to (0, 1)
func (h *Hazard) Strength(over float64) float64 {
	if over <= 0 {
		return 0
	}
	return over / (over + h.cfg.Scale)
}

// Scale returns the boss stat multiplier for a point this far beyond the border
func (h *Hazard) Scale(over float64) float64 {
	return 1 + over/h.cfg.Scale
}

// Apply runs one tick of the hazard against an active ship.
// It returns whether the ship sank and any effects to broadcast.
func (h *Hazard) Apply(rng *rand.Rand, sh *Ship, dt float64) (bool, []Splash) {
	if !sh.Active() {
		return false, nil
	}
	over := h.Over(sh.X, sh.Y)
	if over <= 0 {
		return false, nil
	}
	switch h.Kind {
	case HazardOcean:
		return h.applyOcean(rng, sh, over, dt)
	case HazardLand:
		return h.applyLand(sh), nil
	}
	return false, nil
}

func (h *Hazard) applyOcean(rng *rand.Rand, sh *Ship, over, dt float64) (bool, []Splash) {
	s := h.Strength(over)
	sank := sh.Damage(h.cfg.DPS * s * dt)

	if !sh.Immobilized() {
		d := math.Hypot(sh.X, sh.Y)
		step := math.Min(h.cfg.Current*s*dt, d)
		if d > 0 {
			sh.X -= sh.X / d * step
			sh.Y -= sh.Y / d * step
		}
	}

	var splashes []Splash
	p := h.cfg.MineChance * s * math.Abs(sh.Velocity) * sh.Stats.Beam * dt
	if p > 0 && rng.Float64() < p {
		dmg := h.cfg.MineDamage * Uniform(rng, 0.5, 1.5)
		if sh.Damage(dmg) {
			sank = true
		}
		if m := sh.Mass(); m > 0 {
			sh.Velocity *= Clamp(math.Max(sh.Stats.Health, 0)/m, 0, 1)
		}
		splashes = append(splashes, Splash{
			X: sh.X, Y: sh.Y, Size: sh.Stats.Beam * 2, Duration: MineSplashDuration,
			Sprite: SpriteMine, Colour: MineColour,
		})
	}
	return sank, splashes
}

// applyLand runs the ship aground: kinetic energy becomes damage
func (h *Hazard) applyLand(sh *Ship) bool {
	mass := sh.Mass() * 1000
	energy := 0.5 * mass * sh.Velocity * sh.Velocity / 1e6
	sh.Velocity = 0
	sh.Power = 0
	if energy <= 0 {
		return false
	}
	return sh.Damage(energy * h.cfg.LandFactor)
}

package main

import (
	"math"
	"math/rand/v2"
)

// hullAxes returns the forward and starboard unit vectors for a heading.
// Heading 0 points north and y grows southward.
func hullAxes(angle float64) (fx, fy, rx, ry float64) {
	sin, cos := math.Sincos(angle)
	return sin, -cos, cos, sin
}

// hullToWorld maps a hull-local point (lateral, longitudinal) to world space
func hullToWorld(sh *Ship, lateral, longitudinal float64) (float64, float64) {
	fx, fy, rx, ry := hullAxes(sh.Angle)
	return sh.X + lateral*rx + longitudinal*fx, sh.Y + lateral*ry + longitudinal*fy
}

// PointInHull checks if a world point lies inside the ship's oriented length x beam rectangle
func PointInHull(sh *Ship, px, py float64) bool {
	fx, fy, rx, ry := hullAxes(sh.Angle)
	dx := px - sh.X
	dy := py - sh.Y
	along := dx*fx + dy*fy
	across := dx*rx + dy*ry
	return math.Abs(along) <= sh.Stats.Length/2 && math.Abs(across) <= sh.Stats.Beam/2
}

// RandomHullPoint picks a point uniformly on the ship's hull rectangle
func RandomHullPoint(rng *rand.Rand, sh *Ship) (float64, float64) {
	lateral := Uniform(rng, -sh.Stats.Beam/2, sh.Stats.Beam/2)
	longitudinal := Uniform(rng, -sh.Stats.Length/2, sh.Stats.Length/2)
	return hullToWorld(sh, lateral, longitudinal)
}

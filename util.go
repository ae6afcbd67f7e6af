package main

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// NormalizeAngle wraps angle to [-PI, PI]
func NormalizeAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}

// Sign returns -1, 0 or 1
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Uniform returns a float in [lo, hi)
func Uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// RandomInDisc returns a point uniformly distributed in a disc of radius r around the origin
func RandomInDisc(rng *rand.Rand, r float64) (float64, float64) {
	d := r * math.Sqrt(rng.Float64())
	a := rng.Float64() * 2 * math.Pi
	return d * math.Sin(a), -d * math.Cos(a)
}

// ColourFor derives a stable display colour from a ship name, as 6 hex digits
func ColourFor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum32()
	// keep every channel above 0x40 so ships stay visible on dark water
	r := 0x40 + (sum>>16)&0xff%0xc0
	g := 0x40 + (sum>>8)&0xff%0xc0
	b := 0x40 + sum&0xff%0xc0
	return fmt.Sprintf("%02x%02x%02x", r, g, b)
}

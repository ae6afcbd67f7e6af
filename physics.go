package main

import "math"

const (
	WaterDensity     = 1025.0  // kg/m³
	WaterViscosity   = 1.19e-6 // kinematic, m²/s
	Gravity          = 9.81    // m/s²
	WaveCoefficient  = 0.2
	TurningFactor    = 2.0 // turning circle is a diameter
	minResistedSpeed = 1e-6
	cubicEpsilon     = 1e-12
)

// FrictionCoefficient is the ITTC-57 skin friction line
func FrictionCoefficient(reynolds float64) float64 {
	l := math.Log10(reynolds) - 2
	return 0.075 / (l * l)
}

// Resistance returns the magnitude of hull resistance in newtons at speed v (m/s)
func Resistance(s *ShipStats, v float64, submerged bool) float64 {
	speed := math.Abs(v)
	if speed < minResistedSpeed {
		return 0
	}
	re := speed * s.Length / WaterViscosity
	cf := FrictionCoefficient(re)
	cw := 0.0
	if !submerged {
		fn := speed / math.Sqrt(Gravity*s.Length)
		cw = WaveCoefficient * s.FroudeScaleFactor * fn * fn * fn * fn
	}
	area := s.SurfaceArea.Get(submerged)
	return 0.5 * WaterDensity * area * speed * speed * (cf*(1+s.FormFactor) + cw)
}

// Thrust returns the signed propeller thrust in newtons for a throttle setting in [-1, 1]
// at speed v, from actuator disc momentum theory.
func Thrust(s *ShipStats, throttle, v float64, submerged bool) float64 {
	sign := Sign(throttle)
	if sign == 0 || s.ScrewArea <= 0 {
		return 0
	}
	power := math.Abs(throttle) * s.Power.Get(submerged) * 1000
	a := sign * v
	k := 4 * power / (WaterDensity * s.ScrewArea)
	u := solveOutflow(a, k)
	return sign * 0.5 * WaterDensity * s.ScrewArea * (u*u - a*a)
}

// solveOutflow returns the largest real root u of (u+a)²(u-a) = k
func solveOutflow(a, k float64) float64 {
	p := -4 * a * a / 3
	q := -16*a*a*a/27 - k
	t := largestDepressedRoot(p, q)
	return t - a/3
}

// largestDepressedRoot returns the largest real root of t³ + pt + q = 0
func largestDepressedRoot(p, q float64) float64 {
	half := q / 2
	third := p / 3
	delta := half*half + third*third*third

	scale := math.Max(1, half*half)
	switch {
	case math.Abs(delta) <= cubicEpsilon*scale:
		if p == 0 {
			return 0
		}
		return math.Max(3*q/p, -3*q/(2*p))
	case delta > 0:
		sq := math.Sqrt(delta)
		return math.Cbrt(-half+sq) + math.Cbrt(-half-sq)
	default:
		arg := (3 * q / (2 * p)) * math.Sqrt(-3/p)
		arg = Clamp(arg, -1, 1)
		return 2 * math.Sqrt(-p/3) * math.Cos(math.Acos(arg)/3)
	}
}

// Step advances the ship's heading, speed and position by dt seconds
func (sh *Ship) Step(dt float64) {
	st := sh.Stats
	sh.Angle = NormalizeAngle(sh.Angle + sh.Helm*sh.Velocity*TurningFactor/st.TurningCircle*dt)

	mass := st.Mass.Get(sh.Submerged) * 1000
	drag := Resistance(st, sh.Velocity, sh.Submerged) / mass * dt
	if drag >= math.Abs(sh.Velocity) {
		sh.Velocity = 0
	} else {
		sh.Velocity -= Sign(sh.Velocity) * drag
	}
	sh.Velocity += Thrust(st, sh.Power, sh.Velocity, sh.Submerged) / mass * dt

	sh.X += sh.Velocity * math.Sin(sh.Angle) * dt
	sh.Y -= sh.Velocity * math.Cos(sh.Angle) * dt
}

package main

import "math/rand/v2"

// ShipClass identifies the class of ship
type ShipClass int

const (
	ClassEscort ShipClass = iota
	ClassDestroyer
	ClassLightCruiser
	ClassHeavyCruiser
	ClassBattleCruiser
	ClassSlowBattleship
	ClassFastBattleship
	ClassBird
	ClassSubmarine
	ClassKraken
)

var classNames = [...]string{
	ClassEscort:         "Escort",
	ClassDestroyer:      "Destroyer",
	ClassLightCruiser:   "LightCruiser",
	ClassHeavyCruiser:   "HeavyCruiser",
	ClassBattleCruiser:  "BattleCruiser",
	ClassSlowBattleship: "SlowBattleship",
	ClassFastBattleship: "FastBattleship",
	ClassBird:           "Bird",
	ClassSubmarine:      "Submarine",
	ClassKraken:         "Kraken",
}

func (c ShipClass) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return "Unknown"
	}
	return classNames[c]
}

// Texture ids understood by the client
const (
	TextureMissing = iota
	TextureDestroyerEscort
	TextureDestroyer
	TextureLightCruiser
	TextureHeavyCruiser
	TextureBattleCruiser
	TextureBattleship
	TextureLazerKiwi
	TextureKraken
	TextureSubmarine
)

// Action is a class-specific ability invoked with "action <index>"
type Action int

const (
	ActionSubmerge Action = iota
)

func (a Action) String() string {
	switch a {
	case ActionSubmerge:
		return "submerge"
	}
	return "unknown"
}

// Pair holds a surfaced value and an optional submerged variant.
// Submerged == 0 means the ship has no submerged variant.
type Pair struct {
	Surface   float64
	Submerged float64
}

// Get picks the variant for the given state
func (p Pair) Get(submerged bool) float64 {
	if submerged && p.Submerged != 0 {
		return p.Submerged
	}
	return p.Surface
}

// ShipStats holds the immutable class data plus the mutable health and gun cooldown.
// Mass is in tonnes, power in kW, lengths in metres, times in seconds.
type ShipStats struct {
	Class             ShipClass
	Texture           int
	Length            float64
	Beam              float64
	Mass              Pair
	MaxHealth         float64
	Health            float64
	Power             Pair
	FormFactor        float64 // k in (1+k)
	SurfaceArea       Pair    // wetted area, m²
	ScrewArea         float64 // propeller disc area, m²
	TurningCircle     float64
	FroudeScaleFactor float64
	GunDamage         float64
	GunRange          float64
	ReloadMin         float64
	ReloadMax         float64
	Cooldown          float64
	Actions           []Action
}

// Clone returns an independent copy
func (s *ShipStats) Clone() *ShipStats {
	c := *s
	if s.Actions != nil {
		c.Actions = append([]Action(nil), s.Actions...)
	}
	return &c
}

type weightedClass struct {
	stats  ShipStats
	weight int
}

var shipCatalog = []weightedClass{
	{ShipStats{
		Class: ClassEscort, Texture: TextureDestroyerEscort,
		Length: 93.3, Beam: 11.2, Mass: Pair{Surface: 1740}, MaxHealth: 1740,
		Power: Pair{Surface: 5340}, FormFactor: 0.043, SurfaceArea: Pair{Surface: 608.4},
		ScrewArea: 9.8, TurningCircle: 400, FroudeScaleFactor: 2.2,
		GunDamage: 40, GunRange: 12000, ReloadMin: 2, ReloadMax: 4,
	}, 15},
	{ShipStats{
		Class: ClassDestroyer, Texture: TextureDestroyer,
		Length: 112.5, Beam: 12.0, Mass: Pair{Surface: 2050}, MaxHealth: 2050,
		Power: Pair{Surface: 27000}, FormFactor: 0.034, SurfaceArea: Pair{Surface: 903.3},
		ScrewArea: 19.2, TurningCircle: 600, FroudeScaleFactor: 0.3,
		GunDamage: 60, GunRange: 16000, ReloadMin: 3, ReloadMax: 5,
	}, 25},
	{ShipStats{
		Class: ClassLightCruiser, Texture: TextureLightCruiser,
		Length: 180, Beam: 18.8, Mass: Pair{Surface: 11932}, MaxHealth: 11932,
		Power: Pair{Surface: 45000}, FormFactor: 0.038, SurfaceArea: Pair{Surface: 2301},
		ScrewArea: 45, TurningCircle: 800, FroudeScaleFactor: 2.3,
		GunDamage: 250, GunRange: 21000, ReloadMin: 6, ReloadMax: 8,
	}, 4},
	{ShipStats{
		Class: ClassHeavyCruiser, Texture: TextureHeavyCruiser,
		Length: 176, Beam: 18.8, Mass: Pair{Surface: 12663}, MaxHealth: 12663,
		Power: Pair{Surface: 47900}, FormFactor: 0.035, SurfaceArea: Pair{Surface: 1960},
		ScrewArea: 45, TurningCircle: 900, FroudeScaleFactor: 2.64,
		GunDamage: 450, GunRange: 27000, ReloadMin: 8, ReloadMax: 12,
	}, 3},
	{ShipStats{
		Class: ClassBattleCruiser, Texture: TextureBattleCruiser,
		Length: 228.7, Beam: 31.8, Mass: Pair{Surface: 27200}, MaxHealth: 27200,
		Power: Pair{Surface: 50400}, FormFactor: 0.044, SurfaceArea: Pair{Surface: 3668},
		ScrewArea: 63, TurningCircle: 1100, FroudeScaleFactor: 4.19,
		GunDamage: 1200, GunRange: 27000, ReloadMin: 25, ReloadMax: 35,
	}, 1},
	{ShipStats{
		Class: ClassSlowBattleship, Texture: TextureBattleship,
		Length: 190.27, Beam: 32.4, Mass: Pair{Surface: 33100}, MaxHealth: 33100,
		Power: Pair{Surface: 13000}, FormFactor: 0.074, SurfaceArea: Pair{Surface: 3343},
		ScrewArea: 55, TurningCircle: 700, FroudeScaleFactor: 25.17,
		GunDamage: 1300, GunRange: 30000, ReloadMin: 30, ReloadMax: 40,
	}, 1},
	{ShipStats{
		Class: ClassFastBattleship, Texture: TextureBattleship,
		Length: 262.13, Beam: 33.0, Mass: Pair{Surface: 48880}, MaxHealth: 48800,
		Power: Pair{Surface: 94800}, FormFactor: 0.048, SurfaceArea: Pair{Surface: 5257},
		ScrewArea: 95, TurningCircle: 1200, FroudeScaleFactor: 5.63,
		GunDamage: 1500, GunRange: 38000, ReloadMin: 30, ReloadMax: 40,
	}, 1},
	{ShipStats{
		Class: ClassBird, Texture: TextureLazerKiwi,
		Length: 51, Beam: 12, Mass: Pair{Surface: 617}, MaxHealth: 617,
		Power: Pair{Surface: 490}, FormFactor: 0.097, SurfaceArea: Pair{Surface: 336.4},
		ScrewArea: 1.0, TurningCircle: 100, FroudeScaleFactor: 14.48,
		GunDamage: 15, GunRange: 3000, ReloadMin: 1, ReloadMax: 2,
	}, 1},
	{ShipStats{
		Class: ClassSubmarine, Texture: TextureSubmarine,
		Length: 95, Beam: 8.3, Mass: Pair{Surface: 1525, Submerged: 2424}, MaxHealth: 1525,
		Power: Pair{Surface: 4000, Submerged: 2000}, FormFactor: 0.05,
		SurfaceArea: Pair{Surface: 1200, Submerged: 1500},
		ScrewArea: 9.0, TurningCircle: 350, FroudeScaleFactor: 3.0,
		GunDamage: 400, GunRange: 6000, ReloadMin: 10, ReloadMax: 15,
		Actions: []Action{ActionSubmerge},
	}, 6},
}

var catalogWeight = func() int {
	total := 0
	for _, c := range shipCatalog {
		total += c.weight
	}
	return total
}()

// RandomStats draws a class from the weighted catalog and returns a fresh copy at full health
func RandomStats(rng *rand.Rand) *ShipStats {
	n := rng.IntN(catalogWeight)
	for i := range shipCatalog {
		n -= shipCatalog[i].weight
		if n < 0 {
			return freshStats(&shipCatalog[i].stats)
		}
	}
	return freshStats(&shipCatalog[len(shipCatalog)-1].stats)
}

// StatsFor returns a fresh copy of a catalog class, or nil for unknown classes
func StatsFor(class ShipClass) *ShipStats {
	for i := range shipCatalog {
		if shipCatalog[i].stats.Class == class {
			return freshStats(&shipCatalog[i].stats)
		}
	}
	return nil
}

func freshStats(tmpl *ShipStats) *ShipStats {
	s := tmpl.Clone()
	s.Health = s.MaxHealth
	s.Cooldown = 0
	return s
}

var krakenTemplate = ShipStats{
	Class: ClassKraken, Texture: TextureKraken,
	Length: 300, Beam: 300, Mass: Pair{Surface: 60000}, MaxHealth: 60000,
	FormFactor: 0.1, SurfaceArea: Pair{Surface: 10000},
	ScrewArea: 1, TurningCircle: 300, FroudeScaleFactor: 1,
	GunDamage: 500, GunRange: 3000, ReloadMin: 2, ReloadMax: 4,
}

// KrakenStats returns boss stats scaled by the given factor (>= 1)
func KrakenStats(scale float64) *ShipStats {
	if scale < 1 {
		scale = 1
	}
	s := freshStats(&krakenTemplate)
	s.Mass.Surface *= scale
	s.MaxHealth *= scale
	s.Health = s.MaxHealth
	s.GunDamage *= scale
	return s
}

package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Client -> Server verbs
const (
	MsgShip   = "ship" // handshake
	MsgSail   = "sail"
	MsgAnchor = "anchor"
	MsgSmoke  = "smoke"
	MsgAction = "action"
)

// Server -> Client verbs
const (
	MsgRadius = "radius"
	MsgSunk   = "sunk"
	MsgSplash = "splash"
	MsgWake   = "wake"
)

// BossName is reserved for the boss entity
const BossName = "Kraken"

// Splash sprites understood by the client
const (
	SpriteWater     = 0
	SpriteExplosion = 1
	SpriteSmoke     = 2
	SpriteMine      = 3
)

var (
	ErrProtocol         = errors.New("protocol error")
	ErrConnectionClosed = errors.New("connection closed")
	ErrBind             = errors.New("bind failure")
	ErrChannelClosed    = errors.New("channel closed")
)

// CommandKind identifies a parsed client command
type CommandKind int

const (
	CmdSail CommandKind = iota
	CmdAnchor
	CmdSmoke
	CmdAction
)

// Command is one client instruction for the engine
type Command struct {
	Kind  CommandKind
	Power float64
	Helm  float64
	Index int
}

func protocolErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrProtocol}, args...)...)
}

// ParseHandshake extracts the name from a "ship <name>" line
func ParseHandshake(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != MsgShip {
		return "", protocolErr("expected %q, got %q", "ship <name>", line)
	}
	return fields[1], nil
}

// parseFinite is strconv.ParseFloat without NaN and the infinities
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// ParseCommand parses one client line after the handshake
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, protocolErr("empty line")
	}
	switch fields[0] {
	case MsgSail:
		if len(fields) != 3 {
			return Command{}, protocolErr("sail takes 2 arguments, got %d", len(fields)-1)
		}
		power, err := parseFinite(fields[1])
		if err != nil {
			return Command{}, protocolErr("bad sail power %q", fields[1])
		}
		helm, err := parseFinite(fields[2])
		if err != nil {
			return Command{}, protocolErr("bad sail helm %q", fields[2])
		}
		return Command{Kind: CmdSail, Power: power, Helm: helm}, nil
	case MsgAnchor:
		return Command{Kind: CmdAnchor}, nil
	case MsgSmoke:
		return Command{Kind: CmdSmoke}, nil
	case MsgAction:
		if len(fields) != 2 {
			return Command{}, protocolErr("action takes 1 argument, got %d", len(fields)-1)
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{}, protocolErr("bad action index %q", fields[1])
		}
		return Command{Kind: CmdAction, Index: idx}, nil
	}
	return Command{}, protocolErr("unknown command %q", fields[0])
}

// FormatShip renders the ship state line
func FormatShip(sh *Ship) string {
	return fmt.Sprintf("%s %s %.2f %.2f %.4f %.2f %g %d #%s %.4f",
		MsgShip, sh.Name, sh.X, sh.Y, sh.Angle, sh.Velocity,
		sh.Stats.Length, sh.Stats.Texture, sh.Colour, sh.HealthFraction())
}

// ShipLine is a parsed server ship line
type ShipLine struct {
	Name     string
	X, Y     float64
	Angle    float64
	Velocity float64
	Length   float64
	Texture  int
	Colour   string
	Health   float64
}

// ParseShipLine parses a line produced by FormatShip
func ParseShipLine(line string) (ShipLine, error) {
	f := strings.Fields(line)
	if len(f) != 10 || f[0] != MsgShip {
		return ShipLine{}, protocolErr("malformed ship line %q", line)
	}
	var sl ShipLine
	sl.Name = f[1]
	floats := []*float64{&sl.X, &sl.Y, &sl.Angle, &sl.Velocity, &sl.Length}
	for i, dst := range floats {
		v, err := strconv.ParseFloat(f[2+i], 64)
		if err != nil {
			return ShipLine{}, protocolErr("bad ship field %q", f[2+i])
		}
		*dst = v
	}
	tex, err := strconv.Atoi(f[7])
	if err != nil {
		return ShipLine{}, protocolErr("bad texture %q", f[7])
	}
	sl.Texture = tex
	if !strings.HasPrefix(f[8], "#") {
		return ShipLine{}, protocolErr("bad colour %q", f[8])
	}
	sl.Colour = f[8][1:]
	sl.Health, err = strconv.ParseFloat(f[9], 64)
	if err != nil {
		return ShipLine{}, protocolErr("bad health %q", f[9])
	}
	return sl, nil
}

// FormatSunk announces that a ship sank or left
func FormatSunk(name string) string {
	return MsgSunk + " " + name
}

// FormatRadius announces the map border
func FormatRadius(r float64) string {
	return fmt.Sprintf("%s %g", MsgRadius, r)
}

// Splash is a transient visual effect at a point
type Splash struct {
	X, Y     float64
	Size     float64
	Duration float64
	Sprite   int
	Colour   string
}

func (s Splash) String() string {
	return fmt.Sprintf("%s %.2f %.2f %g %g %d #%s", MsgSplash, s.X, s.Y, s.Size, s.Duration, s.Sprite, s.Colour)
}

// Wake is the trail a moving ship leaves behind
type Wake struct {
	X, Y     float64
	Size     float64
	Angle    float64
	Duration float64
	Growth   float64
}

func (w Wake) String() string {
	return fmt.Sprintf("%s %.2f %.2f %g %.4f %g %.2f", MsgWake, w.X, w.Y, w.Size, w.Angle, w.Duration, w.Growth)
}

// ValidName reports whether a handshake name can be admitted
func ValidName(name string) bool {
	return name != "" && len(name) <= maxNameLen && name != BossName &&
		!strings.ContainsAny(name, " \t\r\n")
}

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Hazard kinds accepted by map.hazard
const (
	HazardNone  = "none"
	HazardOcean = "ocean"
	HazardLand  = "land"
)

// ServerConfig holds listener and per-connection settings
type ServerConfig struct {
	Addr             string        `mapstructure:"addr"`
	PublicAddr       string        `mapstructure:"publicAddr"`
	HandshakeTimeout time.Duration `mapstructure:"handshakeTimeout"`
	WriteTimeout     time.Duration `mapstructure:"writeTimeout"`
	MaxConnsPerIP    int           `mapstructure:"maxConnsPerIP"`
	MaxConns         int           `mapstructure:"maxConns"`
	LinesPerSecond   float64       `mapstructure:"linesPerSecond"`
	LineBurst        int           `mapstructure:"lineBurst"`
	SendBuffer       int           `mapstructure:"sendBuffer"`
}

// HTTPConfig controls the optional websocket gateway and status endpoints
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// GameConfig controls the simulation loop
type GameConfig struct {
	TickRate      int  `mapstructure:"tickRate"`
	ExitWhenEmpty bool `mapstructure:"exitWhenEmpty"`
}

// MapConfig describes the single world map
type MapConfig struct {
	Radius float64 `mapstructure:"radius"` // 0 means no border
	Hazard string  `mapstructure:"hazard"`
}

// HazardConfig holds the border hazard tuning
type HazardConfig struct {
	Scale      float64 `mapstructure:"scale"`      // metres beyond the border where the hazard reaches half strength
	DPS        float64 `mapstructure:"dps"`        // damage per second at full strength
	Current    float64 `mapstructure:"current"`    // inward drift speed at full strength (m/s)
	MineChance float64 `mapstructure:"mineChance"` // per second, per m/s of speed, per metre of beam
	MineDamage float64 `mapstructure:"mineDamage"`
	BossChance float64 `mapstructure:"bossChance"` // per second, per ship beyond the border
	LandFactor float64 `mapstructure:"landFactor"` // damage per MJ of kinetic energy
}

// LogConfig controls logger output
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
}

// Config is the full server configuration
type Config struct {
	Server  ServerConfig `mapstructure:"server"`
	HTTP    HTTPConfig   `mapstructure:"http"`
	Game    GameConfig   `mapstructure:"game"`
	Spawn   struct {
		Radius float64 `mapstructure:"radius"`
	} `mapstructure:"spawn"`
	Respawn struct {
		Seconds float64 `mapstructure:"seconds"`
	} `mapstructure:"respawn"`
	Map       MapConfig    `mapstructure:"map"`
	Hazard    HazardConfig `mapstructure:"hazard"`
	Analytics struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"analytics"`
	Log LogConfig `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":25565")
	v.SetDefault("server.publicAddr", "localhost:25565")
	v.SetDefault("server.handshakeTimeout", "10s")
	v.SetDefault("server.writeTimeout", "5s")
	v.SetDefault("server.maxConnsPerIP", 5)
	v.SetDefault("server.maxConns", 256)
	v.SetDefault("server.linesPerSecond", 240)
	v.SetDefault("server.lineBurst", 480)
	v.SetDefault("server.sendBuffer", 1024)

	v.SetDefault("http.addr", "")

	v.SetDefault("game.tickRate", 60)
	v.SetDefault("game.exitWhenEmpty", true)

	v.SetDefault("spawn.radius", 1000.0)
	v.SetDefault("respawn.seconds", 5.0)

	v.SetDefault("map.radius", 0.0)
	v.SetDefault("map.hazard", HazardOcean)

	v.SetDefault("hazard.scale", 1000.0)
	v.SetDefault("hazard.dps", 5.0)
	v.SetDefault("hazard.current", 2.0)
	v.SetDefault("hazard.mineChance", 1e-4)
	v.SetDefault("hazard.mineDamage", 500.0)
	v.SetDefault("hazard.bossChance", 0.01)
	v.SetDefault("hazard.landFactor", 1.0)

	v.SetDefault("analytics.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxSizeMB", 10)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAgeDays", 7)
}

// LoadConfig reads defaults, an optional config file, and the environment.
// An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MIDWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The client tooling documents these without the prefix
	_ = v.BindEnv("map.radius", "MIDWAY_MAP_RADIUS", "MAP_RADIUS")
	_ = v.BindEnv("map.hazard", "MIDWAY_MAP_HAZARD", "MAP_HAZARD")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig returns the built-in defaults without touching files or env
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Validate rejects settings the engine cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.Game.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("game.tickRate must be positive, got %d", c.Game.TickRate))
	}
	if c.Map.Radius < 0 {
		errs = append(errs, fmt.Errorf("map.radius must not be negative, got %g", c.Map.Radius))
	}
	switch c.Map.Hazard {
	case HazardNone, HazardOcean, HazardLand, "":
	default:
		errs = append(errs, fmt.Errorf("map.hazard must be one of none, ocean, land; got %q", c.Map.Hazard))
	}
	if c.Hazard.Scale <= 0 {
		errs = append(errs, fmt.Errorf("hazard.scale must be positive, got %g", c.Hazard.Scale))
	}
	if c.Server.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("server.sendBuffer must be positive, got %d", c.Server.SendBuffer))
	}
	return errors.Join(errs...)
}

// HasBorder reports whether the map defines a circular border
func (c Config) HasBorder() bool {
	return c.Map.Radius > 0
}

// RespawnTicks converts the respawn delay into engine ticks
func (c Config) RespawnTicks() int {
	n := int(c.Respawn.Seconds * float64(c.Game.TickRate))
	if n < 1 {
		n = 1
	}
	return n
}

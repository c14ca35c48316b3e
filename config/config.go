// Package config provides configuration loading and access for the arena.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/laststand/genepool"
	"github.com/pthm-cable/laststand/neural"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Arena     ArenaConfig     `yaml:"arena"`
	Shooter   ShooterConfig   `yaml:"shooter"`
	Mob       MobConfig       `yaml:"mob"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Archive   ArchiveConfig   `yaml:"archive"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ArenaConfig holds world dimensions and round pacing.
// The arena is centered on the origin.
type ArenaConfig struct {
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	DT          float64 `yaml:"dt"`            // seconds per tick
	MaxRoundSec float64 `yaml:"max_round_sec"` // 0 = rounds only end when every shooter is dead
	Shooters    int     `yaml:"shooters"`      // shooters spawned per round
}

// ShooterConfig holds the AI shooter's body and weapon parameters.
type ShooterConfig struct {
	Radius         float64 `yaml:"radius"`
	Speed          float64 `yaml:"speed"`
	RotationSpeed  float64 `yaml:"rotation_speed"` // radians per second
	Life           int     `yaml:"life"`
	HiddenNeurons  int     `yaml:"hidden_neurons"`
	WeaponCooldown float64 `yaml:"weapon_cooldown"` // seconds between shots
	BulletSpeed    float64 `yaml:"bullet_speed"`
	BulletLifetime float64 `yaml:"bullet_lifetime"`
	BulletRadius   float64 `yaml:"bullet_radius"`
}

// MobConfig holds mob body parameters and the arrival process.
type MobConfig struct {
	Radius         float64 `yaml:"radius"`
	Speed          float64 `yaml:"speed"`
	RotationSpeed  float64 `yaml:"rotation_speed"`
	HiddenNeurons  int     `yaml:"hidden_neurons"`
	MaxAlive       int     `yaml:"max_alive"`       // arrivals pause at this many live mobs
	BaseRate       float64 `yaml:"base_rate"`       // mobs per second at round start
	DoublingPeriod float64 `yaml:"doubling_period"` // seconds for the arrival rate to double
	SafeZone       float64 `yaml:"safe_zone"`       // fraction of the extent around the center where mobs never appear
	ContactBonus   float64 `yaml:"contact_bonus"`   // fitness bonus for damaging a shooter
}

// EvolutionConfig holds mutation and gene pool parameters.
type EvolutionConfig struct {
	Mutation    neural.MutationRates `yaml:"mutation"`
	ShooterPool genepool.Config      `yaml:"shooter_pool"`
	MobPool     genepool.Config      `yaml:"mob_pool"`
}

// TelemetryConfig holds experiment output parameters.
type TelemetryConfig struct {
	HallOfFameSize int  `yaml:"hall_of_fame_size"`
	DotExport      bool `yaml:"dot_export"` // write shooter.dot on every shooter spawn
}

// ArchiveConfig holds the genotype archive location.
type ArchiveConfig struct {
	Path string `yaml:"path"` // empty = archive disabled
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	HalfWidth  float64
	HalfHeight float64
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.HalfWidth = c.Arena.Width / 2
	c.Derived.HalfHeight = c.Arena.Height / 2
	c.Evolution.ShooterPool.Name = "shooter"
	c.Evolution.MobPool.Name = "mob"
}

// Validate checks values that would otherwise surface as panics deep in the simulation.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"arena.width", c.Arena.Width},
		{"arena.height", c.Arena.Height},
		{"arena.dt", c.Arena.DT},
		{"arena.max_round_sec", c.Arena.MaxRoundSec},
		{"shooter.radius", c.Shooter.Radius},
		{"shooter.speed", c.Shooter.Speed},
		{"shooter.rotation_speed", c.Shooter.RotationSpeed},
		{"shooter.weapon_cooldown", c.Shooter.WeaponCooldown},
		{"shooter.bullet_speed", c.Shooter.BulletSpeed},
		{"shooter.bullet_lifetime", c.Shooter.BulletLifetime},
		{"shooter.bullet_radius", c.Shooter.BulletRadius},
		{"mob.radius", c.Mob.Radius},
		{"mob.speed", c.Mob.Speed},
		{"mob.rotation_speed", c.Mob.RotationSpeed},
		{"mob.base_rate", c.Mob.BaseRate},
		{"mob.doubling_period", c.Mob.DoublingPeriod},
		{"mob.safe_zone", c.Mob.SafeZone},
		{"mob.contact_bonus", c.Mob.ContactBonus},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be finite, got %v", f.name, f.value)
		}
	}
	if c.Arena.Width <= 0 || c.Arena.Height <= 0 {
		return fmt.Errorf("arena dimensions must be positive, got %vx%v", c.Arena.Width, c.Arena.Height)
	}
	if c.Arena.DT <= 0 {
		return fmt.Errorf("arena.dt must be positive, got %v", c.Arena.DT)
	}
	if c.Arena.MaxRoundSec < 0 {
		return fmt.Errorf("arena.max_round_sec must not be negative, got %v", c.Arena.MaxRoundSec)
	}
	if c.Arena.Shooters < 1 {
		return fmt.Errorf("arena.shooters must be at least 1, got %d", c.Arena.Shooters)
	}
	if c.Shooter.Life < 1 {
		return fmt.Errorf("shooter.life must be at least 1, got %d", c.Shooter.Life)
	}
	if c.Shooter.HiddenNeurons < 1 || c.Mob.HiddenNeurons < 1 {
		return fmt.Errorf("hidden_neurons must be at least 1")
	}
	if c.Mob.MaxAlive < 1 {
		return fmt.Errorf("mob.max_alive must be at least 1, got %d", c.Mob.MaxAlive)
	}
	if c.Mob.BaseRate < 0 || c.Mob.DoublingPeriod <= 0 {
		return fmt.Errorf("mob arrival needs base_rate >= 0 and doubling_period > 0")
	}
	if c.Mob.SafeZone < 0 || c.Mob.SafeZone >= 0.5 {
		return fmt.Errorf("mob.safe_zone must be in [0, 0.5), got %v", c.Mob.SafeZone)
	}
	if c.Mob.ContactBonus < 0 {
		return fmt.Errorf("mob.contact_bonus must not be negative, got %v", c.Mob.ContactBonus)
	}
	if err := c.Evolution.Mutation.Validate(); err != nil {
		return fmt.Errorf("evolution.mutation: %w", err)
	}
	if err := c.Evolution.ShooterPool.Validate(); err != nil {
		return fmt.Errorf("evolution.shooter_pool: %w", err)
	}
	if err := c.Evolution.MobPool.Validate(); err != nil {
		return fmt.Errorf("evolution.mob_pool: %w", err)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

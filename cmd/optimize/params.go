package main

import (
	"math"

	"github.com/pthm-cable/laststand/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Mutation
			{Name: "connect_rate", Path: "evolution.mutation.connect_rate", Min: 0.01, Max: 0.5, Default: 0.1},
			{Name: "weight_rate", Path: "evolution.mutation.weight_rate", Min: 0.1, Max: 1.0, Default: 1.0},
			{Name: "activation_rate", Path: "evolution.mutation.activation_rate", Min: 0.0, Max: 0.6, Default: 0.25},
			{Name: "weight_deviation", Path: "evolution.mutation.weight_deviation", Min: 0.05, Max: 2.0, Default: 0.5},
			// Shooter pool
			{Name: "shooter_spawn_strength", Path: "evolution.shooter_pool.spawn_strength", Min: 0.01, Max: 0.6, Default: 0.15},
			{Name: "shooter_generation_size", Path: "evolution.shooter_pool.generation_size", Min: 2, Max: 20, Default: 3},
			// Mob pool
			{Name: "mob_spawn_strength", Path: "evolution.mob_pool.spawn_strength", Min: 0.01, Max: 0.6, Default: 0.15},
			{Name: "mob_generation_size", Path: "evolution.mob_pool.generation_size", Min: 2, Max: 50, Default: 3},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min || math.IsNaN(val) {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	// Order must match Specs order
	i := 0

	cfg.Evolution.Mutation.Connect = clamped[i]; i++
	cfg.Evolution.Mutation.Weight = clamped[i]; i++
	cfg.Evolution.Mutation.Activation = clamped[i]; i++
	cfg.Evolution.Mutation.WeightDeviation = clamped[i]; i++

	cfg.Evolution.ShooterPool.SpawnStrength = clamped[i]; i++
	cfg.Evolution.ShooterPool.GenerationSize = int(math.Round(clamped[i])); i++

	cfg.Evolution.MobPool.SpawnStrength = clamped[i]; i++
	cfg.Evolution.MobPool.GenerationSize = int(math.Round(clamped[i]))
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Evolution.Mutation.Connect,
		cfg.Evolution.Mutation.Weight,
		cfg.Evolution.Mutation.Activation,
		cfg.Evolution.Mutation.WeightDeviation,
		cfg.Evolution.ShooterPool.SpawnStrength,
		float64(cfg.Evolution.ShooterPool.GenerationSize),
		cfg.Evolution.MobPool.SpawnStrength,
		float64(cfg.Evolution.MobPool.GenerationSize),
	}
}

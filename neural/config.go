package neural

import (
	"fmt"
	"math"
)

// MutationRates holds the per-unit mutation probabilities, each scaled by the
// mutation strength at draw time.
type MutationRates struct {
	Connect         float64 `yaml:"connect_rate"`
	Weight          float64 `yaml:"weight_rate"`
	Activation      float64 `yaml:"activation_rate"`
	WeightDeviation float64 `yaml:"weight_deviation"`
}

// DefaultMutationRates returns the rates the shooter has always evolved with.
func DefaultMutationRates() MutationRates {
	return MutationRates{
		Connect:         0.1,
		Weight:          1.0,
		Activation:      0.25,
		WeightDeviation: 0.5,
	}
}

// Validate reports whether the rates can parameterize mutation at full strength.
func (r MutationRates) Validate() error {
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"connect_rate", r.Connect},
		{"weight_rate", r.Weight},
		{"activation_rate", r.Activation},
	} {
		if math.IsNaN(p.value) || p.value < 0 || p.value > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", p.name, p.value)
		}
	}
	if math.IsNaN(r.WeightDeviation) || math.IsInf(r.WeightDeviation, 0) || r.WeightDeviation < 0 {
		return fmt.Errorf("weight_deviation must be finite and non-negative, got %v", r.WeightDeviation)
	}
	return nil
}

// mutationRates is read by every Mutate call.
var mutationRates = DefaultMutationRates()

// InitMutationRates installs the rates used by Mutate. Call before the simulation starts.
func InitMutationRates(r MutationRates) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("mutation rates: %w", err)
	}
	mutationRates = r
	return nil
}

// CurrentMutationRates returns the rates Mutate is using.
func CurrentMutationRates() MutationRates {
	return mutationRates
}

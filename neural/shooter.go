package neural

import (
	"fmt"
	"math/rand/v2"
)

// ShooterInputCount is the number of sensed values the shooter brain reads.
const ShooterInputCount = 2

// ShooterHiddenNeurons is the hidden layer width of the seed shooter.
const ShooterHiddenNeurons = 3

// Inputs is the sensed state handed to a shooter brain each tick.
type Inputs struct {
	// RelativeBearing to the nearest mob, in radians divided by pi.
	RelativeBearing float64
	// TimeSurvived in seconds, unnormalized.
	TimeSurvived float64
}

// Outputs is the shooter's decision for one tick.
type Outputs struct {
	Advance  bool
	TurnRate float64 // relative to walking direction
	Fire     bool
	// AimBearing relative to heading, in radians divided by pi.
	AimBearing float64
}

// Brain is the shooter genotype: a single hidden layer feeding one output
// that steers the weapon.
type Brain struct {
	Network
}

// NewDumb builds a seed shooter brain with the given hidden layer width.
func NewDumb(hidden int) *Brain {
	return &Brain{Network: NewDumbNetwork(ShooterInputCount, hidden, 1)}
}

// Process maps sensed state to a decision. Only the aim is driven by the
// network: the shooter always fires and never walks.
func (b *Brain) Process(in Inputs) Outputs {
	out := b.Forward([]float64{in.RelativeBearing, in.TimeSurvived})
	return Outputs{
		Advance:    false,
		TurnRate:   0,
		Fire:       true,
		AimBearing: finite(out[0]),
	}
}

// Clone returns an independent copy of the brain.
func (b *Brain) Clone() *Brain {
	return &Brain{Network: b.Network.Clone()}
}

// Mutate returns a mutated copy of the brain; b itself is never modified.
func (b *Brain) Mutate(strength float64, rng *rand.Rand) *Brain {
	return &Brain{Network: b.Network.Mutate(strength, rng)}
}

// Equal reports whether two brains are bit-identical.
func (b *Brain) Equal(other *Brain) bool {
	return b.Network.Equal(other.Network)
}

// Validate checks that the network has the shooter's input and output widths.
func (b *Brain) Validate() error {
	if err := b.validateShape(); err != nil {
		return err
	}
	if b.InputCount() != ShooterInputCount || len(b.Output) != 1 {
		return fmt.Errorf("shooter brain needs %d inputs and 1 output, got %d and %d",
			ShooterInputCount, b.InputCount(), len(b.Output))
	}
	return nil
}

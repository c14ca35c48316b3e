package neural

import (
	"fmt"
	"math/rand/v2"
)

// MobInputCount is the number of sensed values the mob brain reads.
const MobInputCount = 2

// MobHiddenNeurons is the hidden layer width of the seed mob.
const MobHiddenNeurons = 3

// MobInputs is the sensed state handed to a mob brain each tick.
type MobInputs struct {
	// RelativeBearing to the nearest shooter, in radians divided by pi.
	RelativeBearing float64
	// Distance to the nearest shooter divided by the arena width.
	Distance float64
}

// MobOutputs is the mob's decision for one tick.
type MobOutputs struct {
	Advance bool
	// TurnRate in [-1, 1], scaled by the mob's rotation speed.
	TurnRate float64
}

// mobHoldThreshold is the output 0 level at or above which a mob stops walking.
const mobHoldThreshold = 0.5

// MobBrain is the mob genotype. Output 0 holds position, output 1 turns.
type MobBrain struct {
	Network
}

// NewDumbMob builds a seed mob brain. Its outputs stay near zero, so seed
// mobs walk straight along their spawn heading.
func NewDumbMob(hidden int) *MobBrain {
	return &MobBrain{Network: NewDumbNetwork(MobInputCount, hidden, 2)}
}

// Process maps sensed state to a decision.
func (m *MobBrain) Process(in MobInputs) MobOutputs {
	out := m.Forward([]float64{in.RelativeBearing, in.Distance})
	turn := finite(out[1])
	if turn > 1 {
		turn = 1
	} else if turn < -1 {
		turn = -1
	}
	return MobOutputs{
		Advance:  finite(out[0]) < mobHoldThreshold,
		TurnRate: turn,
	}
}

// Clone returns an independent copy of the brain.
func (m *MobBrain) Clone() *MobBrain {
	return &MobBrain{Network: m.Network.Clone()}
}

// Mutate returns a mutated copy of the brain; m itself is never modified.
func (m *MobBrain) Mutate(strength float64, rng *rand.Rand) *MobBrain {
	return &MobBrain{Network: m.Network.Mutate(strength, rng)}
}

// Equal reports whether two brains are bit-identical.
func (m *MobBrain) Equal(other *MobBrain) bool {
	return m.Network.Equal(other.Network)
}

// Validate checks that the network has the mob's input and output widths.
func (m *MobBrain) Validate() error {
	if err := m.validateShape(); err != nil {
		return err
	}
	if m.InputCount() != MobInputCount || len(m.Output) != 2 {
		return fmt.Errorf("mob brain needs %d inputs and 2 outputs, got %d and %d",
			MobInputCount, m.InputCount(), len(m.Output))
	}
	return nil
}

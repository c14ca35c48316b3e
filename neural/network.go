// Package neural provides the evolvable feed-forward brains driving arena entities.
package neural

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Network is a two-layer feedforward network: a hidden layer followed by an
// output layer. Hidden neurons take inputs+1 weights, output neurons take
// len(Hidden)+1 weights.
type Network struct {
	Hidden []Neuron `json:"hidden"`
	Output []Neuron `json:"output"`
}

// NewDumbNetwork seeds a network with a single connected path from the first
// input through the first hidden neuron to the first output.
func NewDumbNetwork(inputs, hidden, outputs int) Network {
	if inputs < 1 || hidden < 1 || outputs < 1 {
		panic(fmt.Sprintf("neural: invalid network shape %d-%d-%d", inputs, hidden, outputs))
	}
	net := Network{
		Hidden: make([]Neuron, hidden),
		Output: make([]Neuron, outputs),
	}
	net.Hidden[0] = dumbNeuron(inputs + 1)
	for i := 1; i < hidden; i++ {
		net.Hidden[i] = unconnectedNeuron(inputs + 1)
	}
	net.Output[0] = dumbNeuron(hidden + 1)
	for i := 1; i < outputs; i++ {
		net.Output[i] = unconnectedNeuron(hidden + 1)
	}
	return net
}

// InputCount returns the number of inputs the network expects, bias excluded.
func (net Network) InputCount() int {
	if len(net.Hidden) == 0 {
		return 0
	}
	return len(net.Hidden[0].Weights) - 1
}

// Forward runs inputs through both layers.
func (net Network) Forward(inputs []float64) []float64 {
	hidden := ProcessLayer(net.Hidden, inputs)
	return ProcessLayer(net.Output, hidden)
}

// Clone returns a deep copy of the network.
func (net Network) Clone() Network {
	clone := Network{
		Hidden: make([]Neuron, len(net.Hidden)),
		Output: make([]Neuron, len(net.Output)),
	}
	for i, n := range net.Hidden {
		clone.Hidden[i] = n.clone()
	}
	for i, n := range net.Output {
		clone.Output[i] = n.clone()
	}
	return clone
}

// Mutate returns a mutated copy using the installed mutation rates.
// strength scales every mutation probability and must keep them within [0, 1].
func (net Network) Mutate(strength float64, rng *rand.Rand) Network {
	return net.MutateWith(mutationRates, strength, rng)
}

// MutateWith returns a mutated copy using explicit rates. The receiver is untouched.
func (net Network) MutateWith(rates MutationRates, strength float64, rng *rand.Rand) Network {
	draws := newMutationDraws(rates, strength, rng)
	out := net.Clone()
	draws.mutateLayer(out.Hidden)
	draws.mutateLayer(out.Output)
	return out
}

// Equal reports whether both networks have bit-identical weights and the same activations.
func (net Network) Equal(other Network) bool {
	return layersEqual(net.Hidden, other.Hidden) && layersEqual(net.Output, other.Output)
}

func layersEqual(a, b []Neuron) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Activation != b[i].Activation || len(a[i].Weights) != len(b[i].Weights) {
			return false
		}
		for j := range a[i].Weights {
			if math.Float64bits(a[i].Weights[j]) != math.Float64bits(b[i].Weights[j]) {
				return false
			}
		}
	}
	return true
}

// Connections returns the number of connected weights across both layers.
func (net Network) Connections() int {
	count := 0
	for _, n := range net.Hidden {
		count += n.Connections()
	}
	for _, n := range net.Output {
		count += n.Connections()
	}
	return count
}

// finite maps NaN and infinities to zero.
func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

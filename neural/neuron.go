package neural

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Bias is the constant input appended to every layer's input vector.
const Bias = 1.0

// dumbWeight is the single connection a seed neuron starts with.
const dumbWeight = 0.01

// Neuron is a weighted sum followed by an activation function.
// Weights include the bias slot, so len(Weights) equals the augmented input width.
// A weight of exactly 0 is a missing connection.
type Neuron struct {
	Weights    []float64 `json:"weights"`
	Activation Function  `json:"activation"`
}

// unconnectedNeuron returns a linear neuron with every synapse disconnected.
func unconnectedNeuron(synapses int) Neuron {
	return Neuron{
		Weights:    make([]float64, synapses),
		Activation: Linear,
	}
}

// dumbNeuron does as little as possible while staying connected.
func dumbNeuron(synapses int) Neuron {
	n := unconnectedNeuron(synapses)
	n.Weights[0] = dumbWeight
	return n
}

// Feed computes the neuron output for an input vector that already carries the bias.
// A length mismatch is a wiring bug and panics.
func (n Neuron) Feed(inputs []float64) float64 {
	if len(inputs) != len(n.Weights) {
		panic(fmt.Sprintf("neural: neuron has %d weights, fed %d inputs", len(n.Weights), len(inputs)))
	}
	return n.Activation.Apply(floats.Dot(n.Weights, inputs))
}

// Connections returns the number of non-zero weights.
func (n Neuron) Connections() int {
	count := 0
	for _, w := range n.Weights {
		if w != 0 {
			count++
		}
	}
	return count
}

// clone returns a copy sharing no memory with n.
func (n Neuron) clone() Neuron {
	weights := make([]float64, len(n.Weights))
	copy(weights, n.Weights)
	return Neuron{Weights: weights, Activation: n.Activation}
}

// ProcessLayer feeds inputs plus the bias term through a fully connected layer.
// The caller's slice is never modified.
func ProcessLayer(neurons []Neuron, inputs []float64) []float64 {
	augmented := make([]float64, len(inputs)+1)
	copy(augmented, inputs)
	augmented[len(inputs)] = Bias

	outputs := make([]float64, len(neurons))
	for i, n := range neurons {
		outputs[i] = n.Feed(augmented)
	}
	return outputs
}

package neural

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// mutationDraws holds the distributions for one mutation pass.
type mutationDraws struct {
	connect    distuv.Bernoulli
	weight     distuv.Bernoulli
	activation distuv.Bernoulli
	noise      distuv.Normal
	rng        *rand.Rand
}

// newMutationDraws builds the samplers for a pass at the given strength.
// Probabilities outside [0, 1] or a bad deviation are caller bugs and panic.
func newMutationDraws(r MutationRates, strength float64, rng *rand.Rand) mutationDraws {
	if rng == nil {
		panic("neural: mutation requires a random source")
	}
	if math.IsNaN(r.WeightDeviation) || math.IsInf(r.WeightDeviation, 0) || r.WeightDeviation < 0 {
		panic(fmt.Sprintf("neural: invalid weight deviation %v", r.WeightDeviation))
	}
	return mutationDraws{
		connect:    bernoulli(strength*r.Connect, rng),
		weight:     bernoulli(strength*r.Weight, rng),
		activation: bernoulli(strength*r.Activation, rng),
		noise:      distuv.Normal{Mu: 0, Sigma: r.WeightDeviation, Src: rng},
		rng:        rng,
	}
}

func bernoulli(p float64, src rand.Source) distuv.Bernoulli {
	if math.IsNaN(p) || p < 0 || p > 1 {
		panic(fmt.Sprintf("neural: invalid probability %v", p))
	}
	return distuv.Bernoulli{P: p, Src: src}
}

// mutateWeight applies the connect-toggle / perturb / keep rule to one weight.
func (d *mutationDraws) mutateWeight(w float64) float64 {
	if d.connect.Rand() == 1 {
		if w == 0 {
			return d.noise.Rand()
		}
		return 0
	}
	if d.weight.Rand() == 1 {
		return w + d.noise.Rand()
	}
	return w
}

// mutateLayer rewrites every neuron of layer in place. The layer must not be
// shared with any other network.
func (d *mutationDraws) mutateLayer(layer []Neuron) {
	for i := range layer {
		n := &layer[i]
		for j, w := range n.Weights {
			n.Weights[j] = d.mutateWeight(w)
		}
		if d.activation.Rand() == 1 {
			n.Activation = Activations[d.rng.IntN(len(Activations))]
		}
	}
}

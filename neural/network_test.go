package neural

import (
	"math"
	"math/rand/v2"
	"testing"
)

func newTestRNG() *rand.Rand {
	return rand.New(rand.NewPCG(42, 42))
}

func TestActivationFunctions(t *testing.T) {
	tests := []struct {
		f    Function
		x    float64
		want float64
	}{
		{Linear, 2.5, 2.5},
		{Linear, -1, -1},
		{Step01, 0, 0},
		{Step01, -0.5, 0},
		{Step01, 0.1, 1},
		{Gaussian, 0, 1},
		{Gaussian, 1, math.Exp(-1)},
		{Gaussian, 1000, math.Exp(-100)},
		{ReLU, -3, 0},
		{ReLU, 3, 3},
		{Logistic, 0, 0.5},
	}

	for _, tt := range tests {
		got := tt.f.Apply(tt.x)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s(%v) = %v, want %v", tt.f, tt.x, got, tt.want)
		}
	}
}

func TestFunctionTextRoundTrip(t *testing.T) {
	for _, f := range Activations {
		text, err := f.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", f, err)
		}
		var got Function
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if got != f {
			t.Errorf("round trip of %s gave %s", f, got)
		}
	}

	var f Function
	if err := f.UnmarshalText([]byte("tanh")); err == nil {
		t.Error("expected error for unknown activation name")
	}
}

func TestFeedDeterministic(t *testing.T) {
	inputs := []float64{0.3, -0.7, Bias}
	for _, f := range Activations {
		n := Neuron{Weights: []float64{0.5, -1.25, 0.1}, Activation: f}
		first := n.Feed(inputs)
		for i := 0; i < 10; i++ {
			if got := n.Feed(inputs); math.Float64bits(got) != math.Float64bits(first) {
				t.Fatalf("%s: Feed not deterministic: %v then %v", f, first, got)
			}
		}
	}
}

func TestFeedLengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on input length mismatch")
		}
	}()
	n := unconnectedNeuron(3)
	n.Feed([]float64{1, 2})
}

func TestProcessLayerAppendsBiasOnce(t *testing.T) {
	neurons := []Neuron{
		{Weights: []float64{0, 0, 2}, Activation: Linear}, // bias only
		{Weights: []float64{1, 1, 0}, Activation: Linear}, // inputs only
	}
	inputs := make([]float64, 2, 8)
	inputs[0], inputs[1] = 3, 4

	out := ProcessLayer(neurons, inputs)

	if len(out) != 2 {
		t.Fatalf("got %d outputs, want 2", len(out))
	}
	if out[0] != 2 {
		t.Errorf("bias neuron = %v, want 2", out[0])
	}
	if out[1] != 7 {
		t.Errorf("sum neuron = %v, want 7", out[1])
	}
	if len(inputs) != 2 || inputs[:3][2] != 0 {
		t.Error("ProcessLayer modified the caller's input slice")
	}
}

func TestNewDumbNetworkShape(t *testing.T) {
	net := NewDumbNetwork(2, 4, 3)

	if len(net.Hidden) != 4 || len(net.Output) != 3 {
		t.Fatalf("shape = %d hidden, %d output; want 4, 3", len(net.Hidden), len(net.Output))
	}
	for i, n := range net.Hidden {
		if len(n.Weights) != 3 {
			t.Errorf("hidden %d has %d weights, want 3", i, len(n.Weights))
		}
	}
	for i, n := range net.Output {
		if len(n.Weights) != 5 {
			t.Errorf("output %d has %d weights, want 5", i, len(n.Weights))
		}
	}
	if net.Connections() != 2 {
		t.Errorf("seed has %d connections, want 2", net.Connections())
	}
	if net.Hidden[0].Weights[0] != dumbWeight || net.Output[0].Weights[0] != dumbWeight {
		t.Error("seed path is not connected")
	}
}

func TestMutateZeroStrengthIsIdentity(t *testing.T) {
	rng := newTestRNG()
	// Start from something richer than the seed so activations and weights vary.
	net := NewDumbNetwork(2, 3, 2)
	for i := 0; i < 5; i++ {
		net = net.Mutate(1, rng)
	}

	got := net.Mutate(0, rng)
	if !got.Equal(net) {
		t.Error("Mutate(0) changed the network")
	}
}

func TestMutateDoesNotTouchReceiver(t *testing.T) {
	rng := newTestRNG()
	net := NewDumbNetwork(2, 3, 1)
	snapshot := net.Clone()

	mutated := net.Mutate(1, rng)

	if !net.Equal(snapshot) {
		t.Error("Mutate modified its receiver")
	}
	if mutated.Equal(net) {
		t.Error("Mutate(1) produced an identical network")
	}
}

func TestMutateConnectToggle(t *testing.T) {
	rng := newTestRNG()
	net := NewDumbNetwork(2, 2, 1)
	rates := MutationRates{Connect: 1, Weight: 0, Activation: 0, WeightDeviation: 0.5}

	got := net.MutateWith(rates, 1, rng)

	if got.Hidden[0].Weights[0] != 0 {
		t.Errorf("connected weight not disconnected: %v", got.Hidden[0].Weights[0])
	}
	if got.Output[0].Weights[0] != 0 {
		t.Errorf("connected output weight not disconnected: %v", got.Output[0].Weights[0])
	}
	if got.Hidden[1].Weights[0] == 0 {
		t.Error("disconnected weight was not connected")
	}
	for i, n := range got.Hidden {
		if n.Activation != Linear {
			t.Errorf("hidden %d activation changed with zero activation rate", i)
		}
	}
}

func TestMutatePreservesShape(t *testing.T) {
	rng := newTestRNG()
	net := NewDumbNetwork(2, 5, 2)
	for i := 0; i < 50; i++ {
		net = net.Mutate(1, rng)
	}
	if err := net.validateShape(); err != nil {
		t.Fatalf("shape broken after mutation: %v", err)
	}
	for _, n := range append(net.Hidden, net.Output...) {
		if int(n.Activation) >= len(Activations) {
			t.Errorf("invalid activation %d", n.Activation)
		}
	}
}

func TestMutateInvalidStrengthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for probability above 1")
		}
	}()
	NewDumbNetwork(2, 2, 1).Mutate(2, newTestRNG())
}

func TestMutateNegativeStrengthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative probability")
		}
	}()
	NewDumbNetwork(2, 2, 1).Mutate(-0.1, newTestRNG())
}

func TestInitMutationRates(t *testing.T) {
	defer func() {
		if err := InitMutationRates(DefaultMutationRates()); err != nil {
			t.Fatalf("restoring defaults: %v", err)
		}
	}()

	if err := InitMutationRates(MutationRates{Connect: 1.5, Weight: 1, Activation: 0.25, WeightDeviation: 0.5}); err == nil {
		t.Error("expected error for connect rate above 1")
	}
	if err := InitMutationRates(MutationRates{Connect: 0.1, Weight: 1, Activation: 0.25, WeightDeviation: math.NaN()}); err == nil {
		t.Error("expected error for NaN deviation")
	}

	custom := MutationRates{Connect: 0.2, Weight: 0.5, Activation: 0, WeightDeviation: 0.1}
	if err := InitMutationRates(custom); err != nil {
		t.Fatalf("InitMutationRates: %v", err)
	}
	if CurrentMutationRates() != custom {
		t.Errorf("rates = %+v, want %+v", CurrentMutationRates(), custom)
	}
}

func BenchmarkForward(b *testing.B) {
	rng := newTestRNG()
	net := NewDumbNetwork(2, 8, 1)
	for i := 0; i < 20; i++ {
		net = net.Mutate(1, rng)
	}
	inputs := []float64{0.5, 12}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		net.Forward(inputs)
	}
}

func TestMutateDrawFrequencies(t *testing.T) {
	const (
		hidden   = 4000
		strength = 0.5
	)
	rates := DefaultMutationRates()

	net := NewDumbNetwork(4, hidden, 1)
	for _, layer := range [][]Neuron{net.Hidden, net.Output} {
		for i := range layer {
			for j := range layer[i].Weights {
				layer[i].Weights[j] = 1
			}
			layer[i].Activation = Linear
		}
	}

	mutated := net.MutateWith(rates, strength, newTestRNG())

	var weights, toggled, perturbed, neurons, replaced int
	for _, layer := range [][]Neuron{mutated.Hidden, mutated.Output} {
		for _, n := range layer {
			neurons++
			if n.Activation != Linear {
				replaced++
			}
			for _, w := range n.Weights {
				weights++
				switch {
				case w == 0:
					toggled++
				case w != 1:
					perturbed++
				}
			}
		}
	}

	tests := []struct {
		name      string
		got, want float64
		tolerance float64
	}{
		{"connect toggle", float64(toggled) / float64(weights), strength * rates.Connect, 0.005},
		{"weight perturb", float64(perturbed) / float64(weights), (1 - strength*rates.Connect) * strength * rates.Weight, 0.015},
		// A replacement may draw the current function again.
		{"activation change", float64(replaced) / float64(neurons),
			strength * rates.Activation * float64(len(Activations)-1) / float64(len(Activations)), 0.02},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > tt.tolerance {
			t.Errorf("%s frequency = %.4f, want %.4f ± %.3f", tt.name, tt.got, tt.want, tt.tolerance)
		}
	}
}

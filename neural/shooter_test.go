package neural

import (
	"math"
	"testing"
)

func TestNewDumb(t *testing.T) {
	b := NewDumb(ShooterHiddenNeurons)

	if len(b.Hidden) != ShooterHiddenNeurons {
		t.Fatalf("hidden = %d, want %d", len(b.Hidden), ShooterHiddenNeurons)
	}
	for i, n := range b.Hidden {
		if len(n.Weights) != ShooterInputCount+1 {
			t.Errorf("hidden %d width = %d, want %d", i, len(n.Weights), ShooterInputCount+1)
		}
	}
	if len(b.Output) != 1 || len(b.Output[0].Weights) != ShooterHiddenNeurons+1 {
		t.Fatalf("output layer has wrong shape: %+v", b.Output)
	}
	for i := 1; i < len(b.Hidden); i++ {
		if b.Hidden[i].Connections() != 0 {
			t.Errorf("hidden %d should start disconnected", i)
		}
	}

	out := b.Process(Inputs{RelativeBearing: 0.5, TimeSurvived: 0})
	if out.AimBearing == 0 {
		t.Error("seed brain produced a constant zero aim")
	}
}

func TestProcessReferencePolicy(t *testing.T) {
	rng := newTestRNG()
	b := NewDumb(4)
	for i := 0; i < 10; i++ {
		b = b.Mutate(1, rng)
	}

	out := b.Process(Inputs{RelativeBearing: -0.25, TimeSurvived: 7})
	if out.Advance {
		t.Error("shooter should never advance")
	}
	if !out.Fire {
		t.Error("shooter should always fire")
	}
	if out.TurnRate != 0 {
		t.Errorf("turn rate = %v, want 0", out.TurnRate)
	}
}

func TestProcessZeroWeightsFinite(t *testing.T) {
	inputs := []Inputs{
		{RelativeBearing: 0, TimeSurvived: 0},
		{RelativeBearing: 1, TimeSurvived: 1e6},
		{RelativeBearing: -1, TimeSurvived: 3.5},
	}

	for _, f := range Activations {
		b := &Brain{Network: NewDumbNetwork(ShooterInputCount, 3, 1)}
		for i := range b.Hidden {
			b.Hidden[i] = unconnectedNeuron(ShooterInputCount + 1)
			b.Hidden[i].Activation = f
		}
		b.Output[0] = unconnectedNeuron(4)
		b.Output[0].Activation = f

		for _, in := range inputs {
			aim := b.Process(in).AimBearing
			if math.IsNaN(aim) || math.IsInf(aim, 0) {
				t.Errorf("%s: aim %v for %+v", f, aim, in)
			}
		}
	}
}

func TestProcessNonFiniteOutputClamped(t *testing.T) {
	b := NewDumb(3)
	b.Output[0].Weights[0] = math.Inf(1)

	out := b.Process(Inputs{RelativeBearing: 0.5, TimeSurvived: 1})
	if out.AimBearing != 0 {
		t.Errorf("aim = %v, want 0 for non-finite network output", out.AimBearing)
	}
}

func TestBrainCloneIsolation(t *testing.T) {
	rng := newTestRNG()
	original := NewDumb(3)
	snapshot := original.Clone()

	clone := original.Clone()
	clone.Hidden[0].Weights[0] = 999
	clone.Output[0].Activation = Logistic
	clone.Mutate(1, rng)

	if !original.Equal(snapshot) {
		t.Error("changing a clone affected the original")
	}
}

func TestBrainMutateZeroIdentity(t *testing.T) {
	rng := newTestRNG()
	b := NewDumb(3).Mutate(1, rng).Mutate(1, rng)

	if !b.Mutate(0, rng).Equal(b) {
		t.Error("Mutate(0) changed the brain")
	}
}

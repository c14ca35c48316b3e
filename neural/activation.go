package neural

import (
	"fmt"
	"math"
)

// Function is a neuron activation function.
type Function uint8

const (
	Linear Function = iota
	Step01
	Gaussian
	ReLU
	Logistic
)

// Activations lists every activation function mutation may pick from.
var Activations = [...]Function{Linear, Step01, Gaussian, ReLU, Logistic}

var functionNames = [...]string{
	Linear:   "linear",
	Step01:   "step01",
	Gaussian: "gaussian",
	ReLU:     "relu",
	Logistic: "logistic",
}

// Apply evaluates the activation function at x.
func (f Function) Apply(x float64) float64 {
	switch f {
	case Linear:
		return x
	case Step01:
		if x > 0 {
			return 1
		}
		return 0
	case Gaussian:
		if x > 10 {
			x = 10
		} else if x < -10 {
			x = -10
		}
		return math.Exp(-(x * x))
	case ReLU:
		if x > 0 {
			return x
		}
		return 0
	case Logistic:
		return 1 / (1 + math.Exp(-x))
	default:
		panic(fmt.Sprintf("neural: unknown activation function %d", f))
	}
}

// String returns the activation's name.
func (f Function) String() string {
	if int(f) < len(functionNames) {
		return functionNames[f]
	}
	return fmt.Sprintf("Function(%d)", f)
}

// MarshalText implements encoding.TextMarshaler.
func (f Function) MarshalText() ([]byte, error) {
	if int(f) >= len(functionNames) {
		return nil, fmt.Errorf("unknown activation function %d", f)
	}
	return []byte(functionNames[f]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Function) UnmarshalText(text []byte) error {
	for i, name := range functionNames {
		if name == string(text) {
			*f = Function(i)
			return nil
		}
	}
	return fmt.Errorf("unknown activation function %q", text)
}

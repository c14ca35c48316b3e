package neural

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PrettyPrint returns a human-readable multiline dump of the network.
func (net Network) PrettyPrint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "inputs: %d\n", net.InputCount())
	fmt.Fprintf(&b, "hidden: %d\n", len(net.Hidden))
	for i, n := range net.Hidden {
		fmt.Fprintf(&b, "  h%d act=%s w=%v\n", i, n.Activation, n.Weights)
	}
	fmt.Fprintf(&b, "output: %d\n", len(net.Output))
	for i, n := range net.Output {
		fmt.Fprintf(&b, "  o%d act=%s w=%v\n", i, n.Activation, n.Weights)
	}
	fmt.Fprintf(&b, "connections: %d\n", net.Connections())
	return b.String()
}

// WriteDot writes the connected synapses of the network as a Graphviz digraph.
// Disconnected weights are omitted; the bias appears as node "bias".
func (net Network) WriteDot(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph brain {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  bias [shape=point];\n")
	for i := 0; i < net.InputCount(); i++ {
		fmt.Fprintf(&b, "  i%d [shape=box];\n", i)
	}
	for i, n := range net.Hidden {
		fmt.Fprintf(&b, "  h%d [label=\"h%d\\n%s\"];\n", i, i, n.Activation)
	}
	for i, n := range net.Output {
		fmt.Fprintf(&b, "  o%d [shape=doublecircle,label=\"o%d\\n%s\"];\n", i, i, n.Activation)
	}
	writeLayerEdges(&b, net.Hidden, "i", "h")
	writeLayerEdges(&b, net.Output, "h", "o")
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeLayerEdges(b *strings.Builder, layer []Neuron, fromPrefix, toPrefix string) {
	for to, n := range layer {
		last := len(n.Weights) - 1
		for from, weight := range n.Weights {
			if weight == 0 {
				continue
			}
			source := fmt.Sprintf("%s%d", fromPrefix, from)
			if from == last {
				source = "bias"
			}
			fmt.Fprintf(b, "  %s -> %s%d [label=\"%.3g\"];\n", source, toPrefix, to, weight)
		}
	}
}

// MarshalWeights encodes the network as JSON for archives and hall of fame dumps.
func (net Network) MarshalWeights() ([]byte, error) {
	data, err := json.Marshal(net)
	if err != nil {
		return nil, fmt.Errorf("marshaling network: %w", err)
	}
	return data, nil
}

// UnmarshalWeights decodes a network produced by MarshalWeights and checks its shape.
func UnmarshalWeights(data []byte) (Network, error) {
	var net Network
	if err := json.Unmarshal(data, &net); err != nil {
		return Network{}, fmt.Errorf("unmarshaling network: %w", err)
	}
	if err := net.validateShape(); err != nil {
		return Network{}, err
	}
	return net, nil
}

// validateShape checks the layer width invariants.
func (net Network) validateShape() error {
	if len(net.Hidden) == 0 || len(net.Output) == 0 {
		return fmt.Errorf("network needs at least one hidden and one output neuron")
	}
	width := len(net.Hidden[0].Weights)
	if width < 2 {
		return fmt.Errorf("hidden neuron 0 has %d weights, need at least 2", width)
	}
	for i, n := range net.Hidden {
		if len(n.Weights) != width {
			return fmt.Errorf("hidden neuron %d has %d weights, want %d", i, len(n.Weights), width)
		}
	}
	for i, n := range net.Output {
		if len(n.Weights) != len(net.Hidden)+1 {
			return fmt.Errorf("output neuron %d has %d weights, want %d", i, len(n.Weights), len(net.Hidden)+1)
		}
	}
	return nil
}

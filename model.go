package main

import (
	"fmt"
	"math/rand"
	"strings"
)

// Config contains all key hyperparameters and run settings.
//
// - inputs: pixels per example, one input leaf each
// - hidden: sizes of the ReLU layers
// - classes: size of the final linear layer and of the one-hot target
// - learning_rate: SGD step size
// - seed: seeds the single PRNG used for weight init and shuffling
type Config struct {
	Inputs       int     `json:"inputs"`
	Hidden       []int   `json:"hidden"`
	Classes      int     `json:"classes"`
	LearningRate float64 `json:"learning_rate"`
	Seed         int64   `json:"seed"`

	Epochs     int `json:"epochs"`
	BatchSize  int `json:"batch_size"`
	TrainLimit int `json:"train_limit"`

	ImagesPath     string `json:"images"`
	LabelsPath     string `json:"labels"`
	EvalImagesPath string `json:"eval_images,omitempty"`
	EvalLabelsPath string `json:"eval_labels,omitempty"`
	Serve          string `json:"serve,omitempty"`
	Quiet          bool   `json:"quiet,omitempty"`
}

// DefaultConfig returns the digit-classifier defaults: 784 -> 50 -> 10,
// 100 epochs of batches of 10 over the whole training set.
func DefaultConfig() Config {
	return Config{
		Inputs:       PixelLength,
		Hidden:       []int{50},
		Classes:      NumDigits,
		LearningRate: 0.1,
		Seed:         1,
		Epochs:       100,
		BatchSize:    10,
		TrainLimit:   -1,
		ImagesPath:   "train-images-idx3-ubyte",
		LabelsPath:   "train-labels-idx1-ubyte",
	}
}

// Sizes returns the layer widths handed to NewMLP.
func (c Config) Sizes() []int {
	sizes := append([]int(nil), c.Hidden...)
	return append(sizes, c.Classes)
}

// Validate checks the settings a run depends on.
func (c Config) Validate() error {
	switch {
	case c.Inputs < 1:
		return configErrorf("inputs must be positive, got %d", c.Inputs)
	case c.Classes < 1:
		return configErrorf("classes must be positive, got %d", c.Classes)
	case c.Epochs < 0:
		return configErrorf("epoch count must not be negative, got %d", c.Epochs)
	case c.BatchSize < 1:
		return configErrorf("batch size must be positive, got %d", c.BatchSize)
	case c.TrainLimit < -1:
		return configErrorf("training set limit must be -1 or more, got %d", c.TrainLimit)
	}
	for i, h := range c.Hidden {
		if h < 1 {
			return configErrorf("hidden layer %d must be positive, got %d", i, h)
		}
	}
	return nil
}

// Neuron owns nin weight leaves and one bias leaf.
type Neuron struct {
	W      []Value
	B      Value
	Nonlin bool
}

// NewNeuron draws every weight, then the bias, uniformly from [0,1).
func NewNeuron(g *Graph, rng *rand.Rand, nin int, nonlin bool) *Neuron {
	w := make([]Value, nin)
	for i := range w {
		w[i] = g.Param(rng.Float64())
	}
	return &Neuron{W: w, B: g.Param(rng.Float64()), Nonlin: nonlin}
}

// Parameters returns the weights followed by the bias.
func (n *Neuron) Parameters() []Value {
	return append(append(make([]Value, 0, len(n.W)+1), n.W...), n.B)
}

func (n *Neuron) String() string {
	kind := "Linear"
	if n.Nonlin {
		kind = "ReLU"
	}
	return fmt.Sprintf("%sNeuron(%d)", kind, len(n.W))
}

// Layer is nout neurons reading the same inputs.
type Layer struct {
	Neurons []*Neuron
}

func NewLayer(g *Graph, rng *rand.Rand, nin, nout int, nonlin bool) *Layer {
	neurons := make([]*Neuron, nout)
	for i := range neurons {
		neurons[i] = NewNeuron(g, rng, nin, nonlin)
	}
	return &Layer{Neurons: neurons}
}

func (l *Layer) Parameters() []Value {
	var params []Value
	for _, n := range l.Neurons {
		params = append(params, n.Parameters()...)
	}
	return params
}

func (l *Layer) String() string {
	parts := make([]string, len(l.Neurons))
	for i, n := range l.Neurons {
		parts[i] = n.String()
	}
	return "Layer of [" + strings.Join(parts, ", ") + "]"
}

// MLP stacks layers. Every layer but the last applies ReLU; the last is
// linear so it can feed the softmax.
//
// Notes:
//   - params is a flat list in construction order so optimizer updates
//     visit parameters in the same order on every run.
type MLP struct {
	Layers []*Layer
	params []Value
}

// NewMLP builds layers nin -> sizes[0] -> ... -> sizes[len-1].
func NewMLP(g *Graph, rng *rand.Rand, nin int, sizes []int) *MLP {
	sz := append([]int{nin}, sizes...)
	m := &MLP{Layers: make([]*Layer, len(sizes))}
	for i := range sizes {
		m.Layers[i] = NewLayer(g, rng, sz[i], sz[i+1], i != len(sizes)-1)
	}
	for _, l := range m.Layers {
		m.params = append(m.params, l.Parameters()...)
	}
	return m
}

// Parameters returns every parameter leaf. Callers must not modify the slice.
func (m *MLP) Parameters() []Value { return m.params }

func (m *MLP) String() string {
	parts := make([]string, len(m.Layers))
	for i, l := range m.Layers {
		parts[i] = l.String()
	}
	return "MLP of [" + strings.Join(parts, ", ") + "]"
}

// ZeroGrad clears the parameter gradients only.
func (m *MLP) ZeroGrad(g *Graph) {
	for _, p := range m.params {
		g.nodes[p].Grad = 0
	}
}

// Update performs one plain SGD step over all parameters:
// data -= lr * grad, in parameter order. No momentum, no decay.
func (m *MLP) Update(g *Graph, lr float64) {
	for _, p := range m.params {
		n := &g.nodes[p]
		n.Data -= float64(lr * n.Grad)
	}
}

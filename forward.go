package main

import "fmt"

// Forward builds bias + sum(w[i]*x[i]), then ReLU for hidden neurons.
//
// Nothing here reads leaf data: the result is a symbolic expression that
// a Program can re-evaluate for every new example written into x.
func (n *Neuron) Forward(g *Graph, x []Value) Value {
	if len(x) != len(n.W) {
		panic(fmt.Sprintf("neuron: input of size %d with %d weights", len(x), len(n.W)))
	}
	act := n.B
	for i, xi := range x {
		act = g.Add(act, g.Mul(n.W[i], xi))
	}
	if n.Nonlin {
		return g.Relu(act)
	}
	return act
}

// Forward evaluates every neuron over the same inputs.
func (l *Layer) Forward(g *Graph, x []Value) []Value {
	out := make([]Value, len(l.Neurons))
	for i, n := range l.Neurons {
		out[i] = n.Forward(g, x)
	}
	return out
}

// Forward feeds x through all layers and returns the logits.
func (m *MLP) Forward(g *Graph, x []Value) []Value {
	for _, l := range m.Layers {
		x = l.Forward(g, x)
	}
	return x
}

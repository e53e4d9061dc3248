package main

import "fmt"

// Program is the cached evaluation schedule for one root.
//
// The graph reachable from the root never changes shape once built, so
// the topological order is computed exactly once here. After that only
// leaf data changes: Forward replays the order front to back, Backward
// replays it back to front. Neither allocates.
type Program struct {
	g         *Graph
	root      Value
	order     []Value
	nonParams []Value
}

// Compile builds the topological order of root and its ancestors.
//
// The order is a post-order DFS that visits operands left to right, so
// every node comes after all of its operands and root comes last.
func (g *Graph) Compile(root Value) *Program {
	if root < 0 || int(root) >= len(g.nodes) {
		panic(fmt.Sprintf("autograd: compile of unknown node %d", root))
	}
	visited := make([]bool, len(g.nodes))
	order := []Value{}

	var buildTopo func(Value)
	buildTopo = func(v Value) {
		if visited[v] {
			return
		}
		visited[v] = true
		n := &g.nodes[v]
		for _, arg := range n.Args {
			if arg != noValue {
				buildTopo(arg)
			}
		}
		order = append(order, v)
	}
	buildTopo(root)

	nonParams := make([]Value, 0, len(order))
	for _, v := range order {
		if !g.nodes[v].param {
			nonParams = append(nonParams, v)
		}
	}
	return &Program{g: g, root: root, order: order, nonParams: nonParams}
}

// Root returns the node the program was compiled for.
func (p *Program) Root() Value { return p.root }

// Order returns the cached topological order. Callers must not modify it.
func (p *Program) Order() []Value { return p.order }

// Forward recomputes every derived node from the current leaf data and
// returns the root's new value.
func (p *Program) Forward() float64 {
	g := p.g
	for _, v := range p.order {
		if g.nodes[v].Op != OpLeaf {
			g.forward(v)
		}
	}
	return g.nodes[p.root].Data
}

// Backward propagates d(root)/d(node) into every node of the order.
//
// Every non-parameter gradient is reset first and the root is seeded
// with 1. Parameter gradients are left to accumulate, so consecutive
// Backward calls sum per-example gradients into the parameters until
// ZeroGrad.
func (p *Program) Backward() {
	g := p.g
	for _, v := range p.nonParams {
		g.nodes[v].Grad = 0
	}
	g.nodes[p.root].Grad = 1
	for i := len(p.order) - 1; i >= 0; i-- {
		g.backward(p.order[i])
	}
}

// ZeroGrad clears the gradient of every node in the order, parameters included.
func (p *Program) ZeroGrad() {
	g := p.g
	for _, v := range p.order {
		g.nodes[v].Grad = 0
	}
}

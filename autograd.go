package main

import (
	"fmt"
	"math"
)

// Op identifies which rule produced a node.
type Op uint8

const (
	OpLeaf Op = iota
	OpAdd
	OpMul
	OpPow
	OpRelu
	OpLog
	OpExp
	OpMax
)

var opNames = [...]string{
	OpLeaf: "leaf",
	OpAdd:  "+",
	OpMul:  "*",
	OpPow:  "pow",
	OpRelu: "relu",
	OpLog:  "log",
	OpExp:  "exp",
	OpMax:  "max",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Value is a handle to one node of a Graph.
//
// It is an index into the graph's node table, not a pointer, so the same
// node can be shared by any number of dependents without ownership
// questions. A Value is only meaningful together with the Graph that
// created it.
type Value int32

// noValue marks an unused operand slot.
const noValue Value = -1

// Node is the core unit of the engine: a scalar with memory.
//
// Think of it as a tagged variant:
// - Data is the actual number used in calculations.
// - Grad is "how much the root changes if this number changes a little".
// - Op says which forward/backward rule applies.
// - Args are the 0-2 operands, left to right.
// - K is the constant exponent of a pow node.
type Node struct {
	Data  float64
	Grad  float64
	Op    Op
	Args  [2]Value
	K     float64
	param bool
}

// IsParam reports whether the node is a trainable parameter leaf.
func (n Node) IsParam() bool { return n.param }

// Graph is the arena that owns every node.
//
// Nodes are appended and never removed, so a Value stays valid for the
// lifetime of the graph. Derived nodes compute their Data eagerly when
// created, so a graph can be used both in a dynamic, build-and-backprop
// style and in a build-once, rewrite-the-leaves style (see Program).
type Graph struct {
	nodes []Node
}

// NewGraph creates an empty graph. sizeHint preallocates the node table.
func NewGraph(sizeHint int) *Graph {
	return &Graph{nodes: make([]Node, 0, sizeHint)}
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns a copy of the node behind v.
func (g *Graph) Node(v Value) Node { return g.nodes[v] }

// Data returns the current value of v.
func (g *Graph) Data(v Value) float64 { return g.nodes[v].Data }

// Grad returns the gradient accumulated into v.
func (g *Graph) Grad(v Value) float64 { return g.nodes[v].Grad }

// SetData assigns the value of a leaf.
//
// Leaves are the only nodes whose data is written from outside the
// evaluators; writing a derived node is a programming error and panics.
func (g *Graph) SetData(v Value, data float64) {
	n := &g.nodes[v]
	if n.Op != OpLeaf {
		panic(fmt.Sprintf("autograd: SetData on derived node %d (%s)", v, n.Op))
	}
	n.Data = data
}

func (g *Graph) push(n Node) Value {
	g.nodes = append(g.nodes, n)
	v := Value(len(g.nodes) - 1)
	g.forward(v)
	return v
}

// Leaf creates an input node with the given initial data.
func (g *Graph) Leaf(data float64) Value {
	return g.push(Node{Data: data, Op: OpLeaf, Args: [2]Value{noValue, noValue}})
}

// Param creates a trainable leaf. Parameter gradients survive
// Program.Backward and are only cleared by Program.ZeroGrad.
func (g *Graph) Param(data float64) Value {
	return g.push(Node{Data: data, Op: OpLeaf, Args: [2]Value{noValue, noValue}, param: true})
}

// Const creates a leaf holding a fixed number.
func (g *Graph) Const(data float64) Value {
	return g.Leaf(data)
}

func (g *Graph) unary(op Op, a Value, k float64) Value {
	return g.push(Node{Op: op, Args: [2]Value{a, noValue}, K: k})
}

func (g *Graph) binary(op Op, a, b Value) Value {
	return g.push(Node{Op: op, Args: [2]Value{a, b}})
}

// Add creates node z = a + b.
// Local derivatives:
// dz/da = 1
// dz/db = 1
func (g *Graph) Add(a, b Value) Value { return g.binary(OpAdd, a, b) }

// Mul creates node z = a * b.
// Local derivatives:
// dz/da = b
// dz/db = a
func (g *Graph) Mul(a, b Value) Value { return g.binary(OpMul, a, b) }

// Pow creates node z = a^k for a constant exponent k.
// Local derivative:
// dz/da = k * a^(k-1)
//
// A NaN exponent is not a number to raise to; it panics instead of
// propagating silently through every later forward pass.
func (g *Graph) Pow(a Value, k float64) Value {
	if math.IsNaN(k) {
		panic("autograd: pow exponent must be a number")
	}
	return g.unary(OpPow, a, k)
}

// Relu creates node z = max(0, a).
// Local derivative:
// 1 when z > 0, otherwise 0 (so the derivative at a == 0 is 0).
func (g *Graph) Relu(a Value) Value { return g.unary(OpRelu, a, 0) }

// Log creates node z = ln(a).
// Local derivative:
// dz/da = 1/a
//
// The caller keeps a positive; the loss pads its argument for that.
func (g *Graph) Log(a Value) Value { return g.unary(OpLog, a, 0) }

// Exp creates node z = e^a.
// Local derivative:
// dz/da = e^a
func (g *Graph) Exp(a Value) Value { return g.unary(OpExp, a, 0) }

// Max creates node z = a if a > b, else b.
//
// The whole gradient goes to the selected operand. Ties select b.
func (g *Graph) Max(a, b Value) Value { return g.binary(OpMax, a, b) }

// Neg is a * -1.
func (g *Graph) Neg(a Value) Value { return g.Mul(a, g.Const(-1)) }

// Sub is a + (-b).
func (g *Graph) Sub(a, b Value) Value { return g.Add(a, g.Neg(b)) }

// Div is a * b^-1.
func (g *Graph) Div(a, b Value) Value { return g.Mul(a, g.Pow(b, -1)) }

// forward recomputes the data of v from its operands.
func (g *Graph) forward(v Value) {
	n := &g.nodes[v]
	switch n.Op {
	case OpLeaf:
	case OpAdd:
		n.Data = g.nodes[n.Args[0]].Data + g.nodes[n.Args[1]].Data
	case OpMul:
		n.Data = g.nodes[n.Args[0]].Data * g.nodes[n.Args[1]].Data
	case OpPow:
		n.Data = math.Pow(g.nodes[n.Args[0]].Data, n.K)
	case OpRelu:
		n.Data = math.Max(0, g.nodes[n.Args[0]].Data)
	case OpLog:
		n.Data = math.Log(g.nodes[n.Args[0]].Data)
	case OpExp:
		n.Data = math.Exp(g.nodes[n.Args[0]].Data)
	case OpMax:
		a, b := g.nodes[n.Args[0]].Data, g.nodes[n.Args[1]].Data
		if a > b {
			n.Data = a
		} else {
			n.Data = b
		}
	default:
		panic(fmt.Sprintf("autograd: unknown op %s", n.Op))
	}
}

// backward applies the chain rule for v, adding its contribution into
// the gradient of each operand. Operands may have other dependents, so
// this always accumulates and never assigns.
func (g *Graph) backward(v Value) {
	n := &g.nodes[v]
	out := n.Grad
	switch n.Op {
	case OpLeaf:
	case OpAdd:
		g.nodes[n.Args[0]].Grad += out
		g.nodes[n.Args[1]].Grad += out
	case OpMul:
		a, b := &g.nodes[n.Args[0]], &g.nodes[n.Args[1]]
		a.Grad += b.Data * out
		b.Grad += a.Data * out
	case OpPow:
		a := &g.nodes[n.Args[0]]
		a.Grad += n.K * math.Pow(a.Data, n.K-1) * out
	case OpRelu:
		if n.Data > 0 {
			g.nodes[n.Args[0]].Grad += out
		}
	case OpLog:
		a := &g.nodes[n.Args[0]]
		a.Grad += 1 / a.Data * out
	case OpExp:
		g.nodes[n.Args[0]].Grad += n.Data * out
	case OpMax:
		a, b := &g.nodes[n.Args[0]], &g.nodes[n.Args[1]]
		if a.Data > b.Data {
			a.Grad += out
		} else {
			b.Grad += out
		}
	default:
		panic(fmt.Sprintf("autograd: unknown op %s", n.Op))
	}
}

// Backward performs reverse-mode autodiff from root to all its ancestors.
//
// It is the one-shot form of Compile(root).Backward(): handy when a graph
// is built for a single evaluation.
func (g *Graph) Backward(root Value) {
	g.Compile(root).Backward()
}

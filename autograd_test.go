package main

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
)

func TestOpForwardBackward(t *testing.T) {
	tests := []struct {
		name  string
		a, b  float64
		build func(g *Graph, a, b Value) Value
		data  float64
		gradA float64
		gradB float64
	}{
		{"add", 2, 3, (*Graph).Add, 5, 1, 1},
		{"mul", 2, 3, (*Graph).Mul, 6, 3, 2},
		{"sub", 2, 3, (*Graph).Sub, -1, 1, -1},
		{"div", 3, 2, (*Graph).Div, 1.5, 0.5, -0.75},
		{"max left", 4, 1, (*Graph).Max, 4, 1, 0},
		{"max right", 1, 4, (*Graph).Max, 4, 0, 1},
		{"max tie goes right", 2, 2, (*Graph).Max, 2, 0, 1},
		{"exp", 1, 0, func(g *Graph, a, _ Value) Value { return g.Exp(a) }, math.E, math.E, 0},
		{"log", 2, 0, func(g *Graph, a, _ Value) Value { return g.Log(a) }, math.Ln2, 0.5, 0},
		{"relu positive", 2, 0, func(g *Graph, a, _ Value) Value { return g.Relu(a) }, 2, 1, 0},
		{"relu negative", -3, 0, func(g *Graph, a, _ Value) Value { return g.Relu(a) }, 0, 0, 0},
		{"relu zero", 0, 0, func(g *Graph, a, _ Value) Value { return g.Relu(a) }, 0, 0, 0},
		{"neg", 5, 0, func(g *Graph, a, _ Value) Value { return g.Neg(a) }, -5, -1, 0},
		{"square", 3, 0, func(g *Graph, a, _ Value) Value { return g.Pow(a, 2) }, 9, 6, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph(0)
			a, b := g.Leaf(tt.a), g.Leaf(tt.b)
			out := tt.build(g, a, b)
			if got := g.Data(out); math.Abs(got-tt.data) > 1e-12 {
				t.Fatalf("data = %v, want %v", got, tt.data)
			}
			g.Backward(out)
			if got := g.Grad(a); math.Abs(got-tt.gradA) > 1e-12 {
				t.Errorf("grad a = %v, want %v", got, tt.gradA)
			}
			if got := g.Grad(b); math.Abs(got-tt.gradB) > 1e-12 {
				t.Errorf("grad b = %v, want %v", got, tt.gradB)
			}
		})
	}
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	g := NewGraph(0)
	x := []Value{g.Leaf(0), g.Leaf(0), g.Leaf(0)}
	// (x0*x1 + x2) * (x0 + x1*x2) + x0*x0 - x2
	left := g.Add(g.Mul(x[0], x[1]), x[2])
	right := g.Add(x[0], g.Mul(x[1], x[2]))
	root := g.Sub(g.Add(g.Mul(left, right), g.Mul(x[0], x[0])), x[2])
	prog := g.Compile(root)

	f := func(in []float64) float64 {
		for i, v := range x {
			g.SetData(v, in[i])
		}
		return prog.Forward()
	}

	points := [][]float64{
		{1, 2, 3},
		{-1.5, 0.25, 4},
		{0, 0, 0},
		{10, -7, 0.001},
		{-3.3, -2.2, -1.1},
	}
	for _, pt := range points {
		f(pt)
		prog.Backward()
		got := make([]float64, len(x))
		for i, v := range x {
			got[i] = g.Grad(v)
		}

		want := fd.Gradient(nil, f, pt, &fd.Settings{Formula: fd.Central})
		for i := range want {
			if math.Abs(got[i]-want[i]) > 1e-4 {
				t.Errorf("at %v: d/dx%d = %v, finite difference %v", pt, i, got[i], want[i])
			}
		}
	}
}

func TestPowGradient(t *testing.T) {
	for _, x := range []float64{0.3, 1, 2.5, 17} {
		for _, k := range []float64{-2, -1, -0.5, 0, 0.5, 1, 3, 3.7} {
			g := NewGraph(0)
			a := g.Leaf(x)
			out := g.Pow(a, k)
			g.Backward(out)

			want := k * math.Pow(x, k-1)
			if got := g.Grad(a); math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
				t.Errorf("d/dx x^%v at %v = %v, want %v", k, x, got, want)
			}
		}
	}
}

func TestPowRejectsNaNExponent(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for NaN exponent")
		}
	}()
	g := NewGraph(0)
	g.Pow(g.Leaf(2), math.NaN())
}

func TestSetDataOnDerivedNodePanics(t *testing.T) {
	g := NewGraph(0)
	sum := g.Add(g.Leaf(1), g.Leaf(2))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic writing a derived node")
		}
	}()
	g.SetData(sum, 10)
}

func TestSharedNodeAccumulatesAllConsumers(t *testing.T) {
	g := NewGraph(0)
	x := g.Leaf(2)
	y := g.Mul(x, g.Const(3))
	// y feeds two consumers; x feeds y and the square.
	z := g.Add(g.Add(y, y), g.Mul(x, x))
	g.Backward(z)

	if got := g.Grad(y); got != 2 {
		t.Errorf("grad y = %v, want 2", got)
	}
	// dz/dx = 2*3 + 2*x
	if got := g.Grad(x); got != 10 {
		t.Errorf("grad x = %v, want 10", got)
	}
}

func TestEagerDataMatchesForward(t *testing.T) {
	g := NewGraph(0)
	a, b := g.Leaf(1.5), g.Leaf(-0.5)
	out := g.Log(g.Add(g.Exp(g.Max(a, b)), g.Relu(g.Mul(a, b))))
	eager := g.Data(out)

	if got := g.Compile(out).Forward(); got != eager {
		t.Errorf("Forward = %v, eager = %v", got, eager)
	}
}

func TestOpString(t *testing.T) {
	if got := OpMax.String(); got != "max" {
		t.Errorf("OpMax = %q", got)
	}
	if got := Op(200).String(); got != "Op(200)" {
		t.Errorf("unknown op = %q", got)
	}
}

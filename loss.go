package main

// lossEpsilon keeps the log argument away from zero.
const lossEpsilon = 1e-4

// StableSoftmax converts logits into probabilities that sum to 1.
//
// We subtract the max logit first, so every exp argument is <= 0 and
// cannot overflow. The max is folded left to right, which decides where
// the max gradient goes on ties.
func StableSoftmax(g *Graph, logits []Value) []Value {
	maxV := logits[0]
	for _, l := range logits[1:] {
		maxV = g.Max(maxV, l)
	}

	exps := make([]Value, len(logits))
	for i, l := range logits {
		exps[i] = g.Exp(g.Sub(l, maxV))
	}

	total := exps[0]
	for _, e := range exps[1:] {
		total = g.Add(total, e)
	}

	probs := make([]Value, len(exps))
	for i, e := range exps {
		probs[i] = g.Div(e, total)
	}
	return probs
}

// CrossEntropy builds -sum(target[i] * log(probs[i] + eps)).
func CrossEntropy(g *Graph, probs, target []Value) Value {
	if len(probs) != len(target) {
		panic("loss: probabilities and target differ in length")
	}
	sum := g.Const(0)
	for i, p := range probs {
		term := g.Mul(g.Log(g.Add(p, g.Const(lossEpsilon))), target[i])
		sum = g.Add(sum, term)
	}
	return g.Mul(sum, g.Const(-1))
}

package main

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EpochStats summarizes one pass over the training set.
type EpochStats struct {
	Epoch    int     `json:"epoch"`
	Loss     float64 `json:"loss"`
	Batches  int     `json:"batches"`
	Examples int     `json:"examples"`
	Seconds  float64 `json:"seconds"`
}

// Trainer owns the persistent computation graph of one run.
//
// The loss expression is built exactly once, symbolically, over
// placeholder leaves. Per example the trainer only writes leaf data and
// replays the cached program; no node is ever created after NewTrainer.
//
// Notes:
// - rng is the only randomness source: weight init, then every shuffle.
// - mu serializes graph use between training and the HTTP handlers.
type Trainer struct {
	Config  Config
	Graph   *Graph
	Model   *MLP
	Inputs  []Value
	Targets []Value
	Logits  []Value
	Probs   []Value
	Loss    Value
	History []EpochStats

	prog *Program
	rng  *rand.Rand
	out  io.Writer
	mu   sync.Mutex
}

// NewTrainer builds the model and its loss graph. Progress goes to out.
func NewTrainer(cfg Config, out io.Writer) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	g := NewGraph(estimateNodes(cfg))

	t := &Trainer{Config: cfg, Graph: g, rng: rng, out: out}
	t.Model = NewMLP(g, rng, cfg.Inputs, cfg.Sizes())

	t.Inputs = make([]Value, cfg.Inputs)
	for i := range t.Inputs {
		t.Inputs[i] = g.Leaf(0)
	}
	t.Targets = make([]Value, cfg.Classes)
	for i := range t.Targets {
		t.Targets[i] = g.Leaf(0)
	}

	t.Logits = t.Model.Forward(g, t.Inputs)
	t.Probs = StableSoftmax(g, t.Logits)
	t.Loss = CrossEntropy(g, t.Probs, t.Targets)
	t.prog = g.Compile(t.Loss)
	return t, nil
}

// estimateNodes sizes the node table: two nodes per weight for the
// products and sums, plus the softmax/loss tail.
func estimateNodes(cfg Config) int {
	n, nin := cfg.Inputs+cfg.Classes, cfg.Inputs
	for _, size := range cfg.Sizes() {
		n += size * (3*nin + 3)
		nin = size
	}
	return n + 16*cfg.Classes
}

// Program returns the cached evaluation schedule of the loss.
func (t *Trainer) Program() *Program { return t.prog }

// load writes one record into the input and target leaves.
func (t *Trainer) load(rec *Record) error {
	if len(rec.Pixels) != len(t.Inputs) {
		return errors.Wrapf(ErrMalformedRecord, "%d pixels, model takes %d", len(rec.Pixels), len(t.Inputs))
	}
	if rec.Label < 0 || rec.Label >= len(t.Targets) {
		return errors.Wrapf(ErrMalformedRecord, "label %d outside [0,%d)", rec.Label, len(t.Targets))
	}
	g := t.Graph
	for i, target := range t.Targets {
		onehot := 0.0
		if i == rec.Label {
			onehot = 1
		}
		g.SetData(target, onehot)
	}
	for i, in := range t.Inputs {
		g.SetData(in, float64(rec.Pixels[i])/255)
	}
	return nil
}

// Step runs one forward and one backward pass for rec and returns its
// loss. Parameter gradients add onto whatever the batch has so far.
func (t *Trainer) Step(rec *Record) (float64, error) {
	if err := t.load(rec); err != nil {
		return 0, err
	}
	loss := t.prog.Forward()
	t.prog.Backward()
	return loss, nil
}

// TrainBatch resets all gradients, accumulates every non-padding record's
// gradient, then applies one SGD step. nil entries are padding: they get
// no pass and add no loss.
func (t *Trainer) TrainBatch(batch []*Record) (float64, error) {
	t.prog.ZeroGrad()
	batchLoss := 0.0
	for _, rec := range batch {
		if rec == nil {
			continue
		}
		loss, err := t.Step(rec)
		if err != nil {
			return batchLoss, err
		}
		batchLoss += loss
	}
	t.Model.Update(t.Graph, t.Config.LearningRate)
	return batchLoss, nil
}

// TrainEpoch shuffles the (optionally limited) training set, groups it
// into padded batches and trains on each of them.
func (t *Trainer) TrainEpoch(epoch int, db []Record) (EpochStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	before := time.Now()
	batches := t.shuffleAndGroup(db)
	stats := EpochStats{Epoch: epoch, Batches: len(batches)}

	epochLoss := 0.0
	for i, batch := range batches {
		batchLoss, err := t.TrainBatch(batch)
		if err != nil {
			return stats, errors.Wrapf(err, "epoch %d batch %d", epoch, i)
		}
		for _, rec := range batch {
			if rec != nil {
				stats.Examples++
			}
		}
		if !t.Config.Quiet {
			fmt.Fprintf(t.out, "    %d of %d (loss %g)\n", i, len(batches), batchLoss)
		}
		epochLoss += batchLoss
	}

	if len(db) > 0 {
		epochLoss /= float64(len(db))
	}
	stats.Loss = epochLoss
	stats.Seconds = time.Since(before).Seconds()
	t.History = append(t.History, stats)
	fmt.Fprintf(t.out, "...epoch %d loss %g took %.2f sec)\n", epoch, stats.Loss, stats.Seconds)
	return stats, nil
}

// Train runs the configured number of epochs.
func (t *Trainer) Train(db []Record) error {
	fmt.Fprintln(t.out, "Training...")
	for epoch := 0; epoch < t.Config.Epochs; epoch++ {
		fmt.Fprintln(t.out, epoch)
		if _, err := t.TrainEpoch(epoch, db); err != nil {
			return err
		}
	}
	return nil
}

func (t *Trainer) shuffleAndGroup(db []Record) [][]*Record {
	n := len(db)
	if t.Config.TrainLimit >= 0 && t.Config.TrainLimit < n {
		n = t.Config.TrainLimit
	}
	l := make([]*Record, n)
	for i := range l {
		l[i] = &db[i]
	}
	shuffle(t.rng, l)
	return group(t.Config.BatchSize, l, nil)
}

// randbelow returns an int in [0,n) as int(n * u) for u in [0,1).
func randbelow(rng *rand.Rand, n int) int {
	return int(float64(n) * rng.Float64())
}

// shuffle is an in-place Fisher-Yates shuffle driven by rng.
func shuffle[T any](rng *rand.Rand, x []T) {
	for i := len(x) - 1; i > 0; i-- {
		j := randbelow(rng, i+1)
		x[i], x[j] = x[j], x[i]
	}
}

// group splits items into groups of n, padding the last group with fill.
//
// A trailing group is always emitted: when len(items) is a multiple of n
// it is made only of fill values.
func group[T any](n int, items []T, fill T) [][]T {
	var all [][]T
	curr := make([]T, 0, n)
	for _, x := range items {
		curr = append(curr, x)
		if len(curr) == n {
			all = append(all, curr)
			curr = make([]T, 0, n)
		}
	}
	for len(curr) < n {
		curr = append(curr, fill)
	}
	return append(all, curr)
}

// Predict runs the graph forward on one image and returns the most
// probable class together with all class probabilities.
func (t *Trainer) Predict(pixels []byte) (int, []float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, probs, err := t.predict(&Record{Pixels: pixels})
	if err != nil {
		return 0, nil, err
	}
	return floats.MaxIdx(probs), probs, nil
}

func (t *Trainer) predict(rec *Record) (float64, []float64, error) {
	if err := t.load(rec); err != nil {
		return 0, nil, err
	}
	loss := t.prog.Forward()
	probs := make([]float64, len(t.Probs))
	for i, p := range t.Probs {
		probs[i] = t.Graph.Data(p)
	}
	return loss, probs, nil
}

// Evaluation is the result of running a labeled set through the model.
type Evaluation struct {
	Total    int
	Correct  int
	Accuracy float64
	MeanLoss float64
	// Confusion[i][j] counts records of class i predicted as j.
	Confusion *mat.Dense
}

// Evaluate runs forward passes only; gradients and parameters are untouched.
func (t *Trainer) Evaluate(db []Record) (Evaluation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := len(t.Targets)
	ev := Evaluation{Total: len(db), Confusion: mat.NewDense(k, k, nil)}
	totalLoss := 0.0
	for i := range db {
		loss, probs, err := t.predict(&db[i])
		if err != nil {
			return ev, errors.Wrapf(err, "record %d", i)
		}
		totalLoss += loss
		pred := floats.MaxIdx(probs)
		if pred == db[i].Label {
			ev.Correct++
		}
		ev.Confusion.Set(db[i].Label, pred, ev.Confusion.At(db[i].Label, pred)+1)
	}
	if ev.Total > 0 {
		ev.Accuracy = float64(ev.Correct) / float64(ev.Total)
		ev.MeanLoss = totalLoss / float64(ev.Total)
	}
	return ev, nil
}

// timed prints msg, runs fn and reports how long it took.
func timed(w io.Writer, msg string, fn func()) {
	fmt.Fprint(w, msg, " ")
	before := time.Now()
	fn()
	fmt.Fprintf(w, "(%.2f s)\n", time.Since(before).Seconds())
}

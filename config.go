package main

import (
	"flag"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// parseArgs turns the command line into a Config.
//
// Usage: [flags] [epoch_count] [batch_size] [training_set_limit]
//
// All positional values are optional; a training_set_limit of -1 uses
// the entire training set.
func parseArgs(args []string, stderr io.Writer) (Config, error) {
	cfg := DefaultConfig()

	fs := flag.NewFlagSet("micrograd-mnist", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		io.WriteString(stderr, "usage: micrograd-mnist [flags] [epoch_count] [batch_size] [training_set_limit]\n")
		fs.PrintDefaults()
	}
	hidden := fs.String("hidden", "50", "comma separated hidden layer sizes")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed for weight init and shuffling")
	fs.Float64Var(&cfg.LearningRate, "lr", cfg.LearningRate, "SGD learning rate")
	fs.StringVar(&cfg.ImagesPath, "images", cfg.ImagesPath, "training images file")
	fs.StringVar(&cfg.LabelsPath, "labels", cfg.LabelsPath, "training labels file")
	fs.StringVar(&cfg.EvalImagesPath, "eval-images", "", "images file to evaluate after training")
	fs.StringVar(&cfg.EvalLabelsPath, "eval-labels", "", "labels file to evaluate after training")
	fs.StringVar(&cfg.Serve, "serve", "", "address to serve the trained model on, e.g. :8080")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "do not print per-batch progress")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cfg, err
		}
		return cfg, errors.Wrap(ErrConfig, err.Error())
	}

	sizes, err := parseSizes(*hidden)
	if err != nil {
		return cfg, err
	}
	cfg.Hidden = sizes

	positional := []struct {
		name string
		dst  *int
	}{
		{"epoch_count", &cfg.Epochs},
		{"batch_size", &cfg.BatchSize},
		{"training_set_limit", &cfg.TrainLimit},
	}
	rest := fs.Args()
	if len(rest) > len(positional) {
		return cfg, configErrorf("unexpected argument %q", rest[len(positional)])
	}
	for i, arg := range rest {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return cfg, configErrorf("%s: %q is not an integer", positional[i].name, arg)
		}
		*positional[i].dst = v
	}

	if (cfg.EvalImagesPath == "") != (cfg.EvalLabelsPath == "") {
		return cfg, configErrorf("-eval-images and -eval-labels must be given together")
	}
	return cfg, cfg.Validate()
}

func parseSizes(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	sizes := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, configErrorf("hidden: %q is not an integer", p)
		}
		sizes[i] = v
	}
	return sizes, nil
}

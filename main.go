package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the whole program; it returns the process exit code.
//
// 0 on normal completion, 2 for a bad command line, 1 for anything that
// fails afterwards (dataset format errors included).
func run(args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "", log.LstdFlags)

	cfg, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		logger.Printf("%v", err)
		return 2
	}

	var db []Record
	timed(stdout, "Loading dataset...", func() {
		db, err = LoadDataset(cfg.ImagesPath, cfg.LabelsPath)
	})
	if err != nil {
		logger.Printf("Failed to load training data: %v", err)
		return 1
	}

	var evalDB []Record
	if cfg.EvalImagesPath != "" {
		evalDB, err = LoadDataset(cfg.EvalImagesPath, cfg.EvalLabelsPath)
		if err != nil {
			logger.Printf("Failed to load evaluation data: %v", err)
			return 1
		}
	}

	var trainer *Trainer
	timed(stdout, "Building model...", func() {
		trainer, err = NewTrainer(cfg, stdout)
	})
	if err != nil {
		logger.Printf("%v", err)
		return 1
	}
	fmt.Fprintf(stdout, "%d parameters, %d nodes\n", len(trainer.Model.Parameters()), trainer.Graph.Len())

	if err := trainer.Train(db); err != nil {
		logger.Printf("Training failed: %v", err)
		return 1
	}

	if evalDB != nil {
		ev, err := trainer.Evaluate(evalDB)
		if err != nil {
			logger.Printf("Evaluation failed: %v", err)
			return 1
		}
		fmt.Fprintf(stdout, "Evaluated %d records: accuracy %.2f%%, mean loss %g\n",
			ev.Total, ev.Accuracy*100, ev.MeanLoss)
		fmt.Fprintf(stdout, "Confusion (row = label, column = prediction):\n%v\n",
			mat.Formatted(ev.Confusion, mat.Squeeze()))
	}

	if cfg.Serve != "" {
		mux := http.NewServeMux()
		NewServer(trainer).RegisterRoutes(mux)
		logger.Printf("Serving model on %s", cfg.Serve)
		if err := http.ListenAndServe(cfg.Serve, mux); err != nil {
			logger.Printf("Server stopped: %v", err)
			return 1
		}
	}
	return 0
}

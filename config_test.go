package main

import (
	"flag"
	"io"
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, c Config)
	}{
		{"defaults", nil, func(t *testing.T, c Config) {
			if c.Epochs != 100 || c.BatchSize != 10 || c.TrainLimit != -1 {
				t.Errorf("got %d/%d/%d", c.Epochs, c.BatchSize, c.TrainLimit)
			}
			if c.LearningRate != 0.1 || !reflect.DeepEqual(c.Hidden, []int{50}) {
				t.Errorf("lr %v hidden %v", c.LearningRate, c.Hidden)
			}
			if c.ImagesPath != "train-images-idx3-ubyte" || c.LabelsPath != "train-labels-idx1-ubyte" {
				t.Errorf("paths %q %q", c.ImagesPath, c.LabelsPath)
			}
		}},
		{"epochs only", []string{"3"}, func(t *testing.T, c Config) {
			if c.Epochs != 3 || c.BatchSize != 10 {
				t.Errorf("got %d/%d", c.Epochs, c.BatchSize)
			}
		}},
		{"all positional", []string{"5", "32", "1000"}, func(t *testing.T, c Config) {
			if c.Epochs != 5 || c.BatchSize != 32 || c.TrainLimit != 1000 {
				t.Errorf("got %d/%d/%d", c.Epochs, c.BatchSize, c.TrainLimit)
			}
		}},
		{"whole set after flags", []string{"-quiet", "2", "4", "-1"}, func(t *testing.T, c Config) {
			if !c.Quiet || c.TrainLimit != -1 || c.BatchSize != 4 {
				t.Errorf("got %+v", c)
			}
		}},
		{"flags", []string{"-hidden", "64, 32", "-seed", "9", "-lr", "0.05", "-images", "a", "-labels", "b"}, func(t *testing.T, c Config) {
			if !reflect.DeepEqual(c.Hidden, []int{64, 32}) || c.Seed != 9 || c.LearningRate != 0.05 {
				t.Errorf("got %+v", c)
			}
			if c.ImagesPath != "a" || c.LabelsPath != "b" {
				t.Errorf("paths %q %q", c.ImagesPath, c.LabelsPath)
			}
		}},
		{"no hidden layers", []string{"-hidden", ""}, func(t *testing.T, c Config) {
			if len(c.Hidden) != 0 || !reflect.DeepEqual(c.Sizes(), []int{10}) {
				t.Errorf("hidden %v sizes %v", c.Hidden, c.Sizes())
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseArgs(tt.args, io.Discard)
			if err != nil {
				t.Fatalf("parseArgs: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing flag value", []string{"-seed"}},
		{"unknown flag", []string{"-jit", "x"}},
		{"not an integer", []string{"ten"}},
		{"bad batch size", []string{"1", "0"}},
		{"too many", []string{"1", "2", "3", "4"}},
		{"bad hidden", []string{"-hidden", "50,x"}},
		{"limit below -1", []string{"1", "1", "-5"}},
		{"eval pair", []string{"-eval-images", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseArgs(tt.args, io.Discard); !errors.Is(err, ErrConfig) {
				t.Errorf("err = %v, want ErrConfig", err)
			}
		})
	}
}

func TestParseArgsHelp(t *testing.T) {
	if _, err := parseArgs([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("err = %v, want flag.ErrHelp", err)
	}
}

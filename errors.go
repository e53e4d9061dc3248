package main

import "github.com/pkg/errors"

var (
	// ErrConfig reports a missing or invalid command line value.
	ErrConfig = errors.New("invalid configuration")

	// ErrFormat reports a dataset whose header or contents do not match
	// the expected layout. It always aborts the run before training.
	ErrFormat = errors.New("malformed dataset")

	// ErrMalformedRecord reports a batch element that is neither a
	// record the model can consume nor the padding sentinel.
	ErrMalformedRecord = errors.New("malformed record")
)

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfig, format, args...)
}

func formatErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrFormat, format, args...)
}

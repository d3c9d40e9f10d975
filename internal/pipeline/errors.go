package pipeline

import (
	"errors"
	"fmt"
)

// ErrIO is the sentinel wrapped by every IOError
var ErrIO = errors.New("i/o failure")

// IOError reports a directory or artifact the pipeline could not create or write
type IOError struct {
	Op   string // mkdir, create, write, rename, list
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// ErrDuplicateStem is returned for an input whose cleaned name was already
// written earlier in the same run (e.g. talk.mp3 and talk.wav)
var ErrDuplicateStem = errors.New("another input in this run maps to the same output name")

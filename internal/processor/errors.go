package processor

import (
	"errors"
	"fmt"
)

// ErrDegenerateInput marks a stage that skipped its work because the input was
// empty, all-zero or numerically unusable. It is a warning: the stage still returns
// a valid waveform (an unchanged copy of its input).
var ErrDegenerateInput = errors.New("degenerate input")

// DegenerateInputError names the stage and the reason it passed its input through
type DegenerateInputError struct {
	Stage  StageID
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%s: %s, passing input through unchanged", e.Stage, e.Reason)
}

func (e *DegenerateInputError) Unwrap() error {
	return ErrDegenerateInput
}

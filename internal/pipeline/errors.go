package pipeline

import (
	"errors"
	"fmt"
)

// Stages of a run, used to label fatal errors.
const (
	StageInputs  = "collect inputs"
	StageDevice  = "device setup"
	StageLoad    = "load network"
	StageBind    = "bind inputs"
	StageOutputs = "bind outputs"
	StageCompile = "compile"
	StageFill    = "fill tensors"
	StageInfer   = "inference"
	StageResult  = "materialize output"
)

var (
	ErrUnsupportedTopology = errors.New("the network must declare 1 or 2 image inputs")
	ErrNoValidImages       = errors.New("valid input images were not found")
	ErrInvalidOutput       = errors.New("invalid output")
	ErrDecode              = errors.New("image cannot be read")
	ErrSizeMismatch        = errors.New("image size does not match the network input")
)

// StageError is a fatal failure; the run stops at Stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fail(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Skipped is an input image left out of the batch. Reason wraps ErrDecode
// or ErrSizeMismatch.
type Skipped struct {
	Path   string
	Reason error
}

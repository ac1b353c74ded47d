package usecase

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the page insight pipeline.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrAcquisition = errors.New("browser session acquisition failed")
	ErrRender      = errors.New("page render failed")
	ErrDownstream  = errors.New("downstream service failed")
)

// PipelineError attaches an error kind to the underlying cause.
type PipelineError struct {
	Kind error
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newPipelineError(kind, err error) error {
	return &PipelineError{Kind: kind, Err: err}
}

// ErrorType returns the metrics label for err.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrAcquisition):
		return "acquisition"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrDownstream):
		return "downstream"
	default:
		return "unknown"
	}
}

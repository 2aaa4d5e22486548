package optim

import (
	"errors"
	"fmt"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// Sentinel errors.
var (
	// ErrUnsupported is returned by the native passthrough optimizer for
	// operations the external engine does not expose.
	ErrUnsupported = errors.New("optim: operation not supported by native optimizer")

	// ErrParamsChanged is returned when the parameter list passed to Step
	// differs from the list the optimizer was bound to on its first step.
	ErrParamsChanged = errors.New("optim: parameter list changed between steps")

	// ErrNoState is returned when a weight snapshot or restore is requested
	// before the optimizer has taken a step and allocated its accumulators.
	ErrNoState = errors.New("optim: optimizer has no state yet")
)

// ConfigurationError reports an unrecognized or invalid option supplied at
// construction time or during config import. It is never produced by Step.
type ConfigurationError struct {
	Option string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("optim: unexpected option %q", e.Option)
	}
	return fmt.Sprintf("optim: option %q: %s", e.Option, e.Reason)
}

// ShapeMismatchError reports a restored weight whose shape does not match
// the corresponding live state tensor. Restore is all-or-nothing: no state
// is modified when this error is returned.
type ShapeMismatchError struct {
	Index int
	Want  tensor.Shape
	Got   tensor.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("optim: weight %d: shape %v is not compatible with %v",
		e.Index, e.Got, e.Want)
}

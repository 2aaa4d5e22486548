package optim

import (
	"fmt"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// NativeEngine is an external update engine that owns both gradient
// computation and the parameter update batch, such as a GPU runtime with
// fused optimizer kernels.
type NativeEngine interface {
	// ApplyUpdates computes gradients of loss with respect to params and
	// applies one complete update step. Engines that track a global step
	// advance *step; the wrapper does no counting of its own.
	ApplyUpdates(loss LossFunc, params []*Parameter, step *int64) error
}

// Native adapts a NativeEngine to the Optimizer interface.
//
// The engine's update semantics are opaque to this package, so gradient
// clipping and cyclical schedules are not applied, constraint projection
// is rejected, and state snapshots and config export are unsupported:
// the engine owns all of that.
type Native struct {
	engine     NativeEngine
	iterations int64
}

// NewNative wraps an external update engine.
func NewNative(engine NativeEngine) (*Native, error) {
	if engine == nil {
		return nil, &ConfigurationError{Option: "engine", Reason: "must not be nil"}
	}
	return &Native{engine: engine}, nil
}

// Step delegates the full update to the engine. Supplying constraints is
// an error: native engines expose no projection hook.
func (o *Native) Step(params []*Parameter, constraints Constraints, loss LossFunc) error {
	if len(constraints) > 0 {
		return fmt.Errorf("%w: constraints require a non-native optimizer", ErrUnsupported)
	}
	return o.engine.ApplyUpdates(loss, params, &o.iterations)
}

// Iterations returns the step counter as advanced by the engine.
func (o *Native) Iterations() int64 {
	return o.iterations
}

// CurrentRate always reports zero: the engine owns the learning rate.
func (o *Native) CurrentRate() float64 {
	return 0
}

// Weights is unsupported: the engine owns the optimizer state.
func (o *Native) Weights() ([]*tensor.Tensor, error) {
	return nil, fmt.Errorf("%w: engine owns the optimizer state", ErrUnsupported)
}

// SetWeights is unsupported: the engine owns the optimizer state.
func (o *Native) SetWeights([]*tensor.Tensor) error {
	return fmt.Errorf("%w: engine owns the optimizer state", ErrUnsupported)
}

// Config is unsupported: the engine owns the optimizer configuration.
func (o *Native) Config() (map[string]any, error) {
	return nil, fmt.Errorf("%w: engine owns the optimizer configuration", ErrUnsupported)
}

// Package optim implements first-order gradient update rules with an
// optional cyclical learning rate schedule.
//
// This package provides:
//   - Optimizer interface: the shared update-step contract
//   - SGD, RMSProp, Adagrad, Adadelta, Adam, Adamax, Nadam update rules
//   - CLR: cyclical learning rate schedules (triangular, triangular2, exp_range)
//   - Gradient clipping by joint global norm and by element value
//   - Constraint projection applied after the raw update
//   - Native: passthrough to an external update engine
//
// Every optimizer follows the same step pipeline: gradients are obtained
// from the Differentiator and clipped, the effective learning rate is
// derived from the decayed base rate and the CLR schedule using the
// pre-step counter, per-parameter updates are computed from pre-step
// state, constraints are projected, and everything commits as one atomic
// batch. The step counter advances by exactly one per step.
//
// Example usage:
//
//	w, _ := tensor.FromSlice([]float64{2.0}, tensor.Shape{1})
//	weight := optim.NewParameter("w", w)
//	params := []*optim.Parameter{weight}
//
//	opt, _ := optim.NewSGD(optim.FiniteDiff{}, optim.SGDConfig{LR: 0.1})
//	loss := func() float64 {
//	    v := weight.Value().Data()[0]
//	    return v * v
//	}
//
//	for step := 0; step < 100; step++ {
//	    if err := opt.Step(params, nil, loss); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"fmt"
	"math"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// Optimizer is the update-step contract shared by all variants.
//
// Callers must serialize Step invocations: an optimizer instance supports
// no concurrent steps. The parameter list passed to Step must stay
// identical (same parameters, same order) for the optimizer's lifetime;
// violating that is a defined failure (ErrParamsChanged).
type Optimizer interface {
	// Step performs one update: gradients, clipping, schedule, per-
	// parameter update formulas, constraint projection, atomic commit.
	// On error no parameter or optimizer state has been modified.
	Step(params []*Parameter, constraints Constraints, loss LossFunc) error

	// Iterations returns the step counter. It advances by exactly one
	// per successful Step.
	Iterations() int64

	// CurrentRate returns the effective learning rate recorded by the
	// most recent step. It is derived state, exposed for inspection only.
	CurrentRate() float64

	// Weights returns a snapshot of the optimizer's state tensors in
	// variant-defined order. Returns ErrNoState before the first step.
	Weights() ([]*tensor.Tensor, error)

	// SetWeights restores a snapshot produced by Weights. All shapes are
	// validated before any state is assigned; on error nothing changes.
	SetWeights(weights []*tensor.Tensor) error

	// Config exports hyperparameters, counter and current rate as plain
	// scalars, round-trippable through FromConfig.
	Config() (map[string]any, error)
}

// Options are the settings every optimizer variant accepts in addition to
// its own hyperparameters.
type Options struct {
	// ClipNorm rescales gradients so their joint Euclidean norm across
	// all parameters does not exceed this value. Zero disables.
	ClipNorm float64
	// ClipValue clamps every gradient element to [-ClipValue, ClipValue],
	// after norm clipping. Zero disables.
	ClipValue float64
	// CLR enables a cyclical learning rate schedule. Nil disables.
	CLR *CLR
}

// base carries the state and behavior shared by all update rules: clip
// settings, the CLR schedule, the step counter, the current rate, the
// bound parameter list and the atomic commit machinery.
type base struct {
	diff       Differentiator
	clipNorm   float64
	clipValue  float64
	clr        *CLR
	iterations int64
	currentLR  float64
	params     []*Parameter
}

func newBase(diff Differentiator, opts Options) (base, error) {
	if diff == nil {
		return base{}, &ConfigurationError{Option: "differentiator", Reason: "must not be nil"}
	}
	if opts.ClipNorm < 0 {
		return base{}, &ConfigurationError{Option: "clipnorm", Reason: "must be >= 0"}
	}
	if opts.ClipValue < 0 {
		return base{}, &ConfigurationError{Option: "clipvalue", Reason: "must be >= 0"}
	}
	if opts.CLR != nil {
		if err := opts.CLR.validate(); err != nil {
			return base{}, err
		}
	}
	return base{
		diff:      diff,
		clipNorm:  opts.ClipNorm,
		clipValue: opts.ClipValue,
		clr:       opts.CLR,
	}, nil
}

// Iterations returns the step counter.
func (b *base) Iterations() int64 {
	return b.iterations
}

// CurrentRate returns the effective learning rate of the last step.
func (b *base) CurrentRate() float64 {
	return b.currentLR
}

// bindParams locks the parameter list on the first step and verifies it
// on every later step. The list must keep the same parameters in the
// same order.
func (b *base) bindParams(params []*Parameter) error {
	if b.params == nil {
		for i, p := range params {
			if p == nil || p.Value() == nil {
				return fmt.Errorf("optim: parameter %d is nil", i)
			}
		}
		b.params = append([]*Parameter(nil), params...)
		return nil
	}
	if len(params) != len(b.params) {
		return ErrParamsChanged
	}
	for i := range params {
		if params[i] != b.params[i] {
			return ErrParamsChanged
		}
	}
	return nil
}

// gradients obtains gradients from the Differentiator, validates the
// order contract, then applies joint global-norm clipping followed by
// per-element value clipping.
func (b *base) gradients(loss LossFunc, params []*Parameter) ([]*tensor.Tensor, error) {
	grads, err := b.diff.Gradients(loss, params)
	if err != nil {
		return nil, fmt.Errorf("optim: gradient computation: %w", err)
	}
	if len(grads) != len(params) {
		return nil, fmt.Errorf("optim: differentiator returned %d gradients for %d parameters",
			len(grads), len(params))
	}
	for i, g := range grads {
		if g == nil || !g.Shape().Equal(params[i].Value().Shape()) {
			return nil, fmt.Errorf("optim: gradient %d does not match parameter %q shape %v",
				i, params[i].Name(), params[i].Value().Shape())
		}
	}
	if b.clipNorm > 0 {
		var sum float64
		for _, g := range grads {
			n := g.Norm2()
			sum += n * n
		}
		// No clipping when the joint norm is below the threshold,
		// including the degenerate all-zero case.
		if norm := math.Sqrt(sum); norm >= b.clipNorm {
			scale := b.clipNorm / norm
			for _, g := range grads {
				g.Scale(scale)
			}
		}
	}
	if b.clipValue > 0 {
		for _, g := range grads {
			g.Clamp(-b.clipValue, b.clipValue)
		}
	}
	return grads, nil
}

// rate computes the effective learning rate for the current step from the
// pre-step counter: time-based decay first, then the CLR schedule.
func (b *base) rate(lr, decay float64) float64 {
	if decay > 0 {
		lr *= 1 / (1 + decay*float64(b.iterations))
	}
	return b.clr.Rate(lr, b.iterations)
}

// assignment stages one state write for the commit phase.
type assignment struct {
	dst *tensor.Tensor
	src *tensor.Tensor
}

// commit applies all staged writes, records the effective rate and
// advances the step counter. Nothing before commit mutates optimizer or
// parameter state, so a failed step leaves everything untouched.
func (b *base) commit(rate float64, assigns []assignment) {
	for _, a := range assigns {
		copy(a.dst.Data(), a.src.Data())
	}
	b.currentLR = rate
	b.iterations++
}

// setCounters restores counter bookkeeping during config import.
func (b *base) setCounters(iterations int64, currentLR float64) {
	b.iterations = iterations
	b.currentLR = currentLR
}

// snapshot clones the given state tensor groups, optionally prefixed by
// the step counter as a scalar tensor.
func (b *base) snapshot(withCounter bool, groups ...[]*tensor.Tensor) []*tensor.Tensor {
	var out []*tensor.Tensor
	if withCounter {
		out = append(out, tensor.Scalar(float64(b.iterations)))
	}
	for _, g := range groups {
		for _, t := range g {
			out = append(out, t.Clone())
		}
	}
	return out
}

// restore validates a snapshot against the live state tensors and, only
// when every shape matches, assigns all of it.
func (b *base) restore(weights []*tensor.Tensor, withCounter bool, groups ...[]*tensor.Tensor) error {
	var live []*tensor.Tensor
	for _, g := range groups {
		live = append(live, g...)
	}
	want := len(live)
	if withCounter {
		want++
	}
	if len(weights) != want {
		return fmt.Errorf("optim: restore expects %d weights, got %d", want, len(weights))
	}
	offset := 0
	if withCounter {
		if !weights[0].Shape().Equal(tensor.Shape{}) {
			return &ShapeMismatchError{Index: 0, Want: tensor.Shape{}, Got: weights[0].Shape().Clone()}
		}
		offset = 1
	}
	for i, dst := range live {
		if !weights[offset+i].Shape().Equal(dst.Shape()) {
			return &ShapeMismatchError{
				Index: offset + i,
				Want:  dst.Shape().Clone(),
				Got:   weights[offset+i].Shape().Clone(),
			}
		}
	}
	if withCounter {
		b.iterations = int64(weights[0].Data()[0])
	}
	for i, dst := range live {
		copy(dst.Data(), weights[offset+i].Data())
	}
	return nil
}

// baseConfig exports the settings shared by every variant.
func (b *base) baseConfig() map[string]any {
	cfg := map[string]any{
		"iterations": b.iterations,
		"current_lr": b.currentLR,
	}
	if b.clipNorm > 0 {
		cfg["clipnorm"] = b.clipNorm
	}
	if b.clipValue > 0 {
		cfg["clipvalue"] = b.clipValue
	}
	if b.clr != nil {
		cfg["clr"] = b.clr.config()
	}
	return cfg
}

// zerosLike allocates one zeroed accumulator per parameter, shaped like
// the parameter. Accumulators keep these shapes for the optimizer's
// lifetime.
func zerosLike(params []*Parameter) []*tensor.Tensor {
	acc := make([]*tensor.Tensor, len(params))
	for i, p := range params {
		acc[i] = tensor.Zeros(p.Value().Shape())
	}
	return acc
}

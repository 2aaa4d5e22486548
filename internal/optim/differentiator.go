package optim

import (
	"errors"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// LossFunc evaluates the scalar training loss at the parameters' current
// values. Optimizers call it through their Differentiator once per step.
type LossFunc func() float64

// Differentiator computes gradients of a scalar loss with respect to an
// ordered parameter list. It is the differentiation collaborator of this
// package: an automatic-differentiation engine, a finite-difference
// approximation, or a test stub.
//
// Implementations must return exactly one gradient per parameter, in
// parameter order, each matching its parameter's shape. Returned tensors
// are handed over to the optimizer, which clips them in place.
type Differentiator interface {
	Gradients(loss LossFunc, params []*Parameter) ([]*tensor.Tensor, error)
}

// FiniteDiff approximates gradients with central finite differences.
//
// It is a practical default collaborator for models without an autodiff
// engine. Each step costs two loss evaluations per parameter element, so
// it is only suitable for small parameter counts.
type FiniteDiff struct {
	// Step is the perturbation size. Zero selects the formula default.
	Step float64
}

// Gradients perturbs each parameter element in turn and differences the
// loss. Parameter values are restored exactly before returning.
func (f FiniteDiff) Gradients(loss LossFunc, params []*Parameter) ([]*tensor.Tensor, error) {
	if loss == nil {
		return nil, errors.New("optim: nil loss function")
	}
	var settings *fd.Settings
	if f.Step > 0 {
		settings = &fd.Settings{Formula: fd.Central, Step: f.Step}
	}
	grads := make([]*tensor.Tensor, len(params))
	for i, p := range params {
		data := p.Value().Data()
		x := append([]float64(nil), data...)
		g := make([]float64, len(x))
		fd.Gradient(g, func(v []float64) float64 {
			copy(data, v)
			return loss()
		}, x, settings)
		copy(data, x)
		grad, err := tensor.FromSlice(g, p.Value().Shape())
		if err != nil {
			return nil, err
		}
		grads[i] = grad
	}
	return grads, nil
}

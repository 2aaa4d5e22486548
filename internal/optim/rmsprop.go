package optim

import (
	"math"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// RMSProp divides the gradient by a running average of its recent
// magnitude.
//
// Update rule (per element, effective rate lr):
//
//	a <- rho*a + (1-rho)*g²
//	p <- p - lr*g / (sqrt(a) + eps)
//
// Reference: Tieleman & Hinton, "Lecture 6.5 - rmsprop" (2012).
type RMSProp struct {
	base
	lr           float64
	rho          float64
	epsilon      float64
	decay        float64
	accumulators []*tensor.Tensor
}

// RMSPropConfig holds configuration for the RMSProp optimizer.
// It is recommended to leave Rho and Epsilon at their defaults.
type RMSPropConfig struct {
	LR      float64 // learning rate (default: 0.001)
	Rho     float64 // moving-average factor (default: 0.9)
	Epsilon float64 // fuzz factor (default: 1e-8)
	Decay   float64 // learning rate decay per step
	Options
}

// NewRMSProp creates an RMSProp optimizer.
func NewRMSProp(diff Differentiator, config RMSPropConfig) (*RMSProp, error) {
	b, err := newBase(diff, config.Options)
	if err != nil {
		return nil, err
	}
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Rho == 0 {
		config.Rho = 0.9
	}
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}
	if err := checkRates(config.LR, config.Decay); err != nil {
		return nil, err
	}
	return &RMSProp{
		base:    b,
		lr:      config.LR,
		rho:     config.Rho,
		epsilon: config.Epsilon,
		decay:   config.Decay,
	}, nil
}

// Step performs one RMSProp update.
func (o *RMSProp) Step(params []*Parameter, constraints Constraints, loss LossFunc) error {
	if err := o.bindParams(params); err != nil {
		return err
	}
	if err := constraints.check(len(params)); err != nil {
		return err
	}
	grads, err := o.gradients(loss, params)
	if err != nil {
		return err
	}
	if o.accumulators == nil {
		o.accumulators = zerosLike(params)
	}
	lr := o.rate(o.lr, o.decay)
	assigns := make([]assignment, 0, 2*len(params))
	for i, p := range params {
		g := grads[i].Data()
		a := o.accumulators[i].Data()
		pv := p.Value().Data()
		newA := tensor.Zeros(p.Value().Shape())
		newP := tensor.Zeros(p.Value().Shape())
		na := newA.Data()
		np := newP.Data()
		for j := range pv {
			acc := o.rho*a[j] + (1-o.rho)*g[j]*g[j]
			na[j] = acc
			np[j] = pv[j] - lr*g[j]/(math.Sqrt(acc)+o.epsilon)
		}
		if err := constraints.apply(i, newP); err != nil {
			return err
		}
		assigns = append(assigns,
			assignment{o.accumulators[i], newA},
			assignment{p.Value(), newP})
	}
	o.commit(lr, assigns)
	return nil
}

// Weights returns the squared-gradient accumulators.
func (o *RMSProp) Weights() ([]*tensor.Tensor, error) {
	if o.accumulators == nil {
		return nil, ErrNoState
	}
	return o.snapshot(false, o.accumulators), nil
}

// SetWeights restores a snapshot produced by Weights.
func (o *RMSProp) SetWeights(weights []*tensor.Tensor) error {
	if o.accumulators == nil {
		return ErrNoState
	}
	return o.restore(weights, false, o.accumulators)
}

// Config exports the optimizer's hyperparameters and counters.
func (o *RMSProp) Config() (map[string]any, error) {
	cfg := o.baseConfig()
	cfg["lr"] = o.lr
	cfg["rho"] = o.rho
	cfg["epsilon"] = o.epsilon
	cfg["decay"] = o.decay
	return cfg, nil
}

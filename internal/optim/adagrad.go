package optim

import (
	"math"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// Adagrad adapts the learning rate per element from the full history of
// squared gradients.
//
// Update rule (per element, effective rate lr):
//
//	a <- a + g²
//	p <- p - lr*g / (sqrt(a) + eps)
//
// Reference: Duchi, Hazan & Singer, "Adaptive Subgradient Methods for
// Online Learning and Stochastic Optimization" (2011).
type Adagrad struct {
	base
	lr           float64
	epsilon      float64
	decay        float64
	accumulators []*tensor.Tensor
}

// AdagradConfig holds configuration for the Adagrad optimizer.
type AdagradConfig struct {
	LR      float64 // learning rate (default: 0.01)
	Epsilon float64 // fuzz factor (default: 1e-8)
	Decay   float64 // learning rate decay per step
	Options
}

// NewAdagrad creates an Adagrad optimizer.
func NewAdagrad(diff Differentiator, config AdagradConfig) (*Adagrad, error) {
	b, err := newBase(diff, config.Options)
	if err != nil {
		return nil, err
	}
	if config.LR == 0 {
		config.LR = 0.01
	}
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}
	if err := checkRates(config.LR, config.Decay); err != nil {
		return nil, err
	}
	return &Adagrad{
		base:    b,
		lr:      config.LR,
		epsilon: config.Epsilon,
		decay:   config.Decay,
	}, nil
}

// Step performs one Adagrad update.
func (o *Adagrad) Step(params []*Parameter, constraints Constraints, loss LossFunc) error {
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
			acc := a[j] + g[j]*g[j]
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
func (o *Adagrad) Weights() ([]*tensor.Tensor, error) {
	if o.accumulators == nil {
		return nil, ErrNoState
	}
	return o.snapshot(false, o.accumulators), nil
}

// SetWeights restores a snapshot produced by Weights.
func (o *Adagrad) SetWeights(weights []*tensor.Tensor) error {
	if o.accumulators == nil {
		return ErrNoState
	}
	return o.restore(weights, false, o.accumulators)
}

// Config exports the optimizer's hyperparameters and counters.
func (o *Adagrad) Config() (map[string]any, error) {
	cfg := o.baseConfig()
	cfg["lr"] = o.lr
	cfg["epsilon"] = o.epsilon
	cfg["decay"] = o.decay
	return cfg, nil
}

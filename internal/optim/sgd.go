package optim

import (
	"github.com/pulse-ml/pulse/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum,
// Nesterov momentum and learning rate decay.
//
// Update rule (per element, effective rate lr):
//
//	v = momentum*m - lr*g
//	m <- v
//	p <- p + momentum*v - lr*g   (Nesterov)
//	p <- p + v                   (otherwise)
type SGD struct {
	base
	lr       float64
	momentum float64
	decay    float64
	nesterov bool
	moments  []*tensor.Tensor
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float64 // learning rate (default: 0.01)
	Momentum float64 // momentum factor, in [0, 1)
	Decay    float64 // learning rate decay per step
	Nesterov bool    // apply Nesterov momentum
	Options
}

// NewSGD creates an SGD optimizer.
func NewSGD(diff Differentiator, config SGDConfig) (*SGD, error) {
	b, err := newBase(diff, config.Options)
	if err != nil {
		return nil, err
	}
	if config.LR == 0 {
		config.LR = 0.01
	}
	if err := checkRates(config.LR, config.Decay); err != nil {
		return nil, err
	}
	if config.Momentum < 0 {
		return nil, &ConfigurationError{Option: "momentum", Reason: "must be >= 0"}
	}
	return &SGD{
		base:     b,
		lr:       config.LR,
		momentum: config.Momentum,
		decay:    config.Decay,
		nesterov: config.Nesterov,
	}, nil
}

// Step performs one SGD update.
func (o *SGD) Step(params []*Parameter, constraints Constraints, loss LossFunc) error {
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
	if o.moments == nil {
		o.moments = zerosLike(params)
	}
	lr := o.rate(o.lr, o.decay)
	assigns := make([]assignment, 0, 2*len(params))
	for i, p := range params {
		g := grads[i].Data()
		m := o.moments[i].Data()
		pv := p.Value().Data()
		newM := tensor.Zeros(p.Value().Shape())
		newP := tensor.Zeros(p.Value().Shape())
		nm := newM.Data()
		np := newP.Data()
		for j := range pv {
			v := o.momentum*m[j] - lr*g[j]
			nm[j] = v
			if o.nesterov {
				np[j] = pv[j] + o.momentum*v - lr*g[j]
			} else {
				np[j] = pv[j] + v
			}
		}
		if err := constraints.apply(i, newP); err != nil {
			return err
		}
		assigns = append(assigns,
			assignment{o.moments[i], newM},
			assignment{p.Value(), newP})
	}
	o.commit(lr, assigns)
	return nil
}

// Weights returns [counter] followed by the momentum buffers.
func (o *SGD) Weights() ([]*tensor.Tensor, error) {
	if o.moments == nil {
		return nil, ErrNoState
	}
	return o.snapshot(true, o.moments), nil
}

// SetWeights restores a snapshot produced by Weights.
func (o *SGD) SetWeights(weights []*tensor.Tensor) error {
	if o.moments == nil {
		return ErrNoState
	}
	return o.restore(weights, true, o.moments)
}

// Config exports the optimizer's hyperparameters and counters.
func (o *SGD) Config() (map[string]any, error) {
	cfg := o.baseConfig()
	cfg["lr"] = o.lr
	cfg["momentum"] = o.momentum
	cfg["decay"] = o.decay
	cfg["nesterov"] = o.nesterov
	return cfg, nil
}

// checkRates validates the learning rate and decay common to most variants.
func checkRates(lr, decay float64) error {
	if lr < 0 {
		return &ConfigurationError{Option: "lr", Reason: "must be >= 0"}
	}
	if decay < 0 {
		return &ConfigurationError{Option: "decay", Reason: "must be >= 0"}
	}
	return nil
}

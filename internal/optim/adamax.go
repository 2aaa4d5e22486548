package optim

import (
	"math"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// Adamax is the infinity-norm variant of Adam: the second moment is
// replaced by an exponentially weighted running maximum of |g|.
//
// Update rule (per element, effective rate lr, pre-step counter n,
// t = n+1):
//
//	lr_t = lr / (1-beta1^t)
//	m <- beta1*m + (1-beta1)*g
//	u <- max(beta2*u, |g|)
//	p <- p - lr_t*m / (u + eps)
//
// Reference: Kingma & Ba, "Adam: A Method for Stochastic Optimization"
// (2014), section 7.
type Adamax struct {
	base
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64
	decay   float64
	ms      []*tensor.Tensor
	us      []*tensor.Tensor
}

// AdamaxConfig holds configuration for the Adamax optimizer.
type AdamaxConfig struct {
	LR      float64 // learning rate (default: 0.002)
	Beta1   float64 // first-moment factor (default: 0.9)
	Beta2   float64 // infinity-norm factor (default: 0.999)
	Epsilon float64 // fuzz factor (default: 1e-8)
	Decay   float64 // learning rate decay per step
	Options
}

// NewAdamax creates an Adamax optimizer.
func NewAdamax(diff Differentiator, config AdamaxConfig) (*Adamax, error) {
	b, err := newBase(diff, config.Options)
	if err != nil {
		return nil, err
	}
	if config.LR == 0 {
		config.LR = 0.002
	}
	if config.Beta1 == 0 {
		config.Beta1 = 0.9
	}
	if config.Beta2 == 0 {
		config.Beta2 = 0.999
	}
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}
	if err := checkRates(config.LR, config.Decay); err != nil {
		return nil, err
	}
	if err := checkBetas(config.Beta1, config.Beta2); err != nil {
		return nil, err
	}
	return &Adamax{
		base:    b,
		lr:      config.LR,
		beta1:   config.Beta1,
		beta2:   config.Beta2,
		epsilon: config.Epsilon,
		decay:   config.Decay,
	}, nil
}

// Step performs one Adamax update.
func (o *Adamax) Step(params []*Parameter, constraints Constraints, loss LossFunc) error {
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
	if o.ms == nil {
		o.ms = zerosLike(params)
		o.us = zerosLike(params)
	}
	lr := o.rate(o.lr, o.decay)
	t := float64(o.iterations + 1)
	lrT := lr / (1 - math.Pow(o.beta1, t))
	assigns := make([]assignment, 0, 3*len(params))
	for i, p := range params {
		g := grads[i].Data()
		m := o.ms[i].Data()
		u := o.us[i].Data()
		pv := p.Value().Data()
		newM := tensor.Zeros(p.Value().Shape())
		newU := tensor.Zeros(p.Value().Shape())
		newP := tensor.Zeros(p.Value().Shape())
		nm := newM.Data()
		nu := newU.Data()
		np := newP.Data()
		for j := range pv {
			mT := o.beta1*m[j] + (1-o.beta1)*g[j]
			uT := math.Max(o.beta2*u[j], math.Abs(g[j]))
			nm[j] = mT
			nu[j] = uT
			np[j] = pv[j] - lrT*mT/(uT+o.epsilon)
		}
		if err := constraints.apply(i, newP); err != nil {
			return err
		}
		assigns = append(assigns,
			assignment{o.ms[i], newM},
			assignment{o.us[i], newU},
			assignment{p.Value(), newP})
	}
	o.commit(lr, assigns)
	return nil
}

// Weights returns [counter] followed by the first-moment estimates and
// the infinity-norm accumulators.
func (o *Adamax) Weights() ([]*tensor.Tensor, error) {
	if o.ms == nil {
		return nil, ErrNoState
	}
	return o.snapshot(true, o.ms, o.us), nil
}

// SetWeights restores a snapshot produced by Weights.
func (o *Adamax) SetWeights(weights []*tensor.Tensor) error {
	if o.ms == nil {
		return ErrNoState
	}
	return o.restore(weights, true, o.ms, o.us)
}

// Config exports the optimizer's hyperparameters and counters.
func (o *Adamax) Config() (map[string]any, error) {
	cfg := o.baseConfig()
	cfg["lr"] = o.lr
	cfg["beta_1"] = o.beta1
	cfg["beta_2"] = o.beta2
	cfg["epsilon"] = o.epsilon
	cfg["decay"] = o.decay
	return cfg, nil
}

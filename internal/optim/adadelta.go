package optim

import (
	"math"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// Adadelta scales updates by the ratio of two running averages: squared
// deltas over squared gradients.
//
// Update rule (per element, effective rate lr):
//
//	a <- rho*a + (1-rho)*g²
//	update = g * sqrt(d_a + eps) / sqrt(a + eps)   // d_a from the previous step
//	p <- p - lr*update
//	d_a <- rho*d_a + (1-rho)*update²
//
// The update term reads the delta accumulator from the previous step; the
// new one is stored afterwards.
//
// Reference: Zeiler, "ADADELTA: An Adaptive Learning Rate Method" (2012).
type Adadelta struct {
	base
	lr                float64
	rho               float64
	epsilon           float64
	decay             float64
	accumulators      []*tensor.Tensor
	deltaAccumulators []*tensor.Tensor
}

// AdadeltaConfig holds configuration for the Adadelta optimizer.
// It is recommended to leave all values at their defaults.
type AdadeltaConfig struct {
	LR      float64 // learning rate (default: 1.0)
	Rho     float64 // moving-average factor (default: 0.95)
	Epsilon float64 // fuzz factor (default: 1e-8)
	Decay   float64 // learning rate decay per step
	Options
}

// NewAdadelta creates an Adadelta optimizer.
func NewAdadelta(diff Differentiator, config AdadeltaConfig) (*Adadelta, error) {
	b, err := newBase(diff, config.Options)
	if err != nil {
		return nil, err
	}
	if config.LR == 0 {
		config.LR = 1.0
	}
	if config.Rho == 0 {
		config.Rho = 0.95
	}
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}
	if err := checkRates(config.LR, config.Decay); err != nil {
		return nil, err
	}
	return &Adadelta{
		base:    b,
		lr:      config.LR,
		rho:     config.Rho,
		epsilon: config.Epsilon,
		decay:   config.Decay,
	}, nil
}

// Step performs one Adadelta update.
func (o *Adadelta) Step(params []*Parameter, constraints Constraints, loss LossFunc) error {
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
		o.deltaAccumulators = zerosLike(params)
	}
	lr := o.rate(o.lr, o.decay)
	assigns := make([]assignment, 0, 3*len(params))
	for i, p := range params {
		g := grads[i].Data()
		a := o.accumulators[i].Data()
		da := o.deltaAccumulators[i].Data()
		pv := p.Value().Data()
		newA := tensor.Zeros(p.Value().Shape())
		newDA := tensor.Zeros(p.Value().Shape())
		newP := tensor.Zeros(p.Value().Shape())
		na := newA.Data()
		nda := newDA.Data()
		np := newP.Data()
		for j := range pv {
			acc := o.rho*a[j] + (1-o.rho)*g[j]*g[j]
			na[j] = acc
			// new accumulator, previous step's delta accumulator
			update := g[j] * math.Sqrt(da[j]+o.epsilon) / math.Sqrt(acc+o.epsilon)
			np[j] = pv[j] - lr*update
			nda[j] = o.rho*da[j] + (1-o.rho)*update*update
		}
		if err := constraints.apply(i, newP); err != nil {
			return err
		}
		assigns = append(assigns,
			assignment{o.accumulators[i], newA},
			assignment{p.Value(), newP},
			assignment{o.deltaAccumulators[i], newDA})
	}
	o.commit(lr, assigns)
	return nil
}

// Weights returns the squared-gradient accumulators followed by the delta
// accumulators.
func (o *Adadelta) Weights() ([]*tensor.Tensor, error) {
	if o.accumulators == nil {
		return nil, ErrNoState
	}
	return o.snapshot(false, o.accumulators, o.deltaAccumulators), nil
}

// SetWeights restores a snapshot produced by Weights.
func (o *Adadelta) SetWeights(weights []*tensor.Tensor) error {
	if o.accumulators == nil {
		return ErrNoState
	}
	return o.restore(weights, false, o.accumulators, o.deltaAccumulators)
}

// Config exports the optimizer's hyperparameters and counters.
func (o *Adadelta) Config() (map[string]any, error) {
	cfg := o.baseConfig()
	cfg["lr"] = o.lr
	cfg["rho"] = o.rho
	cfg["epsilon"] = o.epsilon
	cfg["decay"] = o.decay
	return cfg, nil
}

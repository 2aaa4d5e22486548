package optim

import (
	"math"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// Adam maintains exponential moving averages of the gradient and its
// square, with bias correction folded into the step size.
//
// Update rule (per element, effective rate lr, pre-step counter n,
// t = n+1):
//
//	lr_t = lr * sqrt(1-beta2^t) / (1-beta1^t)
//	m <- beta1*m + (1-beta1)*g
//	v <- beta2*v + (1-beta2)*g²
//	p <- p - lr_t*m / (sqrt(v) + eps)
//
// Reference: Kingma & Ba, "Adam: A Method for Stochastic Optimization"
// (2014).
type Adam struct {
	base
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64
	decay   float64
	ms      []*tensor.Tensor
	vs      []*tensor.Tensor
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR      float64 // learning rate (default: 0.001)
	Beta1   float64 // first-moment factor (default: 0.9)
	Beta2   float64 // second-moment factor (default: 0.999)
	Epsilon float64 // fuzz factor (default: 1e-8)
	Decay   float64 // learning rate decay per step
	Options
}

// NewAdam creates an Adam optimizer.
func NewAdam(diff Differentiator, config AdamConfig) (*Adam, error) {
	b, err := newBase(diff, config.Options)
	if err != nil {
		return nil, err
	}
	if config.LR == 0 {
		config.LR = 0.001
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
	return &Adam{
		base:    b,
		lr:      config.LR,
		beta1:   config.Beta1,
		beta2:   config.Beta2,
		epsilon: config.Epsilon,
		decay:   config.Decay,
	}, nil
}

// Step performs one Adam update.
func (o *Adam) Step(params []*Parameter, constraints Constraints, loss LossFunc) error {
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
		o.vs = zerosLike(params)
	}
	lr := o.rate(o.lr, o.decay)
	t := float64(o.iterations + 1)
	lrT := lr * math.Sqrt(1-math.Pow(o.beta2, t)) / (1 - math.Pow(o.beta1, t))
	assigns := make([]assignment, 0, 3*len(params))
	for i, p := range params {
		g := grads[i].Data()
		m := o.ms[i].Data()
		v := o.vs[i].Data()
		pv := p.Value().Data()
		newM := tensor.Zeros(p.Value().Shape())
		newV := tensor.Zeros(p.Value().Shape())
		newP := tensor.Zeros(p.Value().Shape())
		nm := newM.Data()
		nv := newV.Data()
		np := newP.Data()
		for j := range pv {
			mT := o.beta1*m[j] + (1-o.beta1)*g[j]
			vT := o.beta2*v[j] + (1-o.beta2)*g[j]*g[j]
			nm[j] = mT
			nv[j] = vT
			np[j] = pv[j] - lrT*mT/(math.Sqrt(vT)+o.epsilon)
		}
		if err := constraints.apply(i, newP); err != nil {
			return err
		}
		assigns = append(assigns,
			assignment{o.ms[i], newM},
			assignment{o.vs[i], newV},
			assignment{p.Value(), newP})
	}
	o.commit(lr, assigns)
	return nil
}

// Weights returns [counter] followed by the first- and second-moment
// estimates.
func (o *Adam) Weights() ([]*tensor.Tensor, error) {
	if o.ms == nil {
		return nil, ErrNoState
	}
	return o.snapshot(true, o.ms, o.vs), nil
}

// SetWeights restores a snapshot produced by Weights.
func (o *Adam) SetWeights(weights []*tensor.Tensor) error {
	if o.ms == nil {
		return ErrNoState
	}
	return o.restore(weights, true, o.ms, o.vs)
}

// Config exports the optimizer's hyperparameters and counters.
func (o *Adam) Config() (map[string]any, error) {
	cfg := o.baseConfig()
	cfg["lr"] = o.lr
	cfg["beta_1"] = o.beta1
	cfg["beta_2"] = o.beta2
	cfg["epsilon"] = o.epsilon
	cfg["decay"] = o.decay
	return cfg, nil
}

// checkBetas validates the moment factors shared by the Adam family.
func checkBetas(beta1, beta2 float64) error {
	if beta1 < 0 || beta1 >= 1 {
		return &ConfigurationError{Option: "beta_1", Reason: "must be in [0, 1)"}
	}
	if beta2 < 0 || beta2 >= 1 {
		return &ConfigurationError{Option: "beta_2", Reason: "must be in [0, 1)"}
	}
	return nil
}

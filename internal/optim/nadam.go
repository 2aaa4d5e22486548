package optim

import (
	"math"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// Nadam is Adam with Nesterov momentum and a warming momentum schedule.
// It has no learning rate decay option.
//
// Update rule (per element, effective rate lr, pre-step counter n,
// t = n+1, cumulative momentum product schedule S):
//
//	mc_t  = beta1 * (1 - 0.5*0.96^(t*sd))
//	mc_t1 = beta1 * (1 - 0.5*0.96^((t+1)*sd))
//	S_new = S*mc_t,  S_next = S_new*mc_t1
//	g' = g / (1-S_new)
//	m <- beta1*m + (1-beta1)*g;    m' = m / (1-S_next)
//	v <- beta2*v + (1-beta2)*g²;   v' = v / (1-beta2^t)
//	m_bar = (1-mc_t)*g' + mc_t1*m'
//	p <- p - lr*m_bar / (sqrt(v') + eps)
//
// Reference: Dozat, "Incorporating Nesterov Momentum into Adam" (2015).
type Nadam struct {
	base
	lr            float64
	beta1         float64
	beta2         float64
	epsilon       float64
	scheduleDecay float64
	mSchedule     float64
	ms            []*tensor.Tensor
	vs            []*tensor.Tensor
}

// NadamConfig holds configuration for the Nadam optimizer.
// It is recommended to leave all values at their defaults.
type NadamConfig struct {
	LR            float64 // learning rate (default: 0.002)
	Beta1         float64 // first-moment factor (default: 0.9)
	Beta2         float64 // second-moment factor (default: 0.999)
	Epsilon       float64 // fuzz factor (default: 1e-8)
	ScheduleDecay float64 // momentum schedule decay (default: 0.004)
	Options
}

// NewNadam creates a Nadam optimizer.
func NewNadam(diff Differentiator, config NadamConfig) (*Nadam, error) {
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
	if config.ScheduleDecay == 0 {
		config.ScheduleDecay = 0.004
	}
	if err := checkRates(config.LR, 0); err != nil {
		return nil, err
	}
	if err := checkBetas(config.Beta1, config.Beta2); err != nil {
		return nil, err
	}
	if config.ScheduleDecay < 0 {
		return nil, &ConfigurationError{Option: "schedule_decay", Reason: "must be >= 0"}
	}
	return &Nadam{
		base:          b,
		lr:            config.LR,
		beta1:         config.Beta1,
		beta2:         config.Beta2,
		epsilon:       config.Epsilon,
		scheduleDecay: config.ScheduleDecay,
		mSchedule:     1,
	}, nil
}

// Step performs one Nadam update.
func (o *Nadam) Step(params []*Parameter, constraints Constraints, loss LossFunc) error {
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
	lr := o.rate(o.lr, 0)
	t := float64(o.iterations + 1)
	momentumCacheT := o.beta1 * (1 - 0.5*math.Pow(0.96, t*o.scheduleDecay))
	momentumCacheT1 := o.beta1 * (1 - 0.5*math.Pow(0.96, (t+1)*o.scheduleDecay))
	mScheduleNew := o.mSchedule * momentumCacheT
	mScheduleNext := mScheduleNew * momentumCacheT1
	beta2T := math.Pow(o.beta2, t)
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
			gPrime := g[j] / (1 - mScheduleNew)
			mT := o.beta1*m[j] + (1-o.beta1)*g[j]
			mTPrime := mT / (1 - mScheduleNext)
			vT := o.beta2*v[j] + (1-o.beta2)*g[j]*g[j]
			vTPrime := vT / (1 - beta2T)
			mBar := (1-momentumCacheT)*gPrime + momentumCacheT1*mTPrime
			nm[j] = mT
			nv[j] = vT
			np[j] = pv[j] - lr*mBar/(math.Sqrt(vTPrime)+o.epsilon)
		}
		if err := constraints.apply(i, newP); err != nil {
			return err
		}
		assigns = append(assigns,
			assignment{o.ms[i], newM},
			assignment{o.vs[i], newV},
			assignment{p.Value(), newP})
	}
	o.mSchedule = mScheduleNew
	o.commit(lr, assigns)
	return nil
}

// Weights returns [counter] followed by the first- and second-moment
// estimates. The momentum schedule product is exported via Config, not
// here.
func (o *Nadam) Weights() ([]*tensor.Tensor, error) {
	if o.ms == nil {
		return nil, ErrNoState
	}
	return o.snapshot(true, o.ms, o.vs), nil
}

// SetWeights restores a snapshot produced by Weights.
func (o *Nadam) SetWeights(weights []*tensor.Tensor) error {
	if o.ms == nil {
		return ErrNoState
	}
	return o.restore(weights, true, o.ms, o.vs)
}

// Config exports the optimizer's hyperparameters and counters.
func (o *Nadam) Config() (map[string]any, error) {
	cfg := o.baseConfig()
	cfg["lr"] = o.lr
	cfg["beta_1"] = o.beta1
	cfg["beta_2"] = o.beta2
	cfg["epsilon"] = o.epsilon
	cfg["schedule_decay"] = o.scheduleDecay
	cfg["m_schedule"] = o.mSchedule
	return cfg, nil
}

package optim

import (
	"fmt"
	"strings"
)

// FromConfig rebuilds an optimizer from a variant name and a config map
// previously exported by Config. Recognized names: "sgd", "rmsprop",
// "adagrad", "adadelta", "adam", "adamax", "nadam".
//
// Omitted optional keys fall back to the variant's defaults. Any key the
// named variant does not recognize yields a ConfigurationError before any
// optimizer is constructed.
func FromConfig(diff Differentiator, name string, cfg map[string]any) (Optimizer, error) {
	r := newConfigReader(cfg)
	opts, err := r.options()
	if err != nil {
		return nil, err
	}

	var (
		opt       Optimizer
		counters  *base
		mSchedule = 1.0
	)
	switch strings.ToLower(name) {
	case "sgd":
		c := SGDConfig{Options: opts}
		if c.LR, err = r.float("lr"); err != nil {
			return nil, err
		}
		if c.Momentum, err = r.float("momentum"); err != nil {
			return nil, err
		}
		if c.Decay, err = r.float("decay"); err != nil {
			return nil, err
		}
		if c.Nesterov, err = r.boolean("nesterov"); err != nil {
			return nil, err
		}
		o, err := NewSGD(diff, c)
		if err != nil {
			return nil, err
		}
		opt, counters = o, &o.base

	case "rmsprop":
		c := RMSPropConfig{Options: opts}
		if c.LR, err = r.float("lr"); err != nil {
			return nil, err
		}
		if c.Rho, err = r.float("rho"); err != nil {
			return nil, err
		}
		if c.Epsilon, err = r.float("epsilon"); err != nil {
			return nil, err
		}
		if c.Decay, err = r.float("decay"); err != nil {
			return nil, err
		}
		o, err := NewRMSProp(diff, c)
		if err != nil {
			return nil, err
		}
		opt, counters = o, &o.base

	case "adagrad":
		c := AdagradConfig{Options: opts}
		if c.LR, err = r.float("lr"); err != nil {
			return nil, err
		}
		if c.Epsilon, err = r.float("epsilon"); err != nil {
			return nil, err
		}
		if c.Decay, err = r.float("decay"); err != nil {
			return nil, err
		}
		o, err := NewAdagrad(diff, c)
		if err != nil {
			return nil, err
		}
		opt, counters = o, &o.base

	case "adadelta":
		c := AdadeltaConfig{Options: opts}
		if c.LR, err = r.float("lr"); err != nil {
			return nil, err
		}
		if c.Rho, err = r.float("rho"); err != nil {
			return nil, err
		}
		if c.Epsilon, err = r.float("epsilon"); err != nil {
			return nil, err
		}
		if c.Decay, err = r.float("decay"); err != nil {
			return nil, err
		}
		o, err := NewAdadelta(diff, c)
		if err != nil {
			return nil, err
		}
		opt, counters = o, &o.base

	case "adam":
		c := AdamConfig{Options: opts}
		if c.LR, err = r.float("lr"); err != nil {
			return nil, err
		}
		if c.Beta1, err = r.float("beta_1"); err != nil {
			return nil, err
		}
		if c.Beta2, err = r.float("beta_2"); err != nil {
			return nil, err
		}
		if c.Epsilon, err = r.float("epsilon"); err != nil {
			return nil, err
		}
		if c.Decay, err = r.float("decay"); err != nil {
			return nil, err
		}
		o, err := NewAdam(diff, c)
		if err != nil {
			return nil, err
		}
		opt, counters = o, &o.base

	case "adamax":
		c := AdamaxConfig{Options: opts}
		if c.LR, err = r.float("lr"); err != nil {
			return nil, err
		}
		if c.Beta1, err = r.float("beta_1"); err != nil {
			return nil, err
		}
		if c.Beta2, err = r.float("beta_2"); err != nil {
			return nil, err
		}
		if c.Epsilon, err = r.float("epsilon"); err != nil {
			return nil, err
		}
		if c.Decay, err = r.float("decay"); err != nil {
			return nil, err
		}
		o, err := NewAdamax(diff, c)
		if err != nil {
			return nil, err
		}
		opt, counters = o, &o.base

	case "nadam":
		c := NadamConfig{Options: opts}
		if c.LR, err = r.float("lr"); err != nil {
			return nil, err
		}
		if c.Beta1, err = r.float("beta_1"); err != nil {
			return nil, err
		}
		if c.Beta2, err = r.float("beta_2"); err != nil {
			return nil, err
		}
		if c.Epsilon, err = r.float("epsilon"); err != nil {
			return nil, err
		}
		if c.ScheduleDecay, err = r.float("schedule_decay"); err != nil {
			return nil, err
		}
		if mSchedule, err = r.floatDefault("m_schedule", 1); err != nil {
			return nil, err
		}
		o, err := NewNadam(diff, c)
		if err != nil {
			return nil, err
		}
		o.mSchedule = mSchedule
		opt, counters = o, &o.base

	default:
		return nil, &ConfigurationError{Option: name, Reason: "unknown optimizer"}
	}

	iterations, err := r.integer("iterations")
	if err != nil {
		return nil, err
	}
	currentLR, err := r.float("current_lr")
	if err != nil {
		return nil, err
	}
	if err := r.leftover(); err != nil {
		return nil, err
	}
	counters.setCounters(iterations, currentLR)
	return opt, nil
}

// configReader reads typed scalars out of an exported config map and
// tracks which keys were consumed, so unrecognized keys can be rejected.
type configReader struct {
	cfg  map[string]any
	used map[string]bool
}

func newConfigReader(cfg map[string]any) *configReader {
	return &configReader{cfg: cfg, used: make(map[string]bool)}
}

func (r *configReader) float(key string) (float64, error) {
	return r.floatDefault(key, 0)
}

func (r *configReader) floatDefault(key string, def float64) (float64, error) {
	v, ok := r.cfg[key]
	if !ok {
		return def, nil
	}
	r.used[key] = true
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, &ConfigurationError{Option: key, Reason: fmt.Sprintf("cannot use %T as number", v)}
	}
}

func (r *configReader) integer(key string) (int64, error) {
	v, ok := r.cfg[key]
	if !ok {
		return 0, nil
	}
	r.used[key] = true
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	default:
		return 0, &ConfigurationError{Option: key, Reason: fmt.Sprintf("cannot use %T as integer", v)}
	}
}

func (r *configReader) boolean(key string) (bool, error) {
	v, ok := r.cfg[key]
	if !ok {
		return false, nil
	}
	r.used[key] = true
	b, ok := v.(bool)
	if !ok {
		return false, &ConfigurationError{Option: key, Reason: fmt.Sprintf("cannot use %T as bool", v)}
	}
	return b, nil
}

func (r *configReader) str(key string) (string, error) {
	v, ok := r.cfg[key]
	if !ok {
		return "", nil
	}
	r.used[key] = true
	s, ok := v.(string)
	if !ok {
		return "", &ConfigurationError{Option: key, Reason: fmt.Sprintf("cannot use %T as string", v)}
	}
	return s, nil
}

// options reads the shared base options: clipnorm, clipvalue and clr.
func (r *configReader) options() (Options, error) {
	var (
		o   Options
		err error
	)
	if o.ClipNorm, err = r.float("clipnorm"); err != nil {
		return o, err
	}
	if o.ClipValue, err = r.float("clipvalue"); err != nil {
		return o, err
	}
	if o.CLR, err = r.clrValue(); err != nil {
		return o, err
	}
	return o, nil
}

func (r *configReader) clrValue() (*CLR, error) {
	v, ok := r.cfg["clr"]
	if !ok {
		return nil, nil
	}
	r.used["clr"] = true
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ConfigurationError{Option: "clr", Reason: fmt.Sprintf("cannot use %T as schedule config", v)}
	}
	sub := newConfigReader(m)
	c := &CLR{}
	mode, err := sub.str("mode")
	if err != nil {
		return nil, err
	}
	c.Mode = CLRMode(mode)
	if c.StepSize, err = sub.float("step_size"); err != nil {
		return nil, err
	}
	if c.MaxLR, err = sub.float("max_lr"); err != nil {
		return nil, err
	}
	if c.Gamma, err = sub.float("gamma"); err != nil {
		return nil, err
	}
	if err := sub.leftover(); err != nil {
		return nil, err
	}
	// Validation happens when the optimizer is constructed.
	return c, nil
}

// leftover fails on the first key that no reader consumed.
func (r *configReader) leftover() error {
	for k := range r.cfg {
		if !r.used[k] {
			return &ConfigurationError{Option: k}
		}
	}
	return nil
}

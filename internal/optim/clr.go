package optim

import (
	"fmt"
	"math"
)

// CLRMode selects the cyclical learning rate policy.
type CLRMode string

// Supported cyclical learning rate modes.
const (
	// Triangular cycles linearly between the base rate and MaxLR with a
	// constant amplitude.
	Triangular CLRMode = "triangular"
	// Triangular2 halves the cycle amplitude after each full cycle.
	Triangular2 CLRMode = "triangular2"
	// ExpRange scales the cycle amplitude by Gamma^iterations.
	ExpRange CLRMode = "exp_range"
)

// CLR configures a cyclical learning rate schedule.
//
// The schedule is a pure function of the optimizer's step counter: each
// step the effective rate is recomputed from the pre-step counter value.
// One full cycle spans 2*StepSize steps, rising from the base rate to
// MaxLR and back.
//
// Reference: "Cyclical Learning Rates for Training Neural Networks"
// (Smith, 2017).
type CLR struct {
	Mode     CLRMode
	StepSize float64 // half-cycle length in steps; must be > 0
	MaxLR    float64 // peak learning rate
	Gamma    float64 // envelope decay per step; required iff Mode is ExpRange
}

func (c *CLR) validate() error {
	switch c.Mode {
	case Triangular, Triangular2:
		if c.Gamma != 0 {
			return &ConfigurationError{Option: "gamma", Reason: fmt.Sprintf("not used by %s mode", c.Mode)}
		}
	case ExpRange:
		if c.Gamma <= 0 {
			return &ConfigurationError{Option: "gamma", Reason: "required for exp_range mode"}
		}
	default:
		return &ConfigurationError{Option: "mode", Reason: fmt.Sprintf("unknown mode %q", string(c.Mode))}
	}
	if c.StepSize <= 0 {
		return &ConfigurationError{Option: "step_size", Reason: "must be > 0"}
	}
	return nil
}

// Rate returns the effective learning rate for the given step counter.
// base is the calling optimizer's already-decayed learning rate. A nil
// receiver returns base unchanged.
func (c *CLR) Rate(base float64, iterations int64) float64 {
	if c == nil {
		return base
	}
	it := float64(iterations)
	cycle := math.Floor(1 + it/(2*c.StepSize))
	x := math.Abs(it/c.StepSize - 2*cycle + 1)
	amp := math.Max(0, 1-x)
	switch c.Mode {
	case Triangular:
		return base + (c.MaxLR-base)*amp
	case Triangular2:
		return base + (c.MaxLR-base)*amp/math.Pow(2, cycle-1)
	case ExpRange:
		return base + (c.MaxLR-base)*amp*math.Pow(c.Gamma, it)
	}
	return base
}

// config exports the schedule as plain scalars for Config round-trips.
func (c *CLR) config() map[string]any {
	cfg := map[string]any{
		"mode":      string(c.Mode),
		"step_size": c.StepSize,
		"max_lr":    c.MaxLR,
	}
	if c.Mode == ExpRange {
		cfg["gamma"] = c.Gamma
	}
	return cfg
}

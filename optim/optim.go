// Copyright 2026 Pulse ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/pulse-ml/pulse/internal/optim"
)

// Optimizer is the update-step contract shared by all variants.
type Optimizer = optim.Optimizer

// Options are the settings every variant accepts in addition to its own
// hyperparameters: gradient clipping and the cyclical schedule.
type Options = optim.Options

// Parameter pairs a name with a mutable value tensor.
type Parameter = optim.Parameter

// NewParameter wraps a value tensor for use in an optimizer parameter list.
var NewParameter = optim.NewParameter

// LossFunc evaluates the scalar training loss at the parameters' current
// values.
type LossFunc = optim.LossFunc

// Differentiator computes gradients of a scalar loss with respect to an
// ordered parameter list.
type Differentiator = optim.Differentiator

// FiniteDiff approximates gradients with central finite differences.
type FiniteDiff = optim.FiniteDiff

// Cyclical learning rate schedules.

// CLR configures a cyclical learning rate schedule.
type CLR = optim.CLR

// CLRMode selects the cycle shape.
type CLRMode = optim.CLRMode

// Cycle shapes.
const (
	Triangular  = optim.Triangular
	Triangular2 = optim.Triangular2
	ExpRange    = optim.ExpRange
)

// Constraint projection.

// Constraint projects a parameter value after the raw optimizer update.
type Constraint = optim.Constraint

// Constraints maps a parameter's position in the Step parameter list to
// the projection applied to it.
type Constraints = optim.Constraints

// MaxNorm rescales a parameter whose Euclidean norm exceeds Max.
type MaxNorm = optim.MaxNorm

// Sentinel errors.
var (
	ErrUnsupported   = optim.ErrUnsupported
	ErrParamsChanged = optim.ErrParamsChanged
	ErrNoState       = optim.ErrNoState
)

// ConfigurationError reports a rejected configuration option.
type ConfigurationError = optim.ConfigurationError

// ShapeMismatchError reports a snapshot tensor whose shape does not match
// the optimizer's live state.
type ShapeMismatchError = optim.ShapeMismatchError

// SGD (Stochastic Gradient Descent)

// SGD implements stochastic gradient descent with optional momentum,
// Nesterov momentum and learning rate decay.
type SGD = optim.SGD

// SGDConfig contains configuration for the SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer.
//
// Example:
//
//	opt, err := optim.NewSGD(
//	    optim.FiniteDiff{},
//	    optim.SGDConfig{
//	        LR:       0.01,
//	        Momentum: 0.9,
//	    },
//	)
func NewSGD(diff Differentiator, config SGDConfig) (*SGD, error) {
	return optim.NewSGD(diff, config)
}

// RMSProp

// RMSProp divides the gradient by a running average of its recent
// magnitude.
type RMSProp = optim.RMSProp

// RMSPropConfig contains configuration for the RMSProp optimizer.
type RMSPropConfig = optim.RMSPropConfig

// NewRMSProp creates an RMSProp optimizer.
func NewRMSProp(diff Differentiator, config RMSPropConfig) (*RMSProp, error) {
	return optim.NewRMSProp(diff, config)
}

// Adagrad

// Adagrad accumulates squared gradients over the whole run, so the
// effective rate only ever shrinks.
type Adagrad = optim.Adagrad

// AdagradConfig contains configuration for the Adagrad optimizer.
type AdagradConfig = optim.AdagradConfig

// NewAdagrad creates an Adagrad optimizer.
func NewAdagrad(diff Differentiator, config AdagradConfig) (*Adagrad, error) {
	return optim.NewAdagrad(diff, config)
}

// Adadelta

// Adadelta scales updates by the ratio of two running averages: squared
// deltas over squared gradients.
type Adadelta = optim.Adadelta

// AdadeltaConfig contains configuration for the Adadelta optimizer.
type AdadeltaConfig = optim.AdadeltaConfig

// NewAdadelta creates an Adadelta optimizer.
func NewAdadelta(diff Differentiator, config AdadeltaConfig) (*Adadelta, error) {
	return optim.NewAdadelta(diff, config)
}

// Adam (Adaptive Moment Estimation)

// Adam combines first- and second-moment estimates with bias correction.
type Adam = optim.Adam

// AdamConfig contains configuration for the Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer.
//
// Example:
//
//	opt, err := optim.NewAdam(
//	    optim.FiniteDiff{},
//	    optim.AdamConfig{
//	        LR: 0.001,
//	        Options: optim.Options{
//	            CLR: &optim.CLR{
//	                Mode:     optim.Triangular,
//	                StepSize: 2000,
//	                MaxLR:    0.006,
//	            },
//	        },
//	    },
//	)
func NewAdam(diff Differentiator, config AdamConfig) (*Adam, error) {
	return optim.NewAdam(diff, config)
}

// Adamax

// Adamax is the infinity-norm variant of Adam.
type Adamax = optim.Adamax

// AdamaxConfig contains configuration for the Adamax optimizer.
type AdamaxConfig = optim.AdamaxConfig

// NewAdamax creates an Adamax optimizer.
func NewAdamax(diff Differentiator, config AdamaxConfig) (*Adamax, error) {
	return optim.NewAdamax(diff, config)
}

// Nadam

// Nadam is Adam with Nesterov momentum and a warming momentum schedule.
type Nadam = optim.Nadam

// NadamConfig contains configuration for the Nadam optimizer.
type NadamConfig = optim.NadamConfig

// NewNadam creates a Nadam optimizer.
func NewNadam(diff Differentiator, config NadamConfig) (*Nadam, error) {
	return optim.NewNadam(diff, config)
}

// Native passthrough

// NativeEngine is an external update engine a Native optimizer delegates to.
type NativeEngine = optim.NativeEngine

// Native delegates the whole update step to a NativeEngine.
type Native = optim.Native

// NewNative creates a passthrough optimizer around an external engine.
func NewNative(engine NativeEngine) (*Native, error) {
	return optim.NewNative(engine)
}

// FromConfig rebuilds an optimizer from a variant name and a config map
// previously exported by Config.
func FromConfig(diff Differentiator, name string, cfg map[string]any) (Optimizer, error) {
	return optim.FromConfig(diff, name, cfg)
}

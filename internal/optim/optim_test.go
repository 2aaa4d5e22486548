package optim_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-ml/pulse/internal/optim"
	"github.com/pulse-ml/pulse/internal/tensor"
)

// gradFunc adapts a function to the Differentiator interface.
type gradFunc func(loss optim.LossFunc, params []*optim.Parameter) ([]*tensor.Tensor, error)

func (f gradFunc) Gradients(loss optim.LossFunc, params []*optim.Parameter) ([]*tensor.Tensor, error) {
	return f(loss, params)
}

// constGrads yields one fixed gradient value per parameter, every step.
func constGrads(vals ...float64) optim.Differentiator {
	return gradFunc(func(_ optim.LossFunc, params []*optim.Parameter) ([]*tensor.Tensor, error) {
		if len(vals) != len(params) {
			return nil, fmt.Errorf("stub has %d gradients for %d parameters", len(vals), len(params))
		}
		grads := make([]*tensor.Tensor, len(params))
		for i, p := range params {
			g := tensor.Zeros(p.Value().Shape())
			for j := range g.Data() {
				g.Data()[j] = vals[i]
			}
			grads[i] = g
		}
		return grads, nil
	})
}

func scalarParam(t *testing.T, name string, v float64) *optim.Parameter {
	t.Helper()
	x, err := tensor.FromSlice([]float64{v}, tensor.Shape{1})
	require.NoError(t, err)
	return optim.NewParameter(name, x)
}

var noLoss optim.LossFunc = func() float64 { return 0 }

// variantCase builds one optimizer variant with shared options and, where
// the variant supports it, a decay rate.
type variantCase struct {
	name string
	make func(d optim.Differentiator, opts optim.Options, decay float64) (optim.Optimizer, error)
}

func allVariants() []variantCase {
	return []variantCase{
		{"sgd", func(d optim.Differentiator, opts optim.Options, decay float64) (optim.Optimizer, error) {
			return optim.NewSGD(d, optim.SGDConfig{LR: 0.01, Decay: decay, Options: opts})
		}},
		{"rmsprop", func(d optim.Differentiator, opts optim.Options, decay float64) (optim.Optimizer, error) {
			return optim.NewRMSProp(d, optim.RMSPropConfig{Decay: decay, Options: opts})
		}},
		{"adagrad", func(d optim.Differentiator, opts optim.Options, decay float64) (optim.Optimizer, error) {
			return optim.NewAdagrad(d, optim.AdagradConfig{Decay: decay, Options: opts})
		}},
		{"adadelta", func(d optim.Differentiator, opts optim.Options, decay float64) (optim.Optimizer, error) {
			return optim.NewAdadelta(d, optim.AdadeltaConfig{Decay: decay, Options: opts})
		}},
		{"adam", func(d optim.Differentiator, opts optim.Options, decay float64) (optim.Optimizer, error) {
			return optim.NewAdam(d, optim.AdamConfig{Decay: decay, Options: opts})
		}},
		{"adamax", func(d optim.Differentiator, opts optim.Options, decay float64) (optim.Optimizer, error) {
			return optim.NewAdamax(d, optim.AdamaxConfig{Decay: decay, Options: opts})
		}},
		// Nadam has no decay option.
		{"nadam", func(d optim.Differentiator, opts optim.Options, _ float64) (optim.Optimizer, error) {
			return optim.NewNadam(d, optim.NadamConfig{Options: opts})
		}},
	}
}

// TestCounter_IncrementsOncePerStep checks the core step-counter
// invariant for every variant under every schedule configuration.
func TestCounter_IncrementsOncePerStep(t *testing.T) {
	configs := map[string]struct {
		opts  optim.Options
		decay float64
	}{
		"plain":      {},
		"with decay": {decay: 0.01},
		"with clr":   {opts: optim.Options{CLR: &optim.CLR{Mode: optim.Triangular, StepSize: 2, MaxLR: 0.1}}},
		"decay and clr": {
			decay: 0.01,
			opts:  optim.Options{CLR: &optim.CLR{Mode: optim.Triangular, StepSize: 2, MaxLR: 0.1}},
		},
	}
	for _, v := range allVariants() {
		for cfgName, cfg := range configs {
			t.Run(v.name+"/"+cfgName, func(t *testing.T) {
				opt, err := v.make(constGrads(0.5), cfg.opts, cfg.decay)
				require.NoError(t, err)

				params := []*optim.Parameter{scalarParam(t, "x", 1.0)}
				require.Equal(t, int64(0), opt.Iterations())
				for i := 1; i <= 3; i++ {
					require.NoError(t, opt.Step(params, nil, noLoss))
					assert.Equal(t, int64(i), opt.Iterations(), "after step %d", i)
				}
			})
		}
	}
}

func TestClipNorm_NoOpBelowThreshold(t *testing.T) {
	opt, err := optim.NewSGD(constGrads(3, 4), optim.SGDConfig{
		LR:      1.0,
		Options: optim.Options{ClipNorm: 10},
	})
	require.NoError(t, err)

	p1 := scalarParam(t, "a", 0)
	p2 := scalarParam(t, "b", 0)
	require.NoError(t, opt.Step([]*optim.Parameter{p1, p2}, nil, noLoss))

	// Joint norm is 5 < 10: gradients pass through bit for bit.
	assert.Equal(t, -3.0, p1.Value().Data()[0])
	assert.Equal(t, -4.0, p2.Value().Data()[0])
}

func TestClipNorm_ScalesJointNorm(t *testing.T) {
	opt, err := optim.NewSGD(constGrads(3, 4), optim.SGDConfig{
		LR:      1.0,
		Options: optim.Options{ClipNorm: 2.5},
	})
	require.NoError(t, err)

	p1 := scalarParam(t, "a", 0)
	p2 := scalarParam(t, "b", 0)
	require.NoError(t, opt.Step([]*optim.Parameter{p1, p2}, nil, noLoss))

	// Joint norm 5 >= 2.5: every gradient scales by exactly 2.5/5.
	assert.InDelta(t, -1.5, p1.Value().Data()[0], 1e-15)
	assert.InDelta(t, -2.0, p2.Value().Data()[0], 1e-15)
}

func TestClipNorm_ZeroGradients(t *testing.T) {
	opt, err := optim.NewSGD(constGrads(0), optim.SGDConfig{
		LR:      1.0,
		Options: optim.Options{ClipNorm: 1},
	})
	require.NoError(t, err)

	p := scalarParam(t, "x", 2.0)
	require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))
	assert.Equal(t, 2.0, p.Value().Data()[0], "zero norm must not clip or produce NaN")
}

func TestClipValue_ClampsElements(t *testing.T) {
	diff := gradFunc(func(_ optim.LossFunc, params []*optim.Parameter) ([]*tensor.Tensor, error) {
		g, err := tensor.FromSlice([]float64{2, -2}, tensor.Shape{2})
		return []*tensor.Tensor{g}, err
	})
	opt, err := optim.NewSGD(diff, optim.SGDConfig{
		LR:      1.0,
		Options: optim.Options{ClipValue: 0.5},
	})
	require.NoError(t, err)

	x, err := tensor.FromSlice([]float64{0, 0}, tensor.Shape{2})
	require.NoError(t, err)
	p := optim.NewParameter("x", x)
	require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))
	assert.Equal(t, []float64{-0.5, 0.5}, p.Value().Data())
}

func TestClip_NormBeforeValue(t *testing.T) {
	opt, err := optim.NewSGD(constGrads(30, 40), optim.SGDConfig{
		LR:      1.0,
		Options: optim.Options{ClipNorm: 5, ClipValue: 3.5},
	})
	require.NoError(t, err)

	p1 := scalarParam(t, "a", 0)
	p2 := scalarParam(t, "b", 0)
	require.NoError(t, opt.Step([]*optim.Parameter{p1, p2}, nil, noLoss))

	// Norm clip first: (30, 40) -> (3, 4); value clip second: (3, 3.5).
	assert.InDelta(t, -3.0, p1.Value().Data()[0], 1e-15)
	assert.InDelta(t, -3.5, p2.Value().Data()[0], 1e-15)
}

func TestNegativeClipIsConfigurationError(t *testing.T) {
	_, err := optim.NewSGD(constGrads(1), optim.SGDConfig{
		Options: optim.Options{ClipNorm: -1},
	})
	var cerr *optim.ConfigurationError
	require.True(t, errors.As(err, &cerr))

	_, err = optim.NewSGD(constGrads(1), optim.SGDConfig{
		Options: optim.Options{ClipValue: -0.5},
	})
	require.True(t, errors.As(err, &cerr))
}

func TestWeights_BeforeFirstStep(t *testing.T) {
	opt, err := optim.NewAdam(constGrads(1), optim.AdamConfig{})
	require.NoError(t, err)

	_, err = opt.Weights()
	assert.True(t, errors.Is(err, optim.ErrNoState))
	err = opt.SetWeights(nil)
	assert.True(t, errors.Is(err, optim.ErrNoState))
}

// TestRestore_ReproducesUpdates verifies that restoring a snapshot and
// replaying the same inputs reproduces identical parameter trajectories.
func TestRestore_ReproducesUpdates(t *testing.T) {
	opt, err := optim.NewAdam(constGrads(1), optim.AdamConfig{LR: 0.01})
	require.NoError(t, err)

	p := scalarParam(t, "x", 1.0)
	params := []*optim.Parameter{p}

	require.NoError(t, opt.Step(params, nil, noLoss))
	afterOne := p.Value().Data()[0]

	snap, err := opt.Weights()
	require.NoError(t, err)

	require.NoError(t, opt.Step(params, nil, noLoss))
	afterTwo := p.Value().Data()[0]

	// Rewind optimizer state and the parameter, replay the step.
	require.NoError(t, opt.SetWeights(snap))
	p.Value().Data()[0] = afterOne
	require.NoError(t, opt.Step(params, nil, noLoss))

	assert.Equal(t, afterTwo, p.Value().Data()[0])
	assert.Equal(t, int64(2), opt.Iterations())
}

func TestRestore_CounterRoundTrip(t *testing.T) {
	opt, err := optim.NewSGD(constGrads(1), optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	require.NoError(t, err)

	p := scalarParam(t, "x", 1.0)
	for i := 0; i < 5; i++ {
		require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))
	}
	snap, err := opt.Weights()
	require.NoError(t, err)
	require.True(t, snap[0].Shape().Equal(tensor.Shape{}), "counter is a scalar tensor")
	assert.Equal(t, 5.0, snap[0].Data()[0])

	snap[0].Data()[0] = 2
	require.NoError(t, opt.SetWeights(snap))
	assert.Equal(t, int64(2), opt.Iterations())
}

func TestRestore_ShapeMismatch(t *testing.T) {
	opt, err := optim.NewRMSProp(constGrads(1), optim.RMSPropConfig{})
	require.NoError(t, err)

	p := scalarParam(t, "x", 1.0)
	require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))

	before, err := opt.Weights()
	require.NoError(t, err)

	err = opt.SetWeights([]*tensor.Tensor{tensor.Zeros(tensor.Shape{2})})
	var serr *optim.ShapeMismatchError
	require.True(t, errors.As(err, &serr))

	// All-or-nothing: the failed restore must not have touched state.
	after, err := opt.Weights()
	require.NoError(t, err)
	for i := range before {
		assert.Equal(t, before[i].Data(), after[i].Data())
	}
}

func TestRestore_WrongCount(t *testing.T) {
	opt, err := optim.NewAdadelta(constGrads(1), optim.AdadeltaConfig{})
	require.NoError(t, err)

	p := scalarParam(t, "x", 1.0)
	require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))

	// Adadelta state is accumulators + delta accumulators.
	snap, err := opt.Weights()
	require.NoError(t, err)
	require.Len(t, snap, 2)

	require.Error(t, opt.SetWeights(snap[:1]))
}

func TestStep_ParameterListMustBeStable(t *testing.T) {
	opt, err := optim.NewSGD(constGrads(1, 1), optim.SGDConfig{LR: 0.1})
	require.NoError(t, err)

	p1 := scalarParam(t, "a", 1.0)
	p2 := scalarParam(t, "b", 2.0)
	require.NoError(t, opt.Step([]*optim.Parameter{p1, p2}, nil, noLoss))

	err = opt.Step([]*optim.Parameter{p2, p1}, nil, noLoss)
	assert.True(t, errors.Is(err, optim.ErrParamsChanged), "reordered list")

	err = opt.Step([]*optim.Parameter{p1}, nil, noLoss)
	assert.True(t, errors.Is(err, optim.ErrParamsChanged), "shortened list")

	p3 := scalarParam(t, "c", 3.0)
	err = opt.Step([]*optim.Parameter{p1, p3}, nil, noLoss)
	assert.True(t, errors.Is(err, optim.ErrParamsChanged), "replaced parameter")
}

func TestConstraint_ProjectsAfterUpdate(t *testing.T) {
	opt, err := optim.NewSGD(constGrads(0), optim.SGDConfig{LR: 1.0})
	require.NoError(t, err)

	x, err := tensor.FromSlice([]float64{3, 4}, tensor.Shape{2})
	require.NoError(t, err)
	p := optim.NewParameter("w", x)

	constraints := optim.Constraints{0: optim.MaxNorm{Max: 2.5}}
	require.NoError(t, opt.Step([]*optim.Parameter{p}, constraints, noLoss))

	// Zero gradient leaves the raw update at (3, 4); the projection
	// rescales it onto the 2.5 norm ball.
	assert.InDelta(t, 1.5, p.Value().Data()[0], 1e-9)
	assert.InDelta(t, 2.0, p.Value().Data()[1], 1e-9)
}

func TestConstraint_MissingEntryIsIdentity(t *testing.T) {
	opt, err := optim.NewSGD(constGrads(1, 1), optim.SGDConfig{LR: 0.1})
	require.NoError(t, err)

	p1 := scalarParam(t, "a", 1.0)
	p2 := scalarParam(t, "b", 1.0)
	constraints := optim.Constraints{1: optim.MaxNorm{Max: 0.05}}
	require.NoError(t, opt.Step([]*optim.Parameter{p1, p2}, constraints, noLoss))

	assert.InDelta(t, 0.9, p1.Value().Data()[0], 1e-15)
	assert.InDelta(t, 0.05, p2.Value().Data()[0], 1e-9)
}

func TestConstraint_IndexOutOfRange(t *testing.T) {
	opt, err := optim.NewSGD(constGrads(1), optim.SGDConfig{LR: 0.1})
	require.NoError(t, err)

	p := scalarParam(t, "x", 1.0)
	err = opt.Step([]*optim.Parameter{p}, optim.Constraints{3: optim.MaxNorm{Max: 1}}, noLoss)
	require.Error(t, err)
}

// fakeEngine is a NativeEngine that applies a fixed-rate update and keeps
// its own step count.
type fakeEngine struct {
	calls int
}

func (e *fakeEngine) ApplyUpdates(_ optim.LossFunc, params []*optim.Parameter, step *int64) error {
	e.calls++
	for _, p := range params {
		for i := range p.Value().Data() {
			p.Value().Data()[i] -= 0.1
		}
	}
	*step++
	return nil
}

func TestNative_DelegatesToEngine(t *testing.T) {
	engine := &fakeEngine{}
	opt, err := optim.NewNative(engine)
	require.NoError(t, err)

	p := scalarParam(t, "x", 1.0)
	require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))
	require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))

	assert.Equal(t, 2, engine.calls)
	assert.InDelta(t, 0.8, p.Value().Data()[0], 1e-15)
	assert.Equal(t, int64(2), opt.Iterations(), "engine advances the counter")
}

func TestNative_RejectsConstraints(t *testing.T) {
	opt, err := optim.NewNative(&fakeEngine{})
	require.NoError(t, err)

	p := scalarParam(t, "x", 1.0)
	err = opt.Step([]*optim.Parameter{p}, optim.Constraints{0: optim.MaxNorm{Max: 1}}, noLoss)
	assert.True(t, errors.Is(err, optim.ErrUnsupported))
	assert.Equal(t, 1.0, p.Value().Data()[0], "no partial effect")
}

func TestNative_StateAndConfigUnsupported(t *testing.T) {
	opt, err := optim.NewNative(&fakeEngine{})
	require.NoError(t, err)

	_, err = opt.Weights()
	assert.True(t, errors.Is(err, optim.ErrUnsupported))
	err = opt.SetWeights(nil)
	assert.True(t, errors.Is(err, optim.ErrUnsupported))
	_, err = opt.Config()
	assert.True(t, errors.Is(err, optim.ErrUnsupported))
}

func TestConfig_RoundTrip(t *testing.T) {
	opt, err := optim.NewAdam(constGrads(1), optim.AdamConfig{
		LR:    0.01,
		Decay: 0.001,
		Options: optim.Options{
			ClipNorm: 5,
			CLR:      &optim.CLR{Mode: optim.ExpRange, StepSize: 100, MaxLR: 0.05, Gamma: 0.999},
		},
	})
	require.NoError(t, err)

	p := scalarParam(t, "x", 1.0)
	require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))
	require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))

	cfg, err := opt.Config()
	require.NoError(t, err)
	assert.Equal(t, int64(2), cfg["iterations"])

	restored, err := optim.FromConfig(constGrads(1), "adam", cfg)
	require.NoError(t, err)
	assert.Equal(t, opt.Iterations(), restored.Iterations())
	assert.Equal(t, opt.CurrentRate(), restored.CurrentRate())

	cfg2, err := restored.Config()
	require.NoError(t, err)
	assert.Equal(t, cfg, cfg2)
}

func TestConfig_RoundTripAllVariants(t *testing.T) {
	for _, v := range allVariants() {
		t.Run(v.name, func(t *testing.T) {
			opt, err := v.make(constGrads(1), optim.Options{ClipValue: 1}, 0)
			require.NoError(t, err)

			p := scalarParam(t, "x", 1.0)
			require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))

			cfg, err := opt.Config()
			require.NoError(t, err)

			restored, err := optim.FromConfig(constGrads(1), v.name, cfg)
			require.NoError(t, err)
			cfg2, err := restored.Config()
			require.NoError(t, err)
			assert.Equal(t, cfg, cfg2)
		})
	}
}

func TestFromConfig_UnknownKey(t *testing.T) {
	_, err := optim.FromConfig(constGrads(1), "sgd", map[string]any{
		"lr":     0.1,
		"warmup": 10,
	})
	var cerr *optim.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "warmup", cerr.Option)
}

func TestFromConfig_UnknownOptimizer(t *testing.T) {
	_, err := optim.FromConfig(constGrads(1), "lion", map[string]any{})
	var cerr *optim.ConfigurationError
	require.True(t, errors.As(err, &cerr))
}

func TestFromConfig_BadValueType(t *testing.T) {
	_, err := optim.FromConfig(constGrads(1), "sgd", map[string]any{"lr": "fast"})
	var cerr *optim.ConfigurationError
	require.True(t, errors.As(err, &cerr))
}

// TestConvergence_SimpleQuadratic drives SGD and Adam to the minimum of
// f(x) = x² with gradients computed from the live parameter value.
func TestConvergence_SimpleQuadratic(t *testing.T) {
	quadGrad := gradFunc(func(_ optim.LossFunc, params []*optim.Parameter) ([]*tensor.Tensor, error) {
		g := tensor.Zeros(params[0].Value().Shape())
		g.Data()[0] = 2 * params[0].Value().Data()[0]
		return []*tensor.Tensor{g}, nil
	})

	t.Run("SGD", func(t *testing.T) {
		opt, err := optim.NewSGD(quadGrad, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
		require.NoError(t, err)

		p := scalarParam(t, "x", 3.0)
		for i := 0; i < 100; i++ {
			require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))
		}
		assert.Less(t, math.Abs(p.Value().Data()[0]), 0.1)
	})

	t.Run("Adam", func(t *testing.T) {
		opt, err := optim.NewAdam(quadGrad, optim.AdamConfig{LR: 0.1})
		require.NoError(t, err)

		p := scalarParam(t, "x", 3.0)
		for i := 0; i < 100; i++ {
			require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, noLoss))
		}
		assert.Less(t, math.Abs(p.Value().Data()[0]), 0.1)
	})
}

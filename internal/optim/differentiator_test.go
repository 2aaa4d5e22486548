package optim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-ml/pulse/internal/optim"
	"github.com/pulse-ml/pulse/internal/tensor"
)

func TestFiniteDiff_QuadraticGradient(t *testing.T) {
	p := scalarParam(t, "x", 5.0)
	params := []*optim.Parameter{p}
	loss := func() float64 {
		v := p.Value().Data()[0]
		return (v - 3) * (v - 3)
	}

	grads, err := optim.FiniteDiff{}.Gradients(loss, params)
	require.NoError(t, err)
	require.Len(t, grads, 1)

	// d/dx (x-3)² = 2(x-3) = 4 at x = 5
	assert.InDelta(t, 4.0, grads[0].Data()[0], 1e-6)
	assert.Equal(t, 5.0, p.Value().Data()[0], "parameter restored after probing")
}

func TestFiniteDiff_MultiParameter(t *testing.T) {
	w, err := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2})
	require.NoError(t, err)
	pw := optim.NewParameter("w", w)
	pb := scalarParam(t, "b", -1.0)
	params := []*optim.Parameter{pw, pb}

	// f(w, b) = w0² + 2*w1² + 3*b²
	loss := func() float64 {
		d := pw.Value().Data()
		b := pb.Value().Data()[0]
		return d[0]*d[0] + 2*d[1]*d[1] + 3*b*b
	}

	grads, err := optim.FiniteDiff{Step: 1e-5}.Gradients(loss, params)
	require.NoError(t, err)
	require.Len(t, grads, 2)

	assert.InDelta(t, 2.0, grads[0].Data()[0], 1e-5)
	assert.InDelta(t, 8.0, grads[0].Data()[1], 1e-5)
	assert.InDelta(t, -6.0, grads[1].Data()[0], 1e-5)
}

func TestFiniteDiff_NilLoss(t *testing.T) {
	_, err := optim.FiniteDiff{}.Gradients(nil, []*optim.Parameter{scalarParam(t, "x", 1.0)})
	require.Error(t, err)
}

func TestFiniteDiff_DrivesSGD(t *testing.T) {
	p := scalarParam(t, "x", 4.0)
	loss := func() float64 {
		v := p.Value().Data()[0]
		return (v - 1) * (v - 1)
	}

	opt, err := optim.NewSGD(optim.FiniteDiff{}, optim.SGDConfig{LR: 0.1})
	require.NoError(t, err)

	for i := 0; i < 60; i++ {
		require.NoError(t, opt.Step([]*optim.Parameter{p}, nil, loss))
	}
	assert.Less(t, math.Abs(p.Value().Data()[0]-1), 1e-3)
}

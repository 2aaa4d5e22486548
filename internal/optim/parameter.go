package optim

import (
	"github.com/pulse-ml/pulse/internal/tensor"
)

// Parameter is a named, trainable tensor.
//
// The value tensor is owned by the model; the optimizer references it and
// updates it in place during Step. Optimizer-side state (momentum buffers,
// moment estimates) is owned by the optimizer, not the parameter.
//
// Example:
//
//	w, _ := tensor.FromSlice([]float64{0.1, -0.2}, tensor.Shape{2})
//	weight := optim.NewParameter("linear.weight", w)
type Parameter struct {
	name  string
	value *tensor.Tensor
}

// NewParameter creates a parameter wrapping an initialized value tensor.
func NewParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the live parameter tensor.
func (p *Parameter) Value() *tensor.Tensor {
	return p.value
}

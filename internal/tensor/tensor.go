// Package tensor provides the dense float64 tensors that back parameters
// and optimizer state in the Pulse library.
//
// Tensors are flat row-major buffers with an attached Shape. They are
// deliberately minimal: optimizers only need creation, element access,
// shape checks and a handful of in-place numeric helpers.
package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Tensor is a dense float64 tensor with a fixed shape.
//
// The element buffer is owned by the tensor and mutated in place by
// callers via Data, CopyFrom, Scale and friends. A Tensor is not safe
// for concurrent mutation.
type Tensor struct {
	data  []float64
	shape Shape
}

// New creates a zero-initialized tensor with the given shape.
func New(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Tensor{
		data:  make([]float64, shape.NumElements()),
		shape: shape.Clone(),
	}, nil
}

// Zeros creates a zero-initialized tensor with the given shape.
// It panics on an invalid shape; use New when the shape is untrusted.
func Zeros(shape Shape) *Tensor {
	t, err := New(shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Scalar creates a rank-0 tensor holding a single value.
func Scalar(v float64) *Tensor {
	t := Zeros(Shape{})
	t.data[0] = v
	return t
}

// FromSlice creates a tensor with the given shape, copying data.
// The slice length must equal shape.NumElements().
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	t, err := New(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != len(t.data) {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	copy(t.data, data)
	return t, nil
}

// Data returns the live element buffer in row-major order.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// NumElements returns the number of elements in the tensor.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	c := Zeros(t.shape)
	copy(c.data, t.data)
	return c
}

// CopyFrom overwrites the tensor's elements with those of src.
// The shapes must be equal.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !t.shape.Equal(src.shape) {
		return fmt.Errorf("cannot copy shape %v into shape %v", src.shape, t.shape)
	}
	copy(t.data, src.data)
	return nil
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Norm2 returns the Euclidean norm of the elements.
func (t *Tensor) Norm2() float64 {
	return floats.Norm(t.data, 2)
}

// Scale multiplies every element by c in place.
func (t *Tensor) Scale(c float64) {
	floats.Scale(c, t.data)
}

// AddScaled adds c*src to the tensor in place. The shapes must be equal.
func (t *Tensor) AddScaled(src *Tensor, c float64) error {
	if !t.shape.Equal(src.shape) {
		return fmt.Errorf("cannot add shape %v to shape %v", src.shape, t.shape)
	}
	floats.AddScaled(t.data, c, src.data)
	return nil
}

// Clamp limits every element to the range [lo, hi] in place.
func (t *Tensor) Clamp(lo, hi float64) {
	for i, v := range t.data {
		if v < lo {
			t.data[i] = lo
		} else if v > hi {
			t.data[i] = hi
		}
	}
}

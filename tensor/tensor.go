// Copyright 2026 Pulse ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float64 tensor type used by the
// optimizers in package optim.
//
// Example:
//
//	w, err := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(w.Shape(), w.Norm2())
package tensor

import "github.com/pulse-ml/pulse/internal/tensor"

// Shape describes the dimensions of a tensor. An empty shape is a scalar.
type Shape = tensor.Shape

// Tensor is a dense float64 tensor.
type Tensor = tensor.Tensor

// New creates a zero-filled tensor with the given shape.
func New(shape Shape) (*Tensor, error) {
	return tensor.New(shape)
}

// Zeros creates a zero-filled tensor, panicking on an invalid shape. Use
// New when the shape comes from untrusted input.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Scalar creates a zero-dimensional tensor holding v.
func Scalar(v float64) *Tensor {
	return tensor.Scalar(v)
}

// FromSlice creates a tensor backed by a copy of data, which must have
// exactly shape.NumElements() elements.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

package optim

import (
	"fmt"

	"github.com/pulse-ml/pulse/internal/tensor"
)

// Constraint projects a parameter value after the raw optimizer update.
// Apply mutates the staged value in place; the result becomes the
// parameter's new value when the step commits.
type Constraint interface {
	Apply(t *tensor.Tensor) error
}

// Constraints maps a parameter's position in the Step parameter list to
// the projection applied to it. Missing entries mean identity: absence of
// a constraint is not an error.
type Constraints map[int]Constraint

func (c Constraints) check(n int) error {
	for i := range c {
		if i < 0 || i >= n {
			return fmt.Errorf("optim: constraint index %d out of range [0, %d)", i, n)
		}
	}
	return nil
}

func (c Constraints) apply(i int, t *tensor.Tensor) error {
	proj, ok := c[i]
	if !ok || proj == nil {
		return nil
	}
	return proj.Apply(t)
}

// MaxNorm rescales a parameter whose Euclidean norm exceeds Max back onto
// the norm ball. A non-positive Max disables the constraint.
type MaxNorm struct {
	Max float64
}

// Apply implements Constraint.
func (c MaxNorm) Apply(t *tensor.Tensor) error {
	if c.Max <= 0 {
		return nil
	}
	norm := t.Norm2()
	if norm <= c.Max {
		return nil
	}
	t.Scale(c.Max / (norm + 1e-12))
	return nil
}

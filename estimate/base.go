// Package estimate provides a basic implementation of filter.Estimate.
package estimate

import "gonum.org/v1/gonum/mat"

// Base is a state estimate with no associated covariance.
type Base struct {
	val mat.Vector
}

// NewBase returns a new Base estimate wrapping val.
func NewBase(val mat.Vector) (*Base, error) {
	if val == nil {
		return nil, errNilVector
	}
	return &Base{val: val}, nil
}

// Val returns the estimated state.
func (b *Base) Val() mat.Vector {
	return b.val
}

// Cov returns a zero-size covariance: Base carries none.
func (b *Base) Cov() mat.Symmetric {
	return &mat.SymDense{}
}

// WithCov is a state estimate carrying its error covariance.
type WithCov struct {
	val mat.Vector
	cov mat.Symmetric
}

// NewBaseWithCov returns a new WithCov estimate wrapping val and cov.
func NewBaseWithCov(val mat.Vector, cov mat.Symmetric) (*WithCov, error) {
	if val == nil || cov == nil {
		return nil, errNilVector
	}
	return &WithCov{val: val, cov: cov}, nil
}

// Val returns the estimated state.
func (b *WithCov) Val() mat.Vector {
	return b.val
}

// Cov returns the estimate's error covariance.
func (b *WithCov) Cov() mat.Symmetric {
	return b.cov
}

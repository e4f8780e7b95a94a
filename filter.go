// Package filter defines the generic interfaces shared by the dynamical
// system filters in this module: a Model captures a system's process and
// observation functions together with their Jacobians and noise
// covariances, InitCond captures an initial condition, and Estimate
// captures a filter's posterior.
package filter

import "gonum.org/v1/gonum/mat"

// Model is a discrete nonlinear dynamical system model. Unlike a plain
// state-space system, a Model also exposes the Jacobians of its process
// and observation functions and lets the noise covariances depend on the
// quantities an EKF needs them to depend on: the process noise on the time
// step, the output noise on the measurement itself.
type Model interface {
	// Propagate advances state x by one step of length dt.
	Propagate(x mat.Vector, dt float64) mat.Vector
	// Observe maps state x onto an expected measurement.
	Observe(x mat.Vector) mat.Vector
	// StateJacobian returns the Jacobian of Propagate evaluated at x, dt.
	StateJacobian(x mat.Vector, dt float64) mat.Matrix
	// OutputJacobian returns the Jacobian of Observe evaluated at x.
	OutputJacobian(x mat.Vector) mat.Matrix
	// ProcessNoise returns the process noise covariance for a step of dt.
	ProcessNoise(dt float64) mat.Symmetric
	// OutputNoise returns the measurement noise covariance for measurement z.
	OutputNoise(z mat.Vector) mat.Symmetric
	// Dims returns the state vector length (nx) and measurement vector
	// length (nz).
	Dims() (nx, nz int)
}

// InitCond is an initial condition for a filter: a state mean and its
// error covariance.
type InitCond interface {
	// State returns the initial state mean.
	State() mat.Vector
	// Cov returns the initial error covariance.
	Cov() mat.Symmetric
}

// Estimate is a filter's state estimate at a point in time.
type Estimate interface {
	// Val returns the estimated state.
	Val() mat.Vector
	// Cov returns the estimate's error covariance.
	Cov() mat.Symmetric
}

// initCond is the default InitCond implementation.
type initCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates an InitCond from state and cov, copying both.
func NewInitCond(state mat.Vector, cov mat.Symmetric) InitCond {
	s := mat.NewVecDense(state.Len(), nil)
	s.CopyVec(state)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &initCond{state: s, cov: c}
}

func (c *initCond) State() mat.Vector {
	return c.state
}

func (c *initCond) Cov() mat.Symmetric {
	return c.cov
}

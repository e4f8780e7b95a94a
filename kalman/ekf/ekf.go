// Package ekf implements a generic discrete extended Kalman filter.
//
// Unlike github.com/milosgajdos/go-estimate's EKF, which differentiates a
// black-box filter.Model via finite differences, this EKF requires the
// model to expose analytic Jacobians: the observation function used here
// (see the motion package) is cheap to differentiate by hand and finite
// differencing it would just add noise to an already approximate
// linearization.
package ekf

import (
	"fmt"
	"math"

	filter "github.com/sentryturret/autoaim"
	"github.com/sentryturret/autoaim/matrix"
	"gonum.org/v1/gonum/mat"
)

// ErrSingularInnovation is returned by Update when the innovation
// covariance S = H*P*H' + R is not invertible.
var ErrSingularInnovation = fmt.Errorf("ekf: singular innovation covariance")

// ErrNonFinite is returned by Update when the corrected state contains a
// NaN or Inf entry.
var ErrNonFinite = fmt.Errorf("ekf: non-finite state after update")

// EKF is a discrete extended Kalman filter parameterized once at
// construction by a filter.Model: its process function f, observation
// function h, their Jacobians Jf/Jh, and its process/output noise
// providers Q(dt)/R(z).
type EKF struct {
	// m is the system model supplying f, h, Jf, Jh, Q and R.
	m filter.Model
	// x is the posterior state.
	x *mat.VecDense
	// p is the posterior error covariance.
	p *mat.SymDense
	// xPred and pPred are the most recent prediction, read by Update and
	// by callers that need to associate against a prediction before
	// committing it (see tracker.Tracker).
	xPred *mat.VecDense
	pPred *mat.SymDense
}

// New creates a new EKF for model m with initial condition ic.
// It returns an error if m's state dimension is not positive or does not
// match ic's dimension.
func New(m filter.Model, ic filter.InitCond) (*EKF, error) {
	nx, _ := m.Dims()
	if nx <= 0 {
		return nil, fmt.Errorf("ekf: invalid model state dimension: %d", nx)
	}
	if ic.State().Len() != nx || ic.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("ekf: initial condition dimension mismatch: want %d", nx)
	}

	x := mat.NewVecDense(nx, nil)
	x.CopyVec(ic.State())

	p := mat.NewSymDense(nx, nil)
	p.CopySym(ic.Cov())

	return &EKF{
		m:     m,
		x:     x,
		p:     p,
		xPred: mat.NewVecDense(nx, nil),
		pPred: mat.NewSymDense(nx, nil),
	}, nil
}

// SetState overwrites the posterior state with x and resets the
// covariance to cov. Used by the tracker on (re-)initialization.
func (k *EKF) SetState(x mat.Vector, cov mat.Symmetric) {
	k.x.CopyVec(x)
	k.p.CopySym(cov)
}

// State returns the current posterior state.
func (k *EKF) State() mat.Vector {
	return k.x
}

// Cov returns the current posterior error covariance.
func (k *EKF) Cov() mat.Symmetric {
	return k.p
}

// PredState returns the most recent predicted (pre-update) state. Valid
// only after Predict and before the next SetState.
func (k *EKF) PredState() mat.Vector {
	return k.xPred
}

// Predict propagates the posterior state forward by dt and returns the
// predicted state. It computes
//
//	x_pred = f(x_post)
//	F      = Jf(x_post, dt)
//	P_pred = F*P_post*F' + Q(dt)
func (k *EKF) Predict(dt float64) mat.Vector {
	nx, _ := k.m.Dims()

	xNext := k.m.Propagate(k.x, dt)
	k.xPred.CopyVec(xNext)

	f := k.m.StateJacobian(k.x, dt)

	fp := &mat.Dense{}
	fp.Mul(f, k.p)
	fpf := &mat.Dense{}
	fpf.Mul(fp, f.T())

	q := k.m.ProcessNoise(dt)

	cov := &mat.Dense{}
	cov.Add(fpf, q)

	sym, err := matrix.ToSymDense(cov)
	if err != nil {
		// F*P*F'+Q is symmetric in exact arithmetic; fall back to a
		// forced symmetrization if floating-point drift tripped
		// ToSymDense's check.
		sym = forceSym(cov, nx)
	}
	k.pPred.CopySym(sym)

	return k.xPred
}

func forceSym(m mat.Matrix, n int) *mat.SymDense {
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, m.At(i, j))
		}
	}
	return sym
}

// SetPredState overwrites the predicted (pre-update) state in place,
// leaving the predicted covariance untouched. Used by callers that need
// to rewrite the prediction's geometric interpretation before Update
// runs (see tracker.Tracker's armor-jump handling), without re-running
// Predict.
func (k *EKF) SetPredState(x mat.Vector) {
	k.xPred.CopyVec(x)
}

// Commit accepts the current prediction as the posterior with no
// correction, for ticks where no measurement is available. It returns
// the committed state.
func (k *EKF) Commit() mat.Vector {
	k.x.CopyVec(k.xPred)
	k.p.CopySym(k.pPred)
	return k.x
}

// Update corrects the prediction using measurement z and returns the
// posterior state. It computes
//
//	H      = Jh(x_pred)
//	S      = H*P_pred*H' + R(z)
//	K      = P_pred*H'*S^-1
//	x_post = x_pred + K*(z - h(x_pred))
//	P_post = (I - K*H)*P_pred
//
// If S is singular or the corrected state contains a non-finite value,
// Update returns an error and leaves the posterior at the predicted
// state/covariance (the caller treats this as a rejected measurement).
func (k *EKF) Update(z mat.Vector) (mat.Vector, error) {
	nx, nz := k.m.Dims()
	if z.Len() != nz {
		return nil, fmt.Errorf("ekf: invalid measurement length: got %d, want %d", z.Len(), nz)
	}

	h := k.m.OutputJacobian(k.xPred)

	hp := &mat.Dense{}
	hp.Mul(h, k.pPred)
	hph := &mat.Dense{}
	hph.Mul(hp, h.T())

	r := k.m.OutputNoise(z)

	s := &mat.Dense{}
	s.Add(hph, r)

	var sInv mat.Dense
	if err := sInv.Inverse(s); err != nil {
		k.rollback()
		return nil, ErrSingularInnovation
	}

	pht := &mat.Dense{}
	pht.Mul(k.pPred, h.T())

	gain := &mat.Dense{}
	gain.Mul(pht, &sInv)

	y := k.m.Observe(k.xPred)
	innov := mat.NewVecDense(nz, nil)
	innov.SubVec(z, y)

	corr := mat.NewVecDense(nx, nil)
	corr.MulVec(gain, innov)

	xPost := mat.NewVecDense(nx, nil)
	xPost.AddVec(k.xPred, corr)

	for i := 0; i < nx; i++ {
		if v := xPost.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			k.rollback()
			return nil, ErrNonFinite
		}
	}

	eye := mat.NewDiagDense(nx, nil)
	for i := 0; i < nx; i++ {
		eye.SetDiag(i, 1.0)
	}
	kh := &mat.Dense{}
	kh.Mul(gain, h)
	ikh := &mat.Dense{}
	ikh.Sub(eye, kh)

	pPost := &mat.Dense{}
	pPost.Mul(ikh, k.pPred)

	sym, err := matrix.ToSymDense(pPost)
	if err != nil {
		sym = forceSym(pPost, nx)
	}

	k.x.CopyVec(xPost)
	k.p.CopySym(sym)

	return k.x, nil
}

// rollback restores the posterior to the last prediction, per the
// FilterNumericalFailure policy: a rejected measurement leaves the filter
// at its predicted state rather than a partially-applied correction.
func (k *EKF) rollback() {
	k.x.CopyVec(k.xPred)
	k.p.CopySym(k.pPred)
}

// Model returns the EKF's system model.
func (k *EKF) Model() filter.Model {
	return k.m
}

// Package motion implements the robot motion model: the concrete f, h,
// their Jacobians, and the Q(dt)/R(z) noise providers for the 9-state,
// 4-measurement armor tracking problem.
//
// The state indices below follow the matrix layout conventions of
// github.com/milosgajdos/go-estimate's model and sim packages
// (A/B/C/D-style state-space naming, Dims() returning the dimensions an
// EKF needs).
package motion

import (
	"math"

	filter "github.com/sentryturret/autoaim"
	"github.com/sentryturret/autoaim/types"
	"gonum.org/v1/gonum/mat"
)

// State vector indices.
const (
	IdxXC = iota
	IdxVXC
	IdxYC
	IdxVYC
	IdxZA
	IdxVZA
	IdxYaw
	IdxVYaw
	IdxR

	NStates = 9
	NMeas   = 4
)

// Measurement vector indices.
const (
	MeasX = iota
	MeasY
	MeasZ
	MeasYaw
)

// InitRadius is the radius assumed for a freshly initialized track.
const InitRadius = 0.26

// RadiusMin and RadiusMax clamp r after every update.
const (
	RadiusMin = 0.12
	RadiusMax = 0.40
)

// Config holds the per-axis process spectral densities and measurement
// noise scale factors from ekf.* configuration keys.
type Config struct {
	SigmaQX   float64 `yaml:"sigma2_q_x"`
	SigmaQY   float64 `yaml:"sigma2_q_y"`
	SigmaQZ   float64 `yaml:"sigma2_q_z"`
	SigmaQYaw float64 `yaml:"sigma2_q_yaw"`
	SigmaQR   float64 `yaml:"sigma2_q_r"`

	RX   float64 `yaml:"r_x"`
	RY   float64 `yaml:"r_y"`
	RZ   float64 `yaml:"r_z"`
	RYaw float64 `yaml:"r_yaw"`
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		SigmaQX:   20,
		SigmaQY:   20,
		SigmaQZ:   20,
		SigmaQYaw: 100,
		SigmaQR:   800,
		RX:        0.05,
		RY:        0.05,
		RZ:        0.05,
		RYaw:      0.02,
	}
}

// Model is the concrete filter.Model for a rotating armor-plate robot:
// constant-velocity in (xc, yc, za, yaw), random walk in r.
type Model struct {
	cfg Config
}

// New returns a Model for cfg.
func New(cfg Config) *Model {
	return &Model{cfg: cfg}
}

// Dims implements filter.Model.
func (m *Model) Dims() (nx, nz int) { return NStates, NMeas }

// Propagate implements filter.Model: constant-velocity integration of
// every (position, velocity) pair, r held as a random walk.
func (m *Model) Propagate(x mat.Vector, dt float64) mat.Vector {
	out := mat.NewVecDense(NStates, nil)
	out.CopyVec(x)

	out.SetVec(IdxXC, x.AtVec(IdxXC)+dt*x.AtVec(IdxVXC))
	out.SetVec(IdxYC, x.AtVec(IdxYC)+dt*x.AtVec(IdxVYC))
	out.SetVec(IdxZA, x.AtVec(IdxZA)+dt*x.AtVec(IdxVZA))
	out.SetVec(IdxYaw, x.AtVec(IdxYaw)+dt*x.AtVec(IdxVYaw))
	// velocities and r are unchanged by a constant-velocity/random-walk step.

	return out
}

// StateJacobian implements filter.Model: block-diagonal constant-velocity
// matrix, dt on the off-diagonal of each (position, velocity) pair,
// identity on r.
func (m *Model) StateJacobian(x mat.Vector, dt float64) mat.Matrix {
	f := mat.NewDense(NStates, NStates, nil)
	for i := 0; i < NStates; i++ {
		f.Set(i, i, 1)
	}
	f.Set(IdxXC, IdxVXC, dt)
	f.Set(IdxYC, IdxVYC, dt)
	f.Set(IdxZA, IdxVZA, dt)
	f.Set(IdxYaw, IdxVYaw, dt)
	return f
}

// Observe implements filter.Model: the plate at radius r on a robot
// centered at (xc, yc, za) with yaw yaw is observed at
//
//	xa = xc - r*cos(yaw), ya = yc - r*sin(yaw), za_obs = za, yaw_obs = yaw.
func (m *Model) Observe(x mat.Vector) mat.Vector {
	xc, yc, za, yaw, r := x.AtVec(IdxXC), x.AtVec(IdxYC), x.AtVec(IdxZA), x.AtVec(IdxYaw), x.AtVec(IdxR)

	z := mat.NewVecDense(NMeas, nil)
	z.SetVec(MeasX, xc-r*math.Cos(yaw))
	z.SetVec(MeasY, yc-r*math.Sin(yaw))
	z.SetVec(MeasZ, za)
	z.SetVec(MeasYaw, yaw)
	return z
}

// OutputJacobian implements filter.Model: the analytic Jacobian of Observe.
func (m *Model) OutputJacobian(x mat.Vector) mat.Matrix {
	yaw, r := x.AtVec(IdxYaw), x.AtVec(IdxR)

	h := mat.NewDense(NMeas, NStates, nil)
	h.Set(MeasX, IdxXC, 1)
	h.Set(MeasX, IdxYaw, r*math.Sin(yaw))
	h.Set(MeasX, IdxR, -math.Cos(yaw))

	h.Set(MeasY, IdxYC, 1)
	h.Set(MeasY, IdxYaw, -r*math.Cos(yaw))
	h.Set(MeasY, IdxR, -math.Sin(yaw))

	h.Set(MeasZ, IdxZA, 1)

	h.Set(MeasYaw, IdxYaw, 1)

	return h
}

// ProcessNoise implements filter.Model. For each independent
// (position, velocity) pair with spectral density sigma2:
//
//	Q_pp = dt^4/4*sigma2, Q_pv = dt^3/2*sigma2, Q_vv = dt^2*sigma2
//
// and Q_rr = dt^4/4*sigma2_qr. All cross terms between pairs are zero.
//
// This uses the corrected, per-axis spectral densities (sigma2_q_yaw for
// the yaw/vyaw block, sigma2_q_z for the z/vz block) rather than the
// source's apparent transcription bug of reusing sigma2_q_x for both —
// see DESIGN.md.
func (m *Model) ProcessNoise(dt float64) mat.Symmetric {
	q := mat.NewSymDense(NStates, nil)

	block := func(pIdx, vIdx int, sigma2 float64) {
		dt2 := dt * dt
		dt3 := dt2 * dt
		dt4 := dt3 * dt
		q.SetSym(pIdx, pIdx, dt4/4*sigma2)
		q.SetSym(pIdx, vIdx, dt3/2*sigma2)
		q.SetSym(vIdx, vIdx, dt2*sigma2)
	}

	block(IdxXC, IdxVXC, m.cfg.SigmaQX)
	block(IdxYC, IdxVYC, m.cfg.SigmaQY)
	block(IdxZA, IdxVZA, m.cfg.SigmaQZ)
	block(IdxYaw, IdxVYaw, m.cfg.SigmaQYaw)

	dt2 := dt * dt
	q.SetSym(IdxR, IdxR, dt2*dt2/4*m.cfg.SigmaQR)

	return q
}

// OutputNoise implements filter.Model: R(z) = diag(|rx*z0|, |ry*z1|,
// |rz*z2|, r_yaw). Scaling by |z| models pose accuracy degrading with
// distance from the origin.
func (m *Model) OutputNoise(z mat.Vector) mat.Symmetric {
	r := mat.NewSymDense(NMeas, nil)
	r.SetSym(MeasX, MeasX, math.Abs(m.cfg.RX*z.AtVec(MeasX)))
	r.SetSym(MeasY, MeasY, math.Abs(m.cfg.RY*z.AtVec(MeasY)))
	r.SetSym(MeasZ, MeasZ, math.Abs(m.cfg.RZ*z.AtVec(MeasZ)))
	r.SetSym(MeasYaw, MeasYaw, m.cfg.RYaw)
	return r
}

// P0 returns the 9x9 identity initial error covariance.
func (m *Model) P0() mat.Symmetric {
	p := mat.NewSymDense(NStates, nil)
	for i := 0; i < NStates; i++ {
		p.SetSym(i, i, 1)
	}
	return p
}

// InitState builds the initial 9-state vector for a fresh track from an
// accepted observation: [x, 0, y, 0, z, 0, yaw, 0, InitRadius].
func InitState(obs types.Observation) *mat.VecDense {
	x := mat.NewVecDense(NStates, nil)
	x.SetVec(IdxXC, obs.Position.X)
	x.SetVec(IdxYC, obs.Position.Y)
	x.SetVec(IdxZA, obs.Position.Z)
	x.SetVec(IdxYaw, obs.Yaw)
	x.SetVec(IdxR, InitRadius)
	return x
}

// ClampRadius clamps r into [RadiusMin, RadiusMax].
func ClampRadius(r float64) float64 {
	if r < RadiusMin {
		return RadiusMin
	}
	if r > RadiusMax {
		return RadiusMax
	}
	return r
}

// UnwrapYaw adjusts yaw by multiples of 2*pi so that it lies within pi of
// reference.
func UnwrapYaw(yaw, reference float64) float64 {
	for yaw-reference > math.Pi {
		yaw -= 2 * math.Pi
	}
	for yaw-reference < -math.Pi {
		yaw += 2 * math.Pi
	}
	return yaw
}

var _ filter.Model = (*Model)(nil)

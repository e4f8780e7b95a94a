// Package synth generates synthetic armor-plate observation batches from
// a simulated robot trajectory, the way
// github.com/milosgajdos/go-estimate/examples/ekf builds ground truth and
// a noisy measurement stream to drive its demo loop, without a live
// vision pipeline. Measurement noise is a 4-axis Gaussian perturbation
// (x, y, z, yaw) sampled directly with gonum's distmv.Normal rather than
// through a generic noise-source interface, since that's the only shape
// of noise this package ever needs.
package synth

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"github.com/sentryturret/autoaim/armor"
	autoaimrand "github.com/sentryturret/autoaim/rand"
	"github.com/sentryturret/autoaim/types"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Trajectory describes the simulated ground-truth robot: a body center
// moving at constant velocity and spinning at constant yaw rate around
// it, presenting ArmorsNum plates at radius/height (R, Za) and, for
// 4-plate robots, the alternate pair (AnotherR, Za+DZ).
type Trajectory struct {
	ID        types.RobotID
	ArmorsNum int
	X0, Y0    float64
	VX, VY    float64
	Za, VZa   float64
	Yaw0      float64
	VYaw      float64
	R         float64
	AnotherR  float64
	DZ        float64
}

// perturbation draws a zero-mean Gaussian sample over (x, y, z, yaw) to
// apply to a predicted plate pose. A nil *perturbation always samples
// zero, for a noiseless generator.
type perturbation struct {
	dist *distmv.Normal
}

// newPerturbation builds a perturbation with covariance cov over the 4
// observation axes.
func newPerturbation(cov mat.Symmetric) (*perturbation, error) {
	seed := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	size, _ := cov.Dims()
	dist, ok := distmv.NewNormal(make([]float64, size), cov, seed)
	if !ok {
		return nil, fmt.Errorf("synth: invalid covariance for perturbation")
	}
	return &perturbation{dist: dist}, nil
}

func (p *perturbation) sample() *mat.VecDense {
	if p == nil {
		return mat.NewVecDense(4, nil)
	}
	r := p.dist.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// Generator produces perturbed observation batches from a Trajectory.
type Generator struct {
	traj    Trajectory
	perturb *perturbation
}

// NewGenerator builds a Generator whose observations are perturbed by
// zero-mean Gaussian noise with covariance posCov (applied to x, y, z, yaw).
func NewGenerator(traj Trajectory, posCov mat.Symmetric) (*Generator, error) {
	p, err := newPerturbation(posCov)
	if err != nil {
		return nil, err
	}
	return &Generator{traj: traj, perturb: p}, nil
}

// NewNoiselessGenerator builds a Generator whose observations exactly match
// the ground-truth plate positions. Useful for deterministic FSM tests and
// sim runs that want to isolate tracking logic from measurement noise.
func NewNoiselessGenerator(traj Trajectory) (*Generator, error) {
	return &Generator{traj: traj, perturb: nil}, nil
}

// At returns the observation batch for the tracked robot at time t
// (seconds since the trajectory's t=0), perturbed by the generator's
// noise model, and the ground-truth filter state for comparison in tests.
func (g *Generator) At(t float64) ([]types.Observation, *mat.VecDense) {
	tr := g.traj

	xc := tr.X0 + tr.VX*t
	yc := tr.Y0 + tr.VY*t
	za := tr.Za + tr.VZa*t
	yaw := tr.Yaw0 + tr.VYaw*t

	state := mat.NewVecDense(9, []float64{xc, tr.VX, yc, tr.VY, za, tr.VZa, yaw, tr.VYaw, tr.R})

	geom := armor.Geometry{ArmorsNum: tr.ArmorsNum, AnotherR: tr.AnotherR, DZ: tr.DZ}
	plates := geom.Plates(state)

	obs := make([]types.Observation, len(plates))
	for i, p := range plates {
		sample := g.perturb.sample()
		obs[i] = types.Observation{
			NumericID: tr.ID,
			Position: types.Position{
				X: p.Position.X + sample.AtVec(0),
				Y: p.Position.Y + sample.AtVec(1),
				Z: p.Position.Z + sample.AtVec(2),
			},
			Yaw: p.Yaw + sample.AtVec(3),
		}
	}
	return obs, state
}

// Batch draws n independent samples at time t using rand.WithCovN instead
// of repeated perturbation draws, the coarser-grained sibling of At used
// when many perturbed copies of the same instant are needed (e.g. Monte
// Carlo gating tests).
func Batch(center types.Position, yaw float64, cov mat.Symmetric, n int) ([]types.Position, []float64, error) {
	samples, err := autoaimrand.WithCovN(cov, n)
	if err != nil {
		return nil, nil, err
	}

	positions := make([]types.Position, n)
	yaws := make([]float64, n)
	for i := 0; i < n; i++ {
		positions[i] = types.Position{
			X: center.X + samples.At(0, i),
			Y: center.Y + samples.At(1, i),
			Z: center.Z + samples.At(2, i),
		}
		yaws[i] = yaw + samples.At(3, i)
	}
	return positions, yaws, nil
}

// Stamp converts a simulated t (seconds) to a time.Time for a batch
// whose header needs a monotonic timestamp.
func Stamp(base time.Time, t float64) time.Time {
	return base.Add(time.Duration(t * float64(time.Second)))
}

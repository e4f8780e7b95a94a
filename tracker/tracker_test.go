package tracker

import (
	"math"
	"testing"
	"time"

	"github.com/sentryturret/autoaim/motion"
	"github.com/sentryturret/autoaim/types"
	"github.com/stretchr/testify/assert"
)

func newTestTracker() *Tracker {
	return New(DefaultConfig(), motion.New(motion.DefaultConfig()), nil)
}

func obsAt(id types.RobotID, x, y, z, yaw float64) types.Observation {
	return types.Observation{NumericID: id, Position: types.Position{X: x, Y: y, Z: z}, Yaw: yaw}
}

func TestColdStart(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	start := time.Unix(0, 0)
	snap := tr.Step([]types.Observation{obsAt("3", 1.0, 0.0, 0.1, 0)}, start, "odom")

	assert.Equal(Detecting, tr.State())
	assert.False(snap.Tracking)
	assert.Equal(types.RobotID("3"), tr.TrackedID())

	x := tr.ekf.State()
	assert.InDelta(1.0, x.AtVec(motion.IdxXC), 1e-9)
	assert.InDelta(0.0, x.AtVec(motion.IdxYC), 1e-9)
	assert.InDelta(0.1, x.AtVec(motion.IdxZA), 1e-9)
	assert.InDelta(motion.InitRadius, x.AtVec(motion.IdxR), 1e-9)
}

func TestConfirmationPromotesToTracking(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	stamp := time.Unix(0, 0)
	tr.Step([]types.Observation{obsAt("3", 1.0, 0.0, 0.1, 0)}, stamp, "odom")
	assert.Equal(Detecting, tr.State())

	var snap types.Snapshot
	for i := 0; i < DefaultConfig().TrackingThres; i++ {
		stamp = stamp.Add(20 * time.Millisecond)
		snap = tr.Step([]types.Observation{obsAt("3", 1.0, 0.0, 0.1, 0)}, stamp, "odom")
	}

	assert.Equal(Tracking, tr.State())
	assert.True(snap.Tracking)
}

func trackUntilTracking(tr *Tracker, id types.RobotID, x, y, z, yaw float64, start time.Time) time.Time {
	stamp := start
	tr.Step([]types.Observation{obsAt(id, x, y, z, yaw)}, stamp, "odom")
	for i := 0; i < DefaultConfig().TrackingThres; i++ {
		stamp = stamp.Add(20 * time.Millisecond)
		tr.Step([]types.Observation{obsAt(id, x, y, z, yaw)}, stamp, "odom")
	}
	return stamp
}

func TestTempLostThenLost(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	stamp := trackUntilTracking(tr, "3", 1.0, 0.0, 0.1, 0, time.Unix(0, 0))
	assert.Equal(Tracking, tr.State())

	stamp = stamp.Add(20 * time.Millisecond)
	snap := tr.Step(nil, stamp, "odom")
	assert.Equal(TempLost, tr.State())
	assert.True(snap.Tracking)

	for i := 0; i < 50 && tr.State() == TempLost; i++ {
		stamp = stamp.Add(20 * time.Millisecond)
		tr.Step(nil, stamp, "odom")
	}
	assert.Equal(Lost, tr.State())
}

func TestTempLostAdvancesByVelocityTimesDt(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	stamp := trackUntilTracking(tr, "3", 1.0, 0.0, 0.1, 0, time.Unix(0, 0))
	stamp = stamp.Add(20 * time.Millisecond)
	tr.Step(nil, stamp, "odom")
	assert.Equal(TempLost, tr.State())

	before := tr.ekf.State()
	xBefore, vx := before.AtVec(motion.IdxXC), before.AtVec(motion.IdxVXC)

	dt := 0.05
	stamp = stamp.Add(time.Duration(dt * float64(time.Second)))
	tr.Step(nil, stamp, "odom")

	after := tr.ekf.State()
	assert.InDelta(xBefore+vx*dt, after.AtVec(motion.IdxXC), 1e-6)
}

func TestOutlierTreatedAsMiss(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	stamp := trackUntilTracking(tr, "3", 1.0, 0.0, 0.1, 0, time.Unix(0, 0))
	assert.Equal(Tracking, tr.State())

	stamp = stamp.Add(20 * time.Millisecond)
	tr.Step([]types.Observation{obsAt("3", 1.0+1.0, 0.0, 0.1, 0)}, stamp, "odom")
	assert.Equal(TempLost, tr.State())
}

func TestYawWrapNoDiscontinuity(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	stamp := trackUntilTracking(tr, "3", 1.0, 0.0, 0.1, 3.10, time.Unix(0, 0))
	assert.Equal(Tracking, tr.State())

	stamp = stamp.Add(20 * time.Millisecond)
	snap := tr.Step([]types.Observation{obsAt("3", 1.0, 0.0, 0.1, -3.10)}, stamp, "odom")

	assert.InDelta(math.Pi, snap.Yaw, 0.2)
}

func TestArmorJumpSwapsRadiusAndHeight(t *testing.T) {
	assert := assert.New(t)
	tr := New(DefaultConfig(), motion.New(motion.DefaultConfig()), nil)

	stamp := time.Unix(0, 0)
	tr.Step([]types.Observation{obsAt("1", 0.25, 0.0, 0.2, 0)}, stamp, "odom")
	assert.Equal(4, tr.armorsNum)

	tr.anotherR = 0.27
	tr.dz = 0.05

	for i := 0; i < DefaultConfig().TrackingThres; i++ {
		stamp = stamp.Add(20 * time.Millisecond)
		tr.Step([]types.Observation{obsAt("1", 0.0, 0.0, 0.2, 0)}, stamp, "odom")
	}
	assert.Equal(Tracking, tr.State())

	// the plate at index 1 (the "other" pair) now presents itself at yaw
	// pi/2; its predicted position given r=another_r=0.27 is used as the
	// observed position so the match lands on index 1.
	x := tr.ekf.State()
	r := x.AtVec(motion.IdxR)
	yaw := x.AtVec(motion.IdxYaw) + math.Pi/2
	obsX := x.AtVec(motion.IdxXC) - tr.anotherR*math.Cos(yaw)
	obsY := x.AtVec(motion.IdxYC) - tr.anotherR*math.Sin(yaw)

	oldAnotherR, oldDZ := tr.anotherR, tr.dz

	stamp = stamp.Add(20 * time.Millisecond)
	tr.Step([]types.Observation{obsAt("1", obsX, obsY, x.AtVec(motion.IdxZA)+tr.dz, yaw)}, stamp, "odom")

	assert.InDelta(oldAnotherR, tr.ekf.State().AtVec(motion.IdxR), 0.1)
	assert.InDelta(-oldDZ, tr.dz, 1e-9)
	assert.InDelta(r, tr.anotherR, 0.1)
}

func TestNonPositiveDtDropsTick(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	stamp := time.Unix(10, 0)
	tr.Step([]types.Observation{obsAt("3", 1.0, 0.0, 0.1, 0)}, stamp, "odom")
	stateBefore := tr.State()

	tr.Step([]types.Observation{obsAt("3", 2.0, 0.0, 0.1, 0)}, stamp.Add(-time.Second), "odom")
	assert.Equal(stateBefore, tr.State())
}

func TestSanitizeDropsBadObservations(t *testing.T) {
	assert := assert.New(t)
	obs := []types.Observation{
		obsAt("1", 0, 0, 3.0, 0),
		obsAt("2", 0, 0, 0.5, math.NaN()),
		obsAt("3", 0, 0, 0.5, 0.1),
	}
	out := Sanitize(obs)
	assert.Len(out, 1)
	assert.Equal(types.RobotID("3"), out[0].NumericID)
}

func TestInitTiesBrokenByDistance(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	obs := []types.Observation{
		obsAt("3", 5.0, 0.0, 0.1, 0),
		obsAt("3", 1.0, 0.0, 0.1, 0),
	}
	tr.Step(obs, time.Unix(0, 0), "odom")
	assert.InDelta(1.0, tr.ekf.State().AtVec(motion.IdxXC), 1e-9)
}

func TestNoMotionSteadyState(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	stamp := time.Unix(0, 0)
	dt := 20 * time.Millisecond
	x := 1.0
	const step = 0.05

	tr.Step([]types.Observation{obsAt("3", x, 0.0, 0.1, 0)}, stamp, "odom")
	for i := 0; i < DefaultConfig().TrackingThres+5; i++ {
		stamp = stamp.Add(dt)
		x += step
		tr.Step([]types.Observation{obsAt("3", x, 0.0, 0.1, 0)}, stamp, "odom")
	}
	assert.Equal(Tracking, tr.State())
	assert.Greater(tr.ekf.State().AtVec(motion.IdxVXC), 0.01)

	for i := 0; i < 400; i++ {
		stamp = stamp.Add(dt)
		tr.Step([]types.Observation{obsAt("3", x, 0.0, 0.1, 0)}, stamp, "odom")
	}

	final := tr.ekf.State()
	assert.InDelta(0, final.AtVec(motion.IdxVXC), 0.02)
	assert.InDelta(motion.InitRadius, final.AtVec(motion.IdxR), 0.02)
	assert.InDelta(0, final.AtVec(motion.IdxYaw), 0.05)
}

func TestEstimateErrorsBeforeFirstDetection(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	_, err := tr.Estimate()
	assert.Error(err)
}

func TestEstimateReflectsPosteriorAfterDetection(t *testing.T) {
	assert := assert.New(t)
	tr := newTestTracker()

	tr.Step([]types.Observation{obsAt("3", 1.0, 0.0, 0.1, 0)}, time.Unix(0, 0), "odom")

	est, err := tr.Estimate()
	assert.NoError(err)
	assert.InDelta(1.0, est.Val().AtVec(motion.IdxXC), 1e-9)
	assert.Equal(tr.ekf.Cov().SymmetricDim(), est.Cov().SymmetricDim())
}

// Package tracker implements the armor-plate tracking finite state
// machine: LOST -> DETECTING -> TRACKING <-> TEMP_LOST,
// wrapping an ekf.EKF driven by a motion.Model. Structured after
// nmichlo/norfair-go's Config/Tracker split and its staged,
// banner-commented Tracker.Update pipeline.
package tracker

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/sentryturret/autoaim/armor"
	filter "github.com/sentryturret/autoaim"
	"github.com/sentryturret/autoaim/estimate"
	"github.com/sentryturret/autoaim/kalman/ekf"
	"github.com/sentryturret/autoaim/matrix"
	"github.com/sentryturret/autoaim/motion"
	"github.com/sentryturret/autoaim/telemetry/log"
	"github.com/sentryturret/autoaim/types"
	"gonum.org/v1/gonum/mat"
)

// State is one of the four tracking FSM states.
type State int

const (
	Lost State = iota
	Detecting
	Tracking
	TempLost
)

func (s State) String() string {
	switch s {
	case Lost:
		return "LOST"
	case Detecting:
		return "DETECTING"
	case Tracking:
		return "TRACKING"
	case TempLost:
		return "TEMP_LOST"
	default:
		return "UNKNOWN"
	}
}

// maxAbsZ is the observation sanity gate: observations with
// |z| above this are dropped before the tracker sees them.
const maxAbsZ = 2.0

var errNotInitialized = errors.New("tracker: no estimate before first detection")

// Sanitize drops BadObservation entries: |z| > 2, or a
// non-finite yaw.
func Sanitize(observations []types.Observation) []types.Observation {
	out := make([]types.Observation, 0, len(observations))
	for _, o := range observations {
		if math.Abs(o.Position.Z) > maxAbsZ {
			continue
		}
		if math.IsNaN(o.Yaw) || math.IsInf(o.Yaw, 0) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Tracker is the mutable tracking state machine. Config and the motion
// model are immutable after New; everything else mutates on Step.
type Tracker struct {
	cfg       Config
	model     *motion.Model
	log       *zerolog.Logger

	state State
	ekf   filterEKF

	trackedID   types.RobotID
	armorsNum   int
	anotherR    float64
	dz          float64
	lastYaw     float64
	detectCount int
	lostCount   int

	haveLastStamp bool
	lastStamp     time.Time

	curHeader   types.Header
	measurement types.Measurement
}

// filterEKF is the subset of *ekf.EKF the tracker depends on, named
// separately so tests can substitute a fake without importing the
// kalman/ekf package's concrete type.
type filterEKF interface {
	State() mat.Vector
	Cov() mat.Symmetric
	PredState() mat.Vector
	SetState(x mat.Vector, cov mat.Symmetric)
	SetPredState(x mat.Vector)
	Predict(dt float64) mat.Vector
	Update(z mat.Vector) (mat.Vector, error)
	Commit() mat.Vector
}

// New returns a LOST tracker for the given config, motion model and
// logger. A nil logger uses the package-level telemetry/log.Log.
func New(cfg Config, model *motion.Model, logger *zerolog.Logger) *Tracker {
	if logger == nil {
		logger = &log.Log
	}
	return &Tracker{
		cfg:   withDefaults(cfg),
		model: model,
		log:   logger,
		state: Lost,
	}
}

// State returns the current FSM state.
func (t *Tracker) State() State { return t.state }

// TrackedID returns the numeric id of the currently (or most recently)
// tracked robot. Constant across a LOST-to-LOST cycle.
func (t *Tracker) TrackedID() types.RobotID { return t.trackedID }

// Measurement returns the 4-vector used in the most recent EKF update, or
// the initializing observation if no update has run since the last
// (re-)initialization.
func (t *Tracker) Measurement() types.Measurement { return t.measurement }

// Estimate returns the tracker's current posterior state and covariance
// as a filter.Estimate, for diagnostics and logging call sites that want
// the pair without reaching into the EKF directly. It errors if the
// tracker has never left LOST.
func (t *Tracker) Estimate() (filter.Estimate, error) {
	if t.ekf == nil {
		return nil, errNotInitialized
	}
	return estimate.NewBaseWithCov(t.ekf.State(), t.ekf.Cov())
}

// Step advances the tracker by one tick. observations should already be
// in the world frame; Step sanitizes them internally. dt is derived from
// stamp versus the previous accepted tick's stamp; a non-positive dt drops
// the tick, leaving the tracker unchanged, and returns a snapshot of that
// unchanged state.
func (t *Tracker) Step(observations []types.Observation, stamp time.Time, frameID string) types.Snapshot {
	obs := Sanitize(observations)
	t.curHeader = types.Header{Stamp: stamp, FrameID: frameID}

	dt, ok := t.tickDelta(stamp)
	if !ok {
		t.log.Warn().Msg("tracker: non-positive dt, dropping tick")
		return t.snapshot(stamp, frameID)
	}

	switch t.state {
	case Lost:
		t.stepLost(obs)
	case Detecting:
		t.stepDetecting(obs, dt)
	case Tracking:
		t.stepTracking(obs, dt)
	case TempLost:
		t.stepTempLost(obs, dt)
	}

	return t.snapshot(stamp, frameID)
}

func (t *Tracker) tickDelta(stamp time.Time) (float64, bool) {
	if !t.haveLastStamp {
		t.haveLastStamp = true
		t.lastStamp = stamp
		return 0, true
	}
	dt := stamp.Sub(t.lastStamp).Seconds()
	if dt <= 0 {
		return 0, false
	}
	t.lastStamp = stamp
	return dt, true
}

// stepLost implements the LOST state transition table.
func (t *Tracker) stepLost(obs []types.Observation) {
	if len(obs) == 0 {
		return
	}
	if !t.init(obs) {
		return
	}
	t.state = Detecting
	t.log.Info().Str("id", string(t.trackedID)).Msg("tracker: LOST -> DETECTING")
}

// stepDetecting implements the DETECTING state transition table.
func (t *Tracker) stepDetecting(obs []types.Observation, dt float64) {
	if t.associate(obs, dt) {
		t.detectCount++
		if t.detectCount >= t.cfg.TrackingThres {
			t.state = Tracking
			t.detectCount = 0
			t.log.Info().Msg("tracker: DETECTING -> TRACKING")
		}
		return
	}
	t.detectCount = 0
	t.state = Lost
}

// stepTracking implements the TRACKING state transition table.
func (t *Tracker) stepTracking(obs []types.Observation, dt float64) {
	if t.associate(obs, dt) {
		return
	}
	t.ekf.Commit()
	t.state = TempLost
	t.lostCount = 1
	t.log.Warn().Msg("tracker: TRACKING -> TEMP_LOST")
}

// stepTempLost implements the TEMP_LOST state transition table.
func (t *Tracker) stepTempLost(obs []types.Observation, dt float64) {
	if t.associate(obs, dt) {
		t.lostCount = 0
		t.state = Tracking
		t.log.Info().Msg("tracker: TEMP_LOST -> TRACKING")
		return
	}

	t.ekf.Commit()

	t.lostCount++
	lostThres := int(math.Abs(t.cfg.LostTimeThres / dt))
	if t.lostCount > lostThres {
		t.state = Lost
		t.log.Warn().Msg("tracker: TEMP_LOST -> LOST")
	}
}

// init selects the observation closest to the origin when several share
// the chosen id, and (re-)initializes the filter around it. It reports
// whether the filter was initialized.
func (t *Tracker) init(obs []types.Observation) bool {
	best := obs[0]
	bestDist := norm(best.Position)
	for _, o := range obs[1:] {
		if d := norm(o.Position); d < bestDist {
			best, bestDist = o, d
		}
	}

	t.trackedID = best.NumericID
	t.armorsNum = armor.RobotTypeTable(t.trackedID)
	t.anotherR = motion.InitRadius
	t.dz = 0
	t.lastYaw = best.Yaw

	x0 := motion.InitState(best)
	ic := filter.NewInitCond(x0, t.model.P0())
	k, err := ekf.New(t.model, ic)
	if err != nil {
		// The model's own Dims()/P0() are internally consistent, so this
		// path is unreachable in practice; keep the tracker LOST rather
		// than panic.
		t.log.Error().Err(err).Msg("tracker: failed to (re)initialize EKF")
		t.state = Lost
		return false
	}
	t.ekf = k

	t.measurement = types.Measurement{
		Header: t.curHeader,
		X:      best.Position.X, Y: best.Position.Y, Z: best.Position.Z, Yaw: best.Yaw,
	}
	return true
}

// associate runs the predict+associate+update pipeline for one tick and
// reports whether an observation was matched.
func (t *Tracker) associate(obs []types.Observation, dt float64) bool {
	xPred := t.ekf.Predict(dt)
	geom := armor.Geometry{ArmorsNum: t.armorsNum, AnotherR: t.anotherR, DZ: t.dz}
	plates := geom.Plates(xPred)

	var (
		matched   bool
		bestObs   types.Observation
		bestIndex int
		bestDist  = math.Inf(1)
	)
	for _, o := range obs {
		if o.NumericID != t.trackedID {
			continue
		}
		plate, dist := armor.BestMatch(plates, o.Position)
		if dist < bestDist {
			matched = true
			bestObs, bestIndex, bestDist = o, plate.Index, dist
		}
	}
	if !matched || bestDist >= t.cfg.MaxMatchDistance {
		return false
	}

	yawPred := xPred.AtVec(motion.IdxYaw)
	yawObs := motion.UnwrapYaw(bestObs.Yaw, t.lastYaw)

	if bestIndex == 0 && math.Abs(yawObs-yawPred) < t.cfg.MaxMatchYawDiff {
		return t.updateSamePlate(yawObs, bestObs)
	}
	return t.updateArmorJump(bestIndex, yawObs, bestObs)
}

func (t *Tracker) updateSamePlate(yawObs float64, obs types.Observation) bool {
	z := mat.NewVecDense(motion.NMeas, []float64{obs.Position.X, obs.Position.Y, obs.Position.Z, yawObs})
	return t.commitUpdate(z)
}

// updateArmorJump rewrites the predicted state's radius/height pair (for
// 4-plate robots) so the matched plate becomes the new i=0 reference,
// then runs the correction. When the matched plate is odd-indexed on a
// 4-plate robot, r and another_r trade places, za moves to the other
// pair's height and dz is negated; this swap is an involution. Any other
// jump only resets the yaw to the observed plate's.
func (t *Tracker) updateArmorJump(matchedIndex int, yawObs float64, obs types.Observation) bool {
	x := t.ekf.PredState()
	newR, newAnotherR := x.AtVec(motion.IdxR), t.anotherR
	newZa, newDz := x.AtVec(motion.IdxZA), t.dz

	if t.armorsNum == 4 && matchedIndex%2 == 1 {
		newR, newAnotherR = t.anotherR, x.AtVec(motion.IdxR)
		newZa = x.AtVec(motion.IdxZA) + t.dz
		newDz = -t.dz
	}

	rewritten := mat.NewVecDense(motion.NStates, nil)
	rewritten.CopyVec(x)
	rewritten.SetVec(motion.IdxR, newR)
	rewritten.SetVec(motion.IdxZA, newZa)
	rewritten.SetVec(motion.IdxYaw, yawObs)
	t.ekf.SetPredState(rewritten)

	t.anotherR = newAnotherR
	t.dz = newDz

	z := mat.NewVecDense(motion.NMeas, []float64{obs.Position.X, obs.Position.Y, obs.Position.Z, yawObs})
	ok := t.commitUpdate(z)
	if ok {
		t.log.Info().Int("plate", matchedIndex).Msg("tracker: armor jump")
	}
	return ok
}

func (t *Tracker) commitUpdate(z mat.Vector) bool {
	x, err := t.ekf.Update(z)
	if err != nil {
		t.log.Warn().Err(err).Msg("tracker: rejected measurement")
		return false
	}

	clamped := mat.NewVecDense(motion.NStates, nil)
	clamped.CopyVec(x)
	clamped.SetVec(motion.IdxR, motion.ClampRadius(x.AtVec(motion.IdxR)))
	t.ekf.SetState(clamped, t.ekf.Cov())

	t.lastYaw = clamped.AtVec(motion.IdxYaw)
	t.measurement = types.Measurement{
		Header: t.curHeader,
		X:      z.AtVec(0), Y: z.AtVec(1), Z: z.AtVec(2), Yaw: z.AtVec(3),
	}

	t.log.Debug().Str("cov", fmt.Sprintf("%v", matrix.Format(t.ekf.Cov()))).Msg("tracker: posterior covariance")

	return true
}

func norm(p types.Position) float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// snapshot builds the per-tick target snapshot. Fields beyond
// Tracking are zero unless the tracker is TRACKING or TEMP_LOST.
func (t *Tracker) snapshot(stamp time.Time, frameID string) types.Snapshot {
	header := types.Header{Stamp: stamp, FrameID: frameID}
	if t.state != Tracking && t.state != TempLost {
		return types.Snapshot{Header: header, Tracking: false}
	}

	x := t.ekf.State()
	return types.Snapshot{
		Header:    header,
		Tracking:  true,
		ID:        t.trackedID,
		ArmorsNum: t.armorsNum,
		Position:  types.Position{X: x.AtVec(motion.IdxXC), Y: x.AtVec(motion.IdxYC), Z: x.AtVec(motion.IdxZA)},
		Velocity:  types.Position{X: x.AtVec(motion.IdxVXC), Y: x.AtVec(motion.IdxVYC), Z: x.AtVec(motion.IdxVZA)},
		Yaw:       x.AtVec(motion.IdxYaw),
		VYaw:      x.AtVec(motion.IdxVYaw),
		Radius1:   x.AtVec(motion.IdxR),
		Radius2:   t.anotherR,
		DZ:        t.dz,
	}
}

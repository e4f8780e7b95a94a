// Package solver wraps a downstream ballistic solver behind a facade
// that always emits a gimbal command, converting any solver failure into
// a neutral command.
package solver

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sentryturret/autoaim/telemetry/log"
	"github.com/sentryturret/autoaim/types"
)

// BallisticSolver is the downstream collaborator's input contract: given
// a target snapshot and the current time, produce an aim solution. A
// real implementation lives outside this module; this package ships only
// a fake for tests and the example driver.
type BallisticSolver interface {
	Solve(snapshot types.Snapshot, now time.Time) (types.GimbalCommand, error)
}

// Facade publishes a GimbalCommand every tick. It is the only component
// downstream of Tracker.Step.
type Facade struct {
	solver BallisticSolver
	log    *zerolog.Logger
}

// New returns a Facade wrapping solver. A nil logger uses the
// package-level telemetry/log.Log.
func New(solver BallisticSolver, logger *zerolog.Logger) *Facade {
	if logger == nil {
		logger = &log.Log
	}
	return &Facade{solver: solver, log: logger}
}

// Solve converts snapshot into a gimbal command. If the tracker is not
// TRACKING/TEMP_LOST (snapshot.Tracking == false), or the solver errors
// or panics, it returns the neutral command.
func (f *Facade) Solve(snapshot types.Snapshot, now time.Time) (cmd types.GimbalCommand) {
	if !snapshot.Tracking {
		return types.NeutralGimbalCommand()
	}

	defer func() {
		if r := recover(); r != nil {
			f.log.Error().Interface("panic", r).Msg("solver: recovered from panic")
			cmd = types.NeutralGimbalCommand()
		}
	}()

	out, err := f.solver.Solve(snapshot, now)
	if err != nil {
		f.log.Warn().Err(err).Msg("solver: solve failed")
		return types.NeutralGimbalCommand()
	}
	return out
}

package solver

import (
	"errors"
	"testing"
	"time"

	"github.com/sentryturret/autoaim/types"
	"github.com/stretchr/testify/assert"
)

type fakeSolver struct {
	cmd   types.GimbalCommand
	err   error
	panic bool
}

func (f *fakeSolver) Solve(snapshot types.Snapshot, now time.Time) (types.GimbalCommand, error) {
	if f.panic {
		panic("boom")
	}
	return f.cmd, f.err
}

func TestSolveReturnsNeutralWhenNotTracking(t *testing.T) {
	assert := assert.New(t)
	f := New(&fakeSolver{}, nil)

	cmd := f.Solve(types.Snapshot{Tracking: false}, time.Now())
	assert.Equal(types.NeutralGimbalCommand(), cmd)
}

func TestSolveReturnsSolverOutputWhenTracking(t *testing.T) {
	assert := assert.New(t)
	want := types.GimbalCommand{YawDiff: 0.1, PitchDiff: 0.2, Distance: 3.0, FireAdvice: true}
	f := New(&fakeSolver{cmd: want}, nil)

	cmd := f.Solve(types.Snapshot{Tracking: true}, time.Now())
	assert.Equal(want, cmd)
}

func TestSolveReturnsNeutralOnError(t *testing.T) {
	assert := assert.New(t)
	f := New(&fakeSolver{err: errors.New("solver exploded")}, nil)

	cmd := f.Solve(types.Snapshot{Tracking: true}, time.Now())
	assert.Equal(types.NeutralGimbalCommand(), cmd)
}

func TestSolveReturnsNeutralOnPanic(t *testing.T) {
	assert := assert.New(t)
	f := New(&fakeSolver{panic: true}, nil)

	cmd := f.Solve(types.Snapshot{Tracking: true}, time.Now())
	assert.Equal(types.NeutralGimbalCommand(), cmd)
}

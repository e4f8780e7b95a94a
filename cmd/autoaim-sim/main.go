// Command autoaim-sim drives the tracking core against a synthetic
// trajectory instead of a live vision pipeline, narrating every tick
// through a structured logger the way
// github.com/milosgajdos/go-estimate/examples/ekf narrates its demo loop.
package main

import (
	"flag"
	"time"

	"github.com/sentryturret/autoaim/config"
	"github.com/sentryturret/autoaim/motion"
	"github.com/sentryturret/autoaim/solver"
	"github.com/sentryturret/autoaim/synth"
	"github.com/sentryturret/autoaim/telemetry/log"
	"github.com/sentryturret/autoaim/tracker"
	"github.com/sentryturret/autoaim/types"
	"gonum.org/v1/gonum/mat"
)

// fakeSolver is a stand-in for the real downstream ballistic code: it
// aims at the snapshot's yaw, reports the target's x position as the
// distance, and always advises firing. The facade calls it only while the
// tracker is TRACKING/TEMP_LOST.
type fakeSolver struct{}

func (fakeSolver) Solve(snapshot types.Snapshot, now time.Time) (types.GimbalCommand, error) {
	return types.GimbalCommand{
		YawDiff:    snapshot.Yaw,
		PitchDiff:  0,
		Distance:   snapshot.Position.X,
		FireAdvice: true,
	}, nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config overlay (optional)")
	ticks := flag.Int("ticks", 200, "number of simulated ticks to run")
	noiseless := flag.Bool("noiseless", false, "disable measurement noise for a deterministic run")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Log.Fatal().Err(err).Msg("autoaim-sim: failed to load config")
		}
		cfg = *loaded
	}

	model := motion.New(cfg.Motion)
	tr := tracker.New(cfg.Tracker, model, &log.Log)
	facade := solver.New(fakeSolver{}, &log.Log)

	traj := synth.Trajectory{
		ID:        "1",
		ArmorsNum: 4,
		X0:        2.0, Y0: 0.5,
		VX: 0.05, VY: -0.02,
		Za: 0.2, VZa: 0,
		Yaw0: 0, VYaw: 0.3,
		R: 0.25, AnotherR: 0.27, DZ: 0.05,
	}
	var gen *synth.Generator
	var err error
	if *noiseless {
		gen, err = synth.NewNoiselessGenerator(traj)
	} else {
		posCov := mat.NewSymDense(4, []float64{
			0.0004, 0, 0, 0,
			0, 0.0004, 0, 0,
			0, 0, 0.0004, 0,
			0, 0, 0, 0.0009,
		})
		gen, err = synth.NewGenerator(traj, posCov)
	}
	if err != nil {
		log.Log.Fatal().Err(err).Msg("autoaim-sim: failed to build generator")
	}

	base := time.Now()
	dt := 0.02
	for i := 0; i < *ticks; i++ {
		tsec := float64(i) * dt
		obs, _ := gen.At(tsec)
		stamp := synth.Stamp(base, tsec)

		snapshot := tr.Step(obs, stamp, cfg.TargetFrame)
		cmd := facade.Solve(snapshot, stamp)

		log.Log.Info().
			Str("state", tr.State().String()).
			Bool("tracking", snapshot.Tracking).
			Float64("yaw_diff", cmd.YawDiff).
			Bool("fire", cmd.FireAdvice).
			Msg("autoaim-sim: tick")
	}
}

// Package config loads the tracking core's configuration from a YAML
// document overlaid onto defaults, the way nmichlo/norfair-go's
// NewTracker treats a zero field as "use the default".
package config

import (
	"os"

	"github.com/sentryturret/autoaim/motion"
	"github.com/sentryturret/autoaim/tracker"
	"gopkg.in/yaml.v3"
)

// Config aggregates every configuration knob of the tracking core.
type Config struct {
	Tracker     tracker.Config `yaml:"tracker"`
	Motion      motion.Config  `yaml:"ekf"`
	TargetFrame string         `yaml:"target_frame"`
}

// Default returns the defaults for every field.
func Default() Config {
	return Config{
		Tracker:     tracker.DefaultConfig(),
		Motion:      motion.DefaultConfig(),
		TargetFrame: "odom",
	}
}

// Load reads a YAML document from path and overlays it onto Default():
// any key absent from the document keeps its default, and an empty
// target_frame falls back to "odom". A key written with an explicit zero
// value is stored as zero.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.TargetFrame == "" {
		cfg.TargetFrame = "odom"
	}

	return &cfg, nil
}

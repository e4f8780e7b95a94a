package tracker

// Config holds the tunables of the tracking FSM. Zero values are
// replaced by defaults in New, the way nmichlo/norfair-go's NewTracker
// defaults a TrackerConfig.
type Config struct {
	// MaxMatchDistance gates observation/prediction association.
	// Default: 0.2 m.
	MaxMatchDistance float64 `yaml:"max_match_distance"`

	// MaxMatchYawDiff distinguishes same-plate continuity from an armor
	// jump. Default: 1.0 rad.
	MaxMatchYawDiff float64 `yaml:"max_match_yaw_diff"`

	// TrackingThres is the number of consecutive associated frames
	// required for DETECTING -> TRACKING. Default: 5.
	TrackingThres int `yaml:"tracking_thres"`

	// LostTimeThres is the TEMP_LOST time budget, in seconds, converted
	// to a frame count each tick as LostTimeThres/dt. Default: 0.3 s.
	LostTimeThres float64 `yaml:"lost_time_thres"`
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		MaxMatchDistance: 0.2,
		MaxMatchYawDiff:  1.0,
		TrackingThres:    5,
		LostTimeThres:    0.3,
	}
}

// withDefaults fills zero-valued fields of cfg with DefaultConfig's values.
func withDefaults(cfg Config) Config {
	d := DefaultConfig()
	if cfg.MaxMatchDistance == 0 {
		cfg.MaxMatchDistance = d.MaxMatchDistance
	}
	if cfg.MaxMatchYawDiff == 0 {
		cfg.MaxMatchYawDiff = d.MaxMatchYawDiff
	}
	if cfg.TrackingThres == 0 {
		cfg.TrackingThres = d.TrackingThres
	}
	if cfg.LostTimeThres == 0 {
		cfg.LostTimeThres = d.LostTimeThres
	}
	return cfg
}

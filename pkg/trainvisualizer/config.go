package trainvisualizer

import (
	"time"

	"github.com/travigo/livetrains/pkg/util"
)

const (
	minAnimationDuration = 100 * time.Millisecond
	maxAnimationDuration = 5000 * time.Millisecond

	// frame interval at smoothness 1, higher smoothness divides it
	baseFrameInterval = 48 * time.Millisecond
)

type AnimationConfig struct {
	Enabled    bool
	Duration   time.Duration
	Easing     string
	Smoothness int

	// Moves shorter than this snap instead of animating
	MinDisplacementMeters float64
	// Moves longer than this are treated as a jump and snap
	MaxDisplacementMeters float64
}

type Config struct {
	// Only the first MaxTrainsShown renderable records get a marker, 0 disables the cap
	MaxTrainsShown int

	// Limit markers to the selected trains whenever a selection exists
	FilterBySelection bool

	Animation AnimationConfig
}

func DefaultConfig() Config {
	return Config{
		MaxTrainsShown:    50,
		FilterBySelection: false,
		Animation: AnimationConfig{
			Enabled:               true,
			Duration:              time.Second,
			Easing:                EasingLinear,
			Smoothness:            1,
			MinDisplacementMeters: 1,
			MaxDisplacementMeters: 30000,
		},
	}
}

func LoadConfig() Config {
	config := DefaultConfig()
	env := util.GetEnvironmentVariables()

	config.MaxTrainsShown = env.Int("LIVETRAINS_MAX_TRAINS_SHOWN", config.MaxTrainsShown)
	config.FilterBySelection = env.Bool("LIVETRAINS_FILTER_BY_SELECTION", config.FilterBySelection)

	config.Animation.Enabled = env.Bool("LIVETRAINS_ANIMATE", config.Animation.Enabled)
	config.Animation.Duration = time.Duration(env.Int("LIVETRAINS_ANIMATION_DURATION", int(config.Animation.Duration/time.Millisecond))) * time.Millisecond
	config.Animation.Easing = env.String("LIVETRAINS_ANIMATION_EASING", config.Animation.Easing)
	config.Animation.Smoothness = env.Int("LIVETRAINS_ANIMATION_SMOOTHNESS", config.Animation.Smoothness)

	return config
}

// ClampedDuration keeps the animation duration within [100ms, 5000ms]
func (c AnimationConfig) ClampedDuration() time.Duration {
	if c.Duration < minAnimationDuration {
		return minAnimationDuration
	}
	if c.Duration > maxAnimationDuration {
		return maxAnimationDuration
	}
	return c.Duration
}

// FrameInterval is the shared ticker period, smoothness is clamped to 1-3
func (c AnimationConfig) FrameInterval() time.Duration {
	smoothness := c.Smoothness
	if smoothness < 1 {
		smoothness = 1
	}
	if smoothness > 3 {
		smoothness = 3
	}
	return baseFrameInterval / time.Duration(smoothness)
}

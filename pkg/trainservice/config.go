package trainservice

import (
	"strings"
	"time"

	"github.com/travigo/livetrains/pkg/util"
)

const (
	RefreshTypeFast   = "fast"
	RefreshTypeNormal = "normal"
	RefreshTypeSlow   = "slow"
	RefreshTypeCustom = "custom"
)

const customIntervalDefault = 15 * time.Second

type Config struct {
	MinInterval     time.Duration
	DefaultInterval time.Duration
	MaxInterval     time.Duration

	// Consecutive failures after which auto-refresh is suspended
	MaxErrorCount int

	// Snapshots are truncated to this many records, 0 disables the cap
	MaxResults int

	RefreshType     string
	RefreshInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinInterval:     5 * time.Second,
		DefaultInterval: 30 * time.Second,
		MaxInterval:     300 * time.Second,
		MaxErrorCount:   5,
		MaxResults:      100,
		RefreshType:     RefreshTypeNormal,
		RefreshInterval: customIntervalDefault,
	}
}

func LoadConfig() Config {
	config := DefaultConfig()
	env := util.GetEnvironmentVariables()

	config.MaxResults = env.Int("LIVETRAINS_MAX_RESULTS", config.MaxResults)
	config.RefreshType = strings.ToLower(env.String("LIVETRAINS_REFRESH_TYPE", config.RefreshType))
	config.RefreshInterval = time.Duration(env.Int("LIVETRAINS_REFRESH_INTERVAL", int(config.RefreshInterval/time.Second))) * time.Second

	return config
}

// ClampInterval bounds an auto-refresh interval, a non-positive interval means the default
func (c Config) ClampInterval(interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = c.DefaultInterval
	}

	if interval < c.MinInterval {
		return c.MinInterval
	}
	if interval > c.MaxInterval {
		return c.MaxInterval
	}
	return interval
}

// IntervalForType maps a refresh type to its interval. custom uses the given
// interval (15s when unset) and unknown types fall back to normal.
func (c Config) IntervalForType(refreshType string, custom time.Duration) time.Duration {
	switch strings.ToLower(refreshType) {
	case RefreshTypeFast:
		return c.ClampInterval(5 * time.Second)
	case RefreshTypeSlow:
		return c.ClampInterval(30 * time.Second)
	case RefreshTypeCustom:
		if custom <= 0 {
			custom = customIntervalDefault
		}
		return c.ClampInterval(custom)
	default:
		return c.ClampInterval(15 * time.Second)
	}
}

func (c Config) ConfiguredInterval() time.Duration {
	return c.IntervalForType(c.RefreshType, c.RefreshInterval)
}

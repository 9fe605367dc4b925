// Package config resolves the gateway's operational limits and security
// mode from the environment and the viper-backed config file.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultMaxWallClock   = 30 * time.Second
	DefaultMaxOutputBytes = 1024 * 1024
	DefaultMaxChildren    = 64
	DefaultMaxExecutions  = 16
)

// Mode controls how the policy engine treats dangerous commands.
type Mode string

const (
	ModeStrict     Mode = "strict"
	ModePermissive Mode = "permissive"
)

// Limits bounds every child process and playbook run started by the core.
type Limits struct {
	MaxWallClock   time.Duration
	MaxOutputBytes int
	MaxChildren    int
	MaxExecutions  int
}

// DefaultLimits returns the built-in resource bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxWallClock:   DefaultMaxWallClock,
		MaxOutputBytes: DefaultMaxOutputBytes,
		MaxChildren:    DefaultMaxChildren,
		MaxExecutions:  DefaultMaxExecutions,
	}
}

// Config carries the resolved security mode and limits.
type Config struct {
	Mode   Mode
	Limits Limits
}

func init() {
	viper.SetDefault("security.mode", string(ModeStrict))
	viper.SetDefault("limits.max_wall_clock_secs", int(DefaultMaxWallClock/time.Second))
	viper.SetDefault("limits.max_output_bytes", DefaultMaxOutputBytes)
	viper.SetDefault("limits.max_children", DefaultMaxChildren)
	viper.SetDefault("limits.max_executions", DefaultMaxExecutions)

	// Environment variables take precedence over the config file.
	_ = viper.BindEnv("security.mode", "SECURITY_MODE")
	_ = viper.BindEnv("limits.max_wall_clock_secs", "MAX_WALL_CLOCK_SECS")
	_ = viper.BindEnv("limits.max_output_bytes", "MAX_OUTPUT_BYTES")
}

// Load resolves the configuration from viper. Unknown or invalid values
// fall back to the strict defaults.
func Load() Config {
	cfg := Config{
		Mode:   ParseMode(viper.GetString("security.mode")),
		Limits: DefaultLimits(),
	}

	if secs := viper.GetInt("limits.max_wall_clock_secs"); secs > 0 {
		cfg.Limits.MaxWallClock = time.Duration(secs) * time.Second
	}
	if n := viper.GetInt("limits.max_output_bytes"); n > 0 {
		cfg.Limits.MaxOutputBytes = n
	}
	if n := viper.GetInt("limits.max_children"); n > 0 {
		cfg.Limits.MaxChildren = n
	}
	if n := viper.GetInt("limits.max_executions"); n > 0 {
		cfg.Limits.MaxExecutions = n
	}

	return cfg
}

// ParseMode normalizes a mode string; anything unrecognized is strict.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModePermissive)) {
		return ModePermissive
	}
	return ModeStrict
}

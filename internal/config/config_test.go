package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"strict", ModeStrict},
		{"permissive", ModePermissive},
		{"PERMISSIVE", ModePermissive},
		{" permissive ", ModePermissive},
		{"", ModeStrict},
		{"yolo", ModeStrict},
	}

	for _, tt := range tests {
		if got := ParseMode(tt.input); got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cfg := Load()
	if cfg.Mode != ModeStrict {
		t.Errorf("Mode = %q, want strict", cfg.Mode)
	}
	if cfg.Limits.MaxWallClock != DefaultMaxWallClock {
		t.Errorf("MaxWallClock = %v, want %v", cfg.Limits.MaxWallClock, DefaultMaxWallClock)
	}
	if cfg.Limits.MaxOutputBytes != DefaultMaxOutputBytes {
		t.Errorf("MaxOutputBytes = %d, want %d", cfg.Limits.MaxOutputBytes, DefaultMaxOutputBytes)
	}
	if cfg.Limits.MaxChildren != DefaultMaxChildren {
		t.Errorf("MaxChildren = %d, want %d", cfg.Limits.MaxChildren, DefaultMaxChildren)
	}
	if cfg.Limits.MaxExecutions != DefaultMaxExecutions {
		t.Errorf("MaxExecutions = %d, want %d", cfg.Limits.MaxExecutions, DefaultMaxExecutions)
	}
}

func TestLoadOverrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("security.mode", "permissive")
	viper.Set("limits.max_wall_clock_secs", 5)
	viper.Set("limits.max_output_bytes", 2048)

	cfg := Load()
	if cfg.Mode != ModePermissive {
		t.Errorf("Mode = %q, want permissive", cfg.Mode)
	}
	if cfg.Limits.MaxWallClock != 5*time.Second {
		t.Errorf("MaxWallClock = %v, want 5s", cfg.Limits.MaxWallClock)
	}
	if cfg.Limits.MaxOutputBytes != 2048 {
		t.Errorf("MaxOutputBytes = %d, want 2048", cfg.Limits.MaxOutputBytes)
	}
}

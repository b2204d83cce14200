// Package knystconfig loads Controller/Sphere tuning knobs via
// github.com/spf13/viper and optionally hot-reloads them via
// github.com/fsnotify/fsnotify. Only non-structural settings (the beat
// look-ahead window, the reported-error rate limit) are eligible for
// hot-reload; the resources-ring capacity and command queue's drain
// batch size are fixed at Controller construction and require a
// restart to change.
package knystconfig

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Tuurlijk/knyst/knysterr"
)

// Settings mirrors the Controller's functional-option surface as a
// loadable, hot-reloadable value.
type Settings struct {
	MaxCommandsPerTick    int           `mapstructure:"max_commands_before_update"`
	LookAheadBeats        float64       `mapstructure:"beat_look_ahead"`
	MaxDeferredAge        time.Duration `mapstructure:"max_deferred_age"`
	ResourcesRingCapacity int           `mapstructure:"resources_ring_capacity"`
	ErrorRateLimitPerSec  float64       `mapstructure:"error_rate_limit_per_second"`
	ErrorRateBurst        int           `mapstructure:"error_rate_burst"`
}

// SetDefaults installs the defaults every Load/Watch call starts from.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("max_commands_before_update", 1024)
	v.SetDefault("beat_look_ahead", 0.25)
	v.SetDefault("max_deferred_age", "5s")
	v.SetDefault("resources_ring_capacity", 256)
	v.SetDefault("error_rate_limit_per_second", 1.0)
	v.SetDefault("error_rate_burst", 20)
}

// Load reads Settings from configPath (any format viper supports —
// TOML, YAML, JSON) layered over defaults and the KNYST_-prefixed
// environment.
func Load(configPath string) (*Settings, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, knysterr.Wrapf(err, "failed to read config file %s", configPath)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, knysterr.Wrap(err, "failed to unmarshal knyst config")
	}
	return &settings, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("KNYST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

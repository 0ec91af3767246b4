// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cfg holds the process-wide knobs for the hot-tracking engine.
// Values are read at event time (not cached at startup) so that a change
// pushed through viper takes effect without a restart.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration struct, bindable from flags or a config
// file via viper.
type Config struct {
	HotTracking HotTrackingConfig `yaml:"hot-tracking" mapstructure:"hot-tracking"`

	Debug DebugConfig `yaml:"debug" mapstructure:"debug"`
}

// HotTrackingConfig mirrors the two process-wide knobs spec.md §6 calls out:
// hot_mem_high_thresh and hot_update_interval.
type HotTrackingConfig struct {
	// MemHighThreshMB is the high watermark, in MiB, above which the aging
	// worker runs a size-based eviction sweep. Zero disables the sweep.
	MemHighThreshMB int64 `yaml:"mem-high-thresh-mb" mapstructure:"mem-high-thresh-mb"`

	// UpdateIntervalSeconds is the aging worker's period.
	UpdateIntervalSeconds int64 `yaml:"update-interval-seconds" mapstructure:"update-interval-seconds"`
}

// DebugConfig controls invariant-checking behavior, named after the
// equivalent knob in the file-system config this engine was split out of.
type DebugConfig struct {
	// ExitOnInvariantViolation causes a violated engine invariant to log and
	// terminate the process rather than merely log and continue. Intended
	// for test builds and canary rollouts, not steady-state production.
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation" mapstructure:"exit-on-invariant-violation"`
}

// Default values, per the GLOSSARY and §6 of spec.md.
const (
	DefaultMemHighThreshMB       = 0
	DefaultUpdateIntervalSeconds = 150
)

// Defaults returns a Config populated with spec.md's documented defaults.
func Defaults() Config {
	return Config{
		HotTracking: HotTrackingConfig{
			MemHighThreshMB:       DefaultMemHighThreshMB,
			UpdateIntervalSeconds: DefaultUpdateIntervalSeconds,
		},
	}
}

// BindFlags registers the engine's flags on flagSet and binds them into
// viper under the same keys used by the yaml tags above.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.Int64P("hot-mem-high-thresh", "", DefaultMemHighThreshMB,
		"High memory watermark, in MiB, that triggers a hot-tracking eviction sweep. 0 disables the sweep.")
	if err := viper.BindPFlag("hot-tracking.mem-high-thresh-mb", flagSet.Lookup("hot-mem-high-thresh")); err != nil {
		return err
	}

	flagSet.Int64P("hot-update-interval", "", DefaultUpdateIntervalSeconds,
		"Period, in seconds, between aging-worker sweeps of the hot-tracking heat map.")
	if err := viper.BindPFlag("hot-tracking.update-interval-seconds", flagSet.Lookup("hot-update-interval")); err != nil {
		return err
	}

	flagSet.BoolP("exit-on-invariant-violation", "", false,
		"Terminate the process when an internal hot-tracking invariant is violated, instead of logging and continuing.")
	if err := viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("exit-on-invariant-violation")); err != nil {
		return err
	}

	return nil
}

// FromViper reads the current bound values out of viper, the realization of
// spec.md §6's "read at event-time so changes take effect without restart".
func FromViper() Config {
	return Config{
		HotTracking: HotTrackingConfig{
			MemHighThreshMB:       viper.GetInt64("hot-tracking.mem-high-thresh-mb"),
			UpdateIntervalSeconds: viper.GetInt64("hot-tracking.update-interval-seconds"),
		},
		Debug: DebugConfig{
			ExitOnInvariantViolation: viper.GetBool("debug.exit-on-invariant-violation"),
		},
	}
}

package composition

import (
	"time"

	"github.com/spf13/viper"
)

// Default tuning values, named in the teacher's defaultXxx style
// (internal/config/config.go).
const (
	defaultPriorityFloor             = 0
	defaultDeferredPortSweepInterval = 30 * time.Second
	defaultDeferredPortTimeout       = 5 * time.Minute
	defaultInvariantChecksEnabled    = true
)

// EngineConfig holds tunables for the composition scheduler. It is loaded
// via Viper from file/env with the defaults below, the same way the
// teacher loads internal/config.Config.
type EngineConfig struct {
	// PriorityFloor is the minimum clip priority the resolver considers
	// (spec.md §4.2 step 2: "priority ≥ floor"). Clips whose priority is
	// numerically below the floor are excluded; all others are eligible.
	PriorityFloor int

	// DeferredPortSweepInterval is how often the maintenance sweeper
	// (C7) scans for deferred-port subscriptions that have outlived
	// DeferredPortTimeout.
	DeferredPortSweepInterval time.Duration

	// DeferredPortTimeout is how long a deferred-port subscription may
	// remain outstanding before it is logged as stale. It is never
	// force-cancelled purely on timeout — only logged — since a clip may
	// legitimately take a long time to finalise its ports; removing the
	// clip from the composition or a reset still cancels it immediately.
	// A clip that only leaves current_stack keeps its subscription, and a
	// later fire is then ignored.
	DeferredPortTimeout time.Duration

	// InvariantChecksEnabled mirrors spec.md §7's "abort the process in
	// debug builds" policy; disable only in environments where invariant
	// violations must degrade rather than crash.
	InvariantChecksEnabled bool
}

// DefaultEngineConfig returns the engine's default tunables.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PriorityFloor:             defaultPriorityFloor,
		DeferredPortSweepInterval: defaultDeferredPortSweepInterval,
		DeferredPortTimeout:       defaultDeferredPortTimeout,
		InvariantChecksEnabled:    defaultInvariantChecksEnabled,
	}
}

// LoadEngineConfig reads engine tunables from v, falling back to
// DefaultEngineConfig for anything unset. Callers typically bind v to a
// "composition" sub-tree of a larger application config the way the
// teacher's cmd packages bind internal/config.
func LoadEngineConfig(v *viper.Viper) EngineConfig {
	cfg := DefaultEngineConfig()
	if v == nil {
		return cfg
	}
	if v.IsSet("priority_floor") {
		cfg.PriorityFloor = v.GetInt("priority_floor")
	}
	if v.IsSet("deferred_port_sweep_interval") {
		cfg.DeferredPortSweepInterval = v.GetDuration("deferred_port_sweep_interval")
	}
	if v.IsSet("deferred_port_timeout") {
		cfg.DeferredPortTimeout = v.GetDuration("deferred_port_timeout")
	}
	if v.IsSet("invariant_checks_enabled") {
		cfg.InvariantChecksEnabled = v.GetBool("invariant_checks_enabled")
	}
	return cfg
}

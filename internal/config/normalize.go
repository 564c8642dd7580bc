package config

import "github.com/talgya/antifreeze/internal/vmath"

// CeilingFunc supplies the host's maximum corpse lifetime in seconds.
// It resolves CleanupBodiesTTL and bounds it.
type CeilingFunc func() int

// Normalize clamps user-editable values to safe ranges and derives cached fields.
// It is idempotent. Base keep-probability is clamped on its own and may end up
// outside [min, max]; ChaseKeepProbability then saturates.
func (c *Config) Normalize(ceiling int) {
	if ceiling < 0 {
		ceiling = 0
	}

	// Core timing & jitter
	c.UnreachablePersistSeconds = vmath.Clamp(c.UnreachablePersistSeconds, 0.05, 5.0)
	c.FrozenProbeBaseIntervalSeconds = vmath.Clamp(c.FrozenProbeBaseIntervalSeconds, 0.05, 10.0)
	c.FrozenProbeJitterSeconds = vmath.Clamp(c.FrozenProbeJitterSeconds, 0.0, 5.0)
	c.ThrottleBaseIntervalSeconds = vmath.Clamp(c.ThrottleBaseIntervalSeconds, 0.05, 10.0)
	c.ThrottleJitterSeconds = vmath.Clamp(c.ThrottleJitterSeconds, 0.0, 10.0)

	// Frozen aging
	c.FrozenAgingTickInterval = vmath.Clamp(c.FrozenAgingTickInterval, 0.25, 5.0)
	c.FrozenAgingTickDtCap = vmath.Clamp(c.FrozenAgingTickDtCap, 0.01, 0.20)

	// Mind state decay
	c.DecayMindStateFightCooldown = vmath.Clamp(c.DecayMindStateFightCooldown, 1.0, 3600.0)
	c.DecayMindStateChaseCooldown = vmath.Clamp(c.DecayMindStateChaseCooldown, 1.0, 3600.0)

	// Spatial thresholds
	c.UnreachableHeightDeltaMeters = vmath.Clamp(c.UnreachableHeightDeltaMeters, 0.10, 12.0)
	c.NearRadiusMeters = vmath.Clamp(c.NearRadiusMeters, 0.50, 20.0)
	c.NearRadiusSquared = c.NearRadiusMeters * c.NearRadiusMeters
	c.ActiveRingRadiusMeters = vmath.Clamp(c.ActiveRingRadiusMeters, 1.0, 16.0)
	c.DensityWindowRadiusMeters = vmath.Clamp(c.DensityWindowRadiusMeters, 0.5, 10.0)
	c.DensityMaxNeighbors = vmath.ClampInt(c.DensityMaxNeighbors, 0, 64)

	// Chase token budget
	c.ChaseTokenTTLSeconds = vmath.Clamp(c.ChaseTokenTTLSeconds, 0.05, 10.0)
	c.ChaseTokenTTLJitterSeconds = vmath.Clamp(c.ChaseTokenTTLJitterSeconds, 0.0, 5.0)
	c.ChaseKeepBaseProbability = vmath.Clamp(c.ChaseKeepBaseProbability, 0.0, 1.0)
	c.ChaseKeepMinProbability = vmath.Clamp(c.ChaseKeepMinProbability, 0.0, 1.0)
	c.ChaseKeepMaxProbability = vmath.Clamp(c.ChaseKeepMaxProbability, 0.0, 1.0)

	// Stimulus windows
	c.WakeGraceSeconds = vmath.Clamp(c.WakeGraceSeconds, 0.10, 10.0)
	c.WakeCooldownSeconds = vmath.Clamp(c.WakeCooldownSeconds, 0.10, 10.0)

	c.RandomOptOutRatio = vmath.Clamp(c.RandomOptOutRatio, 0.0, 0.9)

	// Bodies cleanup
	if c.CleanupBodiesTTL < 0 {
		c.CleanupBodiesTTL = ceiling
	} else {
		c.CleanupBodiesTTL = vmath.ClampInt(c.CleanupBodiesTTL, 0, ceiling)
	}
}

package config

import (
	"github.com/talgya/antifreeze/internal/entropy"
	"github.com/talgya/antifreeze/internal/vmath"
)

// ProbeJitter returns extra seconds to add to FrozenProbeBaseIntervalSeconds.
func (c *Config) ProbeJitter(src entropy.Source) float64 {
	if c.EnableRandomJitter {
		return entropy.Range(src, 0.0, c.FrozenProbeJitterSeconds)
	}
	return 0.0
}

// ThrottleInterval returns the sleep window for throttled far chasers and
// failed unfreeze probes.
func (c *Config) ThrottleInterval(src entropy.Source) float64 {
	t := c.ThrottleBaseIntervalSeconds
	if c.EnableRandomJitter {
		t += entropy.Range(src, 0.0, c.ThrottleJitterSeconds)
	}
	return t
}

// ChaseTokenTTL returns the lifetime of a freshly granted chase token.
func (c *Config) ChaseTokenTTL(src entropy.Source) float64 {
	ttl := c.ChaseTokenTTLSeconds
	if c.EnableRandomJitter {
		ttl += entropy.Range(src, 0.0, c.ChaseTokenTTLJitterSeconds)
	}
	return ttl
}

// RollOptOut draws once per agent; true means the agent bypasses antifreeze for life.
func (c *Config) RollOptOut(src entropy.Source) bool {
	if c.EnableRandomPerZombieOptOut && c.RandomOptOutRatio > 0.0 {
		return src.Float64() < c.RandomOptOutRatio
	}
	return false
}

// ChaseKeepProbability is the chance a far chaser keeps running at full fidelity.
// The near radius of the height check doubles as the numerator here.
// XXX: that coupling looks accidental but is kept for compatibility with existing documents.
func (c *Config) ChaseKeepProbability(distance float64) float64 {
	if distance <= 0.0 {
		return c.ChaseKeepMaxProbability
	}

	prob := c.ChaseKeepBaseProbability * (c.NearRadiusMeters / distance)
	return vmath.Clamp(prob, c.ChaseKeepMinProbability, c.ChaseKeepMaxProbability)
}

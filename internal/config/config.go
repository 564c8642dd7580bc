// Package config holds the antifreeze tunables and the store that loads,
// validates and persists them.
package config

// Version is the schema marker written into every document.
// A document carrying any other version is rewritten on load.
const Version = 2

// FileName is the well-known document name inside the profile directory.
const FileName = "antifreeze.json"

// Config is the full set of antifreeze tunables.
// Persisted keys keep their camelCase names; viper reads them case-insensitively.
type Config struct {
	// Feature toggles
	EnableAntifreeze                bool `json:"enableAntifreeze" mapstructure:"enableAntifreeze"`                               // Master switch
	EnableFreezeUnreachableByHeight bool `json:"enableFreezeUnreachableByHeight" mapstructure:"enableFreezeUnreachableByHeight"` // Freeze when target is near but above
	EnableChaseTokenBudget          bool `json:"enableChaseTokenBudget" mapstructure:"enableChaseTokenBudget"`                   // Rotate far chasers via tokens
	EnableLocalDensityCulling       bool `json:"enableLocalDensityCulling" mapstructure:"enableLocalDensityCulling"`             // Freeze extras in dense clusters
	EnableRandomJitter              bool `json:"enableRandomJitter" mapstructure:"enableRandomJitter"`                           // Jitter probe/TTL timings
	EnableCheapAttackProbe          bool `json:"enableCheapAttackProbe" mapstructure:"enableCheapAttackProbe"`                   // Native attack probe in the cheap check
	EnableFrozenAgingTicks          bool `json:"enableFrozenAgingTicks" mapstructure:"enableFrozenAgingTicks"`                   // Rare capped updates while frozen
	EnableDecayMindState            bool `json:"enableDecayMindState" mapstructure:"enableDecayMindState"`                       // Timed mind-state decay
	EnableRandomPerZombieOptOut     bool `json:"enableRandomPerZombieOptOut" mapstructure:"enableRandomPerZombieOptOut"`         // Some agents run native logic only
	EnableForceCleanupBodies        bool `json:"enableForceCleanupBodies" mapstructure:"enableForceCleanupBodies"`               // Delete bodies after cleanupBodiesTTL
	EnableHotConfigReload           bool `json:"enableHotConfigReload" mapstructure:"enableHotConfigReload"`                     // Honor the reload command

	// Core timing & jitter (seconds)
	UnreachablePersistSeconds      float64 `json:"unreachablePersistSeconds" mapstructure:"unreachablePersistSeconds"`
	FrozenProbeBaseIntervalSeconds float64 `json:"frozenProbeBaseIntervalSeconds" mapstructure:"frozenProbeBaseIntervalSeconds"`
	FrozenProbeJitterSeconds       float64 `json:"frozenProbeJitterSeconds" mapstructure:"frozenProbeJitterSeconds"`
	ThrottleBaseIntervalSeconds    float64 `json:"throttleBaseIntervalSeconds" mapstructure:"throttleBaseIntervalSeconds"`
	ThrottleJitterSeconds          float64 `json:"throttleJitterSeconds" mapstructure:"throttleJitterSeconds"`

	// Frozen aging
	FrozenAgingTickInterval float64 `json:"frozenAgingTickInterval" mapstructure:"frozenAgingTickInterval"`
	FrozenAgingTickDtCap    float64 `json:"frozenAgingTickDtCap" mapstructure:"frozenAgingTickDtCap"`

	// Mind state decay
	DecayMindStateFightCooldown float64 `json:"decayMindStateFightCooldown" mapstructure:"decayMindStateFightCooldown"` // Fight drops to Chase
	DecayMindStateChaseCooldown float64 `json:"decayMindStateChaseCooldown" mapstructure:"decayMindStateChaseCooldown"` // Chase drops to Alerted

	// Spatial thresholds (meters)
	UnreachableHeightDeltaMeters float64 `json:"unreachableHeightDeltaMeters" mapstructure:"unreachableHeightDeltaMeters"`
	NearRadiusMeters             float64 `json:"nearRadiusMeters" mapstructure:"nearRadiusMeters"`
	NearRadiusSquared            float64 `json:"-" mapstructure:"-"` // Always NearRadiusMeters², never persisted
	ActiveRingRadiusMeters       float64 `json:"activeRingRadiusMeters" mapstructure:"activeRingRadiusMeters"`
	DensityWindowRadiusMeters    float64 `json:"densityWindowRadiusMeters" mapstructure:"densityWindowRadiusMeters"`
	DensityMaxNeighbors          int     `json:"densityMaxNeighbors" mapstructure:"densityMaxNeighbors"`

	// Chase token budget
	ChaseTokenTTLSeconds       float64 `json:"chaseTokenTTLSeconds" mapstructure:"chaseTokenTTLSeconds"`
	ChaseTokenTTLJitterSeconds float64 `json:"chaseTokenTTLJitterSeconds" mapstructure:"chaseTokenTTLJitterSeconds"`
	ChaseKeepBaseProbability   float64 `json:"chaseKeepBaseProbability" mapstructure:"chaseKeepBaseProbability"`
	ChaseKeepMinProbability    float64 `json:"chaseKeepMinProbability" mapstructure:"chaseKeepMinProbability"`
	ChaseKeepMaxProbability    float64 `json:"chaseKeepMaxProbability" mapstructure:"chaseKeepMaxProbability"`

	// Stimulus windows
	WakeGraceSeconds    float64 `json:"wakeGraceSeconds" mapstructure:"wakeGraceSeconds"`
	WakeCooldownSeconds float64 `json:"wakeCooldownSeconds" mapstructure:"wakeCooldownSeconds"`

	// Random opt-out: 0.0..0.9 fraction of agents running native logic only
	RandomOptOutRatio float64 `json:"randomOptOutRatio" mapstructure:"randomOptOutRatio"`

	// Seconds before a body is force deleted; < 0 inherits the host ceiling.
	CleanupBodiesTTL int `json:"cleanupBodiesTTL" mapstructure:"cleanupBodiesTTL"`

	Version int `json:"version" mapstructure:"version"`
}

// Default returns the shipped tunables. CleanupBodiesTTL is left at the
// inherit sentinel; Normalize resolves it.
func Default() *Config {
	return &Config{
		EnableAntifreeze:                true,
		EnableFreezeUnreachableByHeight: true,
		EnableChaseTokenBudget:          true,
		EnableLocalDensityCulling:       true,
		EnableRandomJitter:              true,
		EnableCheapAttackProbe:          false,
		EnableFrozenAgingTicks:          true,
		EnableDecayMindState:            true,
		EnableRandomPerZombieOptOut:     false,
		EnableForceCleanupBodies:        true,
		EnableHotConfigReload:           false,

		UnreachablePersistSeconds:      0.6,
		FrozenProbeBaseIntervalSeconds: 0.5,
		FrozenProbeJitterSeconds:       0.35,
		ThrottleBaseIntervalSeconds:    0.45,
		ThrottleJitterSeconds:          0.35,

		FrozenAgingTickInterval: 0.75,
		FrozenAgingTickDtCap:    0.06,

		DecayMindStateFightCooldown: 30.0,
		DecayMindStateChaseCooldown: 120.0,

		UnreachableHeightDeltaMeters: 1.25,
		NearRadiusMeters:             6.0,
		NearRadiusSquared:            36.0,
		ActiveRingRadiusMeters:       4.5,
		DensityWindowRadiusMeters:    2.0,
		DensityMaxNeighbors:          6,

		ChaseTokenTTLSeconds:       1.2,
		ChaseTokenTTLJitterSeconds: 0.5,
		ChaseKeepBaseProbability:   0.25,
		ChaseKeepMinProbability:    0.04,
		ChaseKeepMaxProbability:    0.55,

		WakeGraceSeconds:    3.0,
		WakeCooldownSeconds: 0.30,

		RandomOptOutRatio: 0.0,

		CleanupBodiesTTL: -1,

		Version: Version,
	}
}

// Clone returns a copy safe to hand to observers outside the frame loop.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

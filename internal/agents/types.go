// Package agents provides the hostile infected, the survivors they hunt,
// and the spawner that places both.
package agents

import (
	"github.com/talgya/antifreeze/internal/antifreeze"
	"github.com/talgya/antifreeze/internal/entropy"
	"github.com/talgya/antifreeze/internal/world"
)

// AgentID is a unique identifier shared by every entity in the grid.
type AgentID uint64

// Entity kinds as seen by spatial queries.
const (
	KindInfected antifreeze.Kind = iota + 1
	KindSurvivor
)

// Infected tuning.
const (
	InfectedMaxHealth   = 100.0
	InfectedWalkSpeed   = 1.2  // m/s while alerted
	InfectedRunSpeed    = 4.5  // m/s while chasing
	InfectedSenseRadius = 35.0 // Survivors closer than this are noticed
	AttackReach         = 1.6  // Horizontal reach of a swing (m)
	AttackHeight        = 1.5  // Max vertical gap for a swing or a climb-free approach
	AttackDamage        = 12.0
	AttackCooldown      = 1.2 // Seconds between swings
	AttackDuration      = 0.5 // Seconds the attack command runs
)

// Survivor tuning.
const (
	SurvivorMaxHealth     = 100.0
	SurvivorSpeed         = 3.0
	SurvivorShootRange    = 25.0
	SurvivorShootCooldown = 0.8
	SurvivorHitChance     = 0.6
	SurvivorShotDamage    = 34.0
	SurvivorRespawnDelay  = 10.0
	SurvivorRegen         = 1.5 // Health per second
	ClimbReach            = 1.0 // Survivors climb onto platforms from this close
	FinisherReach         = 1.5
	FinisherHealth        = 40.0 // Infected at or below this can be finished
	FinisherDuration      = 1.2
	ContactRadius         = 0.8
)

// Env is the shared world context agents act in. The simulation owns it and
// updates Frame before ticking agents.
type Env struct {
	Terrain   *world.Terrain
	Grid      *world.Grid
	Settings  antifreeze.Settings
	Sounds    *antifreeze.SoundLimiter
	Rand      entropy.Source
	Survivors []*Survivor
	Frame     uint64
	Report    func(Event) // Optional sink for notable actions
}

// Event is a notable agent action reported back to the simulation.
type Event struct {
	Category    string
	Description string
}

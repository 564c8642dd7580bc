package antifreeze

import (
	"github.com/talgya/antifreeze/internal/config"
	"github.com/talgya/antifreeze/internal/vmath"
)

// MindState is the host AI's coarse awareness level.
type MindState uint8

const (
	MindCalm MindState = iota
	MindDisturbed
	MindAlerted
	MindChase // Long-range pursuit; the only state the chase budget throttles
	MindFight
)

var mindNames = [...]string{"calm", "disturbed", "alerted", "chase", "fight"}

func (m MindState) String() string {
	if int(m) < len(mindNames) {
		return mindNames[m]
	}
	return "unknown"
}

// CommandID identifies the native command an agent is currently running.
type CommandID uint8

const (
	CommandMove CommandID = iota // Movement/chase; the only class subject to throttling
	CommandAttack
	CommandHit
	CommandVault
	CommandDeath
)

var commandNames = [...]string{"move", "attack", "hit", "vault", "death"}

func (c CommandID) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return "unknown"
}

// Kind tells same-type agents apart for density culling.
type Kind uint8

// Settings is the read side of config.Store.
type Settings interface {
	Get() *config.Config
}

// Body is the host entity a Runtime is attached to.
type Body interface {
	ID() uint64
	Kind() Kind
	Position() vmath.Vec3
	IsDestroyed() bool
	// InFinisher reports a finisher animation in progress; those frames are never delayed.
	InFinisher() bool
	// Controller returns nil when the agent has no targeting controller.
	Controller() Controller
	// CanAttackPosition is the native attack-feasibility probe.
	CanAttackPosition(p vmath.Vec3) bool
	// SetKeepInIdle toggles native AI idling. Hosts without an AI agent handle ignore it.
	SetKeepInIdle(idle bool)
	Delete()
	DisableSimulation()
}

// Controller exposes the host's targeting state.
type Controller interface {
	MindState() MindState
	// Target returns nil when nothing is targeted.
	Target() Target
}

// Target is whatever the agent is pursuing.
type Target interface {
	Position() vmath.Vec3
	IsDestroyed() bool
}

// Occupant is an entity returned by a spatial query.
type Occupant interface {
	ID() uint64
	Kind() Kind
	IsDestroyed() bool
}

// SpatialIndex is the host's bounding-box entity query.
// visit returns false to stop the query early.
type SpatialIndex interface {
	QueryBox(min, max vmath.Vec3, visit func(Occupant) bool)
}

// Scheduler runs fn after delay seconds of host time, on the frame loop.
type Scheduler interface {
	CallLater(delay float64, fn func())
}

// NativeUpdate is the host's full-cost behavior update.
type NativeUpdate func(dt float64, cmd CommandID, finished bool)

// Frame is one host invocation of the per-agent entry point.
type Frame struct {
	Dt       float64
	Command  CommandID
	Finished bool
}

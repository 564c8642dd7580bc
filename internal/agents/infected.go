package agents

import (
	"fmt"

	"github.com/talgya/antifreeze/internal/antifreeze"
	"github.com/talgya/antifreeze/internal/vmath"
)

// Infected is a hostile agent. Its HandleCommand is the expensive native
// update; the attached Runtime decides when that update actually runs.
type Infected struct {
	AgentID AgentID
	Pos     vmath.Vec3
	Health  float64
	Mind    antifreeze.MindState
	Runtime *antifreeze.Runtime

	env       *Env
	target    *Survivor
	mindTimer float64 // Seconds since the mind state was last refreshed

	command         antifreeze.CommandID
	commandTimer    float64
	commandFinished bool
	attackCooldown  float64
	finisher        float64

	idle      bool
	simulated bool
	deleted   bool

	// Native cost telemetry.
	NativeCalls   uint64
	NativeSeconds float64
	Blocked       float64 // Seconds spent pushing against a ledge
	Sounds        uint64
	SoundsDropped uint64
}

// NewInfected places an infected in the grid and attaches its runtime.
func NewInfected(id AgentID, pos vmath.Vec3, env *Env) *Infected {
	z := &Infected{
		AgentID:   id,
		Pos:       pos,
		Health:    InfectedMaxHealth,
		Mind:      antifreeze.MindCalm,
		env:       env,
		command:   antifreeze.CommandMove,
		simulated: true,
	}
	env.Grid.Insert(z, pos)
	z.Runtime = antifreeze.New(env.Settings, z, env.Grid, env.Rand)
	return z
}

// Tick runs one frame through the runtime.
func (z *Infected) Tick(dt float64) antifreeze.Decision {
	f := antifreeze.Frame{Dt: dt, Command: z.command, Finished: z.commandFinished}
	return z.Runtime.Tick(f, z.HandleCommand)
}

// HandleCommand is the full-cost behavior update: perception, mind-state
// bookkeeping, movement and attacks.
func (z *Infected) HandleCommand(dt float64, cmd antifreeze.CommandID, finished bool) {
	z.NativeCalls++
	z.NativeSeconds += dt
	z.commandFinished = false

	if z.IsDestroyed() {
		z.command = antifreeze.CommandDeath
		return
	}
	if z.finisher > 0 {
		z.finisher -= dt
		if z.finisher <= 0 {
			z.finisher = 0
			z.Health = 0
			z.command = antifreeze.CommandDeath
			z.report("death", fmt.Sprintf("infected %d was finished", z.AgentID))
		}
		return
	}

	z.decayMind(dt)
	z.perceive()

	if z.attackCooldown > 0 {
		z.attackCooldown -= dt
	}

	if cmd == antifreeze.CommandAttack {
		z.commandTimer -= dt
		if z.commandTimer > 0 {
			return
		}
		z.command = antifreeze.CommandMove
		z.commandFinished = true
	}

	if z.target != nil && z.Mind == antifreeze.MindFight && z.attackCooldown <= 0 && z.inReach(z.target.Position()) {
		z.attack()
		return
	}
	z.move(dt)
}

func (z *Infected) attack() {
	z.command = antifreeze.CommandAttack
	z.commandTimer = AttackDuration
	z.attackCooldown = AttackCooldown
	z.voice()

	if z.target.Damage(AttackDamage) {
		z.report("survivor", fmt.Sprintf("survivor %d was killed by infected %d", z.target.AgentID, z.AgentID))
		z.target = nil
		z.setMind(antifreeze.MindAlerted)
	}
}

// decayMind drops stale aggression on timers. Without decay, aggression
// drops as soon as the reason for it is gone.
func (z *Infected) decayMind(dt float64) {
	cfg := z.env.Settings.Get()
	z.mindTimer += dt

	if !cfg.EnableDecayMindState {
		switch {
		case z.Mind == antifreeze.MindFight && (z.target == nil || !z.inReach(z.target.Position())):
			z.setMind(antifreeze.MindChase)
		case z.Mind == antifreeze.MindChase && z.target == nil:
			z.setMind(antifreeze.MindAlerted)
		}
		return
	}

	switch {
	case z.Mind == antifreeze.MindFight && z.mindTimer >= cfg.DecayMindStateFightCooldown:
		z.setMind(antifreeze.MindChase)
	case z.Mind == antifreeze.MindChase && z.mindTimer >= cfg.DecayMindStateChaseCooldown:
		z.setMind(antifreeze.MindAlerted)
		z.target = nil
	}
}

// perceive locks onto the nearest living survivor in sense range.
func (z *Infected) perceive() {
	if z.target != nil && z.target.IsDestroyed() {
		z.target = nil
		z.setMind(antifreeze.MindAlerted)
	}

	var best *Survivor
	bestDist := InfectedSenseRadius
	for _, s := range z.env.Survivors {
		if s.IsDestroyed() {
			continue
		}
		if d := vmath.Distance(z.Pos, s.Pos); d <= bestDist {
			best, bestDist = s, d
		}
	}
	if best == nil {
		return
	}

	if best != z.target {
		z.target = best
		z.voice()
	}
	switch {
	case z.inReach(best.Pos):
		z.setMind(antifreeze.MindFight)
	case z.Mind == antifreeze.MindFight:
		// Decays back to Chase on its own timer.
	default:
		z.setMind(antifreeze.MindChase)
	}
}

func (z *Infected) setMind(m antifreeze.MindState) {
	z.Mind = m
	z.mindTimer = 0
}

func (z *Infected) inReach(p vmath.Vec3) bool {
	dy := p.Y - z.Pos.Y
	return vmath.HorizontalDistSq(z.Pos, p) <= AttackReach*AttackReach && dy <= AttackHeight && dy >= -AttackHeight
}

// move walks toward the target, blocked by ledges taller than the step height.
func (z *Infected) move(dt float64) {
	if z.target == nil || z.Mind < antifreeze.MindAlerted {
		return
	}

	speed := InfectedWalkSpeed
	if z.Mind >= antifreeze.MindChase {
		speed = InfectedRunSpeed
	}

	terrain := z.env.Terrain
	next := terrain.Clamp(vmath.MoveToward(z.Pos, z.target.Position(), speed*dt))
	if !terrain.CanStep(z.Pos, next.X, next.Z) {
		z.Blocked += dt
		return
	}
	next.Y = terrain.HeightAt(next.X, next.Z)
	z.Pos = next
	z.env.Grid.Move(uint64(z.AgentID), next)
}

func (z *Infected) voice() {
	if z.env.Sounds.Allow(z.env.Frame) {
		z.Sounds++
	} else {
		z.SoundsDropped++
	}
}

func (z *Infected) report(category, desc string) {
	if z.env.Report != nil {
		z.env.Report(Event{Category: category, Description: desc})
	}
}

// Hit applies damage from a survivor and reports whether it killed.
// Surviving a hit wakes the runtime.
func (z *Infected) Hit(amount float64) bool {
	if z.IsDestroyed() {
		return false
	}
	z.Health -= amount
	if z.Health <= 0 {
		z.Health = 0
		z.command = antifreeze.CommandDeath
		return true
	}
	z.Runtime.OnHit()
	if z.Mind < antifreeze.MindAlerted {
		z.setMind(antifreeze.MindAlerted)
	}
	return false
}

// Touch is the physical-contact hook.
func (z *Infected) Touch() bool {
	if z.IsDestroyed() {
		return false
	}
	return z.Runtime.OnContact()
}

// StartFinisher begins a finisher on a weakened infected. The infected dies
// when the animation completes.
func (z *Infected) StartFinisher() bool {
	if z.IsDestroyed() || z.finisher > 0 || z.Health > FinisherHealth {
		return false
	}
	z.finisher = FinisherDuration
	return true
}

// Die hands the corpse to the runtime's cleanup path.
func (z *Infected) Die(sched antifreeze.Scheduler) {
	z.Runtime.Kill(sched)
}

// Deleted reports whether the body has been removed from the world.
func (z *Infected) Deleted() bool { return z.deleted }

// Simulated reports whether corpse physics is still running.
func (z *Infected) Simulated() bool { return z.simulated }

// Idle reports the AI idle flag.
func (z *Infected) Idle() bool { return z.idle }

// antifreeze.Body, antifreeze.Controller and antifreeze.Occupant.

func (z *Infected) ID() uint64                        { return uint64(z.AgentID) }
func (z *Infected) Kind() antifreeze.Kind             { return KindInfected }
func (z *Infected) Position() vmath.Vec3              { return z.Pos }
func (z *Infected) IsDestroyed() bool                 { return z.Health <= 0 }
func (z *Infected) InFinisher() bool                  { return z.finisher > 0 }
func (z *Infected) Controller() antifreeze.Controller { return z }
func (z *Infected) SetKeepInIdle(idle bool)           { z.idle = idle }
func (z *Infected) DisableSimulation()                { z.simulated = false }
func (z *Infected) MindState() antifreeze.MindState   { return z.Mind }

func (z *Infected) Target() antifreeze.Target {
	if z.target == nil {
		return nil
	}
	return z.target
}

// CanAttackPosition reports whether p can be reached on foot: the position
// must sit within attack height of the ground beneath it.
func (z *Infected) CanAttackPosition(p vmath.Vec3) bool {
	return p.Y-z.env.Terrain.GroundAt(p.X, p.Z) <= AttackHeight
}

// Delete removes the body from the world.
func (z *Infected) Delete() {
	if z.deleted {
		return
	}
	z.deleted = true
	z.env.Grid.Remove(uint64(z.AgentID))
}

// InfectedView is the API projection of an infected.
type InfectedView struct {
	ID       AgentID          `json:"id"`
	Position vmath.Vec3       `json:"position"`
	Health   float64          `json:"health"`
	Mind     string           `json:"mind"`
	Command  string           `json:"command"`
	Mode     string           `json:"mode"`
	State    antifreeze.State `json:"state"`
	OptedOut bool             `json:"opted_out"`
	Idle     bool             `json:"idle"`
	Dead     bool             `json:"dead"`
	Native   uint64           `json:"native_calls"`
}

// View snapshots z for observers.
func (z *Infected) View() InfectedView {
	st := z.Runtime.State()
	return InfectedView{
		ID:       z.AgentID,
		Position: z.Pos,
		Health:   z.Health,
		Mind:     z.Mind.String(),
		Command:  z.command.String(),
		Mode:     st.Mode.String(),
		State:    st,
		OptedOut: z.Runtime.OptedOut(),
		Idle:     z.idle,
		Dead:     z.IsDestroyed(),
		Native:   z.NativeCalls,
	}
}

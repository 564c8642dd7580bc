package antifreeze

// DisableSimulationDelay is how long a corpse keeps physics after death, in seconds.
const DisableSimulationDelay = 1.5

// OnHit is the damage-received hook. It reports whether the wake applied.
func (r *Runtime) OnHit() bool { return r.wake() }

// OnContact is the physical-contact hook. It reports whether the wake applied.
func (r *Runtime) OnContact() bool { return r.wake() }

// wake forces full responsiveness for the grace window unless a previous wake
// is still cooling down. Token state is left alone.
func (r *Runtime) wake() bool {
	if r.dead || r.optedOut {
		return false
	}
	s := &r.state
	if s.WakeCooldown > 0 {
		return false
	}
	cfg := r.settings.Get()

	if s.Mode == ModeFrozen {
		r.body.SetKeepInIdle(false)
	}
	grace := max(s.Grace, cfg.WakeGraceSeconds)
	s.enterActive()
	s.Mode = ModeStimulusGrace
	s.Grace = grace

	s.UnreachableAccum = 0
	s.WakeCooldown = cfg.WakeCooldownSeconds
	return true
}

// Kill freezes the agent for good and hands body cleanup to sched: deletion
// after the cleanup TTL when forced cleanup is on, and physics shutdown after
// DisableSimulationDelay regardless.
func (r *Runtime) Kill(sched Scheduler) {
	if r.dead {
		return
	}
	r.dead = true
	r.state.enterFrozen(0)
	r.state.clearToken()
	r.body.SetKeepInIdle(true)

	cfg := r.settings.Get()
	if cfg.EnableForceCleanupBodies {
		sched.CallLater(float64(cfg.CleanupBodiesTTL), r.body.Delete)
	}
	sched.CallLater(DisableSimulationDelay, r.body.DisableSimulation)
}

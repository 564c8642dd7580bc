// Package antifreeze decides, once per frame and per agent, whether the host's
// expensive behavior update runs at full fidelity, runs as a capped aging
// tick, or is skipped.
//
// A Runtime is owned by one agent and is driven from the host's frame loop.
// It is not safe for concurrent use.
package antifreeze

import (
	"github.com/talgya/antifreeze/internal/entropy"
	"github.com/talgya/antifreeze/internal/vmath"
)

// Runtime is the per-agent admission-control state machine.
type Runtime struct {
	settings Settings
	body     Body
	space    SpatialIndex
	rng      entropy.Source

	// Drawn once at construction.
	jitter   float64
	optedOut bool

	state State
	dead  bool
}

// New attaches a runtime to body. The probe jitter and opt-out roll are drawn
// here and never recomputed.
func New(settings Settings, body Body, space SpatialIndex, rng entropy.Source) *Runtime {
	cfg := settings.Get()
	return &Runtime{
		settings: settings,
		body:     body,
		space:    space,
		rng:      rng,
		jitter:   cfg.ProbeJitter(rng),
		optedOut: cfg.RollOptOut(rng),
	}
}

// OptedOut reports the lifetime opt-out roll.
func (r *Runtime) OptedOut() bool { return r.optedOut }

// Jitter is the fixed offset added to this agent's height-gate probe interval.
func (r *Runtime) Jitter() float64 { return r.jitter }

// State returns a copy of the mutable record.
func (r *Runtime) State() State { return r.state }

// Frozen reports whether native updates are currently suppressed.
func (r *Runtime) Frozen() bool { return r.state.Mode == ModeFrozen }

// Dead reports whether Kill has run.
func (r *Runtime) Dead() bool { return r.dead }

// Tick evaluates the frame and calls native accordingly. Capped aging calls
// lift the body's idle flag only for their duration.
func (r *Runtime) Tick(f Frame, native NativeUpdate) Decision {
	d := r.Decide(f)
	switch d.Verdict {
	case Forward:
		native(d.Dt, f.Command, f.Finished)
	case ForwardCapped:
		r.body.SetKeepInIdle(false)
		native(d.Dt, f.Command, f.Finished)
		r.body.SetKeepInIdle(true)
	}
	return d
}

// Decide advances the state machine by one frame and returns what the host
// should do. Freezing and unfreezing toggle the body's idle flag as a side effect.
func (r *Runtime) Decide(f Frame) Decision {
	cfg := r.settings.Get()

	if !cfg.EnableAntifreeze || r.body.IsDestroyed() || r.body.InFinisher() {
		return forward(f, ReasonBypass)
	}
	if r.optedOut {
		return forward(f, ReasonOptedOut)
	}
	if r.dead {
		return suppress(ReasonDead)
	}

	s := &r.state
	if s.WakeCooldown > 0 {
		s.WakeCooldown -= f.Dt
	}

	if s.Mode == ModeStimulusGrace {
		s.Grace -= f.Dt
		if s.Grace <= 0 {
			s.enterActive()
		}
		return forward(f, ReasonGrace)
	}

	// A capped aging call owed by this frame. It is delivered only if the
	// frame would otherwise be suppressed; a full forward subsumes it.
	var agingDt float64

	if s.Mode == ModeFrozen {
		s.Cooldown -= f.Dt

		if cfg.EnableFrozenAgingTicks {
			s.AgingAccum += f.Dt
			if s.AgingAccum >= cfg.FrozenAgingTickInterval {
				agingDt = min(s.AgingAccum, cfg.FrozenAgingTickDtCap)
				s.AgingAccum = 0
			}
		}

		if s.Cooldown > 0 {
			return hold(ReasonFrozenWait, agingDt)
		}
		if !r.shouldUnfreeze(cfg) {
			s.Cooldown = cfg.ThrottleInterval(r.rng)
			return hold(ReasonProbeFailed, agingDt)
		}

		s.enterActive()
		r.body.SetKeepInIdle(false)
	}

	if f.Command != CommandMove {
		return forward(f, ReasonPassThrough)
	}
	ctrl := r.body.Controller()
	if ctrl == nil {
		return forward(f, ReasonPassThrough)
	}

	if cfg.EnableFreezeUnreachableByHeight {
		if !r.reachableCheap(cfg, ctrl) {
			s.UnreachableAccum += f.Dt
			if s.UnreachableAccum >= cfg.UnreachablePersistSeconds {
				r.freeze(cfg.FrozenProbeBaseIntervalSeconds + r.jitter)
				return hold(ReasonUnreachable, agingDt)
			}
		} else {
			s.UnreachableAccum = 0
		}
	}

	if !cfg.EnableChaseTokenBudget || ctrl.MindState() != MindChase {
		s.clearToken()
		return forward(f, ReasonActive)
	}

	target := ctrl.Target()
	if target == nil {
		return forward(f, ReasonActive)
	}

	dist := vmath.Distance(target.Position(), r.body.Position())
	if dist <= cfg.ActiveRingRadiusMeters {
		s.clearToken()
		return forward(f, ReasonInRing)
	}

	if cfg.EnableLocalDensityCulling && r.crowded(cfg) {
		r.freeze(cfg.ThrottleInterval(r.rng))
		return hold(ReasonCrowded, agingDt)
	}

	if s.Token.Held {
		s.Token.TTL -= f.Dt
		if s.Token.TTL <= 0 {
			s.clearToken()
			r.freeze(cfg.ThrottleInterval(r.rng))
			return hold(ReasonTokenExpired, agingDt)
		}
		return forward(f, ReasonTokenHeld)
	}

	if r.rng.Float64() < cfg.ChaseKeepProbability(dist) {
		s.Token = ChaseToken{Held: true, TTL: cfg.ChaseTokenTTL(r.rng)}
		return forward(f, ReasonTokenGranted)
	}

	r.freeze(cfg.ThrottleInterval(r.rng))
	return hold(ReasonTokenDenied, agingDt)
}

func (r *Runtime) freeze(cooldown float64) {
	r.state.enterFrozen(cooldown)
	r.body.SetKeepInIdle(true)
}

// hold suppresses the frame, or downgrades to a capped forward when an aging
// tick fell due earlier in the same frame.
func hold(reason Reason, agingDt float64) Decision {
	if agingDt > 0 {
		return Decision{Verdict: ForwardCapped, Dt: agingDt, Reason: reason}
	}
	return suppress(reason)
}

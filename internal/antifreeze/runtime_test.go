package antifreeze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/antifreeze/internal/config"
	"github.com/talgya/antifreeze/internal/vmath"
)

func TestOptedOutAgentAlwaysForwards(t *testing.T) {
	h := newHarness(t, fixedSource(0.1), func(c *config.Config) {
		c.EnableRandomPerZombieOptOut = true
		c.RandomOptOutRatio = 0.5
	})
	require.True(t, h.rt.OptedOut())

	// Near but far above: every heuristic would freeze this agent.
	h.target.pos = vmath.Vec3{X: 1, Y: 5}
	h.body.canAttack = false

	for i := 0; i < 50; i++ {
		d := h.rt.Decide(move(0.25))
		require.Equal(t, Forward, d.Verdict)
		require.Equal(t, ReasonOptedOut, d.Reason)
		require.Equal(t, 0.25, d.Dt)
	}
	assert.False(t, h.rt.OnHit())
	assert.Empty(t, h.body.idleCalls)
}

func TestOptOutRollMisses(t *testing.T) {
	h := newHarness(t, fixedSource(0.9), func(c *config.Config) {
		c.EnableRandomPerZombieOptOut = true
		c.RandomOptOutRatio = 0.5
	})
	assert.False(t, h.rt.OptedOut())
}

func TestBypassLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	h.freezeByDeniedToken(t)
	before := h.rt.State()

	h.cfg.EnableAntifreeze = false
	d := h.rt.Decide(move(0.25))
	assert.Equal(t, Forward, d.Verdict)
	assert.Equal(t, ReasonBypass, d.Reason)
	h.cfg.EnableAntifreeze = true

	h.body.finisher = true
	assert.Equal(t, ReasonBypass, h.rt.Decide(move(0.25)).Reason)
	h.body.finisher = false

	h.body.destroyed = true
	assert.Equal(t, ReasonBypass, h.rt.Decide(move(0.25)).Reason)

	assert.Equal(t, before, h.rt.State())
}

func TestNonMoveCommandsPassThrough(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)

	d := h.rt.Decide(Frame{Dt: 0.1, Command: CommandAttack})
	assert.Equal(t, Forward, d.Verdict)
	assert.Equal(t, ReasonPassThrough, d.Reason)

	h.body.ctrl = nil
	d = h.rt.Decide(move(0.1))
	assert.Equal(t, Forward, d.Verdict)
	assert.Equal(t, ReasonPassThrough, d.Reason)
}

func TestFrozenAgentIgnoresCommandClass(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	h.freezeByDeniedToken(t)

	d := h.rt.Decide(Frame{Dt: 0.1, Command: CommandAttack})
	assert.Equal(t, Suppress, d.Verdict)
	assert.Equal(t, ReasonFrozenWait, d.Reason)
}

func TestFrozenAgentOnlyAgesWhileCoolingDown(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), func(c *config.Config) {
		c.ThrottleBaseIntervalSeconds = 10
	})
	h.freezeByDeniedToken(t)
	require.True(t, h.rt.Frozen())

	var capped, suppressed int
	for i := 1; i <= 12; i++ {
		d := h.rt.Decide(move(0.25))
		switch d.Verdict {
		case Forward:
			t.Fatalf("frame %d forwarded at full fidelity", i)
		case ForwardCapped:
			capped++
			assert.Equal(t, 0, i%3, "aging tick off schedule at frame %d", i)
			assert.Equal(t, h.cfg.FrozenAgingTickDtCap, d.Dt)
			assert.Equal(t, ReasonFrozenWait, d.Reason)
		case Suppress:
			suppressed++
		}
	}
	assert.Equal(t, 4, capped)
	assert.Equal(t, 8, suppressed)
	assert.True(t, h.rt.Frozen())
}

func TestFrozenAgentWithoutAgingNeverForwards(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), func(c *config.Config) {
		c.ThrottleBaseIntervalSeconds = 10
		c.EnableFrozenAgingTicks = false
	})
	h.freezeByDeniedToken(t)

	for i := 0; i < 20; i++ {
		require.Equal(t, Suppress, h.rt.Decide(move(0.25)).Verdict)
	}
}

func TestTickCappedCallLiftsIdleTemporarily(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), func(c *config.Config) {
		c.ThrottleBaseIntervalSeconds = 10
	})

	var calls []float64
	native := func(dt float64, cmd CommandID, finished bool) {
		assert.Equal(t, CommandMove, cmd)
		assert.False(t, h.body.idle, "native ran while idled")
		calls = append(calls, dt)
	}

	d := h.rt.Tick(move(0.25), native)
	require.Equal(t, Suppress, d.Verdict)
	assert.Equal(t, []bool{true}, h.body.idleCalls)

	h.rt.Tick(move(0.25), native)
	h.rt.Tick(move(0.25), native)
	d = h.rt.Tick(move(0.25), native)

	assert.Equal(t, ForwardCapped, d.Verdict)
	assert.Equal(t, []float64{h.cfg.FrozenAgingTickDtCap}, calls)
	assert.Equal(t, []bool{true, false, true}, h.body.idleCalls)
	assert.True(t, h.body.idle)
}

func TestTickForwardsFullFrame(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	h.ctrl.mind = MindAlerted

	var got float64
	h.rt.Tick(Frame{Dt: 0.033, Command: CommandMove, Finished: true}, func(dt float64, _ CommandID, finished bool) {
		assert.True(t, finished)
		got = dt
	})
	assert.Equal(t, 0.033, got)
}

func TestUnfreezeFallsThroughInsideActiveRing(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	h.freezeByDeniedToken(t)

	h.target.pos = vmath.Vec3{X: 4.5}
	h.body.canAttack = false

	d := h.rt.Decide(move(0.25))
	require.Equal(t, Suppress, d.Verdict)
	require.Equal(t, ReasonFrozenWait, d.Reason)

	d = h.rt.Decide(move(0.25))
	assert.Equal(t, Forward, d.Verdict)
	assert.Equal(t, ReasonInRing, d.Reason)
	assert.Equal(t, 0.25, d.Dt)
	assert.False(t, h.rt.Frozen())
	assert.False(t, h.body.idle)
	assert.Zero(t, h.body.probes)
}

func TestFailedProbeRearmsCooldown(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	h.freezeByDeniedToken(t)
	h.body.canAttack = false

	h.rt.Decide(move(0.25))
	d := h.rt.Decide(move(0.25))

	assert.Equal(t, Suppress, d.Verdict)
	assert.Equal(t, ReasonProbeFailed, d.Reason)
	assert.Equal(t, 1, h.body.probes)
	assert.True(t, h.rt.Frozen())
	assert.InDelta(t, h.cfg.ThrottleBaseIntervalSeconds, h.rt.State().Cooldown, 1e-9)
}

func TestAgingTickSubsumedByUnfreeze(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), func(c *config.Config) {
		c.FrozenAgingTickInterval = 0.25
	})
	h.freezeByDeniedToken(t)

	d := h.rt.Decide(move(0.25))
	require.Equal(t, ForwardCapped, d.Verdict)

	h.target.pos = vmath.Vec3{X: 3}
	d = h.rt.Decide(move(0.25))
	assert.Equal(t, Forward, d.Verdict)
	assert.Equal(t, 0.25, d.Dt)
	assert.Equal(t, ReasonInRing, d.Reason)
}

func TestAgingTickDeliveredWhenRefrozenSameFrame(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), func(c *config.Config) {
		c.FrozenAgingTickInterval = 0.25
	})
	h.freezeByDeniedToken(t)
	h.rt.Decide(move(0.25))

	// Probe passes, then the keep roll fails again in the same frame.
	d := h.rt.Decide(move(0.25))
	assert.Equal(t, ForwardCapped, d.Verdict)
	assert.Equal(t, ReasonTokenDenied, d.Reason)
	assert.True(t, h.rt.Frozen())
}

func TestHeightGateFreezesAfterPersistence(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	h.ctrl.mind = MindAlerted
	h.target.pos = vmath.Vec3{X: 1, Y: 3}

	assert.Equal(t, ReasonActive, h.rt.Decide(move(0.25)).Reason)
	assert.Equal(t, ReasonActive, h.rt.Decide(move(0.25)).Reason)

	d := h.rt.Decide(move(0.25))
	assert.Equal(t, Suppress, d.Verdict)
	assert.Equal(t, ReasonUnreachable, d.Reason)

	st := h.rt.State()
	assert.Equal(t, ModeFrozen, st.Mode)
	assert.InDelta(t, h.cfg.FrozenProbeBaseIntervalSeconds, st.Cooldown, 1e-9)
	assert.InDelta(t, 0.75, st.UnreachableAccum, 1e-9)
}

func TestReachableFrameResetsUnreachableAccum(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	h.ctrl.mind = MindAlerted
	h.target.pos = vmath.Vec3{X: 1, Y: 3}

	h.rt.Decide(move(0.25))
	h.rt.Decide(move(0.25))
	h.target.pos = vmath.Vec3{X: 1}
	h.rt.Decide(move(0.25))

	assert.Zero(t, h.rt.State().UnreachableAccum)
	assert.False(t, h.rt.Frozen())
}

func TestHitWhileFrozenStartsGrace(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	h.ctrl.mind = MindAlerted
	h.target.pos = vmath.Vec3{X: 1, Y: 3}
	for i := 0; i < 3; i++ {
		h.rt.Decide(move(0.25))
	}
	require.True(t, h.rt.Frozen())

	require.True(t, h.rt.OnHit())

	st := h.rt.State()
	assert.Equal(t, ModeStimulusGrace, st.Mode)
	assert.Equal(t, h.cfg.WakeGraceSeconds, st.Grace)
	assert.Zero(t, st.UnreachableAccum)
	assert.Zero(t, st.Cooldown)
	assert.Equal(t, h.cfg.WakeCooldownSeconds, st.WakeCooldown)
	assert.False(t, h.body.idle)

	d := h.rt.Decide(move(0.25))
	assert.Equal(t, Forward, d.Verdict)
	assert.Equal(t, ReasonGrace, d.Reason)

	// Still cooling down from the first wake.
	assert.False(t, h.rt.OnContact())

	h.rt.Decide(move(0.25))
	require.True(t, h.rt.OnContact())
	assert.Equal(t, h.cfg.WakeGraceSeconds, h.rt.State().Grace)
}

func TestGraceExpiresBackToActive(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	h.ctrl.mind = MindAlerted
	require.True(t, h.rt.OnHit())

	for i := 0; i < 12; i++ {
		require.Equal(t, ReasonGrace, h.rt.Decide(move(0.25)).Reason)
	}
	assert.Equal(t, ModeActive, h.rt.State().Mode)
	assert.Equal(t, ReasonActive, h.rt.Decide(move(0.25)).Reason)
}

func TestChaseTokenExpires(t *testing.T) {
	h := newHarness(t, fixedSource(0.0), nil)

	d := h.rt.Decide(move(0.65))
	require.Equal(t, ReasonTokenGranted, d.Reason)
	require.Equal(t, ChaseToken{Held: true, TTL: 1.2}, h.rt.State().Token)

	d = h.rt.Decide(move(0.65))
	assert.Equal(t, Forward, d.Verdict)
	assert.Equal(t, ReasonTokenHeld, d.Reason)

	d = h.rt.Decide(move(0.65))
	assert.Equal(t, Suppress, d.Verdict)
	assert.Equal(t, ReasonTokenExpired, d.Reason)
	assert.False(t, h.rt.State().Token.Held)
	assert.True(t, h.rt.Frozen())
	assert.True(t, h.body.idle)
}

func TestActiveRingClearsToken(t *testing.T) {
	h := newHarness(t, fixedSource(0.0), nil)
	h.rt.Decide(move(0.25))
	require.True(t, h.rt.State().Token.Held)

	h.target.pos = vmath.Vec3{X: 3}
	d := h.rt.Decide(move(0.25))
	assert.Equal(t, ReasonInRing, d.Reason)
	assert.Equal(t, ChaseToken{}, h.rt.State().Token)
}

func TestLeavingChaseClearsToken(t *testing.T) {
	h := newHarness(t, fixedSource(0.0), nil)
	h.rt.Decide(move(0.25))
	require.True(t, h.rt.State().Token.Held)

	h.ctrl.mind = MindFight
	d := h.rt.Decide(move(0.25))
	assert.Equal(t, Forward, d.Verdict)
	assert.Equal(t, ChaseToken{}, h.rt.State().Token)
}

func TestCrowdedChaserFreezes(t *testing.T) {
	h := newHarness(t, fixedSource(0.0), func(c *config.Config) {
		c.DensityMaxNeighbors = 2
	})
	h.space.occupants = []Occupant{
		fakeOccupant{id: 2, kind: kindInfected},
		fakeOccupant{id: 3, kind: kindInfected},
	}

	d := h.rt.Decide(move(0.25))
	assert.Equal(t, Suppress, d.Verdict)
	assert.Equal(t, ReasonCrowded, d.Reason)
	assert.InDelta(t, h.cfg.ThrottleBaseIntervalSeconds, h.rt.State().Cooldown, 1e-9)
}

func TestKillSchedulesCleanup(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	sched := &fakeScheduler{}

	h.rt.Kill(sched)

	assert.True(t, h.rt.Dead())
	assert.True(t, h.rt.Frozen())
	assert.True(t, h.body.idle)
	require.Len(t, sched.calls, 2)
	assert.Equal(t, 330.0, sched.calls[0].delay)
	assert.Equal(t, DisableSimulationDelay, sched.calls[1].delay)

	for _, c := range sched.calls {
		c.fn()
	}
	assert.True(t, h.body.deleted)
	assert.True(t, h.body.simStopped)

	// Corpses never wake and are only killed once.
	assert.False(t, h.rt.OnHit())
	h.rt.Kill(sched)
	assert.Len(t, sched.calls, 2)
}

func TestKilledAgentStaysSuppressedUntilDestroyed(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), nil)
	h.target.pos = vmath.Vec3{X: 1}

	h.rt.Kill(&fakeScheduler{})
	h.body.idleCalls = nil

	for i := 0; i < 5; i++ {
		d := h.rt.Decide(move(0.5))
		assert.Equal(t, Suppress, d.Verdict)
		assert.Equal(t, ReasonDead, d.Reason)
	}
	assert.True(t, h.rt.Frozen())
	assert.True(t, h.body.idle)
	assert.Empty(t, h.body.idleCalls)
	assert.Zero(t, h.body.probes)

	// Once the host marks the body destroyed, its death handling runs again.
	h.body.destroyed = true
	assert.Equal(t, ReasonBypass, h.rt.Decide(move(0.5)).Reason)
}

func TestKillWithoutForcedCleanup(t *testing.T) {
	h := newHarness(t, fixedSource(0.99), func(c *config.Config) {
		c.EnableForceCleanupBodies = false
	})
	sched := &fakeScheduler{}

	h.rt.Kill(sched)

	require.Len(t, sched.calls, 1)
	assert.Equal(t, DisableSimulationDelay, sched.calls[0].delay)
}

func TestJitterDrawnOnce(t *testing.T) {
	h := newHarness(t, fixedSource(0.5), func(c *config.Config) {
		c.EnableRandomJitter = true
	})
	assert.InDelta(t, 0.175, h.rt.Jitter(), 1e-9)
}

package antifreeze

import (
	"testing"

	"github.com/talgya/antifreeze/internal/config"
	"github.com/talgya/antifreeze/internal/entropy"
	"github.com/talgya/antifreeze/internal/vmath"
)

const kindInfected Kind = 1

// fixedSource returns the same draw every time.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

type fakeTarget struct {
	pos       vmath.Vec3
	destroyed bool
}

func (t *fakeTarget) Position() vmath.Vec3 { return t.pos }
func (t *fakeTarget) IsDestroyed() bool    { return t.destroyed }

type fakeController struct {
	mind   MindState
	target *fakeTarget
}

func (c *fakeController) MindState() MindState { return c.mind }

func (c *fakeController) Target() Target {
	if c.target == nil {
		return nil
	}
	return c.target
}

// staticSettings serves a fixed configuration.
type staticSettings struct{ cfg *config.Config }

func (s staticSettings) Get() *config.Config { return s.cfg }

type fakeBody struct {
	id         uint64
	pos        vmath.Vec3
	destroyed  bool
	finisher   bool
	ctrl       *fakeController
	canAttack  bool
	probes     int
	idle       bool
	idleCalls  []bool
	deleted    bool
	simStopped bool
}

func (b *fakeBody) ID() uint64           { return b.id }
func (b *fakeBody) Kind() Kind           { return kindInfected }
func (b *fakeBody) Position() vmath.Vec3 { return b.pos }
func (b *fakeBody) IsDestroyed() bool    { return b.destroyed }
func (b *fakeBody) InFinisher() bool     { return b.finisher }

func (b *fakeBody) Controller() Controller {
	if b.ctrl == nil {
		return nil
	}
	return b.ctrl
}

func (b *fakeBody) CanAttackPosition(vmath.Vec3) bool {
	b.probes++
	return b.canAttack
}

func (b *fakeBody) SetKeepInIdle(idle bool) {
	b.idle = idle
	b.idleCalls = append(b.idleCalls, idle)
}

func (b *fakeBody) Delete()            { b.deleted = true }
func (b *fakeBody) DisableSimulation() { b.simStopped = true }

type fakeOccupant struct {
	id        uint64
	kind      Kind
	destroyed bool
}

func (o fakeOccupant) ID() uint64        { return o.id }
func (o fakeOccupant) Kind() Kind        { return o.kind }
func (o fakeOccupant) IsDestroyed() bool { return o.destroyed }

type fakeSpace struct {
	occupants []Occupant
	queries   int
	visited   int
}

func (s *fakeSpace) QueryBox(_, _ vmath.Vec3, visit func(Occupant) bool) {
	s.queries++
	for _, o := range s.occupants {
		s.visited++
		if !visit(o) {
			return
		}
	}
}

type scheduledCall struct {
	delay float64
	fn    func()
}

type fakeScheduler struct {
	calls []scheduledCall
}

func (s *fakeScheduler) CallLater(delay float64, fn func()) {
	s.calls = append(s.calls, scheduledCall{delay: delay, fn: fn})
}

type harness struct {
	cfg    *config.Config
	body   *fakeBody
	ctrl   *fakeController
	target *fakeTarget
	space  *fakeSpace
	rt     *Runtime
}

// newHarness builds an agent at the origin chasing a target 20m away on flat
// ground. Jitter is off so intervals are exact.
func newHarness(t *testing.T, src entropy.Source, mutate func(*config.Config)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.EnableRandomJitter = false
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Normalize(330)

	target := &fakeTarget{pos: vmath.Vec3{X: 20}}
	ctrl := &fakeController{mind: MindChase, target: target}
	body := &fakeBody{id: 1, ctrl: ctrl, canAttack: true}
	space := &fakeSpace{}

	return &harness{
		cfg:    cfg,
		body:   body,
		ctrl:   ctrl,
		target: target,
		space:  space,
		rt:     New(staticSettings{cfg}, body, space, src),
	}
}

func move(dt float64) Frame {
	return Frame{Dt: dt, Command: CommandMove}
}

// freezeByDeniedToken drives a far chaser into Frozen by losing the keep roll.
// The harness source must return a draw above the keep probability.
func (h *harness) freezeByDeniedToken(t *testing.T) {
	t.Helper()
	d := h.rt.Decide(move(0.25))
	if d.Verdict != Suppress || d.Reason != ReasonTokenDenied {
		t.Fatalf("expected denied token, got %v/%v", d.Verdict, d.Reason)
	}
}

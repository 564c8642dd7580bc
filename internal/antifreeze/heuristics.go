package antifreeze

import (
	"github.com/talgya/antifreeze/internal/config"
	"github.com/talgya/antifreeze/internal/vmath"
)

// densitySlab is the half-height of the crowd query box.
const densitySlab = 1.0

// reachableCheap flags targets that are close horizontally but too far above
// to reach. With the attack probe enabled a failed native probe also counts
// as unreachable.
func (r *Runtime) reachableCheap(cfg *config.Config, ctrl Controller) bool {
	target := ctrl.Target()
	if target == nil || target.IsDestroyed() {
		return true
	}

	my := r.body.Position()
	tp := target.Position()

	if vmath.HorizontalDistSq(my, tp) <= cfg.NearRadiusSquared && tp.Y-my.Y > cfg.UnreachableHeightDeltaMeters {
		return false
	}
	if cfg.EnableCheapAttackProbe && !r.body.CanAttackPosition(tp) {
		return false
	}
	return true
}

// shouldUnfreeze is the probe run when a frozen agent's cooldown expires.
// The active ring boundary is inclusive.
func (r *Runtime) shouldUnfreeze(cfg *config.Config) bool {
	ctrl := r.body.Controller()
	if ctrl == nil {
		return true
	}
	target := ctrl.Target()
	if target == nil {
		return true
	}

	tp := target.Position()
	if vmath.Distance(tp, r.body.Position()) <= cfg.ActiveRingRadiusMeters {
		return true
	}
	return r.body.CanAttackPosition(tp)
}

// crowded counts live same-kind neighbors in a box around the agent and stops
// as soon as the count reaches the configured maximum. A maximum of zero is
// always crowded.
func (r *Runtime) crowded(cfg *config.Config) bool {
	limit := cfg.DensityMaxNeighbors
	if limit <= 0 {
		return true
	}

	rad := cfg.DensityWindowRadiusMeters
	pos := r.body.Position()
	lo := vmath.Vec3{X: pos.X - rad, Y: pos.Y - densitySlab, Z: pos.Z - rad}
	hi := vmath.Vec3{X: pos.X + rad, Y: pos.Y + densitySlab, Z: pos.Z + rad}

	self, kind := r.body.ID(), r.body.Kind()
	count := 0
	r.space.QueryBox(lo, hi, func(o Occupant) bool {
		if o.ID() == self || o.Kind() != kind || o.IsDestroyed() {
			return true
		}
		count++
		return count < limit
	})
	return count >= limit
}

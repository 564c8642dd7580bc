package agents

import (
	"github.com/talgya/antifreeze/internal/antifreeze"
	"github.com/talgya/antifreeze/internal/vmath"
)

// Survivor is the player stand-in. Survivors roam, climb onto platforms,
// shoot infected in range and finish weakened ones up close.
type Survivor struct {
	AgentID AgentID
	Pos     vmath.Vec3
	Health  float64
	Kills   int

	env           *Env
	dest          vmath.Vec3
	roofBias      float64
	shootCooldown float64
	respawn       float64
}

// Action is what a survivor wants done to an infected this frame.
type Action struct {
	Shoot  *Infected // Target of a landed shot
	Finish *Infected // Target of a finisher
}

// NewSurvivor places a survivor in the grid. roofBias is the chance a new
// destination is a platform top.
func NewSurvivor(id AgentID, pos vmath.Vec3, roofBias float64, env *Env) *Survivor {
	s := &Survivor{
		AgentID:  id,
		Pos:      pos,
		Health:   SurvivorMaxHealth,
		env:      env,
		dest:     pos,
		roofBias: roofBias,
	}
	env.Grid.Insert(s, pos)
	return s
}

func (s *Survivor) ID() uint64            { return uint64(s.AgentID) }
func (s *Survivor) Kind() antifreeze.Kind { return KindSurvivor }
func (s *Survivor) Position() vmath.Vec3  { return s.Pos }
func (s *Survivor) IsDestroyed() bool     { return s.Health <= 0 }

// Damage applies an infected's swing and reports whether it killed.
func (s *Survivor) Damage(amount float64) bool {
	if s.IsDestroyed() {
		return false
	}
	s.Health -= amount
	if s.Health <= 0 {
		s.Health = 0
		s.respawn = SurvivorRespawnDelay
		return true
	}
	return false
}

// Update moves the survivor and picks at most one action.
func (s *Survivor) Update(dt float64) Action {
	if s.IsDestroyed() {
		s.respawn -= dt
		if s.respawn <= 0 {
			s.revive()
		}
		return Action{}
	}

	s.Health = min(SurvivorMaxHealth, s.Health+SurvivorRegen*dt)
	if s.shootCooldown > 0 {
		s.shootCooldown -= dt
	}

	var act Action
	if z, dist := s.nearestInfected(); z != nil {
		switch {
		case dist <= FinisherReach && z.Health <= FinisherHealth && !z.InFinisher():
			act.Finish = z
		case s.shootCooldown <= 0:
			s.shootCooldown = SurvivorShootCooldown
			if s.env.Rand.Float64() < SurvivorHitChance {
				act.Shoot = z
			}
		}
	}

	s.walk(dt)
	return act
}

func (s *Survivor) nearestInfected() (*Infected, float64) {
	r := SurvivorShootRange
	lo := vmath.Vec3{X: s.Pos.X - r, Y: s.Pos.Y - r, Z: s.Pos.Z - r}
	hi := vmath.Vec3{X: s.Pos.X + r, Y: s.Pos.Y + r, Z: s.Pos.Z + r}

	var best *Infected
	bestDist := r
	s.env.Grid.QueryBox(lo, hi, func(o antifreeze.Occupant) bool {
		z, ok := o.(*Infected)
		if !ok || z.IsDestroyed() {
			return true
		}
		if d := vmath.Distance(s.Pos, z.Pos); d <= bestDist {
			best, bestDist = z, d
		}
		return true
	})
	return best, bestDist
}

// walk heads for the current destination. Survivors climb, so ledges never block them.
func (s *Survivor) walk(dt float64) {
	if vmath.HorizontalDistSq(s.Pos, s.dest) <= ClimbReach*ClimbReach {
		s.dest = s.pickDestination()
	}

	next := s.env.Terrain.Clamp(vmath.MoveToward(s.Pos, s.dest, SurvivorSpeed*dt))
	next.Y = s.env.Terrain.HeightAt(next.X, next.Z)
	s.Pos = next
	s.env.Grid.Move(uint64(s.AgentID), next)
}

func (s *Survivor) pickDestination() vmath.Vec3 {
	t := s.env.Terrain
	if len(t.Platforms) > 0 && s.env.Rand.Float64() < s.roofBias {
		i := int(s.env.Rand.Float64() * float64(len(t.Platforms)))
		return t.Platforms[min(i, len(t.Platforms)-1)].Center()
	}
	x := s.env.Rand.Float64() * t.Size
	z := s.env.Rand.Float64() * t.Size
	return vmath.Vec3{X: x, Y: t.HeightAt(x, z), Z: z}
}

func (s *Survivor) revive() {
	s.Health = SurvivorMaxHealth
	s.Pos = s.pickDestination()
	s.dest = s.Pos
	s.shootCooldown = 0
	s.env.Grid.Move(uint64(s.AgentID), s.Pos)
}

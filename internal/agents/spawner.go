// Agent spawning: places infected hordes on open ground and survivors
// spread across ground and rooftops.
package agents

import (
	"math"
	"math/rand"

	"github.com/talgya/antifreeze/internal/vmath"
)

// SpawnConfig controls the initial population.
type SpawnConfig struct {
	Infected  int
	Hordes    int     // Infected are split evenly across this many clusters
	Spread    float64 // Horde radius in meters
	Survivors int
	RoofBias  float64 // Chance a survivor starts and roams on a platform
}

// DefaultSpawnConfig returns a population that keeps a few hundred infected busy.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		Infected:  400,
		Hordes:    8,
		Spread:    12,
		Survivors: 12,
		RoofBias:  0.35,
	}
}

// Spawner creates agents for the simulation.
type Spawner struct {
	rng    *rand.Rand
	nextID AgentID
	env    *Env
}

// NewSpawner creates a spawner with the given seed.
func NewSpawner(seed int64, env *Env) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
		env:    env,
	}
}

// SetNextID sets the next agent ID to be issued.
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

func (s *Spawner) issueID() AgentID {
	id := s.nextID
	s.nextID++
	return id
}

// Populate spawns the configured hordes and survivors.
func (s *Spawner) Populate(cfg SpawnConfig) ([]*Infected, []*Survivor) {
	survivors := make([]*Survivor, 0, cfg.Survivors)
	for i := 0; i < cfg.Survivors; i++ {
		survivors = append(survivors, s.SpawnSurvivor(cfg.RoofBias))
	}
	s.env.Survivors = append(s.env.Survivors, survivors...)

	hordes := max(cfg.Hordes, 1)
	infected := make([]*Infected, 0, cfg.Infected)
	for h := 0; h < hordes; h++ {
		n := cfg.Infected / hordes
		if h < cfg.Infected%hordes {
			n++
		}
		infected = append(infected, s.SpawnHorde(n, s.openGround(), cfg.Spread)...)
	}
	return infected, survivors
}

// SpawnHorde scatters count infected around center on walkable ground.
func (s *Spawner) SpawnHorde(count int, center vmath.Vec3, spread float64) []*Infected {
	horde := make([]*Infected, 0, count)
	for i := 0; i < count; i++ {
		angle := s.rng.Float64() * 2 * math.Pi
		r := math.Sqrt(s.rng.Float64()) * spread
		pos := s.env.Terrain.Clamp(vmath.Vec3{
			X: center.X + r*math.Cos(angle),
			Z: center.Z + r*math.Sin(angle),
		})
		pos.Y = s.env.Terrain.GroundAt(pos.X, pos.Z)
		horde = append(horde, NewInfected(s.issueID(), pos, s.env))
	}
	return horde
}

// SpawnSurvivor places one survivor, on a platform with probability roofBias.
func (s *Spawner) SpawnSurvivor(roofBias float64) *Survivor {
	t := s.env.Terrain
	pos := s.openGround()
	if len(t.Platforms) > 0 && s.rng.Float64() < roofBias {
		pos = t.Platforms[s.rng.Intn(len(t.Platforms))].Center()
	}
	return NewSurvivor(s.issueID(), pos, roofBias, s.env)
}

// openGround picks a random point off any platform.
func (s *Spawner) openGround() vmath.Vec3 {
	t := s.env.Terrain
	for i := 0; ; i++ {
		x := s.rng.Float64() * t.Size
		z := s.rng.Float64() * t.Size
		if t.PlatformAt(x, z) == nil || i >= 32 {
			return vmath.Vec3{X: x, Y: t.GroundAt(x, z), Z: z}
		}
	}
}

// Terrain generation using layered simplex noise.
// Produces a rolling ground heightfield, then scatters raised platforms
// (rooftops, containers) that agents can see but not easily climb.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/antifreeze/internal/entropy"
)

// GenConfig holds terrain generation parameters.
type GenConfig struct {
	Size      float64 // Side length of the square world in meters
	Cell      float64 // Heightfield sample spacing in meters
	Seed      int64   // Random seed (0 = random)
	Relief    float64 // Peak ground height in meters
	Platforms int     // Number of raised platforms

	PlatformMinTop  float64 // Platform height above local ground (m)
	PlatformMaxTop  float64
	PlatformMinSide float64 // Platform footprint side length (m)
	PlatformMaxSide float64
}

// DefaultGenConfig returns a mid-sized arena.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Size:            240,
		Cell:            2,
		Relief:          3,
		Platforms:       24,
		PlatformMinTop:  3,
		PlatformMaxTop:  5,
		PlatformMinSide: 4,
		PlatformMaxSide: 10,
	}
}

// SmallTestConfig returns a tiny flat-ish world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Size:            40,
		Cell:            2,
		Seed:            42,
		Relief:          0.5,
		Platforms:       2,
		PlatformMinTop:  3,
		PlatformMaxTop:  5,
		PlatformMinSide: 4,
		PlatformMaxSide: 6,
	}
}

// Generate creates a terrain with ground relief and platforms.
func Generate(cfg GenConfig) *Terrain {
	seed := cfg.Seed
	if seed == 0 {
		seed = entropy.RandomSeed()
	}
	if cfg.Cell <= 0 {
		cfg.Cell = 1
	}

	groundNoise := opensimplex.NewNormalized(seed)
	rng := rand.New(rand.NewSource(seed + 100))

	t := NewTerrain(cfg.Size, cfg.Cell)
	for iz := 0; iz < t.samples; iz++ {
		for ix := 0; ix < t.samples; ix++ {
			x := float64(ix) * cfg.Cell
			z := float64(iz) * cfg.Cell

			// Low frequency keeps slopes walkable at the configured relief.
			h := octaveNoise(groundNoise, x, z, 4, 0.015, 0.5)
			t.setSample(ix, iz, h*cfg.Relief)
		}
	}

	placePlatforms(t, cfg, rng)
	return t
}

// placePlatforms scatters non-overlapping raised rectangles.
func placePlatforms(t *Terrain, cfg GenConfig, rng *rand.Rand) {
	if cfg.Platforms <= 0 || cfg.Size <= cfg.PlatformMaxSide*2 {
		return
	}

	attempts := cfg.Platforms * 10
	for i := 0; i < attempts && len(t.Platforms) < cfg.Platforms; i++ {
		w := cfg.PlatformMinSide + rng.Float64()*(cfg.PlatformMaxSide-cfg.PlatformMinSide)
		d := cfg.PlatformMinSide + rng.Float64()*(cfg.PlatformMaxSide-cfg.PlatformMinSide)
		x0 := cfg.PlatformMaxSide + rng.Float64()*(cfg.Size-2*cfg.PlatformMaxSide-w)
		z0 := cfg.PlatformMaxSide + rng.Float64()*(cfg.Size-2*cfg.PlatformMaxSide-d)

		p := Platform{X0: x0, Z0: z0, X1: x0 + w, Z1: z0 + d}
		if t.overlapsPlatform(p, 2) {
			continue
		}

		// Flat top above the highest ground under the footprint.
		ground := math.Max(
			math.Max(t.GroundAt(p.X0, p.Z0), t.GroundAt(p.X1, p.Z0)),
			math.Max(t.GroundAt(p.X0, p.Z1), t.GroundAt(p.X1, p.Z1)),
		)
		p.Top = ground + cfg.PlatformMinTop + rng.Float64()*(cfg.PlatformMaxTop-cfg.PlatformMinTop)
		t.Platforms = append(t.Platforms, p)
	}
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// Package world provides the terrain heightfield and the spatial grid
// agents are queried through.
package world

import (
	"fmt"
	"math"

	"github.com/talgya/antifreeze/internal/vmath"
)

// StepHeight is the tallest ledge an agent can step onto without climbing.
const StepHeight = 0.6

// Platform is an axis-aligned raised rectangle with a flat top.
type Platform struct {
	X0  float64 `json:"x0"`
	Z0  float64 `json:"z0"`
	X1  float64 `json:"x1"`
	Z1  float64 `json:"z1"`
	Top float64 `json:"top"`
}

// Contains reports whether (x, z) lies within the footprint.
func (p Platform) Contains(x, z float64) bool {
	return x >= p.X0 && x <= p.X1 && z >= p.Z0 && z <= p.Z1
}

// Center returns the footprint center at roof height.
func (p Platform) Center() vmath.Vec3 {
	return vmath.Vec3{X: (p.X0 + p.X1) / 2, Y: p.Top, Z: (p.Z0 + p.Z1) / 2}
}

// Terrain is a square ground heightfield plus platforms.
type Terrain struct {
	Size      float64    `json:"size"`
	Cell      float64    `json:"cell"`
	Platforms []Platform `json:"platforms"`

	samples int
	heights []float64
}

// NewTerrain creates flat terrain covering [0, size] on X and Z.
func NewTerrain(size, cell float64) *Terrain {
	n := int(math.Ceil(size/cell)) + 1
	if n < 2 {
		n = 2
	}
	return &Terrain{
		Size:    size,
		Cell:    cell,
		samples: n,
		heights: make([]float64, n*n),
	}
}

func (t *Terrain) setSample(ix, iz int, h float64) {
	t.heights[iz*t.samples+ix] = h
}

func (t *Terrain) sample(ix, iz int) float64 {
	ix = vmath.ClampInt(ix, 0, t.samples-1)
	iz = vmath.ClampInt(iz, 0, t.samples-1)
	return t.heights[iz*t.samples+ix]
}

// GroundAt returns the bilinearly interpolated ground height, ignoring platforms.
func (t *Terrain) GroundAt(x, z float64) float64 {
	fx := vmath.Clamp(x, 0, t.Size) / t.Cell
	fz := vmath.Clamp(z, 0, t.Size) / t.Cell
	ix, iz := int(fx), int(fz)
	tx, tz := fx-float64(ix), fz-float64(iz)

	h00 := t.sample(ix, iz)
	h10 := t.sample(ix+1, iz)
	h01 := t.sample(ix, iz+1)
	h11 := t.sample(ix+1, iz+1)

	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	return top + (bottom-top)*tz
}

// PlatformAt returns the platform covering (x, z), or nil.
func (t *Terrain) PlatformAt(x, z float64) *Platform {
	for i := range t.Platforms {
		if t.Platforms[i].Contains(x, z) {
			return &t.Platforms[i]
		}
	}
	return nil
}

// HeightAt returns the walkable surface height at (x, z).
func (t *Terrain) HeightAt(x, z float64) float64 {
	if p := t.PlatformAt(x, z); p != nil {
		return p.Top
	}
	return t.GroundAt(x, z)
}

// CanStep reports whether an agent standing at from can walk onto the surface at (x, z).
// Dropping down is always allowed.
func (t *Terrain) CanStep(from vmath.Vec3, x, z float64) bool {
	return t.HeightAt(x, z)-from.Y <= StepHeight
}

// Clamp keeps a position inside the world bounds.
func (t *Terrain) Clamp(p vmath.Vec3) vmath.Vec3 {
	p.X = vmath.Clamp(p.X, 0, t.Size)
	p.Z = vmath.Clamp(p.Z, 0, t.Size)
	return p
}

func (t *Terrain) overlapsPlatform(p Platform, margin float64) bool {
	for _, o := range t.Platforms {
		if p.X0-margin < o.X1 && p.X1+margin > o.X0 && p.Z0-margin < o.Z1 && p.Z1+margin > o.Z0 {
			return true
		}
	}
	return false
}

// String returns a summary of the terrain.
func (t *Terrain) String() string {
	return fmt.Sprintf("Terrain(size=%.0fm, cell=%.1fm, platforms=%d)", t.Size, t.Cell, len(t.Platforms))
}

// Package vmath provides the small vector toolkit shared by the world and the
// admission-control core. Y is up; X and Z span the ground plane.
package vmath

import "math"

// Vec3 is a world-space position or offset in meters.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	d := a.Sub(b)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// HorizontalDistSq returns the squared distance between a and b on the ground plane.
func HorizontalDistSq(a, b Vec3) float64 {
	dx := b.X - a.X
	dz := b.Z - a.Z
	return dx*dx + dz*dz
}

// MoveToward steps from toward to by at most maxStep meters on the ground plane.
// Y is left to the caller (terrain snaps it).
func MoveToward(from, to Vec3, maxStep float64) Vec3 {
	dx := to.X - from.X
	dz := to.Z - from.Z
	d := math.Sqrt(dx*dx + dz*dz)
	if d <= maxStep || d == 0 {
		return Vec3{X: to.X, Y: from.Y, Z: to.Z}
	}
	k := maxStep / d
	return Vec3{X: from.X + dx*k, Y: from.Y, Z: from.Z + dz*k}
}

// Clamp restricts v to [lo, hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt restricts v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package entropy provides the shared pseudo-random source used for jitter,
// probability rolls and the per-agent opt-out draw.
// Draws are synchronous and never block the frame loop.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// Seeded is a deterministic Source backed by math/rand.
// Not safe for concurrent use; the frame loop owns it.
type Seeded struct {
	rng *mrand.Rand
}

// NewSeeded creates a deterministic source. A zero seed draws one from crypto/rand.
func NewSeeded(seed int64) *Seeded {
	if seed == 0 {
		seed = RandomSeed()
	}
	return &Seeded{rng: mrand.New(mrand.NewSource(seed))}
}

// RandomSeed draws a positive seed from crypto/rand, for runs started without one.
func RandomSeed() int64 {
	return int64(cryptoUint64()>>1) | 1
}

// Float64 returns a uniform float in [0, 1).
func (s *Seeded) Float64() float64 {
	return s.rng.Float64()
}

// Range returns a uniform float in [lo, hi]. If hi <= lo it returns lo.
func Range(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

func cryptoUint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; fall back to a fixed midpoint.
		return 1 << 63
	}
	return binary.LittleEndian.Uint64(buf[:])
}

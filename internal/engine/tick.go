// Package engine provides the fixed-rate frame loop and the simulation it drives.
package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultFrameRate is the number of simulated frames per simulated second.
const DefaultFrameRate = 30

// Engine drives the simulation forward one frame at a time.
// Callbacks run on the loop goroutine.
type Engine struct {
	Frame     uint64  // Current frame counter (monotonic, never resets)
	Speed     float64 // Multiplier: 1.0 = real-time, 0 = paused. Only touched on the loop.
	FrameRate int     // Frames per simulated second

	running atomic.Bool

	// Callbacks for each layer, populated during setup.
	OnFrame  func(frame uint64, dt float64) // Every frame
	OnSecond func(frame uint64)             // Every FrameRate frames
	OnMinute func(frame uint64)             // Every 60 simulated seconds
	OnPaused func(frame uint64)             // Every 100ms while Speed <= 0
}

// NewEngine creates an engine running in real time.
func NewEngine(frameRate int) *Engine {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	return &Engine{
		Speed:     1.0,
		FrameRate: frameRate,
	}
}

// Dt is the simulated duration of one frame in seconds.
func (e *Engine) Dt() float64 {
	return 1.0 / float64(e.FrameRate)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run starts the frame loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("simulation engine started", "frame", e.Frame, "speed", e.Speed, "frame_rate", e.FrameRate)

	interval := time.Second / time.Duration(e.FrameRate)
	for e.running.Load() {
		if e.Speed <= 0 {
			// Paused: sleep briefly, still letting queued commands apply.
			time.Sleep(100 * time.Millisecond)
			if e.OnPaused != nil {
				e.OnPaused(e.Frame)
			}
			continue
		}

		start := time.Now()
		e.Step()

		// Sleep for the remainder of the frame interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(interval) / e.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "frame", e.Frame)
}

// RunFrames steps n frames back to back without pacing.
func (e *Engine) RunFrames(n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}

// Stop halts the frame loop. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Step advances the simulation by one frame.
func (e *Engine) Step() {
	e.Frame++

	if e.OnFrame != nil {
		e.OnFrame(e.Frame, e.Dt())
	}

	perSecond := uint64(e.FrameRate)
	if e.Frame%perSecond == 0 && e.OnSecond != nil {
		e.OnSecond(e.Frame)
	}
	if e.Frame%(perSecond*60) == 0 && e.OnMinute != nil {
		e.OnMinute(e.Frame)
	}
}

// SimTime returns a human-readable simulated clock for a frame number.
func SimTime(frame uint64, frameRate int) string {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	total := frame / uint64(frameRate)
	hours := total / 3600
	minutes := (total / 60) % 60
	seconds := total % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

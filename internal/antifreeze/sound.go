package antifreeze

// MaxSoundsPerFrame caps voice events forwarded across all agents in one frame.
const MaxSoundsPerFrame = 32

// SoundLimiter is the process-wide per-frame sound budget. One instance is
// shared by every agent on the frame loop.
type SoundLimiter struct {
	frame   uint64
	count   int
	dropped uint64
}

// Allow reports whether another sound may be forwarded in frame. The counter
// resets whenever a new frame number is seen.
func (l *SoundLimiter) Allow(frame uint64) bool {
	if frame != l.frame {
		l.frame = frame
		l.count = 0
	}
	if l.count >= MaxSoundsPerFrame {
		l.dropped++
		return false
	}
	l.count++
	return true
}

// Dropped is the total number of sounds refused since creation.
func (l *SoundLimiter) Dropped() uint64 { return l.dropped }

package antifreeze

// Verdict is what the host should do with this frame.
type Verdict uint8

const (
	Forward       Verdict = iota // Run the native update with the frame's dt
	ForwardCapped                // Run one aging update with a capped dt
	Suppress                     // Skip the native update
)

var verdictNames = [...]string{"forward", "capped", "suppress"}

func (v Verdict) String() string {
	if int(v) < len(verdictNames) {
		return verdictNames[v]
	}
	return "unknown"
}

// Reason records which rule produced a verdict.
type Reason uint8

const (
	ReasonBypass       Reason = iota // Feature off, destroyed, or finisher
	ReasonOptedOut                   // Lifetime opt-out
	ReasonGrace                      // Stimulus grace window
	ReasonPassThrough                // Not a move command, or no controller
	ReasonActive                     // Passed every gate
	ReasonInRing                     // Chasing inside the active ring
	ReasonTokenGranted               // Won the keep roll
	ReasonTokenHeld                  // Token still valid
	ReasonFrozenWait                 // Frozen, probe not due
	ReasonProbeFailed                // Frozen, probe says still unreachable
	ReasonUnreachable                // Height gate froze the agent
	ReasonCrowded                    // Density culling froze the agent
	ReasonTokenExpired               // Token ran out
	ReasonTokenDenied                // Lost the keep roll
	ReasonDead                       // Killed; body awaiting cleanup
)

var reasonNames = [...]string{
	"bypass", "opted_out", "grace", "pass_through", "active", "in_ring",
	"token_granted", "token_held", "frozen_wait", "probe_failed",
	"unreachable", "crowded", "token_expired", "token_denied", "dead",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Decision is the outcome of one frame evaluation.
type Decision struct {
	Verdict Verdict
	Dt      float64 // dt to forward; zero when suppressed
	Reason  Reason
}

func forward(f Frame, reason Reason) Decision {
	return Decision{Verdict: Forward, Dt: f.Dt, Reason: reason}
}

func suppress(reason Reason) Decision {
	return Decision{Verdict: Suppress, Reason: reason}
}

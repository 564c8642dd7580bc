package antifreeze

// Mode is the macro-state of a participating agent.
type Mode uint8

const (
	ModeActive        Mode = iota // Native updates flow, subject to the active-state gates
	ModeStimulusGrace             // Guaranteed full updates after a hit or contact
	ModeFrozen                    // Native updates suppressed until the next probe
)

var modeNames = [...]string{"active", "grace", "frozen"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ChaseToken is a time-limited permission for a far chaser to run at full fidelity.
type ChaseToken struct {
	Held bool    `json:"held"`
	TTL  float64 `json:"ttl"`
}

// State is the mutable per-agent record. Grace is meaningful only in
// ModeStimulusGrace; Cooldown and AgingAccum only in ModeFrozen.
// UnreachableAccum, WakeCooldown and Token are orthogonal to the mode.
type State struct {
	Mode       Mode    `json:"mode"`
	Grace      float64 `json:"grace"`
	Cooldown   float64 `json:"cooldown"`
	AgingAccum float64 `json:"aging_accum"`

	UnreachableAccum float64    `json:"unreachable_accum"`
	WakeCooldown     float64    `json:"wake_cooldown"`
	Token            ChaseToken `json:"token"`
}

func (s *State) enterFrozen(cooldown float64) {
	s.Mode = ModeFrozen
	s.Grace = 0
	s.Cooldown = cooldown
	s.AgingAccum = 0
}

func (s *State) enterActive() {
	s.Mode = ModeActive
	s.Grace = 0
	s.Cooldown = 0
	s.AgingAccum = 0
}

func (s *State) clearToken() {
	s.Token = ChaseToken{}
}

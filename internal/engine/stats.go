package engine

import (
	"github.com/talgya/antifreeze/internal/agents"
	"github.com/talgya/antifreeze/internal/antifreeze"
	"github.com/talgya/antifreeze/internal/config"
)

// Event is a notable occurrence in the world.
type Event struct {
	Frame       uint64 `json:"frame" db:"frame"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "death", "survivor", "cleanup", "config", "finisher", "respawn"
}

// Decisions counts frame verdicts.
type Decisions struct {
	Forward    uint64 `json:"forward"`
	Capped     uint64 `json:"capped"`
	Suppressed uint64 `json:"suppressed"`
}

func (d *Decisions) add(v antifreeze.Verdict) {
	switch v {
	case antifreeze.Forward:
		d.Forward++
	case antifreeze.ForwardCapped:
		d.Capped++
	case antifreeze.Suppress:
		d.Suppressed++
	}
}

// Total returns the number of decisions counted.
func (d Decisions) Total() uint64 {
	return d.Forward + d.Capped + d.Suppressed
}

// Modes counts living infected by runtime mode.
type Modes struct {
	Active     int `json:"active" db:"active"`
	Grace      int `json:"grace" db:"grace"`
	Frozen     int `json:"frozen" db:"frozen"`
	OptedOut   int `json:"opted_out" db:"opted_out"`
	TokensHeld int `json:"tokens_held" db:"tokens_held"`
}

// Stats tracks aggregate simulation statistics. Counters are cumulative.
type Stats struct {
	Frame          uint64            `json:"frame"`
	SimTime        float64           `json:"sim_time"`
	Speed          float64           `json:"speed"`
	InfectedAlive  int               `json:"infected_alive"`
	Corpses        int               `json:"corpses"`
	SurvivorsAlive int               `json:"survivors_alive"`
	Modes          Modes             `json:"modes"`
	Decisions      Decisions         `json:"decisions"`
	Reasons        map[string]uint64 `json:"reasons"`
	NativeCalls    uint64            `json:"native_calls"`
	NativeSeconds  float64           `json:"native_seconds"`
	SoundsDropped  uint64            `json:"sounds_dropped"`
	Contacts       uint64            `json:"contacts"`
	Kills          uint64            `json:"kills"`
	SurvivorDeaths uint64            `json:"survivor_deaths"`
	Deleted        uint64            `json:"deleted"`
	ConfigResets   int               `json:"config_resets"`
	ConfigLoaded   bool              `json:"config_loaded"`
	FrameMillis    float64           `json:"frame_ms"`
}

func (s Stats) clone() Stats {
	cp := s
	cp.Reasons = make(map[string]uint64, len(s.Reasons))
	for k, v := range s.Reasons {
		cp.Reasons[k] = v
	}
	return cp
}

// Sample is one telemetry row, taken once per simulated second.
// Decision and native counts cover only that second.
type Sample struct {
	Frame         uint64  `json:"frame" db:"frame"`
	SimTime       float64 `json:"sim_time" db:"sim_time"`
	Alive         int     `json:"alive" db:"alive"`
	Modes
	Forward       uint64  `json:"forward" db:"forward"`
	Capped        uint64  `json:"capped" db:"capped"`
	Suppressed    uint64  `json:"suppressed" db:"suppressed"`
	NativeCalls   uint64  `json:"native_calls" db:"native_calls"`
	NativeSeconds float64 `json:"native_seconds" db:"native_seconds"`
	FrameMillis   float64 `json:"frame_ms" db:"frame_ms"`
}

// Batch is buffered telemetry handed to the sink on flush.
type Batch struct {
	RunID   string
	Samples []Sample
	Events  []Event
}

// Empty reports whether there is nothing to write.
func (b Batch) Empty() bool {
	return len(b.Samples) == 0 && len(b.Events) == 0
}

// Recorder receives live metrics. observability.Metrics implements it.
type Recorder interface {
	Decision(verdict, reason string)
	Modes(active, grace, frozen, optedOut, tokens int)
	ConfigReset()
	Frame(seconds float64)
	Native(calls uint64, seconds float64)
	SoundsDropped(n uint64)
	BodyDeleted()
}

type nopRecorder struct{}

func (nopRecorder) Decision(string, string)       {}
func (nopRecorder) Modes(int, int, int, int, int) {}
func (nopRecorder) ConfigReset()                  {}
func (nopRecorder) Frame(float64)                 {}
func (nopRecorder) Native(uint64, float64)        {}
func (nopRecorder) SoundsDropped(uint64)          {}
func (nopRecorder) BodyDeleted()                  {}

// Snapshot is the read-only view published for observers off the loop.
type Snapshot struct {
	RunID    string                `json:"run_id"`
	SimClock string                `json:"sim_clock"`
	Stats    Stats                 `json:"stats"`
	Config   *config.Config        `json:"config"`
	Agents   []agents.InfectedView `json:"agents"`
	Events   []Event               `json:"events"`
}

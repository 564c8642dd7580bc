// Simulation ties the world, the infected and their runtimes together and
// runs them each frame.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/antifreeze/internal/agents"
	"github.com/talgya/antifreeze/internal/antifreeze"
	"github.com/talgya/antifreeze/internal/config"
	"github.com/talgya/antifreeze/internal/entropy"
	"github.com/talgya/antifreeze/internal/vmath"
	"github.com/talgya/antifreeze/internal/world"
)

const (
	maxEvents        = 1000 // Recent events kept in memory
	maxPendingSample = 3600 // Samples buffered while no sink drains them
	commandQueueSize = 64
)

// Options configures a new simulation.
type Options struct {
	Seed          int64 // 0 = random
	FrameRate     int
	Gen           world.GenConfig
	Spawn         agents.SpawnConfig
	GridCell      float64 // Spatial hash cell size in meters
	MaxAgentViews int     // Agents included in each published snapshot
}

// DefaultOptions returns a mid-sized arena with a few hundred infected.
func DefaultOptions() Options {
	return Options{
		FrameRate:     DefaultFrameRate,
		Gen:           world.DefaultGenConfig(),
		Spawn:         agents.DefaultSpawnConfig(),
		GridCell:      4,
		MaxAgentViews: 200,
	}
}

type window struct {
	decisions     Decisions
	nativeCalls   uint64
	nativeSeconds float64
}

// Simulation holds the complete world state. Everything except Enqueue and
// Snapshot must be called from the frame loop.
type Simulation struct {
	RunID     string
	Seed      int64
	FrameRate int

	Terrain   *world.Terrain
	Grid      *world.Grid
	Env       *agents.Env
	Infected  []*agents.Infected
	Survivors []*agents.Survivor

	Config    *config.Store
	Sounds    *antifreeze.SoundLimiter
	Scheduler *Scheduler
	Metrics   Recorder

	// Sink receives telemetry batches on flush. Nil keeps them buffered.
	Sink chan<- Batch
	// OnSpeed applies a speed command to the engine.
	OnSpeed func(speed float64)

	Events    []Event // Recent events (ring buffer)
	Stats     Stats
	LastFrame uint64
	SimTime   float64

	maxViews     int
	commands     chan Command
	pending      Batch
	window       window
	soundsSeen   uint64
	lastFrameDur time.Duration

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewSimulation generates terrain and spawns the population.
func NewSimulation(store *config.Store, opts Options) *Simulation {
	seed := opts.Seed
	if seed == 0 {
		seed = entropy.RandomSeed()
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.MaxAgentViews <= 0 {
		opts.MaxAgentViews = 200
	}

	gen := opts.Gen
	gen.Seed = seed
	terrain := world.Generate(gen)
	grid := world.NewGrid(opts.GridCell)

	s := &Simulation{
		RunID:     uuid.NewString(),
		Seed:      seed,
		FrameRate: opts.FrameRate,
		Terrain:   terrain,
		Grid:      grid,
		Config:    store,
		Sounds:    &antifreeze.SoundLimiter{},
		Scheduler: NewScheduler(),
		Metrics:   nopRecorder{},
		maxViews:  opts.MaxAgentViews,
		commands:  make(chan Command, commandQueueSize),
	}
	s.Stats.Reasons = make(map[string]uint64)
	s.Stats.Speed = 1.0

	s.Env = &agents.Env{
		Terrain:  terrain,
		Grid:     grid,
		Settings: store,
		Sounds:   s.Sounds,
		Rand:     entropy.NewSeeded(seed),
		Report:   s.report,
	}

	spawner := agents.NewSpawner(seed, s.Env)
	s.Infected, s.Survivors = spawner.Populate(opts.Spawn)

	slog.Info("simulation created",
		"run_id", s.RunID,
		"seed", seed,
		"terrain", terrain.String(),
		"infected", len(s.Infected),
		"survivors", len(s.Survivors),
		"config", store.Path(),
	)

	s.countPopulation()
	s.publish()
	return s
}

// CurrentFrame returns the most recently processed frame number.
func (s *Simulation) CurrentFrame() uint64 {
	return s.LastFrame
}

// Enqueue queues an operator command for the next frame. Safe from any goroutine.
func (s *Simulation) Enqueue(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	select {
	case s.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Snapshot returns the latest published view. Safe from any goroutine.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Frame runs every frame: commands, delayed calls, survivors, infected, contacts.
func (s *Simulation) Frame(frame uint64, dt float64) {
	start := time.Now()
	s.LastFrame = frame
	s.SimTime += dt
	s.Env.Frame = frame

	s.DrainCommands()
	s.Scheduler.Advance(s.SimTime)

	for _, sv := range s.Survivors {
		wasAlive := !sv.IsDestroyed()
		act := sv.Update(dt)
		if act.Shoot != nil && act.Shoot.Hit(agents.SurvivorShotDamage) {
			sv.Kills++
			s.kill(act.Shoot, fmt.Sprintf("shot by survivor %d", sv.AgentID))
		}
		if act.Finish != nil && act.Finish.StartFinisher() {
			s.addEvent("finisher", fmt.Sprintf("survivor %d started a finisher on infected %d", sv.AgentID, act.Finish.AgentID))
		}
		if !wasAlive && !sv.IsDestroyed() {
			s.addEvent("respawn", fmt.Sprintf("survivor %d respawned", sv.AgentID))
		}
	}

	for _, z := range s.Infected {
		// Corpses stop costing anything once their simulation is disabled.
		if z.Deleted() || !z.Simulated() {
			continue
		}

		calls, secs := z.NativeCalls, z.NativeSeconds
		d := z.Tick(dt)
		s.record(d)
		s.window.nativeCalls += z.NativeCalls - calls
		s.window.nativeSeconds += z.NativeSeconds - secs

		if z.IsDestroyed() && !z.Runtime.Dead() {
			// The finisher already reported the death.
			s.kill(z, "")
		}
	}

	s.contacts()

	if dropped := s.Sounds.Dropped(); dropped > s.soundsSeen {
		s.Metrics.SoundsDropped(dropped - s.soundsSeen)
		s.Stats.SoundsDropped = dropped
		s.soundsSeen = dropped
	}

	s.lastFrameDur = time.Since(start)
	s.Stats.Frame = frame
	s.Stats.SimTime = s.SimTime
	s.Stats.FrameMillis = float64(s.lastFrameDur.Microseconds()) / 1000
	s.Metrics.Frame(s.lastFrameDur.Seconds())
}

// Second runs every simulated second: telemetry sample, corpse compaction, snapshot.
func (s *Simulation) Second(frame uint64) {
	s.compact()
	s.countPopulation()

	st := &s.Stats
	st.NativeCalls += s.window.nativeCalls
	st.NativeSeconds += s.window.nativeSeconds
	st.ConfigLoaded = s.Config.Loaded()

	s.pending.Samples = append(s.pending.Samples, Sample{
		Frame:         frame,
		SimTime:       s.SimTime,
		Alive:         st.InfectedAlive,
		Modes:         st.Modes,
		Forward:       s.window.decisions.Forward,
		Capped:        s.window.decisions.Capped,
		Suppressed:    s.window.decisions.Suppressed,
		NativeCalls:   s.window.nativeCalls,
		NativeSeconds: s.window.nativeSeconds,
		FrameMillis:   st.FrameMillis,
	})
	if n := len(s.pending.Samples); n > maxPendingSample {
		s.pending.Samples = s.pending.Samples[n-maxPendingSample:]
	}

	m := st.Modes
	s.Metrics.Modes(m.Active, m.Grace, m.Frozen, m.OptedOut, m.TokensHeld)
	s.Metrics.Native(s.window.nativeCalls, s.window.nativeSeconds)
	s.window = window{}

	s.publish()
}

// Minute runs every simulated minute: summary log.
func (s *Simulation) Minute(frame uint64) {
	s.Report()
}

// DrainCommands applies every queued command. Called at the top of each
// frame, and while paused.
func (s *Simulation) DrainCommands() {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(cmd)
		default:
			return
		}
	}
}

func (s *Simulation) apply(cmd Command) {
	switch cmd.Name {
	case CommandReload:
		s.reloadConfig(cmd.Source)
	case CommandFlush:
		s.Flush()
	case CommandReport:
		s.Report()
	case CommandSpeed:
		if s.OnSpeed != nil {
			s.OnSpeed(cmd.Value)
		}
		s.Stats.Speed = cmd.Value
		slog.Info("speed changed", "speed", cmd.Value, "source", cmd.Source)
	}
	s.publish()
}

// reloadConfig resets the store, but only when the current document allows it.
func (s *Simulation) reloadConfig(source string) {
	if !s.Config.Get().EnableHotConfigReload {
		slog.Warn("antifreeze reload ignored: enableHotConfigReload is off", "source", source)
		return
	}

	s.Config.Reset()
	cfg := s.Config.Get()
	s.Stats.ConfigResets = s.Config.Resets()
	s.Stats.ConfigLoaded = s.Config.Loaded()
	s.Metrics.ConfigReset()

	slog.Info("antifreeze configuration reloaded",
		"source", source,
		"loaded", s.Config.Loaded(),
		"enabled", cfg.EnableAntifreeze,
	)
	s.addEvent("config", fmt.Sprintf("configuration reloaded (%s)", source))
}

// Flush hands buffered telemetry to the sink without blocking the loop.
func (s *Simulation) Flush() {
	if s.Sink == nil || s.pending.Empty() {
		return
	}

	batch := s.pending
	batch.RunID = s.RunID
	select {
	case s.Sink <- batch:
		s.pending = Batch{}
	default:
		slog.Warn("telemetry sink busy, keeping batch", "samples", len(batch.Samples), "events", len(batch.Events))
	}
}

// TakeBatch returns and clears buffered telemetry. Only call while the loop
// is stopped.
func (s *Simulation) TakeBatch() Batch {
	batch := s.pending
	batch.RunID = s.RunID
	s.pending = Batch{}
	return batch
}

// Report logs a one-line summary of throttling effectiveness.
func (s *Simulation) Report() {
	st := s.Stats
	total := st.Decisions.Total()
	suppressed := 0.0
	if total > 0 {
		suppressed = float64(st.Decisions.Suppressed) / float64(total) * 100
	}

	slog.Info("antifreeze report",
		"frame", st.Frame,
		"sim_time", SimTime(st.Frame, s.FrameRate),
		"alive", st.InfectedAlive,
		"active", st.Modes.Active,
		"grace", st.Modes.Grace,
		"frozen", st.Modes.Frozen,
		"opted_out", st.Modes.OptedOut,
		"tokens", st.Modes.TokensHeld,
		"decisions", humanize.Comma(int64(total)),
		"suppressed", fmt.Sprintf("%.1f%%", suppressed),
		"native_calls", humanize.Comma(int64(st.NativeCalls)),
		"kills", st.Kills,
		"deleted", st.Deleted,
		"sounds_dropped", st.SoundsDropped,
		"frame_ms", fmt.Sprintf("%.3f", st.FrameMillis),
	)
}

func (s *Simulation) record(d antifreeze.Decision) {
	verdict, reason := d.Verdict.String(), d.Reason.String()
	s.Stats.Decisions.add(d.Verdict)
	s.Stats.Reasons[reason]++
	s.window.decisions.add(d.Verdict)
	s.Metrics.Decision(verdict, reason)
}

func (s *Simulation) kill(z *agents.Infected, cause string) {
	z.Die(s.Scheduler)
	s.Stats.Kills++
	if cause != "" {
		s.addEvent("death", fmt.Sprintf("infected %d %s", z.AgentID, cause))
	}
}

// contacts wakes infected touching a survivor.
func (s *Simulation) contacts() {
	r := agents.ContactRadius
	for _, sv := range s.Survivors {
		if sv.IsDestroyed() {
			continue
		}
		p := sv.Pos
		lo := vmath.Vec3{X: p.X - r, Y: p.Y - 1, Z: p.Z - r}
		hi := vmath.Vec3{X: p.X + r, Y: p.Y + 1, Z: p.Z + r}
		s.Grid.QueryBox(lo, hi, func(o antifreeze.Occupant) bool {
			z, ok := o.(*agents.Infected)
			if !ok || z.IsDestroyed() {
				return true
			}
			if vmath.HorizontalDistSq(p, z.Pos) <= r*r && z.Touch() {
				s.Stats.Contacts++
			}
			return true
		})
	}
}

// compact drops deleted corpses from the agent list.
func (s *Simulation) compact() {
	kept := s.Infected[:0]
	for _, z := range s.Infected {
		if z.Deleted() {
			s.Stats.Deleted++
			s.Metrics.BodyDeleted()
			s.addEvent("cleanup", fmt.Sprintf("corpse of infected %d deleted", z.AgentID))
			continue
		}
		kept = append(kept, z)
	}
	for i := len(kept); i < len(s.Infected); i++ {
		s.Infected[i] = nil
	}
	s.Infected = kept
}

func (s *Simulation) countPopulation() {
	var m Modes
	alive, corpses := 0, 0
	for _, z := range s.Infected {
		if z.IsDestroyed() {
			corpses++
			continue
		}
		alive++
		if z.Runtime.OptedOut() {
			m.OptedOut++
			continue
		}
		st := z.Runtime.State()
		switch st.Mode {
		case antifreeze.ModeActive:
			m.Active++
		case antifreeze.ModeStimulusGrace:
			m.Grace++
		case antifreeze.ModeFrozen:
			m.Frozen++
		}
		if st.Token.Held {
			m.TokensHeld++
		}
	}

	survivors := 0
	for _, sv := range s.Survivors {
		if !sv.IsDestroyed() {
			survivors++
		}
	}

	s.Stats.Modes = m
	s.Stats.InfectedAlive = alive
	s.Stats.Corpses = corpses
	s.Stats.SurvivorsAlive = survivors
}

func (s *Simulation) report(e agents.Event) {
	if e.Category == "survivor" {
		s.Stats.SurvivorDeaths++
	}
	s.addEvent(e.Category, e.Description)
}

func (s *Simulation) addEvent(category, desc string) {
	e := Event{Frame: s.LastFrame, Category: category, Description: desc}
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
	s.pending.Events = append(s.pending.Events, e)
	if n := len(s.pending.Events); n > maxEvents {
		s.pending.Events = s.pending.Events[n-maxEvents:]
	}
}

// publish rebuilds the observer snapshot.
func (s *Simulation) publish() {
	views := make([]agents.InfectedView, 0, min(len(s.Infected), s.maxViews))
	for _, z := range s.Infected {
		if len(views) >= s.maxViews {
			break
		}
		views = append(views, z.View())
	}

	start := max(len(s.Events)-100, 0)
	events := append([]Event(nil), s.Events[start:]...)

	snap := Snapshot{
		RunID:    s.RunID,
		SimClock: SimTime(s.LastFrame, s.FrameRate),
		Stats:    s.Stats.clone(),
		Config:   s.Config.Get().Clone(),
		Agents:   views,
		Events:   events,
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

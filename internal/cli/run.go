package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/talgya/antifreeze/internal/api"
	"github.com/talgya/antifreeze/internal/config"
	"github.com/talgya/antifreeze/internal/engine"
	"github.com/talgya/antifreeze/internal/observability"
	"github.com/talgya/antifreeze/internal/persistence"
)

type runOptions struct {
	seed       int64
	port       int
	dbPath     string
	infected   int
	survivors  int
	frameRate  int
	flushEvery time.Duration
	frames     int
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation",
	Long: `Generate a world, spawn hordes and survivors, and run the frame loop until
interrupted (or for --frames frames, unpaced). Edits to antifreeze.json are
picked up when enableHotConfigReload is on.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSimulation(ctx, runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.Int64Var(&runOpts.seed, "seed", 0, "world seed (0 = random)")
	f.IntVar(&runOpts.port, "port", 8080, "HTTP API port (0 = no API)")
	f.StringVar(&runOpts.dbPath, "db", "", "SQLite telemetry database (empty = no persistence)")
	f.IntVar(&runOpts.infected, "infected", 400, "number of infected")
	f.IntVar(&runOpts.survivors, "survivors", 12, "number of survivors")
	f.IntVar(&runOpts.frameRate, "frame-rate", engine.DefaultFrameRate, "frames per simulated second")
	f.DurationVar(&runOpts.flushEvery, "flush-every", 30*time.Second, "telemetry flush interval")
	f.IntVar(&runOpts.frames, "frames", 0, "run this many frames unpaced, then exit (0 = until interrupted)")
	rootCmd.AddCommand(runCmd)
}

func runSimulation(ctx context.Context, opts runOptions) error {
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	path := config.PathIn(profileDir)
	store := config.NewStore(path, ceiling)

	// ── Simulation ───────────────────────────────────────────────────
	simOpts := engine.DefaultOptions()
	simOpts.Seed = opts.seed
	simOpts.FrameRate = opts.frameRate
	simOpts.Spawn.Infected = opts.infected
	simOpts.Spawn.Survivors = opts.survivors
	sim := engine.NewSimulation(store, simOpts)

	metrics := observability.NewMetrics()
	sim.Metrics = metrics

	eng := engine.NewEngine(opts.frameRate)
	eng.OnFrame = sim.Frame
	eng.OnSecond = sim.Second
	eng.OnMinute = sim.Minute
	eng.OnPaused = func(uint64) { sim.DrainCommands() }
	sim.OnSpeed = func(speed float64) { eng.Speed = speed }

	// ── Persistence ──────────────────────────────────────────────────
	var db *persistence.DB
	stopConsumer := func() {}
	if opts.dbPath != "" {
		var err error
		db, err = persistence.Open(opts.dbPath)
		if err != nil {
			return fmt.Errorf("open telemetry db: %w", err)
		}
		defer db.Close()

		run := persistence.Run{
			ID:         sim.RunID,
			Seed:       sim.Seed,
			StartedAt:  time.Now().UTC(),
			ConfigPath: path,
			Config:     configJSON(store.Get()),
			Infected:   len(sim.Infected),
			Survivors:  len(sim.Survivors),
		}
		if err := db.SaveRun(run); err != nil {
			slog.Error("failed to record run", "error", err)
		}

		sink := make(chan engine.Batch, 8)
		consumerDone := make(chan struct{})
		sim.Sink = sink
		go func() {
			db.Consume(context.Background(), sink)
			close(consumerDone)
		}()
		stopConsumer = func() {
			close(sink)
			<-consumerDone
		}
		slog.Info("telemetry database opened", "path", opts.dbPath)
	}

	// ── Out-of-band producers: they only enqueue commands ────────────
	enqueue := func(name, source string) {
		if err := sim.Enqueue(engine.Command{Name: name, Source: source}); err != nil {
			slog.Warn("command dropped", "command", name, "source", source, "error", err)
		}
	}

	watcher, err := config.NewWatcher(path, 500*time.Millisecond, func() {
		enqueue(engine.CommandReload, "watcher")
	})
	if err == nil {
		err = watcher.Start()
	}
	if err != nil {
		slog.Warn("config watcher unavailable, use `afzsim reload` instead", "error", err)
	} else {
		defer watcher.Stop()
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every "+opts.flushEvery.String(), func() {
		enqueue(engine.CommandFlush, "cron")
	}); err != nil {
		return fmt.Errorf("schedule flush: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if opts.port > 0 {
		srv := &api.Server{
			Sim:      sim,
			DB:       db,
			Metrics:  metrics.Handler(),
			Port:     opts.port,
			AdminKey: os.Getenv(api.AdminKeyEnv),
		}
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// ── Frame loop ───────────────────────────────────────────────────
	if opts.frames > 0 {
		eng.RunFrames(opts.frames)
	} else {
		done := make(chan struct{})
		go func() {
			eng.Run()
			close(done)
		}()
		<-ctx.Done()
		slog.Info("received signal, shutting down")
		eng.Stop()
		<-done
	}

	// The loop has stopped; drain what is left synchronously.
	sim.DrainCommands()
	sim.Report()
	stopConsumer()
	if db != nil {
		if err := db.SaveBatch(sim.TakeBatch()); err != nil {
			slog.Error("final telemetry save failed", "error", err)
		}
		if err := db.SaveMeta("last_frame:"+sim.RunID, fmt.Sprintf("%d", sim.CurrentFrame())); err != nil {
			slog.Warn("save meta failed", "error", err)
		}
	}

	slog.Info("simulation stopped", "run_id", sim.RunID, "frame", sim.CurrentFrame(), "sim_time", engine.SimTime(sim.CurrentFrame(), opts.frameRate))
	return nil
}

// configJSON encodes the tunables recorded with a run. An encoding failure is
// logged and recorded as an empty document.
func configJSON(cfg *config.Config) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		slog.Warn("failed to encode run config", "error", err)
		return "{}"
	}
	return string(data)
}

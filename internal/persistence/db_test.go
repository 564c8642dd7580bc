package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/antifreeze/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "afzsim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sample(frame uint64, frozen int) engine.Sample {
	return engine.Sample{
		Frame:       frame,
		SimTime:     float64(frame) / 30,
		Alive:       10,
		Modes:       engine.Modes{Active: 10 - frozen, Frozen: frozen},
		Forward:     100,
		Suppressed:  200,
		NativeCalls: 100,
		FrameMillis: 0.4,
	}
}

func TestSaveBatchAndLoadHistory(t *testing.T) {
	db := openTestDB(t)

	err := db.SaveBatch(engine.Batch{
		RunID:   "run-a",
		Samples: []engine.Sample{sample(30, 2), sample(60, 4), sample(90, 6)},
		Events:  []engine.Event{{Frame: 45, Category: "death", Description: "infected 3 shot"}},
	})
	require.NoError(t, err)
	require.NoError(t, db.SaveBatch(engine.Batch{RunID: "run-b", Samples: []engine.Sample{sample(30, 9)}}))

	rows, err := db.LoadTelemetryHistory("run-a", 40, 1000, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(60), rows[0].Frame)
	assert.Equal(t, 4, rows[0].Frozen)
	assert.Equal(t, 6, rows[0].Active)
	assert.Equal(t, uint64(200), rows[1].Suppressed)

	limited, err := db.LoadTelemetryHistory("run-a", 0, 1000, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, uint64(30), limited[0].Frame)

	events, err := db.RecentEvents("run-a", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "death", events[0].Category)
	assert.Equal(t, uint64(45), events[0].Frame)

	none, err := db.RecentEvents("run-b", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSamplesAndEventsInSeparateBatches(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveBatch(engine.Batch{RunID: "run-a", Samples: []engine.Sample{sample(30, 1)}}))
	require.NoError(t, db.SaveBatch(engine.Batch{RunID: "run-a", Events: []engine.Event{{Frame: 31, Category: "config"}, {Frame: 32, Category: "cleanup"}}}))

	rows, err := db.LoadTelemetryHistory("run-a", 0, 100, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	events, err := db.RecentEvents("run-a", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "cleanup", events[0].Category)
}

func TestSaveBatchSkipsEmpty(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveBatch(engine.Batch{RunID: "run-a"}))

	rows, err := db.LoadTelemetryHistory("run-a", 0, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRuns(t *testing.T) {
	db := openTestDB(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveRun(Run{ID: "old", Seed: 1, StartedAt: start, ConfigPath: "a.json", Config: "{}", Infected: 10}))
	require.NoError(t, db.SaveRun(Run{ID: "new", Seed: 2, StartedAt: start.Add(time.Hour), ConfigPath: "b.json", Config: `{"version":1}`, Survivors: 3}))

	runs, err := db.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, int64(2), runs[0].Seed)
	assert.Equal(t, 3, runs[0].Survivors)
	assert.JSONEq(t, `{"version":1}`, runs[0].Config)
	assert.Equal(t, 10, runs[1].Infected)
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("k", "v1"))
	require.NoError(t, db.SaveMeta("k", "v2"))

	v, err := db.GetMeta("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}

func TestConsumeWritesBatchesUntilClosed(t *testing.T) {
	db := openTestDB(t)
	ch := make(chan engine.Batch, 2)
	ch <- engine.Batch{RunID: "run-a", Samples: []engine.Sample{sample(30, 1)}}
	ch <- engine.Batch{RunID: "run-a", Samples: []engine.Sample{sample(60, 1)}}
	close(ch)

	db.Consume(context.Background(), ch)

	rows, err := db.LoadTelemetryHistory("run-a", 0, 1000, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	last, err := db.GetMeta("last_frame:run-a")
	require.NoError(t, err)
	assert.Equal(t, "60", last)
}

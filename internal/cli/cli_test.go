package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/antifreeze/internal/api"
	"github.com/talgya/antifreeze/internal/config"
	"github.com/talgya/antifreeze/internal/engine"
	"github.com/talgya/antifreeze/internal/persistence"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := GetRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		out, err := execute(t, "--version")
		require.NoError(t, err)
		assert.Contains(t, out, "afzsim version")
		assert.Contains(t, out, GetVersion())
	})

	t.Run("help flag", func(t *testing.T) {
		out, err := execute(t, "--help")
		require.NoError(t, err)
		assert.Contains(t, out, "antifreeze")
		assert.Contains(t, out, "reload")
	})

	t.Run("global flags", func(t *testing.T) {
		cmd := GetRootCmd()
		for name, def := range map[string]string{"profile": ".", "log-level": "info", "cleanup-ceiling": "300"} {
			f := cmd.PersistentFlags().Lookup(name)
			require.NotNil(t, f, name)
			assert.Equal(t, def, f.DefValue)
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := execute(t, "config", "path", "--log-level", "loud")
		assert.ErrorContains(t, err, "invalid log level")
	})
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "config", "path", "--profile", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, config.FileName), strings.TrimSpace(out))
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "config", "init", "--profile", dir, "--cleanup-ceiling", "120", "--force=false", "--log-level", "error")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.FileExists(t, path)

	out, err = execute(t, "config", "show", "--profile", dir, "--cleanup-ceiling", "120", "--log-level", "error")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.True(t, cfg.EnableAntifreeze)
	assert.Equal(t, 120, cfg.CleanupBodiesTTL)
}

func TestReloadRequiresKey(t *testing.T) {
	t.Setenv(api.AdminKeyEnv, "")
	_, err := execute(t, "reload", "--admin-key", "", "--log-level", "error")
	assert.ErrorContains(t, err, "admin key required")
}

func TestReloadPostsCommand(t *testing.T) {
	var got engine.Command
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/command", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"queued":"afz-reload","message":"applied before the next frame"}`))
	}))
	defer ts.Close()

	t.Setenv(api.AdminKeyEnv, "secret")
	out, err := execute(t, "reload", "--api-url", ts.URL, "--admin-key", "", "--log-level", "error")
	require.NoError(t, err)

	assert.Equal(t, engine.CommandReload, got.Name)
	assert.Equal(t, "Bearer secret", auth)
	assert.Contains(t, out, "afz-reload queued")
}

func TestRunFramesPersistsTelemetry(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "afzsim.db")

	_, err := execute(t, "run",
		"--profile", dir,
		"--log-level", "error",
		"--db", dbPath,
		"--port", "0",
		"--seed", "5",
		"--infected", "12",
		"--survivors", "1",
		"--frame-rate", "30",
		"--flush-every", "1h",
		"--frames", "90",
	)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, config.FileName))

	db, err := persistence.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	runs, err := db.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(5), runs[0].Seed)
	assert.Equal(t, 12, runs[0].Infected)

	rows, err := db.LoadTelemetryHistory(runs[0].ID, 0, 1000, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	last, err := db.GetMeta("last_frame:" + runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "90", last)
}

func TestStatusPrintsCounters(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stats", r.URL.Path)
		json.NewEncoder(w).Encode(engine.Stats{
			Frame:         12345,
			InfectedAlive: 300,
			Modes:         engine.Modes{Active: 100, Frozen: 200},
			Decisions:     engine.Decisions{Forward: 1000, Suppressed: 3000},
			NativeCalls:   1000,
			ConfigLoaded:  true,
		})
	}))
	defer ts.Close()

	out, err := execute(t, "status", "--api-url", ts.URL, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "200 frozen")
	assert.Contains(t, out, "3,000 suppressed (75.0%)")
	assert.Contains(t, out, "loaded=true")
}

func TestConfigJSONFallsBackOnEncodeError(t *testing.T) {
	cfg := config.Default()
	assert.JSONEq(t, mustJSON(t, cfg), configJSON(cfg))

	cfg.NearRadiusMeters = math.NaN()
	assert.Equal(t, "{}", configJSON(cfg))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestSendParsesTextCommand(t *testing.T) {
	var got engine.Command
	posts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"queued":"speed","value":4,"message":"applied before the next frame"}`))
	}))
	defer ts.Close()

	out, err := execute(t, "send", "speed", "4", "--api-url", ts.URL, "--admin-key", "secret", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, engine.CommandSpeed, got.Name)
	assert.Equal(t, 4.0, got.Value)
	assert.Contains(t, out, "speed queued")

	_, err = execute(t, "send", "speed", "NaN", "--api-url", ts.URL, "--admin-key", "secret", "--log-level", "error")
	assert.Error(t, err)
	_, err = execute(t, "send", "explode", "--api-url", ts.URL, "--admin-key", "secret", "--log-level", "error")
	assert.ErrorIs(t, err, engine.ErrUnknownCommand)
	assert.Equal(t, 1, posts)
}

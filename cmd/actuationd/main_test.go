package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/logging"
)

// writeConfig writes a config file and points GRAYLOGIC_CONFIG at it.
func writeConfig(t *testing.T, content string) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYLOGIC_CONFIG", configPath)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want a config error", err)
	}
}

// TestRun_MissingDatabasePath verifies validation rejects an empty database path.
func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, `
site:
  id: test-site

database:
  path: ""

logging:
  level: error
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_UnknownActuatorKind verifies devices are checked before anything
// is opened.
func TestRun_UnknownActuatorKind(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	writeConfig(t, `
site:
  id: test-site

devices:
  - name: Edge
    protocol: lovense
    scalar: [vibrate, buzz]

database:
  path: "`+dbPath+`"

logging:
  level: error
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading devices") {
		t.Fatalf("run() error = %v, want a device error", err)
	}
	if _, statErr := os.Stat(dbPath); !os.IsNotExist(statErr) {
		t.Error("database should not be created when devices are invalid")
	}
}

// TestRun_APIWithoutSecret verifies the API refuses to start unauthenticated.
func TestRun_APIWithoutSecret(t *testing.T) {
	t.Setenv("GRAYLOGIC_JWT_SECRET", "")
	writeConfig(t, `
site:
  id: test-site

database:
  path: "`+filepath.Join(t.TempDir(), "test.db")+`"

api:
  enabled: true
  port: 8090

logging:
  level: error
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Fatalf("run() error = %v, want a missing secret error", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("GRAYLOGIC_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// ─── Mock Dependencies ───────────────────────────────────────────────────────

// slowBackend holds every move until release is closed.
type slowBackend struct {
	entered  chan struct{}
	release  chan struct{}
	finished atomic.Bool
}

func (b *slowBackend) SetScalar(context.Context, *actuation.Actuator, float64) error {
	return nil
}

func (b *slowBackend) SetLinear(context.Context, *actuation.Actuator, time.Duration, float64) error {
	close(b.entered)
	<-b.release
	b.finished.Store(true)
	return nil
}

// TestStartWorker_StopWaitsForMoves verifies shutdown does not return while a
// position move is still talking to the backend.
func TestStartWorker_StopWaitsForMoves(t *testing.T) {
	hw := &slowBackend{entered: make(chan struct{}), release: make(chan struct{})}
	scheduler, worker := actuation.New(hw, actuation.Settings{Resolution: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	workerCtx, stop := startWorker(ctx, worker, logging.Default())

	axis := actuation.NewActuator(actuation.DeviceInfo{Name: "Launch", Linear: 1}, actuation.KindPosition, 0)
	if err := scheduler.CreatePlayer(axis).PlayPosition(time.Second, actuation.NewSpeed(50)); err != nil {
		t.Fatalf("PlayPosition() error = %v", err)
	}
	select {
	case <-hw.entered:
	case <-time.After(time.Second):
		t.Fatal("move never reached the backend")
	}

	// Cancelling the parent context alone must not stop the worker.
	cancel()
	if workerCtx.Err() != nil {
		t.Fatal("worker context cancelled with its parent")
	}

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned while a move was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(hw.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return after the move finished")
	}
	if !hw.finished.Load() {
		t.Error("move did not complete before stop returned")
	}
	stop() // second call returns at once
}

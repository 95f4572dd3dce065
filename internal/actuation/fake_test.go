package actuation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type scalarCall struct {
	ID    string
	Value float64
	At    time.Duration
}

type moveCall struct {
	ID       string
	Position float64
	Duration time.Duration
}

// fakeBackend records every hardware command with its offset from creation.
type fakeBackend struct {
	mu      sync.Mutex
	created time.Time
	scalars []scalarCall
	moves   []moveCall

	// failZero makes writes of 0 fail, i.e. the final stop.
	failZero bool
	failMove bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{created: time.Now()}
}

func (f *fakeBackend) SetScalar(_ context.Context, a *Actuator, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failZero && value == 0 {
		return errors.New("device unreachable")
	}
	f.scalars = append(f.scalars, scalarCall{ID: a.Identifier(), Value: value, At: time.Since(f.created)})
	return nil
}

func (f *fakeBackend) SetLinear(_ context.Context, a *Actuator, d time.Duration, position float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMove {
		return errors.New("axis jammed")
	}
	f.moves = append(f.moves, moveCall{ID: a.Identifier(), Position: position, Duration: d})
	return nil
}

func (f *fakeBackend) getScalars() []scalarCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cpy := make([]scalarCall, len(f.scalars))
	copy(cpy, f.scalars)
	return cpy
}

func (f *fakeBackend) values() []float64 {
	calls := f.getScalars()
	out := make([]float64, len(calls))
	for i, c := range calls {
		out[i] = c.Value
	}
	return out
}

func (f *fakeBackend) getMoves() []moveCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cpy := make([]moveCall, len(f.moves))
	copy(cpy, f.moves)
	return cpy
}

// mockRecorder captures recorded values.
type mockRecorder struct {
	mu     sync.Mutex
	values []float64
}

func (m *mockRecorder) RecordActuatorValue(_, _ string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = append(m.values, value)
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

// mockLogger captures warnings.
type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *mockLogger) Debug(string, ...any) {}
func (m *mockLogger) Info(string, ...any)  {}
func (m *mockLogger) Error(string, ...any) {}

func (m *mockLogger) Warn(msg string, _ ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.warns...)
}

// ─── Helper ─────────────────────────────────────────────────────────────────

func vibrator(name string) *Actuator {
	return NewActuator(DeviceInfo{Name: name, Scalar: []ActuatorKind{KindVibrate}}, KindVibrate, 0)
}

func stroker(name string) *Actuator {
	return NewActuator(DeviceInfo{Name: name, Linear: 1}, KindPosition, 0)
}

// startEngine runs a Worker for the duration of the test.
func startEngine(t *testing.T, resolution time.Duration) (*Scheduler, *Worker, *fakeBackend) {
	t.Helper()
	return startEngineWithLogger(t, resolution, nil)
}

func startEngineWithLogger(t *testing.T, resolution time.Duration, logger Logger) (*Scheduler, *Worker, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	sched, worker := New(backend, Settings{Resolution: resolution}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = worker.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-worker.Done()
	})
	return sched, worker, backend
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func equalValues(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package dispatch

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type scalarWrite struct {
	Actuator string
	Value    float64
}

type linearMove struct {
	Actuator string
	Duration time.Duration
	Position float64
}

// fakeBackend records hardware writes.
type fakeBackend struct {
	mu      sync.Mutex
	scalars []scalarWrite
	moves   []linearMove
}

func (b *fakeBackend) SetScalar(_ context.Context, a *actuation.Actuator, value float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scalars = append(b.scalars, scalarWrite{Actuator: a.Identifier(), Value: value})
	return nil
}

func (b *fakeBackend) SetLinear(_ context.Context, a *actuation.Actuator, d time.Duration, position float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moves = append(b.moves, linearMove{Actuator: a.Identifier(), Duration: d, Position: position})
	return nil
}

func (b *fakeBackend) scalarValues(actuator string) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []float64
	for _, w := range b.scalars {
		if w.Actuator == actuator {
			out = append(out, w.Value)
		}
	}
	return out
}

func (b *fakeBackend) getMoves() []linearMove {
	b.mu.Lock()
	defer b.mu.Unlock()
	cpy := make([]linearMove, len(b.moves))
	copy(cpy, b.moves)
	return cpy
}

type published struct {
	Topic   string
	Payload any
}

// mockStatus captures PublishJSON calls.
type mockStatus struct {
	mu       sync.Mutex
	messages []published
}

func (m *mockStatus) PublishJSON(topic string, v any, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, published{Topic: topic, Payload: v})
	return nil
}

func (m *mockStatus) getMessages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := make([]published, len(m.messages))
	copy(cpy, m.messages)
	return cpy
}

type broadcast struct {
	Channel string
	Payload any
}

// mockHub captures WebSocket broadcasts.
type mockHub struct {
	mu         sync.Mutex
	broadcasts []broadcast
}

func (m *mockHub) Broadcast(channel string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, broadcast{Channel: channel, Payload: payload})
}

func (m *mockHub) channels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.broadcasts))
	for i, b := range m.broadcasts {
		out[i] = b.Channel
	}
	return out
}

type dispatchEvent struct {
	Handle uint64
	Mode   string
	Status string
}

// mockEvents captures telemetry events.
type mockEvents struct {
	mu     sync.Mutex
	events []dispatchEvent
}

func (m *mockEvents) WriteDispatchEvent(handle uint64, mode, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchEvent{Handle: handle, Mode: mode, Status: status})
}

func (m *mockEvents) getEvents() []dispatchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := make([]dispatchEvent, len(m.events))
	copy(cpy, m.events)
	return cpy
}

// mockPatterns serves fixed waveforms by name.
type mockPatterns struct {
	waveforms map[string]actuation.Waveform
}

func (m *mockPatterns) Generate(_ context.Context, name string) (actuation.Waveform, error) {
	w, ok := m.waveforms[name]
	if !ok {
		return nil, errors.New("pattern: script not found")
	}
	return w, nil
}

// mockStopper records hardware stop-all calls.
type mockStopper struct {
	mu      sync.Mutex
	devices []string
}

func (m *mockStopper) StopDevices(_ context.Context, devices []actuation.DeviceInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range devices {
		m.devices = append(m.devices, d.Name)
	}
	return nil
}

// mockRepository keeps records in memory.
type mockRepository struct {
	mu      sync.Mutex
	records map[uint64]Record
}

func newMockRepository() *mockRepository {
	return &mockRepository{records: make(map[uint64]Record)}
}

func (m *mockRepository) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Handle] = *rec
	return nil
}

func (m *mockRepository) Complete(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.Handle]; !ok {
		return ErrRecordNotFound
	}
	m.records[rec.Handle] = *rec
	return nil
}

func (m *mockRepository) Recent(_ context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepository) get(h uint64) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[h]
	return r, ok
}

// ─── Helpers ────────────────────────────────────────────────────────────────

var (
	edgeDevice = actuation.DeviceInfo{
		Name:     "Edge",
		Protocol: "lovense",
		Scalar:   []actuation.ActuatorKind{actuation.KindVibrate, actuation.KindVibrate},
	}
	launchDevice = actuation.DeviceInfo{Name: "Launch", Protocol: "kiiroo", Linear: 1}
)

type testEnv struct {
	svc     *Service
	backend *fakeBackend
	status  *mockStatus
	hub     *mockHub
	events  *mockEvents
	repo    *mockRepository
	stopper *mockStopper
}

// newTestEnv starts a scheduler, its worker and a fully wired service.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		backend: &fakeBackend{},
		status:  &mockStatus{},
		hub:     &mockHub{},
		events:  &mockEvents{},
		repo:    newMockRepository(),
		stopper: &mockStopper{},
	}

	sched, worker := actuation.New(env.backend, actuation.Settings{Resolution: 10 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = worker.Run(ctx) }()

	svc, err := NewService(Deps{
		Scheduler: sched,
		Catalogue: NewCatalogue(edgeDevice, launchDevice),
		Patterns: &mockPatterns{waveforms: map[string]actuation.Waveform{
			"pulse.lua":    {{AtMS: 0, Position: 100}, {AtMS: 40, Position: 50}},
			"overflow.lua": {{AtMS: 0, Position: 100}, {AtMS: math.MaxInt, Position: 0}},
		}},
		Repo:    env.repo,
		Status:  env.status,
		Events:  env.events,
		Hub:     env.hub,
		Stopper: env.stopper,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	env.svc = svc

	t.Cleanup(func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer closeCancel()
		_ = svc.Close(closeCtx)
		cancel()
	})
	return env
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// waitFinished waits until the history holds a final state for h.
func (e *testEnv) waitFinished(t *testing.T, h actuation.Handle) Record {
	t.Helper()
	var rec Record
	waitFor(t, "dispatch to finish", func() bool {
		r, ok := e.repo.get(uint64(h))
		rec = r
		return ok && r.State != StateRunning
	})
	return rec
}

func intPtr(v int) *int { return &v }

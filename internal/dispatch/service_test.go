package dispatch

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
)

func TestNewService_RequiresSchedulerAndCatalogue(t *testing.T) {
	sched, _ := actuation.New(&fakeBackend{}, actuation.Settings{}, nil)

	if _, err := NewService(Deps{Catalogue: NewCatalogue()}); err == nil {
		t.Error("NewService() without scheduler should fail")
	}
	if _, err := NewService(Deps{Scheduler: sched}); err == nil {
		t.Error("NewService() without catalogue should fail")
	}
}

func TestDispatch_ScalarCompletes(t *testing.T) {
	env := newTestEnv(t)

	h, err := env.svc.Dispatch(context.Background(), Request{
		RequestID:  "req-1",
		Mode:       ModeScalar,
		Actuators:  []string{"Edge (vibrate)"},
		DurationMS: 50,
		Speed:      intPtr(60),
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if h == 0 {
		t.Fatal("Dispatch() returned zero handle")
	}

	rec := env.waitFinished(t, h)
	if rec.State != StateCompleted {
		t.Errorf("State = %q, want %q (error %q)", rec.State, StateCompleted, rec.Error)
	}
	if rec.RequestID != "req-1" || rec.RequestedMS != 50 {
		t.Errorf("record = %+v", rec)
	}
	if rec.DurationMS == nil || *rec.DurationMS < 50 {
		t.Errorf("DurationMS = %v, want >= 50", rec.DurationMS)
	}

	values := env.backend.scalarValues("Edge (vibrate)")
	if want := []float64{0.6, 0}; !slices.Equal(values, want) {
		t.Errorf("hardware writes = %v, want %v", values, want)
	}

	waitFor(t, "finished broadcast", func() bool {
		return slices.Equal(env.hub.channels(), []string{ChannelStarted, ChannelFinished})
	})

	msgs := env.status.getMessages()
	if len(msgs) != 2 {
		t.Fatalf("status messages = %d, want 2", len(msgs))
	}
	if msgs[0].Topic != "graylogic/actuation/status/1" {
		t.Errorf("status topic = %q", msgs[0].Topic)
	}
	if first, ok := msgs[0].Payload.(Record); !ok || first.State != StateRunning {
		t.Errorf("first status = %+v, want running record", msgs[0].Payload)
	}

	events := env.events.getEvents()
	if len(events) != 1 || events[0].Status != string(StateCompleted) || events[0].Mode != string(ModeScalar) {
		t.Errorf("events = %+v", events)
	}
	if active := env.svc.Active(); len(active) != 0 {
		t.Errorf("Active() = %v, want none", active)
	}
}

func TestDispatch_StopMarksStopped(t *testing.T) {
	env := newTestEnv(t)

	h, err := env.svc.Dispatch(context.Background(), Request{
		Mode:      ModeScalar,
		Actuators: []string{"Edge"},
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	active := env.svc.Active()
	if len(active) != 1 || active[0].Handle != uint64(h) || active[0].RequestedMS != 0 {
		t.Fatalf("Active() = %+v, want one open-ended dispatch", active)
	}

	waitFor(t, "scalar start", func() bool {
		return len(env.backend.scalarValues("Edge (vibrate #1)")) > 0
	})

	if err := env.svc.Stop(h); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	rec := env.waitFinished(t, h)
	if rec.State != StateStopped {
		t.Errorf("State = %q, want %q", rec.State, StateStopped)
	}
	for _, id := range []string{"Edge (vibrate)", "Edge (vibrate #1)"} {
		values := env.backend.scalarValues(id)
		if len(values) == 0 || values[len(values)-1] != 0 {
			t.Errorf("%s writes = %v, want to end at 0", id, values)
		}
	}
}

func TestStop_UnknownHandle(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.Stop(99)
	if !errors.Is(err, actuation.ErrUnknownHandle) {
		t.Errorf("Stop() error = %v, want ErrUnknownHandle", err)
	}
}

func TestStopAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var handles []actuation.Handle
	for _, target := range []string{"Edge (vibrate)", "Edge (vibrate #1)"} {
		h, err := env.svc.Dispatch(ctx, Request{Mode: ModeScalar, Actuators: []string{target}})
		if err != nil {
			t.Fatalf("Dispatch(%s) error = %v", target, err)
		}
		handles = append(handles, h)
	}

	if err := env.svc.StopAll(ctx); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}

	for _, h := range handles {
		if rec := env.waitFinished(t, h); rec.State != StateStopped {
			t.Errorf("handle %d state = %q, want stopped", h, rec.State)
		}
	}

	env.stopper.mu.Lock()
	stopped := slices.Clone(env.stopper.devices)
	env.stopper.mu.Unlock()
	if want := []string{"Edge", "Launch"}; !slices.Equal(stopped, want) {
		t.Errorf("hardware stop devices = %v, want %v", stopped, want)
	}
}

func TestDispatch_PatternFromScript(t *testing.T) {
	env := newTestEnv(t)

	h, err := env.svc.Dispatch(context.Background(), Request{
		Mode:      ModePattern,
		Actuators: []string{"Edge (vibrate)"},
		Pattern:   "pulse.lua",
		Speed:     intPtr(50),
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	rec := env.waitFinished(t, h)
	if rec.State != StateCompleted {
		t.Errorf("State = %q, want completed (error %q)", rec.State, rec.Error)
	}
	if rec.RequestedMS != 40 {
		t.Errorf("RequestedMS = %d, want the waveform length 40", rec.RequestedMS)
	}

	values := env.backend.scalarValues("Edge (vibrate)")
	if len(values) == 0 || values[0] != 0.5 {
		t.Errorf("first write = %v, want 0.5 (100%% scaled by 50%%)", values)
	}
	if values[len(values)-1] != 0 {
		t.Errorf("last write = %v, want 0", values[len(values)-1])
	}
}

func TestDispatch_Linear(t *testing.T) {
	env := newTestEnv(t)

	h, err := env.svc.Dispatch(context.Background(), Request{
		Mode:      ModeLinear,
		Actuators: []string{"Launch"},
		Waveform: actuation.Waveform{
			{AtMS: 0, Position: 0},
			{AtMS: 30, Position: 90},
			{AtMS: 60, Position: 10},
		},
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if rec := env.waitFinished(t, h); rec.State != StateCompleted {
		t.Errorf("State = %q, want completed (error %q)", rec.State, rec.Error)
	}

	moves := env.backend.getMoves()
	if len(moves) < 2 {
		t.Fatalf("moves = %+v, want at least 2", moves)
	}
	if moves[0].Position != 0.9 || moves[0].Duration != 30*time.Millisecond {
		t.Errorf("first move = %+v, want 0.9 over 30ms", moves[0])
	}
}

func TestDispatch_Position(t *testing.T) {
	env := newTestEnv(t)

	h, err := env.svc.Dispatch(context.Background(), Request{
		Mode:       ModePosition,
		Actuators:  []string{"Launch (position)"},
		Position:   intPtr(75),
		DurationMS: 200,
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	env.waitFinished(t, h)
	waitFor(t, "move", func() bool { return len(env.backend.getMoves()) == 1 })

	move := env.backend.getMoves()[0]
	if move.Position != 0.75 || move.Duration != 200*time.Millisecond {
		t.Errorf("move = %+v, want 0.75 over 200ms", move)
	}
}

func TestDispatch_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"invalid", Request{Mode: ModeScalar}, ErrInvalidRequest},
		{"unknown actuator", Request{Mode: ModeScalar, Actuators: []string{"Ghost"}}, ErrUnknownActuator},
		{"kind mismatch", Request{Mode: ModeLinear, Actuators: []string{"Edge"}, Pattern: "pulse.lua"}, ErrKindMismatch},
		{"script timestamp overflows", Request{Mode: ModePattern, Actuators: []string{"Edge"}, Pattern: "overflow.lua"}, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.svc.Dispatch(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Dispatch() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("missing script", func(t *testing.T) {
		_, err := env.svc.Dispatch(ctx, Request{Mode: ModePattern, Actuators: []string{"Edge"}, Pattern: "nope.lua"})
		if err == nil {
			t.Error("Dispatch() expected error for missing script")
		}
	})

	if active := env.svc.Active(); len(active) != 0 {
		t.Errorf("rejected requests left %d active dispatches", len(active))
	}
}

func TestDispatch_PatternsUnavailable(t *testing.T) {
	sched, _ := actuation.New(&fakeBackend{}, actuation.Settings{}, nil)
	svc, err := NewService(Deps{Scheduler: sched, Catalogue: NewCatalogue(edgeDevice)})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	_, err = svc.Dispatch(context.Background(), Request{
		Mode:      ModePattern,
		Actuators: []string{"Edge"},
		Pattern:   "waves.lua",
	})
	if !errors.Is(err, ErrPatternsUnavailable) {
		t.Errorf("Dispatch() error = %v, want ErrPatternsUnavailable", err)
	}
}

func TestClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	h, err := env.svc.Dispatch(ctx, Request{Mode: ModeScalar, Actuators: []string{"Edge"}})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := env.svc.Close(closeCtx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Close waits for players, so the record is final by now.
	if rec, ok := env.repo.get(uint64(h)); !ok || rec.State != StateStopped {
		t.Errorf("record after Close = %+v, want stopped", rec)
	}

	if _, err := env.svc.Dispatch(ctx, Request{Mode: ModeScalar, Actuators: []string{"Edge"}}); !errors.Is(err, ErrClosed) {
		t.Errorf("Dispatch() after Close error = %v, want ErrClosed", err)
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)

	h, err := env.svc.Dispatch(context.Background(), Request{
		Mode:       ModeScalar,
		Actuators:  []string{"Edge (vibrate)"},
		DurationMS: 10,
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	env.waitFinished(t, h)

	records, err := env.svc.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(records) != 1 || records[0].Handle != uint64(h) {
		t.Errorf("History() = %+v", records)
	}

	t.Run("without repository", func(t *testing.T) {
		sched, _ := actuation.New(&fakeBackend{}, actuation.Settings{}, nil)
		svc, err := NewService(Deps{Scheduler: sched, Catalogue: NewCatalogue()})
		if err != nil {
			t.Fatalf("NewService() error = %v", err)
		}
		records, err := svc.History(context.Background(), 10)
		if err != nil || records != nil {
			t.Errorf("History() = %v, %v, want nil, nil", records, err)
		}
	})
}

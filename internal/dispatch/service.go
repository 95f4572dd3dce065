package dispatch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/mqtt"
)

// WebSocket channels broadcast by the service.
const (
	ChannelStarted  = "dispatch.started"
	ChannelFinished = "dispatch.finished"
	ChannelRejected = "dispatch.rejected"
)

// historyTimeout bounds a single history write.
const historyTimeout = 5 * time.Second

// PatternSource generates waveforms from named scripts.
type PatternSource interface {
	Generate(ctx context.Context, name string) (actuation.Waveform, error)
}

// StatusPublisher publishes status messages (the MQTT client).
type StatusPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// EventWriter records dispatch telemetry (the InfluxDB client).
type EventWriter interface {
	WriteDispatchEvent(handle uint64, mode, status string, duration time.Duration)
}

// Broadcaster pushes events to WebSocket clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// DeviceStopper stops devices at the hardware level.
type DeviceStopper interface {
	StopDevices(ctx context.Context, devices []actuation.DeviceInfo) error
}

// Logger defines the logging interface used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the service dependencies. Scheduler and Catalogue are
// required; the rest are optional and may be left nil.
type Deps struct {
	Scheduler *actuation.Scheduler
	Catalogue *Catalogue
	Patterns  PatternSource
	Repo      Repository
	Status    StatusPublisher
	Events    EventWriter
	Hub       Broadcaster
	Stopper   DeviceStopper
	Logger    Logger
}

// run is one live dispatch.
type run struct {
	player  *actuation.Player
	record  Record
	stopped bool
}

// Service validates requests, starts players and tracks them to completion.
//
// Thread Safety: all methods are safe for concurrent use.
type Service struct {
	scheduler *actuation.Scheduler
	catalogue *Catalogue
	patterns  PatternSource
	repo      Repository
	status    StatusPublisher
	events    EventWriter
	hub       Broadcaster
	stopper   DeviceStopper
	logger    Logger
	topics    mqtt.Topics

	mu      sync.Mutex
	running map[actuation.Handle]*run
	closed  bool
	wg      sync.WaitGroup
}

// NewService creates a dispatch service.
func NewService(deps Deps) (*Service, error) {
	if deps.Scheduler == nil {
		return nil, errors.New("dispatch: scheduler is required")
	}
	if deps.Catalogue == nil {
		return nil, errors.New("dispatch: catalogue is required")
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}

	return &Service{
		scheduler: deps.Scheduler,
		catalogue: deps.Catalogue,
		patterns:  deps.Patterns,
		repo:      deps.Repo,
		status:    deps.Status,
		events:    deps.Events,
		hub:       deps.Hub,
		stopper:   deps.Stopper,
		logger:    deps.Logger,
		running:   make(map[actuation.Handle]*run),
	}, nil
}

// Catalogue returns the actuator catalogue.
func (s *Service) Catalogue() *Catalogue {
	return s.catalogue
}

// Dispatch validates req and starts playing it. It returns as soon as the
// player is running; completion is reported through status and history.
func (s *Service) Dispatch(ctx context.Context, req Request) (actuation.Handle, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	actuators, err := s.catalogue.Resolve(req.Mode, req.Actuators...)
	if err != nil {
		return 0, err
	}

	waveform := req.Waveform
	if req.Pattern != "" {
		if s.patterns == nil {
			return 0, ErrPatternsUnavailable
		}
		if waveform, err = s.patterns.Generate(ctx, req.Pattern); err != nil {
			return 0, fmt.Errorf("generating %s: %w", req.Pattern, err)
		}
		if err := validateWaveform(waveform); err != nil {
			return 0, fmt.Errorf("generating %s: %w", req.Pattern, err)
		}
	}
	duration := req.duration(waveform)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	player := s.scheduler.CreatePlayer(actuators...)
	r := &run{
		player: player,
		record: Record{
			Handle:      uint64(player.Handle()),
			RequestID:   req.RequestID,
			Mode:        req.Mode,
			Actuators:   identifiers(actuators),
			RequestedMS: requestedMS(duration),
			State:       StateRunning,
			StartedAt:   time.Now(),
		},
	}
	s.running[player.Handle()] = r
	s.wg.Add(1)
	s.mu.Unlock()

	s.persist("create", func(ctx context.Context) error {
		return s.repo.Create(ctx, &r.record)
	})
	s.announce(ChannelStarted, r.record)

	s.logger.Info("dispatch started",
		"handle", r.record.Handle,
		"mode", req.Mode,
		"actuators", r.record.Actuators,
		"duration", duration,
	)

	go s.play(r, req, duration, waveform)
	return player.Handle(), nil
}

func (s *Service) play(r *run, req Request, duration time.Duration, waveform actuation.Waveform) {
	defer s.wg.Done()

	var err error
	switch req.Mode {
	case ModeScalar:
		err = r.player.PlayScalar(duration, req.speed())
	case ModePattern:
		err = r.player.PlayScalarPattern(duration, waveform, req.speed())
	case ModeLinear:
		err = r.player.PlayLinear(duration, waveform)
	case ModePosition:
		err = r.player.PlayPosition(duration, actuation.NewSpeed(*req.Position))
	}

	s.finish(r, err)
}

func (s *Service) finish(r *run, err error) {
	h := actuation.Handle(r.record.Handle)

	s.mu.Lock()
	delete(s.running, h)
	stopped := r.stopped
	s.mu.Unlock()

	rec := r.record
	now := time.Now()
	elapsed := now.Sub(rec.StartedAt)
	elapsedMS := elapsed.Milliseconds()
	rec.CompletedAt = &now
	rec.DurationMS = &elapsedMS

	switch {
	case err != nil:
		rec.State = StateFailed
		rec.Error = err.Error()
		s.logger.Warn("dispatch failed", "handle", rec.Handle, "error", err)
	case stopped:
		rec.State = StateStopped
		s.logger.Info("dispatch stopped", "handle", rec.Handle, "elapsed", elapsed)
	default:
		rec.State = StateCompleted
		s.logger.Info("dispatch completed", "handle", rec.Handle, "elapsed", elapsed)
	}

	s.persist("complete", func(ctx context.Context) error {
		return s.repo.Complete(ctx, &rec)
	})
	if s.events != nil {
		s.events.WriteDispatchEvent(rec.Handle, string(rec.Mode), string(rec.State), elapsed)
	}
	s.announce(ChannelFinished, rec)
}

// Stop cancels one dispatch. The scheduler is asked to stop the handle even
// when it is not running here; the returned error only reports that.
func (s *Service) Stop(h actuation.Handle) error {
	s.mu.Lock()
	r, ok := s.running[h]
	if ok {
		r.stopped = true
	}
	s.mu.Unlock()

	s.scheduler.StopTask(h)
	if !ok {
		return fmt.Errorf("%w: %d", actuation.ErrUnknownHandle, h)
	}
	return nil
}

// StopAll cancels every dispatch and, when a device stopper is configured,
// sends a hardware stop to every configured device.
func (s *Service) StopAll(ctx context.Context) error {
	s.mu.Lock()
	for _, r := range s.running {
		r.stopped = true
	}
	s.mu.Unlock()

	s.scheduler.StopAll()
	s.logger.Info("all dispatches stopped")

	if s.stopper == nil {
		return nil
	}
	if err := s.stopper.StopDevices(ctx, s.catalogue.Devices()); err != nil {
		return fmt.Errorf("stopping devices: %w", err)
	}
	return nil
}

// Active returns the running dispatches ordered by handle.
func (s *Service) Active() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	handles := slices.Sorted(maps.Keys(s.running))
	records := make([]Record, 0, len(handles))
	for _, h := range handles {
		records = append(records, s.running[h].record)
	}
	return records
}

// History returns recent dispatches, newest first. Without a repository it
// returns nothing.
func (s *Service) History(ctx context.Context, limit int) ([]Record, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.Recent(ctx, limit)
}

// Close rejects new requests, stops everything and waits for running
// players to finish or for ctx to expire.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	stopErr := s.StopAll(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return stopErr
	case <-ctx.Done():
		return errors.Join(stopErr, fmt.Errorf("waiting for dispatches: %w", ctx.Err()))
	}
}

// persist runs a history write, logging failures. History is best effort.
func (s *Service) persist(op string, fn func(ctx context.Context) error) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Warn("dispatch history write failed", "op", op, "error", err)
	}
}

func (s *Service) announce(channel string, rec Record) {
	if s.status != nil {
		if err := s.status.PublishJSON(s.topics.DispatchStatus(rec.Handle), rec, false); err != nil {
			s.logger.Warn("dispatch status publish failed", "handle", rec.Handle, "error", err)
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(channel, rec)
	}
}

// reject reports a request that could not be started.
func (s *Service) reject(requestID string, err error) {
	rej := Rejection{RequestID: requestID, Error: err.Error()}
	if s.status != nil {
		if pubErr := s.status.PublishJSON(s.topics.DispatchRejected(), rej, false); pubErr != nil {
			s.logger.Warn("rejection publish failed", "error", pubErr)
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(ChannelRejected, rej)
	}
}

// requestedMS converts a play duration for the record; Forever becomes 0.
func requestedMS(d time.Duration) int64 {
	if d == actuation.Forever {
		return 0
	}
	return d.Milliseconds()
}

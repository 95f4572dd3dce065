package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/mqtt"
)

// Publisher is the subset of the MQTT client the backend needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger defines the logging interface used by the backend.
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

// Options configures the MQTT backend.
type Options struct {
	QoS byte
	// Rate is the number of commands per second across all devices.
	// Zero disables throttling.
	Rate  float64
	Burst int
}

// MQTT publishes actuator commands to protocol bridges.
//
// Thread Safety: all methods are safe for concurrent use.
type MQTT struct {
	pub     Publisher
	topics  mqtt.Topics
	qos     byte
	limiter *rate.Limiter
	logger  Logger
}

var _ actuation.Backend = (*MQTT)(nil)

// NewMQTT creates a backend publishing through pub.
func NewMQTT(pub Publisher, opts Options, logger Logger) *MQTT {
	if logger == nil {
		logger = noopLogger{}
	}

	limit, burst := rate.Inf, 0
	if opts.Rate > 0 {
		limit, burst = rate.Limit(opts.Rate), max(opts.Burst, 1)
	}

	return &MQTT{
		pub:     pub,
		qos:     opts.QoS,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// SetScalar publishes a scalar command.
func (b *MQTT) SetScalar(ctx context.Context, a *actuation.Actuator, value float64) error {
	return b.send(ctx, a.Device, scalarCommand(a, value))
}

// SetLinear publishes a linear move command.
func (b *MQTT) SetLinear(ctx context.Context, a *actuation.Actuator, duration time.Duration, position float64) error {
	return b.send(ctx, a.Device, linearCommand(a, duration, position))
}

// StopDevices publishes a stop command to every device. It keeps going
// after a failure and returns all errors joined.
func (b *MQTT) StopDevices(ctx context.Context, devices []actuation.DeviceInfo) error {
	var errs []error
	for _, d := range devices {
		if err := b.send(ctx, d, newCommand(d, CommandStop)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *MQTT) send(ctx context.Context, device actuation.DeviceInfo, cmd Command) error {
	if b.pub == nil {
		return ErrNoPublisher
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for command slot: %w", err)
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshalling command: %w", err)
	}

	topic := b.topics.DeviceCommand(device.Protocol, topicSegment(device.Name))
	if err := b.pub.Publish(topic, payload, b.qos, false); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}

	b.logger.Debug("device command published",
		"topic", topic,
		"command", cmd.Command,
		"kind", cmd.Kind,
		"index", cmd.Index,
	)
	return nil
}

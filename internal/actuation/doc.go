// Package actuation provides the actuator scheduling engine for Gray Logic.
//
// Actuation commands are time-bounded, cancellable instructions for one or
// more actuators: hold a constant intensity, play an intensity pattern, or
// drive a position axis along a waveform. Several commands may target the
// same actuator at the same time; this package decides which value the
// hardware actually receives.
//
// Architecture:
//
//	┌──────────────┐  CreatePlayer   ┌──────────────┐
//	│  Scheduler   │────────────────▶│    Player    │ (one per dispatch)
//	│ handles +    │                 │ PlayScalar   │
//	│ cancellation │                 │ PlayPattern  │
//	└──────┬───────┘                 │ PlayLinear   │
//	       │ StopAll                 └──────┬───────┘
//	       ▼                                │ start/update/end/move
//	┌─────────────────────────────────────────────────────┐
//	│                mailbox (unbounded FIFO)             │
//	└─────────────────────────┬───────────────────────────┘
//	                          ▼
//	┌─────────────────────────────────────────────────────┐
//	│  Worker (single goroutine)                          │
//	│   deviceAccess: per-actuator contention bookkeeping │
//	│   Backend.SetScalar / Backend.SetLinear             │
//	└─────────────────────────────────────────────────────┘
//
// # Contention
//
// Constant-speed commands are "exclusive": among them the highest handle (the
// most recently started command) wins. Pattern commands are not exclusive;
// they drive the actuator only while no exclusive command holds it, and the
// most recently reported pattern value wins. Every stop rewrites the
// effective value of the remaining contenders. When the last contender stops
// the actuator is commanded to zero and that result is returned to the
// caller. Contenders are tracked by handle, so the late end of a command
// cleared by StopAll never ends a newer one.
//
// # Thread Safety
//
// Scheduler and Player are safe for concurrent use. The contention table is
// owned by the Worker goroutine and is never shared, so it carries no locks.
// Linear (position) moves bypass arbitration entirely.
//
// # Usage
//
//	sched, worker := actuation.New(backend, actuation.Settings{Resolution: 100 * time.Millisecond}, log)
//	go worker.Run(ctx)
//
//	player := sched.CreatePlayer(actuators...)
//	err := player.PlayScalar(2*time.Second, actuation.NewSpeed(60))
package actuation

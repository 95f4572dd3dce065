// Package dispatch turns actuation requests into running players.
//
// It is the layer between the outside world (MQTT intake, HTTP API) and the
// actuation engine:
//
//	┌──────────────┐    ┌──────────────────────────────────────────┐
//	│ MQTT / HTTP  │───▶│ Service                                  │
//	└──────────────┘    │  1. Validate request, resolve actuators  │
//	                    │  2. Generate waveform (Lua pattern)      │
//	                    │  3. Scheduler.CreatePlayer               │
//	                    │  4. Play in its own goroutine            │
//	                    │  5. Record history, publish status       │
//	                    └──────────────────────────────────────────┘
//
// A request names actuators by identifier ("Edge (vibrate)") or by device
// name, which selects every actuator of that device suited to the mode.
//
// History is an audit trail only. Nothing is restored after a restart.
package dispatch
